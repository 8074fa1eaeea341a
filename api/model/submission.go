package model

import (
	"github.com/fedsubhq/fedsub/model"
)

type CreateSubmission struct {
	Owner       string                 `json:"owner"`
	LaunchName  string                 `json:"launch_name"`
	LaunchURL   string                 `json:"launch_url"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Directories []string               `json:"directories"`
	Tier        string                 `json:"tier"`
	MetaData    map[string]interface{} `json:"meta_data"`
}

type PaySubmission struct {
	PaymentRef string `json:"payment_ref"`
}

type CostPreview struct {
	Directories []string `json:"directories"`
	Tier        string   `json:"tier"`
}

func (s *CreateSubmission) ToSubmission() *model.FederatedSubmission {
	return &model.FederatedSubmission{
		OwnerID:      s.Owner,
		LaunchName:   s.LaunchName,
		LaunchURL:    s.LaunchURL,
		Description:  s.Description,
		Category:     s.Category,
		DirectoryIDs: s.Directories,
		MetaData:     s.MetaData,
	}
}
