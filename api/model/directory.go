package model

import (
	"github.com/fedsubhq/fedsub/model"
)

type CreateDirectory struct {
	Name          string                 `json:"name"`
	Category      string                 `json:"category"`
	FeeSchedule   model.FeeSchedule      `json:"fee_schedule"`
	AcceptsCrypto bool                   `json:"accepts_crypto"`
	Requirements  model.Requirements     `json:"requirements"`
	SubmitURL     string                 `json:"submit_url"`
	InstanceID    string                 `json:"instance_id"`
	MetaData      map[string]interface{} `json:"meta_data"`
}

type UpdateDirectoryStatus struct {
	Status string `json:"status"`
}

func (d *CreateDirectory) ToDirectory() *model.Directory {
	return &model.Directory{
		Name:          d.Name,
		Category:      d.Category,
		FeeSchedule:   d.FeeSchedule,
		AcceptsCrypto: d.AcceptsCrypto,
		Requirements:  d.Requirements,
		SubmitURL:     d.SubmitURL,
		InstanceID:    d.InstanceID,
		MetaData:      d.MetaData,
	}
}
