package model

import (
	"github.com/fedsubhq/fedsub/model"
)

type RegisterInstance struct {
	Name         string                 `json:"name"`
	BaseURL      string                 `json:"base_url"`
	Capabilities []string               `json:"capabilities"`
	ContactEmail string                 `json:"contact_email"`
	MetaData     map[string]interface{} `json:"meta_data"`
}

type UpdateInstanceStatus struct {
	Status string `json:"status"`
}

func (i *RegisterInstance) ToInstance() *model.FederationInstance {
	return &model.FederationInstance{
		Name:         i.Name,
		BaseURL:      i.BaseURL,
		Capabilities: i.Capabilities,
		ContactEmail: i.ContactEmail,
		MetaData:     i.MetaData,
	}
}
