/*
Copyright 2025 Fedsub Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package model

import (
	"errors"

	"github.com/fedsubhq/fedsub/model"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func (s *CreateSubmission) ValidateCreateSubmission() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.LaunchName, validation.Required),
		validation.Field(&s.LaunchURL, validation.Required),
		validation.Field(&s.Directories, validation.Required),
	)
}

func (p *CostPreview) ValidateCostPreview() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Directories, validation.Required),
	)
}

func (p *PaySubmission) ValidatePaySubmission() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PaymentRef, validation.Required),
	)
}

func (d *CreateDirectory) ValidateCreateDirectory() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.SubmitURL, validation.Required),
		validation.Field(&d.FeeSchedule, validation.By(func(value interface{}) error {
			// Convert the interface{} to FeeSchedule type
			schedule, ok := value.(model.FeeSchedule)
			if !ok {
				return errors.New("invalid fee schedule type")
			}
			if schedule.Model == "" {
				return errors.New("fee schedule model is required")
			}
			return nil
		})),
	)
}

func (u *UpdateDirectoryStatus) ValidateUpdateDirectoryStatus() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Status, validation.Required),
	)
}

func (i *RegisterInstance) ValidateRegisterInstance() error {
	return validation.ValidateStruct(i,
		validation.Field(&i.Name, validation.Required),
		validation.Field(&i.BaseURL, validation.Required),
	)
}

func (u *UpdateInstanceStatus) ValidateUpdateInstanceStatus() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Status, validation.Required),
	)
}
