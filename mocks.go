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

package fedsub

import (
	"context"

	"github.com/fedsubhq/fedsub/model"
)

type MockFedsub struct {
	Fedsub
	mockGetSubmission func(string) (*model.FederatedSubmission, error)
}

func (m *MockFedsub) GetSubmission(id string) (*model.FederatedSubmission, error) {
	if m.mockGetSubmission != nil {
		return m.mockGetSubmission(id)
	}
	return m.Fedsub.GetFederatedSubmission(context.Background(), id, "")
}
