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
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/fedsubhq/fedsub/database/mocks"
	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/model"
)

func TestCreateDirectoryValidatesFeeSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule model.FeeSchedule
		wantMsg  string
	}{
		{
			name:     "Negative flat fee",
			schedule: model.FeeSchedule{Model: model.PricingFlat, Amount: decimal.NewFromInt(-5), Currency: "USD"},
			wantMsg:  "Flat fee cannot be negative",
		},
		{
			name:     "Flat fee without currency",
			schedule: model.FeeSchedule{Model: model.PricingFlat, Amount: decimal.NewFromInt(5)},
			wantMsg:  "Flat fee requires a currency",
		},
		{
			name:     "Tiered without tiers",
			schedule: model.FeeSchedule{Model: model.PricingTiered, Currency: "USD"},
			wantMsg:  "Tiered pricing requires at least one tier",
		},
		{
			name: "Tiered without currency",
			schedule: model.FeeSchedule{Model: model.PricingTiered, Tiers: []model.Tier{
				{Name: "basic", Amount: decimal.NewFromInt(10)},
			}},
			wantMsg: "Tiered pricing requires a currency",
		},
		{
			name: "Unnamed tier",
			schedule: model.FeeSchedule{Model: model.PricingTiered, Currency: "USD", Tiers: []model.Tier{
				{Name: "", Amount: decimal.NewFromInt(10)},
			}},
			wantMsg: "Tier names cannot be empty",
		},
		{
			name: "Duplicate tier names",
			schedule: model.FeeSchedule{Model: model.PricingTiered, Currency: "USD", Tiers: []model.Tier{
				{Name: "basic", Amount: decimal.NewFromInt(10)},
				{Name: "basic", Amount: decimal.NewFromInt(20)},
			}},
			wantMsg: "Duplicate tier name 'basic'",
		},
		{
			name: "Negative tier amount",
			schedule: model.FeeSchedule{Model: model.PricingTiered, Currency: "USD", Tiers: []model.Tier{
				{Name: "basic", Amount: decimal.NewFromInt(-10)},
			}},
			wantMsg: "Tier 'basic' cannot have a negative amount",
		},
		{
			name:     "Unknown pricing model",
			schedule: model.FeeSchedule{Model: "subscription"},
			wantMsg:  "Unknown pricing model 'subscription'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDS := new(mocks.MockDataSource)
			fedsub := newCostFedsub(mockDS, nil)

			_, err := fedsub.CreateDirectory(context.Background(), &model.Directory{
				Name:        "Launchlist",
				SubmitURL:   "https://launchlist.example.com/submissions",
				FeeSchedule: tt.schedule,
			})

			assert.Error(t, err)
			apiErr, ok := err.(apierror.APIError)
			assert.True(t, ok)
			assert.Equal(t, apierror.ErrInvalidInput, apiErr.Code)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			mockDS.AssertNotCalled(t, "CreateDirectory", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateDirectoryValidatesSubmitURL(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	fedsub := newCostFedsub(mockDS, nil)
	ctx := context.Background()

	for _, submitURL := range []string{"", "/submissions", "ftp://launchlist.example.com"} {
		_, err := fedsub.CreateDirectory(ctx, &model.Directory{
			Name:        "Launchlist",
			SubmitURL:   submitURL,
			FeeSchedule: model.FeeSchedule{Model: model.PricingFree},
		})
		assert.Error(t, err, "submit_url %q should be rejected", submitURL)
	}
	mockDS.AssertNotCalled(t, "CreateDirectory", mock.Anything, mock.Anything)
}

func TestCreateDirectoryChecksHostingInstance(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	fedsub := newCostFedsub(mockDS, nil)

	mockDS.On("GetInstance", mock.Anything, "fed_missing").Return(nil,
		apierror.NewAPIError(apierror.ErrNotFound, "Instance fed_missing not found", nil))

	_, err := fedsub.CreateDirectory(context.Background(), &model.Directory{
		Name:        "Launchlist",
		SubmitURL:   "https://launchlist.example.com/submissions",
		InstanceID:  "fed_missing",
		FeeSchedule: model.FeeSchedule{Model: model.PricingFree},
	})

	assert.Error(t, err)
	mockDS.AssertNotCalled(t, "CreateDirectory", mock.Anything, mock.Anything)
}

func TestCreateDirectoryPersists(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	fedsub := newCostFedsub(mockDS, nil)

	directory := &model.Directory{
		Name:        "Launchlist",
		Category:    "devtools",
		SubmitURL:   "https://launchlist.example.com/submissions",
		FeeSchedule: model.FeeSchedule{Model: model.PricingFlat, Amount: decimal.NewFromInt(25), Currency: "USD"},
	}
	created := &model.Directory{DirectoryID: "dir_new", Name: "Launchlist"}
	mockDS.On("CreateDirectory", mock.Anything, directory).Return(created, nil)

	result, err := fedsub.CreateDirectory(context.Background(), directory)

	assert.NoError(t, err)
	assert.Equal(t, "dir_new", result.DirectoryID)
	mockDS.AssertExpectations(t)
}

func TestDiscoverDirectoriesRejectsUnknownPricing(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	fedsub := &Fedsub{datasource: mockDS}

	_, err := fedsub.DiscoverDirectories(context.Background(), "devtools", "subscription", 10, 0)

	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidInput, apiErr.Code)
	mockDS.AssertNotCalled(t, "DiscoverDirectories", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDiscoverDirectoriesPassesFilters(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	fedsub := &Fedsub{datasource: mockDS}

	mockDS.On("DiscoverDirectories", mock.Anything, "devtools", model.PricingFlat, 10, 20).
		Return([]*model.Directory{activeDirectory("dir_1")}, nil)

	directories, err := fedsub.DiscoverDirectories(context.Background(), "devtools", model.PricingFlat, 10, 20)

	assert.NoError(t, err)
	assert.Len(t, directories, 1)
	mockDS.AssertExpectations(t)
}

func TestUpdateDirectoryStatus(t *testing.T) {
	t.Run("Rejects unknown status", func(t *testing.T) {
		mockDS := new(mocks.MockDataSource)
		fedsub := newCostFedsub(mockDS, nil)

		err := fedsub.UpdateDirectoryStatus(context.Background(), "dir_1", "paused")

		assert.Error(t, err)
		mockDS.AssertNotCalled(t, "UpdateDirectoryStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Moves directory to maintenance", func(t *testing.T) {
		mockDS := new(mocks.MockDataSource)
		fedsub := newCostFedsub(mockDS, nil)

		mockDS.On("UpdateDirectoryStatus", mock.Anything, "dir_1", model.DirectoryStatusMaintenance).Return(nil)
		mockDS.On("GetDirectory", mock.Anything, "dir_1").Return(activeDirectory("dir_1"), nil)

		err := fedsub.UpdateDirectoryStatus(context.Background(), "dir_1", model.DirectoryStatusMaintenance)

		assert.NoError(t, err)
		mockDS.AssertExpectations(t)
	})
}

func TestRegisterInstanceValidation(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	fedsub := newTestFedsub(t, mockDS)
	ctx := context.Background()

	t.Run("Missing name", func(t *testing.T) {
		_, err := fedsub.RegisterInstance(ctx, &model.FederationInstance{BaseURL: "https://peer.example.com"})
		assert.Error(t, err)
	})

	t.Run("Relative base URL", func(t *testing.T) {
		_, err := fedsub.RegisterInstance(ctx, &model.FederationInstance{Name: "peer", BaseURL: "peer.example.com/path"})
		assert.Error(t, err)
	})

	mockDS.AssertNotCalled(t, "RegisterInstance", mock.Anything, mock.Anything)
}

func TestRegisterInstanceRejectsDuplicateBaseURL(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	fedsub := newTestFedsub(t, mockDS)

	mockDS.On("GetInstanceByBaseURL", mock.Anything, "https://peer.example.com").Return(&model.FederationInstance{
		InstanceID: "fed_existing",
		Name:       "peer",
		BaseURL:    "https://peer.example.com",
	}, nil)

	_, err := fedsub.RegisterInstance(context.Background(), &model.FederationInstance{
		Name:    "peer",
		BaseURL: "https://peer.example.com",
	})

	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
	assert.Equal(t, 409, apierror.MapErrorToHTTPStatus(apiErr))
	mockDS.AssertNotCalled(t, "RegisterInstance", mock.Anything, mock.Anything)
}

func TestRegisterInstanceAdmitsNewPeer(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	fedsub := newTestFedsub(t, mockDS)

	mockDS.On("GetInstanceByBaseURL", mock.Anything, "https://peer.example.com").Return(nil,
		apierror.NewAPIError(apierror.ErrNotFound, "Instance not found", nil))
	registered := &model.FederationInstance{
		InstanceID: "fed_new",
		Name:       "peer",
		BaseURL:    "https://peer.example.com",
		Status:     model.InstanceStatusActive,
		TrustScore: model.DefaultTrustScore,
	}
	mockDS.On("RegisterInstance", mock.Anything, mock.Anything).Return(registered, nil)

	result, err := fedsub.RegisterInstance(context.Background(), &model.FederationInstance{
		Name:    "peer",
		BaseURL: "https://peer.example.com",
	})

	assert.NoError(t, err)
	assert.Equal(t, "fed_new", result.InstanceID)
	assert.Equal(t, model.DefaultTrustScore, result.TrustScore)
	mockDS.AssertExpectations(t)
}

func TestRegisterInstanceSurfacesLookupErrors(t *testing.T) {
	mockDS := new(mocks.MockDataSource)
	fedsub := newTestFedsub(t, mockDS)

	mockDS.On("GetInstanceByBaseURL", mock.Anything, "https://peer.example.com").Return(nil, assert.AnError)

	_, err := fedsub.RegisterInstance(context.Background(), &model.FederationInstance{
		Name:    "peer",
		BaseURL: "https://peer.example.com",
	})

	assert.Error(t, err)
	mockDS.AssertNotCalled(t, "RegisterInstance", mock.Anything, mock.Anything)
}

func TestUpdateInstanceStatus(t *testing.T) {
	t.Run("Rejects unknown status", func(t *testing.T) {
		mockDS := new(mocks.MockDataSource)
		fedsub := newCostFedsub(mockDS, nil)

		err := fedsub.UpdateInstanceStatus(context.Background(), "fed_1", "sleeping")

		assert.Error(t, err)
		mockDS.AssertNotCalled(t, "UpdateInstanceStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Marks instance in maintenance", func(t *testing.T) {
		mockDS := new(mocks.MockDataSource)
		fedsub := newCostFedsub(mockDS, nil)

		mockDS.On("UpdateInstanceStatus", mock.Anything, "fed_1", model.InstanceStatusMaintenance).Return(nil)
		mockDS.On("GetInstance", mock.Anything, "fed_1").Return(&model.FederationInstance{
			InstanceID: "fed_1",
			Name:       "peer",
			Status:     model.InstanceStatusMaintenance,
		}, nil)

		err := fedsub.UpdateInstanceStatus(context.Background(), "fed_1", model.InstanceStatusMaintenance)

		assert.NoError(t, err)
		mockDS.AssertExpectations(t)
	})
}
