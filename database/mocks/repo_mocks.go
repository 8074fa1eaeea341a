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
package mocks

import (
	"context"
	"time"

	"github.com/fedsubhq/fedsub/internal/filter"
	"github.com/fedsubhq/fedsub/model"
	"github.com/stretchr/testify/mock"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Directory methods

func (m *MockDataSource) CreateDirectory(ctx context.Context, directory *model.Directory) (*model.Directory, error) {
	args := m.Called(ctx, directory)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Directory), args.Error(1)
}

func (m *MockDataSource) GetDirectory(ctx context.Context, id string) (*model.Directory, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Directory), args.Error(1)
}

func (m *MockDataSource) GetDirectories(ctx context.Context, ids []string) ([]*model.Directory, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Directory), args.Error(1)
}

func (m *MockDataSource) DiscoverDirectories(ctx context.Context, category, pricing string, limit, offset int) ([]*model.Directory, error) {
	args := m.Called(ctx, category, pricing, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Directory), args.Error(1)
}

func (m *MockDataSource) GetAllDirectories(ctx context.Context, limit, offset int) ([]*model.Directory, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Directory), args.Error(1)
}

func (m *MockDataSource) UpdateDirectoryStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDataSource) IncrementSubmissionCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Federation instance methods

func (m *MockDataSource) RegisterInstance(ctx context.Context, instance *model.FederationInstance) (*model.FederationInstance, error) {
	args := m.Called(ctx, instance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FederationInstance), args.Error(1)
}

func (m *MockDataSource) GetInstance(ctx context.Context, id string) (*model.FederationInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FederationInstance), args.Error(1)
}

func (m *MockDataSource) GetInstanceByBaseURL(ctx context.Context, baseURL string) (*model.FederationInstance, error) {
	args := m.Called(ctx, baseURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FederationInstance), args.Error(1)
}

func (m *MockDataSource) DiscoverInstances(ctx context.Context, status, search string, limit, offset int) ([]*model.FederationInstance, error) {
	args := m.Called(ctx, status, search, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.FederationInstance), args.Error(1)
}

func (m *MockDataSource) GetAllInstances(ctx context.Context, limit, offset int) ([]*model.FederationInstance, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.FederationInstance), args.Error(1)
}

func (m *MockDataSource) UpdateInstanceStatus(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockDataSource) TouchInstance(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Submission methods

func (m *MockDataSource) RecordSubmission(ctx context.Context, submission *model.FederatedSubmission) (*model.FederatedSubmission, error) {
	args := m.Called(ctx, submission)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FederatedSubmission), args.Error(1)
}

func (m *MockDataSource) GetSubmission(ctx context.Context, id string) (*model.FederatedSubmission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FederatedSubmission), args.Error(1)
}

func (m *MockDataSource) GetSubmissionsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.FederatedSubmission, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.FederatedSubmission), args.Error(1)
}

func (m *MockDataSource) GetAllSubmissions(ctx context.Context, limit, offset int) ([]*model.FederatedSubmission, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.FederatedSubmission), args.Error(1)
}

func (m *MockDataSource) GetSubmissionsWithFilters(ctx context.Context, ownerID string, filters *filter.QueryFilterSet, opts *filter.QueryOptions, limit, offset int) ([]*model.FederatedSubmission, *int64, error) {
	args := m.Called(ctx, ownerID, filters, opts, limit, offset)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var count *int64
	if args.Get(1) != nil {
		count = args.Get(1).(*int64)
	}
	return args.Get(0).([]*model.FederatedSubmission), count, args.Error(2)
}

func (m *MockDataSource) MarkSubmissionPaid(ctx context.Context, id, paymentRef string) error {
	args := m.Called(ctx, id, paymentRef)
	return args.Error(0)
}

// Target methods

func (m *MockDataSource) CreateTargets(ctx context.Context, submissionID string, targets []*model.SubmissionTarget) ([]*model.SubmissionTarget, error) {
	args := m.Called(ctx, submissionID, targets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SubmissionTarget), args.Error(1)
}

func (m *MockDataSource) GetTarget(ctx context.Context, id string) (*model.SubmissionTarget, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SubmissionTarget), args.Error(1)
}

func (m *MockDataSource) GetTargetsBySubmission(ctx context.Context, submissionID string) ([]*model.SubmissionTarget, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SubmissionTarget), args.Error(1)
}

func (m *MockDataSource) GetFailedTargets(ctx context.Context, submissionID string) ([]*model.SubmissionTarget, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SubmissionTarget), args.Error(1)
}

func (m *MockDataSource) ClaimTarget(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) MarkTargetSubmitted(ctx context.Context, id, remoteAckID string) error {
	args := m.Called(ctx, id, remoteAckID)
	return args.Error(0)
}

func (m *MockDataSource) MarkTargetFailed(ctx context.Context, id, errorClass, errorDetail string) error {
	args := m.Called(ctx, id, errorClass, errorDetail)
	return args.Error(0)
}

func (m *MockDataSource) ResetFailedTargets(ctx context.Context, submissionID string) ([]*model.SubmissionTarget, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SubmissionTarget), args.Error(1)
}

func (m *MockDataSource) GetStuckTargets(ctx context.Context, olderThan time.Duration, limit int) ([]*model.SubmissionTarget, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SubmissionTarget), args.Error(1)
}

// Metadata methods

func (m *MockDataSource) UpdateSubmissionMetadata(ctx context.Context, id string, metadata map[string]interface{}) error {
	args := m.Called(ctx, id, metadata)
	return args.Error(0)
}

func (m *MockDataSource) UpdateDirectoryMetadata(ctx context.Context, id string, metadata map[string]interface{}) error {
	args := m.Called(ctx, id, metadata)
	return args.Error(0)
}

func (m *MockDataSource) UpdateInstanceMetadata(ctx context.Context, id string, metadata map[string]interface{}) error {
	args := m.Called(ctx, id, metadata)
	return args.Error(0)
}

// API key methods

func (m *MockDataSource) CreateAPIKey(ctx context.Context, name, ownerID string, scopes []string, expiresAt time.Time) (*model.APIKey, error) {
	args := m.Called(ctx, name, ownerID, scopes, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *MockDataSource) GetAPIKey(ctx context.Context, key string) (*model.APIKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *MockDataSource) ListAPIKeys(ctx context.Context, ownerID string) ([]*model.APIKey, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.APIKey), args.Error(1)
}

func (m *MockDataSource) RevokeAPIKey(ctx context.Context, id, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (m *MockDataSource) UpdateLastUsed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
