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

package database

import (
	"context"
	"time"

	"github.com/fedsubhq/fedsub/internal/filter"
	"github.com/fedsubhq/fedsub/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	directory  // Interface for directory-related operations
	instance   // Interface for federation-instance operations
	submission // Interface for federated-submission operations
	target     // Interface for submission-target operations
	metadata   // Interface for metadata updates across entities
	apiKey     // Interface for API-key operations
}

// directory defines methods for handling listing directories.
type directory interface {
	CreateDirectory(ctx context.Context, directory *model.Directory) (*model.Directory, error)                               // Registers a new directory
	GetDirectory(ctx context.Context, id string) (*model.Directory, error)                                                   // Retrieves a directory by ID
	GetDirectories(ctx context.Context, ids []string) ([]*model.Directory, error)                                            // Retrieves a set of directories by ID, preserving request order
	DiscoverDirectories(ctx context.Context, category, pricing string, limit, offset int) ([]*model.Directory, error)        // Lists active directories filtered by category and pricing model
	GetAllDirectories(ctx context.Context, limit, offset int) ([]*model.Directory, error)                                    // Pages through every directory regardless of status
	UpdateDirectoryStatus(ctx context.Context, id, status string) error                                                      // Updates a directory's lifecycle status
	IncrementSubmissionCount(ctx context.Context, id string) error                                                           // Bumps the popularity counter after a confirmed submission
}

// instance defines methods for handling federation instances.
type instance interface {
	RegisterInstance(ctx context.Context, instance *model.FederationInstance) (*model.FederationInstance, error)        // Registers a new federation instance
	GetInstance(ctx context.Context, id string) (*model.FederationInstance, error)                                      // Retrieves an instance by ID
	GetInstanceByBaseURL(ctx context.Context, baseURL string) (*model.FederationInstance, error)                        // Retrieves an instance by its unique base URL
	DiscoverInstances(ctx context.Context, status, search string, limit, offset int) ([]*model.FederationInstance, error) // Lists instances ordered by trust, then recency
	GetAllInstances(ctx context.Context, limit, offset int) ([]*model.FederationInstance, error)                        // Pages through every instance regardless of status
	UpdateInstanceStatus(ctx context.Context, id, status string) error                                                  // Updates an instance's health status
	TouchInstance(ctx context.Context, id string) error                                                                 // Refreshes an instance's last-seen timestamp
}

// submission defines methods for handling federated submissions.
type submission interface {
	RecordSubmission(ctx context.Context, submission *model.FederatedSubmission) (*model.FederatedSubmission, error)       // Persists a new federated submission
	GetSubmission(ctx context.Context, id string) (*model.FederatedSubmission, error)                                      // Retrieves a submission by ID
	GetSubmissionsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.FederatedSubmission, error)    // Lists a publisher's submissions, newest first
	GetAllSubmissions(ctx context.Context, limit, offset int) ([]*model.FederatedSubmission, error)                        // Pages through every submission, oldest first
	GetSubmissionsWithFilters(ctx context.Context, ownerID string, filters *filter.QueryFilterSet, opts *filter.QueryOptions, limit, offset int) ([]*model.FederatedSubmission, *int64, error) // Lists submissions matching a parsed filter set
	MarkSubmissionPaid(ctx context.Context, id, paymentRef string) error                                                   // Moves a pending payment to completed, guarded against replays
}

// metadata defines methods for updating entity metadata.
type metadata interface {
	UpdateSubmissionMetadata(ctx context.Context, id string, metadata map[string]interface{}) error // Replaces a submission's metadata
	UpdateDirectoryMetadata(ctx context.Context, id string, metadata map[string]interface{}) error  // Replaces a directory's metadata
	UpdateInstanceMetadata(ctx context.Context, id string, metadata map[string]interface{}) error   // Replaces an instance's metadata
}

// apiKey defines methods for handling API keys.
type apiKey interface {
	CreateAPIKey(ctx context.Context, name, ownerID string, scopes []string, expiresAt time.Time) (*model.APIKey, error) // Mints a new API key for an owner
	GetAPIKey(ctx context.Context, key string) (*model.APIKey, error)                                                   // Looks an API key up by its secret value
	ListAPIKeys(ctx context.Context, ownerID string) ([]*model.APIKey, error)                                           // Lists an owner's API keys
	RevokeAPIKey(ctx context.Context, id, ownerID string) error                                                         // Revokes one of an owner's API keys
	UpdateLastUsed(ctx context.Context, id string) error                                                                // Records when a key last authenticated a request
}

// target defines methods for handling submission targets.
type target interface {
	CreateTargets(ctx context.Context, submissionID string, targets []*model.SubmissionTarget) ([]*model.SubmissionTarget, error) // Creates the target set for a submission; replays are no-ops
	GetTarget(ctx context.Context, id string) (*model.SubmissionTarget, error)                                                   // Retrieves a target by ID
	GetTargetsBySubmission(ctx context.Context, submissionID string) ([]*model.SubmissionTarget, error)                          // Retrieves every target of a submission
	GetFailedTargets(ctx context.Context, submissionID string) ([]*model.SubmissionTarget, error)                                // Retrieves only the failed targets of a submission
	ClaimTarget(ctx context.Context, id string) (bool, error)                                                                    // Atomically claims a pending target for delivery
	MarkTargetSubmitted(ctx context.Context, id, remoteAckID string) error                                                       // Finalizes a claimed target as submitted
	MarkTargetFailed(ctx context.Context, id, errorClass, errorDetail string) error                                              // Finalizes a claimed target as failed
	ResetFailedTargets(ctx context.Context, submissionID string) ([]*model.SubmissionTarget, error)                              // Returns failed targets to the pending pool for retry
	GetStuckTargets(ctx context.Context, olderThan time.Duration, limit int) ([]*model.SubmissionTarget, error)                  // Surfaces in_flight targets that stopped moving
}
