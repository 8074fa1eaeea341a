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
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/internal/filter"
	"github.com/fedsubhq/fedsub/internal/notification"
	"github.com/fedsubhq/fedsub/internal/search"
	"github.com/fedsubhq/fedsub/model"
)

func (l *Fedsub) postSubmissionActions(_ context.Context, submission *model.FederatedSubmission) {
	go func() {
		err := l.queue.queueIndexData(submission.SubmissionID, search.CollectionSubmissions, submission)
		if err != nil {
			notification.NotifyError(err)
		}
		err = SendWebhook(NewWebhook{
			Event:   "submission.created",
			Payload: submission,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

// CreateFederatedSubmission validates, prices and records a new submission,
// then creates its per-directory targets. The directory set and the total are
// frozen here; dispatch and retries never re-price. A zero total waives the
// payment gate immediately, anything else starts as payment pending.
func (l *Fedsub) CreateFederatedSubmission(ctx context.Context, submission *model.FederatedSubmission, tier string) (*model.FederatedSubmission, error) {
	ctx, span := tracer.Start(ctx, "Creating federated submission")
	defer span.End()

	if submission.OwnerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Owner is required to create a submission", nil)
	}
	if submission.LaunchName == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Launch name is required", nil)
	}
	if err := validateAbsoluteURL(submission.LaunchURL, "launch_url"); err != nil {
		return nil, err
	}
	submission.DirectoryIDs = dedupeDirectoryIDs(submission.DirectoryIDs)
	if len(submission.DirectoryIDs) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "At least one directory is required to create a submission", nil)
	}

	breakdown, err := l.CalculateSubmissionCost(ctx, submission.DirectoryIDs, tier)
	if err != nil {
		return nil, logAndRecordError(span, "pricing submission error", err)
	}
	// A cost preview tolerates unpriceable directories by excluding them.
	// Creating a submission does not: every requested directory must accept
	// and price the launch, or the whole create is rejected.
	excluded := make([]model.CostLine, 0)
	for _, line := range breakdown.Lines {
		if line.Excluded {
			excluded = append(excluded, line)
		}
	}
	if len(excluded) > 0 {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "One or more directories cannot accept this submission", excluded)
	}

	if err := l.validateContentRequirements(ctx, submission); err != nil {
		return nil, err
	}

	submission.TotalCost = breakdown.Total
	submission.Currency = breakdown.Currency
	submission.CryptoSupported = breakdown.CryptoSupported
	if breakdown.Total.IsZero() {
		submission.PaymentStatus = model.PaymentWaived
	} else {
		submission.PaymentStatus = model.PaymentPending
	}

	persisted, err := l.datasource.RecordSubmission(ctx, submission)
	if err != nil {
		return nil, logAndRecordError(span, "saving submission to db error", err)
	}

	targets := make([]*model.SubmissionTarget, 0, len(persisted.DirectoryIDs))
	for _, directoryID := range persisted.DirectoryIDs {
		fee, feeCurrency := breakdown.FeeFor(directoryID)
		targets = append(targets, &model.SubmissionTarget{
			SubmissionID: persisted.SubmissionID,
			DirectoryID:  directoryID,
			State:        model.StatusPending,
			Fee:          fee,
			FeeCurrency:  feeCurrency,
		})
	}
	if _, err := l.datasource.CreateTargets(ctx, persisted.SubmissionID, targets); err != nil {
		return nil, logAndRecordError(span, "creating submission targets error", err)
	}

	logrus.Infof("Created submission %s for owner %s across %d directories, total %s %s",
		persisted.SubmissionID, persisted.OwnerID, len(persisted.DirectoryIDs), persisted.TotalCost, persisted.Currency)
	l.postSubmissionActions(ctx, persisted)
	return persisted, nil
}

// validateContentRequirements checks the launch against the acceptance rules
// of every requested directory. All violations are collected so the publisher
// fixes the launch once, not directory by directory.
func (l *Fedsub) validateContentRequirements(ctx context.Context, submission *model.FederatedSubmission) error {
	directories, err := l.datasource.GetDirectories(ctx, submission.DirectoryIDs)
	if err != nil {
		return err
	}

	violations := make([]string, 0)
	for _, directory := range directories {
		if directory.Requirements.RequiresURL && submission.LaunchURL == "" {
			violations = append(violations, fmt.Sprintf("directory '%s' requires a launch URL", directory.DirectoryID))
		}
		if minLen := directory.Requirements.MinDescriptionLength; minLen > 0 && len(submission.Description) < minLen {
			violations = append(violations, fmt.Sprintf("directory '%s' requires a description of at least %d characters", directory.DirectoryID, minLen))
		}
	}
	if len(violations) > 0 {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "Launch does not meet directory content requirements", violations)
	}
	return nil
}

// GetFederatedSubmission retrieves the frozen submission record, enforcing
// ownership when a caller is supplied.
func (l *Fedsub) GetFederatedSubmission(ctx context.Context, submissionID, callerID string) (*model.FederatedSubmission, error) {
	return l.fetchOwnedSubmission(ctx, submissionID, callerID)
}

// GetFederatedSubmissionStatus returns the submission, its targets and the
// overall status derived from the target states. Partial is a resting state
// the publisher is expected to see, not an error.
func (l *Fedsub) GetFederatedSubmissionStatus(ctx context.Context, submissionID, callerID string) (*model.SubmissionStatus, error) {
	submission, err := l.fetchOwnedSubmission(ctx, submissionID, callerID)
	if err != nil {
		return nil, err
	}

	targets, err := l.datasource.GetTargetsBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	targetValues := make([]model.SubmissionTarget, len(targets))
	for i, target := range targets {
		targetValues[i] = *target
	}
	return &model.SubmissionStatus{
		Submission:    submission,
		OverallStatus: model.DeriveOverallStatus(targetValues),
		Targets:       targetValues,
	}, nil
}

// ListSubmissions pages through one owner's submissions, newest first.
func (l *Fedsub) ListSubmissions(ctx context.Context, ownerID string, limit, offset int) ([]*model.FederatedSubmission, error) {
	if ownerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Owner is required to list submissions", nil)
	}
	return l.datasource.GetSubmissionsByOwner(ctx, ownerID, limit, offset)
}

// ListSubmissionsWithFilters pages through submissions matching a parsed
// filter set. Owner scoping is optional here: administrative callers pass an
// empty owner to search across publishers.
func (l *Fedsub) ListSubmissionsWithFilters(ctx context.Context, ownerID string, filters *filter.QueryFilterSet, opts *filter.QueryOptions, limit, offset int) ([]*model.FederatedSubmission, *int64, error) {
	return l.datasource.GetSubmissionsWithFilters(ctx, ownerID, filters, opts, limit, offset)
}

// fetchOwnedSubmission loads a submission and rejects callers that do not own
// it. An empty caller skips the check; that path is reserved for internal and
// administrative invocations, the API always supplies the authenticated owner.
func (l *Fedsub) fetchOwnedSubmission(ctx context.Context, submissionID, callerID string) (*model.FederatedSubmission, error) {
	submission, err := l.datasource.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if callerID != "" && submission.OwnerID != callerID {
		return nil, apierror.NewAPIError(apierror.ErrForbidden, "Submission belongs to another owner", nil)
	}
	return submission, nil
}

func dedupeDirectoryIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	deduped := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return deduped
}
