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
	"time"

	"github.com/shopspring/decimal"
)

// Submission target states. A target moves pending -> in_flight when a
// dispatch worker claims it, then in_flight -> submitted or failed depending
// on the remote outcome. Only failed targets may return to pending, and only
// through an explicit retry. Submitted is terminal.
const (
	StatusPending   = "pending"
	StatusInFlight  = "in_flight"
	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
)

// Payment states of a federated submission. Zero-cost submissions are waived
// at creation and never pass through pending.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentWaived    = "waived"
)

// Error classes recorded on failed targets. Transient failures are eligible
// for automatic in-dispatch retries; permanent and validation failures are
// surfaced to the publisher and only retried on request.
const (
	ErrorClassTransient  = "transient"
	ErrorClassPermanent  = "permanent"
	ErrorClassValidation = "validation"
)

// Overall submission statuses derived from the target set.
const (
	OverallAllSubmitted = "all_submitted"
	OverallPartial      = "partial"
	OverallFailed       = "failed"
	OverallInProgress   = "in_progress"
)

// FederatedSubmission is one launch fanned out to many directories in a
// single logical operation. The directory set and the priced total are frozen
// at creation time; retries never re-price or re-charge.
type FederatedSubmission struct {
	SubmissionID    string                 `json:"submission_id"`
	OwnerID         string                 `json:"owner_id"`
	LaunchName      string                 `json:"launch_name"`
	LaunchURL       string                 `json:"launch_url"`
	Description     string                 `json:"description"`
	Category        string                 `json:"category"`
	DirectoryIDs    []string               `json:"directory_ids"`
	TotalCost       decimal.Decimal        `json:"total_cost"`
	Currency        string                 `json:"currency"`
	CryptoSupported bool                   `json:"crypto_supported"`
	PaymentStatus   string                 `json:"payment_status"`
	PaymentRef      string                 `json:"payment_ref,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	MetaData        map[string]interface{} `json:"meta_data,omitempty"`
}

// Paid reports whether the payment gate is open for dispatch.
func (s *FederatedSubmission) Paid() bool {
	return s.PaymentStatus == PaymentCompleted || s.PaymentStatus == PaymentWaived
}

// SubmissionTarget is one leg of a federated submission: the delivery of a
// launch to a single directory. Targets are unique per (submission,
// directory) so replays of target creation are no-ops.
type SubmissionTarget struct {
	TargetID      string          `json:"target_id"`
	SubmissionID  string          `json:"submission_id"`
	DirectoryID   string          `json:"directory_id"`
	State         string          `json:"state"`
	AttemptCount  int             `json:"attempt_count"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	RemoteAckID   string          `json:"remote_ack_id,omitempty"`
	ErrorClass    string          `json:"error_class,omitempty"`
	ErrorDetail   string          `json:"error_detail,omitempty"`
	Fee           decimal.Decimal `json:"fee"`
	FeeCurrency   string          `json:"fee_currency,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CanTransition reports whether a target may move between the two states.
// The walk is strict: claims only take pending targets, marks only take
// in_flight targets, and failed targets re-enter the pool only via retry.
func CanTransition(from, to string) bool {
	switch from {
	case StatusPending:
		return to == StatusInFlight
	case StatusInFlight:
		return to == StatusSubmitted || to == StatusFailed
	case StatusFailed:
		return to == StatusPending
	default:
		return false
	}
}

// Terminal reports whether a target state admits no further transitions
// without publisher intervention.
func Terminal(state string) bool {
	return state == StatusSubmitted
}

// DeriveOverallStatus folds the target set into the submission-level status.
// Any unfinished target keeps the submission in progress; otherwise the split
// between submitted and failed legs decides the outcome. Partial success is
// an expected resting state, not an error.
func DeriveOverallStatus(targets []SubmissionTarget) string {
	if len(targets) == 0 {
		return OverallInProgress
	}
	var submitted, failed int
	for _, target := range targets {
		switch target.State {
		case StatusPending, StatusInFlight:
			return OverallInProgress
		case StatusSubmitted:
			submitted++
		case StatusFailed:
			failed++
		}
	}
	switch {
	case failed == 0:
		return OverallAllSubmitted
	case submitted == 0:
		return OverallFailed
	default:
		return OverallPartial
	}
}

// SubmissionStatus is the publisher-facing view of a submission: the frozen
// record, every target with its current state, and the overall status derived
// from the target set.
type SubmissionStatus struct {
	Submission    *FederatedSubmission `json:"submission"`
	OverallStatus string               `json:"overall_status"`
	Targets       []SubmissionTarget   `json:"targets"`
}

// TargetResult is the per-leg outcome of one dispatch pass.
type TargetResult struct {
	TargetID    string `json:"target_id"`
	DirectoryID string `json:"directory_id"`
	State       string `json:"state"`
	RemoteAckID string `json:"remote_ack_id,omitempty"`
	ErrorClass  string `json:"error_class,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
	Skipped     bool   `json:"skipped,omitempty"`
}

// DispatchResult aggregates one dispatch pass over a submission. Success is
// true only when every target of the submission has been submitted; a partial
// outcome is reported here, not raised as an error. Skipped counts targets
// another worker claimed first.
type DispatchResult struct {
	SubmissionID  string         `json:"submission_id"`
	Success       bool           `json:"success"`
	OverallStatus string         `json:"overall_status"`
	Submitted     int            `json:"submitted"`
	Failed        int            `json:"failed"`
	Skipped       int            `json:"skipped"`
	Targets       []TargetResult `json:"targets"`
	CompletedAt   time.Time      `json:"completed_at"`
}

// RetryResult reports a retry request: how many failed legs were reset and
// the dispatch pass that followed. A retry with nothing to reset is a no-op
// and carries a nil dispatch. Success mirrors the dispatch rule: every target
// of the submission is submitted.
type RetryResult struct {
	SubmissionID string          `json:"submission_id"`
	Success      bool            `json:"success"`
	ResetCount   int             `json:"reset_count"`
	Dispatch     *DispatchResult `json:"dispatch,omitempty"`
}
