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
	"database/sql"
	"fmt"
	"time"

	"github.com/wacul/ptr"
	"go.opentelemetry.io/otel"

	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/model"
)

// CreateTargets persists the target set of a submission. The unique index on
// (submission_id, directory_id) plus ON CONFLICT DO NOTHING makes the call
// idempotent: replaying it after a crash recreates nothing and the read-back
// returns the surviving rows with their real states.
func (d Datasource) CreateTargets(ctx context.Context, submissionID string, targets []*model.SubmissionTarget) ([]*model.SubmissionTarget, error) {
	ctx, span := otel.Tracer("target.database").Start(ctx, "Creating submission targets")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	for _, target := range targets {
		if target.TargetID == "" {
			target.TargetID = model.GenerateUUIDWithSuffix("tgt")
		}
		if target.State == "" {
			target.State = model.StatusPending
		}
		if target.CreatedAt.IsZero() {
			target.CreatedAt = time.Now()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO fedsub.submission_targets (target_id, submission_id, directory_id, state, attempt_count, fee, fee_currency, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (submission_id, directory_id) DO NOTHING
		`, target.TargetID, submissionID, target.DirectoryID, target.State, target.AttemptCount, target.Fee, target.FeeCurrency, target.CreatedAt)
		if err != nil {
			_ = tx.Rollback()
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create submission target", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit submission targets", err)
	}

	return d.GetTargetsBySubmission(ctx, submissionID)
}

func (d Datasource) GetTarget(ctx context.Context, id string) (*model.SubmissionTarget, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT target_id, submission_id, directory_id, state, attempt_count, last_attempt_at, COALESCE(remote_ack_id, ''), COALESCE(error_class, ''), COALESCE(error_detail, ''), fee, COALESCE(fee_currency, ''), created_at
		FROM fedsub.submission_targets
		WHERE target_id = $1
	`, id)

	target, err := scanTarget(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Target with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve target", err)
	}
	return target, nil
}

func (d Datasource) GetTargetsBySubmission(ctx context.Context, submissionID string) ([]*model.SubmissionTarget, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT target_id, submission_id, directory_id, state, attempt_count, last_attempt_at, COALESCE(remote_ack_id, ''), COALESCE(error_class, ''), COALESCE(error_detail, ''), fee, COALESCE(fee_currency, ''), created_at
		FROM fedsub.submission_targets
		WHERE submission_id = $1
		ORDER BY created_at ASC, target_id ASC
	`, submissionID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve targets", err)
	}
	defer rows.Close()

	targets := []*model.SubmissionTarget{}
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan target", err)
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating targets", err)
	}

	return targets, nil
}

func (d Datasource) GetFailedTargets(ctx context.Context, submissionID string) ([]*model.SubmissionTarget, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT target_id, submission_id, directory_id, state, attempt_count, last_attempt_at, COALESCE(remote_ack_id, ''), COALESCE(error_class, ''), COALESCE(error_detail, ''), fee, COALESCE(fee_currency, ''), created_at
		FROM fedsub.submission_targets
		WHERE submission_id = $1 AND state = 'failed'
		ORDER BY created_at ASC, target_id ASC
	`, submissionID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve failed targets", err)
	}
	defer rows.Close()

	targets := []*model.SubmissionTarget{}
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan failed target", err)
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating failed targets", err)
	}

	return targets, nil
}

// ClaimTarget is the compare-and-set at the core of dispatch. The state
// predicate means exactly one worker wins a pending target; everyone else
// sees zero rows and walks away. The attempt counter and timestamp ride on
// the same statement so a claim is never unaccounted for.
func (d Datasource) ClaimTarget(ctx context.Context, id string) (bool, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE fedsub.submission_targets
		SET state = 'in_flight', attempt_count = attempt_count + 1, last_attempt_at = NOW()
		WHERE target_id = $1 AND state = 'pending'
	`, id)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim target", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	return rowsAffected > 0, nil
}

// MarkTargetSubmitted finalizes a claimed target. Submitted is terminal, so
// the guard on in_flight rejects double marks and marks against targets no
// worker owns.
func (d Datasource) MarkTargetSubmitted(ctx context.Context, id, remoteAckID string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE fedsub.submission_targets
		SET state = 'submitted', remote_ack_id = $2, error_class = NULL, error_detail = NULL
		WHERE target_id = $1 AND state = 'in_flight'
	`, id, remoteAckID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark target submitted", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return d.targetStateConflict(ctx, id, model.StatusSubmitted)
	}
	return nil
}

// MarkTargetFailed finalizes a claimed target as failed, recording the error
// class the orchestrator derived and enough detail to debug the leg later.
func (d Datasource) MarkTargetFailed(ctx context.Context, id, errorClass, errorDetail string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE fedsub.submission_targets
		SET state = 'failed', error_class = $2, error_detail = $3
		WHERE target_id = $1 AND state = 'in_flight'
	`, id, errorClass, errorDetail)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark target failed", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return d.targetStateConflict(ctx, id, model.StatusFailed)
	}
	return nil
}

// ResetFailedTargets returns every failed leg of a submission to the pending
// pool. Submitted legs are untouched, which is what makes retries safe from
// duplicate deliveries. Attempt counts survive the reset.
func (d Datasource) ResetFailedTargets(ctx context.Context, submissionID string) ([]*model.SubmissionTarget, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		UPDATE fedsub.submission_targets
		SET state = 'pending', error_class = NULL, error_detail = NULL
		WHERE submission_id = $1 AND state = 'failed'
		RETURNING target_id, submission_id, directory_id, state, attempt_count, last_attempt_at, COALESCE(remote_ack_id, ''), COALESCE(error_class, ''), COALESCE(error_detail, ''), fee, COALESCE(fee_currency, ''), created_at
	`, submissionID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to reset failed targets", err)
	}
	defer rows.Close()

	targets := []*model.SubmissionTarget{}
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan reset target", err)
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating reset targets", err)
	}

	return targets, nil
}

// GetStuckTargets reports in_flight targets whose last attempt is older than
// the threshold. Diagnostic only: stuck legs are surfaced, never reclaimed
// automatically, so an operator decides whether the remote delivery happened
// before anything is retried.
func (d Datasource) GetStuckTargets(ctx context.Context, olderThan time.Duration, limit int) ([]*model.SubmissionTarget, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT target_id, submission_id, directory_id, state, attempt_count, last_attempt_at, COALESCE(remote_ack_id, ''), COALESCE(error_class, ''), COALESCE(error_detail, ''), fee, COALESCE(fee_currency, ''), created_at
		FROM fedsub.submission_targets
		WHERE state = 'in_flight' AND last_attempt_at < NOW() - $1::interval
		ORDER BY last_attempt_at ASC
		LIMIT $2
	`, fmt.Sprintf("%d seconds", int(olderThan.Seconds())), limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve stuck targets", err)
	}
	defer rows.Close()

	targets := []*model.SubmissionTarget{}
	for rows.Next() {
		target, err := scanTarget(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan stuck target", err)
		}
		targets = append(targets, target)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating stuck targets", err)
	}

	return targets, nil
}

// targetStateConflict turns a zero-row guarded update into a useful error:
// either the target does not exist, or it was in the wrong state for the
// requested mark.
func (d Datasource) targetStateConflict(ctx context.Context, id, attempted string) error {
	target, getErr := d.GetTarget(ctx, id)
	if getErr != nil {
		return getErr
	}
	return apierror.NewAPIError(apierror.ErrInvalidState, fmt.Sprintf("Cannot mark target '%s' as '%s': target is '%s', not 'in_flight'", id, attempted, target.State), nil)
}

func scanTarget(row rowScanner) (*model.SubmissionTarget, error) {
	target := &model.SubmissionTarget{}
	var lastAttemptAt sql.NullTime
	err := row.Scan(
		&target.TargetID,
		&target.SubmissionID,
		&target.DirectoryID,
		&target.State,
		&target.AttemptCount,
		&lastAttemptAt,
		&target.RemoteAckID,
		&target.ErrorClass,
		&target.ErrorDetail,
		&target.Fee,
		&target.FeeCurrency,
		&target.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastAttemptAt.Valid {
		target.LastAttemptAt = ptr.Time(lastAttemptAt.Time)
	}
	return target, nil
}
