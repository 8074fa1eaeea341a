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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/internal/filter"
	"github.com/fedsubhq/fedsub/model"
)

// RecordSubmission persists a new federated submission. The directory set,
// the priced total and the payment state are all frozen here; later passes
// only ever touch targets and the payment reference.
func (d Datasource) RecordSubmission(ctx context.Context, submission *model.FederatedSubmission) (*model.FederatedSubmission, error) {
	ctx, span := otel.Tracer("submission.database").Start(ctx, "Saving submission to db")
	defer span.End()

	metaDataJSON, err := json.Marshal(submission.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	if submission.SubmissionID == "" {
		submission.SubmissionID = model.GenerateUUIDWithSuffix("sub")
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now()
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO fedsub.submissions (submission_id, owner_id, launch_name, launch_url, description, category, directory_ids, total_cost, currency, crypto_supported, payment_status, payment_ref, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, submission.SubmissionID, submission.OwnerID, submission.LaunchName, submission.LaunchURL, submission.Description, submission.Category, pq.Array(submission.DirectoryIDs), submission.TotalCost, submission.Currency, submission.CryptoSupported, submission.PaymentStatus, submission.PaymentRef, submission.CreatedAt, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok && pqErr.Code.Name() == "unique_violation" {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Submission with this ID already exists", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record submission", err)
	}

	return submission, nil
}

func (d Datasource) GetSubmission(ctx context.Context, id string) (*model.FederatedSubmission, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT submission_id, owner_id, launch_name, launch_url, description, category, directory_ids, total_cost, currency, crypto_supported, payment_status, COALESCE(payment_ref, ''), created_at, meta_data
		FROM fedsub.submissions
		WHERE submission_id = $1
	`, id)

	submission, err := scanSubmission(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Submission with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve submission", err)
	}
	return submission, nil
}

func (d Datasource) GetSubmissionsByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.FederatedSubmission, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT submission_id, owner_id, launch_name, launch_url, description, category, directory_ids, total_cost, currency, crypto_supported, payment_status, COALESCE(payment_ref, ''), created_at, meta_data
		FROM fedsub.submissions
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve submissions", err)
	}
	defer rows.Close()

	submissions := []*model.FederatedSubmission{}
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan submission", err)
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating submissions", err)
	}

	return submissions, nil
}

// GetAllSubmissions pages through every submission, oldest first.
func (d Datasource) GetAllSubmissions(ctx context.Context, limit, offset int) ([]*model.FederatedSubmission, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT submission_id, owner_id, launch_name, launch_url, description, category, directory_ids, total_cost, currency, crypto_supported, payment_status, COALESCE(payment_ref, ''), created_at, meta_data
		FROM fedsub.submissions
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve submissions", err)
	}
	defer rows.Close()

	submissions := []*model.FederatedSubmission{}
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan submission", err)
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating submissions", err)
	}

	return submissions, nil
}

// GetSubmissionsWithFilters retrieves submissions matching a parsed filter set,
// optionally scoped to an owner. The count pointer is non-nil only when
// opts.IncludeCount is set.
func (d Datasource) GetSubmissionsWithFilters(ctx context.Context, ownerID string, filters *filter.QueryFilterSet, opts *filter.QueryOptions, limit, offset int) ([]*model.FederatedSubmission, *int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if err := filter.ValidateSortByForTable(opts, "submissions"); err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrBadRequest, "Invalid sort_by field", nil)
	}

	startArgPos := 1
	var conditions []string
	var args []interface{}
	if ownerID != "" {
		conditions = append(conditions, "owner_id = $1")
		args = append(args, ownerID)
		startArgPos = 2
	}

	result, err := filter.BuildWithOptions(filters, "submissions", "", startArgPos, opts)
	if err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrBadRequest, fmt.Sprintf("Invalid filter: %s", err.Error()), err)
	}

	selectFields := "submission_id, owner_id, launch_name, launch_url, description, category, directory_ids, total_cost, currency, crypto_supported, payment_status, COALESCE(payment_ref, ''), created_at, meta_data"
	if opts != nil && opts.IncludeCount {
		selectFields += ", COUNT(*) OVER() AS total_count"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM fedsub.submissions
	`, selectFields)

	// target_state filters arrive as CTEs over the targets table
	if len(result.CTEs) > 0 {
		query = "WITH " + strings.Join(result.CTEs, ", ") + query
	}

	args = append(args, result.Args...)
	argPos := result.NextArgPos

	conditions = append(conditions, result.Conditions...)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY " + result.OrderBy
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := d.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve submissions", err)
	}
	defer rows.Close()

	submissions := []*model.FederatedSubmission{}
	var totalCount *int64

	for rows.Next() {
		submission := &model.FederatedSubmission{}
		var metaDataJSON []byte
		dest := []interface{}{
			&submission.SubmissionID,
			&submission.OwnerID,
			&submission.LaunchName,
			&submission.LaunchURL,
			&submission.Description,
			&submission.Category,
			pq.Array(&submission.DirectoryIDs),
			&submission.TotalCost,
			&submission.Currency,
			&submission.CryptoSupported,
			&submission.PaymentStatus,
			&submission.PaymentRef,
			&submission.CreatedAt,
			&metaDataJSON,
		}
		var count int64
		if opts != nil && opts.IncludeCount {
			dest = append(dest, &count)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan submission", err)
		}
		if opts != nil && opts.IncludeCount && totalCount == nil {
			totalCount = &count
		}
		if len(metaDataJSON) > 0 {
			if err := json.Unmarshal(metaDataJSON, &submission.MetaData); err != nil {
				return nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal metadata", err)
			}
		}
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating submissions", err)
	}

	return submissions, totalCount, nil
}

// MarkSubmissionPaid completes a pending payment. The guard on the current
// payment_status makes replayed confirmations and double charges impossible:
// the second update matches zero rows.
func (d Datasource) MarkSubmissionPaid(ctx context.Context, id, paymentRef string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE fedsub.submissions
		SET payment_status = 'completed', payment_ref = $2
		WHERE submission_id = $1 AND payment_status = 'pending'
	`, id, paymentRef)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to mark submission paid", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		submission, getErr := d.GetSubmission(ctx, id)
		if getErr != nil {
			return getErr
		}
		return apierror.NewAPIError(apierror.ErrInvalidState, fmt.Sprintf("Submission payment is '%s', not 'pending'", submission.PaymentStatus), nil)
	}
	return nil
}

func scanSubmission(row rowScanner) (*model.FederatedSubmission, error) {
	submission := &model.FederatedSubmission{}
	var metaDataJSON []byte
	err := row.Scan(
		&submission.SubmissionID,
		&submission.OwnerID,
		&submission.LaunchName,
		&submission.LaunchURL,
		&submission.Description,
		&submission.Category,
		pq.Array(&submission.DirectoryIDs),
		&submission.TotalCost,
		&submission.Currency,
		&submission.CryptoSupported,
		&submission.PaymentStatus,
		&submission.PaymentRef,
		&submission.CreatedAt,
		&metaDataJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &submission.MetaData); err != nil {
			return nil, err
		}
	}
	return submission, nil
}
