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
	"time"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"

	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/model"
)

const directoryCacheTTL = 5 * time.Minute

func directoryCacheKey(id string) string {
	return fmt.Sprintf("directory:%s", id)
}

// CreateDirectory registers a new directory in the catalog. The fee schedule
// and requirements travel as JSONB so pricing changes never need schema work.
func (d Datasource) CreateDirectory(ctx context.Context, directory *model.Directory) (*model.Directory, error) {
	ctx, span := otel.Tracer("directory.database").Start(ctx, "Saving directory to db")
	defer span.End()

	metaDataJSON, err := json.Marshal(directory.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}
	feeScheduleJSON, err := json.Marshal(directory.FeeSchedule)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal fee schedule", err)
	}
	requirementsJSON, err := json.Marshal(directory.Requirements)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal requirements", err)
	}

	directory.DirectoryID = model.GenerateUUIDWithSuffix("dir")
	directory.CreatedAt = time.Now()
	if directory.Status == "" {
		directory.Status = model.DirectoryStatusActive
	}

	var instanceID interface{}
	if directory.InstanceID != "" {
		instanceID = directory.InstanceID
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO fedsub.directories (directory_id, name, category, status, fee_schedule, accepts_crypto, requirements, submission_count, submit_url, instance_id, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, directory.DirectoryID, directory.Name, directory.Category, directory.Status, feeScheduleJSON, directory.AcceptsCrypto, requirementsJSON, directory.SubmissionCount, directory.SubmitURL, instanceID, directory.CreatedAt, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return nil, apierror.NewAPIError(apierror.ErrConflict, "Directory with this ID already exists", err)
			case "foreign_key_violation":
				return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Federation instance '%s' does not exist", directory.InstanceID), err)
			default:
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create directory", err)
	}

	return directory, nil
}

// GetDirectory retrieves one directory, serving repeat reads from cache.
func (d Datasource) GetDirectory(ctx context.Context, id string) (*model.Directory, error) {
	if d.Cache != nil {
		cached := &model.Directory{}
		if err := d.Cache.Get(ctx, directoryCacheKey(id), cached); err == nil && cached.DirectoryID != "" {
			return cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT directory_id, name, category, status, fee_schedule, accepts_crypto, requirements, submission_count, submit_url, COALESCE(instance_id, ''), created_at, meta_data
		FROM fedsub.directories
		WHERE directory_id = $1
	`, id)

	directory, err := scanDirectory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Directory with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve directory", err)
	}

	if d.Cache != nil {
		_ = d.Cache.Set(ctx, directoryCacheKey(id), directory, directoryCacheTTL)
	}

	return directory, nil
}

// GetDirectories retrieves the requested directories in request order.
// Unknown IDs are silently absent from the result; callers that care, such
// as the cost calculator, detect the gap themselves.
func (d Datasource) GetDirectories(ctx context.Context, ids []string) ([]*model.Directory, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT directory_id, name, category, status, fee_schedule, accepts_crypto, requirements, submission_count, submit_url, COALESCE(instance_id, ''), created_at, meta_data
		FROM fedsub.directories
		WHERE directory_id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve directories", err)
	}
	defer rows.Close()

	byID := make(map[string]*model.Directory, len(ids))
	for rows.Next() {
		directory, err := scanDirectory(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan directory", err)
		}
		byID[directory.DirectoryID] = directory
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating directories", err)
	}

	directories := make([]*model.Directory, 0, len(byID))
	for _, id := range ids {
		if directory, ok := byID[id]; ok {
			directories = append(directories, directory)
		}
	}
	return directories, nil
}

// DiscoverDirectories lists active directories, most popular first. Category
// and pricing filters are optional; an empty string matches everything.
func (d Datasource) DiscoverDirectories(ctx context.Context, category, pricing string, limit, offset int) ([]*model.Directory, error) {
	ctx, span := otel.Tracer("directory.database").Start(ctx, "Discovering directories")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT directory_id, name, category, status, fee_schedule, accepts_crypto, requirements, submission_count, submit_url, COALESCE(instance_id, ''), created_at, meta_data
		FROM fedsub.directories
		WHERE status = 'active'
		AND ($1 = '' OR category = $1)
		AND ($2 = '' OR fee_schedule->>'model' = $2)
		ORDER BY submission_count DESC, name ASC
		LIMIT $3 OFFSET $4
	`, category, pricing, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to discover directories", err)
	}
	defer rows.Close()

	directories := []*model.Directory{}
	for rows.Next() {
		directory, err := scanDirectory(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan directory", err)
		}
		directories = append(directories, directory)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating directories", err)
	}

	return directories, nil
}

// GetAllDirectories pages through the whole catalog, oldest first. Used by
// the search reindexer, so retired and maintenance entries are included.
func (d Datasource) GetAllDirectories(ctx context.Context, limit, offset int) ([]*model.Directory, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT directory_id, name, category, status, fee_schedule, accepts_crypto, requirements, submission_count, submit_url, COALESCE(instance_id, ''), created_at, meta_data
		FROM fedsub.directories
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve directories", err)
	}
	defer rows.Close()

	directories := []*model.Directory{}
	for rows.Next() {
		directory, err := scanDirectory(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan directory", err)
		}
		directories = append(directories, directory)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating directories", err)
	}

	return directories, nil
}

// UpdateDirectoryStatus moves a directory between lifecycle states and drops
// the cached copy.
func (d Datasource) UpdateDirectoryStatus(ctx context.Context, id, status string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE fedsub.directories
		SET status = $2
		WHERE directory_id = $1
	`, id, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update directory status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Directory with ID '%s' not found", id), nil)
	}

	if d.Cache != nil {
		_ = d.Cache.Delete(ctx, directoryCacheKey(id))
	}
	return nil
}

// IncrementSubmissionCount bumps the popularity counter after a directory
// confirms a listing.
func (d Datasource) IncrementSubmissionCount(ctx context.Context, id string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE fedsub.directories
		SET submission_count = submission_count + 1
		WHERE directory_id = $1
	`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to increment submission count", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Directory with ID '%s' not found", id), nil)
	}

	if d.Cache != nil {
		_ = d.Cache.Delete(ctx, directoryCacheKey(id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDirectory(row rowScanner) (*model.Directory, error) {
	directory := &model.Directory{}
	var feeScheduleJSON, requirementsJSON, metaDataJSON []byte
	err := row.Scan(
		&directory.DirectoryID,
		&directory.Name,
		&directory.Category,
		&directory.Status,
		&feeScheduleJSON,
		&directory.AcceptsCrypto,
		&requirementsJSON,
		&directory.SubmissionCount,
		&directory.SubmitURL,
		&directory.InstanceID,
		&directory.CreatedAt,
		&metaDataJSON,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(feeScheduleJSON, &directory.FeeSchedule); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(requirementsJSON, &directory.Requirements); err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &directory.MetaData); err != nil {
			return nil, err
		}
	}
	return directory, nil
}
