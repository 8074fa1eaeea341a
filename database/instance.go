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

	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/model"
)

// RegisterInstance persists a new federation instance. Base URLs are unique
// across the table; a duplicate surfaces as a conflict rather than a second
// row.
func (d Datasource) RegisterInstance(ctx context.Context, instance *model.FederationInstance) (*model.FederationInstance, error) {
	metaDataJSON, err := json.Marshal(instance.MetaData)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	instance.InstanceID = model.GenerateUUIDWithSuffix("fed")
	instance.CreatedAt = time.Now()
	instance.LastSeenAt = instance.CreatedAt
	if instance.Status == "" {
		instance.Status = model.InstanceStatusActive
	}
	if instance.TrustScore == 0 {
		instance.TrustScore = model.DefaultTrustScore
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO fedsub.federation_instances (instance_id, name, base_url, status, trust_score, capabilities, contact_email, last_seen_at, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, instance.InstanceID, instance.Name, instance.BaseURL, instance.Status, instance.TrustScore, pq.Array(instance.Capabilities), instance.ContactEmail, instance.LastSeenAt, instance.CreatedAt, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Instance with base URL '%s' already registered", instance.BaseURL), err)
			default:
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to register instance", err)
	}

	return instance, nil
}

func (d Datasource) GetInstance(ctx context.Context, id string) (*model.FederationInstance, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT instance_id, name, base_url, status, trust_score, capabilities, contact_email, last_seen_at, created_at, meta_data
		FROM fedsub.federation_instances
		WHERE instance_id = $1
	`, id)

	instance, err := scanInstance(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Instance with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve instance", err)
	}
	return instance, nil
}

func (d Datasource) GetInstanceByBaseURL(ctx context.Context, baseURL string) (*model.FederationInstance, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT instance_id, name, base_url, status, trust_score, capabilities, contact_email, last_seen_at, created_at, meta_data
		FROM fedsub.federation_instances
		WHERE base_url = $1
	`, baseURL)

	instance, err := scanInstance(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Instance with base URL '%s' not found", baseURL), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve instance", err)
	}
	return instance, nil
}

// DiscoverInstances lists instances ordered by trust score, then recency of
// contact. The status filter is exact; the search term matches name or base
// URL, case-insensitively.
func (d Datasource) DiscoverInstances(ctx context.Context, status, search string, limit, offset int) ([]*model.FederationInstance, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT instance_id, name, base_url, status, trust_score, capabilities, contact_email, last_seen_at, created_at, meta_data
		FROM fedsub.federation_instances
		WHERE ($1 = '' OR status = $1)
		AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR base_url ILIKE '%' || $2 || '%')
		ORDER BY trust_score DESC, last_seen_at DESC
		LIMIT $3 OFFSET $4
	`, status, search, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to discover instances", err)
	}
	defer rows.Close()

	instances := []*model.FederationInstance{}
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan instance", err)
		}
		instances = append(instances, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating instances", err)
	}

	return instances, nil
}

// GetAllInstances pages through every registered instance, oldest first.
func (d Datasource) GetAllInstances(ctx context.Context, limit, offset int) ([]*model.FederationInstance, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT instance_id, name, base_url, status, trust_score, capabilities, contact_email, last_seen_at, created_at, meta_data
		FROM fedsub.federation_instances
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve instances", err)
	}
	defer rows.Close()

	instances := []*model.FederationInstance{}
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan instance", err)
		}
		instances = append(instances, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating instances", err)
	}

	return instances, nil
}

func (d Datasource) UpdateInstanceStatus(ctx context.Context, id, status string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE fedsub.federation_instances
		SET status = $2
		WHERE instance_id = $1
	`, id, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update instance status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Instance with ID '%s' not found", id), nil)
	}
	return nil
}

// TouchInstance refreshes last_seen_at after any successful exchange with the
// remote peer.
func (d Datasource) TouchInstance(ctx context.Context, id string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE fedsub.federation_instances
		SET last_seen_at = NOW()
		WHERE instance_id = $1
	`, id)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to touch instance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Instance with ID '%s' not found", id), nil)
	}
	return nil
}

func scanInstance(row rowScanner) (*model.FederationInstance, error) {
	instance := &model.FederationInstance{}
	var metaDataJSON []byte
	err := row.Scan(
		&instance.InstanceID,
		&instance.Name,
		&instance.BaseURL,
		&instance.Status,
		&instance.TrustScore,
		pq.Array(&instance.Capabilities),
		&instance.ContactEmail,
		&instance.LastSeenAt,
		&instance.CreatedAt,
		&metaDataJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &instance.MetaData); err != nil {
			return nil, err
		}
	}
	return instance, nil
}
