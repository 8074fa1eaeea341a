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
	"time"

	"github.com/lib/pq"

	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/model"
)

// CreateAPIKey mints and stores a new API key for a publisher. The secret
// value is generated here and returned exactly once; there is no way to read
// it back later.
func (d Datasource) CreateAPIKey(ctx context.Context, name, ownerID string, scopes []string, expiresAt time.Time) (*model.APIKey, error) {
	apiKey, err := model.NewAPIKey(name, ownerID, scopes, expiresAt)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to generate API key", err)
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO fedsub.api_keys (api_key_id, key, name, owner_id, scopes, expires_at, created_at, last_used_at, is_revoked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		apiKey.APIKeyID,
		apiKey.Key,
		apiKey.Name,
		apiKey.OwnerID,
		pq.StringArray(apiKey.Scopes),
		apiKey.ExpiresAt,
		apiKey.CreatedAt,
		apiKey.LastUsedAt,
		apiKey.IsRevoked,
	)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create API key", err)
	}

	return apiKey, nil
}

// GetAPIKey looks an API key up by its secret value. Used on every
// authenticated request, so it stays a single indexed lookup.
func (d Datasource) GetAPIKey(ctx context.Context, key string) (*model.APIKey, error) {
	apiKey := &model.APIKey{}
	var scopes pq.StringArray
	err := d.Conn.QueryRowContext(ctx, `
		SELECT api_key_id, key, name, owner_id, scopes, expires_at, created_at, last_used_at, is_revoked, revoked_at
		FROM fedsub.api_keys
		WHERE key = $1
	`, key).Scan(
		&apiKey.APIKeyID,
		&apiKey.Key,
		&apiKey.Name,
		&apiKey.OwnerID,
		&scopes,
		&apiKey.ExpiresAt,
		&apiKey.CreatedAt,
		&apiKey.LastUsedAt,
		&apiKey.IsRevoked,
		&apiKey.RevokedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "API key not found", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve API key", err)
	}
	apiKey.Scopes = []string(scopes)

	return apiKey, nil
}

// ListAPIKeys lists an owner's API keys, newest first. Secret values ride
// along because the owner already holds them.
func (d Datasource) ListAPIKeys(ctx context.Context, ownerID string) ([]*model.APIKey, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT api_key_id, key, name, owner_id, scopes, expires_at, created_at, last_used_at, is_revoked, revoked_at
		FROM fedsub.api_keys
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve API keys", err)
	}
	defer rows.Close()

	apiKeys := []*model.APIKey{}
	for rows.Next() {
		apiKey := &model.APIKey{}
		var scopes pq.StringArray
		err := rows.Scan(
			&apiKey.APIKeyID,
			&apiKey.Key,
			&apiKey.Name,
			&apiKey.OwnerID,
			&scopes,
			&apiKey.ExpiresAt,
			&apiKey.CreatedAt,
			&apiKey.LastUsedAt,
			&apiKey.IsRevoked,
			&apiKey.RevokedAt,
		)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan API key", err)
		}
		apiKey.Scopes = []string(scopes)
		apiKeys = append(apiKeys, apiKey)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating API keys", err)
	}

	return apiKeys, nil
}

// RevokeAPIKey revokes one of an owner's keys. The owner predicate means a
// publisher can only ever revoke their own keys; a miss on either column
// reads as not found.
func (d Datasource) RevokeAPIKey(ctx context.Context, id, ownerID string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE fedsub.api_keys
		SET is_revoked = true, revoked_at = $1
		WHERE api_key_id = $2 AND owner_id = $3
	`, time.Now(), id, ownerID)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to revoke API key", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, "API key not found", nil)
	}

	return nil
}

// UpdateLastUsed records that a key just authenticated a request.
func (d Datasource) UpdateLastUsed(ctx context.Context, id string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE fedsub.api_keys
		SET last_used_at = $1
		WHERE api_key_id = $2
	`, time.Now(), id)
	return err
}
