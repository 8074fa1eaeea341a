package fedsub

import (
	"context"
	"time"

	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/model"
)

// CreateAPIKey mints a new API key for a publisher. The key's owner becomes
// the identity behind every submission created with it.
func (l *Fedsub) CreateAPIKey(ctx context.Context, name, ownerID string, scopes []string, expiresAt time.Time) (*model.APIKey, error) {
	if name == "" || ownerID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "API key name and owner are required", nil)
	}
	if !expiresAt.After(time.Now()) {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "API key expiry must be in the future", nil)
	}
	return l.datasource.CreateAPIKey(ctx, name, ownerID, scopes, expiresAt)
}

// ListAPIKeys retrieves all API keys for a specific owner.
func (l *Fedsub) ListAPIKeys(ctx context.Context, ownerID string) ([]*model.APIKey, error) {
	return l.datasource.ListAPIKeys(ctx, ownerID)
}

// RevokeAPIKey revokes one of an owner's API keys.
func (l *Fedsub) RevokeAPIKey(ctx context.Context, id, ownerID string) error {
	return l.datasource.RevokeAPIKey(ctx, id, ownerID)
}

// GetAPIKeyByKey resolves an API key by its secret value. Used by the auth
// middleware on every request.
func (l *Fedsub) GetAPIKeyByKey(ctx context.Context, key string) (*model.APIKey, error) {
	return l.datasource.GetAPIKey(ctx, key)
}

// UpdateLastUsed records that a key just authenticated a request.
func (l *Fedsub) UpdateLastUsed(ctx context.Context, id string) error {
	return l.datasource.UpdateLastUsed(ctx, id)
}
