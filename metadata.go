package fedsub

import (
	"context"
	"fmt"
	"strings"

	"github.com/fedsubhq/fedsub/internal/apierror"
)

// getEntityTypeFromID determines the entity type from the ID prefix.
// It analyzes the prefix of the provided ID and returns the corresponding entity type.
//
// Parameters:
// - id: A string representing the entity ID to analyze.
//
// Returns:
// - string: The determined entity type ("submissions", "directories", or "instances").
// - error: An error if the ID format is invalid.
func getEntityTypeFromID(id string) (string, error) {
	switch {
	case strings.HasPrefix(id, "sub_"):
		return "submissions", nil
	case strings.HasPrefix(id, "dir_"):
		return "directories", nil
	case strings.HasPrefix(id, "fed_"):
		return "instances", nil
	default:
		return "", fmt.Errorf("invalid entity ID format: %s", id)
	}
}

// UpdateMetadata updates the metadata for a given entity ID.
// It first determines the entity type, retrieves current metadata, merges it with new metadata,
// and updates the entity with the merged metadata. Keys in the new metadata win on conflict;
// everything else the entity already carried survives.
//
// Parameters:
// - ctx: The context for the operation.
// - entityID: A string representing the ID of the entity to update.
// - newMetadata: A map containing the new metadata to merge.
//
// Returns:
// - map[string]interface{}: The merged metadata after the update.
// - error: An error if the update operation fails.
func (l *Fedsub) UpdateMetadata(ctx context.Context, entityID string, newMetadata map[string]interface{}) (map[string]interface{}, error) {
	entityType, err := getEntityTypeFromID(entityID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
	}

	switch entityType {
	case "submissions":
		submission, err := l.datasource.GetSubmission(ctx, entityID)
		if err != nil {
			return nil, err
		}
		mergedMetadata := mergeMetadata(submission.MetaData, newMetadata)
		if err := l.datasource.UpdateSubmissionMetadata(ctx, entityID, mergedMetadata); err != nil {
			return nil, fmt.Errorf("failed to update metadata: %w", err)
		}
		return mergedMetadata, nil

	case "directories":
		directory, err := l.datasource.GetDirectory(ctx, entityID)
		if err != nil {
			return nil, err
		}
		mergedMetadata := mergeMetadata(directory.MetaData, newMetadata)
		if err := l.datasource.UpdateDirectoryMetadata(ctx, entityID, mergedMetadata); err != nil {
			return nil, fmt.Errorf("failed to update metadata: %w", err)
		}
		return mergedMetadata, nil

	case "instances":
		instance, err := l.datasource.GetInstance(ctx, entityID)
		if err != nil {
			return nil, err
		}
		mergedMetadata := mergeMetadata(instance.MetaData, newMetadata)
		if err := l.datasource.UpdateInstanceMetadata(ctx, entityID, mergedMetadata); err != nil {
			return nil, fmt.Errorf("failed to update metadata: %w", err)
		}
		return mergedMetadata, nil

	default:
		return nil, fmt.Errorf("unsupported entity type: %s", entityType)
	}
}

// mergeMetadata merges new metadata with existing metadata.
// If the current metadata is nil, it initializes a new map.
//
// Parameters:
// - current: The existing metadata map.
// - new: The new metadata map to merge.
//
// Returns:
// - map[string]interface{}: The merged metadata map.
func mergeMetadata(current, new map[string]interface{}) map[string]interface{} {
	if current == nil {
		current = make(map[string]interface{})
	}

	for k, v := range new {
		current[k] = v
	}

	return current
}
