package database

import (
	"context"
	"encoding/json"
)

// UpdateSubmissionMetadata updates the metadata for a specific submission in
// the database. It marshals the metadata map to JSON before storing it.
//
// Parameters:
// - ctx: The context for the database operation.
// - id: The ID of the submission to update.
// - metadata: The new metadata to store.
//
// Returns:
// - error: An error if the update operation fails.
func (d Datasource) UpdateSubmissionMetadata(ctx context.Context, id string, metadata map[string]interface{}) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	_, err = d.Conn.ExecContext(ctx, `
		UPDATE fedsub.submissions
		SET meta_data = $1
		WHERE submission_id = $2
	`, metadataJSON, id)
	return err
}

// UpdateDirectoryMetadata updates the metadata for a specific directory in
// the database. It marshals the metadata map to JSON before storing it.
//
// Parameters:
// - ctx: The context for the database operation.
// - id: The ID of the directory to update.
// - metadata: The new metadata to store.
//
// Returns:
// - error: An error if the update operation fails.
func (d Datasource) UpdateDirectoryMetadata(ctx context.Context, id string, metadata map[string]interface{}) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	_, err = d.Conn.ExecContext(ctx, `
		UPDATE fedsub.directories
		SET meta_data = $1
		WHERE directory_id = $2
	`, metadataJSON, id)
	return err
}

// UpdateInstanceMetadata updates the metadata for a specific federation
// instance in the database. It marshals the metadata map to JSON before
// storing it.
//
// Parameters:
// - ctx: The context for the database operation.
// - id: The ID of the instance to update.
// - metadata: The new metadata to store.
//
// Returns:
// - error: An error if the update operation fails.
func (d Datasource) UpdateInstanceMetadata(ctx context.Context, id string, metadata map[string]interface{}) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	_, err = d.Conn.ExecContext(ctx, `
		UPDATE fedsub.federation_instances
		SET meta_data = $1
		WHERE instance_id = $2
	`, metadataJSON, id)
	return err
}
