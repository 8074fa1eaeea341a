package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID with a given module name as a prefix.
// This is useful for creating unique identifiers with context-specific prefixes.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New() // Generate a new UUID.
	uuidStr := id.String()
	idWithSuffix := fmt.Sprintf("%s_%s", module, uuidStr) // Append the module as a prefix to the UUID.
	return idWithSuffix
}

// HashPayload generates a SHA-256 hash of a submission's delivery-relevant fields.
// Remote directories can use it to deduplicate replayed deliveries of the same launch.
func (submission *FederatedSubmission) HashPayload() string {
	data := fmt.Sprintf("%s%s%s%s", submission.SubmissionID, submission.LaunchURL, submission.LaunchName, submission.Category)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
