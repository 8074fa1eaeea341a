package fedsub

import (
	"context"
	"time"

	"github.com/fedsubhq/fedsub/model"
)

// GetSubmissionTarget retrieves one delivery leg by ID.
func (l *Fedsub) GetSubmissionTarget(ctx context.Context, id string) (*model.SubmissionTarget, error) {
	return l.datasource.GetTarget(ctx, id)
}

// ListFailedTargets returns the failed legs of a submission, enforcing
// ownership when a caller is supplied. The list is what a retry would pick
// up, so publishers can inspect it before re-dispatching.
func (l *Fedsub) ListFailedTargets(ctx context.Context, submissionID, callerID string) ([]*model.SubmissionTarget, error) {
	if _, err := l.fetchOwnedSubmission(ctx, submissionID, callerID); err != nil {
		return nil, err
	}
	return l.datasource.GetFailedTargets(ctx, submissionID)
}

// ListStuckTargets surfaces in_flight targets whose last attempt is older than
// the threshold. The legs are reported, never reclaimed: the remote delivery
// may have succeeded before the worker died, so only an operator who has
// checked the directory decides whether a stuck leg is retried.
func (l *Fedsub) ListStuckTargets(ctx context.Context, olderThan time.Duration, limit int) ([]*model.SubmissionTarget, error) {
	if olderThan <= 0 {
		olderThan = 30 * time.Minute
	}
	if limit <= 0 {
		limit = 50
	}
	return l.datasource.GetStuckTargets(ctx, olderThan, limit)
}
