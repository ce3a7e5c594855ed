package port

import "context"

// FailureNotifier tells the uploader that their video permanently failed
// analysis.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userEmail string, jobID string, videoKey string, errorMsg string) error
}
