package port

import "context"

// StatusPublisher emits job status messages to the video.status queue.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

// RequestPublisher enqueues analysis requests for the worker pool.
type RequestPublisher interface {
	PublishRequest(ctx context.Context, msg []byte) error
}

// DLQPublisher parks messages that exhausted their retries.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}
