package pipeline

import (
	"errors"
	"fmt"
)

// Fatal error kinds surfaced by a run. Recoverable per-frame faults are never
// returned; they only show up in the report counters.
var (
	// ErrInvalidInput marks an input container that cannot be processed at
	// all: unopenable, empty, zero frames or zero dimensions.
	ErrInvalidInput = errors.New("invalid input video")

	// ErrOutputOpen marks a sink that could not be opened with any candidate
	// codec.
	ErrOutputOpen = errors.New("unable to open output video")

	// ErrSinkWrite marks a broken output stream mid-run.
	ErrSinkWrite = errors.New("output write failed")

	// ErrTruncatedStream marks an input whose decodable frame count fell
	// short of the declared count by more than the configured tolerance.
	ErrTruncatedStream = errors.New("input stream ended early")

	// ErrNoFrames marks an input that opened successfully but yielded no
	// decodable frames at all.
	ErrNoFrames = errors.New("no decodable frames in input")
)

// RunError wraps a fatal error with the partial-progress context of the run
// that produced it. Callers get a typed error, never a partial report.
type RunError struct {
	Err error

	// FramesProcessed counts frames that were fully processed and written to
	// the sink before the failure.
	FramesProcessed int
}

func (e *RunError) Error() string {
	return fmt.Sprintf("analysis failed after %d frames: %v", e.FramesProcessed, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
