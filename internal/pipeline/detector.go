package pipeline

import "gocv.io/x/gocv"

// Detector is a stateful pose detector bound to exactly one run. It is
// acquired in Opening, reused for every frame (tracking context carries over
// between frames), and closed in Finalizing on every exit path. A closed
// detector must never be reused; runs always get a fresh handle from the
// factory.
type Detector interface {
	// Detect returns the pose found in the frame, or (nil, nil) when no pose
	// was found. A non-nil error is a detector fault, not absence of a pose.
	Detect(frame *gocv.Mat) (*PoseResult, error)
	Close() error
}

// DetectorFactory creates one detector handle per run.
type DetectorFactory interface {
	New(cfg DetectorConfig) (Detector, error)
}
