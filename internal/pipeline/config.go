package pipeline

// DetectorConfig is handed to the detector factory when a run acquires its
// detector handle.
type DetectorConfig struct {
	// ModelComplexity selects the speed/accuracy trade-off: 0=lite, 1=full,
	// 2=heavy.
	ModelComplexity int

	MinDetectionConfidence float64
	MinTrackingConfidence  float64
}

// Config controls a single analysis run.
type Config struct {
	Detector DetectorConfig

	// VisibilityThreshold gates skeleton edges: an edge is drawn only when
	// both endpoints are at least this visible.
	VisibilityThreshold float64

	// CodecPreferences are tried in order when opening the sink; the first
	// codec the encoder accepts wins.
	CodecPreferences []string

	// EarlyEndTolerance is the max fraction of declared frames that may be
	// missing before an early end of stream fails the run. The boundary is
	// inclusive: a shortfall of exactly the tolerance still completes.
	EarlyEndTolerance float64

	// Input validation caps, carried over from the upload limits.
	MaxFileSizeMB  int64
	MaxDurationSec float64

	// Progress, when set, is invoked after every processed frame.
	Progress func(done, total int)
}

// DefaultConfig mirrors the analyzer's stock settings.
func DefaultConfig() Config {
	return Config{
		Detector: DetectorConfig{
			ModelComplexity:        1,
			MinDetectionConfidence: 0.5,
			MinTrackingConfidence:  0.5,
		},
		VisibilityThreshold: 0.5,
		CodecPreferences:    []string{"mp4v", "avc1", "XVID", "MJPG"},
		EarlyEndTolerance:   0.1,
		MaxFileSizeMB:       500,
		MaxDurationSec:      600,
	}
}
