package pipeline

import (
	"fmt"
	"math"
)

// RunStatistics is the accumulator for one run. It is owned by the
// orchestrator of that run and updated exactly once per frame; it is never
// shared between runs.
type RunStatistics struct {
	totalFrames     int
	processedFrames int
	detectedFrames  int
	failedFrames    int
	visibilitySum   float64
	visibilityCount int
}

// NewRunStatistics seeds the accumulator with the declared frame count.
func NewRunStatistics(totalFrames int) *RunStatistics {
	return &RunStatistics{totalFrames: totalFrames}
}

// Record accounts for one frame's outcome. Detected frames contribute their
// landmark visibilities to the running average.
func (s *RunStatistics) Record(outcome FrameOutcome, pose *PoseResult) {
	s.processedFrames++
	switch outcome {
	case FrameDetected:
		s.detectedFrames++
		if pose != nil {
			for _, lm := range pose.Landmarks {
				s.visibilitySum += lm.Visibility
				s.visibilityCount++
			}
		}
	case FrameFaulted:
		s.failedFrames++
	}
}

// RecordRenderFault accounts for a draw fault on an already-recorded frame.
func (s *RunStatistics) RecordRenderFault() {
	s.failedFrames++
}

func (s *RunStatistics) ProcessedFrames() int { return s.processedFrames }
func (s *RunStatistics) DetectedFrames() int  { return s.detectedFrames }
func (s *RunStatistics) FailedFrames() int    { return s.failedFrames }

// Report is the immutable outcome of a completed run.
type Report struct {
	TotalFrames     int `json:"total_frames"`
	ProcessedFrames int `json:"processed_frames"`
	DetectedFrames  int `json:"detected_frames"`
	FailedFrames    int `json:"failed_frames"`

	// DetectionRate and FailedRate are percentages; 0 when no frames were
	// processed, never a division fault.
	DetectionRate float64 `json:"detection_rate"`
	FailedRate    float64 `json:"failed_rate"`

	FPS        float64 `json:"fps"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Resolution string  `json:"resolution"`
	Duration   float64 `json:"duration_seconds"`

	ProcessingTime float64 `json:"processing_time_seconds"`

	// KeypointsCount equals DetectedFrames: one landmark set per detected
	// frame.
	KeypointsCount    int     `json:"keypoints_count"`
	AverageVisibility float64 `json:"average_visibility"`

	Codec      string `json:"codec"`
	OutputPath string `json:"output_path"`

	// EarlyEnd is set when fewer frames decoded than the container declared.
	EarlyEnd bool `json:"early_end"`
}

// BuildReport derives the final report from the accumulator and run context.
func (s *RunStatistics) BuildReport(meta VideoMeta, codec, outputPath string, processingTime float64) *Report {
	return &Report{
		TotalFrames:       s.totalFrames,
		ProcessedFrames:   s.processedFrames,
		DetectedFrames:    s.detectedFrames,
		FailedFrames:      s.failedFrames,
		DetectionRate:     ratePercent(s.detectedFrames, s.processedFrames),
		FailedRate:        ratePercent(s.failedFrames, s.processedFrames),
		FPS:               meta.FPS,
		Width:             meta.Width,
		Height:            meta.Height,
		Resolution:        fmt.Sprintf("%dx%d", meta.Width, meta.Height),
		Duration:          meta.Duration(),
		ProcessingTime:    processingTime,
		KeypointsCount:    s.detectedFrames,
		AverageVisibility: s.averageVisibility(),
		Codec:             codec,
		OutputPath:        outputPath,
		EarlyEnd:          s.processedFrames < s.totalFrames,
	}
}

func (s *RunStatistics) averageVisibility() float64 {
	if s.visibilityCount == 0 {
		return 0
	}
	avg := s.visibilitySum / float64(s.visibilityCount)
	return math.Round(avg*1000) / 1000
}

func ratePercent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
