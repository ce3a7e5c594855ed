package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordKeepsFrameAccountingConsistent(t *testing.T) {
	s := NewRunStatistics(10)
	s.Record(FrameDetected, poseWithVisibility(0.9))
	s.Record(FrameNotDetected, nil)
	s.Record(FrameFaulted, nil)
	s.Record(FrameDetected, poseWithVisibility(0.7))

	assert.Equal(t, 4, s.ProcessedFrames())
	assert.Equal(t, 2, s.DetectedFrames())
	assert.Equal(t, 1, s.FailedFrames())
}

func TestAverageVisibilityRoundsToThreeDecimals(t *testing.T) {
	s := NewRunStatistics(3)
	s.Record(FrameDetected, poseWithVisibility(0.8561))
	s.Record(FrameDetected, poseWithVisibility(0.8572))

	report := s.BuildReport(VideoMeta{FrameCount: 3, FPS: 30, Width: 640, Height: 480}, "mp4v", "out.mp4", 1.0)
	assert.InDelta(t, 0.857, report.AverageVisibility, 1e-9)
}

func TestAverageVisibilityZeroWhenNothingDetected(t *testing.T) {
	s := NewRunStatistics(5)
	s.Record(FrameNotDetected, nil)
	s.Record(FrameFaulted, nil)

	report := s.BuildReport(VideoMeta{FrameCount: 5, FPS: 30, Width: 640, Height: 480}, "mp4v", "out.mp4", 1.0)
	assert.Zero(t, report.AverageVisibility)
	assert.Zero(t, report.DetectionRate)
	assert.InDelta(t, 50.0, report.FailedRate, 1e-9)
}

func TestRatePercentZeroDenominator(t *testing.T) {
	assert.Zero(t, ratePercent(3, 0))
	assert.InDelta(t, 50.0, ratePercent(90, 180), 1e-9)
}

func TestBuildReportDerivedFields(t *testing.T) {
	s := NewRunStatistics(180)
	for i := 0; i < 180; i++ {
		s.Record(FrameDetected, poseWithVisibility(0.85))
	}

	meta := VideoMeta{FrameCount: 180, FPS: 30, Width: 1920, Height: 1080}
	report := s.BuildReport(meta, "avc1", "out.mp4", 12.4)

	assert.Equal(t, "1920x1080", report.Resolution)
	assert.InDelta(t, 6.0, report.Duration, 1e-9)
	assert.Equal(t, 180, report.KeypointsCount)
	assert.InDelta(t, 0.85, report.AverageVisibility, 1e-9)
	assert.InDelta(t, 12.4, report.ProcessingTime, 1e-9)
	assert.Equal(t, "avc1", report.Codec)
	assert.False(t, report.EarlyEnd)
}

func TestBuildReportFlagsEarlyEnd(t *testing.T) {
	s := NewRunStatistics(100)
	for i := 0; i < 95; i++ {
		s.Record(FrameNotDetected, nil)
	}

	report := s.BuildReport(VideoMeta{FrameCount: 100, FPS: 25, Width: 640, Height: 480}, "mp4v", "out.mp4", 1.0)
	assert.True(t, report.EarlyEnd)
	assert.Equal(t, 95, report.ProcessedFrames)
	assert.Equal(t, 100, report.TotalFrames)
}
