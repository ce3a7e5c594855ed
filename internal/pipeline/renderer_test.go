package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibleConnectionsFullPose(t *testing.T) {
	pose := poseWithVisibility(0.9)
	edges := VisibleConnections(pose, 0.5)
	assert.Len(t, edges, len(PoseConnections))
}

func TestVisibleConnectionsSkipsEdgesWithHiddenEndpoint(t *testing.T) {
	pose := poseWithVisibility(0.9)
	// Hide one wrist; every edge touching it must vanish, all others stay.
	hidden := 15
	pose.Landmarks[hidden].Visibility = 0.1

	edges := VisibleConnections(pose, 0.5)
	assert.Less(t, len(edges), len(PoseConnections))
	for _, c := range edges {
		assert.NotEqual(t, hidden, c.A)
		assert.NotEqual(t, hidden, c.B)
	}
}

func TestVisibleConnectionsAllBelowThreshold(t *testing.T) {
	pose := poseWithVisibility(0.2)
	assert.Empty(t, VisibleConnections(pose, 0.5))
}

func TestVisibleConnectionsThresholdIsInclusive(t *testing.T) {
	pose := poseWithVisibility(0.5)
	assert.Len(t, VisibleConnections(pose, 0.5), len(PoseConnections))
}

func TestLandmarkPointDenormalizes(t *testing.T) {
	pt := landmarkPoint(Landmark{X: 0.5, Y: 0.25}, 1920, 1080)
	assert.Equal(t, 960, pt.X)
	assert.Equal(t, 270, pt.Y)
}

func TestFrameLabel(t *testing.T) {
	label, col := frameLabel(true, 41, 180)
	assert.Equal(t, "Frame: 41/180 | DETECTED", label)
	assert.Equal(t, detectedColor, col)

	label, col = frameLabel(false, 42, 180)
	assert.Equal(t, "Frame: 42/180 | NO POSE", label)
	assert.Equal(t, noPoseColor, col)
}

func TestPoseConnectionsReferenceValidLandmarks(t *testing.T) {
	for _, c := range PoseConnections {
		assert.GreaterOrEqual(t, c.A, 0)
		assert.Less(t, c.A, LandmarkCount)
		assert.GreaterOrEqual(t, c.B, 0)
		assert.Less(t, c.B, LandmarkCount)
		assert.NotEqual(t, c.A, c.B)
	}
}

func TestAverageVisibilityOfPose(t *testing.T) {
	pose := poseWithVisibility(0.8)
	assert.InDelta(t, 0.8, pose.AverageVisibility(), 1e-9)
}
