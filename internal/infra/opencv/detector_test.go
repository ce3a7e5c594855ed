package opencv

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/pipeline"
)

func TestParseLandmarksNormalizesCoordinates(t *testing.T) {
	data := make([]float32, pipeline.LandmarkCount*valuesPerLandmark)
	for i := 0; i < pipeline.LandmarkCount; i++ {
		row := data[i*valuesPerLandmark:]
		row[0] = 128 // x in input pixels
		row[1] = 64  // y
		row[2] = -10 // z
		row[3] = 2.0 // visibility logit
		row[4] = 3.0 // presence logit
	}

	pose, presence := parseLandmarks(data, 256)

	assert.InDelta(t, 0.5, pose.Landmarks[0].X, 1e-9)
	assert.InDelta(t, 0.25, pose.Landmarks[0].Y, 1e-9)
	assert.InDelta(t, -10.0/256.0, pose.Landmarks[0].Z, 1e-9)
	assert.InDelta(t, sigmoid(2.0), pose.Landmarks[0].Visibility, 1e-9)
	assert.InDelta(t, sigmoid(3.0), presence, 1e-9)
}

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.5, sigmoid(0), 1e-9)
	assert.Greater(t, sigmoid(4.0), 0.98)
	assert.Less(t, sigmoid(-4.0), 0.02)
}

func TestInputSizeFollowsModelComplexity(t *testing.T) {
	assert.Equal(t, 224, inputSizeFor(0))
	assert.Equal(t, 224, inputSizeFor(-1))
	assert.Equal(t, 256, inputSizeFor(1))
	assert.Equal(t, 256, inputSizeFor(2))
}
