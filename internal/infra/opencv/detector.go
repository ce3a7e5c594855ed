// Package opencv provides the default pose detector backend, running a
// landmark model through OpenCV's DNN module.
package opencv

import (
	"fmt"
	"image"
	"math"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/pipeline"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// valuesPerLandmark is the model's per-landmark output row: x, y, z in input
// pixels, then visibility and presence logits.
const valuesPerLandmark = 5

// DetectorFactory loads a fresh network per run so detector handles are never
// shared between runs.
type DetectorFactory struct {
	modelPath string
	log       *zap.Logger
}

func NewDetectorFactory(modelPath string, log *zap.Logger) *DetectorFactory {
	return &DetectorFactory{modelPath: modelPath, log: log}
}

func (f *DetectorFactory) New(cfg pipeline.DetectorConfig) (pipeline.Detector, error) {
	net := gocv.ReadNet(f.modelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("read pose model %s: network is empty", f.modelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	f.log.Info("pose detector acquired",
		zap.String("backend", "opencv"),
		zap.Int("model_complexity", cfg.ModelComplexity),
	)

	return &detector{
		net:          net,
		inputSize:    inputSizeFor(cfg.ModelComplexity),
		minDetection: cfg.MinDetectionConfidence,
		minTracking:  cfg.MinTrackingConfidence,
	}, nil
}

// inputSizeFor maps model complexity to the network input resolution.
func inputSizeFor(complexity int) int {
	if complexity <= 0 {
		return 224
	}
	return 256
}

type detector struct {
	net          gocv.Net
	inputSize    int
	minDetection float64
	minTracking  float64

	// tracking carries detection continuity across frames: once a pose is
	// locked, the lower tracking threshold keeps it between frames.
	tracking bool
	closed   bool
}

func (d *detector) Detect(frame *gocv.Mat) (*pipeline.PoseResult, error) {
	if d.closed {
		return nil, fmt.Errorf("detect on closed detector")
	}
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("malformed frame buffer")
	}

	blob := gocv.BlobFromImage(*frame, 1.0/255.0,
		image.Pt(d.inputSize, d.inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read model output: %w", err)
	}
	if len(data) < pipeline.LandmarkCount*valuesPerLandmark {
		return nil, fmt.Errorf("unexpected model output size %d", len(data))
	}

	pose, presence := parseLandmarks(data, d.inputSize)

	threshold := d.minDetection
	if d.tracking {
		threshold = d.minTracking
	}
	if presence < threshold {
		d.tracking = false
		return nil, nil
	}
	d.tracking = true
	return pose, nil
}

func (d *detector) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}

// parseLandmarks decodes the raw landmark tensor into normalized coordinates
// and returns the average presence score used for detection gating.
func parseLandmarks(data []float32, inputSize int) (*pipeline.PoseResult, float64) {
	pose := &pipeline.PoseResult{}
	var presenceSum float64
	size := float64(inputSize)

	for i := 0; i < pipeline.LandmarkCount; i++ {
		row := data[i*valuesPerLandmark:]
		pose.Landmarks[i] = pipeline.Landmark{
			X:          float64(row[0]) / size,
			Y:          float64(row[1]) / size,
			Z:          float64(row[2]) / size,
			Visibility: sigmoid(float64(row[3])),
		}
		presenceSum += sigmoid(float64(row[4]))
	}

	return pose, presenceSum / pipeline.LandmarkCount
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
