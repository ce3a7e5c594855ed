// Package onnx provides an alternative pose detector backend running the
// landmark model directly on ONNX Runtime.
package onnx

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/pipeline"
	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const valuesPerLandmark = 5

var (
	initOnce sync.Once
	initErr  error
)

// initRuntime brings up the ONNX Runtime environment once per process.
// Sessions are still created per run.
func initRuntime(libraryPath string) error {
	initOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

type DetectorFactory struct {
	modelPath   string
	libraryPath string
	log         *zap.Logger
}

func NewDetectorFactory(modelPath, libraryPath string, log *zap.Logger) *DetectorFactory {
	return &DetectorFactory{modelPath: modelPath, libraryPath: libraryPath, log: log}
}

func (f *DetectorFactory) New(cfg pipeline.DetectorConfig) (pipeline.Detector, error) {
	if err := initRuntime(f.libraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	inputSize := inputSizeFor(cfg.ModelComplexity)

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()
	options.SetIntraOpNumThreads(runtime.NumCPU())

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputSize), int64(inputSize)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, pipeline.LandmarkCount, valuesPerLandmark))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		f.modelPath,
		[]string{"input"},
		[]string{"landmarks"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	f.log.Info("pose detector acquired",
		zap.String("backend", "onnx"),
		zap.Int("model_complexity", cfg.ModelComplexity),
	)

	return &detector{
		session:      session,
		input:        inputTensor,
		output:       outputTensor,
		inputSize:    inputSize,
		minDetection: cfg.MinDetectionConfidence,
		minTracking:  cfg.MinTrackingConfidence,
	}, nil
}

func inputSizeFor(complexity int) int {
	if complexity <= 0 {
		return 224
	}
	return 256
}

type detector struct {
	session      *ort.AdvancedSession
	input        *ort.Tensor[float32]
	output       *ort.Tensor[float32]
	inputSize    int
	minDetection float64
	minTracking  float64
	tracking     bool
	closed       bool
}

func (d *detector) Detect(frame *gocv.Mat) (*pipeline.PoseResult, error) {
	if d.closed {
		return nil, fmt.Errorf("detect on closed detector")
	}
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("malformed frame buffer")
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	resized := imaging.Resize(img, d.inputSize, d.inputSize, imaging.Lanczos)

	// Fill the input tensor in CHW layout.
	data := d.input.GetData()
	channelSize := d.inputSize * d.inputSize
	for y := 0; y < d.inputSize; y++ {
		offset := y * d.inputSize
		for x := 0; x < d.inputSize; x++ {
			i := offset + x
			r, g, b, _ := resized.At(x, y).RGBA()
			data[i] = float32(r>>8) / 255.0
			data[channelSize+i] = float32(g>>8) / 255.0
			data[channelSize*2+i] = float32(b>>8) / 255.0
		}
	}

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	pose, presence := parseLandmarks(d.output.GetData(), d.inputSize)

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
	d.session.Destroy()
	d.input.Destroy()
	d.output.Destroy()
	return nil
}

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
