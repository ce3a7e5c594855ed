package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Runner drives the read -> detect -> draw -> write loop for one video. A run
// is strictly sequential: the detector handle is stateful and not safe to call
// concurrently with itself. Concurrent runs each get their own Runner
// collaborators and never share state.
type Runner struct {
	sources   SourceOpener
	sinks     SinkOpener
	detectors DetectorFactory
	renderer  Renderer
	cfg       Config
	log       *zap.Logger
}

func NewRunner(sources SourceOpener, sinks SinkOpener, detectors DetectorFactory, renderer Renderer, cfg Config, log *zap.Logger) *Runner {
	return &Runner{
		sources:   sources,
		sinks:     sinks,
		detectors: detectors,
		renderer:  renderer,
		cfg:       cfg,
		log:       log,
	}
}

// Analyze processes one video end to end and returns the run report. Fatal
// errors (invalid input, no usable codec, broken output stream, truncated
// input beyond tolerance) surface as typed errors with no report; per-frame
// detector and render faults are absorbed and only visible in the report
// counters. Source, sink and detector are all released on every exit path.
func (r *Runner) Analyze(ctx context.Context, inputPath, outputPath string) (*Report, error) {
	start := time.Now()

	// Opening
	source, err := r.sources.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer r.closeQuietly("source", source.Close)

	meta := source.Meta()
	r.log.Info("input opened",
		zap.Int("frames", meta.FrameCount),
		zap.Float64("fps", meta.FPS),
		zap.Int("width", meta.Width),
		zap.Int("height", meta.Height),
	)

	sink, err := r.sinks.Open(outputPath, meta, r.cfg.CodecPreferences)
	if err != nil {
		return nil, err
	}
	defer r.closeQuietly("sink", sink.Close)

	detector, err := r.detectors.New(r.cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("acquire detector: %w", err)
	}
	defer r.closeQuietly("detector", detector.Close)

	// Running
	stats := NewRunStatistics(meta.FrameCount)
	if err := r.processFrames(ctx, source, detector, sink, stats, meta); err != nil {
		return nil, err
	}

	// A successful open followed by zero decodable frames is a failed run,
	// distinct from zero detections.
	if stats.ProcessedFrames() == 0 {
		return nil, &RunError{Err: ErrNoFrames}
	}

	if stats.ProcessedFrames() < meta.FrameCount {
		shortfall := float64(meta.FrameCount-stats.ProcessedFrames()) / float64(meta.FrameCount)
		if shortfall > r.cfg.EarlyEndTolerance {
			return nil, &RunError{
				Err: fmt.Errorf("%w: %d of %d declared frames decoded (%.1f%% missing, tolerance %.1f%%)",
					ErrTruncatedStream, stats.ProcessedFrames(), meta.FrameCount,
					shortfall*100, r.cfg.EarlyEndTolerance*100),
				FramesProcessed: stats.ProcessedFrames(),
			}
		}
		r.log.Warn("input ended early within tolerance",
			zap.Int("processed", stats.ProcessedFrames()),
			zap.Int("declared", meta.FrameCount),
		)
	}

	report := stats.BuildReport(meta, sink.Codec(), sink.Path(), time.Since(start).Seconds())
	r.log.Info("analysis complete",
		zap.Int("detected_frames", report.DetectedFrames),
		zap.Int("failed_frames", report.FailedFrames),
		zap.Float64("detection_rate", report.DetectionRate),
	)
	return report, nil
}

func (r *Runner) processFrames(ctx context.Context, source FrameSource, detector Detector, sink FrameSink, stats *RunStatistics, meta VideoMeta) error {
	for {
		select {
		case <-ctx.Done():
			return &RunError{Err: ctx.Err(), FramesProcessed: stats.ProcessedFrames()}
		default:
		}

		frame, ok := source.Read()
		if !ok {
			return nil
		}

		index := stats.ProcessedFrames()

		if frame.Empty() {
			// A buffer that decoded to nothing cannot be detected on or
			// written; it only counts against the run.
			frame.Close()
			stats.Record(FrameFaulted, nil)
			r.log.Warn("undecodable frame buffer", zap.Int("frame", index))
			continue
		}

		// The encoder silently drops frames that do not match the opened
		// dimensions, which would break frame-count parity.
		if frame.Cols() != meta.Width || frame.Rows() != meta.Height {
			gocv.Resize(*frame, frame, image.Pt(meta.Width, meta.Height), 0, 0, gocv.InterpolationLinear)
		}

		outcome, pose := r.detectFrame(detector, frame, index)
		stats.Record(outcome, pose)

		if err := safeRender(r.renderer, frame, pose, index, meta.FrameCount); err != nil {
			// One bad draw never aborts the run; the frame goes out as-is.
			// A frame counts failed at most once.
			if outcome != FrameFaulted {
				stats.RecordRenderFault()
			}
			r.log.Warn("render fault, writing raw frame", zap.Int("frame", index), zap.Error(err))
		}

		err := sink.Write(frame)
		frame.Close()
		if err != nil {
			// A broken output stream makes further writes meaningless. The
			// frame that failed never reached the output.
			return &RunError{Err: err, FramesProcessed: stats.ProcessedFrames() - 1}
		}

		if r.cfg.Progress != nil {
			r.cfg.Progress(stats.ProcessedFrames(), meta.FrameCount)
		}
		if stats.ProcessedFrames()%100 == 0 {
			r.log.Debug("progress",
				zap.Int("processed", stats.ProcessedFrames()),
				zap.Int("total", meta.FrameCount),
			)
		}
	}
}

// detectFrame classifies one frame's detection outcome. A detector fault is
// absorbed here: the frame counts as failed and the run continues.
func (r *Runner) detectFrame(detector Detector, frame *gocv.Mat, index int) (FrameOutcome, *PoseResult) {
	pose, err := safeDetect(detector, frame)
	if err != nil {
		r.log.Warn("detector fault", zap.Int("frame", index), zap.Error(err))
		return FrameFaulted, nil
	}
	if pose == nil {
		return FrameNotDetected, nil
	}
	return FrameDetected, pose
}

func safeDetect(d Detector, frame *gocv.Mat) (pose *PoseResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pose = nil
			err = fmt.Errorf("detector panic: %v", rec)
		}
	}()
	return d.Detect(frame)
}

func safeRender(r Renderer, frame *gocv.Mat, pose *PoseResult, index, total int) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("render panic: %v", rec)
		}
	}()
	return r.Render(frame, pose, index, total)
}

// closeQuietly releases a resource during Finalizing. Release failures are
// logged, never re-raised: the run's outcome is already decided.
func (r *Runner) closeQuietly(name string, close func() error) {
	if err := close(); err != nil {
		r.log.Warn("resource release failed", zap.String("resource", name), zap.Error(err))
	}
}
