package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/domain/entity"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/domain/port"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/infra/metrics"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/pipeline"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// AnalyzeVideoUseCase consumes analysis requests: it downloads the uploaded
// video, runs the pose pipeline over it, uploads the annotated result and
// records the run report on the job.
type AnalyzeVideoUseCase struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	analyzer  port.VideoAnalyzer
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	cfg       AnalyzeVideoConfig
}

type AnalyzeVideoConfig struct {
	TempDir    string
	MaxRetries int

	// AnalyzeAttempts bounds the in-process retries of the pipeline itself
	// before the message-level retry machinery takes over.
	AnalyzeAttempts int
	// RetryBaseDelay is the backoff unit between in-process attempts.
	RetryBaseDelay time.Duration
}

func NewAnalyzeVideoUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	analyzer port.VideoAnalyzer,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg AnalyzeVideoConfig,
) *AnalyzeVideoUseCase {
	if cfg.AnalyzeAttempts <= 0 {
		cfg.AnalyzeAttempts = 2
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	return &AnalyzeVideoUseCase{
		repo:      repo,
		storage:   storage,
		analyzer:  analyzer,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
	}
}

func (uc *AnalyzeVideoUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "AnalyzeVideoUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.AnalysisRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.analyzePipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *AnalyzeVideoUseCase) analyzePipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.AnalysisRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download input video
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "download_video")
	inputPath := filepath.Join(workDir, "input.mp4")
	if err := uc.storage.DownloadVideo(ctx2, msg.VideoKey, inputPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Run the pose pipeline
	anStart := time.Now()
	ctx3, spanAn := tracer.Start(ctx, "analyze_video")
	outputPath := filepath.Join(workDir, "output.mp4")
	report, err := uc.analyzeWithRetry(ctx3, inputPath, outputPath, log)
	spanAn.End()
	if err != nil {
		log.Error("analysis failed", zap.Error(err))
		if errors.Is(err, pipeline.ErrInvalidInput) {
			// A malformed upload never gets better; don't requeue it.
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "invalid input: "+err.Error())
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "analyze_video: "+err.Error(), log)
	}
	metrics.JobProcessingDuration.WithLabelValues("analyze").Observe(time.Since(anStart).Seconds())
	metrics.FramesProcessedTotal.Add(float64(report.ProcessedFrames))
	metrics.FramesDetectedTotal.Add(float64(report.DetectedFrames))
	metrics.FramesFailedTotal.Add(float64(report.FailedFrames))

	// Upload annotated video
	upStart := time.Now()
	ctx4, spanUp := tracer.Start(ctx, "upload_annotated")
	outputKey := fmt.Sprintf("%s/annotated_%s.mp4", msg.UserID, job.ID.String())
	if err := uc.storage.UploadAnnotated(ctx4, outputKey, report.OutputPath); err != nil {
		spanUp.End()
		log.Error("annotated upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_annotated: "+err.Error(), log)
	}
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	job.MarkCompleted(outputKey, report)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed successfully",
		zap.Int("processed_frames", report.ProcessedFrames),
		zap.Int("detected_frames", report.DetectedFrames),
		zap.Float64("detection_rate", report.DetectionRate),
		zap.String("codec", report.Codec),
		zap.String("output_key", outputKey),
	)

	return nil
}

// analyzeWithRetry reruns the pipeline on transient failures with exponential
// backoff. Invalid input is not retried: the file will not improve.
func (uc *AnalyzeVideoUseCase) analyzeWithRetry(ctx context.Context, inputPath, outputPath string, log *zap.Logger) (*pipeline.Report, error) {
	var lastErr error
	for attempt := 1; attempt <= uc.cfg.AnalyzeAttempts; attempt++ {
		report, err := uc.analyzer.Analyze(ctx, inputPath, outputPath)
		if err == nil {
			return report, nil
		}
		lastErr = err
		if errors.Is(err, pipeline.ErrInvalidInput) {
			return nil, err
		}
		if attempt < uc.cfg.AnalyzeAttempts {
			delay := uc.cfg.RetryBaseDelay * time.Duration(1<<(attempt-1))
			log.Warn("analysis attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("all %d analysis attempts failed: %w", uc.cfg.AnalyzeAttempts, lastErr)
}

func (uc *AnalyzeVideoUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.AnalysisRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *AnalyzeVideoUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.AnalysisRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *AnalyzeVideoUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.AnalysisStatusMessage{
		JobID:             job.ID,
		UserID:            job.UserID,
		Status:            job.Status,
		VideoKey:          job.VideoKey,
		OutputKey:         job.OutputKey,
		TotalFrames:       job.TotalFrames,
		ProcessedFrames:   job.ProcessedFrames,
		DetectedFrames:    job.DetectedFrames,
		FailedFrames:      job.FailedFrames,
		DetectionRate:     job.DetectionRate,
		AverageVisibility: job.AverageVisibility,
		Duration:          job.VideoDuration,
		ErrorMessage:      job.ErrorMessage,
		Attempt:           job.Attempt,
		MaxAttempts:       job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
