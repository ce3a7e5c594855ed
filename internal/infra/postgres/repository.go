package postgres

import (
	"context"
	"fmt"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO analysis_jobs (
			id, user_id, video_key, output_key, status, file_size,
			total_frames, processed_frames, detected_frames, failed_frames,
			detection_rate, failed_rate, average_visibility,
			resolution, fps, video_duration, codec,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoKey, job.OutputKey, string(job.Status), job.FileSize,
		job.TotalFrames, job.ProcessedFrames, job.DetectedFrames, job.FailedFrames,
		job.DetectionRate, job.FailedRate, job.AverageVisibility,
		job.Resolution, job.FPS, job.VideoDuration, job.Codec,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE analysis_jobs SET
			status=$2, output_key=$3,
			total_frames=$4, processed_frames=$5, detected_frames=$6, failed_frames=$7,
			detection_rate=$8, failed_rate=$9, average_visibility=$10,
			resolution=$11, fps=$12, video_duration=$13, codec=$14,
			attempt=$15, error_message=$16, updated_at=$17, completed_at=$18
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.OutputKey,
		job.TotalFrames, job.ProcessedFrames, job.DetectedFrames, job.FailedFrames,
		job.DetectionRate, job.FailedRate, job.AverageVisibility,
		job.Resolution, job.FPS, job.VideoDuration, job.Codec,
		job.Attempt, job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := `
		SELECT id, user_id, video_key, output_key, status, file_size,
			total_frames, processed_frames, detected_frames, failed_frames,
			detection_rate, failed_rate, average_visibility,
			resolution, fps, video_duration, codec,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		FROM analysis_jobs WHERE id=$1`

	job := &entity.Job{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.VideoKey, &job.OutputKey, &status, &job.FileSize,
		&job.TotalFrames, &job.ProcessedFrames, &job.DetectedFrames, &job.FailedFrames,
		&job.DetectionRate, &job.FailedRate, &job.AverageVisibility,
		&job.Resolution, &job.FPS, &job.VideoDuration, &job.Codec,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}
