package entity

import (
	"time"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/pipeline"
	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job tracks one video analysis from upload to annotated output.
type Job struct {
	ID        uuid.UUID
	UserID    string
	VideoKey  string
	OutputKey string
	Status    JobStatus
	FileSize  int64

	// Report fields, populated on completion.
	TotalFrames       int
	ProcessedFrames   int
	DetectedFrames    int
	FailedFrames      int
	DetectionRate     float64
	FailedRate        float64
	AverageVisibility float64
	Resolution        string
	FPS               float64
	VideoDuration     float64
	Codec             string

	Attempt      int
	MaxAttempts  int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewJob(userID, videoKey string, fileSize int64, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		VideoKey:    videoKey,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(outputKey string, report *pipeline.Report) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.OutputKey = outputKey
	j.TotalFrames = report.TotalFrames
	j.ProcessedFrames = report.ProcessedFrames
	j.DetectedFrames = report.DetectedFrames
	j.FailedFrames = report.FailedFrames
	j.DetectionRate = report.DetectionRate
	j.FailedRate = report.FailedRate
	j.AverageVisibility = report.AverageVisibility
	j.Resolution = report.Resolution
	j.FPS = report.FPS
	j.VideoDuration = report.Duration
	j.Codec = report.Codec
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
