package entity

import "github.com/google/uuid"

// AnalysisRequestMessage is the inbound message from the video.analysis queue.
type AnalysisRequestMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`
}

// AnalysisStatusMessage is the outbound message published to the video.status
// queue after each state change.
type AnalysisStatusMessage struct {
	JobID             uuid.UUID `json:"job_id"`
	UserID            string    `json:"user_id"`
	Status            JobStatus `json:"status"`
	VideoKey          string    `json:"video_key"`
	OutputKey         string    `json:"output_key,omitempty"`
	TotalFrames       int       `json:"total_frames,omitempty"`
	ProcessedFrames   int       `json:"processed_frames,omitempty"`
	DetectedFrames    int       `json:"detected_frames,omitempty"`
	FailedFrames      int       `json:"failed_frames,omitempty"`
	DetectionRate     float64   `json:"detection_rate,omitempty"`
	AverageVisibility float64   `json:"average_visibility,omitempty"`
	Duration          float64   `json:"duration_seconds,omitempty"`
	ErrorMessage      string    `json:"error_message,omitempty"`
	Attempt           int       `json:"attempt"`
	MaxAttempts       int       `json:"max_attempts"`
}
