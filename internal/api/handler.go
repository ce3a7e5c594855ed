package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/domain/entity"
	"github.com/amansingh107/Dance-Movement-Analyzer/internal/domain/port"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var allowedExtensions = map[string]bool{
	".mp4": true,
	".avi": true,
	".mov": true,
}

// Handler is the thin HTTP surface in front of the analysis worker: it stores
// uploads, creates job records and enqueues analysis requests. All heavy
// lifting happens in the worker.
type Handler struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	publisher port.RequestPublisher
	logger    *zap.Logger

	maxUploadBytes int64
	maxRetries     int
}

type HandlerConfig struct {
	MaxUploadSizeMB int64
	MaxRetries      int
}

func NewHandler(repo port.JobRepository, storage port.VideoStorage, publisher port.RequestPublisher, logger *zap.Logger, cfg HandlerConfig) *Handler {
	return &Handler{
		repo:           repo,
		storage:        storage,
		publisher:      publisher,
		logger:         logger,
		maxUploadBytes: cfg.MaxUploadSizeMB * 1024 * 1024,
		maxRetries:     cfg.MaxRetries,
	}
}

// Router wires all routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/analyze", h.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs/{job_id}", h.handleJobStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/download/{job_id}", h.handleDownload).Methods(http.MethodGet)
	r.HandleFunc("/api/cleanup/{job_id}", h.handleCleanup).Methods(http.MethodDelete)
	return r
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Dance Movement Analysis API",
		"version": "1.0.0",
		"status":  "operational",
		"endpoints": map[string]string{
			"health":   "/health",
			"upload":   "/api/analyze (POST)",
			"status":   "/api/jobs/{job_id} (GET)",
			"download": "/api/download/{job_id} (GET)",
			"cleanup":  "/api/cleanup/{job_id} (DELETE)",
		},
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "dance-movement-analyzer",
	})
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("video")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file too large, maximum size %dMB", h.maxUploadBytes/(1024*1024)))
			return
		}
		writeError(w, http.StatusBadRequest, "missing video file in multipart form")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid file type %q, allowed: .mp4, .avi, .mov", ext))
		return
	}

	jobID := uuid.New()
	userID := r.FormValue("user_id")
	if userID == "" {
		userID = "anonymous"
	}
	videoKey := fmt.Sprintf("%s/%s_input%s", userID, jobID.String(), ext)

	if err := h.storage.UploadVideo(r.Context(), videoKey, file, header.Size, contentTypeFor(ext)); err != nil {
		h.logger.Error("upload to storage failed", zap.Error(err), zap.String("video_key", videoKey))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	job := entity.NewJob(userID, videoKey, header.Size, h.maxRetries)
	job.ID = jobID
	if err := h.repo.Create(r.Context(), job); err != nil {
		h.logger.Error("create job failed", zap.Error(err), zap.String("job_id", jobID.String()))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	msg := entity.AnalysisRequestMessage{
		JobID:     jobID,
		UserID:    userID,
		VideoKey:  videoKey,
		FileSize:  header.Size,
		UserEmail: r.FormValue("user_email"),
	}
	body, _ := json.Marshal(msg)
	if err := h.publisher.PublishRequest(r.Context(), body); err != nil {
		h.logger.Error("enqueue analysis request failed", zap.Error(err), zap.String("job_id", jobID.String()))
		writeError(w, http.StatusInternalServerError, "failed to enqueue analysis")
		return
	}

	h.logger.Info("analysis request accepted",
		zap.String("job_id", jobID.String()),
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":       jobID.String(),
		"status":       string(entity.JobStatusPending),
		"status_url":   "/api/jobs/" + jobID.String(),
		"download_url": "/api/download/" + jobID.String(),
		"cleanup_url":  "/api/cleanup/" + jobID.String(),
	})
}

func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobFromRequest(w, r)
	if !ok {
		return
	}

	resp := map[string]any{
		"job_id":  job.ID.String(),
		"status":  string(job.Status),
		"attempt": job.Attempt,
	}
	if job.Status == entity.JobStatusCompleted {
		resp["total_frames"] = job.TotalFrames
		resp["processed_frames"] = job.ProcessedFrames
		resp["detected_frames"] = job.DetectedFrames
		resp["failed_frames"] = job.FailedFrames
		resp["detection_rate"] = fmt.Sprintf("%.2f%%", job.DetectionRate)
		resp["failed_rate"] = fmt.Sprintf("%.2f%%", job.FailedRate)
		resp["average_visibility"] = job.AverageVisibility
		resp["keypoints_count"] = job.DetectedFrames
		resp["resolution"] = job.Resolution
		resp["fps"] = job.FPS
		resp["duration"] = fmt.Sprintf("%.2fs", job.VideoDuration)
		resp["codec"] = job.Codec
		resp["download_url"] = "/api/download/" + job.ID.String()
	}
	if job.Status == entity.JobStatusFailed {
		resp["error"] = job.ErrorMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobFromRequest(w, r)
	if !ok {
		return
	}
	if job.Status != entity.JobStatusCompleted || job.OutputKey == "" {
		writeError(w, http.StatusNotFound, "annotated video not available for job "+job.ID.String())
		return
	}

	obj, size, err := h.storage.OpenAnnotated(r.Context(), job.OutputKey)
	if err != nil {
		h.logger.Error("open annotated video failed", zap.Error(err), zap.String("output_key", job.OutputKey))
		writeError(w, http.StatusNotFound, "annotated video not found")
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="analyzed_%s.mp4"`, job.ID.String()))
	if _, err := io.Copy(w, obj); err != nil {
		h.logger.Warn("download interrupted", zap.Error(err), zap.String("job_id", job.ID.String()))
	}
}

func (h *Handler) handleCleanup(w http.ResponseWriter, r *http.Request) {
	job, ok := h.jobFromRequest(w, r)
	if !ok {
		return
	}

	deleted := make([]string, 0, 2)
	if job.VideoKey != "" {
		if err := h.storage.DeleteUpload(r.Context(), job.VideoKey); err != nil {
			h.logger.Warn("could not delete upload", zap.Error(err), zap.String("key", job.VideoKey))
		} else {
			deleted = append(deleted, job.VideoKey)
		}
	}
	if job.OutputKey != "" {
		if err := h.storage.DeleteAnnotated(r.Context(), job.OutputKey); err != nil {
			h.logger.Warn("could not delete annotated video", zap.Error(err), zap.String("key", job.OutputKey))
		} else {
			deleted = append(deleted, job.OutputKey)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":        job.ID.String(),
		"deleted_files": deleted,
		"count":         len(deleted),
	})
}

func (h *Handler) jobFromRequest(w http.ResponseWriter, r *http.Request) (*entity.Job, bool) {
	id, err := uuid.Parse(mux.Vars(r)["job_id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return nil, false
	}
	job, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found: "+id.String())
		return nil, false
	}
	return job, true
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".avi":
		return "video/x-msvideo"
	case ".mov":
		return "video/quicktime"
	default:
		return "video/mp4"
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

// Serve runs the API server until ctx is cancelled.
func Serve(ctx context.Context, addr string, h *Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: h.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}
