package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/domain/entity"
)

type fakeRepo struct {
	jobs      map[uuid.UUID]*entity.Job
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[uuid.UUID]*entity.Job)}
}

func (r *fakeRepo) Create(ctx context.Context, job *entity.Job) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, job *entity.Job) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

type fakeStorage struct {
	uploaded  map[string][]byte
	annotated map[string][]byte
	deleted   []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		uploaded:  make(map[string][]byte),
		annotated: make(map[string][]byte),
	}
}

func (s *fakeStorage) UploadVideo(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.uploaded[key] = data
	return nil
}

func (s *fakeStorage) DownloadVideo(ctx context.Context, key, destPath string) error {
	return errors.New("not implemented")
}

func (s *fakeStorage) UploadAnnotated(ctx context.Context, key, srcPath string) error {
	return errors.New("not implemented")
}

func (s *fakeStorage) OpenAnnotated(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	data, ok := s.annotated[key]
	if !ok {
		return nil, 0, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

func (s *fakeStorage) DeleteUpload(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStorage) DeleteAnnotated(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

type fakeRequestPublisher struct {
	requests [][]byte
	err      error
}

func (p *fakeRequestPublisher) PublishRequest(ctx context.Context, msg []byte) error {
	if p.err != nil {
		return p.err
	}
	p.requests = append(p.requests, msg)
	return nil
}

type apiFixture struct {
	repo    *fakeRepo
	storage *fakeStorage
	pub     *fakeRequestPublisher
	handler *Handler
}

func newAPIFixture() *apiFixture {
	f := &apiFixture{
		repo:    newFakeRepo(),
		storage: newFakeStorage(),
		pub:     &fakeRequestPublisher{},
	}
	f.handler = NewHandler(f.repo, f.storage, f.pub, zap.NewNop(), HandlerConfig{
		MaxUploadSizeMB: 1,
		MaxRetries:      3,
	})
	return f
}

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("video", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestAnalyzeAcceptsUpload(t *testing.T) {
	f := newAPIFixture()
	body, contentType := multipartUpload(t, "dance.mp4", []byte("fake video bytes"), map[string]string{
		"user_id":    "user-7",
		"user_email": "dancer@example.com",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	jobID, err := uuid.Parse(resp["job_id"].(string))
	require.NoError(t, err)
	assert.Equal(t, "PENDING", resp["status"])
	assert.Equal(t, "/api/jobs/"+jobID.String(), resp["status_url"])

	job := f.repo.jobs[jobID]
	require.NotNil(t, job)
	assert.Equal(t, "user-7", job.UserID)
	assert.Contains(t, job.VideoKey, "user-7/"+jobID.String()+"_input.mp4")
	assert.Equal(t, []byte("fake video bytes"), f.storage.uploaded[job.VideoKey])

	require.Len(t, f.pub.requests, 1)
	var msg entity.AnalysisRequestMessage
	require.NoError(t, json.Unmarshal(f.pub.requests[0], &msg))
	assert.Equal(t, jobID, msg.JobID)
	assert.Equal(t, "dancer@example.com", msg.UserEmail)
}

func TestAnalyzeDefaultsAnonymousUser(t *testing.T) {
	f := newAPIFixture()
	body, contentType := multipartUpload(t, "clip.avi", []byte("x"), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	for key := range f.storage.uploaded {
		assert.True(t, strings.HasPrefix(key, "anonymous/"))
	}
}

func TestAnalyzeRejectsUnsupportedExtension(t *testing.T) {
	f := newAPIFixture()
	body, contentType := multipartUpload(t, "malware.exe", []byte("x"), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid file type")
	assert.Empty(t, f.storage.uploaded)
	assert.Empty(t, f.pub.requests)
}

func TestAnalyzeRejectsMissingFile(t *testing.T) {
	f := newAPIFixture()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("user_id", "user-1"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRejectsOversizedUpload(t *testing.T) {
	f := newAPIFixture()
	// 2MB payload against a 1MB limit.
	body, contentType := multipartUpload(t, "big.mp4", make([]byte, 2*1024*1024), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, f.storage.uploaded)
}

func TestJobStatusUnknownJob(t *testing.T) {
	f := newAPIFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobStatusCompletedIncludesReport(t *testing.T) {
	f := newAPIFixture()
	job := entity.NewJob("user-1", "user-1/clip.mp4", 100, 3)
	job.Status = entity.JobStatusCompleted
	job.OutputKey = "user-1/annotated.mp4"
	job.TotalFrames = 180
	job.ProcessedFrames = 180
	job.DetectedFrames = 171
	job.DetectionRate = 95.0
	job.FailedRate = 1.11
	job.AverageVisibility = 0.82
	job.Resolution = "1920x1080"
	job.FPS = 30
	job.VideoDuration = 6
	job.Codec = "mp4v"
	f.repo.jobs[job.ID] = job

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "95.00%", resp["detection_rate"])
	assert.Equal(t, "6.00s", resp["duration"])
	assert.Equal(t, float64(171), resp["keypoints_count"])
	assert.Equal(t, "/api/download/"+job.ID.String(), resp["download_url"])
}

func TestJobStatusFailedIncludesError(t *testing.T) {
	f := newAPIFixture()
	job := entity.NewJob("user-1", "user-1/clip.mp4", 100, 3)
	job.MarkFailed("invalid input: video file is empty")
	f.repo.jobs[job.ID] = job

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "video file is empty")
}

func TestDownloadPendingJobNotFound(t *testing.T) {
	f := newAPIFixture()
	job := entity.NewJob("user-1", "user-1/clip.mp4", 100, 3)
	f.repo.jobs[job.ID] = job

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadStreamsAnnotatedVideo(t *testing.T) {
	f := newAPIFixture()
	job := entity.NewJob("user-1", "user-1/clip.mp4", 100, 3)
	job.Status = entity.JobStatusCompleted
	job.OutputKey = "user-1/annotated.mp4"
	f.repo.jobs[job.ID] = job
	f.storage.annotated[job.OutputKey] = []byte("annotated bytes")

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), job.ID.String())
	assert.Equal(t, "annotated bytes", rec.Body.String())
}

func TestCleanupDeletesBothObjects(t *testing.T) {
	f := newAPIFixture()
	job := entity.NewJob("user-1", "user-1/clip.mp4", 100, 3)
	job.OutputKey = "user-1/annotated.mp4"
	f.repo.jobs[job.ID] = job

	req := httptest.NewRequest(http.MethodDelete, "/api/cleanup/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"user-1/clip.mp4", "user-1/annotated.mp4"}, f.storage.deleted)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["count"])
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
