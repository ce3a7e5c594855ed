package pipeline

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// VideoMeta carries the properties of an opened input container. It is
// read-only for the duration of a run.
type VideoMeta struct {
	FrameCount int
	FPS        float64
	Width      int
	Height     int
}

// Duration returns the declared video length in seconds.
func (m VideoMeta) Duration() float64 {
	if m.FPS <= 0 {
		return 0
	}
	return float64(m.FrameCount) / m.FPS
}

// FrameSource yields decoded frames in temporal order. The sequence is lazy,
// finite and non-restartable; Read returning false signals end of stream, not
// an error. Frames returned by Read are owned by the caller.
type FrameSource interface {
	Meta() VideoMeta
	Read() (*gocv.Mat, bool)
	Close() error
}

// SourceOpener opens an input container, validating it up front.
type SourceOpener interface {
	Open(path string) (FrameSource, error)
}

// FileSourceOpener opens video files through OpenCV.
type FileSourceOpener struct {
	MaxFileSizeMB  int64
	MaxDurationSec float64
}

// Open validates the file and its container properties before any frame is
// decoded. All violations are terminal input errors, distinct from per-frame
// failures.
func (o FileSourceOpener) Open(path string) (FrameSource, error) {
	if err := checkInputFile(path, o.MaxFileSizeMB); err != nil {
		return nil, err
	}

	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open container %s: %v", ErrInvalidInput, path, err)
	}

	meta := VideoMeta{
		FrameCount: int(cap.Get(gocv.VideoCaptureFrameCount)),
		FPS:        cap.Get(gocv.VideoCaptureFPS),
		Width:      int(cap.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(cap.Get(gocv.VideoCaptureFrameHeight)),
	}

	if err := ValidateMeta(meta, o.MaxDurationSec); err != nil {
		cap.Close()
		return nil, err
	}

	return &fileSource{cap: cap, meta: meta}, nil
}

// checkInputFile rejects missing, empty and oversized files before OpenCV
// touches them.
func checkInputFile(path string, maxSizeMB int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: video file not found: %s", ErrInvalidInput, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: video file is empty: %s", ErrInvalidInput, path)
	}
	if maxSizeMB > 0 && info.Size() > maxSizeMB*1024*1024 {
		return fmt.Errorf("%w: video file too large: %.2fMB (max %dMB)",
			ErrInvalidInput, float64(info.Size())/(1024*1024), maxSizeMB)
	}
	return nil
}

// ValidateMeta checks container properties. A video with zero moving subjects
// is valid input; a container reporting zero frames or zero dimensions is not.
func ValidateMeta(meta VideoMeta, maxDurationSec float64) error {
	if meta.FPS <= 0 || meta.FPS > 240 {
		return fmt.Errorf("%w: invalid fps %.2f", ErrInvalidInput, meta.FPS)
	}
	if meta.FrameCount <= 0 {
		return fmt.Errorf("%w: video has no frames", ErrInvalidInput)
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return fmt.Errorf("%w: invalid resolution %dx%d", ErrInvalidInput, meta.Width, meta.Height)
	}
	if maxDurationSec > 0 && meta.Duration() > maxDurationSec {
		return fmt.Errorf("%w: video too long: %.2fs (max %.0fs)",
			ErrInvalidInput, meta.Duration(), maxDurationSec)
	}
	return nil
}

type fileSource struct {
	cap  *gocv.VideoCapture
	meta VideoMeta
}

func (s *fileSource) Meta() VideoMeta { return s.meta }

// Read yields the next decoded frame. Only a capture miss ends the stream; a
// frame that decoded to an empty buffer is still yielded so the caller can
// account for it as a faulted frame instead of a premature end of stream.
func (s *fileSource) Read() (*gocv.Mat, bool) {
	frame := gocv.NewMat()
	if ok := s.cap.Read(&frame); !ok {
		frame.Close()
		return nil, false
	}
	return &frame, true
}

func (s *fileSource) Close() error {
	return s.cap.Close()
}
