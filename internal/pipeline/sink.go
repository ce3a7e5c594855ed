package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// FrameSink accepts annotated frames in output order. Callers must write
// exactly one frame per source frame so that input and output frame counts
// stay equal.
type FrameSink interface {
	Write(frame *gocv.Mat) error
	// Codec reports the fourcc the sink was opened with.
	Codec() string
	// Path reports the final output path, which may differ from the requested
	// one when the chosen codec forced a container extension.
	Path() string
	Close() error
}

// SinkOpener opens an output container, negotiating a codec from the given
// preference list.
type SinkOpener interface {
	Open(path string, meta VideoMeta, codecs []string) (FrameSink, error)
}

// codecExtensions maps fourcc codes to the container extension they are
// written into.
var codecExtensions = map[string]string{
	"mp4v": ".mp4",
	"avc1": ".mp4",
	"H264": ".mp4",
	"XVID": ".avi",
	"MJPG": ".avi",
	"DIVX": ".avi",
}

// frameWriter is the thin surface of an opened encoder the sink needs.
type frameWriter interface {
	Write(img gocv.Mat) error
	Close() error
}

type writerOpenFunc func(path, fourcc string, meta VideoMeta) (frameWriter, error)

// FileSinkOpener opens video writers through OpenCV.
type FileSinkOpener struct {
	Log *zap.Logger
}

func (o FileSinkOpener) Open(path string, meta VideoMeta, codecs []string) (FrameSink, error) {
	return openWithFallback(path, meta, codecs, openVideoWriter, o.Log)
}

func openVideoWriter(path, fourcc string, meta VideoMeta) (frameWriter, error) {
	w, err := gocv.VideoWriterFile(path, fourcc, meta.FPS, meta.Width, meta.Height, true)
	if err != nil {
		return nil, err
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("encoder rejected codec %s", fourcc)
	}
	return w, nil
}

// openWithFallback tries each candidate codec in order and keeps the first one
// the encoder accepts. It only fails when every candidate fails.
func openWithFallback(path string, meta VideoMeta, codecs []string, open writerOpenFunc, log *zap.Logger) (FrameSink, error) {
	if len(codecs) == 0 {
		return nil, fmt.Errorf("%w: empty codec preference list", ErrOutputOpen)
	}

	var lastErr error
	for _, fourcc := range codecs {
		outPath := pathForCodec(path, fourcc)
		w, err := open(outPath, fourcc, meta)
		if err != nil {
			lastErr = err
			if log != nil {
				log.Warn("codec not accepted, trying next candidate",
					zap.String("codec", fourcc), zap.Error(err))
			}
			continue
		}
		if log != nil {
			log.Info("output opened", zap.String("codec", fourcc), zap.String("path", outPath))
		}
		return &fileSink{w: w, codec: fourcc, path: outPath}, nil
	}

	return nil, fmt.Errorf("%w: no candidate codec accepted (last: %v)", ErrOutputOpen, lastErr)
}

// pathForCodec aligns the output extension with the codec's container.
func pathForCodec(path, fourcc string) string {
	ext, ok := codecExtensions[fourcc]
	if !ok {
		return path
	}
	cur := filepath.Ext(path)
	if strings.EqualFold(cur, ext) {
		return path
	}
	return strings.TrimSuffix(path, cur) + ext
}

type fileSink struct {
	w      frameWriter
	codec  string
	path   string
	closed bool
}

func (s *fileSink) Write(frame *gocv.Mat) error {
	if err := s.w.Write(*frame); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkWrite, err)
	}
	return nil
}

func (s *fileSink) Codec() string { return s.codec }
func (s *fileSink) Path() string  { return s.path }

func (s *fileSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.w.Close()
}
