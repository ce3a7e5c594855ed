package port

import (
	"context"

	"github.com/amansingh107/Dance-Movement-Analyzer/internal/pipeline"
)

// VideoAnalyzer runs the pose-analysis pipeline over a local input file and
// writes the annotated video to outputPath. The call blocks for the whole run.
type VideoAnalyzer interface {
	Analyze(ctx context.Context, inputPath, outputPath string) (*pipeline.Report, error)
}
