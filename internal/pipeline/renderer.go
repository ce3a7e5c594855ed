package pipeline

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Renderer draws a pose overlay onto a frame in place. A nil pose leaves the
// image itself untouched apart from the status label, preserving output
// frame-count parity.
type Renderer interface {
	Render(frame *gocv.Mat, pose *PoseResult, index, total int) error
}

var (
	edgeColor     = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	pointColor    = color.RGBA{R: 255, G: 80, B: 0, A: 0}
	detectedColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	noPoseColor   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// SkeletonRenderer draws the anatomical connection graph. Edges with either
// endpoint below Threshold are skipped entirely rather than drawn degraded.
type SkeletonRenderer struct {
	Threshold float64
}

func (r SkeletonRenderer) Render(frame *gocv.Mat, pose *PoseResult, index, total int) error {
	w := frame.Cols()
	h := frame.Rows()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("render: empty frame buffer at index %d", index)
	}

	if pose != nil {
		for _, c := range VisibleConnections(pose, r.Threshold) {
			a := landmarkPoint(pose.Landmarks[c.A], w, h)
			b := landmarkPoint(pose.Landmarks[c.B], w, h)
			gocv.Line(frame, a, b, edgeColor, 2)
		}
		for _, lm := range pose.Landmarks {
			if lm.Visibility < r.Threshold {
				continue
			}
			gocv.Circle(frame, landmarkPoint(lm, w, h), 3, pointColor, -1)
		}
	}

	label, col := frameLabel(pose != nil, index, total)
	gocv.PutText(frame, label, image.Pt(10, 30), gocv.FontHersheySimplex, 0.6, col, 2)
	return nil
}

// VisibleConnections returns the skeleton edges whose endpoints both meet the
// visibility threshold.
func VisibleConnections(pose *PoseResult, threshold float64) []Connection {
	edges := make([]Connection, 0, len(PoseConnections))
	for _, c := range PoseConnections {
		if pose.Landmarks[c.A].Visibility < threshold || pose.Landmarks[c.B].Visibility < threshold {
			continue
		}
		edges = append(edges, c)
	}
	return edges
}

func landmarkPoint(lm Landmark, width, height int) image.Point {
	return image.Pt(int(lm.X*float64(width)), int(lm.Y*float64(height)))
}

func frameLabel(detected bool, index, total int) (string, color.RGBA) {
	status := "NO POSE"
	col := noPoseColor
	if detected {
		status = "DETECTED"
		col = detectedColor
	}
	return fmt.Sprintf("Frame: %d/%d | %s", index, total, status), col
}
