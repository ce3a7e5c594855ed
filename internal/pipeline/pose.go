package pipeline

// LandmarkCount is the fixed size of a pose landmark set (MediaPipe Pose
// topology).
const LandmarkCount = 33

// Landmark is one tracked anatomical point. Coordinates are normalized to the
// frame (0..1); Visibility is the model's confidence that the point is visible.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// PoseResult is the full landmark set detected for a single frame. It is
// produced by a Detector and never carried across frames.
type PoseResult struct {
	Landmarks [LandmarkCount]Landmark
}

// AverageVisibility returns the mean visibility across all landmarks.
func (p *PoseResult) AverageVisibility() float64 {
	var sum float64
	for _, lm := range p.Landmarks {
		sum += lm.Visibility
	}
	return sum / LandmarkCount
}

// Connection is an edge of the anatomical connection graph, referencing two
// landmark indices.
type Connection struct {
	A, B int
}

// PoseConnections is the skeleton edge set drawn by the overlay renderer.
var PoseConnections = []Connection{
	// face
	{0, 1}, {1, 2}, {2, 3}, {3, 7},
	{0, 4}, {4, 5}, {5, 6}, {6, 8},
	{9, 10},
	// arms
	{11, 12},
	{11, 13}, {13, 15}, {15, 17}, {15, 19}, {15, 21}, {17, 19},
	{12, 14}, {14, 16}, {16, 18}, {16, 20}, {16, 22}, {18, 20},
	// torso
	{11, 23}, {12, 24}, {23, 24},
	// legs
	{23, 25}, {24, 26},
	{25, 27}, {26, 28},
	{27, 29}, {28, 30},
	{29, 31}, {30, 32},
	{27, 31}, {28, 32},
}

// FrameOutcome tags the result of running detection on one frame. Absence of a
// pose is a normal outcome, not a fault.
type FrameOutcome int

const (
	FrameNotDetected FrameOutcome = iota
	FrameDetected
	FrameFaulted
)

func (o FrameOutcome) String() string {
	switch o {
	case FrameDetected:
		return "detected"
	case FrameFaulted:
		return "faulted"
	default:
		return "not_detected"
	}
}
