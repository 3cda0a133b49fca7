// Package nn defines the data model shared by the inference engine, the batch
// scheduler, the event compositor and the stream worker: detections, bounding
// boxes, keypoints, letterbox geometry and model descriptors.
package nn

import "fmt"

// BoundingBox is an integer pixel rectangle in the original frame's coordinate
// system. x+width must not exceed the frame width, and similarly for height.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (b BoundingBox) X2() int { return b.X + b.Width }
func (b BoundingBox) Y2() int { return b.Y + b.Height }

// Valid reports whether b satisfies the bounding-box invariant for a frame of
// size frameW x frameH.
func (b BoundingBox) Valid(frameW, frameH int) bool {
	return b.X >= 0 && b.Y >= 0 && b.Width > 0 && b.Height > 0 &&
		b.X+b.Width <= frameW && b.Y+b.Height <= frameH
}

// ClampToFrame clips b so it fits inside [0,frameW) x [0,frameH), returning
// false if the result would be degenerate (zero area).
func (b BoundingBox) ClampToFrame(frameW, frameH int) (BoundingBox, bool) {
	x1 := clampInt(b.X, 0, frameW)
	y1 := clampInt(b.Y, 0, frameH)
	x2 := clampInt(b.X+b.Width, 0, frameW)
	y2 := clampInt(b.Y+b.Height, 0, frameH)
	if x2 <= x1 || y2 <= y1 {
		return BoundingBox{}, false
	}
	return BoundingBox{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}, true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Keypoint is normalised to [0,1]^2 in the original frame, plus a visibility
// / confidence score also in [0,1].
type Keypoint struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	V float32 `json:"v"`
}

// Detection is one object found by the inference engine, optionally tagged
// by the event compositor with the ids of every rule it matched.
type Detection struct {
	ClassID         uint16     `json:"class_id"`
	ClassName       string     `json:"class"`
	Confidence      float32    `json:"confidence"`
	BBox            BoundingBox `json:"bbox"`
	Keypoints       []Keypoint `json:"keypoints,omitempty"`
	EventSettingIDs []string   `json:"event_setting_ids,omitempty"`
}

// FirstEventSettingID returns the first matched rule id, or "" — used for the
// back-compat singular "event" field of the result-envelope JSON (§6.4).
func (d Detection) FirstEventSettingID() string {
	if len(d.EventSettingIDs) == 0 {
		return ""
	}
	return d.EventSettingIDs[0]
}

// OutputKind distinguishes the two raw-output layouts the accelerator can be
// configured to emit.
type OutputKind int

const (
	OutputNms OutputKind = iota
	OutputRawYolo
)

func (k OutputKind) String() string {
	if k == OutputRawYolo {
		return "raw_yolo"
	}
	return "nms"
}

// Task selects detection-only vs. pose-estimation labelling.
type Task int

const (
	TaskDetect Task = iota
	TaskPose
)

func ParseTask(s string) Task {
	if s == "pose" {
		return TaskPose
	}
	return TaskDetect
}

// ModelDescriptor is derived once, at model-load time, from the accelerator's
// declared input/output metadata, and is immutable thereafter. Labelling
// context (Task/NumKeypoints/ClassLabels) is set separately by Configure.
type ModelDescriptor struct {
	Path               string
	InputW, InputH     int
	BatchSize          int
	OutputKind         OutputKind
	NumClasses         int
	MaxBBoxesPerClass  int
	Task               Task
	NumKeypoints       int
	ClassLabels        []string
}

func (m *ModelDescriptor) ClassName(id int) string {
	if id >= 0 && id < len(m.ClassLabels) {
		return m.ClassLabels[id]
	}
	return "object"
}

func (m *ModelDescriptor) String() string {
	return fmt.Sprintf("%s (%dx%d batch=%d kind=%v classes=%d kp=%d)",
		m.Path, m.InputW, m.InputH, m.BatchSize, m.OutputKind, m.NumClasses, m.NumKeypoints)
}
