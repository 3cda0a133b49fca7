package eventrule

import (
	"strings"

	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

// EvaluateROI appends r's id to det.EventSettingIDs if det matches r's
// target filter and its reference point falls inside r's polygon (§4.4 ROI
// evaluation). Multi-tag semantics: every matching rule appends, not just
// the first (§9 Open Question — the later revision, chosen over first-match).
func EvaluateROI(r *Rule, det *nn.Detection, frameW, frameH int) bool {
	if !r.MatchesAnyLabel(strings.ToLower(det.ClassName)) {
		return false
	}
	if len(r.Points) < 3 {
		return false
	}

	point := referencePoint(det.BBox, r.DetectionPoint, frameW, frameH)
	if nn.PointInPolygon(point, r.Points) {
		det.EventSettingIDs = append(det.EventSettingIDs, r.ID)
		return true
	}
	return false
}

// referencePoint computes the bbox-derived anchor for dp and normalises it
// by (frameW, frameH), matching the nine-way enum of §6.3.
func referencePoint(bbox nn.BoundingBox, dp DetectionPoint, frameW, frameH int) nn.Point2D {
	x := float32(bbox.X)
	y := float32(bbox.Y)
	w := float32(bbox.Width)
	h := float32(bbox.Height)

	var px, py float32
	switch dp {
	case DPLeftTop:
		px, py = x, y
	case DPCenterTop:
		px, py = x+w/2, y
	case DPRightTop:
		px, py = x+w, y
	case DPLeftCenter:
		px, py = x, y+h/2
	case DPCenter:
		px, py = x+w/2, y+h/2
	case DPRightCenter:
		px, py = x+w, y+h/2
	case DPLeftBottom:
		px, py = x, y+h
	case DPRightBottom:
		px, py = x+w, y+h
	default: // DPCenterBottom
		px, py = x+w/2, y+h
	}

	return nn.Point2D{X: px / float32(frameW), Y: py / float32(frameH)}
}
