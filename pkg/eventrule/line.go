package eventrule

import "github.com/ljj727/edge-core-hailo/pkg/nn"

// MinKeypointVisibility is the visibility floor below which a keypoint is
// excluded from Line and AngleViolation evaluation (§4.4).
const MinKeypointVisibility = 0.3

// EvaluateLine runs r (a Line rule, points.len >= 2) against every
// detection and returns the max status over all contributing detections,
// plus the class names of those that contributed a non-SAFE status.
//
// If no detection offers a qualifying keypoint, the rule yields SAFE — the
// "later revision" chosen at §9 over the bbox-anchor fallback variant.
func EvaluateLine(r *Rule, detections []nn.Detection) RuleResult {
	result := RuleResult{RuleID: r.ID, Status: StatusSafe}
	if len(r.Points) < 2 {
		return result
	}
	line := nn.LineSegment{A: r.Points[0], B: r.Points[1]}

	for _, det := range detections {
		for _, p := range selectedKeypoints(det, r.KeypointIndices) {
			status := lineStatus(line, p, r.Direction, r.WarningDistance)
			if status > result.Status {
				result.Status = status
			}
			if status > StatusSafe {
				result.Labels = append(result.Labels, det.ClassName)
			}
		}
	}
	return result
}

func lineStatus(line nn.LineSegment, p nn.Point2D, dir nn.Direction, warningDistance float32) Status {
	s := line.SignedSide(p)
	d := line.PerpendicularDistance(p)

	switch dir {
	case nn.DirectionA2B:
		if s > 0 {
			return StatusDanger
		}
	case nn.DirectionB2A:
		if s < 0 {
			return StatusDanger
		}
	case nn.DirectionBoth:
		// A Line rule with direction Both never emits DANGER (§8).
		if d < warningDistance {
			return StatusWarning
		}
		return StatusSafe
	}

	if d < warningDistance {
		return StatusWarning
	}
	return StatusSafe
}

// selectedKeypoints returns the keypoints of det named by indices (or all
// of them if indices is empty), excluding any below MinKeypointVisibility,
// as nn.Point2D for geometry purposes.
func selectedKeypoints(det nn.Detection, indices []int) []nn.Point2D {
	var pts []nn.Point2D
	if len(indices) == 0 {
		for _, kp := range det.Keypoints {
			if kp.V >= MinKeypointVisibility {
				pts = append(pts, nn.Point2D{X: kp.X, Y: kp.Y})
			}
		}
		return pts
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(det.Keypoints) {
			continue
		}
		kp := det.Keypoints[idx]
		if kp.V >= MinKeypointVisibility {
			pts = append(pts, nn.Point2D{X: kp.X, Y: kp.Y})
		}
	}
	return pts
}
