package eventrule

import "github.com/ljj727/edge-core-hailo/pkg/nn"

// EvaluateAngleViolation requires at least 3 keypoints at indices 0,1,2
// with visibility >= MinKeypointVisibility. It measures the acute angle
// between v = kp[2]-kp[1] and u = r.Points[1]-r.Points[0], and reports
// DANGER iff that angle exceeds r.AngleThreshold (§4.4).
func EvaluateAngleViolation(r *Rule, detections []nn.Detection) RuleResult {
	result := RuleResult{RuleID: r.ID, Status: StatusSafe}
	if len(r.Points) < 2 {
		return result
	}
	u := nn.Point2D{X: r.Points[1].X - r.Points[0].X, Y: r.Points[1].Y - r.Points[0].Y}

	for _, det := range detections {
		if len(det.Keypoints) < 3 {
			continue
		}
		kp0, kp1, kp2 := det.Keypoints[0], det.Keypoints[1], det.Keypoints[2]
		if kp0.V < MinKeypointVisibility || kp1.V < MinKeypointVisibility || kp2.V < MinKeypointVisibility {
			continue
		}
		v := nn.Point2D{X: kp2.X - kp1.X, Y: kp2.Y - kp1.Y}
		theta := nn.AngleBetween(v, u)
		if theta > float32(r.AngleThreshold) {
			result.Status = StatusDanger
			result.Labels = append(result.Labels, det.ClassName)
		}
	}
	return result
}
