package eventrule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

func TestAngleViolationExceedsThreshold(t *testing.T) {
	r := &Rule{
		ID:             "angle1",
		Points:         []nn.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}}, // u = (1,0)
		AngleThreshold: 0.5,                                      // radians
	}
	dets := []nn.Detection{{
		ClassName: "person",
		Keypoints: []nn.Keypoint{
			{X: 0, Y: 0, V: 0.9},
			{X: 0, Y: 0, V: 0.9},
			{X: 0, Y: 1, V: 0.9}, // v = (0,1), perpendicular to u
		},
	}}
	result := EvaluateAngleViolation(r, dets)
	require.Equal(t, StatusDanger, result.Status)
}

func TestAngleViolationBelowThresholdIsSafe(t *testing.T) {
	r := &Rule{
		ID:             "angle1",
		Points:         []nn.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}},
		AngleThreshold: 2.0,
	}
	dets := []nn.Detection{{
		ClassName: "person",
		Keypoints: []nn.Keypoint{
			{X: 0, Y: 0, V: 0.9},
			{X: 0, Y: 0, V: 0.9},
			{X: 1, Y: 0.01, V: 0.9},
		},
	}}
	result := EvaluateAngleViolation(r, dets)
	require.Equal(t, StatusSafe, result.Status)
}

func TestAngleViolationSkipsLowVisibilityKeypoints(t *testing.T) {
	r := &Rule{
		ID:             "angle1",
		Points:         []nn.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}},
		AngleThreshold: 0.1,
	}
	dets := []nn.Detection{{
		ClassName: "person",
		Keypoints: []nn.Keypoint{
			{X: 0, Y: 0, V: 0.1}, // below MinKeypointVisibility
			{X: 0, Y: 0, V: 0.9},
			{X: 0, Y: 1, V: 0.9},
		},
	}}
	result := EvaluateAngleViolation(r, dets)
	require.Equal(t, StatusSafe, result.Status)
}
