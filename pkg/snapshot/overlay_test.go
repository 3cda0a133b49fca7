package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ljj727/edge-core-hailo/pkg/eventrule"
	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

func TestOverlayDrawPreservesDimensions(t *testing.T) {
	o := NewOverlay()
	width, height := 20, 10
	rgb := make([]byte, width*height*3)

	dets := []nn.Detection{{BBox: nn.BoundingBox{X: 2, Y: 2, Width: 5, Height: 5}}}
	rules := []eventrule.Rule{{
		Type:   eventrule.TypeROI,
		Points: []nn.Point2D{{X: 0.1, Y: 0.1}, {X: 0.5, Y: 0.1}, {X: 0.5, Y: 0.5}},
	}}

	out := o.Draw(rgb, width, height, dets, rules)
	require.Len(t, out, width*height*3)
}

func TestOverlayDrawWithNoRulesOrDetections(t *testing.T) {
	o := NewOverlay()
	rgb := make([]byte, 4*4*3)
	out := o.Draw(rgb, 4, 4, nil, nil)
	require.Len(t, out, 4*4*3)
}
