package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func square() []Point2D {
	return []Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
}

func TestPointInPolygonInside(t *testing.T) {
	require.True(t, PointInPolygon(Point2D{X: 5, Y: 5}, square()))
}

func TestPointInPolygonOutside(t *testing.T) {
	require.False(t, PointInPolygon(Point2D{X: 50, Y: 50}, square()))
}

func TestPointInPolygonDegenerate(t *testing.T) {
	require.False(t, PointInPolygon(Point2D{X: 0, Y: 0}, []Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}}))
}
