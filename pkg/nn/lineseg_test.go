package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignedSideOppositeSignsOnOppositeSides(t *testing.T) {
	line := LineSegment{A: Point2D{X: 0, Y: 0}, B: Point2D{X: 10, Y: 0}}
	above := line.SignedSide(Point2D{X: 5, Y: 5})
	below := line.SignedSide(Point2D{X: 5, Y: -5})
	require.True(t, (above > 0) != (below > 0))
}

func TestPerpendicularDistance(t *testing.T) {
	line := LineSegment{A: Point2D{X: 0, Y: 0}, B: Point2D{X: 10, Y: 0}}
	require.InDelta(t, 5.0, line.PerpendicularDistance(Point2D{X: 3, Y: 5}), 0.001)
}

func TestAngleBetweenParallelVectorsIsZero(t *testing.T) {
	got := AngleBetween(Point2D{X: 1, Y: 0}, Point2D{X: 2, Y: 0})
	require.InDelta(t, 0, got, 0.001)
}

func TestAngleBetweenPerpendicularVectorsIsHalfPi(t *testing.T) {
	got := AngleBetween(Point2D{X: 1, Y: 0}, Point2D{X: 0, Y: 1})
	require.InDelta(t, math.Pi/2, got, 0.001)
}

func TestAngleBetweenFoldsObtuseToAcute(t *testing.T) {
	// Anti-parallel vectors are folded to 0 rather than reported as pi.
	got := AngleBetween(Point2D{X: 1, Y: 0}, Point2D{X: -1, Y: 0})
	require.InDelta(t, 0, got, 0.001)
}

func TestParseDirection(t *testing.T) {
	require.Equal(t, DirectionA2B, ParseDirection("a2b"))
	require.Equal(t, DirectionB2A, ParseDirection("b2a"))
	require.Equal(t, DirectionBoth, ParseDirection("both"))
}
