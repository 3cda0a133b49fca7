package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNMSThreshold1OnlySuppressesIdenticalBoxes(t *testing.T) {
	boxes := []Box{
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Score: 0.9, ClassID: 0},
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Score: 0.8, ClassID: 0}, // identical -> IoU 1.0
		{X1: 0, Y1: 0, X2: 10, Y2: 9, Score: 0.7, ClassID: 0},  // near-identical, IoU < 1.0
	}
	kept := NMS(boxes, 1.0)
	require.ElementsMatch(t, []int{0, 2}, kept)
}

func TestNMSThreshold0SuppressesAnyOverlap(t *testing.T) {
	boxes := []Box{
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Score: 0.9, ClassID: 0},
		{X1: 5, Y1: 5, X2: 15, Y2: 15, Score: 0.8, ClassID: 0}, // overlaps slightly
		{X1: 100, Y1: 100, X2: 110, Y2: 110, Score: 0.7, ClassID: 0}, // disjoint
	}
	kept := NMS(boxes, 0.0)
	require.ElementsMatch(t, []int{0, 2}, kept)
}

func TestNMSDoesNotSuppressAcrossClasses(t *testing.T) {
	boxes := []Box{
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Score: 0.9, ClassID: 0},
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Score: 0.8, ClassID: 1},
	}
	kept := NMS(boxes, 0.45)
	require.ElementsMatch(t, []int{0, 1}, kept)
}

func TestNMSEmptyInput(t *testing.T) {
	require.Nil(t, NMS(nil, 0.45))
}
