package nn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLetterboxCentersSquareInSquare(t *testing.T) {
	src := make([]byte, 4*4*3)
	dst := make([]byte, 8*8*3)
	info := Letterbox(src, 4, 4, dst, 8, 8)
	require.Equal(t, float32(2), info.Scale)
	require.Equal(t, 0, info.PadX)
	require.Equal(t, 0, info.PadY)
}

func TestLetterboxPadsWideIntoSquare(t *testing.T) {
	src := make([]byte, 16*4*3)
	dst := make([]byte, 8*8*3)
	info := Letterbox(src, 16, 4, dst, 8, 8)
	require.Equal(t, float32(0.5), info.Scale)
	require.Equal(t, 8, info.NewW)
	require.Equal(t, 2, info.NewH)
	require.Equal(t, 0, info.PadX)
	require.Equal(t, 3, info.PadY)

	// Rows above and below the pasted image should be filled with the pad value.
	require.Equal(t, byte(DefaultPadValue), dst[0])
}

func TestLetterboxInverseMapRoundTrips(t *testing.T) {
	src := make([]byte, 16*4*3)
	dst := make([]byte, 8*8*3)
	info := Letterbox(src, 16, 4, dst, 8, 8)

	// A point at the centre of the model input should map back near the
	// centre of the original frame.
	ox, oy := info.ToOriginal(float32(info.PadX)+float32(info.NewW)/2, float32(info.PadY)+float32(info.NewH)/2)
	require.InDelta(t, 8.0, ox, 0.5)
	require.InDelta(t, 2.0, oy, 0.5)
}
