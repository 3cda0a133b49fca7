package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJPEGEncoderRejectsInvalidDimensions(t *testing.T) {
	e := NewJPEGEncoder()
	_, err := e.Encode(make([]byte, 10), 0, 0, 80)
	require.Error(t, err)
}

func TestJPEGEncoderProducesNonEmptyOutput(t *testing.T) {
	e := NewJPEGEncoder()
	rgb := make([]byte, 4*4*3)
	for i := range rgb {
		rgb[i] = byte(i % 256)
	}
	buf, err := e.Encode(rgb, 4, 4, 80)
	require.NoError(t, err)
	require.NotEmpty(t, buf)
}
