package stream

import (
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

type fakeDecoder struct {
	rgb       []byte
	w, h      int
	err       error
	decodedAU [][]byte
}

func (d *fakeDecoder) Decode(au [][]byte, pts time.Time) ([]byte, int, int, error) {
	d.decodedAU = au
	return d.rgb, d.w, d.h, d.err
}

func TestRTSPPipelineDeliversDecodedFrame(t *testing.T) {
	dec := &fakeDecoder{rgb: make([]byte, 10), w: 320, h: 240}
	p := NewRTSPPipeline(logs.NewTestingLog(t), dec)

	var gotW, gotH int
	p.onFrame = func(rgb []byte, width, height int, pts time.Time) {
		gotW, gotH = width, height
	}

	p.deliverAccessUnit([][]byte{{0, 1, 2}}, time.Second)

	require.Equal(t, 320, gotW)
	require.Equal(t, 240, gotH)
	require.Equal(t, [][]byte{{0, 1, 2}}, dec.decodedAU)
	w, h := p.Dimensions()
	require.Equal(t, 320, w)
	require.Equal(t, 240, h)
}

func TestRTSPPipelineSkipsFrameOnDecodeError(t *testing.T) {
	dec := &fakeDecoder{err: errDecodeFailed}
	p := NewRTSPPipeline(logs.NewTestingLog(t), dec)

	called := false
	p.onFrame = func(rgb []byte, width, height int, pts time.Time) {
		called = true
	}

	p.deliverAccessUnit([][]byte{{9}}, 0)
	require.False(t, called)
}

func TestRTSPPipelineCloseIsIdempotent(t *testing.T) {
	p := NewRTSPPipeline(logs.NewTestingLog(t), &fakeDecoder{})
	p.Close()
	p.Close()
}

var errDecodeFailed = &decodeErr{"bad NAL"}

type decodeErr struct{ msg string }

func (e *decodeErr) Error() string { return e.msg }
