package stream

import (
	"fmt"
	"time"
)

// NullDecoder is the boundary placeholder for the RTSP demux/decode/
// colour-convert library spec.md §1 explicitly delegates to a media-pipeline
// collaborator ("out of scope ... decode, colour-convert"). It never
// produces a decoded frame, so RTSPPipeline.deliverAccessUnit logs and drops
// every access unit rather than calling onFrame — the worker still runs its
// full reconnect state machine against a live RTSP source, it just never
// sees pixels. A real decoder (e.g. a cgo ffmpeg/libav binding) satisfies
// the same FrameDecoder interface and plugs in without touching the rest of
// the pipeline.
type NullDecoder struct{}

func (NullDecoder) Decode(au [][]byte, pts time.Time) ([]byte, int, int, error) {
	return nil, 0, 0, fmt.Errorf("stream: no pixel decoder compiled in")
}
