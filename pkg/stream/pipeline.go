package stream

import "time"

// FrameCallback is invoked by a MediaPipeline once per decoded RGB frame.
type FrameCallback func(rgb []byte, width, height int, pts time.Time)

// PipelineEvent is a state transition the media pipeline reports
// asynchronously: a successful "Playing" transition, an error, or
// end-of-stream.
type PipelineEvent int

const (
	EventPlaying PipelineEvent = iota
	EventError
	EventEndOfStream
)

// EventCallback is invoked by a MediaPipeline whenever its own internal
// state changes.
type EventCallback func(event PipelineEvent, err error)

// MediaPipeline is the external collaborator that demuxes, decodes, and
// colour-converts a source URL into RGB frames (§1 — deliberately out of
// core scope). The worker only ever drives it through this interface;
// RTSPPipeline is the one concrete adapter this repo ships.
type MediaPipeline interface {
	// Open begins connecting to sourceURL. It must not block past initial
	// setup — connection failures surface later via the EventCallback.
	Open(sourceURL string, onFrame FrameCallback, onEvent EventCallback) error
	// Dimensions returns the stream's declared width/height from its caps,
	// or (0,0) if not yet known.
	Dimensions() (width, height int)
	// Close tears down all pipeline resources. Must make any pending
	// timers/callbacks observably stop firing.
	Close()
}
