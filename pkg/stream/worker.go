package stream

import (
	"sync"
	"time"

	"github.com/cyclopcam/logs"

	"github.com/ljj727/edge-core-hailo/pkg/batch"
	"github.com/ljj727/edge-core-hailo/pkg/eventrule"
	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

// Inferencer runs one frame through a directly-attached model — used when
// Config.BatchSize <= 1 (§4.5 step 3).
type Inferencer interface {
	RunSingle(rgb []byte, width, height int, confThreshold float32) []nn.Detection
}

// BatchSubmitter hands a frame to a shared batch scheduler — used when
// Config.BatchSize > 1.
type BatchSubmitter interface {
	SubmitFrame(streamID string, rgb []byte, width, height int, sink batch.ResultSink)
}

// SnapshotEncoder produces a JPEG from a decoded RGB frame.
type SnapshotEncoder interface {
	Encode(rgb []byte, width, height int, quality int) ([]byte, error)
}

// Publisher is the fire-and-forget message-bus collaborator — Publish must
// never block the frame loop (§5 Suspension points).
type Publisher interface {
	Publish(subject string, payload []byte) error
}

// OverlayDrawer draws detections and rule geometry onto a decoded RGB frame
// before snapshot encode — the "debug overlay" supplemented feature, gated
// behind Config.PublishOverlay.
type OverlayDrawer interface {
	Draw(rgb []byte, width, height int, detections []nn.Detection, rules []eventrule.Rule) []byte
}

// DetectionCallback, StateChangeCallback and ErrorCallback are the
// registry-level global callbacks copied onto every worker (§4.6).
type (
	DetectionCallback  func(streamID string, detections []nn.Detection)
	StateChangeCallback func(streamID string, state State)
	ErrorCallback        func(streamID string, err error)
)

// Config holds one stream worker's static configuration.
type Config struct {
	SourceURL     string
	ModelID       string // empty means video-only, no inference
	TargetWidth   int
	TargetHeight  int
	BatchSize     int
	PublishImages bool
	PublishOverlay bool
	JPEGQuality   int
	ConfThreshold float32
}

// Worker drives one MediaPipeline through the §4.5 state machine, routes
// its frames through inference and the event compositor, and publishes a
// result envelope per frame.
type Worker struct {
	StreamID string
	Config   Config

	newPipeline func() MediaPipeline
	pipeline    MediaPipeline
	Compositor  *eventrule.Compositor
	Inferencer  Inferencer
	Batch       BatchSubmitter
	Encoder     SnapshotEncoder
	Publisher   Publisher
	Overlay     OverlayDrawer
	log         logs.Log

	mu             sync.Mutex
	state          State
	attempt        int
	reconnectTimer *time.Timer
	lastErr        error
	snapshot       []byte
	frameCount     uint64
	fps            fpsTracker
	frameW, frameH int

	callbacksMu sync.Mutex
	onDetection DetectionCallback
	onState     StateChangeCallback
	onError     ErrorCallback
}

// NewWorker constructs a Worker. newPipeline is called once per start/
// reconnect cycle to obtain a fresh MediaPipeline instance (the pipeline is
// torn down and rebuilt on reconnect, §4.5 "tear down ... -> Starting").
func NewWorker(streamID string, cfg Config, newPipeline func() MediaPipeline, compositor *eventrule.Compositor, log logs.Log) *Worker {
	return &Worker{
		StreamID:    streamID,
		Config:      cfg,
		newPipeline: newPipeline,
		Compositor:  compositor,
		log:         log,
		state:       StateIdle,
	}
}

// SetCallbacks installs the registry-level global callbacks (§4.6 — copied
// onto the worker at creation, updatable in bulk).
func (w *Worker) SetCallbacks(onDetection DetectionCallback, onState StateChangeCallback, onError ErrorCallback) {
	w.callbacksMu.Lock()
	defer w.callbacksMu.Unlock()
	w.onDetection = onDetection
	w.onState = onState
	w.onError = onError
}

func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()

	w.callbacksMu.Lock()
	cb := w.onState
	w.callbacksMu.Unlock()
	if cb != nil {
		cb(w.StreamID, s)
	}
}

// Start transitions Idle -> Starting -> Running (or Error on immediate
// pipeline failure).
func (w *Worker) Start() {
	w.setState(StateStarting)
	w.pipeline = w.newPipeline()
	err := w.pipeline.Open(w.Config.SourceURL, w.handleFrame, w.handlePipelineEvent)
	if err != nil {
		w.reportError(err)
		w.setState(StateError)
		return
	}
}

// Stop tears down the pipeline and any pending reconnect timer, and
// transitions to the terminal Stopped state. No frame may be published
// after Stop returns (§5).
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.reconnectTimer != nil {
		w.reconnectTimer.Stop()
		w.reconnectTimer = nil
	}
	p := w.pipeline
	w.pipeline = nil
	w.mu.Unlock()

	if p != nil {
		p.Close()
	}
	w.setState(StateStopped)
}

// Update performs stop(); start() with a new configuration (§4.5 Update
// semantics). Any configure functions run after Stop but before Start, so a
// caller can re-wire collaborators (Inferencer/Batch/Encoder/...) for the
// new configuration without racing the rebuilt pipeline's first frame.
func (w *Worker) Update(cfg Config, configure ...func(*Worker)) {
	w.Stop()
	w.Config = cfg
	w.mu.Lock()
	w.state = StateIdle
	w.mu.Unlock()
	for _, fn := range configure {
		fn(w)
	}
	w.Start()
}

// ClearInference detaches the model and restarts in video-only mode: no
// model attachment, no inference, envelopes still published. A worker that
// has no model attached is left as it is.
func (w *Worker) ClearInference() {
	w.mu.Lock()
	hadModel := w.Inferencer != nil || w.Batch != nil || w.Config.ModelID != ""
	w.Inferencer = nil
	w.Batch = nil
	w.Config.ModelID = ""
	cfg := w.Config
	w.mu.Unlock()
	if hadModel {
		w.Update(cfg)
	}
}

// Snapshot returns the last JPEG this worker produced, or nil if it hasn't
// produced a frame yet.
func (w *Worker) Snapshot() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

// Dimensions returns the frame width/height auto-detected from the media
// pipeline's caps on the first frame, or (0,0) before any frame arrives.
func (w *Worker) Dimensions() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frameW, w.frameH
}

func (w *Worker) handlePipelineEvent(event PipelineEvent, err error) {
	switch event {
	case EventPlaying:
		w.mu.Lock()
		w.attempt = 0
		w.mu.Unlock()
		w.setState(StateRunning)
	case EventError, EventEndOfStream:
		w.reportError(err)
		w.scheduleReconnect()
	}
}

func (w *Worker) reportError(err error) {
	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()

	w.callbacksMu.Lock()
	cb := w.onError
	w.callbacksMu.Unlock()
	if cb != nil && err != nil {
		cb(w.StreamID, err)
	}
}

// scheduleReconnect implements the linear-backoff reconnect of §4.5:
// delay = 3s * attempt_count, capped at MaxReconnectAttempts, after which
// the worker gives up and transitions to the terminal-unless-restarted
// Error state.
func (w *Worker) scheduleReconnect() {
	w.mu.Lock()
	if w.state == StateStopped {
		w.mu.Unlock()
		return
	}
	w.attempt++
	attempt := w.attempt
	w.mu.Unlock()

	if attempt >= MaxReconnectAttempts {
		w.setState(StateError)
		return
	}

	w.setState(StateReconnecting)
	delay := time.Duration(ReconnectBackoffUnit*attempt) * time.Second

	w.mu.Lock()
	w.reconnectTimer = time.AfterFunc(delay, w.reconnectNow)
	w.mu.Unlock()
}

func (w *Worker) reconnectNow() {
	w.mu.Lock()
	if w.state != StateReconnecting {
		w.mu.Unlock()
		return
	}
	p := w.pipeline
	w.pipeline = nil
	w.mu.Unlock()

	if p != nil {
		p.Close()
	}

	w.setState(StateStarting)
	w.pipeline = w.newPipeline()
	if err := w.pipeline.Open(w.Config.SourceURL, w.handleFrame, w.handlePipelineEvent); err != nil {
		w.reportError(err)
		w.scheduleReconnect()
	}
}
