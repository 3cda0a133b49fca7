package registry

import (
	"sort"
	"sync"

	"github.com/cyclopcam/logs"

	"github.com/ljj727/edge-core-hailo/pkg/apperr"
	"github.com/ljj727/edge-core-hailo/pkg/eventrule"
	"github.com/ljj727/edge-core-hailo/pkg/logutil"
	"github.com/ljj727/edge-core-hailo/pkg/stream"
)

// DefaultMaxStreams is the §4.6 default ceiling on concurrently running
// streams.
const DefaultMaxStreams = 4

// Registry owns the stream_id -> *stream.Worker map (C6). It is the only
// place that creates or destroys a Worker; every worker it creates is
// unique per stream_id and is stopped before being removed.
type Registry struct {
	log         logs.Log
	newPipeline func(cfg stream.Config) stream.MediaPipeline

	mu        sync.Mutex
	maxStreams int
	workers   map[string]*stream.Worker

	callbacksMu sync.Mutex
	onDetection stream.DetectionCallback
	onState     stream.StateChangeCallback
	onError     stream.ErrorCallback
}

// NewRegistry constructs a Registry. newPipeline builds the MediaPipeline for
// a worker's Config — the registry never constructs a MediaPipeline itself,
// keeping RTSP/decode concerns entirely behind the stream package's
// collaborator interfaces.
func NewRegistry(log logs.Log, maxStreams int, newPipeline func(cfg stream.Config) stream.MediaPipeline) *Registry {
	if maxStreams <= 0 {
		maxStreams = DefaultMaxStreams
	}
	return &Registry{
		log:         log,
		newPipeline: newPipeline,
		maxStreams:  maxStreams,
		workers:     map[string]*stream.Worker{},
	}
}

// SetGlobalCallbacks installs the detection/state/error callbacks that get
// copied onto every worker at creation (§4.6) and updates every existing
// worker in bulk.
func (r *Registry) SetGlobalCallbacks(onDetection stream.DetectionCallback, onState stream.StateChangeCallback, onError stream.ErrorCallback) {
	r.callbacksMu.Lock()
	r.onDetection = onDetection
	r.onState = onState
	r.onError = onError
	r.callbacksMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.workers {
		w.SetCallbacks(onDetection, onState, onError)
	}
}

// AddStream creates and starts a new worker for streamID. It returns
// apperr.Conflict if streamID already exists or if the registry is already
// at maxStreams (§4.6, spec.md "max_streams + 1-th add_stream returns
// Conflict"). Any configure functions run against the new worker after
// construction but before Start, so a caller can wire in the Inferencer/
// Batch/Encoder/Publisher/Overlay collaborators without racing the
// pipeline's first frame.
func (r *Registry) AddStream(streamID string, cfg stream.Config, compositor *eventrule.Compositor, configure ...func(*stream.Worker)) (*stream.Worker, error) {
	r.mu.Lock()
	if _, exists := r.workers[streamID]; exists {
		r.mu.Unlock()
		return nil, apperr.New(apperr.Conflict, "stream "+streamID+" already exists")
	}
	if len(r.workers) >= r.maxStreams {
		r.mu.Unlock()
		return nil, apperr.New(apperr.Conflict, "max_streams reached")
	}

	r.callbacksMu.Lock()
	onDet, onState, onErr := r.onDetection, r.onState, r.onError
	r.callbacksMu.Unlock()

	workerLog := logutil.NewPrefixLogger(r.log, "["+streamID+"]")
	w := stream.NewWorker(streamID, cfg, func() stream.MediaPipeline { return r.newPipeline(cfg) }, compositor, workerLog)
	w.SetCallbacks(onDet, onState, onErr)
	for _, fn := range configure {
		fn(w)
	}
	r.workers[streamID] = w
	r.mu.Unlock()

	w.Start()
	return w, nil
}

// RemoveStream stops and removes the worker for streamID. Returns
// apperr.NotFound if no such stream exists.
func (r *Registry) RemoveStream(streamID string) error {
	r.mu.Lock()
	w, exists := r.workers[streamID]
	if !exists {
		r.mu.Unlock()
		return apperr.New(apperr.NotFound, "stream "+streamID+" not found")
	}
	delete(r.workers, streamID)
	r.mu.Unlock()

	w.Stop()
	return nil
}

// UpdateStream re-applies configuration to an existing worker (stop/start,
// §4.5 Update semantics). Any configure functions run after the worker's
// Stop but before Start, so a caller can re-wire Inferencer/Batch to a new
// model; Stop itself leaves those collaborators as they were. Returns apperr.NotFound if no
// such stream exists.
func (r *Registry) UpdateStream(streamID string, cfg stream.Config, configure ...func(*stream.Worker)) error {
	w, err := r.get(streamID)
	if err != nil {
		return err
	}
	w.Update(cfg, configure...)
	return nil
}

// ClearInference detaches the model from a running stream, leaving it in
// video-only mode. Returns apperr.NotFound if no such stream exists.
func (r *Registry) ClearInference(streamID string) error {
	w, err := r.get(streamID)
	if err != nil {
		return err
	}
	w.ClearInference()
	return nil
}

// Snapshot returns the worker's last JPEG, or (nil, false) if the stream
// doesn't exist or hasn't produced a frame yet (§4.6).
func (r *Registry) Snapshot(streamID string) ([]byte, bool) {
	w, err := r.get(streamID)
	if err != nil {
		return nil, false
	}
	snap := w.Snapshot()
	return snap, snap != nil
}

// State returns the worker's current state, or (StateIdle, false) if no
// such stream exists.
func (r *Registry) State(streamID string) (stream.State, bool) {
	w, err := r.get(streamID)
	if err != nil {
		return stream.StateIdle, false
	}
	return w.State(), true
}

// Worker returns the underlying *stream.Worker for streamID, so that a
// control-surface caller can wire in the collaborators (Inferencer, Batch,
// Encoder, Publisher, Overlay) that AddStream itself has no opinion about.
// Returns apperr.NotFound if no such stream exists.
func (r *Registry) Worker(streamID string) (*stream.Worker, error) {
	return r.get(streamID)
}

// StreamIDs returns every registered stream_id, sorted for deterministic
// iteration.
func (r *Registry) StreamIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.workers))
	for id := range r.workers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered streams.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workers)
}

// Shutdown stops every worker (§5 shutdown order: registry first). No
// frame may be published by any worker after Shutdown returns.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	workers := make([]*stream.Worker, 0, len(r.workers))
	for _, w := range r.workers {
		workers = append(workers, w)
	}
	r.workers = map[string]*stream.Worker{}
	r.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}
}

func (r *Registry) get(streamID string) (*stream.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, exists := r.workers[streamID]
	if !exists {
		return nil, apperr.New(apperr.NotFound, "stream "+streamID+" not found")
	}
	return w, nil
}
