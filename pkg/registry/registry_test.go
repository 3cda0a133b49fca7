package registry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/ljj727/edge-core-hailo/pkg/apperr"
	"github.com/ljj727/edge-core-hailo/pkg/eventrule"
	"github.com/ljj727/edge-core-hailo/pkg/nn"
	"github.com/ljj727/edge-core-hailo/pkg/stream"
)

type fakePipeline struct {
	mu      sync.Mutex
	onFrame stream.FrameCallback
	onEvent stream.EventCallback
	closed  bool
}

func (p *fakePipeline) Open(sourceURL string, onFrame stream.FrameCallback, onEvent stream.EventCallback) error {
	p.mu.Lock()
	p.onFrame, p.onEvent = onFrame, onEvent
	p.mu.Unlock()
	return nil
}

func (p *fakePipeline) Dimensions() (int, int) { return 640, 480 }

func (p *fakePipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func newTestRegistry(t *testing.T, maxStreams int) *Registry {
	return newTestRegistryWithPipelines(t, maxStreams, nil)
}

// newTestRegistryWithPipelines records every fakePipeline it creates into
// pipelines (keyed by SourceURL) so tests can drive a worker's onFrame/
// onEvent callbacks directly.
func newTestRegistryWithPipelines(t *testing.T, maxStreams int, pipelines map[string]*fakePipeline) *Registry {
	var mu sync.Mutex
	return NewRegistry(logs.NewTestingLog(t), maxStreams, func(cfg stream.Config) stream.MediaPipeline {
		p := &fakePipeline{}
		if pipelines != nil {
			mu.Lock()
			pipelines[cfg.SourceURL] = p
			mu.Unlock()
		}
		return p
	})
}

func TestAddStreamStartsWorker(t *testing.T) {
	r := newTestRegistry(t, DefaultMaxStreams)
	w, err := r.AddStream("cam1", stream.Config{SourceURL: "rtsp://x"}, eventrule.NewCompositor())
	require.NoError(t, err)
	require.NotNil(t, w)
	require.Equal(t, 1, r.Count())
}

func TestAddStreamDuplicateIDIsConflict(t *testing.T) {
	r := newTestRegistry(t, DefaultMaxStreams)
	_, err := r.AddStream("cam1", stream.Config{}, eventrule.NewCompositor())
	require.NoError(t, err)

	_, err = r.AddStream("cam1", stream.Config{}, eventrule.NewCompositor())
	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.Sentinel(apperr.Conflict)))
}

func TestAddStreamBeyondMaxStreamsIsConflict(t *testing.T) {
	r := newTestRegistry(t, 2)
	_, err := r.AddStream("cam1", stream.Config{}, eventrule.NewCompositor())
	require.NoError(t, err)
	_, err = r.AddStream("cam2", stream.Config{}, eventrule.NewCompositor())
	require.NoError(t, err)

	_, err = r.AddStream("cam3", stream.Config{}, eventrule.NewCompositor())
	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.Sentinel(apperr.Conflict)))
	require.Equal(t, 2, r.Count())
}

func TestRemoveStreamNotFound(t *testing.T) {
	r := newTestRegistry(t, DefaultMaxStreams)
	err := r.RemoveStream("ghost")
	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.Sentinel(apperr.NotFound)))
}

func TestRemoveStreamFreesSlotForNewStream(t *testing.T) {
	r := newTestRegistry(t, 1)
	_, err := r.AddStream("cam1", stream.Config{}, eventrule.NewCompositor())
	require.NoError(t, err)

	require.NoError(t, r.RemoveStream("cam1"))
	require.Equal(t, 0, r.Count())

	_, err = r.AddStream("cam2", stream.Config{}, eventrule.NewCompositor())
	require.NoError(t, err)
}

func TestGlobalCallbacksCopiedOntoNewWorkerAndBulkUpdated(t *testing.T) {
	pipelines := map[string]*fakePipeline{}
	r := newTestRegistryWithPipelines(t, DefaultMaxStreams, pipelines)

	var mu sync.Mutex
	var calls int
	r.SetGlobalCallbacks(func(streamID string, dets []nn.Detection) {
		mu.Lock()
		calls++
		mu.Unlock()
	}, nil, nil)

	_, err := r.AddStream("cam1", stream.Config{SourceURL: "rtsp://cam1"}, eventrule.NewCompositor())
	require.NoError(t, err)

	// trigger a frame so the copied-on-create callback fires.
	pipeline := pipelines["rtsp://cam1"]
	require.NotNil(t, pipeline)
	pipeline.onFrame(make([]byte, 640*480*3), 640, 480, time.Now())

	mu.Lock()
	require.Equal(t, 1, calls)
	mu.Unlock()

	// bulk-update to a new callback and confirm the old one is no longer invoked.
	var calls2 int
	r.SetGlobalCallbacks(func(streamID string, dets []nn.Detection) {
		mu.Lock()
		calls2++
		mu.Unlock()
	}, nil, nil)

	pipeline.onFrame(make([]byte, 640*480*3), 640, 480, time.Now())
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
	require.Equal(t, 1, calls2)
}

func TestSnapshotMissingStreamReturnsNotFound(t *testing.T) {
	r := newTestRegistry(t, DefaultMaxStreams)
	snap, ok := r.Snapshot("ghost")
	require.False(t, ok)
	require.Nil(t, snap)
}

func TestShutdownStopsAllWorkers(t *testing.T) {
	r := newTestRegistry(t, DefaultMaxStreams)
	_, err := r.AddStream("cam1", stream.Config{}, eventrule.NewCompositor())
	require.NoError(t, err)
	_, err = r.AddStream("cam2", stream.Config{}, eventrule.NewCompositor())
	require.NoError(t, err)

	r.Shutdown()

	state, ok := r.State("cam1")
	require.False(t, ok)
	_ = state
	require.Equal(t, 0, r.Count())
}
