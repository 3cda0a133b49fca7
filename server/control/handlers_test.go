package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/require"

	"github.com/ljj727/edge-core-hailo/pkg/config"
	"github.com/ljj727/edge-core-hailo/pkg/modelstore"
	"github.com/ljj727/edge-core-hailo/pkg/nnaccel"
	"github.com/ljj727/edge-core-hailo/pkg/snapshot"
	"github.com/ljj727/edge-core-hailo/pkg/stream"
)

// fakePipeline is a MediaPipeline stand-in that records its onFrame/onEvent
// callbacks so a test can drive frames through a worker directly, mirroring
// the fakePipeline used by pkg/registry and pkg/stream's own tests.
type fakePipeline struct {
	mu      sync.Mutex
	onFrame stream.FrameCallback
	onEvent stream.EventCallback
}

func (p *fakePipeline) Open(sourceURL string, onFrame stream.FrameCallback, onEvent stream.EventCallback) error {
	p.mu.Lock()
	p.onFrame, p.onEvent = onFrame, onEvent
	p.mu.Unlock()
	return nil
}

func (p *fakePipeline) Dimensions() (int, int) { return 0, 0 }

func (p *fakePipeline) Close() {}

// fakeBus records every published payload instead of talking to a real
// NATS server, keeping these tests free of network dependencies.
type fakeBus struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (b *fakeBus) Publish(subject string, payload []byte) error {
	b.mu.Lock()
	b.payloads = append(b.payloads, payload)
	b.mu.Unlock()
	return nil
}

func newTestServer(t *testing.T) (*Server, map[string]*fakePipeline) {
	log := logs.NewTestingLog(t)
	cfg := config.Default()

	catalog, err := modelstore.NewCatalog(log, filepath.Join(t.TempDir(), "catalog.sqlite"))
	require.NoError(t, err)
	store := modelstore.NewStore(log, t.TempDir(), catalog)
	engine := nnaccel.NewEngine(nnaccel.NullDevice{}, log)

	pipelines := map[string]*fakePipeline{}
	var mu sync.Mutex
	newPipeline := func(c stream.Config) stream.MediaPipeline {
		p := &fakePipeline{}
		mu.Lock()
		pipelines[c.SourceURL] = p
		mu.Unlock()
		return p
	}

	srv := NewServer(log, cfg, engine, store, catalog, &fakeBus{}, snapshot.NewJPEGEncoder(), snapshot.NewOverlay(), newPipeline)
	return srv, pipelines
}

func newTestRouter(t *testing.T) (*Server, *httprouter.Router, map[string]*fakePipeline) {
	srv, pipelines := newTestServer(t)
	router := httprouter.New()
	srv.SetupHTTP(router)
	return srv, router, pipelines
}

func doJSON(t *testing.T, router *httprouter.Router, method, path string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(b)))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	_, router, _ := newTestRouter(t)
	rr := doJSON(t, router, "GET", "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestAddStreamVideoOnlyThenGetAndList(t *testing.T) {
	_, router, _ := newTestRouter(t)

	rr := doJSON(t, router, "POST", "/streams", addStreamRequest{StreamID: "cam1", SourceURL: "rtsp://x"})
	require.Equal(t, http.StatusOK, rr.Code)

	var status streamStatusJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	require.Equal(t, "cam1", status.StreamID)
	require.Equal(t, "Starting", status.State)

	rr = doJSON(t, router, "GET", "/streams/cam1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, router, "GET", "/streams", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []streamStatusJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list, 1)
}

func TestAddStreamRejectsMissingFields(t *testing.T) {
	_, router, _ := newTestRouter(t)
	rr := doJSON(t, router, "POST", "/streams", addStreamRequest{StreamID: "cam1"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddStreamConflictOnDuplicateID(t *testing.T) {
	_, router, _ := newTestRouter(t)
	rr := doJSON(t, router, "POST", "/streams", addStreamRequest{StreamID: "cam1", SourceURL: "rtsp://x"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, router, "POST", "/streams", addStreamRequest{StreamID: "cam1", SourceURL: "rtsp://y"})
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestRemoveStreamThenGetIsNotFound(t *testing.T) {
	_, router, _ := newTestRouter(t)
	doJSON(t, router, "POST", "/streams", addStreamRequest{StreamID: "cam1", SourceURL: "rtsp://x"})
	rr := doJSON(t, router, "DELETE", "/streams/cam1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, router, "GET", "/streams/cam1", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetSnapshotNotFoundUntilFirstFrame(t *testing.T) {
	srv, router, pipelines := newTestRouter(t)
	doJSON(t, router, "POST", "/streams", addStreamRequest{StreamID: "cam1", SourceURL: "rtsp://x"})

	rr := doJSON(t, router, "GET", "/streams/cam1/snapshot", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	p := pipelines["rtsp://x"]
	require.NotNil(t, p)
	rgb := make([]byte, 4*4*3)
	p.onFrame(rgb, 4, 4, time.Now())

	rr = doJSON(t, router, "GET", "/streams/cam1/snapshot", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
	require.NotEmpty(t, rr.Body.Bytes())

	rr = doJSON(t, router, "GET", "/streams/cam1", nil)
	var status streamStatusJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	require.Equal(t, 4, status.Width)
	require.Equal(t, 4, status.Height)

	_ = srv
}

func TestUpdateAndClearEventSettings(t *testing.T) {
	_, router, _ := newTestRouter(t)
	doJSON(t, router, "POST", "/streams", addStreamRequest{StreamID: "cam1", SourceURL: "rtsp://x"})

	payload := []byte(`{"version":"1.0.0","configs":[{"eventSettingId":"r1","eventType":"ROI","points":[[0,0],[1,0],[1,1],[0,1]],"targets":["ALL"]}]}`)
	req := httptest.NewRequest("PUT", "/streams/cam1/events", strings.NewReader(string(payload)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp updateEventSettingsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp.TerminalRuleIDs, "r1")

	rr = doJSON(t, router, "DELETE", "/streams/cam1/events", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestClearInferenceOnVideoOnlyStreamIsNoOp(t *testing.T) {
	_, router, _ := newTestRouter(t)
	doJSON(t, router, "POST", "/streams", addStreamRequest{StreamID: "cam1", SourceURL: "rtsp://x"})
	rr := doJSON(t, router, "POST", "/streams/cam1/clear-inference", nil)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestListModelsEmptyByDefault(t *testing.T) {
	_, router, _ := newTestRouter(t)
	rr := doJSON(t, router, "GET", "/models", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var out []modelInfoJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Empty(t, out)
}

func TestUninstallUnknownModelIsNotFound(t *testing.T) {
	_, router, _ := newTestRouter(t)
	rr := doJSON(t, router, "DELETE", "/models/nope", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
