package control

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/ljj727/edge-core-hailo/pkg/nn"
	"github.com/ljj727/edge-core-hailo/pkg/stream"
)

// liveUpgrader mirrors the teacher's videoWebSocketStreamer's plain
// websocket.Upgrader — no origin restriction, since the control surface has
// no browser-facing auth layer of its own (§1 Non-goals: "no
// authentication").
var liveUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// liveEventJSON is one message pushed down a /streams/:stream_id/live
// websocket: a detection batch or a state transition, whichever fired.
type liveEventJSON struct {
	Type       string         `json:"type"` // "detection" | "state" | "error"
	StreamID   string         `json:"stream_id"`
	State      string         `json:"state,omitempty"`
	Error      string         `json:"error,omitempty"`
	Detections []detectionOut `json:"detections,omitempty"`
}

type detectionOut struct {
	Class      string         `json:"class"`
	Confidence float32        `json:"confidence"`
	BBox       nn.BoundingBox `json:"bbox"`
}

// liveHub fans registry-wide callbacks out to every open websocket
// subscribed to a given stream_id — grounded on the teacher's
// VideoWebSocketStreamer's per-connection sendQueue, generalized from one
// camera's video+detection feed to many concurrent stream subscribers.
type liveHub struct {
	mu   sync.Mutex
	subs map[string]map[chan liveEventJSON]bool // stream_id -> set of subscriber channels
}

func newLiveHub() *liveHub {
	return &liveHub{subs: map[string]map[chan liveEventJSON]bool{}}
}

func (h *liveHub) subscribe(streamID string) chan liveEventJSON {
	ch := make(chan liveEventJSON, stream.MaxReconnectAttempts) // small bounded buffer; publish drops new events while it is full
	h.mu.Lock()
	if h.subs[streamID] == nil {
		h.subs[streamID] = map[chan liveEventJSON]bool{}
	}
	h.subs[streamID][ch] = true
	h.mu.Unlock()
	return ch
}

func (h *liveHub) unsubscribe(streamID string, ch chan liveEventJSON) {
	h.mu.Lock()
	delete(h.subs[streamID], ch)
	h.mu.Unlock()
}

func (h *liveHub) publish(streamID string, ev liveEventJSON) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[streamID] {
		select {
		case ch <- ev:
		default:
			// Subscriber isn't draining fast enough; drop rather than block
			// the registry-wide callback (§5 "never block the frame loop").
		}
	}
}

func (h *liveHub) onDetection(streamID string, dets []nn.Detection) {
	out := make([]detectionOut, len(dets))
	for i, d := range dets {
		out[i] = detectionOut{Class: d.ClassName, Confidence: d.Confidence, BBox: d.BBox}
	}
	h.publish(streamID, liveEventJSON{Type: "detection", StreamID: streamID, Detections: out})
}

func (h *liveHub) onState(streamID string, state stream.State) {
	h.publish(streamID, liveEventJSON{Type: "state", StreamID: streamID, State: state.String()})
}

func (h *liveHub) onError(streamID string, err error) {
	h.publish(streamID, liveEventJSON{Type: "error", StreamID: streamID, Error: err.Error()})
}

// httpLiveEvents upgrades to a websocket and streams detection/state/error
// events for one stream_id as they're emitted by its worker's global
// callbacks, until the client disconnects. Not part of §6.1's named RPCs —
// a supplemented real-time surface over the same callback data get_stream
// only offers as a point-in-time snapshot.
func (s *Server) httpLiveEvents(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	streamID := p.ByName("stream_id")
	if _, err := s.Registry().Worker(streamID); err != nil {
		sendAppErr(w, err)
		return
	}

	conn, err := liveUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warnf("control: websocket upgrade failed for %s: %v", streamID, err)
		return
	}
	defer conn.Close()

	ch := s.hub.subscribe(streamID)
	defer s.hub.unsubscribe(streamID, ch)

	for ev := range ch {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}
