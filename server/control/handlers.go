package control

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/ljj727/edge-core-hailo/pkg/bus"
	"github.com/ljj727/edge-core-hailo/pkg/eventrule"
	"github.com/ljj727/edge-core-hailo/pkg/stream"
)

// httpInstallModel implements §6.1 install_model: the request body is the
// raw model-package zip; ?overwrite=true permits replacing an existing
// model_id whose usage_count is zero.
func (s *Server) httpInstallModel(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	zipData, err := io.ReadAll(r.Body)
	if err != nil {
		sendError(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	overwrite, _ := strconv.ParseBool(r.URL.Query().Get("overwrite"))

	modelID, err := s.Store.Install(zipData, overwrite)
	if err != nil {
		sendAppErr(w, err)
		return
	}
	sendJSON(w, installModelResponse{ModelID: modelID})
}

// httpUninstallModel implements §6.1 uninstall_model.
func (s *Server) httpUninstallModel(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	modelID := p.ByName("model_id")
	if err := s.Store.Uninstall(modelID); err != nil {
		sendAppErr(w, err)
		return
	}
	sendJSON(w, map[string]bool{"ok": true})
}

// httpListModels implements the §6.5 catalog listing of installed models
// with their usage counts.
func (s *Server) httpListModels(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	recs, err := s.Catalog.List()
	if err != nil {
		sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]modelInfoJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, modelInfoJSON{
			ModelID:      rec.ModelID,
			Name:         rec.Name,
			Version:      rec.Version,
			Task:         rec.Task,
			NumKeypoints: rec.NumKeypoints,
			Labels:       rec.Labels(),
			UsageCount:   rec.UsageCount,
		})
	}
	sendJSON(w, out)
}

// httpAddStream implements §6.1 add_stream: without model_id the stream
// runs video-only (§4.5 ClearInference's mirror-image starting state).
func (s *Server) httpAddStream(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req addStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.StreamID == "" || req.SourceURL == "" {
		sendError(w, "stream_id and source_url are required", http.StatusBadRequest)
		return
	}

	cfg := defaultStreamConfig(s.defaultStreamConfigJSON(), req.Config)
	cfg.SourceURL = req.SourceURL
	cfg.ModelID = req.ModelID

	inf, sub, err := s.attachModel(req.StreamID, req.ModelID, cfg.BatchSize, cfg.ConfThreshold)
	if err != nil {
		sendAppErr(w, err)
		return
	}

	worker, err := s.Registry().AddStream(req.StreamID, cfg, eventrule.NewCompositor(), func(wk *stream.Worker) {
		wk.Inferencer = inf
		wk.Batch = sub
		wk.Encoder = s.Encoder
		wk.Publisher = s.Bus
		if cfg.PublishOverlay {
			wk.Overlay = s.Overlay
		}
	})
	if err != nil {
		s.detachModel(req.StreamID)
		sendAppErr(w, err)
		return
	}

	sendJSON(w, s.toStreamStatusJSON(worker))
}

// httpRemoveStream implements §6.1 remove_stream.
func (s *Server) httpRemoveStream(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	streamID := p.ByName("stream_id")
	if err := s.Registry().RemoveStream(streamID); err != nil {
		sendAppErr(w, err)
		return
	}
	s.detachModel(streamID)
	sendJSON(w, map[string]bool{"ok": true})
}

// httpUpdateInference implements §6.1 update_inference: stop(); start()
// with the merged configuration, re-attaching whichever model_id applies.
func (s *Server) httpUpdateInference(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	streamID := p.ByName("stream_id")
	existing, err := s.Registry().Worker(streamID)
	if err != nil {
		sendAppErr(w, err)
		return
	}

	var req updateInferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	prevCfg := existing.Config
	cfg := defaultStreamConfig(s.defaultStreamConfigJSON(), req.Config)
	if req.Config == nil {
		cfg = prevCfg
	}
	cfg.SourceURL = prevCfg.SourceURL
	if req.SourceURL != "" {
		cfg.SourceURL = req.SourceURL
	}
	cfg.ModelID = prevCfg.ModelID
	if req.ModelID != "" {
		cfg.ModelID = req.ModelID
	}

	s.detachModel(streamID)
	inf, sub, err := s.attachModel(streamID, cfg.ModelID, cfg.BatchSize, cfg.ConfThreshold)
	if err != nil {
		sendAppErr(w, err)
		return
	}

	if err := s.Registry().UpdateStream(streamID, cfg, func(wk *stream.Worker) {
		wk.Inferencer = inf
		wk.Batch = sub
		wk.Encoder = s.Encoder
		wk.Publisher = s.Bus
		if cfg.PublishOverlay {
			wk.Overlay = s.Overlay
		}
	}); err != nil {
		sendAppErr(w, err)
		return
	}

	worker, _ := s.Registry().Worker(streamID)
	sendJSON(w, s.toStreamStatusJSON(worker))
}

// httpClearInference implements §6.1 clear_inference: detach model, keep
// video.
func (s *Server) httpClearInference(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	streamID := p.ByName("stream_id")
	worker, err := s.Registry().Worker(streamID)
	if err != nil {
		sendAppErr(w, err)
		return
	}
	worker.ClearInference()
	s.detachModel(streamID)
	sendJSON(w, map[string]bool{"ok": true})
}

// httpGetStream implements §6.1 get_stream.
func (s *Server) httpGetStream(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	worker, err := s.Registry().Worker(p.ByName("stream_id"))
	if err != nil {
		sendAppErr(w, err)
		return
	}
	sendJSON(w, s.toStreamStatusJSON(worker))
}

// httpListStreams implements §6.1 list_streams, optionally filtered by
// ?model_id=.
func (s *Server) httpListStreams(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	modelFilter := r.URL.Query().Get("model_id")
	out := make([]streamStatusJSON, 0)
	for _, id := range s.Registry().StreamIDs() {
		worker, err := s.Registry().Worker(id)
		if err != nil {
			continue
		}
		if modelFilter != "" && worker.Config.ModelID != modelFilter {
			continue
		}
		out = append(out, s.toStreamStatusJSON(worker))
	}
	sendJSON(w, out)
}

// httpGetSnapshot implements §6.1 get_snapshot: the last JPEG bytes, or 404
// if the stream doesn't exist or hasn't produced a frame yet.
func (s *Server) httpGetSnapshot(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	jpeg, ok := s.Registry().Snapshot(p.ByName("stream_id"))
	if !ok {
		sendError(w, "no snapshot available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(jpeg)
}

// httpUpdateEventSettings implements §6.1 update_event_settings: the
// request body is the raw §6.3 rule-set JSON envelope.
func (s *Server) httpUpdateEventSettings(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	worker, err := s.Registry().Worker(p.ByName("stream_id"))
	if err != nil {
		sendAppErr(w, err)
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		sendError(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	terminals, err := worker.Compositor.UpdateSettings(data)
	if err != nil {
		sendAppErr(w, err)
		return
	}
	sendJSON(w, updateEventSettingsResponse{TerminalRuleIDs: terminals})
}

// httpClearEventSettings implements §6.1 clear_event_settings.
func (s *Server) httpClearEventSettings(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	worker, err := s.Registry().Worker(p.ByName("stream_id"))
	if err != nil {
		sendAppErr(w, err)
		return
	}
	worker.Compositor.ClearSettings()
	sendJSON(w, map[string]bool{"ok": true})
}

func (s *Server) toStreamStatusJSON(w *stream.Worker) streamStatusJSON {
	width, height := w.Dimensions()
	status := streamStatusJSON{
		StreamID:  w.StreamID,
		SourceURL: w.Config.SourceURL,
		ModelID:   w.Config.ModelID,
		State:     w.State().String(),
		Width:     width,
		Height:    height,
	}
	if nb, ok := s.Bus.(*bus.NatsBus); ok {
		st := nb.Stats()
		status.Bus = &busStatusJSON{
			State:             nb.State().String(),
			MessagesPublished: st.MessagesPublished,
			ReconnectAttempts: st.ReconnectAttempts,
			LastError:         st.LastError,
		}
	}
	return status
}

// httpHealthz implements the supplemented readiness probe: 200 once the
// control surface is serving, regardless of individual stream health.
func (s *Server) httpHealthz(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	sendJSON(w, map[string]bool{"ok": true})
}
