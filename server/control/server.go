// Package control implements the §6.1 request/response RPC surface over
// HTTP, wiring the registry, model store, and inference engine together the
// way the teacher's server package wires camera/configdb/monitor behind its
// httprouter-based api*.go handlers.
package control

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/cyclopcam/logs"
	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"

	"github.com/ljj727/edge-core-hailo/pkg/bus"
	"github.com/ljj727/edge-core-hailo/pkg/config"
	"github.com/ljj727/edge-core-hailo/pkg/modelstore"
	"github.com/ljj727/edge-core-hailo/pkg/nnaccel"
	"github.com/ljj727/edge-core-hailo/pkg/registry"
	"github.com/ljj727/edge-core-hailo/pkg/snapshot"
	"github.com/ljj727/edge-core-hailo/pkg/stream"
)

// Server holds every collaborator the control surface dispatches RPCs
// against, and owns the HTTP listener that exposes them.
type Server struct {
	Log     logs.Log
	Config  config.DaemonConfig
	Engine  *nnaccel.Engine
	Store   *modelstore.Store
	Catalog *modelstore.Catalog
	Bus     bus.Bus
	Encoder snapshot.Encoder
	Overlay stream.OverlayDrawer

	registry *registry.Registry
	attacher *modelAttacher
	hub      *liveHub

	mu          sync.Mutex
	streamModel map[string]string // stream_id -> attached model_id, for Detach bookkeeping on remove/clear

	httpServer *http.Server
	signalIn   chan os.Signal

	// ShutdownComplete is closed once Shutdown has torn down every
	// collaborator, mirroring the teacher's srv.ShutdownComplete channel.
	ShutdownComplete chan error
}

// NewServer wires a Server from its collaborators. newPipeline constructs a
// fresh stream.MediaPipeline per worker start/reconnect — the one place the
// concrete RTSPPipeline+FrameDecoder adapter enters the core.
func NewServer(log logs.Log, cfg config.DaemonConfig, engine *nnaccel.Engine, store *modelstore.Store, catalog *modelstore.Catalog, natsBus bus.Bus, encoder snapshot.Encoder, overlay stream.OverlayDrawer, newPipeline func(cfg stream.Config) stream.MediaPipeline) *Server {
	s := &Server{
		Log:              log,
		Config:           cfg,
		Engine:           engine,
		Store:            store,
		Catalog:          catalog,
		Bus:              natsBus,
		Encoder:          encoder,
		Overlay:          overlay,
		registry:         registry.NewRegistry(log, cfg.Performance.MaxStreams, newPipeline),
		attacher:         newModelAttacher(log, engine, catalog),
		hub:              newLiveHub(),
		streamModel:      map[string]string{},
		ShutdownComplete: make(chan error, 1),
	}
	s.registry.SetGlobalCallbacks(s.hub.onDetection, s.hub.onState, s.hub.onError)
	return s
}

// Registry exposes the underlying stream registry to the handlers and
// tests; NewServer has already wired its global callbacks to the live hub.
func (s *Server) Registry() *registry.Registry { return s.registry }

func (s *Server) defaultStreamConfigJSON() streamConfigJSON {
	return streamConfigJSON{
		TargetWidth:         s.Config.Stream.Width,
		TargetHeight:        s.Config.Stream.Height,
		TargetFPS:           s.Config.Stream.FPS,
		ConfidenceThreshold: s.Config.Stream.ConfidenceThreshold,
		PublishImages:       false,
		PublishOverlay:      false,
		JPEGQuality:         80,
		BatchSize:           s.Config.Accelerator.BatchSize,
	}
}

// attachModel resolves modelID (if non-empty) to the Inferencer/Batch pair a
// worker should hold, and records the attachment for later Detach.
func (s *Server) attachModel(streamID, modelID string, batchSize int, confThreshold float32) (stream.Inferencer, stream.BatchSubmitter, error) {
	if modelID == "" {
		return nil, nil, nil
	}
	inf, sub, err := s.attacher.Attach(modelID, batchSize, confThreshold)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	s.streamModel[streamID] = modelID
	s.mu.Unlock()
	return inf, sub, nil
}

// detachModel releases streamID's currently-attached model, if any.
func (s *Server) detachModel(streamID string) {
	s.mu.Lock()
	modelID, ok := s.streamModel[streamID]
	delete(s.streamModel, streamID)
	s.mu.Unlock()
	if ok && modelID != "" {
		s.attacher.Detach(modelID)
	}
}

// SetupHTTP registers every §6.1 route on router, rate-limited the way the
// teacher's proxy/http.go wraps sensitive routes in httprate.Limit.
func (s *Server) SetupHTTP(router *httprouter.Router) {
	limited := httprate.Limit(60, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	wrap := func(h httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { h(w, r, p) })).ServeHTTP(w, r)
		}
	}

	handle(s.Log, router, "POST", "/models", wrap(s.httpInstallModel))
	handle(s.Log, router, "GET", "/models", s.httpListModels)
	handle(s.Log, router, "DELETE", "/models/:model_id", wrap(s.httpUninstallModel))

	handle(s.Log, router, "POST", "/streams", wrap(s.httpAddStream))
	handle(s.Log, router, "GET", "/streams", s.httpListStreams)
	handle(s.Log, router, "GET", "/streams/:stream_id", s.httpGetStream)
	handle(s.Log, router, "DELETE", "/streams/:stream_id", wrap(s.httpRemoveStream))
	handle(s.Log, router, "PUT", "/streams/:stream_id", wrap(s.httpUpdateInference))
	handle(s.Log, router, "POST", "/streams/:stream_id/clear-inference", wrap(s.httpClearInference))
	handle(s.Log, router, "GET", "/streams/:stream_id/snapshot", s.httpGetSnapshot)
	handle(s.Log, router, "PUT", "/streams/:stream_id/events", wrap(s.httpUpdateEventSettings))
	handle(s.Log, router, "DELETE", "/streams/:stream_id/events", wrap(s.httpClearEventSettings))

	handle(s.Log, router, "GET", "/streams/:stream_id/live", s.httpLiveEvents)

	handle(s.Log, router, "GET", "/healthz", s.httpHealthz)
}

// ListenHTTP starts the control-surface HTTP listener on addr, blocking
// until Shutdown stops it — mirrors the teacher's Server.ListenHTTP.
func (s *Server) ListenHTTP(addr string) error {
	router := httprouter.New()
	s.SetupHTTP(router)
	s.httpServer = &http.Server{Addr: addr, Handler: router}
	s.Log.Infof("control: listening on %v", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// ListenHTTPS starts the control surface behind a certmagic-managed TLS
// listener for domain, storing its certificate cache under certDir —
// mirrors the teacher's sslCertDirectory convention in cmd/cyclops.go,
// adapted from the VPN-gated ListenHTTPS the teacher never shows in the
// pack to certmagic's own top-level HTTPS helper.
func (s *Server) ListenHTTPS(domain, certDir string) error {
	router := httprouter.New()
	s.SetupHTTP(router)

	certmagic.Default.Storage = &certmagic.FileStorage{Path: certDir}
	s.Log.Infof("control: listening on :443 and :80 for domain %v (certs cached under %v)", domain, certDir)
	err := certmagic.HTTPS([]string{domain}, router)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ListenForKillSignals installs a SIGINT/SIGTERM handler that triggers an
// orderly Shutdown, mirroring the teacher's Server.ListenForKillSignals.
func (s *Server) ListenForKillSignals() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		if sig, ok := <-s.signalIn; ok {
			s.Log.Infof("control: received signal %v, shutting down", sig)
			s.Shutdown()
		}
	}()
}

// Shutdown stops the HTTP listener, every stream worker, every batch
// scheduler, and the accelerator engine, in the order §5 requires: "stop
// all workers -> stop batch schedulers (drain) -> release model handles ->
// destroy device". No frame may be published after Shutdown returns.
func (s *Server) Shutdown() {
	if s.signalIn != nil {
		signal.Stop(s.signalIn)
		close(s.signalIn)
		s.signalIn = nil
	}

	s.registry.Shutdown()
	s.attacher.mu.Lock()
	for _, att := range s.attacher.attachments {
		if att.scheduler != nil {
			att.scheduler.Stop()
		}
	}
	s.attacher.mu.Unlock()
	s.Engine.Shutdown()
	if nb, ok := s.Bus.(interface{ Disconnect() }); ok {
		nb.Disconnect()
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}

	select {
	case s.ShutdownComplete <- nil:
	default:
	}
}
