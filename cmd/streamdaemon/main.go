package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"

	"github.com/ljj727/edge-core-hailo/pkg/bus"
	"github.com/ljj727/edge-core-hailo/pkg/config"
	"github.com/ljj727/edge-core-hailo/pkg/modelstore"
	"github.com/ljj727/edge-core-hailo/pkg/nnaccel"
	"github.com/ljj727/edge-core-hailo/pkg/snapshot"
	"github.com/ljj727/edge-core-hailo/pkg/stream"
	"github.com/ljj727/edge-core-hailo/server/control"
)

func main() {
	parser := argparse.NewParser("streamdaemon", "RTSP ingest, shared-accelerator inference, and event-rule daemon")
	configFile := parser.String("c", "config", &argparse.Options{Help: "YAML daemon configuration file", Default: ""})
	bindAddr := parser.String("", "bind", &argparse.Options{Help: "Override control.bind_address:control.port from the config file", Default: ""})
	tlsDomain := parser.String("", "tls-domain", &argparse.Options{Help: "Serve the control surface over HTTPS via certmagic for this domain instead of plain HTTP", Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	if *configFile != "" {
		cfg, err = config.LoadFromFile(*configFile)
		if err != nil {
			logger.Errorf("Failed to load config %v: %v", *configFile, err)
			os.Exit(1)
		}
	}
	if *tlsDomain != "" {
		cfg.Control.TLSDomain = *tlsDomain
	}

	catalogPath := filepath.Join(cfg.Models.ModelsDir, "catalog.sqlite")
	catalog, err := modelstore.NewCatalog(logger, catalogPath)
	if err != nil {
		logger.Errorf("Failed to open model catalog: %v", err)
		os.Exit(1)
	}
	store := modelstore.NewStore(logger, cfg.Models.ModelsDir, catalog)

	// No accelerator driver is compiled into this binary (§1: the
	// wire-level driver is an external collaborator). NullDevice cannot load
	// any model, so add_stream/update_inference with a model_id fail with a
	// model-load error and only video-only streams run.
	engine := nnaccel.NewEngine(nnaccel.NullDevice{}, logger)

	natsBus := bus.NewNatsBus(logger, cfg.Nats.URL)
	if err := natsBus.Connect(); err != nil {
		logger.Warnf("Failed to connect to message bus at %v: %v (publishing will be skipped until it reconnects)", cfg.Nats.URL, err)
	}

	encoder := snapshot.NewJPEGEncoder()
	overlay := snapshot.NewOverlay()

	// No pixel decoder is compiled into this binary (§1: RTSP demux/decode/
	// colour-convert is delegated to a media-pipeline library). NullDecoder
	// keeps the reconnect state machine exercised against a live RTSP
	// source without ever producing pixels.
	newPipeline := func(streamCfg stream.Config) stream.MediaPipeline {
		return stream.NewRTSPPipeline(logger, stream.NullDecoder{})
	}

	srv := control.NewServer(logger, cfg, engine, store, catalog, natsBus, encoder, overlay, newPipeline)
	srv.ListenForKillSignals()

	daemon.SdNotify(false, daemon.SdNotifyReady)

	addr := *bindAddr
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", cfg.Control.BindAddress, cfg.Control.Port)
	}

	if cfg.Control.TLSDomain != "" {
		err = srv.ListenHTTPS(cfg.Control.TLSDomain, filepath.Join(os.TempDir(), "streamdaemon-certmagic"))
	} else {
		err = srv.ListenHTTP(addr)
	}
	if err != nil {
		logger.Errorf("Listener exited with error: %v", err)
		os.Exit(1)
	}

	<-srv.ShutdownComplete
}
