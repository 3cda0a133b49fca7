package stream

import (
	"fmt"
	"sync"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"github.com/bluenviron/gortsplib/v4/pkg/description"
	"github.com/bluenviron/gortsplib/v4/pkg/format"
	"github.com/bluenviron/gortsplib/v4/pkg/format/rtph264"
	"github.com/bluenviron/gortsplib/v4/pkg/format/rtph265"
	"github.com/pion/rtp"

	"github.com/cyclopcam/logs"
)

// FrameDecoder turns a decoded access unit (one or more NAL units
// comprising a full video frame) into an RGB frame. Pixel decode is
// cgo/ffmpeg territory in the teacher (pkg/videox) and stays out of this
// repo's core scope (§1); RTSPPipeline only demuxes RTP into access
// units and hands them to whatever FrameDecoder the caller supplies.
type FrameDecoder interface {
	Decode(au [][]byte, pts time.Time) (rgb []byte, width, height int, err error)
}

// RTSPPipeline is the MediaPipeline adapter for live RTSP sources: it owns
// a gortsplib.Client, demuxes the negotiated H264/H265 track into
// access units, and forwards each decoded frame through FrameCallback.
type RTSPPipeline struct {
	log     logs.Log
	decoder FrameDecoder

	mu      sync.Mutex
	client  *gortsplib.Client
	onFrame FrameCallback
	onEvent EventCallback
	width   int
	height  int
	closed  bool
}

func NewRTSPPipeline(log logs.Log, decoder FrameDecoder) *RTSPPipeline {
	return &RTSPPipeline{log: log, decoder: decoder}
}

func (p *RTSPPipeline) Open(sourceURL string, onFrame FrameCallback, onEvent EventCallback) error {
	p.mu.Lock()
	p.onFrame = onFrame
	p.onEvent = onEvent
	p.mu.Unlock()

	u, err := base.ParseURL(sourceURL)
	if err != nil {
		return fmt.Errorf("invalid RTSP URL: %w", err)
	}

	client := &gortsplib.Client{}
	client.OnPacketLost = func(err error) {
		p.log.Warnf("rtsp %v: packet lost: %v", u.Host, err)
	}

	if err := client.Start(u.Scheme, u.Host); err != nil {
		return fmt.Errorf("failed to start RTSP client: %w", err)
	}

	desc, _, err := client.Describe(u)
	if err != nil {
		client.Close()
		return fmt.Errorf("RTSP describe failed: %w", err)
	}

	depacketize, trackErr := p.setupVideoTrack(client, desc)
	if trackErr != nil {
		client.Close()
		return trackErr
	}

	if err := client.SetupAll(desc.BaseURL, desc.Medias); err != nil {
		client.Close()
		return fmt.Errorf("RTSP setup failed: %w", err)
	}

	client.OnPacketRTPAny(func(medi *description.Media, forma format.Format, pkt *rtp.Packet) {
		depacketize(pkt)
	})

	if _, err := client.Play(nil); err != nil {
		client.Close()
		return fmt.Errorf("RTSP play failed: %w", err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()

	go p.waitForDisconnect(client)

	p.raiseEvent(EventPlaying, nil)
	return nil
}

// setupVideoTrack finds the first H264 or H265 media in desc and returns a
// per-packet depacketize func that accumulates RTP packets into access
// units and forwards them to p.decoder.
func (p *RTSPPipeline) setupVideoTrack(client *gortsplib.Client, desc *description.Session) (func(*rtp.Packet), error) {
	for _, media := range desc.Medias {
		for _, forma := range media.Formats {
			switch f := forma.(type) {
			case *format.H264:
				dec, err := f.CreateDecoder()
				if err != nil {
					return nil, fmt.Errorf("H264 decoder setup failed: %w", err)
				}
				return func(pkt *rtp.Packet) {
					p.onAccessUnitH264(dec, pkt)
				}, nil
			case *format.H265:
				dec, err := f.CreateDecoder()
				if err != nil {
					return nil, fmt.Errorf("H265 decoder setup failed: %w", err)
				}
				return func(pkt *rtp.Packet) {
					p.onAccessUnitH265(dec, pkt)
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("no H264 or H265 video track published")
}

func (p *RTSPPipeline) onAccessUnitH264(dec *rtph264.Decoder, pkt *rtp.Packet) {
	au, err := dec.Decode(pkt)
	if err != nil {
		return
	}
	p.deliverAccessUnit(au, 0)
}

func (p *RTSPPipeline) onAccessUnitH265(dec *rtph265.Decoder, pkt *rtp.Packet) {
	au, err := dec.Decode(pkt)
	if err != nil {
		return
	}
	p.deliverAccessUnit(au, 0)
}

func (p *RTSPPipeline) deliverAccessUnit(au [][]byte, pts time.Duration) {
	if p.decoder == nil {
		return
	}
	rgb, w, h, err := p.decoder.Decode(au, time.Now())
	if err != nil {
		p.log.Debugf("frame decode failed: %v", err)
		return
	}

	p.mu.Lock()
	p.width, p.height = w, h
	cb := p.onFrame
	p.mu.Unlock()

	if cb != nil {
		cb(rgb, w, h, time.Now())
	}
}

func (p *RTSPPipeline) waitForDisconnect(client *gortsplib.Client) {
	err := client.Wait()

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	p.raiseEvent(EventError, fmt.Errorf("RTSP connection lost: %w", err))
}

func (p *RTSPPipeline) raiseEvent(event PipelineEvent, err error) {
	p.mu.Lock()
	cb := p.onEvent
	p.mu.Unlock()
	if cb != nil {
		cb(event, err)
	}
}

func (p *RTSPPipeline) Dimensions() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

func (p *RTSPPipeline) Close() {
	p.mu.Lock()
	p.closed = true
	client := p.client
	p.client = nil
	p.mu.Unlock()

	if client != nil {
		client.Close()
	}
}
