package stream

import (
	"encoding/json"
	"time"

	"github.com/ljj727/edge-core-hailo/pkg/eventrule"
	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

// Envelope is the result-envelope payload of §6.4, published to the bus
// and handed to the detection callback.
type Envelope struct {
	StreamID     string                         `json:"stream_id"`
	TimestampMs  int64                          `json:"timestamp"`
	FrameNumber  uint64                         `json:"frame_number"`
	FPS          float64                        `json:"fps"`
	Width        int                            `json:"width"`
	Height       int                            `json:"height"`
	Detections   []envelopeDet                  `json:"detections"`
	Image        *string                        `json:"image,omitempty"`
	RuleStatuses map[string]eventrule.RuleResult `json:"rule_statuses,omitempty"`
}

type envelopeDet struct {
	Class      string        `json:"class"`
	ClassID    uint16        `json:"class_id"`
	Confidence float32       `json:"confidence"`
	BBox       nn.BoundingBox `json:"bbox"`
	Event      *string       `json:"event"`
	Keypoints  [][3]float32  `json:"keypoints,omitempty"`
}

// handleFrame is the MediaPipeline FrameCallback: the per-frame processing
// pipeline of §4.5.
func (w *Worker) handleFrame(rgb []byte, width, height int, pts time.Time) {
	w.mu.Lock()
	w.frameCount++
	frameNum := w.frameCount
	w.fps.observe(pts)
	fps := w.fps.fps()

	if w.frameW == 0 || w.frameH == 0 {
		if width > 0 && height > 0 {
			w.frameW, w.frameH = width, height
		} else {
			w.frameW, w.frameH = w.Config.TargetWidth, w.Config.TargetHeight
		}
	}
	if width <= 0 || height <= 0 {
		width, height = w.frameW, w.frameH
	}

	inferencer := w.Inferencer
	batchSubmitter := w.Batch
	confThreshold := w.Config.ConfThreshold
	w.mu.Unlock()

	if inferencer != nil {
		dets := inferencer.RunSingle(rgb, width, height, confThreshold)
		w.finishFrame(frameNum, fps, rgb, width, height, dets, pts)
	} else if batchSubmitter != nil {
		batchSubmitter.SubmitFrame(w.StreamID, rgb, width, height, func(streamID string, dets []nn.Detection) {
			w.finishFrame(frameNum, fps, rgb, width, height, dets, pts)
		})
	} else {
		w.finishFrame(frameNum, fps, rgb, width, height, nil, pts)
	}
}

// finishFrame encodes the snapshot, runs the event compositor, assembles
// the envelope, and publishes it — steps 4-8 of §4.5's per-frame pipeline.
func (w *Worker) finishFrame(frameNum uint64, fps float64, rgb []byte, width, height int, dets []nn.Detection, pts time.Time) {
	var jpeg []byte
	if w.Encoder != nil {
		quality := w.Config.JPEGQuality
		if quality == 0 {
			quality = 80
		}
		snapSource := rgb
		if w.Config.PublishOverlay && w.Overlay != nil {
			var rules []eventrule.Rule
			if w.Compositor != nil {
				rules = w.Compositor.Rules()
			}
			snapSource = w.Overlay.Draw(rgb, width, height, dets, rules)
		}
		if encoded, err := w.Encoder.Encode(snapSource, width, height, quality); err == nil {
			jpeg = encoded
		} else {
			w.log.Warnf("stream %s: snapshot encode failed: %v", w.StreamID, err)
		}
	}

	w.mu.Lock()
	if jpeg != nil {
		w.snapshot = jpeg
	}
	w.mu.Unlock()

	var ruleStatuses map[string]eventrule.RuleResult
	if w.Compositor != nil {
		ruleStatuses = w.Compositor.Evaluate(dets, width, height)
	}

	env := buildEnvelope(w.StreamID, frameNum, fps, width, height, dets, pts, jpeg, w.Config.PublishImages, ruleStatuses)

	w.callbacksMu.Lock()
	onDet := w.onDetection
	w.callbacksMu.Unlock()
	if onDet != nil {
		onDet(w.StreamID, dets)
	}

	if w.Publisher == nil {
		return
	}
	payload, err := json.Marshal(env)
	if err != nil {
		w.log.Warnf("stream %s: envelope marshal failed: %v", w.StreamID, err)
		return
	}
	// Fire-and-forget: a disconnected bus must never block the frame loop
	// (§5 Suspension points).
	if err := w.Publisher.Publish("stream."+w.StreamID, payload); err != nil {
		w.log.Debugf("stream %s: publish skipped: %v", w.StreamID, err)
	}
}

func buildEnvelope(streamID string, frameNum uint64, fps float64, width, height int, dets []nn.Detection, pts time.Time, jpeg []byte, publishImages bool, ruleStatuses map[string]eventrule.RuleResult) Envelope {
	env := Envelope{
		StreamID:     streamID,
		TimestampMs:  pts.UnixMilli(),
		FrameNumber:  frameNum,
		FPS:          fps,
		Width:        width,
		Height:       height,
		Detections:   make([]envelopeDet, len(dets)),
		RuleStatuses: ruleStatuses,
	}
	for i, d := range dets {
		ed := envelopeDet{
			Class:      d.ClassName,
			ClassID:    d.ClassID,
			Confidence: d.Confidence,
			BBox:       d.BBox,
		}
		if id := d.FirstEventSettingID(); id != "" {
			ed.Event = &id
		}
		for _, kp := range d.Keypoints {
			ed.Keypoints = append(ed.Keypoints, [3]float32{kp.X, kp.Y, kp.V})
		}
		env.Detections[i] = ed
	}
	if publishImages && jpeg != nil {
		b64 := encodeBase64(jpeg)
		env.Image = &b64
	}
	return env
}
