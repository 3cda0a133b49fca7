package nnaccel

import (
	"fmt"
	"sync"
	"time"

	"github.com/cyclopcam/logs"

	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

// DefaultRunTimeout bounds how long the engine waits for the accelerator to
// finish one batch before treating it as a transient device error.
const DefaultRunTimeout = 5 * time.Second

// ModelHandle is a reference-counted, loaded model: the accelerator-reported
// descriptor plus whatever labelling context Configure has set. Multiple
// stream workers sharing the same model path share one ModelHandle.
type ModelHandle struct {
	Path string

	mu       sync.Mutex
	refCount int
	device   any // the Device's opaque handle
	info     DeviceModelInfo
	desc     nn.ModelDescriptor
}

// Descriptor returns a snapshot of the handle's current model descriptor.
func (h *ModelHandle) Descriptor() nn.ModelDescriptor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.desc
}

// Engine owns the Device adapter and the cache of loaded models, keyed by
// model file path, ref-counted so that two streams pointing at the same
// model share one accelerator-resident copy (§4.2).
type Engine struct {
	device Device
	log    logs.Log

	mu     sync.Mutex
	models map[string]*ModelHandle
}

func NewEngine(device Device, log logs.Log) *Engine {
	return &Engine{
		device: device,
		log:    log,
		models: map[string]*ModelHandle{},
	}
}

// GetOrLoad returns the cached handle for modelPath, loading it on the
// Device if this is the first reference, and bumps its reference count.
// Callers must call Release when they no longer need the handle.
func (e *Engine) GetOrLoad(modelPath string, batchSize int) (*ModelHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if h, ok := e.models[modelPath]; ok {
		h.mu.Lock()
		h.refCount++
		h.mu.Unlock()
		return h, nil
	}

	devHandle, info, err := e.device.LoadModel(modelPath, batchSize)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", modelPath, err)
	}

	h := &ModelHandle{
		Path:     modelPath,
		refCount: 1,
		device:   devHandle,
		info:     info,
		desc: nn.ModelDescriptor{
			Path:              modelPath,
			InputW:            info.InputW,
			InputH:            info.InputH,
			BatchSize:         info.BatchSize,
			OutputKind:        parseOutputKind(info.OutputKind),
			NumClasses:        info.NumClasses,
			MaxBBoxesPerClass: 100,
		},
	}
	e.models[modelPath] = h
	e.log.Infof("nnaccel: loaded model %s (%dx%d batch=%d kind=%s)", modelPath, info.InputW, info.InputH, info.BatchSize, info.OutputKind)
	return h, nil
}

// Release drops one reference to h, closing the underlying Device model and
// evicting it from the cache once the last reference is gone.
func (e *Engine) Release(h *ModelHandle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h.mu.Lock()
	h.refCount--
	dead := h.refCount <= 0
	h.mu.Unlock()

	if dead {
		e.device.CloseModel(h.device)
		delete(e.models, h.Path)
		e.log.Infof("nnaccel: unloaded model %s", h.Path)
	}
}

// Configure sets the labelling context (task, keypoint count, class labels)
// that the raw-output parsers need but the accelerator itself doesn't know
// about — it only knows tensor shapes, not semantics.
func (e *Engine) Configure(h *ModelHandle, task nn.Task, numKeypoints int, classLabels []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.desc.Task = task
	h.desc.NumKeypoints = numKeypoints
	h.desc.ClassLabels = classLabels
	if len(classLabels) > 0 {
		h.desc.NumClasses = len(classLabels)
	}
}

// RunSingle runs one RGB frame through the model and returns its detections
// in original-frame pixel coordinates. On a transient device error it logs,
// sleeps 100ms, and returns an empty (not nil-error) detection slice — the
// handle remains usable for the next call (§4.2 failure semantics).
func (e *Engine) RunSingle(h *ModelHandle, rgb []byte, frameW, frameH int, confThreshold float32) []nn.Detection {
	results := e.runBatchFrames(h, [][]byte{rgb}, []int{frameW}, []int{frameH}, confThreshold)
	return results[0]
}

// RunBatch runs several RGB frames (from different streams, already
// letterboxed by the caller, or raw — RunBatch letterboxes as needed) in a
// single accelerator call and returns one detection slice per input frame,
// aligned by index.
func (e *Engine) RunBatch(h *ModelHandle, frames [][]byte, frameWidths, frameHeights []int, confThreshold float32) [][]nn.Detection {
	return e.runBatchFrames(h, frames, frameWidths, frameHeights, confThreshold)
}

func (e *Engine) runBatchFrames(h *ModelHandle, frames [][]byte, frameWidths, frameHeights []int, confThreshold float32) [][]nn.Detection {
	desc := h.Descriptor()
	n := len(frames)
	out := make([][]nn.Detection, n)

	letterboxed := PageAlignedAlloc(desc.BatchSize * desc.InputW * desc.InputH * 3)
	infos := make([]nn.LetterboxInfo, n)
	for i := 0; i < n && i < desc.BatchSize; i++ {
		dst := letterboxed[i*desc.InputW*desc.InputH*3 : (i+1)*desc.InputW*desc.InputH*3]
		infos[i] = nn.Letterbox(frames[i], frameWidths[i], frameHeights[i], dst, desc.InputW, desc.InputH)
	}
	// Neutral-grey pad frames for any unused batch slots (§4.3).
	for i := n; i < desc.BatchSize; i++ {
		dst := letterboxed[i*desc.InputW*desc.InputH*3 : (i+1)*desc.InputW*desc.InputH*3]
		for j := range dst {
			dst[j] = nn.DefaultPadValue
		}
	}

	h.mu.Lock()
	devHandle := h.device
	h.mu.Unlock()

	raw, err := e.device.Run(devHandle, letterboxed, desc.BatchSize, desc.InputW, desc.InputH, DefaultRunTimeout)
	if err != nil {
		e.log.Warnf("nnaccel: transient device error on %s: %v", h.Path, err)
		time.Sleep(100 * time.Millisecond)
		for i := range out {
			out[i] = nil
		}
		return out
	}

	for i := 0; i < n; i++ {
		var dets []nn.Detection
		switch desc.OutputKind {
		case nn.OutputRawYolo:
			dets = ParseRawYoloOutput(raw, i, &desc, confThreshold)
		default:
			dets = ParseNmsOutput(raw, i, &desc, confThreshold)
		}
		kept := dets[:0]
		for j := range dets {
			ox1, oy1, ox2, oy2 := infos[i].ToOriginalBox(
				float32(dets[j].BBox.X), float32(dets[j].BBox.Y),
				float32(dets[j].BBox.X2()), float32(dets[j].BBox.Y2()))
			bbox := nn.BoundingBox{X: int(ox1), Y: int(oy1), Width: int(ox2 - ox1), Height: int(oy2 - oy1)}
			clamped, ok := bbox.ClampToFrame(frameWidths[i], frameHeights[i])
			if !ok {
				continue
			}
			dets[j].BBox = clamped
			for k := range dets[j].Keypoints {
				kx, ky := infos[i].ToOriginal(dets[j].Keypoints[k].X, dets[j].Keypoints[k].Y)
				dets[j].Keypoints[k].X = kx / float32(frameWidths[i])
				dets[j].Keypoints[k].Y = ky / float32(frameHeights[i])
			}
			kept = append(kept, dets[j])
		}
		out[i] = kept
	}

	return out
}

// Shutdown releases every cached model handle, regardless of reference
// count, and is called once during the daemon's orderly shutdown sequence
// (§5).
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for path, h := range e.models {
		e.device.CloseModel(h.device)
		delete(e.models, path)
	}
}

func parseOutputKind(s string) nn.OutputKind {
	if s == "raw_yolo" {
		return nn.OutputRawYolo
	}
	return nn.OutputNms
}
