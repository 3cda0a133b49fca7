package nnaccel

import "time"

// RawOutput is one named output tensor returned by the accelerator for a
// single inference job, in the wire format the NMS/raw-YOLO parsers expect
// (§4.2.1, §4.2.2).
type RawOutput struct {
	Name  string
	Data  []float32
	Shape []int
}

// DeviceModelInfo is what the accelerator reports back when a model is
// loaded: the dimensions and output layout baked into the compiled model
// file, as opposed to labelling context (task, keypoints, class names)
// which is supplied later by the caller via Configure.
type DeviceModelInfo struct {
	InputW, InputH int
	BatchSize      int
	OutputKind     string   // "nms" or "raw_yolo"
	OutputNames    []string // tensor name tags, e.g. "conv43", "conv44", ...
	NumClasses     int
}

// Device is the wire-level accelerator primitive: load a compiled model,
// run a batch of frames through it, and free the model. This daemon talks
// to exactly one real accelerator driver through this interface — loading
// the driver itself, and the bytes it expects on the wire, are explicitly
// out of scope (§1); every concrete Device is an external collaborator
// adapter, never hand-rolled hardware logic.
type Device interface {
	LoadModel(path string, batchSize int) (handle any, info DeviceModelInfo, err error)
	Run(handle any, frames []byte, batchSize, width, height int, timeout time.Duration) ([]RawOutput, error)
	CloseModel(handle any)
}

// ErrDeviceTransient wraps a Device error judged recoverable: the caller
// should log it, sleep briefly, and return an empty detection result rather
// than tearing down the model handle (§4.2, failure semantics).
type ErrDeviceTransient struct {
	Err error
}

func (e *ErrDeviceTransient) Error() string { return "device transient error: " + e.Err.Error() }
func (e *ErrDeviceTransient) Unwrap() error { return e.Err }
