package nnaccel

import (
	"fmt"
	"time"
)

// NullDevice is the boundary placeholder for the wire-level accelerator
// driver spec.md §1 explicitly scopes out ("treated as an opaque inference
// primitive"). LoadModel always returns an error, so no model can be
// loaded and attaching a model to a stream fails with a model-load error;
// with NullDevice only video-only streams run. Run always reports a
// transient device error. Swapping in a real accelerator driver (e.g. a cgo Hailo
// binding, grounded on the teacher's nnaccel/hailo package) means
// satisfying this same Device interface, nothing more.
type NullDevice struct{}

func (NullDevice) LoadModel(path string, batchSize int) (any, DeviceModelInfo, error) {
	return nil, DeviceModelInfo{}, fmt.Errorf("nnaccel: no accelerator driver compiled in, cannot load %s", path)
}

func (NullDevice) Run(handle any, frames []byte, batchSize, width, height int, timeout time.Duration) ([]RawOutput, error) {
	return nil, &ErrDeviceTransient{Err: fmt.Errorf("no accelerator driver compiled in")}
}

func (NullDevice) CloseModel(handle any) {}
