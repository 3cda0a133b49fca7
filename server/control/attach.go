package control

import (
	"sync"

	"github.com/cyclopcam/logs"

	"github.com/ljj727/edge-core-hailo/pkg/apperr"
	"github.com/ljj727/edge-core-hailo/pkg/batch"
	"github.com/ljj727/edge-core-hailo/pkg/logutil"
	"github.com/ljj727/edge-core-hailo/pkg/modelstore"
	"github.com/ljj727/edge-core-hailo/pkg/nn"
	"github.com/ljj727/edge-core-hailo/pkg/nnaccel"
	"github.com/ljj727/edge-core-hailo/pkg/stream"
)

// modelRunner adapts one loaded nnaccel.ModelHandle to both
// stream.Inferencer (direct single-frame inference) and batch.Runner (batch
// inference) — the same accelerator call underlies both, §4.5 step 3's
// choice between them is purely a matter of which interface the worker
// holds.
type modelRunner struct {
	engine *nnaccel.Engine
	handle *nnaccel.ModelHandle
}

func (r *modelRunner) RunSingle(rgb []byte, width, height int, confThreshold float32) []nn.Detection {
	return r.engine.RunSingle(r.handle, rgb, width, height, confThreshold)
}

func (r *modelRunner) RunBatch(frames [][]byte, widths, heights []int, confThreshold float32) [][]nn.Detection {
	return r.engine.RunBatch(r.handle, frames, widths, heights, confThreshold)
}

// modelAttachment is one model's shared accelerator state, reference
// counted across every stream attached to it (§4.6 "Reference counts on
// model handles are incremented when a worker attaches and decremented on
// detach / stop / registry removal").
type modelAttachment struct {
	modelID   string
	handle    *nnaccel.ModelHandle
	runner    *modelRunner
	scheduler *batch.Scheduler // non-nil only when at least one attached stream uses batch_size > 1
	refCount  int
}

// modelAttacher resolves a Config.ModelID into the Inferencer or
// BatchSubmitter a stream.Worker needs, sharing one ModelHandle (and, for
// batched streams, one batch.Scheduler) across every stream using the same
// model — grounded on nnaccel.Engine's own per-path ref-counted cache plus
// BatchInferenceManager's one-scheduler-per-model design (§4.2, §4.3).
type modelAttacher struct {
	log     logs.Log
	engine  *nnaccel.Engine
	catalog *modelstore.Catalog

	mu          sync.Mutex
	attachments map[string]*modelAttachment
}

func newModelAttacher(log logs.Log, engine *nnaccel.Engine, catalog *modelstore.Catalog) *modelAttacher {
	return &modelAttacher{
		log:         log,
		engine:      engine,
		catalog:     catalog,
		attachments: map[string]*modelAttachment{},
	}
}

// Attach loads (or reuses) modelID's accelerator handle, bumps its catalog
// usage_count, and returns the collaborator the worker should hold: an
// Inferencer for batchSize <= 1, a BatchSubmitter otherwise.
func (a *modelAttacher) Attach(modelID string, batchSize int, confThreshold float32) (stream.Inferencer, stream.BatchSubmitter, error) {
	rec, err := a.catalog.Get(modelID)
	if err != nil {
		return nil, nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	att, ok := a.attachments[modelID]
	if !ok {
		handle, err := a.engine.GetOrLoad(rec.HefPath, batchSize)
		if err != nil {
			return nil, nil, apperr.Wrap(apperr.ModelLoad, err)
		}
		a.engine.Configure(handle, nn.ParseTask(rec.Task), rec.NumKeypoints, rec.Labels())
		att = &modelAttachment{
			modelID: modelID,
			handle:  handle,
			runner:  &modelRunner{engine: a.engine, handle: handle},
		}
		a.attachments[modelID] = att
	}
	att.refCount++

	if batchSize <= 1 {
		if err := a.catalog.IncrementUsage(modelID); err != nil {
			a.log.Warnf("control: failed to increment usage for model %s: %v", modelID, err)
		}
		return att.runner, nil, nil
	}

	if att.scheduler == nil {
		sched := batch.NewScheduler(att.runner, logutil.NewPrefixLogger(a.log, "[model "+modelID+"]"), batchSize)
		sched.ConfThreshold = confThreshold
		sched.Start()
		att.scheduler = sched
	}
	if err := a.catalog.IncrementUsage(modelID); err != nil {
		a.log.Warnf("control: failed to increment usage for model %s: %v", modelID, err)
	}
	return nil, att.scheduler, nil
}

// Detach drops one reference to modelID, decrements its catalog
// usage_count, and releases the accelerator handle (stopping its batch
// scheduler first) once the last stream detaches.
func (a *modelAttacher) Detach(modelID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	att, ok := a.attachments[modelID]
	if !ok {
		return
	}
	att.refCount--
	if err := a.catalog.DecrementUsage(modelID); err != nil {
		a.log.Warnf("control: failed to decrement usage for model %s: %v", modelID, err)
	}
	if att.refCount > 0 {
		return
	}

	if att.scheduler != nil {
		att.scheduler.Stop()
	}
	a.engine.Release(att.handle)
	delete(a.attachments, modelID)
}
