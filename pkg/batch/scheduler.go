// Package batch implements the bounded-wait batch collector that groups
// frames from multiple streams into single accelerator calls (§4.3).
package batch

import (
	"sync"
	"time"

	"github.com/cyclopcam/logs"

	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

// DefaultBatchTimeout is the deadline the worker waits for additional
// frames to arrive before running an under-full batch.
const DefaultBatchTimeout = 50 * time.Millisecond

// Runner is whatever actually executes a batch of frames on the
// accelerator — satisfied in production by server/control's adapter that
// binds an *nnaccel.Engine to one loaded model handle, and by a fake in
// tests.
type Runner interface {
	RunBatch(frames [][]byte, widths, heights []int, confThreshold float32) [][]nn.Detection
}

// ResultSink receives the detections for one submitted frame, identified by
// stream id, once its batch has been processed.
type ResultSink func(streamID string, detections []nn.Detection)

type pendingFrame struct {
	streamID   string
	rgb        []byte
	width      int
	height     int
	submitTime time.Time
	sink       ResultSink
}

// Scheduler collects frames from an unbounded FIFO queue into batches of up
// to BatchSize, each batch started as soon as the first frame arrives and
// closed either when it's full or when BatchTimeout elapses since that
// first frame, whichever comes first. Frames beyond BatchSize in a given
// collection round stay queued for the next batch.
//
// Grounded on BatchInferenceManager's WorkerLoop/ProcessBatch.
type Scheduler struct {
	BatchSize     int
	BatchTimeout  time.Duration
	ConfThreshold float32

	runner Runner
	log    logs.Log

	mu      sync.Mutex
	queue   []*pendingFrame
	newItem chan struct{}
	stop    chan struct{}
	done    chan struct{}

	running bool
}

func NewScheduler(runner Runner, log logs.Log, batchSize int) *Scheduler {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Scheduler{
		BatchSize:     batchSize,
		BatchTimeout:  DefaultBatchTimeout,
		ConfThreshold: 0.5,
		runner:        runner,
		log:           log,
		newItem:       make(chan struct{}, 1),
	}
}

// Start launches the worker goroutine. Safe to call once.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.workerLoop()
	s.log.Infof("batch: scheduler started (batch_size=%d, timeout=%v)", s.BatchSize, s.BatchTimeout)
}

// Stop signals the worker to drain the remaining queue and exit, then
// blocks until it has done so.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	<-s.done
	s.log.Infof("batch: scheduler stopped")
}

// SubmitFrame enqueues one frame for batched inference. sink is invoked on
// the worker goroutine once its batch has run.
func (s *Scheduler) SubmitFrame(streamID string, rgb []byte, width, height int, sink ResultSink) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.log.Warnf("batch: scheduler not running, dropping frame from %s", streamID)
		return
	}
	s.queue = append(s.queue, &pendingFrame{
		streamID: streamID, rgb: rgb, width: width, height: height,
		submitTime: time.Now(), sink: sink,
	})
	s.mu.Unlock()

	select {
	case s.newItem <- struct{}{}:
	default:
	}
}

func (s *Scheduler) workerLoop() {
	defer close(s.done)
	for {
		batch := s.collectBatch()
		if len(batch) > 0 {
			s.processBatch(batch)
		}
		if s.stoppedAndEmpty() {
			return
		}
	}
}

// collectBatch blocks until at least one frame is queued (or shutdown), then
// keeps collecting until BatchSize is reached or BatchTimeout has elapsed
// since the first frame arrived.
func (s *Scheduler) collectBatch() []*pendingFrame {
	first := s.waitForFirstFrame()
	if first == nil {
		return nil
	}
	batch := []*pendingFrame{first}

	deadline := first.submitTime.Add(s.BatchTimeout)
	for len(batch) < s.BatchSize {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		next := s.waitForNextFrame(remaining)
		if next == nil {
			break
		}
		batch = append(batch, next)
	}
	return batch
}

func (s *Scheduler) waitForFirstFrame() *pendingFrame {
	for {
		if f := s.popFront(); f != nil {
			return f
		}
		select {
		case <-s.newItem:
			continue
		case <-s.stop:
			if f := s.popFront(); f != nil {
				return f
			}
			return nil
		}
	}
}

func (s *Scheduler) waitForNextFrame(timeout time.Duration) *pendingFrame {
	if f := s.popFront(); f != nil {
		return f
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.newItem:
		return s.popFront()
	case <-s.stop:
		return s.popFront()
	case <-timer.C:
		return nil
	}
}

func (s *Scheduler) popFront() *pendingFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	f := s.queue[0]
	s.queue = s.queue[1:]
	return f
}

func (s *Scheduler) stoppedAndEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.stop:
		return len(s.queue) == 0
	default:
		return false
	}
}

func (s *Scheduler) processBatch(batch []*pendingFrame) {
	frames := make([][]byte, len(batch))
	widths := make([]int, len(batch))
	heights := make([]int, len(batch))
	for i, f := range batch {
		frames[i] = f.rgb
		widths[i] = f.width
		heights[i] = f.height
	}

	results := s.runner.RunBatch(frames, widths, heights, s.ConfThreshold)

	for i, f := range batch {
		var dets []nn.Detection
		if i < len(results) {
			dets = results[i]
		}
		if f.sink != nil {
			f.sink(f.streamID, dets)
		}
	}
}
