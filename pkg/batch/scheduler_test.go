package batch

import (
	"sync"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"

	"github.com/ljj727/edge-core-hailo/pkg/nn"
)

type fakeRunner struct {
	mu        sync.Mutex
	batchSize []int
}

func (f *fakeRunner) RunBatch(frames [][]byte, widths, heights []int, confThreshold float32) [][]nn.Detection {
	f.mu.Lock()
	f.batchSize = append(f.batchSize, len(frames))
	f.mu.Unlock()
	out := make([][]nn.Detection, len(frames))
	for i := range frames {
		out[i] = []nn.Detection{{ClassID: uint16(i)}}
	}
	return out
}

func TestSchedulerDeliversResultsPerStream(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, logs.NewTestingLog(t), 4)
	s.BatchTimeout = 20 * time.Millisecond
	s.Start()
	defer s.Stop()

	var mu sync.Mutex
	results := map[string][]nn.Detection{}
	var wg sync.WaitGroup
	wg.Add(2)

	sink := func(streamID string, dets []nn.Detection) {
		mu.Lock()
		results[streamID] = dets
		mu.Unlock()
		wg.Done()
	}

	s.SubmitFrame("cam1", make([]byte, 10), 4, 4, sink)
	s.SubmitFrame("cam2", make([]byte, 10), 4, 4, sink)

	wg.Wait()
	require.Contains(t, results, "cam1")
	require.Contains(t, results, "cam2")
}

func TestSchedulerRunsUnderfullBatchOnTimeout(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, logs.NewTestingLog(t), 8)
	s.BatchTimeout = 10 * time.Millisecond
	s.Start()
	defer s.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	s.SubmitFrame("cam1", make([]byte, 10), 4, 4, func(streamID string, dets []nn.Detection) {
		wg.Done()
	})

	wg.Wait()
	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Equal(t, []int{1}, runner.batchSize)
}

func TestSchedulerDropsFramesWhenNotRunning(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, logs.NewTestingLog(t), 4)
	called := false
	s.SubmitFrame("cam1", make([]byte, 10), 4, 4, func(streamID string, dets []nn.Detection) {
		called = true
	})
	require.False(t, called)
}

func TestSchedulerStopDrainsQueue(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, logs.NewTestingLog(t), 2)
	s.BatchTimeout = 5 * time.Millisecond
	s.Start()

	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		s.SubmitFrame("cam", make([]byte, 10), 4, 4, func(streamID string, dets []nn.Detection) {
			wg.Done()
		})
	}
	s.Stop()
	wg.Wait()
}
