package stream

import (
	"math"
	"slices"
	"time"
)

// FpsWindow is the number of most recent frame intervals kept for the
// median-based FPS estimate (§4.5 step 1). The window is a count of
// intervals, not a fixed time span such as one second.
const FpsWindow = 30

// fpsTracker keeps a small sliding window of inter-frame durations and
// derives an FPS estimate from their median, tolerating the sub-1-FPS
// configurations some cameras use.
type fpsTracker struct {
	intervals []time.Duration
	lastFrame time.Time
}

func (t *fpsTracker) observe(now time.Time) {
	if !t.lastFrame.IsZero() {
		t.intervals = append(t.intervals, now.Sub(t.lastFrame))
		if len(t.intervals) > FpsWindow {
			t.intervals = t.intervals[len(t.intervals)-FpsWindow:]
		}
	}
	t.lastFrame = now
}

func (t *fpsTracker) fps() float64 {
	return EstimateFPS(t.intervals)
}

// EstimateFPS derives an average frames-per-second from a set of frame
// intervals, using the median to resist outliers. Results of 0.9 FPS or more
// are rounded to the nearest whole number; slower results become 1/N, where
// N is the seconds per frame rounded to the nearest whole number.
func EstimateFPS(frameIntervals []time.Duration) float64 {
	if len(frameIntervals) == 0 {
		return 10
	}
	sorted := make([]time.Duration, len(frameIntervals))
	copy(sorted, frameIntervals)
	slices.Sort(sorted)
	mid := sorted[len(sorted)/2]
	if mid == 0 {
		return 10
	}
	fps := float64(time.Second) / float64(mid)
	if fps >= 0.9 {
		return math.Round(fps)
	}
	secondsPerFrame := 1.0 / fps
	spfR := math.Round(secondsPerFrame)
	return 1 / spfR
}
