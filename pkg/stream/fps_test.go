package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEstimateFPS(t *testing.T) {
	intervals := []time.Duration{66 * time.Millisecond, 67 * time.Millisecond, 66 * time.Millisecond}
	require.Equal(t, 15.0, EstimateFPS(intervals))

	intervals = []time.Duration{2000 * time.Millisecond, 2001 * time.Millisecond, 1999 * time.Millisecond}
	require.Equal(t, 0.5, EstimateFPS(intervals))
}

func TestEstimateFPSEmptyDefaultsToTen(t *testing.T) {
	require.Equal(t, 10.0, EstimateFPS(nil))
}

func TestFpsTrackerWindowIsBounded(t *testing.T) {
	var tr fpsTracker
	now := time.Now()
	for i := 0; i <= FpsWindow+10; i++ {
		now = now.Add(33 * time.Millisecond)
		tr.observe(now)
	}
	require.LessOrEqual(t, len(tr.intervals), FpsWindow)
}
