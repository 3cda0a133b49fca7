package bus

import (
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func TestSubjectFormatsPerStreamID(t *testing.T) {
	require.Equal(t, "stream.cam1", Subject("cam1"))
}

func TestNewNatsBusDefaultsToDisconnected(t *testing.T) {
	b := NewNatsBus(logs.NewTestingLog(t), "")
	require.Equal(t, StateDisconnected, b.State())
	require.False(t, b.IsConnected())
	require.Equal(t, DefaultNatsURL, b.url)
}

func TestPublishWithoutConnectionReturnsErrorNotBlock(t *testing.T) {
	b := NewNatsBus(logs.NewTestingLog(t), "nats://127.0.0.1:1")
	err := b.Publish(Subject("cam1"), []byte(`{}`))
	require.Error(t, err)
}

func TestStatsStartAtZero(t *testing.T) {
	b := NewNatsBus(logs.NewTestingLog(t), "")
	stats := b.Stats()
	require.Equal(t, uint64(0), stats.MessagesPublished)
	require.Equal(t, int32(0), stats.ReconnectAttempts)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "connected", StateConnected.String())
	require.Equal(t, "disconnected", StateDisconnected.String())
}
