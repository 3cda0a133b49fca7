package logutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type capturingLog struct {
	lines  []string
	closed bool
}

func (l *capturingLog) Debugf(format string, a ...interface{}) { l.lines = append(l.lines, fmt.Sprintf(format, a...)) }
func (l *capturingLog) Infof(format string, a ...interface{})  { l.lines = append(l.lines, fmt.Sprintf(format, a...)) }
func (l *capturingLog) Warnf(format string, a ...interface{})  { l.lines = append(l.lines, fmt.Sprintf(format, a...)) }
func (l *capturingLog) Errorf(format string, a ...interface{}) { l.lines = append(l.lines, fmt.Sprintf(format, a...)) }
func (l *capturingLog) Criticalf(format string, a ...interface{}) { l.lines = append(l.lines, fmt.Sprintf(format, a...)) }
func (l *capturingLog) Close()                                  { l.closed = true }

func TestPrefixLoggerPrependsPrefix(t *testing.T) {
	cap := &capturingLog{}
	l := NewPrefixLogger(cap, "[cam1]")

	l.Infof("connected to %s", "rtsp://x")

	require.Equal(t, []string{"[cam1] connected to rtsp://x"}, cap.lines)
}

func TestPrefixLoggerNoSpaceVariant(t *testing.T) {
	cap := &capturingLog{}
	l := NewPrefixLoggerNoSpace(cap, "[cam1]")

	l.Warnf("reconnecting")

	require.Equal(t, []string{"[cam1]reconnecting"}, cap.lines)
}

func TestPrefixLoggerCloseDelegates(t *testing.T) {
	cap := &capturingLog{}
	l := NewPrefixLogger(cap, "x")
	l.Close()
	require.True(t, cap.closed)
}
