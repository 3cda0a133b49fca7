// Package logutil provides a prefix-wrapping decorator over
// cyclopcam/logs.Log, used to tag every stream worker's and batch
// scheduler's log lines with a [stream_id] / [model] identifier.
package logutil

import "github.com/cyclopcam/logs"

// PrefixLogger writes to the underlying log, prefixing every message with
// a fixed string.
type PrefixLogger struct {
	Log    logs.Log
	Prefix string
}

// NewPrefixLogger creates a PrefixLogger, adding a trailing space onto
// prefix.
func NewPrefixLogger(log logs.Log, prefix string) *PrefixLogger {
	return NewPrefixLoggerNoSpace(log, prefix+" ")
}

// NewPrefixLoggerNoSpace creates a PrefixLogger without adding a space
// onto prefix.
func NewPrefixLoggerNoSpace(log logs.Log, prefix string) *PrefixLogger {
	return &PrefixLogger{Log: log, Prefix: prefix}
}

func (l *PrefixLogger) Close() {
	l.Log.Close()
}

func (l *PrefixLogger) Debugf(format string, a ...interface{}) {
	l.Log.Debugf(l.Prefix+format, a...)
}

func (l *PrefixLogger) Infof(format string, a ...interface{}) {
	l.Log.Infof(l.Prefix+format, a...)
}

func (l *PrefixLogger) Warnf(format string, a ...interface{}) {
	l.Log.Warnf(l.Prefix+format, a...)
}

func (l *PrefixLogger) Errorf(format string, a ...interface{}) {
	l.Log.Errorf(l.Prefix+format, a...)
}

func (l *PrefixLogger) Criticalf(format string, a ...interface{}) {
	l.Log.Criticalf(l.Prefix+format, a...)
}
