// Package diagnostics provides sinks for structured pipeline events.
package diagnostics

import (
	"sort"
	"sync"

	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
)

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(domsvc.DiagnosticEvent) {}

// LogSink writes events at debug level; "warning" events go out at warn.
type LogSink struct {
	l *applogger.Logger
}

func NewLogSink(l *applogger.Logger) *LogSink {
	return &LogSink{l: l}
}

func (s *LogSink) Emit(ev domsvc.DiagnosticEvent) {
	fields := make([]applogger.Field, 0, len(ev.Fields)+2)
	fields = append(fields, applogger.String("stage", ev.Stage), applogger.String("kind", ev.Kind))
	keys := make([]string, 0, len(ev.Fields))
	for k := range ev.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, applogger.Any(k, ev.Fields[k]))
	}
	if ev.Kind == KindWarning {
		s.l.Warn(ev.Message, fields...)
		return
	}
	s.l.Debug(ev.Message, fields...)
}

// Recorder keeps events in memory, for interactive responses and tests.
type Recorder struct {
	mu     sync.Mutex
	events []domsvc.DiagnosticEvent
}

func (r *Recorder) Emit(ev domsvc.DiagnosticEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *Recorder) Events() []domsvc.DiagnosticEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domsvc.DiagnosticEvent(nil), r.events...)
}

// Kinds returns the kind of every recorded event for a stage, in order.
func (r *Recorder) Kinds(stage string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Stage == stage {
			out = append(out, ev.Kind)
		}
	}
	return out
}

// Tee fans events out to several sinks.
type Tee []domsvc.DiagnosticsSink

func (t Tee) Emit(ev domsvc.DiagnosticEvent) {
	for _, s := range t {
		if s != nil {
			s.Emit(ev)
		}
	}
}

// Event kinds used across stages.
const (
	KindInfo    = "info"
	KindWarning = "warning"
	KindMetric  = "metric"
	KindSplit   = "split"
)

// Or returns sink, or Nop when sink is nil.
func Or(sink domsvc.DiagnosticsSink) domsvc.DiagnosticsSink {
	if sink == nil {
		return Nop{}
	}
	return sink
}
