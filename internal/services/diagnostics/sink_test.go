package diagnostics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	domsvc "github.com/SeekerKids/forecast-prophet-kp/internal/domain/service"
	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
)

func TestTeeFansOut(t *testing.T) {
	var a, b Recorder
	sink := Tee{&a, nil, &b}
	sink.Emit(domsvc.DiagnosticEvent{Stage: "evaluate", Kind: KindSplit, Message: "split"})

	assert.Len(t, a.Events(), 1)
	assert.Equal(t, []string{KindSplit}, b.Kinds("evaluate"))
	assert.Empty(t, b.Kinds("forecast"))
}

func TestLogSinkWritesWarnings(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(applogger.NewWriter(&buf))
	sink.Emit(domsvc.DiagnosticEvent{Stage: "evaluate", Kind: KindWarning, Message: "test set empty", Fields: map[string]interface{}{"rows": 0}})

	out := buf.String()
	assert.True(t, strings.Contains(out, `"level":"warn"`), out)
	assert.Contains(t, out, `"stage":"evaluate"`)
	assert.Contains(t, out, `"rows":0`)
}

func TestOrDefaultsToNop(t *testing.T) {
	assert.IsType(t, Nop{}, Or(nil))
	r := &Recorder{}
	assert.Same(t, r, Or(r))
}
