package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trace struct {
	mu     sync.Mutex
	events []string
}

func (t *trace) add(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, s)
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

func component(tr *trace, name string, startErr error) Component {
	return Component{
		Name: name,
		Start: func(context.Context) error {
			if startErr != nil {
				return startErr
			}
			tr.add("start " + name)
			return nil
		},
		Stop: func(context.Context) error {
			tr.add("stop " + name)
			return nil
		},
	}
}

func TestAppStopsInReverseOrder(t *testing.T) {
	tr := &trace{}
	ctx, cancel := context.WithCancel(context.Background())
	app := New(nil,
		WithComponent(component(tr, "queue", nil)),
		WithComponent(component(tr, "http", nil)),
		WithCloser(func() error { tr.add("close db"); return nil }),
	)

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	require.Eventually(t, func() bool { return len(tr.list()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()

	require.NoError(t, <-done)
	assert.Equal(t, []string{"start queue", "start http", "stop http", "stop queue", "close db"}, tr.list())
}

func TestAppUnwindsOnStartFailure(t *testing.T) {
	tr := &trace{}
	boom := errors.New("redis down")
	app := New(nil,
		WithComponent(component(tr, "http", nil)),
		WithComponent(component(tr, "queue", boom)),
		WithComponent(component(tr, "consumer", nil)),
	)

	err := app.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"start http", "stop http"}, tr.list())
}

func TestAppStopsOnFatalError(t *testing.T) {
	tr := &trace{}
	fatal := make(chan error, 1)
	app := New(nil, WithComponent(component(tr, "http", nil)), WithFatalErrors(fatal))

	listenErr := errors.New("address in use")
	fatal <- listenErr
	err := app.Run(context.Background())
	assert.ErrorIs(t, err, listenErr)
	assert.Equal(t, []string{"start http", "stop http"}, tr.list())
}
