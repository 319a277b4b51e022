package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	applogger "github.com/SeekerKids/forecast-prophet-kp/pkg/logger"
)

// Component is a long-running part of the daemon.
type Component struct {
	Name  string
	Start func(ctx context.Context) error
	Stop  func(ctx context.Context) error
}

// App encapsulates the application lifecycle: components start in order and
// stop in reverse, then the closers run.
type App struct {
	l               *applogger.Logger
	components      []Component
	closers         []func() error
	fatal           []<-chan error
	shutdownTimeout time.Duration
}

type Option func(*App)

// WithComponent appends a component to the start order.
func WithComponent(c Component) Option {
	return func(a *App) { a.components = append(a.components, c) }
}

// WithCloser registers a resource released after every component stopped.
func WithCloser(fn func() error) Option {
	return func(a *App) { a.closers = append(a.closers, fn) }
}

// WithFatalErrors stops the app when ch yields an error.
func WithFatalErrors(ch <-chan error) Option {
	return func(a *App) { a.fatal = append(a.fatal, ch) }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) { a.shutdownTimeout = d }
}

func New(l *applogger.Logger, opts ...Option) *App {
	if l == nil {
		l = applogger.Nop()
	}
	a := &App{l: l, shutdownTimeout: 30 * time.Second}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts every component and blocks until SIGINT/SIGTERM, ctx
// cancellation or a fatal component error, then shuts down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	started, err := a.start(ctx)
	if err != nil {
		a.l.Error("startup failed", applogger.Error(err))
		return errors.Join(err, a.shutdown(started))
	}

	fatal := a.mergeFatal(ctx)
	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case runErr = <-fatal:
		a.l.Error("component failed", applogger.Error(runErr))
	}
	return errors.Join(runErr, a.shutdown(started))
}

func (a *App) start(ctx context.Context) (int, error) {
	for i, c := range a.components {
		if c.Start == nil {
			continue
		}
		if err := c.Start(ctx); err != nil {
			return i, fmt.Errorf("start %s: %w", c.Name, err)
		}
		a.l.Info("component started", applogger.String("component", c.Name))
	}
	return len(a.components), nil
}

// shutdown stops the first n components in reverse order.
func (a *App) shutdown(n int) error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := n - 1; i >= 0; i-- {
		c := a.components[i]
		if c.Stop == nil {
			continue
		}
		if err := c.Stop(ctx); err != nil {
			a.l.Warn("component stop error", applogger.String("component", c.Name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Name, err))
		}
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.l.Warn("close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) mergeFatal(ctx context.Context) <-chan error {
	out := make(chan error, 1)
	for _, ch := range a.fatal {
		go func(ch <-chan error) {
			select {
			case err, ok := <-ch:
				if !ok || err == nil {
					return
				}
				select {
				case out <- err:
				default:
				}
			case <-ctx.Done():
			}
		}(ch)
	}
	return out
}
