package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// hook pairs a start step with the stop step that undoes it. Either may
// be nil.
type hook struct {
	name  string
	start func(context.Context) error
	stop  func(context.Context) error
}

// Lifecycle starts background components in registration order and stops
// them in reverse.
type Lifecycle struct {
	mu      sync.Mutex
	hooks   []hook
	started int // hooks started so far; -1 when not running
}

// NewLifecycle creates a new lifecycle manager.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{started: -1}
}

// Append registers a start step and its matching stop step.
func (l *Lifecycle) Append(name string, start, stop func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook{name: name, start: start, stop: stop})
}

// OnStart registers a step that runs on startup and has nothing to undo.
func (l *Lifecycle) OnStart(name string, fn func(context.Context) error) {
	l.Append(name, fn, nil)
}

// OnStop registers a step that runs on shutdown.
func (l *Lifecycle) OnStop(name string, fn func(context.Context) error) {
	l.Append(name, nil, fn)
}

// Closer is something that can be closed.
type Closer interface {
	Close() error
}

// RegisterCloser closes c on shutdown.
func (l *Lifecycle) RegisterCloser(name string, c Closer) {
	l.OnStop(name, func(context.Context) error { return c.Close() })
}

// Start runs every start step. If one fails, the steps already started are
// stopped in reverse order and the error is returned.
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started >= 0 {
		return errors.New("lifecycle already started")
	}

	for i, h := range l.hooks {
		if h.start == nil {
			continue
		}
		if err := h.start(ctx); err != nil {
			l.stopFrom(ctx, i-1, func(name string, err error) {
				slog.Warn("lifecycle rollback: stop failed", "hook", name, "error", err)
			})
			return fmt.Errorf("starting %s: %w", h.name, err)
		}
	}

	l.started = len(l.hooks)
	return nil
}

// Stop runs every stop step in reverse registration order. It is a no-op
// when the lifecycle is not running.
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started < 0 {
		return nil
	}

	var errs []error
	l.stopFrom(ctx, l.started-1, func(name string, err error) {
		errs = append(errs, fmt.Errorf("stopping %s: %w", name, err))
	})
	l.started = -1
	return errors.Join(errs...)
}

// IsStarted reports whether Start has succeeded and Stop has not run since.
func (l *Lifecycle) IsStarted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started >= 0
}

func (l *Lifecycle) stopFrom(ctx context.Context, last int, onErr func(string, error)) {
	for i := last; i >= 0; i-- {
		h := l.hooks[i]
		if h.stop == nil {
			continue
		}
		if err := h.stop(ctx); err != nil {
			onErr(h.name, err)
		}
	}
}
