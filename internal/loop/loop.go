// Package loop runs the single-threaded foreground domain: an ordered task
// queue and an on-demand frame driver sharing one goroutine.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrStopped is returned when posting to a loop that has stopped.
	ErrStopped = errors.New("loop stopped")

	// ErrRunning is returned when Run is called twice.
	ErrRunning = errors.New("loop already running")
)

// Config configures the loop.
type Config struct {
	// TargetFPS caps the frame rate (default: 60).
	TargetFPS int
	// QueueSize is the task channel buffer (default: 256).
	QueueSize int
	Logger    *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{TargetFPS: 60, QueueSize: 256}
}

// Loop owns the foreground goroutine. Tasks posted from any goroutine run in
// order on it; the frame callback runs on it whenever a redraw is pending.
type Loop struct {
	frameTime time.Duration
	tasks     chan func()
	logger    *slog.Logger

	onFrame func(now time.Time) bool

	redraw  atomic.Bool
	running atomic.Bool

	frameCount atomic.Uint64
	taskCount  atomic.Uint64
	panics     atomic.Uint64

	quit     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a loop with config.
func New(config Config) *Loop {
	if config.TargetFPS < 1 {
		config.TargetFPS = 60
	}
	if config.QueueSize < 1 {
		config.QueueSize = 256
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		frameTime: time.Second / time.Duration(config.TargetFPS),
		tasks:     make(chan func(), config.QueueSize),
		logger:    logger,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// OnFrame registers the frame callback. It returns true to request another
// frame. Must be called before Run.
func (l *Loop) OnFrame(fn func(now time.Time) bool) {
	l.onFrame = fn
}

// Run drives the loop until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(l.done)

	ticker := time.NewTicker(l.frameTime)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-l.quit:
			return nil
		case task := <-l.tasks:
			l.runTask(task)
		case now := <-ticker.C:
			l.tick(now)
		}
	}
}

// Stop ends Run. Pending tasks are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
}

// Done is closed once Run returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Post queues task for the foreground. It blocks while the queue is full and
// must not be called from the foreground itself in that state.
func (l *Loop) Post(task func()) error {
	select {
	case <-l.quit:
		return ErrStopped
	default:
	}
	select {
	case l.tasks <- task:
		return nil
	case <-l.quit:
		return ErrStopped
	}
}

// Do runs fn on the foreground and waits for it. It must not be called from
// the foreground.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.quit:
		return ErrStopped
	}
}

// Invalidate requests a frame at the next tick. Safe from any goroutine.
func (l *Loop) Invalidate() {
	l.redraw.Store(true)
}

func (l *Loop) tick(now time.Time) {
	if !l.redraw.Swap(false) || l.onFrame == nil {
		return
	}
	l.frameCount.Add(1)
	var again bool
	l.guard("frame", func() { again = l.onFrame(now) })
	if again {
		l.redraw.Store(true)
	}
}

func (l *Loop) runTask(task func()) {
	l.taskCount.Add(1)
	l.guard("task", task)
}

// guard keeps a panicking task or frame from taking down the foreground.
func (l *Loop) guard(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.panics.Add(1)
			l.logger.Error("foreground panic", "kind", kind, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

// Stats returns loop statistics.
func (l *Loop) Stats() Stats {
	return Stats{
		Frames: l.frameCount.Load(),
		Tasks:  l.taskCount.Load(),
		Panics: l.panics.Load(),
	}
}

// Stats contains loop counters.
type Stats struct {
	Frames uint64
	Tasks  uint64
	Panics uint64
}
