package loop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func startLoop(t *testing.T, l *Loop) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return cancel
}

func TestLoop_tasks_run_in_order(t *testing.T) {
	l := New(DefaultConfig())
	startLoop(t, l)

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		if err := l.Post(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Post: %v", err)
		}
	}
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 tasks, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("tasks out of order: %v", got)
		}
	}
}

func TestLoop_frames_on_demand(t *testing.T) {
	l := New(Config{TargetFPS: 200})
	var frames atomic.Int32
	l.OnFrame(func(now time.Time) bool {
		return frames.Add(1) < 3
	})
	startLoop(t, l)

	time.Sleep(50 * time.Millisecond)
	if n := frames.Load(); n != 0 {
		t.Fatalf("no frame expected before Invalidate, got %d", n)
	}

	l.Invalidate()
	deadline := time.Now().Add(2 * time.Second)
	for frames.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if n := frames.Load(); n != 3 {
		t.Errorf("expected exactly 3 frames, got %d", n)
	}
}

func TestLoop_recovers_panics(t *testing.T) {
	l := New(DefaultConfig())
	startLoop(t, l)

	_ = l.Post(func() { panic("boom") })
	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("loop should survive a panicking task")
	}
	if l.Stats().Panics != 1 {
		t.Errorf("panics: got %d", l.Stats().Panics)
	}
}

func TestLoop_stopped(t *testing.T) {
	l := New(DefaultConfig())
	cancel := startLoop(t, l)
	cancel()
	<-l.Done()

	if err := l.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Post after stop: got %v", err)
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Do after stop: got %v", err)
	}
	if err := l.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second Run: got %v", err)
	}
}

func TestLoop_Do_honours_context(t *testing.T) {
	l := New(DefaultConfig())
	startLoop(t, l)

	release := make(chan struct{})
	_ = l.Post(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline, got %v", err)
	}
}
