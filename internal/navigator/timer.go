package navigator

import (
	"sync"
	"time"
)

// Scheduler runs repeating work on a worker goroutine.
type Scheduler interface {
	// Every calls fn once after initial and then every period until stop is
	// called. stop is idempotent.
	Every(initial, period time.Duration, fn func()) (stop func())
}

// Host is the foreground the navigator runs on.
type Host interface {
	// Post queues a task for the foreground.
	Post(task func()) error
	// Invalidate requests a frame.
	Invalidate()
}

// TickerScheduler is a Scheduler backed by time.Timer and time.Ticker.
type TickerScheduler struct{}

// Every implements Scheduler.Every.
func (TickerScheduler) Every(initial, period time.Duration, fn func()) func() {
	stop := make(chan struct{})
	var once sync.Once

	go func() {
		first := time.NewTimer(initial)
		defer first.Stop()
		select {
		case <-stop:
			return
		case <-first.C:
		}
		fn()

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	return func() { once.Do(func() { close(stop) }) }
}
