// Package navigator coordinates automatic slideshow advance with touch-driven
// navigation and produces one composed frame per redraw.
//
// Every exported method must be called on the foreground goroutine of the
// Host. Workers only store the transition start and post tasks back.
package navigator

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"slideshow-navigator/internal/compositor"
	"slideshow-navigator/internal/gesture"
	"slideshow-navigator/internal/media"
)

// ErrNoCurrent is returned by Restore when the source has no current item.
var ErrNoCurrent = errors.New("no current media to restore")

// MediaSource is what the navigator needs from the media cache.
type MediaSource interface {
	Next() (*media.Record, error)
	Previous() (*media.Record, error)
	Current() (*media.Record, error)
	UndoLast()
}

// Options configures a Navigator.
type Options struct {
	Config    Config
	Scheduler Scheduler
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Navigator is the slideshow state machine. It owns the front, back and
// preceding slides, the swipe offset and the glide that follows a release.
type Navigator struct {
	src    MediaSource
	host   Host
	sched  Scheduler
	clock  func() time.Time
	logger *slog.Logger
	config Config

	gesture *gesture.Processor
	comp    *compositor.Compositor

	observers []Observer

	state State

	front, back, prec *media.Record

	offset     float64
	prevOffset float64
	motion     gesture.Motion
	// speculative is set while the cache cursor sits on back rather than front.
	speculative bool

	started        bool
	paused         bool
	pausedManually bool
	pausedByTouch  bool

	firstRequested bool
	stopPoll       func()
	pollGen        uint64

	stopTimer func()
	timerGen  uint64

	// transitionStart is unix nanoseconds, 0 when no cross-fade runs. The
	// timer worker stores it before posting the advance.
	transitionStart atomic.Int64

	last compositor.Frame
}

// New returns a navigator in StateReset, manually paused until Start.
func New(src MediaSource, host Host, opts Options) *Navigator {
	cfg := opts.Config.Normalize()
	sched := opts.Scheduler
	if sched == nil {
		sched = TickerScheduler{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		src:            src,
		host:           host,
		sched:          sched,
		clock:          clock,
		logger:         logger,
		config:         cfg,
		gesture:        gesture.NewProcessor(float64(cfg.Width), float64(cfg.Height)),
		comp:           compositor.New(cfg.Width, cfg.Height),
		state:          StateReset,
		paused:         true,
		pausedManually: true,
	}
}

// Subscribe registers o. Call it before the navigator starts emitting.
func (n *Navigator) Subscribe(o Observer) {
	n.observers = append(n.observers, o)
}

// State returns the sticky state; StateTransitioning is never reported.
func (n *Navigator) State() State {
	return n.state
}

// Config returns the normalized configuration.
func (n *Navigator) Config() Config {
	return n.config
}

// SetPeriod changes the slide period and re-clamps the transition. A running
// timer keeps its period until the next resume.
func (n *Navigator) SetPeriod(p time.Duration) {
	n.config.Period = ClampPeriod(p)
	n.config.Transition = min(n.config.Transition, n.config.Period/2)
}

// SetTransition changes the cross-fade duration, clamped to half a period.
func (n *Navigator) SetTransition(t time.Duration) {
	n.config.Transition = ClampTransition(t, n.config.Period)
}

// SetViewport resizes the slide area. Deceleration and click detection scale
// with it.
func (n *Navigator) SetViewport(width, height int) {
	n.config.Width, n.config.Height = width, height
	n.gesture.SetViewport(float64(width), float64(height))
	n.comp.SetViewport(width, height)
	n.host.Invalidate()
}

// Start starts or resumes the slideshow after a manual or gesture pause. Before
// the first slide is available it only arms the first-item poll.
func (n *Navigator) Start() {
	if !n.pausedManually && !n.paused {
		return
	}
	n.pausedManually = false
	if n.paused && n.started {
		n.unpause()
		return
	}
	n.emitState(StateActive)
	n.host.Invalidate()
}

// Pause stops automatic advance. Clicks do not resume until Start is called.
func (n *Navigator) Pause() {
	if n.pausedManually {
		return
	}
	n.pausedManually = true
	n.pause()
}

// Restore shows the source's current item right away, skipping the first-item
// poll, and enters Paused or Active directly.
func (n *Navigator) Restore(paused bool) error {
	// A rejected restore leaves the gesture alone. While a lookup is
	// outstanding the cursor sits on the neighbour, so check after rolling it
	// back.
	if !n.speculative {
		if _, err := n.src.Current(); err != nil {
			return fmt.Errorf("%w: %v", ErrNoCurrent, err)
		}
	}
	n.dropSwipe()
	cur, err := n.src.Current()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoCurrent, err)
	}
	n.cancelPoll()
	n.prec, n.front, n.back = cur, cur, cur
	n.started = true
	n.pausedManually = false
	n.emitContent(CauseRestore)
	if paused {
		n.pause()
	} else {
		n.unpause()
	}
	n.host.Invalidate()
	return nil
}

// Detach is called when the render surface goes away. It pauses regardless of
// mode and drops any glide, swipe or cross-fade in flight.
func (n *Navigator) Detach() {
	n.pause()
	n.cancelPoll()
	n.firstRequested = n.front != nil
	n.dropSwipe()
	n.transitionStart.Store(0)
}

// Reset forgets every slide and returns to StateReset, manually paused.
func (n *Navigator) Reset() {
	n.pause()
	n.cancelPoll()

	n.started = false
	n.front, n.back, n.prec = nil, nil, nil
	n.speculative = false
	n.motion.Stop()
	n.gesture.Cancel()
	n.offset, n.prevOffset = 0, 0
	n.firstRequested = false
	n.pausedManually = true
	n.pausedByTouch = false
	n.transitionStart.Store(0)
	n.last = compositor.Frame{}

	n.emitState(StateReset)
	n.host.Invalidate()
}

// TouchDown starts a gesture. A playing slideshow pauses, remembering that
// this touch caused it.
func (n *Navigator) TouchDown(s gesture.Sample) {
	if !n.started {
		return
	}
	n.motion.Stop()
	n.gesture.Begin(s, n.offset)
	if !n.paused && !n.pausedManually {
		n.pause()
		n.pausedByTouch = true
	}
}

// TouchMove drags the slides.
func (n *Navigator) TouchMove(s gesture.Sample) {
	if !n.started || !n.gesture.Dragging() {
		return
	}
	n.offset = n.gesture.Move(s)
	n.host.Invalidate()
}

// TouchUp releases the slides into a glide towards the nearest boundary. A
// click resumes play only when an earlier gesture paused it.
func (n *Navigator) TouchUp(s gesture.Sample) TapResult {
	if !n.started || !n.gesture.Dragging() {
		return TapNone
	}
	r := n.gesture.End(s, n.offset)
	n.motion = r.Motion

	result := TapNone
	switch {
	case r.Click && !n.pausedManually && n.paused && !n.pausedByTouch:
		n.unpause()
		result = TapResumed
	case r.Click && n.pausedByTouch:
		result = TapPaused
	case r.Click:
		result = TapHost
	}
	if result != TapResumed {
		n.pausedByTouch = false
	}
	n.host.Invalidate()
	return result
}

// Frame computes the slide positions for now and lays them out. The boolean is
// true when another frame is needed to finish a glide or a cross-fade.
func (n *Navigator) Frame() (compositor.Frame, bool) {
	now := n.clock()
	w, h := n.comp.Viewport()

	if !n.started {
		switch {
		case n.front == nil && !n.firstRequested:
			n.firstRequested = true
			n.requestFirst()
		case n.front != nil && !n.pausedManually:
			n.unpause()
		}
		n.last = compositor.Frame{Width: w, Height: h}
		return n.last, false
	}

	n.integrate(now)

	stamp := n.transitionStart.Load()
	scene := compositor.Scene{
		Front:      slide(n.front),
		Back:       slide(n.back),
		Preceding:  slide(n.prec),
		Offset:     n.offset,
		Transition: n.config.Transition,
		Now:        now,
	}
	if stamp > 0 {
		scene.TransitionStart = time.Unix(0, stamp)
	}
	f := n.comp.Compose(scene)
	if f.TransitionEnded {
		n.transitionStart.CompareAndSwap(stamp, 0)
	}
	n.last = f
	return f, n.motion.Active() || f.Transitioning
}

// LastFrame returns the most recently composed frame.
func (n *Navigator) LastFrame() compositor.Frame {
	return n.last
}

// Status returns a snapshot for hosts.
func (n *Navigator) Status() Status {
	return Status{
		State:          n.state,
		Started:        n.started,
		Paused:         n.paused,
		PausedManually: n.pausedManually,
		Dragging:       n.gesture.Dragging(),
		Moving:         n.motion.Active(),
		Transitioning:  n.transitionStart.Load() > 0,
		Offset:         n.offset,
		Front:          source(n.front),
		Back:           source(n.back),
		Preceding:      source(n.prec),
		Period:         n.config.Period,
		Transition:     n.config.Transition,
	}
}

// integrate advances the glide, commits slides whose offset crossed a full
// width and keeps the speculative neighbour lookup in sync with the offset.
func (n *Navigator) integrate(now time.Time) {
	w := n.gesture.Width()
	if w <= 0 {
		return
	}

	if n.motion.Active() {
		dx, done := n.motion.Step(now)
		n.offset += dx
		if done {
			n.fold(w)
			n.offset = gesture.Settle(n.motion.V0, n.offset, w)
			n.follow()
			n.prevOffset = n.offset
			n.motion.Stop()
		}
	}
	n.fold(w)

	if n.offset == 0 && n.prevOffset == 0 && n.speculative {
		n.src.UndoLast()
		n.back = n.front
		n.speculative = false
	}

	n.follow()
	n.prevOffset = n.offset
}

// fold commits every whole slide width the offset travelled. A single step may
// cross zero and a whole width at once, so the neighbour is looked up before
// each commit.
func (n *Navigator) fold(w float64) {
	for n.offset >= w {
		n.follow()
		if !n.speculative {
			n.lookup(n.src.Previous)
		}
		n.offset -= w
		n.prevOffset -= w
		n.gesture.Shift(w)
		n.commit()
	}
	for n.offset <= -w {
		n.follow()
		if !n.speculative {
			n.lookup(n.src.Next)
		}
		n.offset += w
		n.prevOffset += w
		n.gesture.Shift(-w)
		n.commit()
	}
}

// follow looks up the neighbour revealed when the offset crossed zero since
// prevOffset.
func (n *Navigator) follow() {
	switch gesture.Crossing(n.prevOffset, n.offset) {
	case gesture.Previous:
		n.lookup(n.src.Previous)
	case gesture.Next:
		n.lookup(n.src.Next)
	}
}

// lookup fetches the neighbour that just came into view, undoing the previous
// speculative move first so that at most one is outstanding.
func (n *Navigator) lookup(move func() (*media.Record, error)) {
	if n.speculative {
		n.src.UndoLast()
	}
	rec, err := move()
	if err != nil {
		n.logger.Debug("no neighbour for swipe", "error", err)
		rec = nil
	}
	n.back = rec
	n.speculative = true
}

func (n *Navigator) commit() {
	n.front = n.back
	n.speculative = false
	n.emitContent(CauseSwipe)
	n.emitState(StateTransitioning)
}

// dropSwipe abandons any gesture or glide and puts the front slide back at
// rest, rolling back the speculative lookup.
func (n *Navigator) dropSwipe() {
	n.gesture.Cancel()
	n.motion.Stop()
	if n.speculative {
		n.src.UndoLast()
		n.speculative = false
	}
	n.back = n.front
	n.offset, n.prevOffset = 0, 0
	n.pausedByTouch = false
}

func (n *Navigator) pause() {
	n.paused = true
	n.cancelTimer()
	n.emitState(StatePaused)
}

// unpause starts the auto-advance timer. The first tick is immediate when
// there is no preceding slide yet.
func (n *Navigator) unpause() {
	if !n.paused && !n.pausedManually {
		return
	}
	initial := n.config.Period
	if n.prec == nil {
		initial = 0
	}
	n.cancelTimer()
	n.timerGen++
	gen := n.timerGen
	n.stopTimer = n.sched.Every(initial, n.config.Period, func() {
		stamp := n.clock().UnixNano()
		n.transitionStart.Store(stamp)
		if err := n.host.Post(func() { n.advance(gen, stamp) }); err != nil {
			n.transitionStart.CompareAndSwap(stamp, 0)
		}
	})
	n.paused = false
	n.emitState(StateActive)
	n.host.Invalidate()
}

func (n *Navigator) cancelTimer() {
	n.timerGen++
	if n.stopTimer != nil {
		n.stopTimer()
		n.stopTimer = nil
	}
}

// advance applies one timer tick stamped at stamp. Ticks from a cancelled timer
// are dropped, and so are ticks that arrive while a gesture owns the slides.
// A dropped tick clears its stamp unless a newer tick has replaced it.
func (n *Navigator) advance(gen uint64, stamp int64) {
	if gen != n.timerGen || n.paused {
		n.transitionStart.CompareAndSwap(stamp, 0)
		return
	}
	if n.gesture.Dragging() || n.motion.Active() || n.offset != 0 {
		n.transitionStart.CompareAndSwap(stamp, 0)
		n.logger.Debug("timer tick ignored during gesture")
		return
	}

	n.prec = n.front
	next, err := n.src.Next()
	if err != nil {
		n.logger.Debug("no ready media for slideshow", "error", err)
		next = nil
	}
	n.front, n.back = next, next
	n.speculative = false
	if !n.started {
		n.started = true
	}
	n.emitContent(CauseTimer)
	n.emitState(StateTransitioning)
	n.host.Invalidate()
}

// requestFirst loads the first slide, polling the source until it is ready.
func (n *Navigator) requestFirst() {
	if cur, err := n.src.Current(); err == nil {
		n.front = cur
		n.emitContent(CauseFirstLoad)
		n.host.Invalidate()
		return
	}

	n.cancelPoll()
	n.pollGen++
	gen := n.pollGen
	attempts := 0
	n.stopPoll = n.sched.Every(n.config.PollInterval, n.config.PollInterval, func() {
		_ = n.host.Post(func() { n.probe(gen, &attempts) })
	})
}

func (n *Navigator) probe(gen uint64, attempts *int) {
	if gen != n.pollGen {
		return
	}
	*attempts++
	cur, err := n.src.Current()
	if err == nil {
		n.cancelPoll()
		n.front = cur
		n.emitContent(CauseFirstLoad)
		n.host.Invalidate()
		return
	}
	if *attempts >= n.config.PollAttempts {
		n.cancelPoll()
		n.firstRequested = false
		n.logger.Warn("gave up waiting for first media", "attempts", *attempts, "error", err)
	}
}

func (n *Navigator) cancelPoll() {
	n.pollGen++
	if n.stopPoll != nil {
		n.stopPoll()
		n.stopPoll = nil
	}
}

// emitState fires StateChanged on entry to s. StateTransitioning always fires
// and leaves the sticky state untouched.
func (n *Navigator) emitState(s State) {
	if s == n.state && s != StateTransitioning {
		return
	}
	if s != StateTransitioning {
		n.state = s
	}
	e := StateEvent{State: s, At: n.clock()}
	for _, o := range n.observers {
		o.StateChanged(e)
	}
}

func (n *Navigator) emitContent(cause Cause) {
	e := ContentEvent{Source: source(n.front), Cause: cause, At: n.clock()}
	for _, o := range n.observers {
		o.ContentChanged(e)
	}
}

func slide(r *media.Record) compositor.Slide {
	if r == nil {
		return compositor.Slide{}
	}
	img, ok := r.Payload()
	if !ok {
		return compositor.Slide{Source: r.URL()}
	}
	return compositor.Slide{Image: img, Source: r.URL()}
}

func source(r *media.Record) string {
	if r == nil {
		return ""
	}
	return r.URL()
}
