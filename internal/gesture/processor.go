// Package gesture turns raw touch samples into a one-dimensional kinetic
// motion of the slide offset.
package gesture

import (
	"math"
	"time"
)

const (
	// ClickDistanceScreens is the longest path, relative to the shorter
	// viewport side, that still counts as a click.
	ClickDistanceScreens = 0.03
	// ClickDuration is the longest press that still counts as a click.
	ClickDuration = 200 * time.Millisecond
	// MinSampleInterval is the shortest interval used for velocity estimation.
	MinSampleInterval = 20 * time.Millisecond
)

// Sample is a single touch position in absolute coordinates.
type Sample struct {
	X, Y float64
	Time time.Time
}

// Release is the outcome of lifting the finger.
type Release struct {
	// Click is true for short, nearly stationary touches.
	Click bool
	// Motion carries the offset to the nearest slide boundary.
	Motion Motion
	// Velocity is the smoothed release velocity before correction.
	Velocity float64
}

// Processor tracks one touch gesture at a time: Idle, then Dragging after
// Begin, and back to Idle once End computes the release.
type Processor struct {
	width, height float64
	decel         float64
	clickDistance float64

	dragging bool
	origin   float64 // touch x where offset would be 0

	velocity  float64
	lastX     float64
	lastTime  time.Time
	started   time.Time
	path      float64
	prevX     float64
	prevY     float64
	lastDelta float64
}

// NewProcessor returns a processor for a width by height viewport.
func NewProcessor(width, height float64) *Processor {
	p := &Processor{}
	p.SetViewport(width, height)
	return p
}

// SetViewport updates the dimensions that scale deceleration and click detection.
func (p *Processor) SetViewport(width, height float64) {
	p.width, p.height = width, height
	p.decel = DecelerationScreens * width
	p.clickDistance = ClickDistanceScreens * math.Min(width, height)
}

// Width returns the slide width.
func (p *Processor) Width() float64 { return p.width }

// Deceleration returns the glide deceleration magnitude in px/s².
func (p *Processor) Deceleration() float64 { return p.decel }

// ClickDistance returns the click path threshold in pixels.
func (p *Processor) ClickDistance() float64 { return p.clickDistance }

// Dragging reports whether a finger is down.
func (p *Processor) Dragging() bool { return p.dragging }

// Begin starts a gesture at s. offset is the visible offset at touch time, so
// grabbing a gliding slide continues from where it is.
func (p *Processor) Begin(s Sample, offset float64) {
	p.dragging = true
	p.origin = s.X - offset
	p.velocity = 0
	p.lastX = s.X
	p.lastTime = s.Time
	p.started = s.Time
	p.path = 0
	p.prevX, p.prevY = s.X, s.Y
	p.lastDelta = offset
}

// Move feeds a sample and returns the new offset. Velocity is smoothed and
// only refreshed when enough time passed since the last estimate.
func (p *Processor) Move(s Sample) float64 {
	if !p.dragging {
		return p.lastDelta
	}
	if dt := s.Time.Sub(p.lastTime); dt > MinSampleInterval {
		p.velocity = 0.25*p.velocity + 0.75*(s.X-p.lastX)/dt.Seconds()
		p.lastX = s.X
		p.lastTime = s.Time
	}
	p.path += math.Hypot(s.X-p.prevX, s.Y-p.prevY)
	p.prevX, p.prevY = s.X, s.Y

	p.lastDelta = s.X - p.origin
	return p.lastDelta
}

// Shift moves the gesture origin by dx. The navigator calls it whenever the
// offset is folded back by a whole slide so that later samples stay continuous.
func (p *Processor) Shift(dx float64) {
	p.origin += dx
	p.lastDelta -= dx
}

// End finishes the gesture at s with the current visible offset and plans the
// glide to the nearest boundary.
func (p *Processor) End(s Sample, offset float64) Release {
	if !p.dragging {
		return Release{}
	}
	p.dragging = false
	p.path += math.Hypot(s.X-p.prevX, s.Y-p.prevY)

	click := p.path <= p.clickDistance && s.Time.Sub(p.started) <= ClickDuration
	return Release{
		Click:    click,
		Velocity: p.velocity,
		Motion:   Plan(p.velocity, offset, p.width, p.decel, s.Time),
	}
}

// Cancel drops the current gesture without planning a release.
func (p *Processor) Cancel() {
	p.dragging = false
}

// Path returns the accumulated touch path length of the current gesture.
func (p *Processor) Path() float64 { return p.path }
