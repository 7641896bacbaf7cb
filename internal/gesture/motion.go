package gesture

import (
	"math"
	"time"
)

// DecelerationScreens is the deceleration magnitude in viewport widths per second².
const DecelerationScreens = 4.0

// Motion is a constant-deceleration glide of the horizontal offset.
// K carries the sign of V0 so that velocity relaxes to zero.
type Motion struct {
	V0    float64 // px/s
	K     float64 // px/s²
	Start time.Time

	x float64
}

// Active reports whether the motion still moves the offset.
func (m *Motion) Active() bool {
	return m.V0 != 0
}

// Step advances the motion to now and returns the offset change since the
// previous step. done is true once velocity reached zero or changed sign; the
// caller then settles the offset with Settle and discards the motion.
func (m *Motion) Step(now time.Time) (dx float64, done bool) {
	if !m.Active() {
		return 0, true
	}
	t := now.Sub(m.Start).Seconds()
	if t < 0 {
		t = 0
	}
	// Past the stopping time the parabola would run back towards the start.
	if stop := m.V0 / m.K; t > stop {
		t = stop
	}
	v := m.V0 - m.K*t
	x := m.V0*t - m.K*t*t/2
	dx = x - m.x
	m.x = x
	return dx, t > 0 && v*m.V0 <= 0
}

// Stop zeroes the motion.
func (m *Motion) Stop() {
	*m = Motion{}
}

// Plan builds the glide that follows a release at offset with velocity v0.
// The result always comes to rest on a slide boundary: weak swipes spring back
// to 0, strong ones move to the adjacent slide in the swipe direction, and
// glides longer than half a slide stop on the nearest whole multiple of width.
func Plan(v0, offset, width, decel float64, at time.Time) Motion {
	if width <= 0 {
		return Motion{}
	}
	k := math.Abs(decel)
	if k == 0 {
		k = DecelerationScreens * width
	}

	xEnd := v0 * v0 / (2 * k)
	var dir float64
	switch {
	case xEnd < width/2:
		target := weakTarget(v0, offset, width, xEnd >= width/4)
		xEnd = math.Abs(target - offset)
		dir = sign(target - offset)
	default:
		dir = sign(v0)
		land := math.Floor((dir*xEnd+offset)/width+0.5) * width
		xEnd = math.Abs(land - offset)
	}

	if dir == 0 || xEnd == 0 {
		return Motion{}
	}
	return Motion{
		V0:    dir * math.Sqrt(2*k*xEnd),
		K:     dir * k,
		Start: at,
	}
}

// weakTarget picks the rest offset for a release that cannot glide half a slide.
func weakTarget(v0, offset, width float64, strong bool) float64 {
	switch {
	case offset >= width/2:
		return width
	case offset <= -width/2:
		return -width
	case strong:
		return sign(v0) * width
	default:
		return 0
	}
}

// Settle hard-sets the offset at the end of a motion that started with v0.
func Settle(v0, offset, width float64) float64 {
	switch {
	case v0 < 0 && offset < -0.5*width && offset > -1.5*width:
		return -width
	case v0 > 0 && offset > 0.5*width && offset < 1.5*width:
		return width
	default:
		return 0
	}
}

// Normalize folds offset into (-width, width). shifts counts whole slides
// removed: positive when the offset moved right past a boundary.
func Normalize(offset, width float64) (normalized float64, shifts int) {
	if width <= 0 {
		return offset, 0
	}
	for offset >= width {
		offset -= width
		shifts++
	}
	for offset <= -width {
		offset += width
		shifts--
	}
	return offset, shifts
}

// Direction names the neighbour revealed by a swipe.
type Direction int

const (
	None Direction = iota
	// Previous is revealed when the offset becomes positive.
	Previous
	// Next is revealed when the offset becomes negative.
	Next
)

func (d Direction) String() string {
	switch d {
	case Previous:
		return "previous"
	case Next:
		return "next"
	default:
		return "none"
	}
}

// Crossing reports which neighbour came into view between two frames.
func Crossing(prev, offset float64) Direction {
	switch {
	case offset > 0 && prev <= 0:
		return Previous
	case offset < 0 && prev >= 0:
		return Next
	default:
		return None
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
