package gesture

import (
	"fmt"
	"math"
	"testing"
	"time"
)

const testWidth = 400.0

var epoch = time.Date(2014, 2, 1, 12, 0, 0, 0, time.UTC)

// simulate runs m at 60 frames per second the way the navigator does and
// returns the settled offset before folding, plus the number of whole slides
// crossed along the way.
func simulate(t *testing.T, m Motion, offset float64) (final float64, shifts int) {
	t.Helper()
	frame := time.Second / 60
	now := m.Start
	for i := 0; i < 10000; i++ {
		now = now.Add(frame)
		dx, done := m.Step(now)
		offset += dx
		if done {
			final = Settle(m.V0, offset, testWidth)
			return final, shifts
		}
		var n int
		offset, n = Normalize(offset, testWidth)
		shifts += n
	}
	t.Fatalf("motion did not finish: v0=%v k=%v", m.V0, m.K)
	return 0, 0
}

// velocityFor returns the release velocity whose unconstrained glide would
// travel dist pixels.
func velocityFor(dist float64) float64 {
	k := DecelerationScreens * testWidth
	return math.Copysign(math.Sqrt(2*k*math.Abs(dist)), dist)
}

func TestPlan_weak_spring_back(t *testing.T) {
	// Dragged 0.3 of a slide and let go without speed: projected rest 0.3 width.
	m := Plan(0, 0.3*testWidth, testWidth, 0, epoch)
	if m.V0 >= 0 || m.K >= 0 {
		t.Fatalf("expected motion back towards 0, got v0=%v k=%v", m.V0, m.K)
	}
	final, shifts := simulate(t, m, 0.3*testWidth)
	if final != 0 || shifts != 0 {
		t.Errorf("got final=%v shifts=%d, want 0/0", final, shifts)
	}

	t.Run("small_flick", func(t *testing.T) {
		v := velocityFor(0.2 * testWidth)
		m := Plan(v, 0, testWidth, 0, epoch)
		if m.Active() {
			t.Errorf("flick below quarter width from rest should not move, v0=%v", m.V0)
		}
	})
}

func TestPlan_strong_snaps_to_neighbour(t *testing.T) {
	for _, dir := range []float64{1, -1} {
		t.Run(fmt.Sprintf("dir_%v", dir), func(t *testing.T) {
			v := velocityFor(dir * 0.3 * testWidth)
			m := Plan(v, dir*0.05*testWidth, testWidth, 0, epoch)
			final, shifts := simulate(t, m, dir*0.05*testWidth)
			got := final + float64(shifts)*testWidth
			if got != dir*testWidth {
				t.Errorf("landed at %v, want %v", got, dir*testWidth)
			}
		})
	}
}

func TestPlan_free_scroll_rounds_to_slide(t *testing.T) {
	v := velocityFor(0.6 * testWidth)
	m := Plan(v, 0, testWidth, 0, epoch)

	want := math.Sqrt(2 * DecelerationScreens * testWidth * testWidth)
	if math.Abs(m.V0-want) > 1e-9 {
		t.Errorf("corrected v0: got %v, want %v", m.V0, want)
	}
	final, shifts := simulate(t, m, 0)
	if got := final + float64(shifts)*testWidth; got != testWidth {
		t.Errorf("landed at %v, want %v", got, testWidth)
	}

	t.Run("long_glide", func(t *testing.T) {
		v := velocityFor(-2.7 * testWidth)
		m := Plan(v, -0.2*testWidth, testWidth, 0, epoch)
		final, shifts := simulate(t, m, -0.2*testWidth)
		if got := final + float64(shifts)*testWidth; got != -3*testWidth {
			t.Errorf("landed at %v, want %v", got, -3*testWidth)
		}
	})
}

func TestPlan_always_lands_on_boundary(t *testing.T) {
	allowed := map[float64]bool{0: true, testWidth: true, -testWidth: true}
	for _, d := range []float64{-0.9, -0.6, -0.5, -0.3, -0.1, 0, 0.1, 0.24, 0.5, 0.75, 0.99} {
		for _, travel := range []float64{-4.2, -1.3, -0.7, -0.4, -0.26, -0.1, 0, 0.1, 0.26, 0.4, 0.55, 1.49, 3.3} {
			offset := d * testWidth
			m := Plan(velocityFor(travel*testWidth), offset, testWidth, 0, epoch)
			var final float64
			if m.Active() {
				final, _ = simulate(t, m, offset)
			} else {
				final = offset
			}
			if !allowed[final] {
				t.Errorf("d=%v travel=%v: settled at %v", d, travel, final)
			}
		}
	}
}

func TestSettle(t *testing.T) {
	cases := []struct {
		v0, offset, want float64
	}{
		{-1, -0.7 * testWidth, -testWidth},
		{-1, -0.3 * testWidth, 0},
		{1, 0.7 * testWidth, testWidth},
		{1, 0.2 * testWidth, 0},
		{1, -0.7 * testWidth, 0},
		{-1, 1.6 * testWidth, 0},
	}
	for _, c := range cases {
		if got := Settle(c.v0, c.offset, testWidth); got != c.want {
			t.Errorf("Settle(%v, %v): got %v, want %v", c.v0, c.offset, got, c.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	off, n := Normalize(2.5*testWidth, testWidth)
	if off != 0.5*testWidth || n != 2 {
		t.Errorf("got %v/%d", off, n)
	}
	off, n = Normalize(-testWidth, testWidth)
	if off != 0 || n != -1 {
		t.Errorf("got %v/%d", off, n)
	}
	off, n = Normalize(0.3, testWidth)
	if off != 0.3 || n != 0 {
		t.Errorf("got %v/%d", off, n)
	}
}

func TestCrossing(t *testing.T) {
	if Crossing(0, 5) != Previous {
		t.Error("moving right from rest reveals previous")
	}
	if Crossing(0, -5) != Next {
		t.Error("moving left from rest reveals next")
	}
	if Crossing(3, -1) != Next {
		t.Error("crossing zero leftwards reveals next")
	}
	if Crossing(3, 5) != None || Crossing(0, 0) != None {
		t.Error("no crossing expected")
	}
}

func TestMotion_Step_long_gap_stops_at_rest(t *testing.T) {
	// Glide two slides to the left, coming to rest after one second.
	m := Motion{V0: -1600, K: -1600, Start: epoch}

	dx, done := m.Step(epoch.Add(3 * time.Second))
	if !done || math.Abs(dx-(-2*testWidth)) > 1e-6 {
		t.Errorf("got dx=%v done=%v, want dx=%v done=true", dx, done, -2*testWidth)
	}

	dx, done = m.Step(epoch.Add(4 * time.Second))
	if !done || dx != 0 {
		t.Errorf("after rest: dx=%v done=%v", dx, done)
	}
}
