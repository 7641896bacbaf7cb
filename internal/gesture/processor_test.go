package gesture

import (
	"testing"
	"time"
)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func TestNewProcessor_scales_with_viewport(t *testing.T) {
	p := NewProcessor(400, 300)
	if p.Deceleration() != 1600 {
		t.Errorf("deceleration: got %v", p.Deceleration())
	}
	if d := p.ClickDistance(); d < 8.999 || d > 9.001 {
		t.Errorf("click distance: got %v", p.ClickDistance())
	}
}

func TestProcessor_click(t *testing.T) {
	p := NewProcessor(400, 300)
	p.Begin(Sample{X: 100, Y: 100, Time: at(0)}, 0)
	p.Move(Sample{X: 102, Y: 101, Time: at(40)})
	r := p.End(Sample{X: 102, Y: 101, Time: at(120)}, 2)

	if !r.Click {
		t.Fatalf("expected click, path %v", p.Path())
	}
	if p.Dragging() {
		t.Error("should be idle after End")
	}
	// The tiny drag still springs back to the slide.
	if !r.Motion.Active() || r.Motion.V0 >= 0 {
		t.Errorf("expected spring back, got v0=%v", r.Motion.V0)
	}
}

func TestProcessor_long_press_is_not_click(t *testing.T) {
	p := NewProcessor(400, 300)
	p.Begin(Sample{X: 100, Y: 100, Time: at(0)}, 0)
	r := p.End(Sample{X: 100, Y: 100, Time: at(250)}, 0)
	if r.Click {
		t.Error("press longer than the click duration must not click")
	}
}

func TestProcessor_swipe(t *testing.T) {
	p := NewProcessor(400, 300)
	p.Begin(Sample{X: 300, Y: 100, Time: at(0)}, 0)

	var offset float64
	for i := 1; i <= 5; i++ {
		offset = p.Move(Sample{X: 300 - float64(i)*30, Y: 100, Time: at(i * 25)})
	}
	if offset != -150 {
		t.Fatalf("offset: got %v, want -150", offset)
	}

	r := p.End(Sample{X: 150, Y: 100, Time: at(130)}, offset)
	if r.Click {
		t.Error("swipe reported as click")
	}
	if r.Velocity >= 0 {
		t.Errorf("expected leftward velocity, got %v", r.Velocity)
	}
	if !r.Motion.Active() || r.Motion.V0 >= 0 || r.Motion.K >= 0 {
		t.Errorf("expected leftward glide, got %+v", r.Motion)
	}
}

func TestProcessor_velocity_ignores_short_intervals(t *testing.T) {
	p := NewProcessor(400, 300)
	p.Begin(Sample{X: 0, Time: at(0)}, 0)
	p.Move(Sample{X: 50, Time: at(10)})
	if r := p.End(Sample{X: 50, Time: at(15)}, 50); r.Velocity != 0 {
		t.Errorf("samples closer than the minimum interval must not update velocity, got %v", r.Velocity)
	}

	p.Begin(Sample{X: 0, Time: at(100)}, 0)
	p.Move(Sample{X: 30, Time: at(130)})
	r := p.End(Sample{X: 30, Time: at(131)}, 30)
	want := 0.75 * 30 / 0.030
	if diff := r.Velocity - want; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("velocity: got %v, want %v", r.Velocity, want)
	}
}

func TestProcessor_Begin_continues_from_offset(t *testing.T) {
	p := NewProcessor(400, 300)
	p.Begin(Sample{X: 200, Time: at(0)}, -120)
	if got := p.Move(Sample{X: 210, Time: at(30)}); got != -110 {
		t.Errorf("offset: got %v, want -110", got)
	}

	p.Shift(-400)
	if got := p.Move(Sample{X: 210, Time: at(60)}); got != 290 {
		t.Errorf("offset after shift: got %v, want 290", got)
	}
}
