package compositor

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"
)

var t0 = time.Date(2014, 3, 1, 10, 0, 0, 0, time.UTC)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func TestFit(t *testing.T) {
	cases := []struct {
		name     string
		src, dst image.Point
		want     image.Rectangle
	}{
		{"narrow_image_full_height", image.Pt(100, 200), image.Pt(400, 300), image.Rect(125, 0, 275, 300)},
		{"wide_image_full_width", image.Pt(400, 100), image.Pt(400, 300), image.Rect(0, 100, 400, 200)},
		{"same_ratio", image.Pt(800, 600), image.Pt(400, 300), image.Rect(0, 0, 400, 300)},
		{"empty", image.Pt(0, 10), image.Pt(400, 300), image.Rectangle{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Fit(c.src, c.dst); got != c.want {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func layer(t *testing.T, f Frame, role Role) Layer {
	t.Helper()
	for _, l := range f.Layers {
		if l.Role == role {
			return l
		}
	}
	t.Fatalf("no %s layer in %+v", role, f.Layers)
	return Layer{}
}

func TestCompose_at_rest(t *testing.T) {
	c := New(400, 300)
	img := solid(400, 300)
	f := c.Compose(Scene{Front: Slide{Image: img}, Back: Slide{Image: img}, Now: t0})

	if len(f.Layers) != 2 || f.Layers[0].Role != RoleBack || f.Layers[1].Role != RoleFront {
		t.Fatalf("unexpected layers %+v", f.Layers)
	}
	front := layer(t, f, RoleFront)
	if front.Alpha != 255 || front.Rect != image.Rect(0, 0, 400, 300) {
		t.Errorf("front: %+v", front)
	}
	if back := layer(t, f, RoleBack); back.Alpha != 127 {
		t.Errorf("back alpha: got %d", back.Alpha)
	}
}

func TestCompose_offsets(t *testing.T) {
	c := New(400, 300)
	img := solid(400, 300)

	t.Run("swipe_right_reveals_back_on_left", func(t *testing.T) {
		f := c.Compose(Scene{Front: Slide{Image: img}, Back: Slide{Image: img}, Offset: 100, Now: t0})
		front := layer(t, f, RoleFront)
		back := layer(t, f, RoleBack)
		if front.Rect != image.Rect(100, 0, 500, 300) {
			t.Errorf("front rect %v", front.Rect)
		}
		if back.Rect != image.Rect(-300, 0, 100, 300) {
			t.Errorf("back rect %v", back.Rect)
		}
		if front.Alpha != 223 || back.Alpha != 159 {
			t.Errorf("alphas front=%d back=%d", front.Alpha, back.Alpha)
		}
	})

	t.Run("swipe_left_reveals_back_on_right", func(t *testing.T) {
		f := c.Compose(Scene{Front: Slide{Image: img}, Back: Slide{Image: img}, Offset: -100, Now: t0})
		if back := layer(t, f, RoleBack); back.Rect != image.Rect(300, 0, 700, 300) {
			t.Errorf("back rect %v", back.Rect)
		}
		if front := layer(t, f, RoleFront); front.Rect != image.Rect(-100, 0, 300, 300) {
			t.Errorf("front rect %v", front.Rect)
		}
	})

	t.Run("full_width_back_opaque", func(t *testing.T) {
		f := c.Compose(Scene{Front: Slide{Image: img}, Back: Slide{Image: img}, Offset: -400, Now: t0})
		if back := layer(t, f, RoleBack); back.Alpha != 255 {
			t.Errorf("back alpha %d", back.Alpha)
		}
	})
}

func TestCompose_transition_fades_out_preceding(t *testing.T) {
	c := New(400, 300)
	img := solid(200, 300)
	d := 500 * time.Millisecond

	last := uint8(255)
	var sawEnd bool
	for ms := 0; ms <= 600; ms += 25 {
		now := t0.Add(time.Duration(ms) * time.Millisecond)
		f := c.Compose(Scene{
			Front:           Slide{Image: img, Source: "new"},
			Preceding:       Slide{Image: img, Source: "old"},
			TransitionStart: t0,
			Transition:      d,
			Now:             now,
		})
		var prec uint8
		for _, l := range f.Layers {
			if l.Role == RolePreceding {
				prec = l.Alpha
			}
		}
		if prec > last {
			t.Fatalf("preceding alpha increased at %dms: %d > %d", ms, prec, last)
		}
		last = prec
		if time.Duration(ms)*time.Millisecond >= d {
			if prec != 0 {
				t.Errorf("preceding alpha at %dms: %d, want 0", ms, prec)
			}
			if f.Transitioning {
				t.Errorf("transition should be over at %dms", ms)
			}
			if f.TransitionEnded {
				sawEnd = true
			}
		} else if !f.Transitioning {
			t.Errorf("transition should run at %dms", ms)
		}
	}
	if !sawEnd {
		t.Error("expected TransitionEnded")
	}

	mid := c.Compose(Scene{
		Front: Slide{Image: img}, Preceding: Slide{Image: img},
		TransitionStart: t0, Transition: d, Now: t0.Add(250 * time.Millisecond),
	})
	if got := layer(t, mid, RoleFront).Alpha; got != 127 {
		t.Errorf("front alpha halfway: got %d, want 127", got)
	}
	if got := layer(t, mid, RolePreceding).Alpha; got != 127 {
		t.Errorf("preceding alpha halfway: got %d, want 127", got)
	}
}

func TestProgress(t *testing.T) {
	if a, run := Progress(time.Time{}, t0, time.Second); run || a != 1 {
		t.Errorf("no transition: %v %v", a, run)
	}
	if a, run := Progress(t0, t0, 0); run || a != 1 {
		t.Errorf("zero duration: %v %v", a, run)
	}
	if a, run := Progress(t0, t0.Add(-time.Second), time.Second); !run || a != 0 {
		t.Errorf("clock skew: %v %v", a, run)
	}
}

type failingSurface struct {
	calls int
	panic bool
}

func (s *failingSurface) Draw(img image.Image, dst image.Rectangle, alpha uint8) error {
	s.calls++
	if s.panic {
		panic("surface gone")
	}
	return errors.New("broken")
}

func TestRender_recovers(t *testing.T) {
	f := Frame{Width: 4, Height: 4, Layers: []Layer{{Role: RoleBack}, {Role: RoleFront}}}

	s := &failingSurface{}
	if err := Render(s, f); err == nil || s.calls != 1 {
		t.Errorf("expected error after first layer, err=%v calls=%d", err, s.calls)
	}
	if err := Render(&failingSurface{panic: true}, f); err == nil {
		t.Error("expected panic to be returned as error")
	}
}

func TestCanvas_Present(t *testing.T) {
	c := New(40, 30)
	canvas := NewCanvas(color.Black)
	if canvas.Snapshot() != nil {
		t.Fatal("snapshot before present")
	}

	f := c.Compose(Scene{Front: Slide{Image: solid(20, 30)}, Now: t0})
	if err := canvas.Present(f); err != nil {
		t.Fatalf("Present: %v", err)
	}
	out := canvas.Snapshot()
	if out.Bounds() != image.Rect(0, 0, 40, 30) {
		t.Fatalf("bounds %v", out.Bounds())
	}
	// Letterboxed: the centre is white, the edge is background.
	if r, _, _, _ := out.At(20, 15).RGBA(); r>>8 != 0xff {
		t.Errorf("centre pixel red %d", r>>8)
	}
	if r, _, _, _ := out.At(2, 15).RGBA(); r != 0 {
		t.Errorf("edge pixel red %d", r)
	}

	if err := canvas.Draw(solid(1, 1), image.Rect(0, 0, 1, 1), 255); err == nil {
		t.Error("Draw outside Present should fail")
	}
	if err := canvas.Present(Frame{}); err == nil {
		t.Error("empty frame should fail")
	}
}
