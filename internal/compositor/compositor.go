// Package compositor computes per-frame draw instructions for the slideshow:
// destination rectangles and alpha for the back, preceding and front slides.
package compositor

import (
	"image"
	"math"
	"time"
)

// Role identifies a slide layer. Layers are drawn in Role order.
type Role int

const (
	// RoleBack is the neighbour revealed by a swipe.
	RoleBack Role = iota
	// RolePreceding is the slide fading out during a transition.
	RolePreceding
	// RoleFront is the current slide.
	RoleFront
)

func (r Role) String() string {
	switch r {
	case RoleBack:
		return "back"
	case RolePreceding:
		return "preceding"
	case RoleFront:
		return "front"
	default:
		return "unknown"
	}
}

// Slide is an image together with the identifier of its source.
type Slide struct {
	Image  image.Image
	Source string
}

// Scene is everything the compositor needs for one frame.
type Scene struct {
	Front, Back, Preceding Slide

	// Offset is the horizontal displacement of the front slide, in pixels.
	Offset float64

	// TransitionStart is zero when no cross-fade is running.
	TransitionStart time.Time
	Transition      time.Duration
	Now             time.Time
}

// Layer is one draw call.
type Layer struct {
	Role   Role
	Source string
	Image  image.Image
	Rect   image.Rectangle
	Alpha  uint8
}

// Frame is the ordered list of draw calls for a viewport.
type Frame struct {
	Width, Height int
	Layers        []Layer

	// Transitioning is true while the cross-fade needs more frames.
	Transitioning bool
	// TransitionEnded is true on the frame that completed the cross-fade.
	TransitionEnded bool
}

type fit struct {
	size     image.Point
	viewport image.Point
	rect     image.Rectangle
}

// Compositor lays out slides inside a viewport. Base rectangles are cached per
// role and recomputed only when the slide size or the viewport changes.
type Compositor struct {
	width, height int
	fits          [3]fit
}

// New returns a compositor for a width by height viewport.
func New(width, height int) *Compositor {
	return &Compositor{width: width, height: height}
}

// SetViewport changes the viewport size.
func (c *Compositor) SetViewport(width, height int) {
	c.width, c.height = width, height
}

// Viewport returns the viewport size.
func (c *Compositor) Viewport() (width, height int) {
	return c.width, c.height
}

// Compose lays out s.
func (c *Compositor) Compose(s Scene) Frame {
	f := Frame{Width: c.width, Height: c.height}
	if c.width <= 0 || c.height <= 0 {
		return f
	}
	w := float64(c.width)
	shift := int(s.Offset)

	ratio := math.Abs(s.Offset / w)
	if ratio > 1 {
		ratio = 1
	}
	backAlpha := alpha(127 + 128*ratio)
	frontAlpha := alpha(127 + 128*(1-ratio))
	var precAlpha uint8

	progress, running := Progress(s.TransitionStart, s.Now, s.Transition)
	if !s.TransitionStart.IsZero() {
		precAlpha = alpha(float64(frontAlpha) * (1 - progress))
		frontAlpha = alpha(float64(frontAlpha) * progress)
		f.Transitioning = running
		f.TransitionEnded = !running
	}

	if s.Back.Image != nil {
		b := c.base(RoleBack, s.Back.Image)
		r := image.Rect(shift-b.Max.X, b.Min.Y, shift-b.Min.X, b.Max.Y)
		if s.Offset < 0 {
			r = r.Add(image.Pt(2*c.width, 0))
		}
		f.Layers = append(f.Layers, Layer{Role: RoleBack, Source: s.Back.Source, Image: s.Back.Image, Rect: r, Alpha: backAlpha})
	}
	if running && s.Preceding.Image != nil {
		r := c.base(RolePreceding, s.Preceding.Image).Add(image.Pt(shift, 0))
		f.Layers = append(f.Layers, Layer{Role: RolePreceding, Source: s.Preceding.Source, Image: s.Preceding.Image, Rect: r, Alpha: precAlpha})
	}
	if s.Front.Image != nil {
		r := c.base(RoleFront, s.Front.Image).Add(image.Pt(shift, 0))
		f.Layers = append(f.Layers, Layer{Role: RoleFront, Source: s.Front.Source, Image: s.Front.Image, Rect: r, Alpha: frontAlpha})
	}
	return f
}

func (c *Compositor) base(role Role, img image.Image) image.Rectangle {
	size := img.Bounds().Size()
	vp := image.Pt(c.width, c.height)
	e := &c.fits[role]
	if e.size != size || e.viewport != vp {
		*e = fit{size: size, viewport: vp, rect: Fit(size, vp)}
	}
	return e.rect
}

// Fit returns the rectangle that scales an image of size src proportionally
// into a viewport of size dst, centred on the free axis.
func Fit(src, dst image.Point) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 || dst.X <= 0 || dst.Y <= 0 {
		return image.Rectangle{}
	}
	sw, sh := float64(src.X), float64(src.Y)
	dw, dh := float64(dst.X), float64(dst.Y)

	if sw/sh < dw/dh {
		half := sw * dh / sh / 2
		return image.Rect(int(dw/2-half), 0, int(dw/2+half), dst.Y)
	}
	half := sh * dw / sw / 2
	return image.Rect(0, int(dh/2-half), dst.X, int(dh/2+half))
}

// Progress returns the cross-fade progress in [0, 1] and whether the
// transition started at start is still running at now. A zero start means no
// transition; a non-positive duration completes immediately.
func Progress(start, now time.Time, d time.Duration) (a float64, running bool) {
	if start.IsZero() {
		return 1, false
	}
	if d <= 0 {
		return 1, false
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	a = float64(elapsed) / float64(d)
	if a > 1 {
		a = 1
	}
	return a, elapsed < d
}

func alpha(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
