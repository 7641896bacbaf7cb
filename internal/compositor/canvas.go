package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/disintegration/imaging"
)

var errNotPresenting = errors.New("canvas draw outside of Present")

// Surface accepts draw calls in back-to-front order.
type Surface interface {
	Draw(img image.Image, dst image.Rectangle, alpha uint8) error
}

// Render issues f's layers to s. Errors and panics raised by the surface stop
// the frame and are returned to the caller.
func Render(s Surface, f Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	for _, l := range f.Layers {
		if err := s.Draw(l.Image, l.Rect, l.Alpha); err != nil {
			return fmt.Errorf("draw %s layer: %w", l.Role, err)
		}
	}
	return nil
}

// Canvas is an in-memory Surface. Present renders a whole frame into a fresh
// buffer and publishes it only when every layer was drawn, so a failed frame
// leaves nothing behind.
type Canvas struct {
	mu         sync.RWMutex
	background color.Color
	last       *image.NRGBA

	work *image.NRGBA // only touched by the presenting goroutine
}

// NewCanvas returns a canvas painting on background.
func NewCanvas(background color.Color) *Canvas {
	if background == nil {
		background = color.Black
	}
	return &Canvas{background: background}
}

// Draw implements Surface.Draw. The image is scaled to dst and blended with a
// uniform alpha.
func (c *Canvas) Draw(img image.Image, dst image.Rectangle, alpha uint8) error {
	if c.work == nil {
		return errNotPresenting
	}
	if img == nil || dst.Empty() || alpha == 0 {
		return nil
	}
	if !dst.Overlaps(c.work.Bounds()) {
		return nil
	}
	scaled := imaging.Resize(img, dst.Dx(), dst.Dy(), imaging.Linear)
	mask := image.NewUniform(color.Alpha{A: alpha})
	draw.DrawMask(c.work, dst, scaled, scaled.Bounds().Min, mask, image.Point{}, draw.Over)
	return nil
}

// Present renders f and publishes the result. On error the previous image is
// replaced by an empty background. Present must not be called concurrently.
func (c *Canvas) Present(f Frame) error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	c.work = imaging.New(f.Width, f.Height, c.background)
	err := Render(c, f)
	out := c.work
	c.work = nil
	if err != nil {
		out = imaging.New(f.Width, f.Height, c.background)
	}

	c.mu.Lock()
	c.last = out
	c.mu.Unlock()
	return err
}

// Snapshot returns the last presented image, or nil when nothing was presented.
func (c *Canvas) Snapshot() image.Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil
	}
	return c.last
}
