package host

import (
	"log/slog"
	"time"

	"slideshow-navigator/internal/compositor"
	"slideshow-navigator/internal/navigator"
)

// Presenter returns the foreground frame callback: it steps the navigator and
// renders the frame onto canvas. A failed render is logged and shows an empty
// frame; the navigator keeps running.
func Presenter(nav *navigator.Navigator, canvas *compositor.Canvas, logger *slog.Logger) func(time.Time) bool {
	if logger == nil {
		logger = slog.Default()
	}
	return func(time.Time) bool {
		f, again := nav.Frame()
		if canvas != nil && f.Width > 0 && f.Height > 0 {
			if err := canvas.Present(f); err != nil {
				logger.Warn("frame render failed", "error", err)
			}
		}
		return again
	}
}
