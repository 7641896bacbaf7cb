// Package host exposes the slideshow over HTTP: control endpoints, the latest
// frame and a websocket event stream.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"

	"slideshow-navigator/internal/compositor"
	"slideshow-navigator/internal/gesture"
	"slideshow-navigator/internal/loop"
	"slideshow-navigator/internal/media"
	"slideshow-navigator/internal/navigator"
	"slideshow-navigator/internal/platform/metrics"
)

const requestTimeout = 5 * time.Second

// Foreground runs fn on the goroutine that owns the navigator.
type Foreground interface {
	Do(ctx context.Context, fn func()) error
}

// Options wires a Handler. Metrics and Logger may be nil.
type Options struct {
	Foreground Foreground
	Navigator  *navigator.Navigator
	Cache      *media.Cache
	Canvas     *compositor.Canvas
	Stream     *Stream
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Handler exposes slideshow HTTP endpoints using go-chi.
type Handler struct {
	fg      Foreground
	nav     *navigator.Navigator
	cache   *media.Cache
	canvas  *compositor.Canvas
	stream  *Stream
	metrics *metrics.Metrics
	log     *slog.Logger
	clock   func() time.Time
}

// NewHandler returns a Handler for opts.
func NewHandler(opts Options) *Handler {
	h := &Handler{
		fg:      opts.Foreground,
		nav:     opts.Navigator,
		cache:   opts.Cache,
		canvas:  opts.Canvas,
		stream:  opts.Stream,
		metrics: opts.Metrics,
		log:     opts.Logger,
		clock:   opts.Clock,
	}
	if h.log == nil {
		h.log = slog.Default()
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	return h
}

// Register mounts every endpoint on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/state", h.GetState)
	r.Post("/start", h.Start)
	r.Post("/pause", h.Pause)
	r.Post("/restore", h.Restore)
	r.Post("/detach", h.Detach)
	r.Post("/touch", h.Touch)
	r.Post("/location", h.UpdateLocation)
	r.Post("/count", h.Resize)
	r.Post("/viewport", h.SetViewport)
	r.Get("/frame", h.GetFrame)
	r.Get("/frame.png", h.GetFramePNG)
	if h.stream != nil {
		r.Handle("/events", h.stream)
	}
}

// CacheStatus summarizes the media cache.
type CacheStatus struct {
	Records int `json:"records"`
	Ready   int `json:"ready"`
	Cursor  int `json:"cursor"`
	Desired int `json:"desired"`
}

// StateResponse is the body of GET /state and of every control endpoint.
type StateResponse struct {
	Navigator navigator.Status `json:"navigator"`
	Cache     CacheStatus      `json:"cache"`
}

// TouchRequest is the body of POST /touch.
type TouchRequest struct {
	Action string  `json:"action"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// TouchResponse is returned by POST /touch.
type TouchResponse struct {
	Tap    navigator.TapResult `json:"tap"`
	Status navigator.Status    `json:"navigator"`
}

// LocationRequest is the body of POST /location.
type LocationRequest struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// CountRequest is the body of POST /count.
type CountRequest struct {
	Count int `json:"count"`
}

// ViewportRequest is the body of POST /viewport.
type ViewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FrameLayer is one draw call of GET /frame.
type FrameLayer struct {
	Role   string `json:"role"`
	Source string `json:"source"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Alpha  uint8  `json:"alpha"`
}

// FrameResponse is the body of GET /frame.
type FrameResponse struct {
	Width         int          `json:"width"`
	Height        int          `json:"height"`
	Transitioning bool         `json:"transitioning"`
	Layers        []FrameLayer `json:"layers"`
}

// GetState handles GET /state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, nil)
}

// Start handles POST /start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.nav.Start)
}

// Pause handles POST /pause.
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.nav.Pause)
}

// Detach handles POST /detach.
func (h *Handler) Detach(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.nav.Detach)
}

// Restore handles POST /restore?paused=true|false.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	paused := false
	if s := r.URL.Query().Get("paused"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		paused = v
	}

	var restoreErr error
	var resp StateResponse
	if !h.run(w, r, func() {
		restoreErr = h.nav.Restore(paused)
		resp = h.snapshot()
	}) {
		return
	}
	if errors.Is(restoreErr, navigator.ErrNoCurrent) {
		h.log.Info("restore rejected", slog.String("error", restoreErr.Error()))
		w.WriteHeader(http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Touch handles POST /touch. Body: { "action": "down", "x": 120, "y": 80 }.
func (h *Handler) Touch(w http.ResponseWriter, r *http.Request) {
	var req TouchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid touch body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s := gesture.Sample{X: req.X, Y: req.Y, Time: h.clock()}

	var resp TouchResponse
	var apply func()
	switch req.Action {
	case "down":
		apply = func() { h.nav.TouchDown(s) }
	case "move":
		apply = func() { h.nav.TouchMove(s) }
	case "up":
		apply = func() { resp.Tap = h.nav.TouchUp(s) }
	default:
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !h.run(w, r, func() {
		apply()
		resp.Status = h.nav.Status()
	}) {
		return
	}
	if req.Action == "up" && h.metrics != nil {
		h.metrics.IncGesture(resp.Tap.String())
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateLocation handles POST /location.
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var requestID uint64
	if !h.run(w, r, func() {
		h.cache.UpdateLocation(req.Longitude, req.Latitude)
		requestID = h.cache.LatestRequest()
	}) {
		return
	}
	h.log.Info("location updated",
		slog.Float64("longitude", req.Longitude),
		slog.Float64("latitude", req.Latitude),
		slog.Uint64("request_id", requestID))
	w.WriteHeader(http.StatusAccepted)
}

// Resize handles POST /count.
func (h *Handler) Resize(w http.ResponseWriter, r *http.Request) {
	var req CountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Count < 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !h.run(w, r, func() { h.cache.Resize(req.Count) }) {
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// SetViewport handles POST /viewport. Body: { "width": 800, "height": 600 }.
func (h *Handler) SetViewport(w http.ResponseWriter, r *http.Request) {
	var req ViewportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Width <= 0 || req.Height <= 0 {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.control(w, r, func() { h.nav.SetViewport(req.Width, req.Height) })
}

// GetFrame handles GET /frame with the draw list of the last frame.
func (h *Handler) GetFrame(w http.ResponseWriter, r *http.Request) {
	var f compositor.Frame
	if !h.run(w, r, func() { f = h.nav.LastFrame() }) {
		return
	}
	writeJSON(w, http.StatusOK, frameResponse(f))
}

// GetFramePNG handles GET /frame.png with the last rendered image.
func (h *Handler) GetFramePNG(w http.ResponseWriter, r *http.Request) {
	var img image.Image
	if h.canvas != nil {
		img = h.canvas.Snapshot()
	}
	if img == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		h.log.Debug("write frame failed", slog.String("error", err.Error()))
	}
}

// control applies fn on the foreground and replies with the resulting state.
func (h *Handler) control(w http.ResponseWriter, r *http.Request, fn func()) {
	var resp StateResponse
	if !h.run(w, r, func() {
		if fn != nil {
			fn()
		}
		resp = h.snapshot()
	}) {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// run executes fn on the foreground, answering 503 when it is unavailable.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, fn func()) bool {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if err := h.fg.Do(ctx, fn); err != nil {
		if !errors.Is(err, loop.ErrStopped) && !errors.Is(err, context.Canceled) {
			h.log.Error("foreground unavailable", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *Handler) snapshot() StateResponse {
	return StateResponse{
		Navigator: h.nav.Status(),
		Cache: CacheStatus{
			Records: h.cache.Len(),
			Ready:   h.cache.ReadyCount(),
			Cursor:  h.cache.Cursor(),
			Desired: h.cache.Desired(),
		},
	}
}

func frameResponse(f compositor.Frame) FrameResponse {
	resp := FrameResponse{
		Width:         f.Width,
		Height:        f.Height,
		Transitioning: f.Transitioning,
		Layers:        make([]FrameLayer, 0, len(f.Layers)),
	}
	for _, l := range f.Layers {
		resp.Layers = append(resp.Layers, FrameLayer{
			Role:   l.Role.String(),
			Source: l.Source,
			X:      l.Rect.Min.X,
			Y:      l.Rect.Min.Y,
			Width:  l.Rect.Dx(),
			Height: l.Rect.Dy(),
			Alpha:  l.Alpha,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
