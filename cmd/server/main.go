package main

import (
	"context"
	"image/color"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slideshow-navigator/internal/compositor"
	"slideshow-navigator/internal/discovery"
	"slideshow-navigator/internal/fetch"
	"slideshow-navigator/internal/host"
	"slideshow-navigator/internal/loop"
	"slideshow-navigator/internal/media"
	"slideshow-navigator/internal/navigator"
	"slideshow-navigator/internal/platform/config"
	"slideshow-navigator/internal/platform/logger"
	"slideshow-navigator/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	file, fileErr := config.LoadFile(config.GetEnv("CONFIG_FILE", "slideshow.toml"))

	port := config.GetEnv("PORT", file.Server.Port)
	logLevel := config.GetEnv("LOG_LEVEL", file.Server.LogLevel)
	logFormat := config.GetEnv("LOG_FORMAT", file.Server.LogFormat)
	period := time.Duration(config.GetEnvInt("SLIDESHOW_PERIOD_MS", file.Slideshow.PeriodMS)) * time.Millisecond
	transition := time.Duration(config.GetEnvInt("SLIDESHOW_TRANSITION_MS", file.Slideshow.TransitionMS)) * time.Millisecond
	count := config.GetEnvInt("SLIDESHOW_COUNT", file.Slideshow.Count)
	frameInterval := config.GetEnvInt("FRAME_INTERVAL_MS", file.Slideshow.FrameIntervalMS)
	width := config.GetEnvInt("VIEWPORT_WIDTH", file.Viewport.Width)
	height := config.GetEnvInt("VIEWPORT_HEIGHT", file.Viewport.Height)
	workers := config.GetEnvInt("FETCH_WORKERS", file.Fetch.Workers)
	fetchTimeout := config.GetEnvDuration("FETCH_TIMEOUT", config.Duration(file.Fetch.Timeout, fetch.DefaultTimeout))
	maxDimension := config.GetEnvInt("FETCH_MAX_DIMENSION", file.Fetch.MaxDimension)
	catalogURL := config.GetEnv("CATALOG_URL", file.Catalog.URL)
	catalogFile := config.GetEnv("CATALOG_FILE", file.Catalog.File)
	radius := config.GetEnvFloat("CATALOG_RADIUS", file.Catalog.Radius)
	longitude := config.GetEnvFloat("LONGITUDE", file.Catalog.Longitude)
	latitude := config.GetEnvFloat("LATITUDE", file.Catalog.Latitude)

	log := logger.New(logLevel, logFormat)
	if fileErr != nil {
		log.Warn("settings file ignored", "error", fileErr)
	}

	met := metrics.New()

	fps := 60
	if frameInterval > 0 {
		fps = max(1, 1000/frameInterval)
	}
	fg := loop.New(loop.Config{TargetFPS: fps, Logger: log})

	disc := newDiscovery(catalogFile, catalogURL, radius, log)
	cache := media.NewCache(media.Options{
		Fetcher:    fetch.NewHTTPFetcher(fetch.Options{Timeout: fetchTimeout, MaxDimension: maxDimension, Logger: log}),
		Discovery:  disc,
		Dispatcher: fg,
		Observer:   met,
		Logger:     log,
		Workers:    workers,
		Desired:    count,
	})

	navCfg := navigator.DefaultConfig(width, height)
	navCfg.Period = period
	navCfg.Transition = transition
	nav := navigator.New(cache, fg, navigator.Options{Config: navCfg, Logger: log})

	stream := host.NewStream(log)
	nav.Subscribe(met)
	nav.Subscribe(stream)

	canvas := compositor.NewCanvas(color.Black)
	fg.OnFrame(host.Presenter(nav, canvas, log))

	h := host.NewHandler(host.Options{
		Foreground: fg,
		Navigator:  nav,
		Cache:      cache,
		Canvas:     canvas,
		Stream:     stream,
		Metrics:    met,
		Logger:     log,
	})

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetCacheSize(cache.Len(), cache.ReadyCount()) }).ServeHTTP(w, r)
	})
	h.Register(r)

	ctx, stopLoop := context.WithCancel(context.Background())
	go func() {
		if err := fg.Run(ctx); err != nil && err != context.Canceled {
			log.Error("foreground loop error", "error", err)
		}
	}()

	if disc != nil {
		cache.UpdateLocation(longitude, latitude)
	}
	if err := fg.Post(nav.Start); err != nil {
		log.Error("start slideshow", "error", err)
	}

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"period", navCfg.Normalize().Period,
		"transition", navCfg.Normalize().Transition,
		"count", count,
		"viewport", [2]int{width, height},
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	stream.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	stopLoop()
	<-fg.Done()
	cache.Close()

	log.Info("server stopped", "frames", fg.Stats().Frames)
}

// newDiscovery picks the YAML catalog when a file is configured, then the HTTP
// catalog, and returns nil when neither is set.
func newDiscovery(file, url string, radius float64, log *slog.Logger) media.Discovery {
	switch {
	case file != "":
		fc, err := discovery.LoadFileCatalog(file)
		if err != nil {
			log.Error("catalog file unusable", "path", file, "error", err)
			return nil
		}
		log.Info("using catalog file", "path", file, "photos", fc.Len())
		return fc
	case url != "":
		return discovery.NewHTTPCatalog(discovery.CatalogOptions{BaseURL: url, Radius: radius, Logger: log})
	default:
		log.Warn("no catalog configured; the slideshow stays empty")
		return nil
	}
}
