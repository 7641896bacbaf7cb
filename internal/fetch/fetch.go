// Package fetch downloads and decodes slideshow images over HTTP.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	// Registers the WebP decoder with image.Decode.
	_ "golang.org/x/image/webp"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxBytes = 32 << 20
)

var (
	ErrStatus   = errors.New("unexpected response status")
	ErrTooLarge = errors.New("image exceeds size limit")
)

// Options configures an HTTPFetcher. Zero values pick the defaults.
type Options struct {
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
	// MaxDimension, when positive, downsizes decoded images so that neither
	// side exceeds it.
	MaxDimension int
	Logger       *slog.Logger
}

// HTTPFetcher implements media.Fetcher for http and https URLs.
type HTTPFetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBytes     int64
	maxDimension int
	logger       *slog.Logger
}

// NewHTTPFetcher returns a fetcher configured by opts.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	f := &HTTPFetcher{
		client:       opts.Client,
		timeout:      opts.Timeout,
		maxBytes:     opts.MaxBytes,
		maxDimension: opts.MaxDimension,
		logger:       opts.Logger,
	}
	if f.client == nil {
		f.client = http.DefaultClient
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBytes
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Fetch downloads url and decodes it, honouring EXIF orientation.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: %w: %d", url, ErrStatus, resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("get %s: %w", url, ErrTooLarge)
	}

	body := &limitedReader{r: resp.Body, remaining: f.maxBytes}
	img, err := imaging.Decode(body, imaging.AutoOrientation(true))
	if body.exceeded {
		return nil, fmt.Errorf("get %s: %w", url, ErrTooLarge)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}

	if f.maxDimension > 0 {
		b := img.Bounds()
		if b.Dx() > f.maxDimension || b.Dy() > f.maxDimension {
			img = imaging.Fit(img, f.maxDimension, f.maxDimension, imaging.Lanczos)
		}
	}
	f.logger.Debug("image fetched", "url", url, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

// limitedReader is io.LimitReader that remembers when the limit was hit.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		// One extra byte tells a body of exactly the limit from a longer one.
		var probe [1]byte
		if n, _ := l.r.Read(probe[:]); n > 0 {
			l.exceeded = true
		}
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
