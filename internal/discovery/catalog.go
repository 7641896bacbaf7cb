// Package discovery finds slideshow images around a location.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"slideshow-navigator/internal/media"
)

const (
	// DefaultRadius is the latitude half-height of the search box in degrees.
	DefaultRadius = 0.01
	// MinFetchSize is the smallest number of candidates requested from a catalog.
	MinFetchSize = 30
	// UploadDateLayout is the catalog's upload_date format.
	UploadDateLayout = "02 January 2006"
)

var ErrCatalogStatus = errors.New("unexpected catalog response status")

// Photo is one entry of a catalog response.
type Photo struct {
	UploadDate string  `json:"upload_date"`
	FileURL    string  `json:"photo_file_url"`
	PageURL    string  `json:"photo_url"`
	Owner      string  `json:"owner_name"`
	Title      string  `json:"photo_title"`
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
}

type catalogResponse struct {
	Count   int     `json:"count"`
	HasMore bool    `json:"has_more"`
	Photos  []Photo `json:"photos"`
}

// CatalogOptions configures an HTTPCatalog.
type CatalogOptions struct {
	// BaseURL is the photo search endpoint. Query parameters are appended.
	BaseURL string
	Radius  float64
	Client  *http.Client
	Logger  *slog.Logger
}

// HTTPCatalog implements media.Discovery on top of a JSON photo search API
// queried with a bounding box around the location.
type HTTPCatalog struct {
	baseURL string
	radius  float64
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPCatalog returns a catalog client configured by opts.
func NewHTTPCatalog(opts CatalogOptions) *HTTPCatalog {
	c := &HTTPCatalog{baseURL: opts.BaseURL, radius: opts.Radius, client: opts.Client, logger: opts.Logger}
	if c.radius <= 0 {
		c.radius = DefaultRadius
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// FetchSize is the number of candidates requested for count desired records.
func FetchSize(count int) int {
	return max(MinFetchSize, 2*count)
}

// LongitudeRadius returns the longitude half-width that matches latRadius in
// meters at latitude.
func LongitudeRadius(latitude, latRadius float64) float64 {
	return latRadius / math.Cos(latitude*math.Pi/180)
}

// QueryURL builds the bounding-box search URL for q.
func (c *HTTPCatalog) QueryURL(q media.Query) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse catalog url: %w", err)
	}
	dLon := LongitudeRadius(q.Latitude, c.radius)
	v := u.Query()
	v.Set("set", "full")
	v.Set("from", "0")
	v.Set("to", strconv.Itoa(FetchSize(q.Count)))
	v.Set("minx", formatFloat(q.Longitude-dLon))
	v.Set("miny", formatFloat(q.Latitude-c.radius))
	v.Set("maxx", formatFloat(q.Longitude+dLon))
	v.Set("maxy", formatFloat(q.Latitude+c.radius))
	v.Set("size", "medium")
	v.Set("mapfilter", "false")
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// Discover implements media.Discovery.
func (c *HTTPCatalog) Discover(ctx context.Context, q media.Query) ([]*media.Record, error) {
	uri, err := c.QueryURL(q)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrCatalogStatus, resp.StatusCode)
	}

	var body catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	records := make([]*media.Record, 0, len(body.Photos))
	for _, p := range body.Photos {
		meta, err := p.Metadata()
		if err != nil {
			c.logger.Debug("skipping catalog photo", "url", p.FileURL, "error", err)
			continue
		}
		records = append(records, media.NewRecord(meta))
	}
	c.logger.Debug("catalog answered", "request_id", q.RequestID, "photos", len(body.Photos), "usable", len(records))
	return media.NearestSorted(records, q.Longitude, q.Latitude, q.Count), nil
}

// Metadata converts the photo into record metadata.
func (p Photo) Metadata() (media.Metadata, error) {
	if p.FileURL == "" {
		return media.Metadata{}, errors.New("photo without file url")
	}
	taken, err := time.Parse(UploadDateLayout, p.UploadDate)
	if err != nil {
		return media.Metadata{}, fmt.Errorf("upload date: %w", err)
	}
	return media.Metadata{
		Taken:     taken,
		URL:       p.FileURL,
		Link:      p.PageURL,
		Author:    p.Owner,
		Title:     p.Title,
		Longitude: p.Longitude,
		Latitude:  p.Latitude,
	}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
