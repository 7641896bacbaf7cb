package discovery

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"slideshow-navigator/internal/media"
)

var takenLayouts = []string{time.RFC3339, "2006-01-02", UploadDateLayout}

type fileEntry struct {
	URL       string  `yaml:"url"`
	Link      string  `yaml:"link"`
	Author    string  `yaml:"author"`
	Title     string  `yaml:"title"`
	Taken     string  `yaml:"taken"`
	Longitude float64 `yaml:"longitude"`
	Latitude  float64 `yaml:"latitude"`
}

type fileDocument struct {
	Photos []fileEntry `yaml:"photos"`
}

// FileCatalog serves a fixed photo list read from a YAML document:
//
//	photos:
//	  - url: https://example.org/a.jpg
//	    taken: 2014-04-01
//	    longitude: 27.56
//	    latitude: 53.90
type FileCatalog struct {
	items []media.Metadata
}

// LoadFileCatalog reads and parses the YAML document at path.
func LoadFileCatalog(path string) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseFileCatalog(data)
}

// ParseFileCatalog parses a YAML photo list.
func ParseFileCatalog(data []byte) (*FileCatalog, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	items := make([]media.Metadata, 0, len(doc.Photos))
	for i, e := range doc.Photos {
		if e.URL == "" {
			return nil, fmt.Errorf("parse catalog: photo %d has no url", i)
		}
		taken, err := parseTaken(e.Taken)
		if err != nil {
			return nil, fmt.Errorf("parse catalog: photo %d: %w", i, err)
		}
		items = append(items, media.Metadata{
			Taken:     taken,
			URL:       e.URL,
			Link:      e.Link,
			Author:    e.Author,
			Title:     e.Title,
			Longitude: e.Longitude,
			Latitude:  e.Latitude,
		})
	}
	return &FileCatalog{items: items}, nil
}

// Len returns the number of photos in the catalog.
func (f *FileCatalog) Len() int { return len(f.items) }

// Discover implements media.Discovery.
func (f *FileCatalog) Discover(ctx context.Context, q media.Query) ([]*media.Record, error) {
	return media.NewStaticDiscovery(f.items...).Discover(ctx, q)
}

func parseTaken(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range takenLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
