package media

import (
	"context"
	"image"
)

// Fetcher downloads and decodes the image behind a record URL.
// Implementations can hit the network, read local files, or synthesize images.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (image.Image, error)
}

// Query is a discovery request around a location.
type Query struct {
	Longitude float64
	Latitude  float64
	Count     int
	// RequestID increases with every request the cache issues. Results carrying
	// an older id than the latest issued are discarded.
	RequestID uint64
}

// Discovery turns a location and a desired count into a ranked list of records.
type Discovery interface {
	Discover(ctx context.Context, q Query) ([]*Record, error)
}

// Observer is notified about background downloads and list reconciliation.
// Calls arrive from worker goroutines as well as the foreground.
type Observer interface {
	FetchStarted(url string)
	FetchFinished(url string, err error)
	Reconciled(size int, stale bool)
	// Exhausted reports a full scan over size records that found nothing ready.
	Exhausted(size int)
}

// StaticDiscovery is an in-memory Discovery that always serves the same
// metadata list, ranked around the query location. Useful for tests and demos.
type StaticDiscovery struct {
	items []Metadata
}

// NewStaticDiscovery returns a discovery that serves items.
func NewStaticDiscovery(items ...Metadata) *StaticDiscovery {
	return &StaticDiscovery{items: append([]Metadata(nil), items...)}
}

// Discover implements Discovery.Discover. Each call returns fresh records so
// that reconciliation, not the discovery, decides which payloads survive.
func (s *StaticDiscovery) Discover(ctx context.Context, q Query) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(s.items))
	for _, m := range s.items {
		records = append(records, NewRecord(m))
	}
	return NearestSorted(records, q.Longitude, q.Latitude, q.Count), nil
}
