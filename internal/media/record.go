package media

import (
	"image"
	"sync"
	"time"
)

// FetchState describes where a record's image payload is in its lifecycle.
type FetchState int

const (
	// FetchNotRequested means no download was started for the record yet.
	FetchNotRequested FetchState = iota
	// FetchPending means a download is queued or running.
	FetchPending
	// FetchReady means the payload is decoded and attached to the record.
	FetchReady
	// FetchFailed means the last download failed. Scans treat it like
	// FetchNotRequested and retry.
	FetchFailed
)

func (s FetchState) String() string {
	switch s {
	case FetchNotRequested:
		return "not_requested"
	case FetchPending:
		return "pending"
	case FetchReady:
		return "ready"
	case FetchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Metadata is the immutable description of a remote image.
// URL is the source of the image bytes and the record's identity.
type Metadata struct {
	Taken     time.Time `json:"taken" yaml:"taken"`
	URL       string    `json:"url" yaml:"url"`
	Link      string    `json:"link" yaml:"link"`
	Author    string    `json:"author" yaml:"author"`
	Title     string    `json:"title" yaml:"title"`
	Longitude float64   `json:"longitude" yaml:"longitude"`
	Latitude  float64   `json:"latitude" yaml:"latitude"`
}

// Record is a single slide: metadata plus the mutable fetch state.
// Workers only ever touch the fetch state; the cache order and cursor are
// owned by the Cache.
type Record struct {
	meta Metadata

	mu       sync.Mutex
	state    FetchState
	payload  image.Image
	failures int
}

// NewRecord returns a record in FetchNotRequested state.
func NewRecord(meta Metadata) *Record {
	return &Record{meta: meta}
}

// NewReadyRecord returns a record that already holds its payload.
func NewReadyRecord(meta Metadata, payload image.Image) *Record {
	return &Record{meta: meta, state: FetchReady, payload: payload}
}

// Meta returns the record metadata.
func (r *Record) Meta() Metadata {
	return r.meta
}

// URL returns the identity of the record.
func (r *Record) URL() string {
	return r.meta.URL
}

// State returns the current fetch state.
func (r *Record) State() FetchState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Ready reports whether the payload is available.
func (r *Record) Ready() bool {
	return r.State() == FetchReady
}

// Payload returns the decoded image, or false if the record is not ready.
func (r *Record) Payload() (image.Image, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != FetchReady {
		return nil, false
	}
	return r.payload, true
}

// Failures returns how many downloads of this record have failed.
func (r *Record) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// claim moves a fetchable record to FetchPending. It returns false when a
// download is already running or the payload is present.
func (r *Record) claim() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == FetchPending || r.state == FetchReady {
		return false
	}
	r.state = FetchPending
	return true
}

// complete attaches the payload. A nil payload counts as a failure.
func (r *Record) complete(payload image.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payload == nil {
		r.state = FetchFailed
		r.failures++
		return
	}
	r.payload = payload
	r.state = FetchReady
}

// fail reverts the record to a retryable state.
func (r *Record) fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = FetchFailed
	r.failures++
}

// abandon releases a claim that never reached the fetcher.
func (r *Record) abandon() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == FetchPending {
		r.state = FetchNotRequested
	}
}

