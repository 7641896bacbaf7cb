package media

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the number of downloads allowed to run at once.
const DefaultWorkers = 5

var (
	// ErrEmpty is returned when the cache holds no records at all.
	ErrEmpty = errors.New("media cache is empty")

	// ErrExhausted is returned when a full circular scan found no ready record.
	ErrExhausted = errors.New("no ready media in cache")

	// ErrNotReady is returned by Current while the first record is still downloading.
	ErrNotReady = errors.New("current media not ready yet")

	// ErrStaleResult is returned by Reconcile when a newer discovery request was issued.
	ErrStaleResult = errors.New("stale discovery result")
)

// Dispatcher delivers work to the foreground domain.
type Dispatcher interface {
	Post(task func()) error
}

// Options configures a Cache. Zero values are valid: without a Fetcher records
// never leave their initial state, without a Discovery the record list only
// changes through Reconcile.
type Options struct {
	Fetcher    Fetcher
	Discovery  Discovery
	Dispatcher Dispatcher
	Observer   Observer
	Logger     *slog.Logger

	// Workers bounds concurrent downloads. Zero means DefaultWorkers.
	Workers int
	// Desired is the initial number of records wanted from discovery.
	Desired int
	// Records seeds the cache.
	Records []*Record
}

// Cache is the circular, demand-driven media sequence behind the navigator.
// Cursor moves and reconciliation happen on the foreground; downloads only
// flip record fetch state from worker goroutines.
type Cache struct {
	mu      sync.RWMutex
	records []*Record
	cursor  int // -1 when unset

	shadow    int
	hasShadow bool

	desired     int
	lon, lat    float64
	hasLocation bool
	requestID   uint64

	fetcher    Fetcher
	discovery  Discovery
	dispatcher Dispatcher
	observer   Observer
	logger     *slog.Logger

	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCache returns a cache configured by opts.
func NewCache(opts Options) *Cache {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		records:    append([]*Record(nil), opts.Records...),
		cursor:     -1,
		desired:    opts.Desired,
		fetcher:    opts.Fetcher,
		discovery:  opts.Discovery,
		dispatcher: opts.Dispatcher,
		observer:   opts.Observer,
		logger:     logger,
		sem:        semaphore.NewWeighted(int64(workers)),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Next moves the cursor to the first ready record after it, wrapping around.
func (c *Cache) Next() (*Record, error) {
	return c.step(1)
}

// Previous moves the cursor to the first ready record before it, wrapping around.
func (c *Cache) Previous() (*Record, error) {
	return c.step(-1)
}

// step scans every position once, the cursor itself last. Records that are not
// ready get their download triggered on the way. The cursor value before the
// call is kept for UndoLast.
func (c *Cache) step(dir int) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.records)
	if n == 0 {
		return nil, ErrEmpty
	}

	c.shadow, c.hasShadow = c.cursor, true

	start := c.cursor
	if start < 0 {
		if dir > 0 {
			start = -1
		} else {
			start = n
		}
	}
	for i := 1; i <= n; i++ {
		idx := ((start+dir*i)%n + n) % n
		rec := c.records[idx]
		if rec.Ready() {
			c.cursor = idx
			c.logger.Debug("requested media", "direction", dir, "index", idx)
			return rec, nil
		}
		c.fetchLocked(rec)
	}

	c.cursor = -1
	c.logger.Debug("requested media: none ready", "direction", dir, "size", n)
	if c.observer != nil {
		c.observer.Exhausted(n)
	}
	return nil, ErrExhausted
}

// Current returns the record at the cursor without moving it. While the cursor
// is unset it tries the first record, triggering its download if needed.
func (c *Cache) Current() (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.records) == 0 {
		return nil, ErrEmpty
	}
	if c.cursor >= 0 {
		return c.records[c.cursor], nil
	}
	first := c.records[0]
	if first.Ready() {
		c.cursor = 0
		return first, nil
	}
	c.fetchLocked(first)
	return nil, ErrNotReady
}

// UndoLast restores the cursor held before the most recent Next or Previous.
// Only one level is kept; further calls are no-ops.
func (c *Cache) UndoLast() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasShadow {
		return
	}
	c.cursor = c.shadow
	c.hasShadow = false
}

// Cursor returns the cursor index, or -1 when unset.
func (c *Cache) Cursor() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor
}

// Records returns a snapshot of the sequence in display order.
func (c *Cache) Records() []*Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Record(nil), c.records...)
}

// Len returns the number of records, ready or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// ReadyCount returns the number of records holding a payload.
func (c *Cache) ReadyCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, rec := range c.records {
		if rec.Ready() {
			n++
		}
	}
	return n
}

// Desired returns the number of records asked for.
func (c *Cache) Desired() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.desired
}

// LatestRequest returns the id of the most recent discovery request.
func (c *Cache) LatestRequest() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requestID
}

// Reconcile replaces the sequence with incoming, keeping the existing record
// (and so its payload or running download) for every URL present in both.
// The cursor and the undo shadow follow their record by URL; when it is gone
// they become unset. Results for anything but the latest request are dropped.
func (c *Cache) Reconcile(incoming []*Record, requestID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if requestID != c.requestID {
		c.notifyReconciled(len(c.records), true)
		return ErrStaleResult
	}

	existing := make(map[string]*Record, len(c.records))
	for _, rec := range c.records {
		existing[rec.URL()] = rec
	}

	merged := make([]*Record, 0, len(incoming))
	seen := make(map[string]struct{}, len(incoming))
	for _, rec := range incoming {
		if rec == nil {
			continue
		}
		url := rec.URL()
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		if old, ok := existing[url]; ok {
			merged = append(merged, old)
			continue
		}
		merged = append(merged, rec)
	}

	c.replaceLocked(merged)
	c.notifyReconciled(len(merged), false)
	return nil
}

// Resize changes the desired count. Growing asks discovery for a new list
// when a location is known; shrinking re-ranks nearest-first and truncates.
// A non-positive count clears the cache.
func (c *Cache) Resize(count int) {
	c.mu.Lock()

	if count == c.desired {
		c.mu.Unlock()
		return
	}
	if count <= 0 {
		c.desired = 0
		c.replaceLocked(nil)
		c.mu.Unlock()
		return
	}

	c.desired = count
	switch {
	case count > len(c.records):
		if !c.hasLocation {
			c.mu.Unlock()
			return
		}
		q := c.nextQueryLocked()
		c.mu.Unlock()
		c.discover(q)
		return
	case count < len(c.records):
		var ranked []*Record
		if c.hasLocation {
			ranked = NearestSorted(c.records, c.lon, c.lat, count)
		} else {
			ranked = append([]*Record(nil), c.records[:count]...)
		}
		c.replaceLocked(ranked)
	}
	c.mu.Unlock()
}

// UpdateLocation records a new location and requests a fresh list for it.
func (c *Cache) UpdateLocation(lon, lat float64) {
	c.mu.Lock()
	c.lon, c.lat, c.hasLocation = lon, lat, true
	q := c.nextQueryLocked()
	c.mu.Unlock()

	c.discover(q)
}

// Wait blocks until running downloads and discovery requests return.
func (c *Cache) Wait() {
	c.wg.Wait()
}

// Close cancels background work and waits for it.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}

// replaceLocked swaps the sequence and re-maps cursor and shadow by identity.
// Caller must hold c.mu in write mode.
func (c *Cache) replaceLocked(records []*Record) {
	cursorURL, hasCursor := c.urlAtLocked(c.cursor)
	shadowURL, hasShadowURL := c.urlAtLocked(c.shadow)

	c.records = records
	c.cursor = -1
	if hasCursor {
		c.cursor = c.indexOfLocked(cursorURL)
	}
	if c.hasShadow {
		c.shadow = -1
		if hasShadowURL {
			c.shadow = c.indexOfLocked(shadowURL)
		}
	}
}

func (c *Cache) urlAtLocked(idx int) (string, bool) {
	if idx < 0 || idx >= len(c.records) {
		return "", false
	}
	return c.records[idx].URL(), true
}

func (c *Cache) indexOfLocked(url string) int {
	for i, rec := range c.records {
		if rec.URL() == url {
			return i
		}
	}
	return -1
}

// nextQueryLocked issues a new request id. Caller must hold c.mu in write mode.
func (c *Cache) nextQueryLocked() Query {
	c.requestID++
	return Query{
		Longitude: c.lon,
		Latitude:  c.lat,
		Count:     c.desired,
		RequestID: c.requestID,
	}
}

// fetchLocked starts a background download unless one is running or the
// payload is present. Caller must hold c.mu.
func (c *Cache) fetchLocked(rec *Record) {
	if c.fetcher == nil || !rec.claim() {
		return
	}
	c.wg.Add(1)
	go c.fetch(rec)
}

func (c *Cache) fetch(rec *Record) {
	defer c.wg.Done()

	if err := c.sem.Acquire(c.ctx, 1); err != nil {
		rec.abandon()
		return
	}
	defer c.sem.Release(1)

	url := rec.URL()
	if c.observer != nil {
		c.observer.FetchStarted(url)
	}
	payload, err := c.fetcher.Fetch(c.ctx, url)
	if err == nil && payload == nil {
		err = errors.New("fetcher returned no image")
	}
	if err != nil {
		rec.fail()
		c.logger.Debug("media fetch failed", "url", url, "failures", rec.Failures(), "error", err)
	} else {
		rec.complete(payload)
	}
	if c.observer != nil {
		c.observer.FetchFinished(url, err)
	}
}

// discover runs q on a worker and hands the result to the foreground.
// Errors and empty results leave the cache as it is.
func (c *Cache) discover(q Query) {
	if c.discovery == nil {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		records, err := c.discovery.Discover(c.ctx, q)
		if err != nil {
			c.logger.Debug("discovery failed", "request_id", q.RequestID, "error", err)
			return
		}
		if len(records) == 0 {
			return
		}
		c.deliver(func() {
			if err := c.Reconcile(records, q.RequestID); errors.Is(err, ErrStaleResult) {
				c.logger.Info("discarded stale discovery result", "request_id", q.RequestID)
			}
		})
	}()
}

func (c *Cache) deliver(task func()) {
	if c.dispatcher == nil {
		task()
		return
	}
	if err := c.dispatcher.Post(task); err != nil {
		c.logger.Debug("dropped discovery result", "error", err)
	}
}

func (c *Cache) notifyReconciled(size int, stale bool) {
	if c.observer != nil {
		c.observer.Reconciled(size, stale)
	}
}
