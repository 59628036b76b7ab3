package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrvstack/hrvstack/pkg/types"
)

// Entry is a device's latest reading together with the time it was received.
type Entry struct {
	Reading   types.Reading
	UpdatedAt time.Time
}

// Point is one recorded history sample: the exponent trace a chart plots.
type Point struct {
	Timestamp int64   `json:"ts"`
	Alpha1    float64 `json:"alpha1"`
	HeartRate int     `json:"heart_rate"`
	Zone      string  `json:"zone"`
}

// deviceState holds everything the store tracks for one device.
type deviceState struct {
	entry Entry

	// history is a ring of recorded points, oldest at histStart.
	history   []Point
	histStart int
	histCount int

	// lastRecorded is when a point last entered the history ring.
	lastRecorded time.Time
}

// Store is a thread-safe in-memory reading store, keyed by device_id. Each
// device carries its latest reading plus a bounded exponent history.
// A background goroutine (Run) periodically evicts devices that have not
// been updated within the configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*deviceState

	ttl          time.Duration
	historyLimit int
	recordEvery  time.Duration

	now func() time.Time // injectable for deterministic tests
}

// New creates a Store. historyLimit caps points per device; recordEvery
// throttles how often a history point is recorded.
func New(ttl time.Duration, historyLimit int, recordEvery time.Duration) *Store {
	return &Store{
		data:         make(map[string]*deviceState),
		ttl:          ttl,
		historyLimit: historyLimit,
		recordEvery:  recordEvery,
		now:          time.Now,
	}
}

// Put stores or replaces the latest reading for r.DeviceID, and records a
// history point when the reading carries an exponent and the recording
// cadence allows. Callers must not modify r's pointer fields after Put.
func (s *Store) Put(r types.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	d, ok := s.data[r.DeviceID]
	if !ok {
		d = &deviceState{}
		if s.historyLimit > 0 {
			d.history = make([]Point, s.historyLimit)
		}
		s.data[r.DeviceID] = d
	}
	d.entry = Entry{Reading: r, UpdatedAt: now}

	// Readings arrive once per beat; the chart only needs a point every
	// couple of seconds. Warming-up readings have no exponent and are
	// never recorded.
	if r.Alpha1 == nil || s.historyLimit == 0 {
		return
	}
	if !d.lastRecorded.IsZero() && now.Sub(d.lastRecorded) < s.recordEvery {
		return
	}
	d.lastRecorded = now
	d.recordLocked(Point{
		Timestamp: r.Timestamp,
		Alpha1:    *r.Alpha1,
		HeartRate: r.HeartRate,
		Zone:      string(r.Zone),
	})
}

// recordLocked appends p to the ring, overwriting the oldest point when full.
func (d *deviceState) recordLocked(p Point) {
	if d.histCount < len(d.history) {
		d.history[(d.histStart+d.histCount)%len(d.history)] = p
		d.histCount++
		return
	}
	d.history[d.histStart] = p
	d.histStart = (d.histStart + 1) % len(d.history)
}

// Get returns the Entry for the given device ID and a boolean indicating
// whether an entry was found. The entry may be stale if TTL has elapsed.
func (s *Store) Get(deviceID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[deviceID]
	if !ok {
		return Entry{}, false
	}
	return d.entry, true
}

// History returns up to limit most recent points for the device, oldest
// first. limit <= 0 means all recorded points.
func (s *Store) History(deviceID string, limit int) []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.data[deviceID]
	if !ok || d.histCount == 0 {
		return nil
	}

	n := d.histCount
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Point, n)
	// The newest n points end at histStart+histCount-1.
	first := d.histStart + d.histCount - n
	for i := 0; i < n; i++ {
		out[i] = d.history[(first+i)%len(d.history)]
	}
	return out
}

// List returns the entries of all devices whose UpdatedAt is within the TTL.
// Stale entries that have not yet been evicted are excluded.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]Entry, 0, len(s.data))
	for _, d := range s.data {
		if d.entry.UpdatedAt.After(cutoff) {
			out = append(out, d.entry)
		}
	}
	return out
}

// TTL returns the configured retention TTL.
func (s *Store) TTL() time.Duration { return s.ttl }

// Count returns the total number of devices currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes devices whose UpdatedAt is older than now minus TTL,
// dropping their history with them. It returns the number removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, d := range s.data {
		if !d.entry.UpdatedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL interval
// (minimum 1 second) so entries are evicted promptly. Run blocks until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted silent devices", "count", n)
			}
		}
	}
}
