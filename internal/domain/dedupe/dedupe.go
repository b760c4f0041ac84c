// Package dedupe tracks recently submitted frame ids so that a retried
// submission is processed at most once.
package dedupe

import (
	"context"
	"strings"
	"sync"
)

// DefaultMaxSize is the number of ids remembered when no size is given.
const DefaultMaxSize = 4096

// Deduper records seen frame keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it
	// if not, atomically.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so that a submission which was recorded but never
	// queued can be retried.
	Unrecord(ctx context.Context, key string)

	// UnrecordStream forgets every key of streamID and returns how many
	// were dropped.
	UnrecordStream(ctx context.Context, streamID string) int

	Size() int
}

const keySep = "\x00"

// Key scopes a frame id to its stream.
func Key(streamID, frameID string) string {
	return streamID + keySep + frameID
}

// window remembers the most recent maxSize keys; the oldest is evicted
// first. maxSize <= 0 keeps every key.
type window struct {
	mu      sync.Mutex
	maxSize int
	seen    map[string]int // key -> slot in ring, -1 when unbounded
	ring    []string       // "" marks a free or unrecorded slot
	next    int
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &window{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}
	return d
}

func (d *window) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[key] = -1
		return false
	}

	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
	}
	d.ring[d.next] = key
	d.seen[key] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *window) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.seen[key]
	if !ok {
		return
	}
	delete(d.seen, key)
	if slot >= 0 {
		d.ring[slot] = ""
	}
}

func (d *window) UnrecordStream(_ context.Context, streamID string) int {
	prefix := streamID + keySep
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for key, slot := range d.seen {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		delete(d.seen, key)
		if slot >= 0 {
			d.ring[slot] = ""
		}
		n++
	}
	return n
}

func (d *window) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
