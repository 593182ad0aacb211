package services

import (
	"sync"
	"time"
)

// Dedupe is a best-effort, process-local guard against handling the same
// inbound interaction twice concurrently (Slack retries deliveries). It
// is not relied upon for correctness across restarts.
type Dedupe struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewDedupe creates a dedupe window of the given TTL.
func NewDedupe(ttl time.Duration) *Dedupe {
	return &Dedupe{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Begin registers the key and reports whether the caller holds the only
// live claim on it. A second call within the TTL returns false.
func (d *Dedupe) Begin(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, t := range d.seen {
		if now.Sub(t) > d.ttl {
			delete(d.seen, k)
		}
	}

	if t, ok := d.seen[key]; ok && now.Sub(t) <= d.ttl {
		return false
	}
	d.seen[key] = now
	return true
}
