// Package cache provides a TTL-bounded cache for authorization
// decisions, keyed per subject so a permission change can drop exactly
// one subject's entries.
package cache

import (
	"sync"
	"time"

	cacheopts "github.com/kart-io/guardian/pkg/options/cache"
)

// Kind separates the decision namespaces a subject can have entries in.
type Kind string

const (
	// KindPermission caches permission checks.
	KindPermission Kind = "permission"

	// KindRole caches role membership checks.
	KindRole Kind = "role"
)

type entry struct {
	decision bool
	cachedAt time.Time
}

// subjectEntries holds one subject's decisions plus the access time used
// for least-recently-used eviction.
type subjectEntries struct {
	entries    map[string]entry
	lastAccess time.Time
}

// Decisions is an in-memory decision cache. Entries expire after the
// configured TTL; expiry is checked lazily on read and reclaimed by
// SweepExpired. When the number of cached subjects exceeds the
// configured maximum, the least recently used subject is evicted whole.
// All methods are safe for concurrent use.
type Decisions struct {
	ttl         time.Duration
	maxSubjects int

	mu       sync.Mutex
	subjects map[string]*subjectEntries
}

// New creates a decision cache. Non-positive bounds fall back to the
// option defaults.
func New(opts *cacheopts.Options) *Decisions {
	if opts == nil {
		opts = cacheopts.NewOptions()
	}

	defaults := cacheopts.NewOptions()
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaults.TTL
	}
	maxSubjects := opts.MaxSubjects
	if maxSubjects <= 0 {
		maxSubjects = defaults.MaxSubjects
	}

	return &Decisions{
		ttl:         ttl,
		maxSubjects: maxSubjects,
		subjects:    make(map[string]*subjectEntries),
	}
}

func key(kind Kind, value string) string {
	return string(kind) + ":" + value
}

// Get returns the cached decision for (subject, kind, value). The second
// return is false on a miss or when the entry has expired. An expired
// entry is removed on the spot.
func (d *Decisions) Get(subject string, kind Kind, value string) (bool, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	se, ok := d.subjects[subject]
	if !ok {
		return false, false
	}

	k := key(kind, value)
	e, ok := se.entries[k]
	if !ok {
		return false, false
	}

	if time.Since(e.cachedAt) >= d.ttl {
		delete(se.entries, k)
		if len(se.entries) == 0 {
			delete(d.subjects, subject)
		}
		return false, false
	}

	se.lastAccess = time.Now()
	return e.decision, true
}

// Put stores a decision for (subject, kind, value), overwriting any
// previous entry and refreshing its TTL.
func (d *Decisions) Put(subject string, kind Kind, value string, decision bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	se, ok := d.subjects[subject]
	if !ok {
		d.evictLocked()
		se = &subjectEntries{entries: make(map[string]entry)}
		d.subjects[subject] = se
	}

	se.entries[key(kind, value)] = entry{decision: decision, cachedAt: time.Now()}
	se.lastAccess = time.Now()
}

// evictLocked drops least recently used subjects until a new subject
// fits under the bound. Caller holds the mutex.
func (d *Decisions) evictLocked() {
	for len(d.subjects) >= d.maxSubjects {
		var oldest string
		var oldestAt time.Time
		for subject, se := range d.subjects {
			if oldest == "" || se.lastAccess.Before(oldestAt) {
				oldest = subject
				oldestAt = se.lastAccess
			}
		}
		delete(d.subjects, oldest)
	}
}

// InvalidateSubject drops every cached decision for the subject.
func (d *Decisions) InvalidateSubject(subject string) {
	d.mu.Lock()
	delete(d.subjects, subject)
	d.mu.Unlock()
}

// Clear drops the entire cache.
func (d *Decisions) Clear() {
	d.mu.Lock()
	d.subjects = make(map[string]*subjectEntries)
	d.mu.Unlock()
}

// SweepExpired removes expired entries and returns how many were
// dropped.
func (d *Decisions) SweepExpired() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	now := time.Now()
	for subject, se := range d.subjects {
		for k, e := range se.entries {
			if now.Sub(e.cachedAt) >= d.ttl {
				delete(se.entries, k)
				removed++
			}
		}
		if len(se.entries) == 0 {
			delete(d.subjects, subject)
		}
	}
	return removed
}

// Len returns the total number of live entries.
func (d *Decisions) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, se := range d.subjects {
		n += len(se.entries)
	}
	return n
}

// Subjects returns the number of subjects with cached entries.
func (d *Decisions) Subjects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subjects)
}
