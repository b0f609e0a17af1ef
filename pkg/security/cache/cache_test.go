package cache

import (
	"fmt"
	"testing"
	"time"

	cacheopts "github.com/kart-io/guardian/pkg/options/cache"
)

func newTestCache(ttl time.Duration, maxSubjects int) *Decisions {
	opts := cacheopts.NewOptions()
	opts.TTL = ttl
	opts.MaxSubjects = maxSubjects
	return New(opts)
}

func TestPutAndGet(t *testing.T) {
	c := newTestCache(time.Minute, 10)

	if _, ok := c.Get("alice", KindPermission, "DOC:READ"); ok {
		t.Fatal("hit on empty cache")
	}

	c.Put("alice", KindPermission, "DOC:READ", true)
	c.Put("alice", KindPermission, "DOC:WRITE", false)

	if got, ok := c.Get("alice", KindPermission, "DOC:READ"); !ok || !got {
		t.Errorf("Get(DOC:READ) = %v, %v, want true hit", got, ok)
	}
	if got, ok := c.Get("alice", KindPermission, "DOC:WRITE"); !ok || got {
		t.Errorf("Get(DOC:WRITE) = %v, %v, want false hit", got, ok)
	}
}

func TestKindsAreIndependent(t *testing.T) {
	c := newTestCache(time.Minute, 10)

	c.Put("alice", KindPermission, "admin", true)

	if _, ok := c.Get("alice", KindRole, "admin"); ok {
		t.Fatal("permission entry answered a role check")
	}

	c.Put("alice", KindRole, "admin", false)
	if got, ok := c.Get("alice", KindPermission, "admin"); !ok || !got {
		t.Errorf("permission entry disturbed by role write: %v, %v", got, ok)
	}
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(5*time.Millisecond, 10)

	c.Put("alice", KindPermission, "DOC:READ", true)
	if _, ok := c.Get("alice", KindPermission, "DOC:READ"); !ok {
		t.Fatal("fresh entry missing")
	}

	time.Sleep(10 * time.Millisecond)
	if _, ok := c.Get("alice", KindPermission, "DOC:READ"); ok {
		t.Fatal("expired entry returned")
	}
}

func TestInvalidateSubject(t *testing.T) {
	c := newTestCache(time.Minute, 10)

	c.Put("alice", KindPermission, "DOC:READ", true)
	c.Put("alice", KindRole, "admin", true)
	c.Put("bob", KindPermission, "DOC:READ", true)

	c.InvalidateSubject("alice")

	if _, ok := c.Get("alice", KindPermission, "DOC:READ"); ok {
		t.Error("alice permission entry survived invalidation")
	}
	if _, ok := c.Get("alice", KindRole, "admin"); ok {
		t.Error("alice role entry survived invalidation")
	}
	if _, ok := c.Get("bob", KindPermission, "DOC:READ"); !ok {
		t.Error("bob entry dropped by alice invalidation")
	}
}

func TestSubjectEviction(t *testing.T) {
	c := newTestCache(time.Minute, 3)

	for i := 0; i < 3; i++ {
		c.Put(fmt.Sprintf("user%d", i), KindPermission, "DOC:READ", true)
	}

	// Touch user0 so user1 becomes the least recently used.
	c.Get("user0", KindPermission, "DOC:READ")

	c.Put("user9", KindPermission, "DOC:READ", true)

	if got := c.Subjects(); got != 3 {
		t.Fatalf("subjects = %d, want 3", got)
	}
	if _, ok := c.Get("user1", KindPermission, "DOC:READ"); ok {
		t.Error("least recently used subject not evicted")
	}
	if _, ok := c.Get("user0", KindPermission, "DOC:READ"); !ok {
		t.Error("recently used subject evicted")
	}
	if _, ok := c.Get("user9", KindPermission, "DOC:READ"); !ok {
		t.Error("new subject missing")
	}
}

func TestSweepExpired(t *testing.T) {
	c := newTestCache(5*time.Millisecond, 10)

	c.Put("alice", KindPermission, "DOC:READ", true)
	c.Put("bob", KindRole, "admin", true)
	time.Sleep(10 * time.Millisecond)
	c.Put("carol", KindPermission, "DOC:READ", true)

	if removed := c.SweepExpired(); removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if got := c.Len(); got != 1 {
		t.Errorf("len = %d, want 1", got)
	}
	if got := c.Subjects(); got != 1 {
		t.Errorf("subjects = %d, want 1", got)
	}
}

func TestZeroBoundsFallBackToDefaults(t *testing.T) {
	c := New(&cacheopts.Options{})

	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("user%d", i), KindPermission, "DOC:READ", true)
	}

	// With an unset subject bound, Put must still terminate and keep
	// the entries under the default limits.
	if got := c.Subjects(); got != 5 {
		t.Errorf("subjects = %d, want 5", got)
	}
	if got, ok := c.Get("user0", KindPermission, "DOC:READ"); !ok || !got {
		t.Errorf("entry lost under zero-value options: %v, %v", got, ok)
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(time.Minute, 10)

	c.Put("alice", KindPermission, "DOC:READ", true)
	c.Clear()

	if got := c.Len(); got != 0 {
		t.Errorf("len after clear = %d, want 0", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := newTestCache(time.Minute, 100)

	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			subject := fmt.Sprintf("user%d", w)
			for i := 0; i < 200; i++ {
				c.Put(subject, KindPermission, "DOC:READ", true)
				c.Get(subject, KindPermission, "DOC:READ")
				if i%50 == 0 {
					c.SweepExpired()
					c.InvalidateSubject(subject)
				}
			}
		}(w)
	}
	for w := 0; w < 8; w++ {
		<-done
	}
}
