package authz

import (
	"container/list"
	"sync"
	"time"

	"github.com/station-labs/station/model"
)

// defaultWindow and defaultQuota implement spec.md §4.3 point 4: "a sliding
// 1-hour window with at most 100 admitted calls; excess calls fail
// RateLimited. Anonymous callers share a single bucket."
const (
	defaultWindow = time.Hour
	defaultQuota  = 100
)

// anonymousBucketKey is the shared identity every unauthenticated caller's
// calls are counted against.
const anonymousBucketKey = "\x00anonymous"

// callLog is a per-identity sliding window of admitted-call timestamps. A
// plain slice used as a ring buffer would need periodic compaction under
// the same lock either way, so container/list (the teacher's own choice
// in p2p/ratelimit.go) is used here too for O(1) front-eviction.
type callLog struct {
	calls    *list.List // of time.Time, oldest at Front
	lastSeen time.Time
	element  *list.Element // this entry's position in the limiter's LRU order
}

// Limiter is a sliding-window rate limiter keyed by caller identity,
// adapted from the teacher's p2p.ipRateLimiter: same map+container/list LRU
// eviction shell, but a timestamp log instead of a token bucket, since
// spec.md's "at most 100 calls in any trailing hour" is a different
// admission rule than continuous refill — the 101st call inside the hour
// must be denied and the first call past the hour boundary must succeed
// again, which a token bucket only approximates.
type Limiter struct {
	window time.Duration
	quota  int

	idleTimeout time.Duration
	maxEntries  int

	mu      sync.Mutex
	buckets map[string]*callLog
	order   *list.List // of string identity keys, oldest-seen at Front
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithIdleTimeout evicts an identity's call log once it has been idle this
// long, bounding memory for callers who stop calling.
func WithIdleTimeout(d time.Duration) Option {
	return func(l *Limiter) { l.idleTimeout = d }
}

// WithMaxEntries caps the number of distinct identities tracked at once,
// evicting the least-recently-seen identity to make room.
func WithMaxEntries(n int) Option {
	return func(l *Limiter) { l.maxEntries = n }
}

// NewLimiter constructs a sliding-window Limiter over the spec.md default
// window/quota.
func NewLimiter(opts ...Option) *Limiter {
	l := &Limiter{
		window:      defaultWindow,
		quota:       defaultQuota,
		idleTimeout: 2 * defaultWindow,
		buckets:     make(map[string]*callLog),
		order:       list.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func identityKey(caller model.Principal, anonymous bool) string {
	if anonymous {
		return anonymousBucketKey
	}
	return caller.String()
}

// Allow reports whether a call from caller at time now is admitted,
// consuming one slot from the sliding window if so. It must only be called
// after authorization has already succeeded, per spec.md §4.3: "failing
// authorization does not consume a token."
func (l *Limiter) Allow(caller model.Principal, anonymous bool, now time.Time) bool {
	key := identityKey(caller, anonymous)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictIdleLocked(now)

	entry := l.buckets[key]
	if entry == nil {
		l.evictLRULocked()
		entry = &callLog{calls: list.New()}
		entry.element = l.order.PushBack(key)
		l.buckets[key] = entry
	}
	entry.lastSeen = now
	if entry.element != nil {
		l.order.MoveToBack(entry.element)
	}

	cutoff := now.Add(-l.window)
	for {
		front := entry.calls.Front()
		if front == nil {
			break
		}
		t, _ := front.Value.(time.Time)
		if t.After(cutoff) {
			break
		}
		entry.calls.Remove(front)
	}

	if entry.calls.Len() >= l.quota {
		return false
	}
	entry.calls.PushBack(now)
	return true
}

func (l *Limiter) evictIdleLocked(now time.Time) {
	if l.idleTimeout <= 0 {
		return
	}
	cutoff := now.Add(-l.idleTimeout)
	for {
		front := l.order.Front()
		if front == nil {
			return
		}
		key, _ := front.Value.(string)
		entry, ok := l.buckets[key]
		if !ok {
			l.order.Remove(front)
			continue
		}
		if !entry.lastSeen.Before(cutoff) {
			return
		}
		l.removeLocked(key)
	}
}

func (l *Limiter) evictLRULocked() {
	if l.maxEntries <= 0 {
		return
	}
	for len(l.buckets) >= l.maxEntries {
		front := l.order.Front()
		if front == nil {
			return
		}
		key, _ := front.Value.(string)
		l.removeLocked(key)
	}
}

func (l *Limiter) removeLocked(key string) {
	entry, ok := l.buckets[key]
	if !ok {
		return
	}
	if entry.element != nil {
		l.order.Remove(entry.element)
	}
	delete(l.buckets, key)
}
