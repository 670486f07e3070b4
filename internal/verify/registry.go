// Package verify issues and checks short-lived one-time codes that gate
// instructor self-registration.
package verify

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"stellarclub.org/internal/notify"
	"stellarclub.org/internal/obs"
)

const (
	// CodeTTL is the acceptance window measured from issuance.
	CodeTTL = 10 * time.Minute

	defaultMaxEntries = 10_000
)

type entry struct {
	code     string
	issuedAt time.Time
}

// Registry holds outstanding verification codes in process memory. A
// restart invalidates all codes, which is acceptable given their short
// lifetime. All operations are serialized so a code can be consumed at
// most once under concurrent checks.
type Registry struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	notifier   notify.Notifier
	now        func() time.Time
}

// Option configures the registry.
type Option func(*Registry)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(r *Registry) {
		if fn != nil {
			r.now = fn
		}
	}
}

// WithNotifier overrides the default log-based notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(r *Registry) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithMaxEntries bounds the registry size; the oldest entry is evicted
// when the cap is reached.
func WithMaxEntries(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxEntries = n
		}
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries:    make(map[string]entry),
		maxEntries: defaultMaxEntries,
		notifier:   notify.LogNotifier{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Issue stores a fresh 6-digit code under key, replacing any existing one,
// and dispatches it through the notifier. Delivery failure is reported but
// does not revoke the code: it stays valid for the full window.
func (r *Registry) Issue(ctx context.Context, key string) (string, error) {
	key = normalizeKey(key)
	if key == "" {
		return "", fmt.Errorf("verify: key is required")
	}
	code, err := randomCode()
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	if _, exists := r.entries[key]; !exists && len(r.entries) >= r.maxEntries {
		r.evictOldestLocked()
	}
	r.entries[key] = entry{code: code, issuedAt: r.now()}
	r.mu.Unlock()
	obs.ObserveVerification("issue", "ok")

	if err := r.notifier.Send(ctx, notify.VerificationMessage(key, code)); err != nil {
		obs.LogEvent(map[string]any{
			"type":  "notify",
			"kind":  string(notify.KindVerification),
			"error": err.Error(),
		})
		return code, err
	}
	return code, nil
}

// Check reports whether the submitted code matches the live entry for key.
// A successful check consumes the entry; a failed one leaves it in place so
// the caller may retry within the window. Expiry is evaluated lazily here,
// by wall-clock comparison, not by a background sweep.
func (r *Registry) Check(key, submitted string) bool {
	key = normalizeKey(key)
	submitted = strings.TrimSpace(submitted)

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		obs.ObserveVerification("check", "missing")
		return false
	}
	if r.now().Sub(e.issuedAt) > CodeTTL {
		obs.ObserveVerification("check", "expired")
		return false
	}
	if e.code != submitted {
		obs.ObserveVerification("check", "mismatch")
		return false
	}
	delete(r.entries, key)
	obs.ObserveVerification("check", "ok")
	return true
}

// Drop removes the entry for key unconditionally. Registration calls this
// once its code gate has passed so the code cannot be replayed.
func (r *Registry) Drop(key string) {
	key = normalizeKey(key)
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

// Len reports the number of outstanding entries, live or stale.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// evictOldestLocked drops the entry with the earliest issuance time.
func (r *Registry) evictOldestLocked() {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, e := range r.entries {
		if oldestKey == "" || e.issuedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.issuedAt
		}
	}
	if oldestKey != "" {
		delete(r.entries, oldestKey)
	}
}

func normalizeKey(key string) string {
	return strings.TrimSpace(strings.ToLower(key))
}

// randomCode draws a uniform 6-digit numeric code.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("verify: generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
