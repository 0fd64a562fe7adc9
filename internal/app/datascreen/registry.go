package datascreen

import (
	"sync"
	"time"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"go.uber.org/zap"
)

// Registry keeps one Screen per (browser session, category) so view state
// and selection survive between requests. Idle screens are evicted by a
// background job.
type Registry struct {
	base Config

	mu      sync.Mutex
	entries map[registryKey]*entry
}

type registryKey struct {
	session  string
	category models.Category
}

type entry struct {
	screen   *Screen
	lastUsed time.Time
}

// NewRegistry creates an empty registry. base supplies everything but the
// category and credentials of the screens it creates.
func NewRegistry(base Config) *Registry {
	return &Registry{
		base:    base.withDefaults(),
		entries: map[registryKey]*entry{},
	}
}

// Screen returns the session's screen for category, creating it on first
// use with creds as the acting user. Credentials are fixed when the
// screen is created.
func (r *Registry) Screen(session string, category models.Category, creds datasource.Credentials) *Screen {
	key := registryKey{session: session, category: category}
	now := r.base.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		e.lastUsed = now
		return e.screen
	}

	cfg := r.base
	cfg.Category = category
	cfg.Credentials = creds
	sc := New(cfg)
	r.entries[key] = &entry{screen: sc, lastUsed: now}
	r.base.Metrics.SetScreens(len(r.entries))
	r.base.Logger.Debug("screen created", zap.String("category", string(category)), zap.Int("screens", len(r.entries)))
	return sc
}

// Len returns the number of live screens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// EvictIdle drops screens unused for longer than ttl and returns how many
// were dropped.
func (r *Registry) EvictIdle(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, e := range r.entries {
		if now.Sub(e.lastUsed) > ttl {
			delete(r.entries, k)
			n++
		}
	}
	if n > 0 {
		r.base.Metrics.SetScreens(len(r.entries))
	}
	return n
}

// DropSession removes every screen of a session, e.g. on sign-out.
func (r *Registry) DropSession(session string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k := range r.entries {
		if k.session == session {
			delete(r.entries, k)
			n++
		}
	}
	if n > 0 {
		r.base.Metrics.SetScreens(len(r.entries))
	}
	return n
}
