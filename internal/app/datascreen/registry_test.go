package datascreen

import (
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratadata/internal/app/datasource"
	"github.com/dalemusser/stratadata/internal/app/system/metrics"
	"github.com/dalemusser/stratadata/internal/domain/models"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry() (*Registry, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	reg := NewRegistry(Config{
		Backend: newFakeBackend(),
		Metrics: metrics.New(),
		Logger:  zap.NewNop(),
		Now:     clock.Now,
	})
	return reg, clock
}

func TestRegistry_Screen(t *testing.T) {
	reg, _ := newTestRegistry()
	creds := datasource.StaticCredentials{ID: "u-1"}

	a := reg.Screen("sess-1", models.CategoryEconomic, creds)
	if a != reg.Screen("sess-1", models.CategoryEconomic, creds) {
		t.Error("same session and category should return the same screen")
	}
	if a == reg.Screen("sess-1", models.CategoryDemographic, creds) {
		t.Error("another category should get its own screen")
	}
	if a == reg.Screen("sess-2", models.CategoryEconomic, creds) {
		t.Error("another session should get its own screen")
	}
	if reg.Len() != 3 {
		t.Errorf("Len() = %d, want 3", reg.Len())
	}
	if a.Category() != models.CategoryEconomic {
		t.Errorf("Category() = %s", a.Category())
	}
	if a.cfg.Credentials != creds {
		t.Error("screen should carry the session's credentials")
	}
}

func TestRegistry_EvictIdle(t *testing.T) {
	reg, clock := newTestRegistry()
	creds := datasource.StaticCredentials{ID: "u-1"}

	old := reg.Screen("sess-1", models.CategoryEconomic, creds)
	clock.Advance(20 * time.Minute)
	reg.Screen("sess-2", models.CategoryEconomic, creds)
	clock.Advance(15 * time.Minute)

	if n := reg.EvictIdle(clock.Now(), 30*time.Minute); n != 1 {
		t.Errorf("EvictIdle() = %d, want 1", n)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
	if reg.Screen("sess-1", models.CategoryEconomic, creds) == old {
		t.Error("evicted screen should be recreated, not reused")
	}
}

func TestRegistry_UseKeepsAlive(t *testing.T) {
	reg, clock := newTestRegistry()
	creds := datasource.StaticCredentials{ID: "u-1"}

	reg.Screen("sess-1", models.CategoryEconomic, creds)
	clock.Advance(25 * time.Minute)
	reg.Screen("sess-1", models.CategoryEconomic, creds)
	clock.Advance(25 * time.Minute)

	if n := reg.EvictIdle(clock.Now(), 30*time.Minute); n != 0 {
		t.Errorf("EvictIdle() = %d, a recently used screen should stay", n)
	}
}

func TestRegistry_DropSession(t *testing.T) {
	reg, _ := newTestRegistry()
	creds := datasource.StaticCredentials{ID: "u-1"}

	reg.Screen("sess-1", models.CategoryEconomic, creds)
	reg.Screen("sess-1", models.CategoryEnvironmental, creds)
	reg.Screen("sess-2", models.CategoryEconomic, creds)

	if n := reg.DropSession("sess-1"); n != 2 {
		t.Errorf("DropSession() = %d, want 2", n)
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", reg.Len())
	}
}
