package form

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRegistryPutGetRemove(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	c := NewCreate(nil)
	id := r.Put(c)

	got, ok := r.Get(id)
	if !ok || got != c {
		t.Fatal("registered controller not found")
	}

	r.Remove(id)
	if _, ok := r.Get(id); ok {
		t.Error("removed controller still reachable")
	}
	if err := c.SetField(FieldTitle, "x"); !errors.Is(err, ErrFormClosed) {
		t.Error("Remove should close the controller")
	}

	r.Remove("unknown") // no-op
}

func TestRegistryReapIdle(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	stale := NewCreate(nil)
	stale.lastTouch = time.Now().Add(-time.Hour)
	r.Put(stale)

	fresh := NewCreate(nil)
	r.Put(fresh)

	if n := r.ReapIdle(30 * time.Minute); n != 1 {
		t.Fatalf("reaped %d, want 1", n)
	}
	if _, ok := r.Get(stale.ID()); ok {
		t.Error("stale form survived the reap")
	}
	if _, ok := r.Get(fresh.ID()); !ok {
		t.Error("fresh form should survive")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}
