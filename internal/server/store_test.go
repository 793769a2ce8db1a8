package server

import (
	"errors"
	"testing"
)

func TestMemoryStoreLoadNotFound(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Load("NOPE"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	game := newTestGame(t, "top-hat")

	saved, err := store.Save(game)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Timestamp == 0 {
		t.Fatal("expected timestamp refreshed on save")
	}

	loaded, err := store.Load(game.Room)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Players["top-hat"].Name != "Ada" {
		t.Fatalf("unexpected player %#v", loaded.Players["top-hat"])
	}

	// The store must not share pointers with callers.
	loaded.Players["top-hat"].Balance = 0
	again, err := store.Load(game.Room)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Players["top-hat"].Balance != 1500 {
		t.Fatal("store leaked a shared pointer")
	}
}

func TestSaveTimestampsStrictlyIncrease(t *testing.T) {
	store := NewMemoryStore()
	game := newTestGame(t, "top-hat")

	// Saves inside the same millisecond must still move the marker.
	last := int64(0)
	for i := 0; i < 10; i++ {
		saved, err := store.Save(game)
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		if saved.Timestamp <= last {
			t.Fatalf("timestamp did not advance: %d after %d", saved.Timestamp, last)
		}
		last = saved.Timestamp
		game = saved
	}
}
