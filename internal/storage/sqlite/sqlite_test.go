package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/mistakeknot/agentmail/internal/core"
)

func TestAppendAndRecentEvents(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	c1, err := store.AppendEvent(core.Event{
		Type:        core.EventReservationClaimed,
		Project:     "proj-a",
		Agent:       "Alice",
		PathPattern: "src/**",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	c2, err := store.AppendEvent(core.Event{
		Type:    core.EventReservationReleased,
		Project: "proj-a",
		Agent:   "Alice",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if c2 <= c1 {
		t.Fatalf("cursors must increase: %d then %d", c1, c2)
	}
	if _, err := store.AppendEvent(core.Event{Type: core.EventLockBroken, Project: "proj-b"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := store.RecentEvents("proj-a", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != core.EventReservationReleased {
		t.Fatalf("newest first, got %s", events[0].Type)
	}
	if events[0].ID == "" || events[0].CreatedAt.IsZero() {
		t.Fatal("id and timestamp should be filled in")
	}

	all, err := store.RecentEvents("", 50)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d events, want 3", len(all))
	}
}

func TestRecentEventsLimit(t *testing.T) {
	store, err := NewInMemory()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	for i := 0; i < 5; i++ {
		if _, err := store.AppendEvent(core.Event{Type: core.EventReservationRenewed, Project: "p"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	events, err := store.RecentEvents("p", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Cursor <= events[1].Cursor {
		t.Fatal("events should be newest first")
	}
}
