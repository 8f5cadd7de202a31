package chat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedIdleSession(t *testing.T, store *InMemoryStore, id string) {
	t.Helper()
	err := store.CreateSession(context.Background(), &ChatSession{
		ID:            id,
		CurrentStepID: "capture_email",
		CurrentStage:  6,
		IsActive:      true,
		CapturedName:  "Maria",
		CapturedPhone: "11987654321",
		UserResponses: map[string]string{},
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	store.Touch(id, time.Now().UTC().Add(-10*time.Minute))
}

func TestReclaimerRunOnce(t *testing.T) {
	f := newEngineFixture(t)
	seedIdleSession(t, f.store, "s-idle")

	// A fresh session with the same data must not be swept.
	err := f.store.CreateSession(context.Background(), &ChatSession{
		ID:            "s-fresh",
		CurrentStepID: "capture_email",
		IsActive:      true,
		CapturedName:  "João",
		CapturedPhone: "11912345678",
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	r := NewReclaimer(f.store, f.engine.MaterializeLead, nil)

	found, saved := r.RunOnce(context.Background())
	if found != 1 || saved != 1 {
		t.Fatalf("RunOnce = (%d, %d), want (1, 1)", found, saved)
	}

	session, err := f.store.GetSession(context.Background(), "s-idle")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.LeadID == "" {
		t.Fatal("reclaimed session has no lead attached")
	}

	// A second sweep finds nothing: the lead pointer excludes the session.
	found, saved = r.RunOnce(context.Background())
	if found != 0 || saved != 0 {
		t.Fatalf("second RunOnce = (%d, %d), want (0, 0)", found, saved)
	}
}

func TestReclaimerSkipsIncompleteSessions(t *testing.T) {
	store := NewInMemoryStore()
	err := store.CreateSession(context.Background(), &ChatSession{
		ID:            "s-nophone",
		CurrentStepID: "capture_phone",
		IsActive:      true,
		CapturedName:  "Maria",
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	store.Touch("s-nophone", time.Now().UTC().Add(-10*time.Minute))

	r := NewReclaimer(store, func(context.Context, *ChatSession, string) (bool, error) {
		t.Fatal("materialize must not be called for incomplete sessions")
		return false, nil
	}, nil)

	if found, _ := r.RunOnce(context.Background()); found != 0 {
		t.Fatalf("found = %d, want 0", found)
	}
}

func TestReclaimerSwallowsMaterializeErrors(t *testing.T) {
	store := NewInMemoryStore()
	seedIdleSession(t, store, "s-a")
	seedIdleSession(t, store, "s-b")

	calls := 0
	r := NewReclaimer(store, func(_ context.Context, session *ChatSession, origin string) (bool, error) {
		calls++
		if origin != LeadOriginReclaimer {
			t.Fatalf("origin = %q, want %q", origin, LeadOriginReclaimer)
		}
		if session.ID == "s-a" {
			return false, errors.New("storage down")
		}
		return true, nil
	}, nil)

	found, saved := r.RunOnce(context.Background())
	if found != 2 {
		t.Fatalf("found = %d, want 2", found)
	}
	// One session failed but the sweep carried on to the other.
	if saved != 1 {
		t.Fatalf("saved = %d, want 1", saved)
	}
	if calls != 2 {
		t.Fatalf("materialize calls = %d, want 2", calls)
	}
}

func TestReclaimerStartRunsImmediately(t *testing.T) {
	store := NewInMemoryStore()
	seedIdleSession(t, store, "s-idle")

	swept := make(chan string, 4)
	r := NewReclaimer(store, func(_ context.Context, session *ChatSession, _ string) (bool, error) {
		swept <- session.ID
		return true, nil
	}, nil, WithSweepInterval(time.Hour))

	r.Start()
	defer r.Stop()

	select {
	case id := <-swept:
		if id != "s-idle" {
			t.Fatalf("swept %q, want s-idle", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no sweep ran after Start")
	}
}

func TestReclaimerStartIsIdempotent(t *testing.T) {
	store := NewInMemoryStore()
	r := NewReclaimer(store, func(context.Context, *ChatSession, string) (bool, error) {
		return false, nil
	}, nil, WithSweepInterval(time.Hour))

	r.Start()
	r.Start()
	r.Stop()
	// Stopping an already-stopped reclaimer must not block or panic.
	r.Stop()
}
