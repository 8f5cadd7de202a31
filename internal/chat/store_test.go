package chat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryStoreSessionLifecycle(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if _, err := store.GetSession(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("GetSession error = %v, want ErrSessionNotFound", err)
	}

	session := &ChatSession{ID: "s1", CurrentStepID: "welcome", CurrentStage: 1, IsActive: true}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.CreatedAt.IsZero() || session.UpdatedAt.IsZero() {
		t.Fatal("CreateSession did not stamp timestamps")
	}

	got, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	// The store hands out copies; mutating them must not leak back.
	got.CapturedName = "hacked"
	got.UserResponses["k"] = "v"
	again, _ := store.GetSession(ctx, "s1")
	if again.CapturedName != "" || len(again.UserResponses) != 0 {
		t.Fatal("GetSession returned a shared reference")
	}

	if err := store.EndSession(ctx, "s1", time.Now().UTC()); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	ended, _ := store.GetSession(ctx, "s1")
	if ended.IsActive || ended.EndedAt == nil {
		t.Fatal("EndSession did not deactivate the session")
	}

	if err := store.EndSession(ctx, "missing", time.Now().UTC()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("EndSession error = %v, want ErrSessionNotFound", err)
	}
}

func TestInMemoryStoreAttachLeadClaim(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.CreateSession(ctx, &ChatSession{ID: "s1", IsActive: true}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	claimed, err := store.AttachLead(ctx, "s1", "lead-1")
	if err != nil || !claimed {
		t.Fatalf("first AttachLead = (%v, %v), want (true, nil)", claimed, err)
	}
	claimed, err = store.AttachLead(ctx, "s1", "lead-2")
	if err != nil || claimed {
		t.Fatalf("second AttachLead = (%v, %v), want (false, nil)", claimed, err)
	}

	session, _ := store.GetSession(ctx, "s1")
	if session.LeadID != "lead-1" {
		t.Fatalf("LeadID = %q, want lead-1", session.LeadID)
	}

	if _, err := store.AttachLead(ctx, "missing", "lead-3"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("AttachLead error = %v, want ErrSessionNotFound", err)
	}
}

func TestInMemoryStoreUpdatePreservesLeadPointer(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	if err := store.CreateSession(ctx, &ChatSession{ID: "s1", IsActive: true}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := store.AttachLead(ctx, "s1", "lead-1"); err != nil {
		t.Fatalf("AttachLead: %v", err)
	}

	// An update from a stale copy without the pointer must not clear it.
	stale, _ := store.GetSession(ctx, "s1")
	stale.LeadID = ""
	stale.CapturedName = "Maria"
	if err := store.UpdateSession(ctx, stale); err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}

	session, _ := store.GetSession(ctx, "s1")
	if session.LeadID != "lead-1" {
		t.Fatalf("LeadID = %q, want lead-1", session.LeadID)
	}
	if session.CapturedName != "Maria" {
		t.Fatal("UpdateSession dropped unrelated fields")
	}

	if err := store.UpdateSession(ctx, &ChatSession{ID: "missing"}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("UpdateSession error = %v, want ErrSessionNotFound", err)
	}
}

func TestInMemoryStoreListIdleCandidates(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	old := time.Now().UTC().Add(-10 * time.Minute)

	add := func(id string, mutate func(*ChatSession)) {
		s := &ChatSession{ID: id, IsActive: true, CapturedName: "Maria", CapturedPhone: "11987654321"}
		mutate(s)
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession %s: %v", id, err)
		}
	}

	add("idle-a", func(s *ChatSession) {})
	add("idle-b", func(s *ChatSession) {})
	add("fresh", func(s *ChatSession) {})
	add("no-phone", func(s *ChatSession) { s.CapturedPhone = "" })
	add("has-lead", func(s *ChatSession) {})
	add("ended", func(s *ChatSession) {})

	store.Touch("idle-a", old.Add(-time.Minute))
	store.Touch("idle-b", old)
	store.Touch("no-phone", old)
	store.Touch("has-lead", old)
	store.Touch("ended", old)
	if _, err := store.AttachLead(ctx, "has-lead", "lead-1"); err != nil {
		t.Fatalf("AttachLead: %v", err)
	}
	store.Touch("has-lead", old)
	if err := store.EndSession(ctx, "ended", old); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	store.Touch("ended", old)

	cutoff := time.Now().UTC().Add(-2 * time.Minute)
	got, err := store.ListIdleCandidates(ctx, cutoff, 10)
	if err != nil {
		t.Fatalf("ListIdleCandidates: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	// Oldest first.
	if got[0].ID != "idle-a" || got[1].ID != "idle-b" {
		t.Fatalf("candidates = %s, %s; want idle-a, idle-b", got[0].ID, got[1].ID)
	}

	limited, err := store.ListIdleCandidates(ctx, cutoff, 1)
	if err != nil {
		t.Fatalf("ListIdleCandidates: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "idle-a" {
		t.Fatalf("limited candidates = %v, want just idle-a", limited)
	}
}

func TestInMemoryStoreMessages(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	base := time.Now().UTC()

	for i, content := range []string{"first", "second", "third"} {
		err := store.AppendMessage(ctx, &ChatMessage{
			ID:        content,
			SessionID: "s1",
			Sender:    SenderUser,
			Content:   content,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}
	if err := store.AppendMessage(ctx, &ChatMessage{ID: "other", SessionID: "s2", Sender: SenderBot, Content: "hi"}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	msgs, err := store.ListMessages(ctx, "s1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Content != want {
			t.Fatalf("message %d = %q, want %q", i, msgs[i].Content, want)
		}
	}

	empty, err := store.ListMessages(ctx, "nobody")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("got %d messages for unknown session, want 0", len(empty))
	}
}
