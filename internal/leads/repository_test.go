package leads

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func validRequest() *CreateLeadRequest {
	return &CreateLeadRequest{
		Name:      "Maria Silva",
		Phone:     "11987654321",
		Email:     "maria@example.com",
		Source:    SourceChatbot,
		LeadScore: 80,
		OwnerID:   "admin-1",
		Metadata: Metadata{
			SessionID:      "sess-1",
			Interest:       "bebedouro",
			MarketingOptIn: true,
		},
	}
}

func TestCreateLead(t *testing.T) {
	repo := NewInMemoryRepository()

	lead, err := repo.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.ID == "" {
		t.Fatal("expected generated id")
	}
	if lead.Status != StatusNew {
		t.Fatalf("expected status %s, got %s", StatusNew, lead.Status)
	}
	if lead.Priority != PriorityHigh {
		t.Fatalf("score 80 must map to high priority, got %s", lead.Priority)
	}
	if lead.Metadata.SessionID != "sess-1" {
		t.Fatalf("metadata lost: %+v", lead.Metadata)
	}

	got, err := repo.GetByID(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Maria Silva" {
		t.Fatalf("unexpected name: %s", got.Name)
	}
}

func TestCreateLeadValidation(t *testing.T) {
	repo := NewInMemoryRepository()

	tests := []struct {
		name    string
		mutate  func(*CreateLeadRequest)
		wantErr error
	}{
		{"missing name", func(r *CreateLeadRequest) { r.Name = " " }, ErrMissingName},
		{"missing phone", func(r *CreateLeadRequest) { r.Phone = "" }, ErrMissingPhone},
		{"missing owner", func(r *CreateLeadRequest) { r.OwnerID = "" }, ErrMissingOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			if _, err := repo.Create(context.Background(), req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPriorityForScore(t *testing.T) {
	if got := PriorityForScore(49); got != PriorityMedium {
		t.Fatalf("score 49: got %s", got)
	}
	if got := PriorityForScore(50); got != PriorityHigh {
		t.Fatalf("score 50: got %s", got)
	}
	if got := PriorityForScore(110); got != PriorityHigh {
		t.Fatalf("score 110: got %s", got)
	}
}

func TestListLeads(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		req := validRequest()
		req.Name = fmt.Sprintf("Lead %d", i)
		if _, err := repo.Create(ctx, req); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		time.Sleep(time.Millisecond)
	}

	all, err := repo.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 leads, got %d", len(all))
	}
	if all[0].Name != "Lead 4" {
		t.Fatalf("expected newest-first ordering, got %s first", all[0].Name)
	}

	page, err := repo.List(ctx, ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != 2 || page[0].Name != "Lead 3" {
		t.Fatalf("unexpected page: %+v", page)
	}

	none, err := repo.List(ctx, ListFilter{Status: "GANHO"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty result for unknown status, got %d", len(none))
	}
}

func TestDeleteLead(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	lead, err := repo.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Delete(ctx, lead.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, lead.ID); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := repo.Delete(ctx, lead.ID); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected not found on double delete, got %v", err)
	}
}
