package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/aqualeads/crm-platform/pkg/logging"
)

func TestListLeadsHandler(t *testing.T) {
	repo := NewInMemoryRepository()
	for i := 0; i < 3; i++ {
		if _, err := repo.Create(context.Background(), validRequest()); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	handler := NewHandler(repo, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/leads?limit=2", nil)
	w := httptest.NewRecorder()
	handler.ListLeads(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp ListLeadsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Leads) != 2 {
		t.Fatalf("expected 2 leads, got %+v", resp)
	}
	if resp.Limit != 2 {
		t.Fatalf("expected echoed limit 2, got %d", resp.Limit)
	}
}

type failingRepository struct{}

func (failingRepository) Create(context.Context, *CreateLeadRequest) (*Lead, error) {
	return nil, errors.New("boom")
}
func (failingRepository) GetByID(context.Context, string) (*Lead, error) {
	return nil, errors.New("boom")
}
func (failingRepository) List(context.Context, ListFilter) ([]*Lead, error) {
	return nil, errors.New("boom")
}
func (failingRepository) Delete(context.Context, string) error {
	return errors.New("boom")
}

func TestListLeadsHandlerRepositoryError(t *testing.T) {
	handler := NewHandler(failingRepository{}, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	w := httptest.NewRecorder()
	handler.ListLeads(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestGetLeadHandler(t *testing.T) {
	repo := NewInMemoryRepository()
	lead, err := repo.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	handler := NewHandler(repo, logging.Default())

	r := chi.NewRouter()
	r.Get("/admin/leads/{leadID}", handler.GetLead)

	req := httptest.NewRequest(http.MethodGet, "/admin/leads/"+lead.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var got Lead
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != lead.ID {
		t.Fatalf("expected lead %s, got %s", lead.ID, got.ID)
	}
}

func TestGetLeadHandlerNotFound(t *testing.T) {
	handler := NewHandler(NewInMemoryRepository(), logging.Default())

	r := chi.NewRouter()
	r.Get("/admin/leads/{leadID}", handler.GetLead)

	req := httptest.NewRequest(http.MethodGet, "/admin/leads/missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}
