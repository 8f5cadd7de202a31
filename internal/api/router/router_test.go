package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aqualeads/crm-platform/internal/chat"
	"github.com/aqualeads/crm-platform/internal/company"
	"github.com/aqualeads/crm-platform/internal/flow"
	"github.com/aqualeads/crm-platform/internal/leads"
	"github.com/aqualeads/crm-platform/internal/webchat"
	"github.com/aqualeads/crm-platform/pkg/logging"
)

func newTestRouter(t *testing.T) (http.Handler, *leads.InMemoryRepository) {
	t.Helper()

	logger := logging.Default()
	store := chat.NewInMemoryStore()
	leadRepo := leads.NewInMemoryRepository()
	cfgStore := company.NewInMemoryStore(&company.Config{
		CompanyName: "AquaLeads",
		ProductList: "bebedouros e filtros",
		OwnerUserID: "admin-1",
	})
	engine := chat.NewEngine(flow.Default(), store, store, cfgStore, leadRepo, logger)

	cfg := &Config{
		Logger:         logger,
		ChatHandler:    chat.NewHandler(engine, logger),
		WebchatHandler: webchat.NewHandler(engine, logger),
		LeadsHandler:   leads.NewHandler(leadRepo, logger),
	}
	return New(cfg), leadRepo
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterChatbotSessionFlow(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/chatbot/sessions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("start session status = %d, want 201", rr.Code)
	}
	var start chat.StartResult
	if err := json.NewDecoder(rr.Body).Decode(&start); err != nil {
		t.Fatalf("failed to decode start response: %v", err)
	}

	body := `{"message":"🛍️ Conhecer nossos produtos","option_id":"opt1"}`
	req = httptest.NewRequest(http.MethodPost, "/chatbot/sessions/"+start.Session.ID+"/messages", strings.NewReader(body))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("process message status = %d, want 200", rr.Code)
	}
	var turn chat.TurnResult
	if err := json.NewDecoder(rr.Body).Decode(&turn); err != nil {
		t.Fatalf("failed to decode turn response: %v", err)
	}
	if turn.Session.CurrentStepID != "show_products" {
		t.Fatalf("current step = %q, want show_products", turn.Session.CurrentStepID)
	}

	req = httptest.NewRequest(http.MethodGet, "/chatbot/sessions/"+start.Session.ID+"/history", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("history status = %d, want 200", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/chatbot/sessions/"+start.Session.ID+"/end", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("end status = %d, want 204", rr.Code)
	}
}

func TestRouterAdminLeads(t *testing.T) {
	router, repo := newTestRouter(t)

	lead, err := repo.Create(httptest.NewRequest(http.MethodGet, "/", nil).Context(), &leads.CreateLeadRequest{
		Name:    "Maria Silva",
		Phone:   "11987654321",
		Source:  leads.SourceChatbot,
		OwnerID: "admin-1",
	})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/leads/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Maria Silva") {
		t.Fatalf("list body missing lead: %s", rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/leads/"+lead.ID, nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rr.Code)
	}
}

func TestRouterWidgetJS(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/widget.js", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("widget status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/javascript" {
		t.Fatalf("content type = %q", got)
	}
}
