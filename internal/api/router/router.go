// Package router assembles the HTTP surface: chatbot endpoints, the widget,
// the admin lead listing and operational endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aqualeads/crm-platform/internal/chat"
	httpmiddleware "github.com/aqualeads/crm-platform/internal/http/middleware"
	"github.com/aqualeads/crm-platform/internal/leads"
	"github.com/aqualeads/crm-platform/internal/webchat"
	"github.com/aqualeads/crm-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *chat.Handler
	WebchatHandler     *webchat.Handler
	LeadsHandler       *leads.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", cfg.ChatHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/chatbot", func(r chi.Router) {
		r.Post("/sessions", cfg.ChatHandler.StartSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/messages", cfg.ChatHandler.ProcessMessage)
			r.Get("/history", cfg.ChatHandler.SessionHistory)
			r.Post("/end", cfg.ChatHandler.EndSession)
		})

		if cfg.WebchatHandler != nil {
			r.Get("/ws", cfg.WebchatHandler.HandleWebSocket)
			r.Post("/widget/message", cfg.WebchatHandler.HandleMessage)
		}
	})

	if cfg.WebchatHandler != nil {
		r.Get("/widget.js", cfg.WebchatHandler.HandleWidgetJS)
	}

	if cfg.LeadsHandler != nil {
		r.Route("/admin/leads", func(r chi.Router) {
			r.Get("/", cfg.LeadsHandler.ListLeads)
			r.Get("/{leadID}", cfg.LeadsHandler.GetLead)
		})
	}

	return r
}
