package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/reparoja/reparoja-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/reparoja/reparoja-ai-platform/internal/http/middleware"
	"github.com/reparoja/reparoja-ai-platform/internal/messaging"
	"github.com/reparoja/reparoja-ai-platform/internal/webchat"
	"github.com/reparoja/reparoja-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger *logging.Logger

	Messaging     *messaging.Handler
	Conversations *handlers.MessageHandler
	Webchat       *webchat.Handler
	AdminPolicies *handlers.AdminPoliciesHandler
	AdminOrders   *handlers.AdminOrdersHandler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Webhook rate limit, requests per second per IP. Zero disables limiting.
	WebhookRate  float64
	WebhookBurst int
}

// New creates the Chi router with all routes configured.
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

	// Public endpoints: health, webhooks, metrics, chat.
	r.Group(func(public chi.Router) {
		if cfg.Messaging != nil {
			public.Get("/health", cfg.Messaging.HealthCheck)
			webhook := http.HandlerFunc(cfg.Messaging.WhatsAppWebhook)
			if cfg.WebhookRate > 0 {
				public.With(httpmiddleware.RateLimit(cfg.WebhookRate, cfg.WebhookBurst)).
					Post("/webhooks/whatsapp", webhook)
			} else {
				public.Post("/webhooks/whatsapp", webhook)
			}
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Conversations != nil {
			public.Route("/conversations", func(r chi.Router) {
				r.Post("/message", cfg.Conversations.HandleMessage)
				r.Get("/history", cfg.Conversations.HandleHistory)
			})
		}
		if cfg.Webchat != nil {
			public.Route("/chat", func(r chi.Router) {
				r.Get("/ws", cfg.Webchat.HandleWebSocket)
				r.Post("/message", cfg.Webchat.HandleMessage)
				r.Get("/history", cfg.Webchat.HandleHistory)
				r.Get("/widget.js", cfg.Webchat.HandleWidgetJS)
			})
		}
	})

	// Operations endpoints, JWT-protected.
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.AdminPolicies != nil {
				admin.Get("/policies", cfg.AdminPolicies.ListPolicies)
				admin.Put("/policies", cfg.AdminPolicies.UpsertPolicy)
				admin.Patch("/policies/{policyID}/enabled", cfg.AdminPolicies.SetPolicyEnabled)
			}
			if cfg.AdminOrders != nil {
				admin.Get("/orders", cfg.AdminOrders.ListOrders)
				admin.Get("/orders/{orderID}", cfg.AdminOrders.GetOrder)
				admin.Patch("/orders/{orderID}/status", cfg.AdminOrders.SetOrderStatus)
			}
		})
	}

	return r
}
