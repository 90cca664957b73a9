package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/staydesk-support/internal/http/middleware"
	"github.com/wolfman30/staydesk-support/internal/intake"
	"github.com/wolfman30/staydesk-support/internal/webchat"
	"github.com/wolfman30/staydesk-support/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	IntakeHandler  *intake.Handler
	WebChat        *webchat.Handler
	MetricsHandler http.Handler

	// CORSAllowedOrigins are the host sites embedding the chat widget. CORS
	// applies to /v1 and /chat only.
	CORSAllowedOrigins []string

	// TurnLimiter throttles turns per conversation id (optional).
	TurnLimiter *httpmiddleware.RateLimiter

	// HealthCheck probes downstream dependencies (optional).
	HealthCheck func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthCheck))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.IntakeHandler != nil {
		r.Route("/v1", func(api chi.Router) {
			api.Use(httpmiddleware.CORS(httpmiddleware.CORSPolicy{
				Origins: cfg.CORSAllowedOrigins,
				Methods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			}))
			var turnMiddleware []func(http.Handler) http.Handler
			if cfg.TurnLimiter != nil {
				turnMiddleware = append(turnMiddleware,
					httpmiddleware.RateLimit(cfg.TurnLimiter, httpmiddleware.ByURLParam("conversationID")))
			}
			cfg.IntakeHandler.Routes(api, turnMiddleware...)
		})
	}

	if cfg.WebChat != nil {
		r.Route("/chat", func(chat chi.Router) {
			chat.Use(httpmiddleware.CORS(httpmiddleware.CORSPolicy{
				Origins: cfg.CORSAllowedOrigins,
				Methods: []string{http.MethodGet, http.MethodPost},
			}))
			cfg.WebChat.Routes(chat)
		})
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body = map[string]string{"status": "degraded", "error": err.Error()}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
