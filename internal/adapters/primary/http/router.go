package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/ticketmint/event-program/internal/adapters/primary/http/middleware"
	"github.com/ticketmint/event-program/internal/auth"
	"github.com/ticketmint/event-program/internal/core/ports"
)

// RouterDeps holds everything the HTTP surface is wired from. The rate
// limiters, observer, metrics and websocket handler are optional.
type RouterDeps struct {
	Service        ports.BookkeepingService
	TokenManager   *auth.TokenManager
	Logger         *slog.Logger
	Health         *HealthHandler
	WebSocket      http.Handler
	Metrics        http.Handler
	Observer       mw.HTTPObserver
	GeneralLimiter *mw.RateLimiter
	CallLimiter    *mw.RateLimiter
	AllowedOrigins []string
}

// NewRouter builds the chi router serving the public event mirror and the
// authenticated program and ticket APIs.
func NewRouter(deps RouterDeps) http.Handler {
	errorHandler := NewErrorHandler(deps.Logger)
	programHandler := NewProgramHandler(deps.Service, errorHandler, deps.Logger)
	ticketHandler := NewTicketHandler(deps.Service, errorHandler, deps.Logger)
	eventHandler := NewEventHandler(deps.Service, errorHandler, deps.Logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(deps.Logger, deps.Observer))
	r.Use(mw.RecoveryLogger(deps.Logger))
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", mw.RequestIDHeader},
			ExposedHeaders:   []string{mw.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	if deps.GeneralLimiter != nil {
		r.Use(deps.GeneralLimiter.Middleware)
	}

	// Probe and scrape endpoints stay outside /api/v1
	if deps.Health != nil {
		deps.Health.RegisterRoutes(r)
	}
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/events", eventHandler.RegisterRoutes)

		// Authentication is handled inside the websocket handler
		if deps.WebSocket != nil {
			r.Method(http.MethodGet, "/ws", deps.WebSocket)
		}

		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(deps.TokenManager))
			r.Use(eventFromListing(deps.Service))
			r.Route("/tickets", ticketHandler.RegisterRoutes)
			r.Route("/program", func(r chi.Router) {
				if deps.CallLimiter != nil {
					r.Use(deps.CallLimiter.KeyedMiddleware(mw.CallerKey))
				}
				programHandler.RegisterRoutes(r)
			})
		})
	})

	return r
}
