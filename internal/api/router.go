// Package api is the HTTP surface of the hub: chat history and send, the
// booking lifecycle, health, metrics and the websocket upgrade.
package api

import (
	"petbuddy-realtime/internal/booking"
	"petbuddy-realtime/internal/chat"
	"petbuddy-realtime/internal/identity"
	"petbuddy-realtime/internal/metrics"
	"petbuddy-realtime/internal/realtime"
	"petbuddy-realtime/internal/security"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Dependencies are the components the handlers call into.
type Dependencies struct {
	Hub         *realtime.Hub
	Relay       *chat.Relay
	Bookings    *booking.Service
	Resolver    identity.Resolver
	Validator   *security.InputValidator
	Metrics     *metrics.Metrics
	CORSOrigins []string

	// ConfigSummary, when set, is reported by /healthz. It must not leak secrets.
	ConfigSummary func() map[string]interface{}
}

type handlers struct {
	Dependencies
}

// NewRouter builds the HTTP router.
func NewRouter(deps Dependencies) *chi.Mux {
	h := &handlers{Dependencies: deps}
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.health)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}
	if deps.Hub != nil {
		r.Handle("/ws", deps.Hub)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(deps.Resolver))

		r.Get("/api/chat/{ticketId}", h.chatHistory)
		r.Post("/api/chat/send", h.chatSend)

		r.Post("/api/bookings", h.createBooking)
		r.Get("/api/bookings", h.listBookings)
		r.Get("/api/bookings/{id}", h.getBooking)
		r.Patch("/api/bookings/{id}/{action}", h.transitionBooking)

		// เส้นทางเดิมของฝั่ง pethouse
		r.Patch("/api/pethouse/booking/{id}/{action}", h.pethouseBookingAction)
	})

	return r
}
