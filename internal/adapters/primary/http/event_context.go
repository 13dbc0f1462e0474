package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ticketmint/event-program/internal/core/ports"
	"github.com/ticketmint/event-program/internal/infrastructure/logging"
)

// eventFromPath stamps the {eventID} route parameter into the request context
// so every log line written while serving the request carries event_id.
// Malformed ids are left for the handler to reject.
func eventFromPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := uuid.Parse(chi.URLParam(r, "eventID")); err == nil {
			r = r.WithContext(logging.WithEventID(r.Context(), id.String()))
		}
		next.ServeHTTP(w, r)
	})
}

// eventFromListing stamps the deployed event's mirror id. Program and ticket
// routes always act on that event.
func eventFromListing(service ports.BookkeepingService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if listing := service.Listing(); listing != nil {
				r = r.WithContext(logging.WithEventID(r.Context(), listing.ID.String()))
			}
			next.ServeHTTP(w, r)
		})
	}
}
