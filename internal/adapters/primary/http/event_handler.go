package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ticketmint/event-program/internal/adapters/primary/validation"
	"github.com/ticketmint/event-program/internal/core/domain"
	"github.com/ticketmint/event-program/internal/core/ports"
)

const maxEventsPerPage = 50

// EventHandler serves the public event mirror.
type EventHandler struct {
	service      ports.BookkeepingService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(service ports.BookkeepingService, errorHandler *ErrorHandler, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "event"),
	}
}

// RegisterRoutes sets up the routing for all event endpoints.
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListEvents)
	r.Route("/{eventID}", func(r chi.Router) {
		r.Use(eventFromPath)
		r.Get("/", h.HandleGetEvent)
		r.Get("/metadata", h.HandleEventMetadata)
	})
}

// EventDTO defines the JSON response for mirrored events.
type EventDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ImageURL       string `json:"imageUrl,omitempty"`
	Venue          string `json:"venue"`
	Date           string `json:"date"`
	TicketPrice    uint64 `json:"ticketPrice"`
	DisplayPrice   string `json:"displayPrice"`
	TicketSupply   uint64 `json:"ticketSupply"`
	AssetID        uint64 `json:"assetId"`
	ProgramAccount string `json:"programAccount"`
	Organizer      string `json:"organizer"`
	CreatedAt      string `json:"createdAt"`
}

func toEventDTO(e *domain.EventListing) EventDTO {
	return EventDTO{
		ID:             e.ID.String(),
		Name:           e.Name,
		Description:    e.Description,
		ImageURL:       e.ImageURL,
		Venue:          e.Venue,
		Date:           e.Date,
		TicketPrice:    e.TicketPrice,
		DisplayPrice:   domain.FormatAmount(e.TicketPrice),
		TicketSupply:   e.TicketSupply,
		AssetID:        uint64(e.AssetID),
		ProgramAccount: e.ProgramAccount.String(),
		Organizer:      e.Organizer.String(),
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// HandleListEvents handles GET /events
func (h *EventHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	pagination := validation.ParsePagination(r, maxEventsPerPage)

	events, err := h.service.ListEvents(r.Context(), ports.ListEventsParams{
		Limit:  int32(pagination.Limit + 1),
		Offset: int32(pagination.Offset),
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	dtos := make([]EventDTO, len(events))
	for i, e := range events {
		dtos[i] = toEventDTO(e)
	}
	WritePaginatedSimple(w, dtos, pagination.Limit, pagination.Offset)
}

// HandleGetEvent handles GET /events/{eventID}
func (h *EventHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := h.parseEventID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteSuccess(w, toEventDTO(event))
}

// HandleEventMetadata handles GET /events/{eventID}/metadata. The document
// is served bare so it can back the ticket asset's metadata URL.
func (h *EventHandler) HandleEventMetadata(w http.ResponseWriter, r *http.Request) {
	eventID, err := h.parseEventID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	metadata, err := h.service.EventMetadata(r.Context(), eventID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, metadata)
}

func (h *EventHandler) parseEventID(r *http.Request) (uuid.UUID, error) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		v := validation.NewValidator()
		v.Custom("eventID", false, "Invalid event ID")
		return uuid.Nil, v.Errors()
	}
	return eventID, nil
}
