package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/ticketmint/event-program/internal/adapters/primary/validation"
	"github.com/ticketmint/event-program/internal/auth"
	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/ports"
)

const (
	maxTicketsPerPage = 50
	qrCodeSize        = 256
)

// TicketHandler handles HTTP requests for mirrored tickets
type TicketHandler struct {
	service      ports.BookkeepingService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(service ports.BookkeepingService, errorHandler *ErrorHandler, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "ticket"),
	}
}

// RegisterRoutes sets up the routing for all ticket endpoints.
func (h *TicketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTickets)
	r.Post("/check-in", h.HandleCheckIn)

	r.Route("/{ticketID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTicket)
		r.Get("/qr.png", h.HandleTicketQR)
	})
}

// --- Request/Response DTOs ---

// CheckInRequest identifies the ticket presented at the gate, either by id
// or by the scanned ticket code.
type CheckInRequest struct {
	TicketID string `json:"ticketId"`
	Code     string `json:"code"`
}

// Validate validates the check-in request
func (r *CheckInRequest) Validate() error {
	v := validation.NewValidator()

	v.Custom("ticketId", r.TicketID != "" || r.Code != "", "Either ticketId or code is required")
	v.Custom("code", r.TicketID == "" || r.Code == "", "Provide ticketId or code, not both")
	if r.TicketID != "" {
		v.UUID("ticketId", r.TicketID)
	}
	v.MaxLength("code", r.Code, 128)

	return v.Err()
}

// TicketDTO defines the JSON response for tickets. Code is only shown to
// the holder.
type TicketDTO struct {
	domain.TicketSnapshot
	Code string `json:"code,omitempty"`
}

// toTicketDTO renders ticket for viewer; the code is filled in only when
// viewer holds the ticket.
func toTicketDTO(ticket *domain.Ticket, viewer domain.AccountID, codes ports.BookkeepingService) TicketDTO {
	dto := TicketDTO{TicketSnapshot: domain.NewTicketSnapshot(ticket)}
	if ticket.Owner == viewer {
		dto.Code = codes.TicketCode(ticket)
	}
	return dto
}

func toTicketDTOs(tickets []*domain.Ticket, viewer domain.AccountID, codes ports.BookkeepingService) []TicketDTO {
	dtos := make([]TicketDTO, len(tickets))
	for i, t := range tickets {
		dtos[i] = toTicketDTO(t, viewer, codes)
	}
	return dtos
}

// --- Handlers ---

// HandleListTickets handles GET /tickets
func (h *TicketHandler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	pagination := validation.ParsePagination(r, maxTicketsPerPage)

	tickets, err := h.service.ListTickets(r.Context(), int32(pagination.Limit+1), int32(pagination.Offset))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WritePaginatedSimple(w, toTicketDTOs(tickets, claims.AccountID, h.service), pagination.Limit, pagination.Offset)
}

// HandleGetTicket handles GET /tickets/{ticketID}
func (h *TicketHandler) HandleGetTicket(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.service.GetTicket(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toTicketDTO(ticket, claims.AccountID, h.service))
}

// HandleTicketQR handles GET /tickets/{ticketID}/qr.png. Only the holder
// can render the code.
func (h *TicketHandler) HandleTicketQR(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	ticketID, err := h.parseTicketID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.service.GetTicket(r.Context(), ticketID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if ticket.Owner != claims.AccountID {
		h.errorHandler.Handle(w, r, apperrors.ErrForbidden)
		return
	}

	png, err := qrcode.Encode(h.service.TicketCode(ticket), qrcode.Medium, qrCodeSize)
	if err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewInternalError(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// HandleCheckIn handles POST /tickets/check-in
func (h *TicketHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CheckInRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.CheckInParams{
		ActorID:   claims.AccountID,
		ActorRole: claims.Role,
	}
	if req.Code != "" {
		params.TicketID, params.Digest, err = domain.ParseTicketCode(req.Code)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
	} else {
		params.TicketID = uuid.MustParse(req.TicketID)
	}

	ticket, err := h.service.CheckIn(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, toTicketDTO(ticket, claims.AccountID, h.service))
}

// --- Helpers ---

func (h *TicketHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	return claimsOrUnauthorized(w, r, h.errorHandler)
}

// parseTicketID extracts and validates the ticket ID from the URL
func (h *TicketHandler) parseTicketID(r *http.Request) (uuid.UUID, error) {
	ticketID, err := uuid.Parse(chi.URLParam(r, "ticketID"))
	if err != nil {
		v := validation.NewValidator()
		v.Custom("ticketID", false, "Invalid ticket ID")
		return uuid.Nil, v.Errors()
	}
	return ticketID, nil
}
