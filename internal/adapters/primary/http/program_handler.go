package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/ticketmint/event-program/internal/adapters/primary/http/middleware"
	"github.com/ticketmint/event-program/internal/adapters/primary/validation"
	"github.com/ticketmint/event-program/internal/auth"
	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/ports"
)

// ProgramHandler exposes the event program's method surface. The caller of
// every call is the authenticated account.
type ProgramHandler struct {
	service      ports.BookkeepingService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewProgramHandler creates a new program handler
func NewProgramHandler(service ports.BookkeepingService, errorHandler *ErrorHandler, logger *slog.Logger) *ProgramHandler {
	return &ProgramHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "program"),
	}
}

// RegisterRoutes sets up the routing for all program endpoints.
func (h *ProgramHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleStatus)
	r.Get("/participants/{account}", h.HandleParticipant)

	r.Post("/fund", h.HandleFund)
	r.Post("/mint", h.HandleMint)
	r.Post("/purchase", h.HandlePurchase)
	r.Post("/listing", h.HandleListForSale)
	r.Delete("/listing", h.HandleCancelListing)
	r.Post("/resale", h.HandleResale)
	r.Post("/withdraw", h.HandleWithdraw)
}

// --- Request/Response DTOs ---

// AmountRequest carries a payment amount in micro-units.
type AmountRequest struct {
	Amount uint64 `json:"amount"`
}

func (r *AmountRequest) Validate() error {
	return validation.NewValidator().Positive("amount", r.Amount).Err()
}

// ListForSaleRequest carries the asking price of a listing.
type ListForSaleRequest struct {
	Price uint64 `json:"price"`
}

func (r *ListForSaleRequest) Validate() error {
	return validation.NewValidator().Positive("price", r.Price).Err()
}

// ResaleRequest defines the expected JSON body for buying a listed ticket
type ResaleRequest struct {
	Seller string `json:"seller"`
	Amount uint64 `json:"amount"`
}

func (r *ResaleRequest) Validate() error {
	return validation.NewValidator().
		Required("seller", r.Seller).
		Account("seller", r.Seller).
		Positive("amount", r.Amount).
		Err()
}

// EventRecordDTO is the JSON form of the program's global state.
type EventRecordDTO struct {
	ProgramAccount string `json:"programAccount"`
	Organizer      string `json:"organizer"`
	Name           string `json:"name"`
	Date           string `json:"date"`
	Venue          string `json:"venue"`
	TicketPrice    uint64 `json:"ticketPrice"`
	TicketSupply   uint64 `json:"ticketSupply"`
	TicketsSold    uint64 `json:"ticketsSold"`
	TicketAsset    uint64 `json:"ticketAsset"`
	Minted         bool   `json:"minted"`
	Balance        uint64 `json:"balance"`
	DisplayBalance string `json:"displayBalance"`
}

func toEventRecordDTO(status ports.ProgramStatus) EventRecordDTO {
	e := status.Event
	return EventRecordDTO{
		ProgramAccount: status.Account.String(),
		Organizer:      e.Organizer.String(),
		Name:           e.Name,
		Date:           e.Date,
		Venue:          e.Venue,
		TicketPrice:    e.TicketPrice,
		TicketSupply:   e.TicketSupply,
		TicketsSold:    e.TicketsSold,
		TicketAsset:    uint64(e.TicketAsset),
		Minted:         e.Minted,
		Balance:        status.Balance,
		DisplayBalance: domain.FormatAmount(status.Balance),
	}
}

// ParticipantDTO is the JSON form of a participant record.
type ParticipantDTO struct {
	Account       string `json:"account"`
	State         string `json:"state"`
	Owned         bool   `json:"owned"`
	Used          bool   `json:"used"`
	ListedForSale bool   `json:"listedForSale"`
	ListedPrice   uint64 `json:"listedPrice"`
}

func toParticipantDTO(account domain.AccountID, p domain.ParticipantRecord) ParticipantDTO {
	return ParticipantDTO{
		Account:       account.String(),
		State:         string(p.State()),
		Owned:         p.Owned,
		Used:          p.Used,
		ListedForSale: p.ListedForSale,
		ListedPrice:   p.ListedPrice,
	}
}

// ResaleDTO is the JSON response for a completed resale.
type ResaleDTO struct {
	Ticket       TicketDTO `json:"ticket"`
	Amount       uint64    `json:"amount"`
	Royalty      uint64    `json:"royalty"`
	SellerPayout uint64    `json:"sellerPayout"`
}

// --- Handlers ---

// HandleStatus handles GET /program
func (h *ProgramHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteSuccess(w, toEventRecordDTO(status))
}

// HandleParticipant handles GET /program/participants/{account}. "me" names the caller.
func (h *ProgramHandler) HandleParticipant(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	raw := chi.URLParam(r, "account")
	account := domain.AccountID(raw)
	if raw == "me" {
		account = claims.AccountID
	} else if err := validation.NewValidator().Account("account", raw).Err(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	record, found := h.service.Participant(r.Context(), account)
	if !found {
		WriteSuccess(w, ParticipantDTO{Account: account.String(), State: string(domain.TicketUnissued)})
		return
	}
	WriteSuccess(w, toParticipantDTO(account, record))
}

// HandleFund handles POST /program/fund
func (h *ProgramHandler) HandleFund(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}
	req, err := validation.DecodeAndValidate[AmountRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.service.Fund(r.Context(), claims.AccountID, req.Amount); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteNoContent(w)
}

// HandleMint handles POST /program/mint
func (h *ProgramHandler) HandleMint(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	asset, err := h.service.MintTickets(r.Context(), claims.AccountID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "tickets minted", "asset_id", uint64(asset))
	WriteCreated(w, map[string]uint64{"assetId": uint64(asset)})
}

// HandlePurchase handles POST /program/purchase
func (h *ProgramHandler) HandlePurchase(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}
	req, err := validation.DecodeAndValidate[AmountRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	ticket, err := h.service.Purchase(r.Context(), ports.PurchaseParams{
		Buyer:  claims.AccountID,
		Amount: req.Amount,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteCreated(w, toTicketDTO(ticket, claims.AccountID, h.service))
}

// HandleListForSale handles POST /program/listing
func (h *ProgramHandler) HandleListForSale(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}
	req, err := validation.DecodeAndValidate[ListForSaleRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.service.ListForSale(r.Context(), claims.AccountID, req.Price); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteNoContent(w)
}

// HandleCancelListing handles DELETE /program/listing
func (h *ProgramHandler) HandleCancelListing(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	if err := h.service.CancelListing(r.Context(), claims.AccountID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteNoContent(w)
}

// HandleResale handles POST /program/resale
func (h *ProgramHandler) HandleResale(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}
	req, err := validation.DecodeAndValidate[ResaleRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	result, err := h.service.Resale(r.Context(), ports.ResaleParams{
		Buyer:  claims.AccountID,
		Seller: domain.AccountID(req.Seller),
		Amount: req.Amount,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteSuccess(w, ResaleDTO{
		Ticket:       toTicketDTO(result.Ticket, claims.AccountID, h.service),
		Amount:       result.Split.Amount,
		Royalty:      result.Split.Royalty,
		SellerPayout: result.Split.SellerPayout,
	})
}

// HandleWithdraw handles POST /program/withdraw
func (h *ProgramHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	amount, err := h.service.Withdraw(r.Context(), claims.AccountID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	WriteSuccess(w, map[string]any{
		"amount":        amount,
		"displayAmount": domain.FormatAmount(amount),
	})
}

func (h *ProgramHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	return claimsOrUnauthorized(w, r, h.errorHandler)
}

// claimsOrUnauthorized returns the caller's claims or writes a 401.
func claimsOrUnauthorized(w http.ResponseWriter, r *http.Request, errorHandler *ErrorHandler) (*auth.Claims, bool) {
	claims, ok := mw.ClaimsFromContext(r.Context())
	if !ok {
		errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("Authentication required"))
		return nil, false
	}
	return claims, true
}
