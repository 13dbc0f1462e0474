package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ticketmint/event-program/internal/core/domain"
	apperrors "github.com/ticketmint/event-program/internal/core/errors"
	"github.com/ticketmint/event-program/internal/core/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Metrics receives bookkeeping observations.
type Metrics interface {
	CacheLookup(hit bool)
	SetProgramBalance(balance uint64)
}

type nopMetrics struct{}

func (nopMetrics) CacheLookup(bool)         {}
func (nopMetrics) SetProgramBalance(uint64) {}

// BookkeepingDeps are the collaborators of the bookkeeping service.
type BookkeepingDeps struct {
	Program     ports.EventProgram
	Events      ports.EventRepository
	Tickets     ports.TicketRepository
	Cache       ports.TicketCache
	Notifier    ports.Notifier
	Broadcaster ports.EventBroadcaster
	Signer      *domain.TicketSigner
	Metrics     Metrics
	Logger      *slog.Logger
	Now         func() time.Time
}

// BookkeepingService calls the event program and mirrors every committed
// result into the relational index. The program is authoritative: a mirror
// write that fails after a committed call is logged, never rolled back.
type BookkeepingService struct {
	program     ports.EventProgram
	events      ports.EventRepository
	tickets     ports.TicketRepository
	cache       ports.TicketCache
	notifier    ports.Notifier
	broadcaster ports.EventBroadcaster
	signer      *domain.TicketSigner
	metrics     Metrics
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.RWMutex
	listing *domain.EventListing

	wg sync.WaitGroup
}

var _ ports.BookkeepingService = (*BookkeepingService)(nil)

// NewBookkeepingService creates a new bookkeeping service
func NewBookkeepingService(deps BookkeepingDeps) *BookkeepingService {
	s := &BookkeepingService{
		program:     deps.Program,
		events:      deps.Events,
		tickets:     deps.Tickets,
		cache:       deps.Cache,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		signer:      deps.Signer,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         deps.Now,
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "bookkeeping")
	if s.now == nil {
		s.now = time.Now
	}
	if s.signer == nil {
		s.signer = ephemeralSigner()
		s.logger.Warn("no ticket code key configured; codes will not survive a restart")
	}
	return s
}

func ephemeralSigner() *domain.TicketSigner {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	signer, _ := domain.NewTicketSigner(key)
	return signer
}

// TicketCode returns the scannable code of ticket for its current owner.
func (s *BookkeepingService) TicketCode(ticket *domain.Ticket) string {
	return s.signer.Code(ticket)
}

// EnsureListing returns the mirror row of the deployed program, creating it on
// first start and catching up the asset id if the mint was never mirrored.
func (s *BookkeepingService) EnsureListing(ctx context.Context, params ports.RegisterEventParams) (*domain.EventListing, error) {
	account := s.program.ProgramAccount()
	record := s.program.Event()

	listing, err := s.events.GetByProgramAccount(ctx, account)
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		listing, err = s.events.Create(ctx, &domain.EventListing{
			ID:             uuid.New(),
			Name:           record.Name,
			Description:    params.Description,
			ImageURL:       params.ImageURL,
			Venue:          record.Venue,
			Date:           record.Date,
			TicketPrice:    record.TicketPrice,
			TicketSupply:   record.TicketSupply,
			AssetID:        record.TicketAsset,
			ProgramAccount: account,
			Organizer:      record.Organizer,
		})
		if err != nil {
			return nil, fmt.Errorf("create event listing: %w", err)
		}
		s.logger.InfoContext(ctx, "event listing created", "event_id", listing.ID.String())
	case err != nil:
		return nil, err
	case record.Minted && listing.AssetID != record.TicketAsset:
		if err := s.events.UpdateAsset(ctx, listing.ID, record.TicketAsset); err != nil {
			return nil, fmt.Errorf("sync ticket asset: %w", err)
		}
		listing.AssetID = record.TicketAsset
	}

	s.mu.Lock()
	s.listing = listing
	s.mu.Unlock()
	return listing, nil
}

// Listing returns a copy of the mirror row of the deployed program, or nil
// before EnsureListing has run.
func (s *BookkeepingService) Listing() *domain.EventListing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listing == nil {
		return nil
	}
	listing := *s.listing
	return &listing
}

// Status returns the program's record and balance.
func (s *BookkeepingService) Status(ctx context.Context) (ports.ProgramStatus, error) {
	balance, err := s.program.Balance(ctx)
	if err != nil {
		return ports.ProgramStatus{}, fmt.Errorf("read program balance: %w", err)
	}
	return ports.ProgramStatus{
		Account: s.program.ProgramAccount(),
		Event:   s.program.Event(),
		Balance: balance,
	}, nil
}

func (s *BookkeepingService) requireListing() (*domain.EventListing, error) {
	listing := s.Listing()
	if listing == nil {
		return nil, apperrors.ErrEventNotFound
	}
	return listing, nil
}

// ListEvents returns mirrored events, newest first.
func (s *BookkeepingService) ListEvents(ctx context.Context, params ports.ListEventsParams) ([]*domain.EventListing, error) {
	params.Limit, params.Offset = normalizePage(params.Limit, params.Offset)
	return s.events.List(ctx, params)
}

// GetEvent returns one mirrored event.
func (s *BookkeepingService) GetEvent(ctx context.Context, id uuid.UUID) (*domain.EventListing, error) {
	return s.events.GetByID(ctx, id)
}

// EventMetadata returns the display document of an event.
func (s *BookkeepingService) EventMetadata(ctx context.Context, id uuid.UUID) (domain.EventMetadata, error) {
	listing, err := s.events.GetByID(ctx, id)
	if err != nil {
		return domain.EventMetadata{}, err
	}
	return domain.NewEventMetadata(listing), nil
}

// Fund pays amount from funder into the program account.
func (s *BookkeepingService) Fund(ctx context.Context, funder domain.AccountID, amount uint64) error {
	if err := s.program.Fund(ctx, s.payment(funder, amount)); err != nil {
		return err
	}
	s.recordBalance(ctx)
	return nil
}

// MintTickets mints the ticket asset and mirrors its id.
func (s *BookkeepingService) MintTickets(ctx context.Context, caller domain.AccountID) (domain.AssetID, error) {
	asset, err := s.program.MintTickets(ctx, caller)
	if err != nil {
		return 0, err
	}
	s.recordBalance(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listing != nil {
		if err := s.events.UpdateAsset(ctx, s.listing.ID, asset); err != nil {
			s.mirrorFailed(ctx, "mint_tickets", err)
		} else {
			s.listing.AssetID = asset
		}
	}
	return asset, nil
}

// Purchase buys a primary ticket for the buyer and records it in the mirror.
func (s *BookkeepingService) Purchase(ctx context.Context, params ports.PurchaseParams) (*domain.Ticket, error) {
	listing, err := s.requireListing()
	if err != nil {
		return nil, err
	}

	if err := s.program.BuyTicket(ctx, params.Buyer, s.payment(params.Buyer, params.Amount)); err != nil {
		return nil, err
	}
	s.recordBalance(ctx)

	record := s.program.Event()
	ticket := domain.NewTicket(listing.ID, params.Buyer, record.TicketAsset, params.Amount, domain.SourcePrimary)
	ticket.CreatedAt = s.now().UTC()

	created, err := s.tickets.Create(ctx, ticket)
	if err != nil {
		s.mirrorFailed(ctx, "buy_ticket", err)
		created = ticket
	}

	s.broadcast(domain.FeedTicketPurchased, listing.ID, domain.NewTicketSnapshot(created))
	s.notify(ports.NotificationParams{
		Recipient: params.Buyer,
		Subject:   fmt.Sprintf("Your ticket for %s", listing.Name),
		Message:   fmt.Sprintf("Ticket purchased for %s.", domain.FormatAmount(params.Amount)),
		TicketID:  created.ID,
	})
	return created, nil
}

// ListForSale offers the caller's ticket on the resale market.
func (s *BookkeepingService) ListForSale(ctx context.Context, caller domain.AccountID, price uint64) error {
	if err := s.program.ListForSale(ctx, caller, price); err != nil {
		return err
	}
	if listing := s.Listing(); listing != nil {
		s.broadcast(domain.FeedTicketListed, listing.ID, map[string]any{
			"seller": caller.String(),
			"price":  price,
		})
	}
	return nil
}

// CancelListing withdraws the caller's ticket from the resale market.
func (s *BookkeepingService) CancelListing(ctx context.Context, caller domain.AccountID) error {
	return s.program.CancelListing(ctx, caller)
}

// Resale buys a listed ticket and moves its mirror row to the buyer.
func (s *BookkeepingService) Resale(ctx context.Context, params ports.ResaleParams) (*ports.ResaleResult, error) {
	listing, err := s.requireListing()
	if err != nil {
		return nil, err
	}

	split, err := s.program.BuyResale(ctx, params.Buyer, s.payment(params.Buyer, params.Amount), params.Seller)
	if err != nil {
		return nil, err
	}
	s.recordBalance(ctx)

	ticket := s.transferMirror(ctx, listing, params)

	s.broadcast(domain.FeedTicketResold, listing.ID, domain.NewResaleSnapshot(params.Seller, params.Buyer, split))
	s.notify(ports.NotificationParams{
		Recipient: params.Seller,
		Subject:   fmt.Sprintf("Your ticket for %s was resold", listing.Name),
		Message: fmt.Sprintf("You received %s after a %s royalty.",
			domain.FormatAmount(split.SellerPayout), domain.FormatAmount(split.Royalty)),
		TicketID: ticket.ID,
	})
	s.notify(ports.NotificationParams{
		Recipient: params.Buyer,
		Subject:   fmt.Sprintf("Your ticket for %s", listing.Name),
		Message:   fmt.Sprintf("Resale ticket purchased for %s.", domain.FormatAmount(split.Amount)),
		TicketID:  ticket.ID,
	})

	return &ports.ResaleResult{Ticket: ticket, Split: split}, nil
}

func (s *BookkeepingService) transferMirror(ctx context.Context, listing *domain.EventListing, params ports.ResaleParams) *domain.Ticket {
	ticket, err := s.tickets.GetByOwner(ctx, listing.ID, params.Seller)
	if errors.Is(err, apperrors.ErrTicketNotFound) {
		fresh := domain.NewTicket(listing.ID, params.Buyer, s.program.Event().TicketAsset, params.Amount, domain.SourceResale)
		fresh.CreatedAt = s.now().UTC()
		created, err := s.tickets.Create(ctx, fresh)
		if err != nil {
			s.mirrorFailed(ctx, "buy_resale", err)
			return fresh
		}
		return created
	}
	if err != nil {
		s.mirrorFailed(ctx, "buy_resale", err)
		return domain.NewTicket(listing.ID, params.Buyer, s.program.Event().TicketAsset, params.Amount, domain.SourceResale)
	}

	now := s.now().UTC()
	ticket.Owner = params.Buyer
	ticket.PurchasePrice = params.Amount
	ticket.Source = domain.SourceResale
	ticket.UpdatedAt = &now

	updated, err := s.tickets.Update(ctx, ticket)
	if err != nil {
		s.mirrorFailed(ctx, "buy_resale", err)
		updated = ticket
	}
	s.invalidate(ctx, ticket.ID)
	return updated
}

// Withdraw sweeps the program balance above its reserve to the organizer.
func (s *BookkeepingService) Withdraw(ctx context.Context, caller domain.AccountID) (uint64, error) {
	amount, err := s.program.Withdraw(ctx, caller)
	if err != nil {
		return 0, err
	}
	s.recordBalance(ctx)
	return amount, nil
}

// GetTicket returns a mirrored ticket, served from cache when possible.
func (s *BookkeepingService) GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	cached, hit, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "ticket cache read failed", "ticket_id", id.String(), "error", err)
	}
	s.metrics.CacheLookup(hit)
	if hit {
		return cached, nil
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, ticket); err != nil {
		s.logger.WarnContext(ctx, "ticket cache write failed", "ticket_id", id.String(), "error", err)
	}
	return ticket, nil
}

// ListTickets returns the mirrored tickets of the deployed event.
func (s *BookkeepingService) ListTickets(ctx context.Context, limit, offset int32) ([]*domain.Ticket, error) {
	listing, err := s.requireListing()
	if err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)
	return s.tickets.ListByEvent(ctx, listing.ID, limit, offset)
}

// CheckIn verifies a ticket at the gate and confirms it in the mirror. Only
// gate staff and the organizer may check tickets in.
func (s *BookkeepingService) CheckIn(ctx context.Context, params ports.CheckInParams) (*domain.Ticket, error) {
	if params.ActorRole != ports.RoleGate && params.ActorRole != ports.RoleOrganizer {
		return nil, apperrors.ErrForbidden
	}

	ticket, err := s.tickets.GetByID(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}

	if params.Digest != "" && !s.signer.Verify(ticket, params.Digest) {
		return nil, apperrors.ErrTicketCodeMismatch
	}

	if _, err := s.program.VerifyAndUse(ctx, ticket.Owner); err != nil {
		return nil, err
	}

	ticket.MarkCheckedIn(s.now())
	updated, err := s.tickets.Update(ctx, ticket)
	if err != nil {
		s.mirrorFailed(ctx, "verify_and_use", err)
		updated = ticket
	}
	s.invalidate(ctx, ticket.ID)

	s.logger.InfoContext(ctx, "ticket checked in",
		"ticket_id", ticket.ID.String(),
		"holder", ticket.Owner.String(),
		"gate", params.ActorID.String(),
	)
	s.broadcast(domain.FeedTicketCheckedIn, ticket.EventID, domain.NewTicketSnapshot(updated))
	s.notify(ports.NotificationParams{
		Recipient: ticket.Owner,
		Subject:   "Welcome in",
		Message:   "Your ticket was checked in.",
		TicketID:  ticket.ID,
	})
	return updated, nil
}

// Participant returns the program's record for account.
func (s *BookkeepingService) Participant(_ context.Context, account domain.AccountID) (domain.ParticipantRecord, bool) {
	return s.program.Participant(account)
}

// Shutdown waits for pending notifications and broadcasts.
func (s *BookkeepingService) Shutdown() {
	s.wg.Wait()
}

func (s *BookkeepingService) payment(sender domain.AccountID, amount uint64) domain.Payment {
	return domain.Payment{Sender: sender, Receiver: s.program.ProgramAccount(), Amount: amount}
}

func (s *BookkeepingService) recordBalance(ctx context.Context) {
	balance, err := s.program.Balance(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "read program balance", "error", err)
		return
	}
	s.metrics.SetProgramBalance(balance)
}

func (s *BookkeepingService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "ticket cache invalidation failed", "ticket_id", id.String(), "error", err)
	}
}

func (s *BookkeepingService) mirrorFailed(ctx context.Context, operation string, err error) {
	s.logger.ErrorContext(ctx, "program call committed but mirror write failed",
		"operation", operation,
		"error", err,
	)
}

// notify sends a notification in the background
func (s *BookkeepingService) notify(params ports.NotificationParams) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Use background context since the HTTP request may be done
		s.notifier.Notify(context.Background(), params)
	}()
}

// broadcast pushes a live feed event in the background
func (s *BookkeepingService) broadcast(eventType domain.FeedEventType, eventID uuid.UUID, payload any) {
	if s.broadcaster == nil {
		return
	}
	event := domain.FeedEvent{
		Type:    eventType,
		Payload: payload,
		EventID: eventID.String(),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.broadcaster.Broadcast(event); err != nil {
			s.logger.Warn("broadcast failed", "type", string(eventType), "error", err)
		}
	}()
}

func normalizePage(limit, offset int32) (int32, int32) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
