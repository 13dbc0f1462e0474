package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ticketmint/event-program/internal/core/domain"
	"github.com/ticketmint/event-program/internal/core/ports"
)

// MockEventProgram is a mock implementation of ports.EventProgram
type MockEventProgram struct {
	mock.Mock
}

func NewMockEventProgram() *MockEventProgram {
	return &MockEventProgram{}
}

func (m *MockEventProgram) ProgramAccount() domain.AccountID {
	args := m.Called()
	return args.Get(0).(domain.AccountID)
}

func (m *MockEventProgram) Event() domain.EventRecord {
	args := m.Called()
	return args.Get(0).(domain.EventRecord)
}

func (m *MockEventProgram) Participant(account domain.AccountID) (domain.ParticipantRecord, bool) {
	args := m.Called(account)
	return args.Get(0).(domain.ParticipantRecord), args.Bool(1)
}

func (m *MockEventProgram) Balance(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockEventProgram) Fund(ctx context.Context, payment domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockEventProgram) MintTickets(ctx context.Context, caller domain.AccountID) (domain.AssetID, error) {
	args := m.Called(ctx, caller)
	return args.Get(0).(domain.AssetID), args.Error(1)
}

func (m *MockEventProgram) BuyTicket(ctx context.Context, caller domain.AccountID, payment domain.Payment) error {
	args := m.Called(ctx, caller, payment)
	return args.Error(0)
}

func (m *MockEventProgram) VerifyAndUse(ctx context.Context, holder domain.AccountID) (bool, error) {
	args := m.Called(ctx, holder)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventProgram) ListForSale(ctx context.Context, caller domain.AccountID, price uint64) error {
	args := m.Called(ctx, caller, price)
	return args.Error(0)
}

func (m *MockEventProgram) CancelListing(ctx context.Context, caller domain.AccountID) error {
	args := m.Called(ctx, caller)
	return args.Error(0)
}

func (m *MockEventProgram) BuyResale(ctx context.Context, caller domain.AccountID, payment domain.Payment, seller domain.AccountID) (domain.ResaleSplit, error) {
	args := m.Called(ctx, caller, payment, seller)
	return args.Get(0).(domain.ResaleSplit), args.Error(1)
}

func (m *MockEventProgram) Withdraw(ctx context.Context, caller domain.AccountID) (uint64, error) {
	args := m.Called(ctx, caller)
	return args.Get(0).(uint64), args.Error(1)
}

// MockEventRepository is a mock implementation of ports.EventRepository
type MockEventRepository struct {
	mock.Mock
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{}
}

func (m *MockEventRepository) Create(ctx context.Context, event *domain.EventListing) (*domain.EventListing, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventListing), args.Error(1)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.EventListing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventListing), args.Error(1)
}

func (m *MockEventRepository) GetByProgramAccount(ctx context.Context, account domain.AccountID) (*domain.EventListing, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EventListing), args.Error(1)
}

func (m *MockEventRepository) UpdateAsset(ctx context.Context, id uuid.UUID, asset domain.AssetID) error {
	args := m.Called(ctx, id, asset)
	return args.Error(0)
}

func (m *MockEventRepository) List(ctx context.Context, params ports.ListEventsParams) ([]*domain.EventListing, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EventListing), args.Error(1)
}

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, *domain.Ticket) *domain.Ticket); ok {
		return fn(ctx, ticket), args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByOwner(ctx context.Context, eventID uuid.UUID, owner domain.AccountID) (*domain.Ticket, error) {
	args := m.Called(ctx, eventID, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, *domain.Ticket) *domain.Ticket); ok {
		return fn(ctx, ticket), args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListByEvent(ctx context.Context, eventID uuid.UUID, limit, offset int32) ([]*domain.Ticket, error) {
	args := m.Called(ctx, eventID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

// MockTicketCache is a mock implementation of ports.TicketCache
type MockTicketCache struct {
	mock.Mock
}

func NewMockTicketCache() *MockTicketCache {
	return &MockTicketCache{}
}

func (m *MockTicketCache) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Ticket), args.Bool(1), args.Error(2)
}

func (m *MockTicketCache) Set(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockProgramStore is a mock implementation of ports.ProgramStore
type MockProgramStore struct {
	mock.Mock
}

func NewMockProgramStore() *MockProgramStore {
	return &MockProgramStore{}
}

func (m *MockProgramStore) Load(ctx context.Context, program domain.AccountID) (*domain.EventRecord, map[domain.AccountID]domain.ParticipantRecord, error) {
	args := m.Called(ctx, program)
	var record *domain.EventRecord
	if args.Get(0) != nil {
		record = args.Get(0).(*domain.EventRecord)
	}
	var participants map[domain.AccountID]domain.ParticipantRecord
	if args.Get(1) != nil {
		participants = args.Get(1).(map[domain.AccountID]domain.ParticipantRecord)
	}
	return record, participants, args.Error(2)
}

func (m *MockProgramStore) SaveEvent(ctx context.Context, program domain.AccountID, record domain.EventRecord) error {
	args := m.Called(ctx, program, record)
	return args.Error(0)
}

func (m *MockProgramStore) SaveParticipant(ctx context.Context, program domain.AccountID, account domain.AccountID, record domain.ParticipantRecord) error {
	args := m.Called(ctx, program, account, record)
	return args.Error(0)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	m.Called(ctx, params)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.FeedEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

var (
	_ ports.EventProgram     = (*MockEventProgram)(nil)
	_ ports.EventRepository  = (*MockEventRepository)(nil)
	_ ports.TicketRepository = (*MockTicketRepository)(nil)
	_ ports.TicketCache      = (*MockTicketCache)(nil)
	_ ports.ProgramStore     = (*MockProgramStore)(nil)
	_ ports.Notifier         = (*MockNotifier)(nil)
	_ ports.EventBroadcaster = (*MockEventBroadcaster)(nil)
)
