package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/ticketmint/event-program/internal/adapters/primary/http/middleware"
	"github.com/ticketmint/event-program/internal/adapters/secondary/cache"
	"github.com/ticketmint/event-program/internal/adapters/secondary/memory"
	"github.com/ticketmint/event-program/internal/auth"
	"github.com/ticketmint/event-program/internal/core/domain"
	"github.com/ticketmint/event-program/internal/core/ports"
	"github.com/ticketmint/event-program/internal/core/program"
	"github.com/ticketmint/event-program/internal/core/services"
	"github.com/ticketmint/event-program/internal/infrastructure/metrics"
)

const (
	programAccount = domain.AccountID("PROGRAM")
	organizer      = domain.AccountID("ORGANIZER")
	holder         = domain.AccountID("HOLDER")
	buyer          = domain.AccountID("BUYER")
	gate           = domain.AccountID("GATE")
	facePrice      = uint64(1_000_000)
)

type testServer struct {
	handler stdhttp.Handler
	tokens  *auth.TokenManager
	ledger  *memory.Ledger
	service *services.BookkeepingService
	logger  *slog.Logger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	ledger := memory.NewLedger(domain.DefaultReserve())
	require.NoError(t, services.SeedWallets(ctx, ledger, []ports.WalletGrant{
		{Account: organizer, Amount: 10_000_000},
		{Account: holder, Amount: 5_000_000},
		{Account: buyer, Amount: 5_000_000},
	}, logger))

	p, err := program.New(ctx, program.Deps{
		Account: programAccount,
		Ledger:  ledger,
		Logger:  logger,
		Metrics: m,
	}, organizer, domain.EventParams{
		Name:   "Harbor Nights",
		Date:   "2026-09-12",
		Venue:  "Pier 4",
		Supply: 2,
		Price:  facePrice,
	})
	require.NoError(t, err)

	signer, err := domain.NewTicketSigner([]byte("router-test-code-key"))
	require.NoError(t, err)

	svc := services.NewBookkeepingService(services.BookkeepingDeps{
		Signer:  signer,
		Program: p,
		Events:  memory.NewEventRepository(),
		Tickets: memory.NewTicketRepository(),
		Cache:   cache.Noop{},
		Metrics: m,
		Logger:  logger,
	})
	_, err = svc.EnsureListing(ctx, ports.RegisterEventParams{Description: "Open-air concert"})
	require.NoError(t, err)
	t.Cleanup(svc.Shutdown)

	tokens := auth.NewTokenManager("test-secret-test-secret-test-secret", time.Hour)
	health := NewHealthHandler("test", map[string]HealthChecker{
		"ledger": HealthCheckFunc(func(ctx context.Context) error {
			_, err := ledger.Balance(ctx, programAccount)
			return err
		}),
		"database": nil,
	})

	return &testServer{
		handler: NewRouter(RouterDeps{
			Service:      svc,
			TokenManager: tokens,
			Logger:       logger,
			Health:       health,
			Metrics:      m.Handler(),
			Observer:     m,
		}),
		tokens:  tokens,
		ledger:  ledger,
		service: svc,
		logger:  logger,
	}
}

func (s *testServer) do(t *testing.T, method, path string, caller domain.AccountID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if caller != "" {
		token, err := s.tokens.GenerateToken(caller, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope), rec.Body.String())
	return envelope.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestRouter_EventLifecycle(t *testing.T) {
	s := newTestServer(t)
	h := ports.RoleHolder

	// Public event mirror
	rec := s.do(t, stdhttp.MethodGet, "/api/v1/events", "", "", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var events PaginatedResponse[EventDTO]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&events))
	require.Len(t, events.Data, 1)
	event := events.Data[0]
	assert.Equal(t, string(programAccount), event.ProgramAccount)
	assert.Equal(t, "1.000000", event.DisplayPrice)
	assert.False(t, events.Pagination.HasMore)

	rec = s.do(t, stdhttp.MethodGet, "/api/v1/events/"+event.ID+"/metadata", "", "", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var metadata domain.EventMetadata
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&metadata))
	assert.Equal(t, "Open-air concert", metadata.Description)

	// Program calls need a token
	rec = s.do(t, stdhttp.MethodGet, "/api/v1/program", "", "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/fund", organizer, ports.RoleOrganizer, AmountRequest{Amount: 1_000_000})
	require.Equal(t, stdhttp.StatusNoContent, rec.Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/purchase", holder, h, AmountRequest{Amount: facePrice})
	require.Equal(t, stdhttp.StatusConflict, rec.Code)
	assert.Equal(t, "NOT_MINTED", decodeError(t, rec).Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/mint", holder, h, nil)
	require.Equal(t, stdhttp.StatusForbidden, rec.Code)
	assert.Equal(t, "AUTHORIZATION", decodeError(t, rec).Kind)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/mint", organizer, ports.RoleOrganizer, nil)
	require.Equal(t, stdhttp.StatusCreated, rec.Code)
	asset := decodeData[map[string]uint64](t, rec)["assetId"]
	assert.NotZero(t, asset)

	// Primary purchase
	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/purchase", holder, h, AmountRequest{Amount: facePrice})
	require.Equal(t, stdhttp.StatusCreated, rec.Code)
	primary := decodeData[TicketDTO](t, rec)
	assert.Equal(t, string(holder), primary.Owner)
	assert.Equal(t, asset, primary.AssetID)
	assert.Equal(t, "PRIMARY", primary.Source)
	require.NotEmpty(t, primary.Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/purchase", holder, h, AmountRequest{Amount: facePrice})
	require.Equal(t, stdhttp.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_REGISTERED", decodeError(t, rec).Code)

	// Resale
	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/listing", holder, h, ListForSaleRequest{Price: 2 * facePrice})
	require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "ABOVE_FACE_VALUE", decodeError(t, rec).Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/listing", holder, h, ListForSaleRequest{Price: 900_000})
	require.Equal(t, stdhttp.StatusNoContent, rec.Code)

	rec = s.do(t, stdhttp.MethodGet, "/api/v1/program/participants/me", holder, h, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	participant := decodeData[ParticipantDTO](t, rec)
	assert.True(t, participant.ListedForSale)
	assert.Equal(t, uint64(900_000), participant.ListedPrice)
	assert.Equal(t, "OWNED", participant.State)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/resale", buyer, h, ResaleRequest{Seller: string(holder), Amount: 900_000})
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	resale := decodeData[ResaleDTO](t, rec)
	split := domain.SplitResale(900_000)
	assert.Equal(t, split.Royalty, resale.Royalty)
	assert.Equal(t, split.SellerPayout, resale.SellerPayout)
	assert.Equal(t, primary.ID, resale.Ticket.ID)
	assert.Equal(t, string(buyer), resale.Ticket.Owner)
	assert.NotEqual(t, primary.Code, resale.Ticket.Code)

	holderBalance, err := s.ledger.Balance(context.Background(), holder)
	require.NoError(t, err)
	assert.Equal(t, 5_000_000-facePrice+split.SellerPayout, holderBalance)

	// QR codes render for the current holder only
	rec = s.do(t, stdhttp.MethodGet, "/api/v1/tickets/"+primary.ID+"/qr.png", holder, h, nil)
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
	rec = s.do(t, stdhttp.MethodGet, "/api/v1/tickets/"+primary.ID+"/qr.png", buyer, h, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	// Gate check-in
	rec = s.do(t, stdhttp.MethodPost, "/api/v1/tickets/check-in", buyer, h, CheckInRequest{Code: resale.Ticket.Code})
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/tickets/check-in", gate, ports.RoleGate, CheckInRequest{Code: primary.Code})
	require.Equal(t, stdhttp.StatusConflict, rec.Code)
	assert.Equal(t, "TICKET_CODE_MISMATCH", decodeError(t, rec).Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/tickets/check-in", gate, ports.RoleGate, CheckInRequest{Code: "garbage"})
	require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "MALFORMED_TICKET_CODE", decodeError(t, rec).Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/tickets/check-in", gate, ports.RoleGate, CheckInRequest{Code: resale.Ticket.Code})
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	checked := decodeData[TicketDTO](t, rec)
	assert.True(t, checked.CheckedIn)
	assert.NotNil(t, checked.CheckedInAt)
	assert.Empty(t, checked.Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/tickets/check-in", gate, ports.RoleGate, CheckInRequest{TicketID: primary.ID})
	require.Equal(t, stdhttp.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_USED", decodeError(t, rec).Code)

	// Ticket listing hides codes from non-holders
	rec = s.do(t, stdhttp.MethodGet, "/api/v1/tickets?limit=10", gate, ports.RoleGate, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var tickets PaginatedResponse[TicketDTO]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tickets))
	require.Len(t, tickets.Data, 1)
	assert.Empty(t, tickets.Data[0].Code)
	assert.Equal(t, 10, tickets.Pagination.Limit)

	// Treasury
	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/withdraw", holder, h, nil)
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/withdraw", organizer, ports.RoleOrganizer, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	withdrawn := decodeData[map[string]any](t, rec)
	assert.NotZero(t, withdrawn["amount"])

	rec = s.do(t, stdhttp.MethodGet, "/api/v1/program", organizer, ports.RoleOrganizer, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	status := decodeData[EventRecordDTO](t, rec)
	assert.True(t, status.Minted)
	assert.Equal(t, uint64(1), status.TicketsSold)
	assert.Equal(t, domain.DefaultReserve().MinimumToCreate(0), status.Balance)
}

func TestRouter_RequestValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
	}{
		{"zero purchase amount", stdhttp.MethodPost, "/api/v1/program/purchase", AmountRequest{}, stdhttp.StatusUnprocessableEntity},
		{"missing body", stdhttp.MethodPost, "/api/v1/program/fund", nil, stdhttp.StatusBadRequest},
		{"unknown field", stdhttp.MethodPost, "/api/v1/program/fund", `{"amount":1,"memo":"x"}`, stdhttp.StatusBadRequest},
		{"lowercase seller", stdhttp.MethodPost, "/api/v1/program/resale", ResaleRequest{Seller: "holder", Amount: 1}, stdhttp.StatusUnprocessableEntity},
		{"check-in without ticket", stdhttp.MethodPost, "/api/v1/tickets/check-in", CheckInRequest{}, stdhttp.StatusUnprocessableEntity},
		{"bad ticket id", stdhttp.MethodGet, "/api/v1/tickets/42", nil, stdhttp.StatusUnprocessableEntity},
		{"unknown ticket", stdhttp.MethodGet, "/api/v1/tickets/8c1f7a3e-4f5b-4f0e-9a59-3f0f3b1a2c44", nil, stdhttp.StatusNotFound},
		{"bad participant", stdhttp.MethodGet, "/api/v1/program/participants/not-an-account", nil, stdhttp.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, holder, ports.RoleHolder, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_UnknownParticipant(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, stdhttp.MethodGet, "/api/v1/program/participants/STRANGER", holder, ports.RoleHolder, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	participant := decodeData[ParticipantDTO](t, rec)
	assert.Equal(t, "UNISSUED", participant.State)
	assert.False(t, participant.Owned)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, stdhttp.MethodGet, "/health/ready", "", "", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Contains(t, health.Checks, "ledger")
	assert.NotContains(t, health.Checks, "database")

	rec = s.do(t, stdhttp.MethodGet, "/metrics", "", "", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "event_program_ticket_supply 2")
	assert.Contains(t, body, `http_requests_total{method="GET",route="/health/ready",status="200"} 1`)
}

func TestRouter_CallRateLimit(t *testing.T) {
	s := newTestServer(t)
	limiter := mw.NewRateLimiter(mw.RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
		TTL:               time.Minute,
	})
	t.Cleanup(limiter.Stop)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := services.NewBookkeepingService(services.BookkeepingDeps{Logger: logger})
	s.handler = NewRouter(RouterDeps{
		Service:      svc,
		TokenManager: s.tokens,
		Logger:       logger,
		CallLimiter:  limiter,
	})

	rec := s.do(t, stdhttp.MethodPost, "/api/v1/program/fund", holder, ports.RoleHolder, nil)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/fund", holder, ports.RoleHolder, nil)
	assert.Equal(t, stdhttp.StatusTooManyRequests, rec.Code)

	rec = s.do(t, stdhttp.MethodPost, "/api/v1/program/fund", buyer, ports.RoleHolder, nil)
	assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
}
