// Package cache fronts ticket mirror lookups with redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ticketmint/event-program/internal/core/domain"
	"github.com/ticketmint/event-program/internal/core/ports"
)

const ticketKeyPrefix = "ticket:"

// TicketCache stores mirrored tickets as JSON documents with a TTL.
type TicketCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ ports.TicketCache = (*TicketCache)(nil)

// NewTicketCache creates a cache over client.
func NewTicketCache(client redis.Cmdable, ttl time.Duration) *TicketCache {
	return &TicketCache{client: client, ttl: ttl}
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func ticketKey(id uuid.UUID) string {
	return ticketKeyPrefix + id.String()
}

// Get returns the cached ticket and whether it was present.
func (c *TicketCache) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, bool, error) {
	data, err := c.client.Get(ctx, ticketKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var ticket domain.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		return nil, false, fmt.Errorf("decode cached ticket: %w", err)
	}
	return &ticket, true, nil
}

// Set caches ticket until the TTL expires.
func (c *TicketCache) Set(ctx context.Context, ticket *domain.Ticket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ticketKey(ticket.ID), string(data), c.ttl).Err()
}

// Invalidate drops the cached copy of a ticket.
func (c *TicketCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, ticketKey(id)).Err()
}

// Noop is the TicketCache used when no redis is configured. Every lookup misses.
type Noop struct{}

var _ ports.TicketCache = Noop{}

func (Noop) Get(context.Context, uuid.UUID) (*domain.Ticket, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, *domain.Ticket) error                    { return nil }
func (Noop) Invalidate(context.Context, uuid.UUID) error                  { return nil }
