package domain

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const ticketCodePrefix = "TKT1"

var (
	// ErrMalformedTicketCode is returned for codes that do not parse.
	ErrMalformedTicketCode = errors.New("malformed ticket code")
	// ErrEmptyTicketCodeKey is returned when a signer is built without a key.
	ErrEmptyTicketCodeKey = errors.New("ticket code key is empty")
)

// TicketSigner issues and checks ticket codes under a server-held key.
// Ticket ids and owners are public, so the digest is a keyed MAC over them.
type TicketSigner struct {
	key [32]byte
}

// NewTicketSigner returns a signer for key. Keys of any length are accepted;
// they are compressed to the 32 bytes blake2b's keyed mode takes.
func NewTicketSigner(key []byte) (*TicketSigner, error) {
	if len(key) == 0 {
		return nil, ErrEmptyTicketCodeKey
	}
	return &TicketSigner{key: blake2b.Sum256(key)}, nil
}

// digest binds a ticket id to its current owner. A resale changes the owner
// and with it the digest, so codes issued to the seller stop matching.
func (s *TicketSigner) digest(id uuid.UUID, owner AccountID) string {
	h, err := blake2b.New256(s.key[:])
	if err != nil {
		// unreachable: the key is always 32 bytes
		panic(err)
	}
	h.Write([]byte(ticketCodePrefix + "|" + id.String() + "|" + owner.String()))
	return hex.EncodeToString(h.Sum(nil)[:8])
}

// Code returns the scannable code of t: TKT1.<id>.<digest>.
func (s *TicketSigner) Code(t *Ticket) string {
	return ticketCodePrefix + "." + t.ID.String() + "." + s.digest(t.ID, t.Owner)
}

// Verify reports whether digest was issued for t's current owner.
func (s *TicketSigner) Verify(t *Ticket, digest string) bool {
	want := s.digest(t.ID, t.Owner)
	return subtle.ConstantTimeCompare([]byte(want), []byte(digest)) == 1
}

// ParseTicketCode splits a scanned code into ticket id and digest.
func ParseTicketCode(code string) (uuid.UUID, string, error) {
	parts := strings.Split(strings.TrimSpace(code), ".")
	if len(parts) != 3 || parts[0] != ticketCodePrefix || parts[2] == "" {
		return uuid.Nil, "", ErrMalformedTicketCode
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, "", ErrMalformedTicketCode
	}
	return id, parts[2], nil
}
