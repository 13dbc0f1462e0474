package domain

import (
	"encoding/base32"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// AccountID identifies a holder of currency and ticket units.
type AccountID string

// AssetID identifies an asset in the registry. Zero means "no asset".
type AssetID uint64

// IsZero reports whether the account id is empty.
func (a AccountID) IsZero() bool {
	return a == ""
}

func (a AccountID) String() string {
	return string(a)
}

var addressEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// DeriveProgramAccount returns the deterministic account address of the
// program deployed for an event. The same seed always yields the same address.
func DeriveProgramAccount(seed string) AccountID {
	sum := blake2b.Sum256([]byte("ProgramAccount" + seed))
	return AccountID(strings.ToUpper(addressEncoding.EncodeToString(sum[:])))
}
