package domain

// Reserve is the minimum-balance policy of a ledger.
type Reserve struct {
	Base     uint64 // every account
	PerAsset uint64 // per asset an account has created; held units add nothing
}

// DefaultReserve mirrors the usual 0.1 unit base and per-asset reserve.
func DefaultReserve() Reserve {
	return Reserve{Base: 100_000, PerAsset: 100_000}
}

// Minimum returns the balance an account that created the given number of
// assets must retain.
func (r Reserve) Minimum(created uint64) uint64 {
	return r.Base + r.PerAsset*created
}

// MinimumToCreate returns the balance required before creating one more asset.
func (r Reserve) MinimumToCreate(created uint64) uint64 {
	return r.Minimum(created + 1)
}
