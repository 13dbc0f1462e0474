package utils

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ToString converts a domain's primitive string to a pgtype.Text.
// An empty string is considered invalid (NULL).
func ToString(s string) pgtype.Text {
	return pgtype.Text{
		String: s,
		Valid:  s != "",
	}
}

// FromString converts a pgtype.Text to a domain's primitive string.
// A NULL value is converted to an empty string ("").
func FromString(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// ToNullTime converts an optional timestamp to a pgtype.Timestamptz.
// A nil pointer is considered invalid (NULL).
func ToNullTime(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// FromNullTime converts a pgtype.Timestamptz to an optional timestamp.
func FromNullTime(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// ToNullUint converts an id where zero means "unset" to a pgtype.Int8.
func ToNullUint(v uint64) pgtype.Int8 {
	return pgtype.Int8{Int64: int64(v), Valid: v != 0}
}

// FromNullUint converts a pgtype.Int8 to an id, mapping NULL to zero.
func FromNullUint(v pgtype.Int8) uint64 {
	if !v.Valid || v.Int64 < 0 {
		return 0
	}
	return uint64(v.Int64)
}
