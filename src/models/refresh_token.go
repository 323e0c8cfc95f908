package models

import "github.com/oklog/ulid/v2"

// RefreshToken changes whenever the registry data must be fetched again.
// The zero value is the fixed token a session starts with.
type RefreshToken ulid.ULID

// String renders the token for use as a view key.
func (t RefreshToken) String() string {
	if t.IsZero() {
		return "0"
	}
	return ulid.ULID(t).String()
}

// IsZero reports whether t is the starting token.
func (t RefreshToken) IsZero() bool {
	return ulid.ULID(t) == ulid.ULID{}
}

// After reports whether t was issued after other.
func (t RefreshToken) After(other RefreshToken) bool {
	return ulid.ULID(t).Compare(ulid.ULID(other)) > 0
}
