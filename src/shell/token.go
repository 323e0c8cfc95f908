package shell

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/username/directreg/src/models"
)

// TokenSource issues refresh tokens. Every token is strictly greater than
// the one before, also within one millisecond or when the clock steps back.
type TokenSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	last    ulid.ULID
	now     func() time.Time
}

// NewTokenSource returns a source seeded from crypto/rand.
func NewTokenSource() *TokenSource {
	return &TokenSource{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Next returns a fresh token.
func (s *TokenSource) Next() models.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := ulid.Timestamp(s.now())
	if ms < s.last.Time() {
		ms = s.last.Time()
	}
	id, err := ulid.New(ms, s.entropy)
	if err != nil {
		// Entropy exhausted within this millisecond; move to the next one.
		id = ulid.MustNew(ms+1, s.entropy)
	}
	s.last = id
	return models.RefreshToken(id)
}
