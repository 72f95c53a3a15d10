package registration

import (
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// State is a user's position in the registration conversation.
type State int

const (
	Idle State = iota
	AwaitingAddress
	// Submitting marks an AwaitingAddress session whose address is being written.
	Submitting
)

func (s State) String() string {
	switch s {
	case AwaitingAddress:
		return "awaiting_address"
	case Submitting:
		return "submitting"
	default:
		return "idle"
	}
}

// Sessions holds per-user conversation state in memory. Entries expire after
// the configured TTL of inactivity and then read as Idle. The mutex only
// guards compare-and-swap transitions; no I/O happens under it.
type Sessions struct {
	mu    sync.Mutex
	items *cache.Cache
	ttl   time.Duration
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		items: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func key(userID int64) string { return strconv.FormatInt(userID, 10) }

// State returns the user's current state.
func (s *Sessions) State(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(userID)
}

func (s *Sessions) get(userID int64) State {
	v, ok := s.items.Get(key(userID))
	if !ok {
		return Idle
	}
	return v.(State)
}

// Await moves the user to AwaitingAddress from any state.
func (s *Sessions) Await(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Set(key(userID), AwaitingAddress, cache.DefaultExpiration)
}

// Touch extends a pending session's lifetime.
func (s *Sessions) Touch(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.get(userID); st != Idle {
		s.items.Set(key(userID), st, cache.DefaultExpiration)
	}
}

// Claim transitions AwaitingAddress to Submitting. Only one caller can win.
func (s *Sessions) Claim(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.get(userID) != AwaitingAddress {
		return false
	}
	s.items.Set(key(userID), Submitting, cache.DefaultExpiration)
	return true
}

// Release returns a Submitting session to AwaitingAddress after a failed write.
func (s *Sessions) Release(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.get(userID) == Submitting {
		s.items.Set(key(userID), AwaitingAddress, cache.DefaultExpiration)
	}
}

// Clear returns the user to Idle and reports whether anything was pending.
func (s *Sessions) Clear(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.get(userID) != Idle
	s.items.Delete(key(userID))
	return pending
}

// Len is the number of live sessions, expired entries excluded.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items.Items())
}
