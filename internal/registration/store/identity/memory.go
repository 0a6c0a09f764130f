package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"reliefcore/pkg/domain"
	"reliefcore/pkg/platform/sentinel"
)

type entryState int

const (
	stateReserved entryState = iota
	stateCommitted
)

type entry struct {
	state entryState
	token uuid.UUID
	urid  domain.URID
}

// InMemory enforces the check-and-set contract with a single mutex over the
// map. Per-identity granularity is not needed here: the critical section is a
// map probe, so unrelated identities contend only for nanoseconds.
type InMemory struct {
	mu      sync.Mutex
	entries map[domain.IdentityHash]*entry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[domain.IdentityHash]*entry)}
}

// Reserve claims the identity slot. Exactly one concurrent caller per hash
// succeeds; the rest observe ErrAlreadyUsed (committed) or ErrConflict
// (reservation in flight).
func (s *InMemory) Reserve(_ context.Context, hash domain.IdentityHash) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[hash]; ok {
		if e.state == stateCommitted {
			return Reservation{}, sentinel.ErrAlreadyUsed
		}
		return Reservation{}, sentinel.ErrConflict
	}

	res := newReservation(hash)
	s.entries[hash] = &entry{state: stateReserved, token: res.Token}
	return res, nil
}

// Commit finalizes a reservation after the registration record is durable.
func (s *InMemory) Commit(_ context.Context, res Reservation, urid domain.URID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[res.IdentityHash]
	if !ok || e.state != stateReserved || e.token != res.Token {
		return sentinel.ErrInvalidState
	}
	e.state = stateCommitted
	e.urid = urid
	return nil
}

// Release rolls back a reservation so a failed registration does not
// permanently burn the identity slot.
func (s *InMemory) Release(_ context.Context, res Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[res.IdentityHash]
	if !ok || e.state != stateReserved || e.token != res.Token {
		return sentinel.ErrInvalidState
	}
	delete(s.entries, res.IdentityHash)
	return nil
}

// Lookup returns the identifier committed for the identity, if any.
func (s *InMemory) Lookup(_ context.Context, hash domain.IdentityHash) (domain.URID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[hash]; ok && e.state == stateCommitted {
		return e.urid, nil
	}
	return "", sentinel.ErrNotFound
}
