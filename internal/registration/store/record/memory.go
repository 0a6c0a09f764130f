package record

import (
	"context"
	"sync"
	"time"

	"reliefcore/internal/registration/models"
	"reliefcore/pkg/domain"
	"reliefcore/pkg/platform/sentinel"
)

// InMemory keeps registration records in process. Suitable for tests and
// single-node deployments; PostgresStore is the durable implementation.
type InMemory struct {
	mu         sync.RWMutex
	byURID     map[domain.URID]*models.RegistrationRecord
	byLookup   map[domain.LookupKey]domain.URID
	byIdentity map[domain.IdentityHash]domain.URID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byURID:     make(map[domain.URID]*models.RegistrationRecord),
		byLookup:   make(map[domain.LookupKey]domain.URID),
		byIdentity: make(map[domain.IdentityHash]domain.URID),
	}
}

// Create persists a new record. Even though the registration workflow has
// already resolved collisions, existence is re-checked under the write lock so
// a race between resolution and persistence can never overwrite a household.
// The identity hash is unique here too: the record store is the last line of
// defense for one-registration-per-identity when the identity index loses a
// reservation (e.g. a TTL expiry mid-flow).
func (s *InMemory) Create(_ context.Context, rec models.RegistrationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byURID[rec.URID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byIdentity[rec.IdentityHash]; exists {
		return sentinel.ErrAlreadyUsed
	}
	stored := rec
	s.byURID[rec.URID] = &stored
	s.byLookup[rec.LookupKey] = rec.URID
	s.byIdentity[rec.IdentityHash] = rec.URID
	return nil
}

func (s *InMemory) Exists(_ context.Context, urid domain.URID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byURID[urid]
	return ok, nil
}

func (s *InMemory) FindByURID(_ context.Context, urid domain.URID) (models.RegistrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.byURID[urid]; ok {
		return *rec, nil
	}
	return models.RegistrationRecord{}, sentinel.ErrNotFound
}

func (s *InMemory) FindByLookupKey(_ context.Context, key domain.LookupKey) (models.RegistrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if urid, ok := s.byLookup[key]; ok {
		return *s.byURID[urid], nil
	}
	return models.RegistrationRecord{}, sentinel.ErrNotFound
}

// Deactivate toggles the active flag. Records are never deleted.
func (s *InMemory) Deactivate(_ context.Context, urid domain.URID, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byURID[urid]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !rec.Active {
		return sentinel.ErrInvalidState
	}
	rec.Active = false
	return nil
}
