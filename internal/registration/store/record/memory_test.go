package record

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"reliefcore/internal/registration/models"
	"reliefcore/internal/urid"
	"reliefcore/pkg/domain"
	"reliefcore/pkg/platform/sentinel"
)

type RecordStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestRecordStoreSuite(t *testing.T) {
	suite.Run(t, new(RecordStoreSuite))
}

func (s *RecordStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *RecordStoreSuite) newRecord(id domain.URID) models.RegistrationRecord {
	return models.RegistrationRecord{
		URID:          id,
		LookupKey:     urid.LookupKey(id),
		IdentityHash:  domain.IdentityHash(strings.ToLower(strings.Repeat(string(id), 64/len(id)))),
		HouseholdSize: 4,
		Location:      "DELHI",
		Contact:       "+91-9999999999",
		RegisteredAt:  time.Now().UTC(),
		Active:        true,
	}
}

func (s *RecordStoreSuite) TestCreateAndLookups() {
	s.Run("round trips by urid and lookup key", func() {
		rec := s.newRecord("0123456789ABCDEF")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		byID, err := s.store.FindByURID(s.ctx, rec.URID)
		s.Require().NoError(err)
		byKey, err := s.store.FindByLookupKey(s.ctx, rec.LookupKey)
		s.Require().NoError(err)
		s.Equal(byID, byKey)
		s.Equal(rec.IdentityHash, byID.IdentityHash)
	})

	s.Run("returns ErrNotFound for unknown identifier", func() {
		_, err := s.store.FindByURID(s.ctx, "FFFFFFFFFFFFFFFF")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate urid", func() {
		rec := s.newRecord("00000000000000AA")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		dup := rec
		dup.IdentityHash = domain.IdentityHash(strings.Repeat("cd", 32))
		s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("rejects a second household for the same identity", func() {
		rec := s.newRecord("00000000000000AB")
		s.Require().NoError(s.store.Create(s.ctx, rec))

		second := s.newRecord("00000000000000AC")
		second.IdentityHash = rec.IdentityHash
		s.Require().ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrAlreadyUsed)
	})
}

func (s *RecordStoreSuite) TestExists() {
	rec := s.newRecord("00000000000000BB")
	s.Require().NoError(s.store.Create(s.ctx, rec))

	ok, err := s.store.Exists(s.ctx, rec.URID)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.Exists(s.ctx, "00000000000000CC")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *RecordStoreSuite) TestDeactivate() {
	s.Run("flips active flag without deleting", func() {
		rec := s.newRecord("00000000000000DD")
		s.Require().NoError(s.store.Create(s.ctx, rec))
		s.Require().NoError(s.store.Deactivate(s.ctx, rec.URID, time.Now()))

		found, err := s.store.FindByURID(s.ctx, rec.URID)
		s.Require().NoError(err)
		s.False(found.Active)
	})

	s.Run("rejects double deactivation", func() {
		rec := s.newRecord("00000000000000EE")
		s.Require().NoError(s.store.Create(s.ctx, rec))
		s.Require().NoError(s.store.Deactivate(s.ctx, rec.URID, time.Now()))
		s.Require().ErrorIs(s.store.Deactivate(s.ctx, rec.URID, time.Now()), sentinel.ErrInvalidState)
	})

	s.Run("returns ErrNotFound for unknown identifier", func() {
		s.Require().ErrorIs(s.store.Deactivate(s.ctx, "00000000000000FF", time.Now()), sentinel.ErrNotFound)
	})
}
