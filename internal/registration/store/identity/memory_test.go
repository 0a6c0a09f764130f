package identity

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"reliefcore/pkg/domain"
	"reliefcore/pkg/platform/sentinel"
)

type IdentityIndexSuite struct {
	suite.Suite
	index *InMemory
	ctx   context.Context
}

func TestIdentityIndexSuite(t *testing.T) {
	suite.Run(t, new(IdentityIndexSuite))
}

func (s *IdentityIndexSuite) SetupTest() {
	s.index = NewInMemory()
	s.ctx = context.Background()
}

func hashFor(seed string) domain.IdentityHash {
	return domain.IdentityHash(strings.Repeat(seed, 64/len(seed)))
}

func (s *IdentityIndexSuite) TestReserveCommitLookup() {
	hash := hashFor("a1")

	res, err := s.index.Reserve(s.ctx, hash)
	s.Require().NoError(err)
	s.Equal(hash, res.IdentityHash)

	// Uncommitted reservations are invisible to Lookup.
	_, err = s.index.Lookup(s.ctx, hash)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.index.Commit(s.ctx, res, "0123456789ABCDEF"))

	urid, err := s.index.Lookup(s.ctx, hash)
	s.Require().NoError(err)
	s.Equal(domain.URID("0123456789ABCDEF"), urid)
}

func (s *IdentityIndexSuite) TestReserveConflicts() {
	hash := hashFor("b2")

	s.Run("in-flight reservation blocks a second reserve", func() {
		res, err := s.index.Reserve(s.ctx, hash)
		s.Require().NoError(err)

		_, err = s.index.Reserve(s.ctx, hash)
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		s.Require().NoError(s.index.Release(s.ctx, res))
	})

	s.Run("committed identity reports already used", func() {
		res, err := s.index.Reserve(s.ctx, hash)
		s.Require().NoError(err)
		s.Require().NoError(s.index.Commit(s.ctx, res, "0123456789ABCDEF"))

		_, err = s.index.Reserve(s.ctx, hash)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})
}

func (s *IdentityIndexSuite) TestRelease() {
	hash := hashFor("c3")

	res, err := s.index.Reserve(s.ctx, hash)
	s.Require().NoError(err)
	s.Require().NoError(s.index.Release(s.ctx, res))

	// Slot is free again after rollback.
	_, err = s.index.Reserve(s.ctx, hash)
	s.Require().NoError(err)
}

func (s *IdentityIndexSuite) TestTokenGuardsFinalization() {
	hash := hashFor("d4")

	res, err := s.index.Reserve(s.ctx, hash)
	s.Require().NoError(err)

	stale := res
	stale.Token = res.Token
	s.Require().NoError(s.index.Release(s.ctx, res))

	// A released reservation can no longer commit.
	s.Require().ErrorIs(s.index.Commit(s.ctx, stale, "0123456789ABCDEF"), sentinel.ErrInvalidState)

	// A fresh reservation's commit is unaffected by the stale token.
	fresh, err := s.index.Reserve(s.ctx, hash)
	s.Require().NoError(err)
	s.Require().NoError(s.index.Commit(s.ctx, fresh, "FEDCBA9876543210"))
}

// TestConcurrentReserve is the core race: many goroutines, one identity,
// exactly one winner.
func (s *IdentityIndexSuite) TestConcurrentReserve() {
	hash := hashFor("e5")
	const callers = 32

	var wg sync.WaitGroup
	wins := make(chan Reservation, callers)
	losses := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.index.Reserve(s.ctx, hash)
			if err != nil {
				losses <- err
				return
			}
			wins <- res
		}()
	}
	wg.Wait()
	close(wins)
	close(losses)

	s.Len(wins, 1)
	s.Len(losses, callers-1)
	for err := range losses {
		s.ErrorIs(err, sentinel.ErrConflict)
	}
}
