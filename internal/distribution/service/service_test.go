package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"reliefcore/internal/distribution/models"
	"reliefcore/internal/distribution/store/ledger"
	regmodels "reliefcore/internal/registration/models"
	"reliefcore/internal/registration/store/record"
	"reliefcore/pkg/domain"
	dErrors "reliefcore/pkg/domain-errors"
	"reliefcore/pkg/requestcontext"
)

type DistributionSuite struct {
	suite.Suite
	svc        *Service
	ledger     *ledger.InMemory
	households *record.InMemory
	ctx        context.Context
	base       time.Time
	agentRef   string
}

func TestDistributionSuite(t *testing.T) {
	suite.Run(t, new(DistributionSuite))
}

func (s *DistributionSuite) SetupTest() {
	s.ledger = ledger.NewInMemory()
	s.households = record.NewInMemory()
	s.base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.base)
	s.agentRef = uuid.NewString()

	s.svc = NewService(s.ledger, s.households, NewEvaluator(map[string]time.Duration{
		"FOOD":  72 * time.Hour,
		"WATER": 24 * time.Hour,
	}))
}

func (s *DistributionSuite) register(active bool) domain.LookupKey {
	key := domain.LookupKey(strings.Repeat(uuid.NewString()[:4], 16))
	s.Require().NoError(s.households.Create(s.ctx, regmodels.RegistrationRecord{
		URID:          domain.URID(strings.ToUpper(uuid.NewString()[:8] + uuid.NewString()[:8])),
		LookupKey:     key,
		IdentityHash:  domain.IdentityHash(strings.Repeat("ab", 32)),
		HouseholdSize: 4,
		Location:      "SECTOR-7",
		RegisteredAt:  s.base,
		Active:        active,
	}))
	return key
}

func (s *DistributionSuite) request(key domain.LookupKey, category string) models.RecordRequest {
	return models.RecordRequest{
		LookupKey: string(key),
		Category:  category,
		Quantity:  5,
		Location:  "SECTOR-7",
		AgentRef:  s.agentRef,
	}
}

func (s *DistributionSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func (s *DistributionSuite) TestRecordAndCooldownBoundary() {
	key := s.register(true)

	event, err := s.svc.Record(s.ctx, s.request(key, "FOOD"))
	s.Require().NoError(err)
	s.Equal(models.CategoryFood, event.Category)
	s.Equal(s.base, event.Timestamp)
	s.True(event.Confirmed)

	s.Run("one second before the window closes", func() {
		ctx := s.at(s.base.Add(72*time.Hour - time.Second))
		_, err := s.svc.Record(ctx, s.request(key, "FOOD"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotEligible))
	})

	s.Run("exactly at the boundary", func() {
		ctx := s.at(s.base.Add(72 * time.Hour))
		_, err := s.svc.Record(ctx, s.request(key, "FOOD"))
		s.Require().NoError(err)
	})
}

func (s *DistributionSuite) TestCategoriesAreIndependent() {
	key := s.register(true)

	_, err := s.svc.Record(s.ctx, s.request(key, "FOOD"))
	s.Require().NoError(err)

	// A fresh FOOD cooldown says nothing about WATER.
	_, err = s.svc.Record(s.ctx, s.request(key, "WATER"))
	s.Require().NoError(err)

	result, err := s.svc.CheckEligibility(s.ctx, string(key), "MEDICAL")
	s.Require().NoError(err)
	s.True(result.Eligible)
}

func (s *DistributionSuite) TestRecordValidation() {
	key := s.register(true)

	s.Run("zero quantity", func() {
		req := s.request(key, "FOOD")
		req.Quantity = 0
		_, err := s.svc.Record(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown category", func() {
		_, err := s.svc.Record(s.ctx, s.request(key, "FUEL"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("malformed lookup key", func() {
		req := s.request(key, "FOOD")
		req.LookupKey = "not-a-key"
		_, err := s.svc.Record(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("malformed agent ref", func() {
		req := s.request(key, "FOOD")
		req.AgentRef = "agent-007"
		_, err := s.svc.Record(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *DistributionSuite) TestUnknownAndInactiveHouseholds() {
	s.Run("unknown lookup key", func() {
		unknown := domain.LookupKey(strings.Repeat("0f", 32))
		_, err := s.svc.Record(s.ctx, s.request(unknown, "FOOD"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	// A revoked card must be indistinguishable from one that never existed.
	s.Run("deactivated household reads as not found", func() {
		key := s.register(false)
		_, err := s.svc.Record(s.ctx, s.request(key, "FOOD"))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		_, err = s.svc.CheckEligibility(s.ctx, string(key), "FOOD")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		_, err = s.svc.History(s.ctx, string(key), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *DistributionSuite) TestCheckEligibilityReportsRemaining() {
	key := s.register(true)

	_, err := s.svc.Record(s.ctx, s.request(key, "WATER"))
	s.Require().NoError(err)

	ctx := s.at(s.base.Add(10 * time.Hour))
	result, err := s.svc.CheckEligibility(ctx, string(key), "WATER")
	s.Require().NoError(err)
	s.False(result.Eligible)
	s.Equal(14*time.Hour, result.CooldownRemaining)
	s.Require().NotNil(result.LastEvent)
	s.Equal(models.CategoryWater, result.LastEvent.Category)
}

func (s *DistributionSuite) TestEligibilitySummary() {
	key := s.register(true)

	_, err := s.svc.Record(s.ctx, s.request(key, "FOOD"))
	s.Require().NoError(err)

	summary, err := s.svc.EligibilitySummary(s.ctx, string(key))
	s.Require().NoError(err)
	s.Require().Len(summary, len(models.Categories()))
	s.False(summary[models.CategoryFood].Eligible)
	s.True(summary[models.CategoryWater].Eligible)
	s.True(summary[models.CategoryCash].Eligible)
}

func (s *DistributionSuite) TestHistory() {
	key := s.register(true)

	_, err := s.svc.Record(s.ctx, s.request(key, "FOOD"))
	s.Require().NoError(err)
	_, err = s.svc.Record(s.at(s.base.Add(time.Hour)), s.request(key, "WATER"))
	s.Require().NoError(err)

	s.Run("all events most recent first", func() {
		events, err := s.svc.History(s.ctx, string(key), "")
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(models.CategoryWater, events[0].Category)
		s.Equal(models.CategoryFood, events[1].Category)
	})

	s.Run("filtered by category", func() {
		events, err := s.svc.History(s.ctx, string(key), "food")
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(models.CategoryFood, events[0].Category)
	})
}

// Concurrent Record calls for the same {household, category} must admit
// exactly one event: the check and the append share a critical section.
func (s *DistributionSuite) TestConcurrentRecordsAdmitOne() {
	key := s.register(true)
	const attempts = 10

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Record(s.ctx, s.request(key, "FOOD"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, denied int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case dErrors.HasCode(err, dErrors.CodeNotEligible):
			denied++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, won)
	s.Equal(attempts-1, denied)

	events, err := s.svc.History(s.ctx, string(key), "FOOD")
	s.Require().NoError(err)
	s.Len(events, 1)
}
