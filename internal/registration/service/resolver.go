package service

import (
	"context"
	"errors"

	"reliefcore/internal/registration/models"
	"reliefcore/internal/urid"
	"reliefcore/pkg/domain"
	dErrors "reliefcore/pkg/domain-errors"
	"reliefcore/pkg/platform/sentinel"
	"reliefcore/pkg/requestcontext"
)

// maxDeriveAttempts bounds collision retries. Collisions are astronomically
// unlikely for well-distributed hash inputs, but an existing household's
// record must never be overwritten, so each candidate is checked and the
// whole attempt fails loudly when the budget runs out.
const maxDeriveAttempts = 12

// persistWithFreeIdentifier derives candidate identifiers under the attempt
// budget and persists the registration record under the first free one. The
// store's Create is the authoritative check-and-set: an Exists pre-check
// filters obvious collisions cheaply, and a conflicting Create (a race
// between resolution and persistence) just consumes another attempt.
func (s *Service) persistWithFreeIdentifier(ctx context.Context, hash domain.IdentityHash, req models.RegisterRequest) (models.RegistrationRecord, error) {
	now := requestcontext.Now(ctx)
	seed := now.UnixNano()

	for attempt := 0; attempt < maxDeriveAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.RegistrationRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "registration aborted")
		}

		candidate, err := urid.Derive(hash, req.Location, req.HouseholdSize, seed+int64(attempt))
		if err != nil {
			return models.RegistrationRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "identifier derivation failed")
		}

		exists, err := s.records.Exists(ctx, candidate)
		if err != nil {
			return models.RegistrationRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "identifier availability check failed")
		}
		if exists {
			s.countCollision()
			continue
		}

		rec := models.RegistrationRecord{
			URID:          candidate,
			LookupKey:     urid.LookupKey(candidate),
			IdentityHash:  hash,
			HouseholdSize: req.HouseholdSize,
			Location:      urid.NormalizeLocation(req.Location),
			Contact:       req.Contact,
			RegisteredAt:  now,
			Active:        true,
		}
		err = s.records.Create(ctx, rec)
		if errors.Is(err, sentinel.ErrConflict) {
			s.countCollision()
			continue
		}
		// The record store's identity uniqueness fired: a household already
		// exists for this identity even though the index allowed the
		// reservation (a reservation can evaporate mid-flow under the redis
		// TTL). Deriving another identifier cannot help; this is a duplicate.
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return models.RegistrationRecord{}, dErrors.New(dErrors.CodeDuplicateIdentity, "identity already registered")
		}
		if err != nil {
			return models.RegistrationRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist registration")
		}
		return rec, nil
	}

	if s.metrics != nil {
		s.metrics.CollisionExhaustions.Inc()
	}
	return models.RegistrationRecord{}, dErrors.New(dErrors.CodeCollisionExhausted, "identifier derivation attempts exhausted")
}

func (s *Service) countCollision() {
	if s.metrics != nil {
		s.metrics.CollisionRetries.Inc()
	}
}
