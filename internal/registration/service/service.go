package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"reliefcore/internal/anchor"
	"reliefcore/internal/audit"
	regmetrics "reliefcore/internal/registration/metrics"
	"reliefcore/internal/registration/models"
	"reliefcore/internal/registration/store/identity"
	"reliefcore/internal/urid"
	"reliefcore/pkg/domain"
	dErrors "reliefcore/pkg/domain-errors"
	"reliefcore/pkg/platform/sentinel"
	"reliefcore/pkg/requestcontext"
)

// RecordStore is the registration-record persistence the workflow needs.
type RecordStore interface {
	Create(ctx context.Context, rec models.RegistrationRecord) error
	Exists(ctx context.Context, urid domain.URID) (bool, error)
	FindByURID(ctx context.Context, urid domain.URID) (models.RegistrationRecord, error)
	FindByLookupKey(ctx context.Context, key domain.LookupKey) (models.RegistrationRecord, error)
	Deactivate(ctx context.Context, urid domain.URID, now time.Time) error
}

// IdentityIndex is the duplicate-prevention index. Reserve must be atomic
// with respect to concurrent callers presenting the same identity hash.
type IdentityIndex interface {
	Reserve(ctx context.Context, hash domain.IdentityHash) (identity.Reservation, error)
	Commit(ctx context.Context, res identity.Reservation, urid domain.URID) error
	Release(ctx context.Context, res identity.Reservation) error
	Lookup(ctx context.Context, hash domain.IdentityHash) (domain.URID, error)
}

// Service owns the registration workflow: reserve the identity, derive a free
// identifier, persist the record, commit the identity mapping. Any failure
// after the reservation rolls it back so a failed registration never burns an
// identity slot.
type Service struct {
	records    RecordStore
	identities IdentityIndex
	logger     *slog.Logger
	metrics    *regmetrics.Metrics
	audit      *audit.Publisher
	anchorJobs chan<- anchor.Job
	tracer     trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *regmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithAnchorQueue(jobs chan<- anchor.Job) Option {
	return func(s *Service) { s.anchorJobs = jobs }
}

func NewService(records RecordStore, identities IdentityIndex, opts ...Option) *Service {
	s := &Service{
		records:    records,
		identities: identities,
		logger:     slog.New(slog.DiscardHandler),
		tracer:     otel.Tracer("reliefcore/registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register issues a household identifier for a verified identity, exactly
// once per identity for the lifetime of the system.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (models.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Register")
	defer span.End()

	start := time.Now()

	if err := req.Validate(); err != nil {
		return models.Registration{}, err
	}
	hash, err := domain.ParseIdentityHash(req.IdentityHash)
	if err != nil {
		return models.Registration{}, err
	}

	res, err := s.identities.Reserve(ctx, hash)
	if err != nil {
		return models.Registration{}, s.duplicateError(ctx, hash, err)
	}

	rec, err := s.persistWithFreeIdentifier(ctx, hash, req)
	if err != nil {
		s.rollback(ctx, res)
		if s.metrics != nil && dErrors.HasCode(err, dErrors.CodeDuplicateIdentity) {
			s.metrics.DuplicatesRejected.Inc()
		}
		return models.Registration{}, err
	}
	id := rec.URID
	now := rec.RegisteredAt

	// The record is durable; commit the identity mapping to finish.
	if err := s.identities.Commit(ctx, res, id); err != nil {
		// The record exists but the identity mapping is gone. This only
		// happens when the reservation expired mid-flow; surface loudly.
		s.logger.ErrorContext(ctx, "identity commit failed after record persisted",
			"urid", string(id),
			"error", err.Error(),
		)
		return models.Registration{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize registration")
	}

	if s.metrics != nil {
		s.metrics.RegistrationsTotal.Inc()
		s.metrics.RegisterDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}
	s.emit(ctx, audit.Event{
		Action:    audit.ActionHouseholdRegistered,
		LookupKey: rec.LookupKey,
		Location:  rec.Location,
	})
	s.queueAnchor(anchor.Job{Kind: anchor.JobRegistration, LookupKey: rec.LookupKey, At: now})

	return models.Registration{URID: rec.URID, LookupKey: rec.LookupKey}, nil
}

// Lookup resolves a household by URID or lookup key, decided by format.
func (s *Service) Lookup(ctx context.Context, ref string) (models.RegistrationRecord, error) {
	switch {
	case domain.ValidURID(ref):
		rec, err := s.records.FindByURID(ctx, domain.URID(ref))
		return rec, s.notFoundError(err)
	case domain.ValidLookupKey(ref):
		rec, err := s.records.FindByLookupKey(ctx, domain.LookupKey(ref))
		return rec, s.notFoundError(err)
	default:
		return models.RegistrationRecord{}, dErrors.New(dErrors.CodeValidation, "reference is neither an identifier nor a lookup key")
	}
}

// Deactivate administratively disables a household. The record and its
// duplicate-prevention entry survive, so the identity can never re-register.
func (s *Service) Deactivate(ctx context.Context, id domain.URID) error {
	now := requestcontext.Now(ctx)
	err := s.records.Deactivate(ctx, id, now)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "household not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "household is already inactive")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate household")
	}

	s.emit(ctx, audit.Event{
		Action:    audit.ActionHouseholdDeactivated,
		LookupKey: urid.LookupKey(id),
	})
	return nil
}

func (s *Service) duplicateError(ctx context.Context, hash domain.IdentityHash, cause error) error {
	if s.metrics != nil {
		s.metrics.DuplicatesRejected.Inc()
	}

	derr := dErrors.New(dErrors.CodeDuplicateIdentity, "identity already registered")
	if errors.Is(cause, sentinel.ErrAlreadyUsed) {
		if existing, err := s.identities.Lookup(ctx, hash); err == nil {
			derr = derr.WithDetail("existing_urid", string(existing))
			s.emit(ctx, audit.Event{
				Action:    audit.ActionDuplicateRejected,
				LookupKey: urid.LookupKey(existing),
			})
		}
		return derr
	}
	if errors.Is(cause, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeDuplicateIdentity, "registration already in progress for this identity")
	}
	return dErrors.Wrap(cause, dErrors.CodeInternal, "failed to reserve identity")
}

func (s *Service) notFoundError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "household not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load household")
	}
	return nil
}

// rollback releases the reservation even when the caller's context already
// expired: a timeout is a downstream failure, not a reason to leak the slot.
func (s *Service) rollback(ctx context.Context, res identity.Reservation) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.identities.Release(releaseCtx, res); err != nil {
		s.logger.ErrorContext(releaseCtx, "failed to release identity reservation",
			"error", err.Error(),
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if event.AgentID == "" {
		event.AgentID = requestcontext.AgentID(ctx)
	}
	s.audit.Emit(ctx, event)
}

func (s *Service) queueAnchor(job anchor.Job) {
	if s.anchorJobs == nil {
		return
	}
	select {
	case s.anchorJobs <- job:
	default:
		// Anchoring is a best-effort mirror; a full queue never blocks
		// registration.
	}
}
