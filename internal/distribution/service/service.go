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
	distmetrics "reliefcore/internal/distribution/metrics"
	"reliefcore/internal/distribution/models"
	regmodels "reliefcore/internal/registration/models"
	"reliefcore/pkg/domain"
	dErrors "reliefcore/pkg/domain-errors"
	"reliefcore/pkg/platform/sentinel"
	"reliefcore/pkg/requestcontext"
)

// Ledger is the append-only event log the workflow needs. ExecuteAppend must
// run check and the append atomically per {lookup key, category}.
type Ledger interface {
	ExecuteAppend(
		ctx context.Context,
		key domain.LookupKey,
		category models.AidCategory,
		check func(last *models.DistributionEvent) error,
		build func() models.DistributionEvent,
	) (models.DistributionEvent, error)
	LatestByCategory(ctx context.Context, key domain.LookupKey, category models.AidCategory) (models.DistributionEvent, error)
	LatestPerCategory(ctx context.Context, key domain.LookupKey, categories []models.AidCategory) (map[models.AidCategory]models.DistributionEvent, error)
	History(ctx context.Context, key domain.LookupKey, category *models.AidCategory) ([]models.DistributionEvent, error)
}

// HouseholdDirectory resolves lookup keys to registration records. Only
// active households receive aid.
type HouseholdDirectory interface {
	FindByLookupKey(ctx context.Context, key domain.LookupKey) (regmodels.RegistrationRecord, error)
}

// Service owns the distribution workflow: resolve the household, check the
// category cooldown, and append to the ledger — the last two inside one
// critical section, so two agents at different sites cannot both slip through
// the same cooldown window.
type Service struct {
	ledger     Ledger
	households HouseholdDirectory
	evaluator  *Evaluator
	logger     *slog.Logger
	metrics    *distmetrics.Metrics
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

func WithMetrics(m *distmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithAnchorQueue(jobs chan<- anchor.Job) Option {
	return func(s *Service) { s.anchorJobs = jobs }
}

func NewService(ledger Ledger, households HouseholdDirectory, evaluator *Evaluator, opts ...Option) *Service {
	s := &Service{
		ledger:     ledger,
		households: households,
		evaluator:  evaluator,
		logger:     slog.New(slog.DiscardHandler),
		tracer:     otel.Tracer("reliefcore/distribution"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends a distribution event if and only if the household is active
// and the category cooldown has elapsed. The eligibility check runs inside
// the ledger's critical section; a concurrent Record for the same pair either
// lands first or sees this event and is denied.
func (s *Service) Record(ctx context.Context, req models.RecordRequest) (models.DistributionEvent, error) {
	ctx, span := s.tracer.Start(ctx, "distribution.Record")
	defer span.End()

	start := time.Now()

	key, err := domain.ParseLookupKey(req.LookupKey)
	if err != nil {
		return models.DistributionEvent{}, err
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		return models.DistributionEvent{}, err
	}
	agentID, err := domain.ParseAgentID(req.AgentRef)
	if err != nil {
		return models.DistributionEvent{}, err
	}

	if err := s.requireActive(ctx, key); err != nil {
		return models.DistributionEvent{}, err
	}

	now := requestcontext.Now(ctx)
	event, err := s.ledger.ExecuteAppend(ctx, key, category,
		func(last *models.DistributionEvent) error {
			result := s.evaluator.Evaluate(last, category, now)
			if !result.Eligible {
				return notEligibleError(category, result)
			}
			return nil
		},
		func() models.DistributionEvent {
			return models.DistributionEvent{
				ID:        domain.NewEventID(),
				LookupKey: key,
				AgentID:   agentID,
				Category:  category,
				Quantity:  req.Quantity,
				Location:  req.Location,
				Timestamp: now,
				Confirmed: true,
			}
		},
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotEligible) {
			if s.metrics != nil {
				s.metrics.CooldownRejections.WithLabelValues(string(category)).Inc()
			}
			s.emit(ctx, audit.Event{
				Action:    audit.ActionEligibilityDenied,
				LookupKey: key,
				Category:  string(category),
				Reason:    "cooldown active",
			})
			return models.DistributionEvent{}, err
		}
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return models.DistributionEvent{}, err
		}
		return models.DistributionEvent{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record distribution")
	}

	if s.metrics != nil {
		s.metrics.DistributionsTotal.WithLabelValues(string(category)).Inc()
		s.metrics.DistributeDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}
	s.emit(ctx, audit.Event{
		Action:    audit.ActionDistributionRecorded,
		LookupKey: key,
		Category:  string(category),
		Quantity:  event.Quantity,
		Location:  event.Location,
	})
	s.queueAnchor(anchor.Job{Kind: anchor.JobDistribution, EventID: event.ID, LookupKey: key, At: now})

	return event, nil
}

// CheckEligibility answers the advisory question for one category. The answer
// can go stale the moment it is returned; Record re-checks authoritatively.
func (s *Service) CheckEligibility(ctx context.Context, lookupKey, category string) (models.EligibilityResult, error) {
	key, err := domain.ParseLookupKey(lookupKey)
	if err != nil {
		return models.EligibilityResult{}, err
	}
	cat, err := models.ParseCategory(category)
	if err != nil {
		return models.EligibilityResult{}, err
	}
	if err := s.requireActive(ctx, key); err != nil {
		return models.EligibilityResult{}, err
	}
	if s.metrics != nil {
		s.metrics.EligibilityChecks.Inc()
	}

	last, err := s.ledger.LatestByCategory(ctx, key, cat)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return s.evaluator.Evaluate(nil, cat, requestcontext.Now(ctx)), nil
	case err != nil:
		return models.EligibilityResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read ledger")
	}
	return s.evaluator.Evaluate(&last, cat, requestcontext.Now(ctx)), nil
}

// EligibilitySummary evaluates every category at once for a field agent's
// overview screen.
func (s *Service) EligibilitySummary(ctx context.Context, lookupKey string) (map[models.AidCategory]models.EligibilityResult, error) {
	key, err := domain.ParseLookupKey(lookupKey)
	if err != nil {
		return nil, err
	}
	if err := s.requireActive(ctx, key); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.EligibilityChecks.Inc()
	}

	latest, err := s.ledger.LatestPerCategory(ctx, key, models.Categories())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read ledger")
	}

	now := requestcontext.Now(ctx)
	out := make(map[models.AidCategory]models.EligibilityResult, len(models.Categories()))
	for _, category := range models.Categories() {
		var last *models.DistributionEvent
		if ev, ok := latest[category]; ok {
			last = &ev
		}
		out[category] = s.evaluator.Evaluate(last, category, now)
	}
	return out, nil
}

// History returns a household's distribution events, most recent first,
// optionally filtered to one category.
func (s *Service) History(ctx context.Context, lookupKey, category string) ([]models.DistributionEvent, error) {
	key, err := domain.ParseLookupKey(lookupKey)
	if err != nil {
		return nil, err
	}
	var filter *models.AidCategory
	if category != "" {
		cat, err := models.ParseCategory(category)
		if err != nil {
			return nil, err
		}
		filter = &cat
	}
	if err := s.requireActive(ctx, key); err != nil {
		return nil, err
	}

	events, err := s.ledger.History(ctx, key, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read ledger")
	}
	return events, nil
}

// requireActive resolves the lookup key to a registered, active household.
// An unknown key and a deactivated household are indistinguishable to
// callers: both are not_found, so a revoked card leaks nothing about whether
// it ever existed.
func (s *Service) requireActive(ctx context.Context, key domain.LookupKey) error {
	rec, err := s.households.FindByLookupKey(ctx, key)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "household not found")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load household")
	}
	if !rec.Active {
		return dErrors.New(dErrors.CodeNotFound, "household not found")
	}
	return nil
}

func notEligibleError(category models.AidCategory, result models.EligibilityResult) error {
	return dErrors.New(dErrors.CodeNotEligible, "cooldown active for "+string(category)).
		WithDetail("retry_after_seconds", result.CooldownRemaining.Round(time.Second).String())
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
		// Best-effort mirror; never block a distribution on the anchor queue.
	}
}
