package anchor

import (
	"context"
	"log/slog"
	"time"

	"reliefcore/pkg/domain"
)

// JobKind distinguishes what is being anchored.
type JobKind string

const (
	JobRegistration JobKind = "registration"
	JobDistribution JobKind = "distribution"
)

// Job is one anchoring request queued by the domain services.
type Job struct {
	Kind      JobKind
	LookupKey domain.LookupKey
	EventID   domain.EventID
	At        time.Time
}

const (
	maxAttempts  = 3
	retryBackoff = 2 * time.Second
)

// Worker drains anchor jobs in the background. The anchoring service is
// slow and occasionally down; a bounded retry then a logged drop keeps the
// mirror best-effort without unbounded queue growth.
type Worker struct {
	client Client
	jobs   <-chan Job
	logger *slog.Logger
}

func NewWorker(client Client, jobs <-chan Job, logger *slog.Logger) *Worker {
	return &Worker{client: client, jobs: jobs, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-w.jobs:
			w.anchor(ctx, job)
		}
	}
}

func (w *Worker) anchor(ctx context.Context, job Job) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ref, err := w.dispatch(ctx, job)
		if err == nil {
			w.logger.DebugContext(ctx, "anchored",
				"kind", string(job.Kind),
				"ref", string(ref),
			)
			return
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryBackoff):
		}
	}
	w.logger.WarnContext(ctx, "anchoring dropped after retries",
		"kind", string(job.Kind),
		"lookup_key", string(job.LookupKey),
		"error", lastErr.Error(),
	)
}

func (w *Worker) dispatch(ctx context.Context, job Job) (Ref, error) {
	if job.Kind == JobDistribution {
		return w.client.AnchorDistribution(ctx, job.EventID, job.LookupKey, job.At)
	}
	return w.client.AnchorRegistration(ctx, job.LookupKey, job.At)
}
