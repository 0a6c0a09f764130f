// Package anchor defines the port to the external ledger that mirrors
// registrations and distributions. Anchoring is best effort: the engine's
// invariants never wait on it, and a failed anchor never invalidates a
// registration or a recorded distribution.
package anchor

import (
	"context"
	"time"

	"reliefcore/pkg/domain"
)

// Ref is the durable external reference (e.g. a transaction id) returned by
// the anchoring service.
type Ref string

// Client is implemented by the ledger integration. Only lookup keys cross
// this boundary; URIDs and identity hashes never leave the engine.
type Client interface {
	AnchorRegistration(ctx context.Context, lookupKey domain.LookupKey, registeredAt time.Time) (Ref, error)
	AnchorDistribution(ctx context.Context, eventID domain.EventID, lookupKey domain.LookupKey, recordedAt time.Time) (Ref, error)
}

// Noop satisfies Client when no ledger is configured.
type Noop struct{}

func (Noop) AnchorRegistration(context.Context, domain.LookupKey, time.Time) (Ref, error) {
	return "", nil
}

func (Noop) AnchorDistribution(context.Context, domain.EventID, domain.LookupKey, time.Time) (Ref, error) {
	return "", nil
}
