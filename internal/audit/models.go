package audit

import (
	"time"

	"reliefcore/pkg/domain"
)

// Action names the domain occurrence an audit event records.
type Action string

const (
	ActionHouseholdRegistered   Action = "household_registered"
	ActionDuplicateRejected     Action = "duplicate_rejected"
	ActionCollisionExhausted    Action = "collision_exhausted"
	ActionDistributionRecorded  Action = "distribution_recorded"
	ActionEligibilityDenied     Action = "eligibility_denied"
	ActionHouseholdDeactivated  Action = "household_deactivated"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. Only the lookup key
// ever appears here; identity hashes and URIDs stay out of the audit trail.
type Event struct {
	Timestamp time.Time
	Action    Action
	LookupKey domain.LookupKey
	AgentID   string
	Category  string
	Quantity  int
	Location  string
	RequestID string
	Reason    string
}
