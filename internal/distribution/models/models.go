package models

import (
	"strings"
	"time"

	"reliefcore/pkg/domain"
	dErrors "reliefcore/pkg/domain-errors"
)

// AidCategory is the closed enumeration of assistance classes. The cooldown
// table is indexed by category, so an unrecognized category must be a
// validation error, never a silent default.
type AidCategory string

const (
	CategoryFood     AidCategory = "FOOD"
	CategoryWater    AidCategory = "WATER"
	CategoryMedical  AidCategory = "MEDICAL"
	CategoryShelter  AidCategory = "SHELTER"
	CategoryClothing AidCategory = "CLOTHING"
	CategoryCash     AidCategory = "CASH"
)

// Categories lists every valid category, in stable order.
func Categories() []AidCategory {
	return []AidCategory{
		CategoryFood, CategoryWater, CategoryMedical,
		CategoryShelter, CategoryClothing, CategoryCash,
	}
}

// ParseCategory validates and canonicalizes a category string.
func ParseCategory(s string) (AidCategory, error) {
	c := AidCategory(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CategoryFood, CategoryWater, CategoryMedical, CategoryShelter, CategoryClothing, CategoryCash:
		return c, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "unknown aid category: "+s)
	}
}

// MaxQuantity bounds a single distribution. Larger grants are split into
// multiple events by the caller.
const MaxQuantity = 10000

// DistributionEvent is one append-only ledger entry. Events are never updated
// or deleted; a recorded event is a confirmed event, because appends only
// happen after the eligibility check passes inside the same critical section.
type DistributionEvent struct {
	ID        domain.EventID
	LookupKey domain.LookupKey
	AgentID   domain.AgentID
	Category  AidCategory
	Quantity  int
	Location  string
	Timestamp time.Time
	Confirmed bool
}

// Validate rejects malformed events before they reach the ledger.
func (e DistributionEvent) Validate() error {
	if e.LookupKey == "" {
		return dErrors.New(dErrors.CodeValidation, "lookup key is required")
	}
	if _, err := ParseCategory(string(e.Category)); err != nil {
		return err
	}
	if e.Quantity <= 0 || e.Quantity > MaxQuantity {
		return dErrors.New(dErrors.CodeValidation, "quantity must be positive and at most 10000")
	}
	if strings.TrimSpace(e.Location) == "" {
		return dErrors.New(dErrors.CodeValidation, "location is required")
	}
	return nil
}

// RecordRequest carries caller input into the distribution workflow.
type RecordRequest struct {
	LookupKey string
	Category  string
	Quantity  int
	Location  string
	AgentRef  string
}

// EligibilityResult is the outcome of a cooldown check.
type EligibilityResult struct {
	Eligible          bool
	CooldownRemaining time.Duration
	LastEvent         *DistributionEvent
}
