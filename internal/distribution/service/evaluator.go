package service

import (
	"time"

	"reliefcore/internal/distribution/models"
)

// Evaluator answers the cooldown question: given the most recent event for a
// {household, category} pair, is another distribution allowed at instant now?
// Pure and deterministic; the ledger supplies the last event, the evaluator
// never reads state.
type Evaluator struct {
	cooldowns map[models.AidCategory]time.Duration
}

// Fallback windows for categories the configuration leaves unset. Eligibility
// fails closed: an unconfigured category still gets a real window, never zero.
var fallbackCooldowns = map[models.AidCategory]time.Duration{
	models.CategoryFood:     72 * time.Hour,
	models.CategoryWater:    24 * time.Hour,
	models.CategoryMedical:  7 * 24 * time.Hour,
	models.CategoryShelter:  30 * 24 * time.Hour,
	models.CategoryClothing: 30 * 24 * time.Hour,
	models.CategoryCash:     14 * 24 * time.Hour,
}

// NewEvaluator builds an evaluator from configured windows keyed by category
// name. Unknown keys are ignored; missing categories use the fallback table.
func NewEvaluator(configured map[string]time.Duration) *Evaluator {
	cooldowns := make(map[models.AidCategory]time.Duration, len(fallbackCooldowns))
	for category, window := range fallbackCooldowns {
		cooldowns[category] = window
		if d, ok := configured[string(category)]; ok && d > 0 {
			cooldowns[category] = d
		}
	}
	return &Evaluator{cooldowns: cooldowns}
}

// Window returns the cooldown window for a category.
func (e *Evaluator) Window(category models.AidCategory) time.Duration {
	return e.cooldowns[category]
}

// Evaluate applies the cooldown rule. No prior event means eligible. The
// boundary is inclusive: at exactly lastEvent + window the household is
// eligible again.
func (e *Evaluator) Evaluate(last *models.DistributionEvent, category models.AidCategory, now time.Time) models.EligibilityResult {
	if last == nil {
		return models.EligibilityResult{Eligible: true}
	}

	eligibleAt := last.Timestamp.Add(e.cooldowns[category])
	if now.Before(eligibleAt) {
		return models.EligibilityResult{
			Eligible:          false,
			CooldownRemaining: eligibleAt.Sub(now),
			LastEvent:         last,
		}
	}
	return models.EligibilityResult{Eligible: true, LastEvent: last}
}
