package models

import (
	"strings"
	"time"

	"reliefcore/pkg/domain"
	dErrors "reliefcore/pkg/domain-errors"
)

// Household size bounds. A registration claiming more members than this is a
// data-entry error, not a real household.
const (
	MinHouseholdSize = 1
	MaxHouseholdSize = 20
)

// RegistrationRecord is the durable description of a registered household.
// Created exactly once; mutated only to toggle the active flag; never deleted,
// so duplicate-prevention history survives deactivation.
type RegistrationRecord struct {
	URID          domain.URID
	LookupKey     domain.LookupKey
	IdentityHash  domain.IdentityHash
	HouseholdSize int
	Location      string
	Contact       string
	RegisteredAt  time.Time
	Active        bool
}

// RegisterRequest carries caller input into the registration workflow.
type RegisterRequest struct {
	IdentityHash  string
	Location      string
	HouseholdSize int
	Contact       string
}

// Validate rejects caller-fixable problems before any store is touched.
func (r RegisterRequest) Validate() error {
	if _, err := domain.ParseIdentityHash(r.IdentityHash); err != nil {
		return err
	}
	if strings.TrimSpace(r.Location) == "" {
		return dErrors.New(dErrors.CodeValidation, "location is required")
	}
	if r.HouseholdSize < MinHouseholdSize || r.HouseholdSize > MaxHouseholdSize {
		return dErrors.New(dErrors.CodeValidation, "household size must be between 1 and 20")
	}
	return nil
}

// Registration is the successful result handed back to the caller.
type Registration struct {
	URID      domain.URID
	LookupKey domain.LookupKey
}
