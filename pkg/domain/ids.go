// Package domain holds the typed identifiers shared across the engine.
// Distinct types keep a URID from ever being passed where a lookup key is
// expected; the compiler enforces what code review would otherwise have to.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "reliefcore/pkg/domain-errors"
)

// URIDLength is the fixed length of a household identifier.
const URIDLength = 16

const uridAlphabet = "0123456789ABCDEF"

// LookupKeyLength is the fixed length of the one-way lookup key (hex SHA-256).
const LookupKeyLength = 64

// URID is the unique household identifier issued after identity verification:
// 16 uppercase hexadecimal characters. Immutable once issued.
type URID string

// LookupKey is the one-way hash of a URID, shareable externally (and with the
// anchoring ledger) without disclosing the URID itself.
type LookupKey string

// IdentityHash is the opaque proof token produced by the external identity
// verifier. It is never stored alongside recoverable personal data and is
// only ever compared by equality.
type IdentityHash string

// AgentID identifies the field agent recording a distribution.
type AgentID uuid.UUID

// EventID identifies a single distribution event.
type EventID uuid.UUID

// ValidURID reports whether s has URID length and alphabet.
func ValidURID(s string) bool {
	if len(s) != URIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(uridAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

// ParseURID validates format before any downstream use.
func ParseURID(s string) (URID, error) {
	if !ValidURID(s) {
		return "", dErrors.New(dErrors.CodeValidation, "identifier must be 16 uppercase hex characters")
	}
	return URID(s), nil
}

// ValidLookupKey reports whether s is a well-formed lookup key.
func ValidLookupKey(s string) bool {
	if len(s) != LookupKeyLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// ParseLookupKey validates format before any downstream use.
func ParseLookupKey(s string) (LookupKey, error) {
	if !ValidLookupKey(s) {
		return "", dErrors.New(dErrors.CodeValidation, "lookup key must be 64 lowercase hex characters")
	}
	return LookupKey(s), nil
}

// ParseIdentityHash accepts the verifier's proof token as-is but rejects
// values that cannot be a fixed-length hash output.
func ParseIdentityHash(s string) (IdentityHash, error) {
	if len(s) < 32 || len(s) > 128 {
		return "", dErrors.New(dErrors.CodeValidation, "identity hash has unexpected length")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return "", dErrors.New(dErrors.CodeValidation, "identity hash contains whitespace")
	}
	return IdentityHash(s), nil
}

// ParseAgentID requires a valid, non-nil UUID.
func ParseAgentID(s string) (AgentID, error) {
	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return AgentID(uuid.Nil), dErrors.New(dErrors.CodeValidation, "agent id must be a valid UUID")
	}
	return AgentID(u), nil
}

func (a AgentID) String() string { return uuid.UUID(a).String() }

func (e EventID) String() string { return uuid.UUID(e).String() }

// NewEventID mints a fresh event identifier.
func NewEventID() EventID { return EventID(uuid.New()) }
