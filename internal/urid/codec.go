// Package urid derives household identifiers and their lookup keys. Everything
// here is pure: same inputs always yield the same output, so any party holding
// the inputs can recompute an identifier for verification without a lookup.
// Storage is never touched at this layer; retry/uniqueness concerns belong to
// the registration workflow.
package urid

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/hkdf"

	"reliefcore/pkg/domain"
)

// uridBytes expands to 16 hex characters.
const uridBytes = domain.URIDLength / 2

// Derive computes the candidate identifier for a verified identity. The
// disambiguation salt is supplied by the caller; varying it is the only way to
// move to a different point in the identifier space for the same identity.
func Derive(identityHash domain.IdentityHash, location string, householdSize int, disambiguator int64) (domain.URID, error) {
	if identityHash == "" {
		return "", fmt.Errorf("derive: empty identity hash")
	}

	salt := []byte(fmt.Sprintf("%s|%d", NormalizeLocation(location), householdSize))
	info := make([]byte, 8)
	binary.BigEndian.PutUint64(info, uint64(disambiguator))

	r := hkdf.New(sha256.New, []byte(identityHash), salt, info)
	out := make([]byte, uridBytes)
	if _, err := r.Read(out); err != nil {
		return "", fmt.Errorf("derive: %w", err)
	}

	return domain.URID(strings.ToUpper(hex.EncodeToString(out))), nil
}

// ValidateFormat checks length and character set of a candidate identifier.
func ValidateFormat(candidate string) bool {
	return domain.ValidURID(candidate)
}

// LookupKey computes the one-way, externally shareable reference for an
// identifier. Deterministic function of the identifier only; stable across
// process restarts.
func LookupKey(urid domain.URID) domain.LookupKey {
	sum := sha256.Sum256([]byte(urid))
	return domain.LookupKey(hex.EncodeToString(sum[:]))
}

// NormalizeLocation canonicalizes free-text locations so "New  Delhi " and
// "new delhi" derive identically: whitespace collapsed, upper-cased.
func NormalizeLocation(location string) string {
	return strings.ToUpper(strings.Join(strings.Fields(location), " "))
}
