package urid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reliefcore/pkg/domain"
)

const testHash = domain.IdentityHash("3a7bd3e2360a3d29eea436fcfb7e44c735d117c42d1c1835420b6b9942dd4f1b")

func TestDerive(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		a, err := Derive(testHash, "Delhi", 4, 42)
		require.NoError(t, err)
		b, err := Derive(testHash, "Delhi", 4, 42)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("produces a format-valid identifier", func(t *testing.T) {
		urid, err := Derive(testHash, "Delhi", 4, 42)
		require.NoError(t, err)
		assert.Len(t, string(urid), domain.URIDLength)
		assert.True(t, ValidateFormat(string(urid)))
	})

	t.Run("changes with the disambiguator", func(t *testing.T) {
		a, err := Derive(testHash, "Delhi", 4, 1)
		require.NoError(t, err)
		b, err := Derive(testHash, "Delhi", 4, 2)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("changes with household size", func(t *testing.T) {
		a, err := Derive(testHash, "Delhi", 4, 1)
		require.NoError(t, err)
		b, err := Derive(testHash, "Delhi", 5, 1)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("is insensitive to location formatting", func(t *testing.T) {
		a, err := Derive(testHash, "New  Delhi ", 4, 1)
		require.NoError(t, err)
		b, err := Derive(testHash, "new delhi", 4, 1)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("rejects empty identity hash", func(t *testing.T) {
		_, err := Derive("", "Delhi", 4, 1)
		assert.Error(t, err)
	})
}

func TestLookupKey(t *testing.T) {
	urid, err := Derive(testHash, "Delhi", 4, 42)
	require.NoError(t, err)

	t.Run("is pure", func(t *testing.T) {
		assert.Equal(t, LookupKey(urid), LookupKey(urid))
	})

	t.Run("is lowercase hex sha-256", func(t *testing.T) {
		key := string(LookupKey(urid))
		assert.Len(t, key, domain.LookupKeyLength)
		assert.Equal(t, strings.ToLower(key), key)
		assert.True(t, domain.ValidLookupKey(key))
	})

	t.Run("differs across identifiers", func(t *testing.T) {
		other, err := Derive(testHash, "Delhi", 4, 43)
		require.NoError(t, err)
		assert.NotEqual(t, LookupKey(urid), LookupKey(other))
	})
}

func TestNormalizeLocation(t *testing.T) {
	assert.Equal(t, "NEW DELHI", NormalizeLocation("  new   Delhi "))
	assert.Equal(t, "", NormalizeLocation("   "))
}
