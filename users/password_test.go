package users_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
	"github.com/listkeeper/listkeeper/users"
)

func TestHashAndVerify(t *testing.T) {
	hasher := users.NewHasher()

	hash, err := hasher.Hash("Aa1!aaaa")
	require.NoError(t, err)
	require.NotContains(t, hash, "Aa1!aaaa")

	match, err := hasher.Verify("Aa1!aaaa", hash)
	require.NoError(t, err)
	require.True(t, match)

	match, err = hasher.Verify("Aa1!aaab", hash)
	require.NoError(t, err)
	require.False(t, match)
}

func TestHashProducesUniqueSalts(t *testing.T) {
	hasher := users.NewHasher()

	first, err := hasher.Hash("password123A")
	require.NoError(t, err)
	second, err := hasher.Hash("password123A")
	require.NoError(t, err)

	require.NotEqual(t, first, second)

	// Both still verify despite the differing salts
	for _, hash := range []string{first, second} {
		match, err := hasher.Verify("password123A", hash)
		require.NoError(t, err)
		require.True(t, match)
	}
}

func TestVerifyRejectsCorruptHash(t *testing.T) {
	hasher := users.NewHasher()

	corrupt := []string{
		"",
		"not-a-hash",
		"bcrypt$10$abc$def",
		"pbkdf2-sha256$notanumber$c2FsdA$aGFzaA",
		"pbkdf2-sha256$-5$c2FsdA$aGFzaA",
		"pbkdf2-sha256$120000$!!!$aGFzaA",
		"pbkdf2-sha256$120000$c2FsdA$!!!",
		"pbkdf2-sha256$120000$c2FsdA",
	}

	for _, stored := range corrupt {
		match, err := hasher.Verify("whatever", stored)
		require.ErrorIs(t, err, apperrors.ErrCorruptCredential, "stored=%q", stored)
		require.False(t, match)
	}
}

func TestHashFormat(t *testing.T) {
	hasher := users.NewHasher()

	hash, err := hasher.Hash("SomePassword1")
	require.NoError(t, err)

	parts := strings.Split(hash, "$")
	require.Len(t, parts, 4)
	require.Equal(t, "pbkdf2-sha256", parts[0])
	require.Equal(t, "120000", parts[1])
}

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Aa1!aaaa"))
	require.Error(t, users.ValidatePasswordStrength("short1A"))
	require.Error(t, users.ValidatePasswordStrength("alllowercase1"))
	require.Error(t, users.ValidatePasswordStrength("ALLUPPERCASE1"))
	require.Error(t, users.ValidatePasswordStrength("NoNumbersHere"))
}

func TestValidateEmail(t *testing.T) {
	require.NoError(t, users.ValidateEmail("a@x.com"))
	require.Error(t, users.ValidateEmail(""))
	require.Error(t, users.ValidateEmail("missing-at.com"))
	require.Error(t, users.ValidateEmail("@x.com"))
	require.Error(t, users.ValidateEmail("a@"))
	require.Error(t, users.ValidateEmail("a@nodot"))
}
