package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/listkeeper/listkeeper/internal/errors"
	"github.com/listkeeper/listkeeper/token"
)

const testSecret = "test-signing-secret"

// newServiceWithClock builds a service whose clock can be advanced by tests.
func newServiceWithClock(t *testing.T, options ...token.ServiceOption) (*token.Service, *time.Time) {
	t.Helper()

	now := time.Now()
	opts := append([]token.ServiceOption{
		token.WithNowTime(func() time.Time { return now }),
	}, options...)

	svc, err := token.NewService(testSecret, opts...)
	require.NoError(t, err)
	return svc, &now
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := token.NewService("")
	require.Error(t, err)
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc, _ := newServiceWithClock(t)

	signed, err := svc.Issue("user-1", token.Claims{"dev": "phone", "role": "admin"}, time.Minute)
	require.NoError(t, err)
	require.Len(t, strings.Split(signed, "."), 3)

	identity, err := svc.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "user-1", identity.UserID)
	require.Equal(t, "phone", identity.Claims["dev"])
	require.Equal(t, "admin", identity.Claims["role"])
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc, now := newServiceWithClock(t, token.WithClockSkew(0))

	signed, err := svc.Issue("user-1", nil, time.Second)
	require.NoError(t, err)

	*now = now.Add(2 * time.Second)

	_, err = svc.Verify(signed)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyAllowsSmallClockSkew(t *testing.T) {
	svc, now := newServiceWithClock(t) // default 5s skew

	signed, err := svc.Issue("user-1", nil, time.Second)
	require.NoError(t, err)

	// 2s past expiry is inside the skew allowance
	*now = now.Add(3 * time.Second)
	_, err = svc.Verify(signed)
	require.NoError(t, err)

	// 10s past expiry is not
	*now = now.Add(8 * time.Second)
	_, err = svc.Verify(signed)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc, _ := newServiceWithClock(t)

	signed, err := svc.Issue("user-1", token.Claims{"dev": "web"}, time.Minute)
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)

	// Flip one byte in the payload and in the signature, separately
	for _, idx := range []int{1, 2} {
		tampered := make([]string, 3)
		copy(tampered, parts)
		tampered[idx] = flipByte(tampered[idx])

		_, err := svc.Verify(strings.Join(tampered, "."))
		require.ErrorIs(t, err, apperrors.ErrInvalidToken, "tampered part %d", idx)
	}
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	svc, _ := newServiceWithClock(t)

	for _, raw := range []string{
		"",
		"not-a-token",
		"a.b",
		"a.b.c.d",
		"本当に.無効な.トークン",
	} {
		_, err := svc.Verify(raw)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken, "raw=%q", raw)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	svc, _ := newServiceWithClock(t)
	other, err := token.NewService("a-different-secret")
	require.NoError(t, err)

	signed, err := svc.Issue("user-1", nil, time.Minute)
	require.NoError(t, err)

	_, err = other.Verify(signed)
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestIssueIgnoresReservedClaims(t *testing.T) {
	svc, _ := newServiceWithClock(t)

	signed, err := svc.Issue("user-1", token.Claims{"sub": "someone-else", "exp": 0}, time.Minute)
	require.NoError(t, err)

	identity, err := svc.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, "user-1", identity.UserID)
}

func flipByte(part string) string {
	raw := []byte(part)
	i := len(raw) / 2
	if raw[i] == 'A' {
		raw[i] = 'B'
	} else {
		raw[i] = 'A'
	}
	return string(raw)
}
