package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unowned-ai/quire/pkg/entries"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	return NewAuthenticator(hash, "test-secret", time.Hour, nil)
}

func TestHashPassword(t *testing.T) {
	a, err := HashPassword("pw")
	require.NoError(t, err)
	b, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "hashes must be salted")
	assert.NotContains(t, a, "pw")

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestLoginAndResolve(t *testing.T) {
	a := newTestAuthenticator(t)

	token, err := a.Login("correct horse")
	require.NoError(t, err)
	assert.Equal(t, entries.Privileged, a.Resolve(token))

	other, err := a.Login("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, token, other, "every token carries its own id")
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	a := newTestAuthenticator(t)

	_, err := a.Login("wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestLoginNotConfigured(t *testing.T) {
	_, err := NewAuthenticator("", "secret", time.Hour, nil).Login("anything")
	assert.ErrorIs(t, err, ErrNotConfigured)

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	_, err = NewAuthenticator(hash, "", time.Hour, nil).Login("pw")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestResolveRejects(t *testing.T) {
	a := newTestAuthenticator(t)
	valid, err := a.Login("correct horse")
	require.NoError(t, err)

	foreign := NewAuthenticator(string(a.passwordHash), "another-secret", time.Hour, nil)
	foreignToken, err := foreign.Login("correct horse")
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"Empty", ""},
		{"Garbage", "not-a-token"},
		{"Tampered", valid + "x"},
		{"OtherSecret", foreignToken},
		{"NoneAlgorithm", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, entries.Public, a.Resolve(tt.token))
		})
	}
}

func TestResolveExpired(t *testing.T) {
	a := newTestAuthenticator(t)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return issued }

	token, err := a.Login("correct horse")
	require.NoError(t, err)
	assert.Equal(t, entries.Privileged, a.Resolve(token))

	a.now = func() time.Time { return issued.Add(2 * time.Hour) }
	assert.Equal(t, entries.Public, a.Resolve(token))
}

func TestResolveWithoutSecret(t *testing.T) {
	a := newTestAuthenticator(t)
	token, err := a.Login("correct horse")
	require.NoError(t, err)

	unconfigured := NewAuthenticator("", "", time.Hour, nil)
	assert.Equal(t, entries.Public, unconfigured.Resolve(token))
}
