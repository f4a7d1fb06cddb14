// Package auth turns an owner password into signed tokens and tokens into access levels.
// The rest of the system only ever sees the resulting entries.AccessLevel.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/unowned-ai/quire/pkg/entries"
)

const (
	issuer  = "quire"
	subject = "owner"
)

var (
	// ErrBadCredentials is returned by Login for a wrong password.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrNotConfigured is returned by Login when no password hash or signing secret is set.
	ErrNotConfigured = errors.New("owner login is not configured")
)

// HashPassword returns a salted bcrypt hash of password for QUIRE_OWNER_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticator issues and checks owner tokens.
type Authenticator struct {
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time
	log          *zap.Logger
}

// NewAuthenticator returns an Authenticator for the owner password hash, signing tokens
// with secret. Tokens expire after ttl.
func NewAuthenticator(passwordHash, secret string, ttl time.Duration, log *zap.Logger) *Authenticator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Authenticator{
		passwordHash: []byte(passwordHash),
		secret:       []byte(secret),
		ttl:          ttl,
		now:          time.Now,
		log:          log.Named("auth"),
	}
}

// Login checks password against the owner hash and returns a signed token.
func (a *Authenticator) Login(password string) (string, error) {
	if len(a.passwordHash) == 0 || len(a.secret) == 0 {
		return "", ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		a.log.Warn("login rejected")
		return "", ErrBadCredentials
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	a.log.Info("owner logged in", zap.String("jti", claims.ID), zap.Time("expires", claims.ExpiresAt.Time))
	return token, nil
}

// Resolve maps a token to an access level. Empty, malformed, expired or foreign tokens
// resolve to entries.Public.
func (a *Authenticator) Resolve(token string) entries.AccessLevel {
	if token == "" || len(a.secret) == 0 {
		return entries.Public
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(subject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		a.log.Debug("token rejected", zap.Error(err))
		return entries.Public
	}
	return entries.Privileged
}
