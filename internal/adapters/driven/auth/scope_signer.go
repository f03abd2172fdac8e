package auth

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"github.com/sonpero/Notes2Notion/internal/core/domain"
	"github.com/sonpero/Notes2Notion/internal/core/ports/driven"
)

// Ensure ScopeSigner implements driven.ScopeSigner
var _ driven.ScopeSigner = (*ScopeSigner)(nil)

const (
	scopeIssuer   = "notes2notion-callback"
	scopeAudience = "notion-oauth-scope"
	hkdfInfo      = "notes2notion oauth scope cookie v1"
)

// ScopeSigner signs scope cookies as HS256 JWTs.
type ScopeSigner struct {
	key []byte
	now func() time.Time
}

// NewScopeSigner creates a signer whose key is derived from secret.
func NewScopeSigner(secret string) (*ScopeSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("cookie secret: %w", domain.ErrInvalidInput)
	}
	key, err := deriveKey([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}
	return &ScopeSigner{key: key, now: time.Now}, nil
}

// deriveKey expands secret into a 32-byte HMAC key.
func deriveKey(secret []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Sign returns a signed cookie value whose subject is scope.
func (s *ScopeSigner) Sign(scope string, expiresAt time.Time) (string, error) {
	if scope == "" {
		return "", fmt.Errorf("scope: %w", domain.ErrInvalidInput)
	}
	claims := jwt.RegisteredClaims{
		Subject:   scope,
		Issuer:    scopeIssuer,
		Audience:  jwt.ClaimStrings{scopeAudience},
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Verify validates a cookie value and returns its scope.
func (s *ScopeSigner) Verify(value string) (string, error) {
	if value == "" {
		return "", domain.ErrScopeInvalid
	}

	token, err := jwt.ParseWithClaims(value, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(scopeIssuer),
		jwt.WithAudience(scopeAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrScopeInvalid, err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", domain.ErrScopeInvalid
	}
	return claims.Subject, nil
}
