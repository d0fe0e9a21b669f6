// Package auth issues and checks session tokens for the memo API.
//
// Two sign-in paths end in the same place:
//  1. GitHub OAuth: /auth/github/login redirects to GitHub, the callback
//     exchanges the code for a profile and upserts the user.
//  2. Email: /auth/email stores a hashed one-time code and mails a link;
//     /auth/email/verify consumes the code and finds or creates the user.
//
// Either way the server signs a JWT whose subject is the internal user ID.
// Browsers receive it as the HttpOnly "token" cookie; the CLI keeps it in
// its config file and sends it as "Authorization: Bearer <token>".
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"userID","exp":1234567890,"iss":"memopad"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/memopad/internal/apperror"
)

const (
	issuer = "memopad"

	// DefaultTokenTTL keeps a session alive for a week. Memos are edited
	// across days and the CLI has no refresh flow.
	DefaultTokenTTL = 7 * 24 * time.Hour
)

// TokenService signs and validates session tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), ttl: DefaultTokenTTL}, nil
}

// TTL is how long tokens from Generate stay valid.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. "sub" holds the internal user ID.
type claims struct {
	jwt.RegisteredClaims
}

// Generate issues a token for userID valid for the service TTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration issues a token valid for d. A negative d yields an
// already expired token, which tests use.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate returns the user ID in tokenStr. Every failure wraps
// apperror.ErrUnauthorized.
//
// Pinning the method to HS256 closes the "alg: none" and RS256/HS256
// confusion attacks: a token signed any other way is rejected before the
// signature is checked.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperror.Unauthorized("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", errors.Join(apperror.ErrUnauthorized, err))
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", apperror.Unauthorized("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", apperror.Unauthorized("auth: token has no subject")
	}
	return c.Subject, nil
}
