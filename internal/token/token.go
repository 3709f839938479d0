// Package token inspects the session tokens issued by the platform
// backend. The gateway never holds the signing secret, so payloads are
// decoded without signature verification and trusted only for local
// expiry decisions.
package token

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed = errors.New("token is malformed")
	ErrNoExpiry  = errors.New("token has no usable expiry claim")
)

type Payload struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Decode extracts the payload segment of a three-part signed token
// without verifying the signature. It fails on anything that is not a
// well-formed token with a numeric exp claim.
func Decode(raw string) (Payload, error) {
	if raw == "" {
		return Payload{}, ErrMalformed
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return Payload{}, ErrMalformed
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Payload{}, ErrNoExpiry
	}

	payload := Payload{ExpiresAt: exp.Time}

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		payload.IssuedAt = iat.Time
	}
	if sub, err := claims.GetSubject(); err == nil {
		payload.Subject = sub
	}

	return payload, nil
}

// Expired reports whether the token is expired at the given instant.
// Malformed tokens and tokens without a numeric exp claim count as
// expired: the caller must never end up trusting a token this package
// could not read.
func Expired(raw string, now time.Time) bool {
	payload, err := Decode(raw)
	if err != nil {
		return true
	}
	return payload.ExpiresAt.Before(now)
}
