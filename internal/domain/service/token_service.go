package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token verification failures. Callers that face the outside world report both
// the same way; the distinction is kept for logging and tests.
var (
	// ErrTokenMalformed covers unparsable tokens, bad signatures and invalid claims.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned when the token's expiry has elapsed.
	ErrTokenExpired = errors.New("token expired")
)

// Claims defines the custom claims for the JWT tokens.
type Claims struct {
	AccountID uuid.UUID `json:"-"`
	jwt.RegisteredClaims
}

// TokenService defines the interface for issuing and verifying identity tokens.
// This abstracts the details of token creation from the use cases.
type TokenService interface {
	// Issue creates a signed token for the given account.
	Issue(accountID uuid.UUID) (string, error)

	// Verify checks the signature and expiry of a token and returns its claims.
	Verify(tokenString string) (*Claims, error)

	// TTL returns how long issued tokens stay valid.
	TTL() time.Duration
}
