// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"accounts/config"
	"accounts/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
type jwtService struct {
	secret []byte           // Secret key for signing access tokens.
	ttl    time.Duration    // Time-to-live for access tokens.
	now    func() time.Time // Clock used for iat/exp and for validation.
}

// JWTOption customises a jwtService.
type JWTOption func(*jwtService)

// WithClock replaces the wall clock used for issuing and validating tokens.
func WithClock(now func() time.Time) JWTOption {
	return func(s *jwtService) {
		s.now = now
	}
}

// NewJWTService is the constructor for jwtService.
// The signing secret comes from configuration only; an empty secret is an error.
// Tokens always expire config.DefaultTokenTTL after issuance.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	return NewJWTServiceWithSecret([]byte(cfg.SecretKey.Access), config.DefaultTokenTTL)
}

// NewJWTServiceWithSecret creates a token service from an explicit secret and lifetime.
func NewJWTServiceWithSecret(secret []byte, ttl time.Duration, opts ...JWTOption) (service.TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret must be provided")
	}
	if ttl <= 0 {
		return nil, errors.Errorf("jwt ttl must be positive, got %s", ttl)
	}

	s := &jwtService{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Issue creates a signed access token whose expiry is exactly ttl after its issue time.
func (s *jwtService) Issue(accountID uuid.UUID) (string, error) {
	issuedAt := s.now().Truncate(time.Second)

	claims := jwt.RegisteredClaims{
		Subject:   accountID.String(),                      // Subject (who the token is for)
		IssuedAt:  jwt.NewNumericDate(issuedAt),            // Issued At
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)), // Expiration Time
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// Verify checks the signature and expiry of a token string.
// Expired tokens fail with service.ErrTokenExpired, everything else with service.ErrTokenMalformed.
func (s *jwtService) Verify(tokenString string) (*service.Claims, error) {
	claims := &service.Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.Wrap(service.ErrTokenExpired, err.Error())
		}

		return nil, errors.Wrap(service.ErrTokenMalformed, err.Error())
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(service.ErrTokenMalformed, "invalid subject")
	}
	claims.AccountID = accountID

	return claims, nil
}

// TTL returns the configured lifetime of access tokens.
func (s *jwtService) TTL() time.Duration {
	return s.ttl
}
