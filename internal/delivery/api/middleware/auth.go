package middleware

import (
	"log/slog"
	"strings"

	deliverycontext "accounts/internal/delivery/context"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

const bearerPrefix = "Bearer "

// AuthState is the outcome of checking a request's bearer token.
type AuthState int

const (
	// AuthNoToken means the request carried no usable bearer token.
	AuthNoToken AuthState = iota
	// AuthMalformed means the token failed to parse or verify.
	AuthMalformed
	// AuthExpired means the token verified but its expiry has passed.
	AuthExpired
	// AuthValid means the token verified and names an account.
	AuthValid
)

func (s AuthState) String() string {
	switch s {
	case AuthNoToken:
		return "no_token"
	case AuthMalformed:
		return "malformed"
	case AuthExpired:
		return "expired"
	case AuthValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Err returns the error a caller sees for the state, or nil when the token is valid.
// Malformed and expired tokens are reported identically.
func (s AuthState) Err() error {
	switch s {
	case AuthValid:
		return nil
	case AuthNoToken:
		return domainerrors.ErrNoToken
	default:
		return domainerrors.ErrInvalidToken
	}
}

// AuthMiddleware gates routes behind a valid access token.
type AuthMiddleware struct {
	tokenSvc service.TokenService
	logger   *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokenSvc: tokenSvc,
		logger:   logger,
	}
}

// Authenticate validates the access token before running next.
// On success the account ID is available through GetAccountID and on the request context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		state, accountID := m.Resolve(c.Request().Header.Get(echo.HeaderAuthorization))
		if state != AuthValid {
			deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).Warn("Request rejected by auth middleware",
				slog.String("auth_state", state.String()),
				slog.String("path", c.Request().URL.Path),
			)

			return errors.WithStack(state.Err())
		}

		deliverycontext.SetAccountID(c, accountID)
		ctx := deliverycontext.WithAccountID(c.Request().Context(), accountID)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

// Resolve classifies an Authorization header value.
func (m *AuthMiddleware) Resolve(authHeader string) (AuthState, uuid.UUID) {
	token, ok := bearerToken(authHeader)
	if !ok {
		return AuthNoToken, uuid.Nil
	}

	claims, err := m.tokenSvc.Verify(token)
	switch {
	case err == nil:
		return AuthValid, claims.AccountID
	case errors.Is(err, service.ErrTokenExpired):
		return AuthExpired, uuid.Nil
	default:
		return AuthMalformed, uuid.Nil
	}
}

func bearerToken(authHeader string) (string, bool) {
	if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return "", false
	}

	return token, true
}

// GetAccountID returns the account ID set by Authenticate.
func GetAccountID(c echo.Context) (uuid.UUID, bool) {
	return deliverycontext.GetAccountID(c)
}
