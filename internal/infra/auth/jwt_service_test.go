package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"accounts/config"
	"accounts/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_access_secret_key_very_long_for_testing"

// fakeClock is a manually advanced clock for expiry tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestJWTService(t *testing.T, clock *fakeClock) service.TokenService {
	t.Helper()

	opts := []JWTOption{}
	if clock != nil {
		opts = append(opts, WithClock(clock.Now))
	}

	svc, err := NewJWTServiceWithSecret([]byte(testSecret), time.Hour, opts...)
	require.NoError(t, err)

	return svc
}

func TestJWTService_IssueAndVerify(t *testing.T) {
	svc := newTestJWTService(t, nil)
	accountID := uuid.New()

	token, err := svc.Issue(accountID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)
	assert.Equal(t, accountID.String(), claims.Subject)
}

func TestJWTService_ExpiryIsOneHourAfterIssue(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestJWTService(t, clock)

	token, err := svc.Issue(uuid.New())
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, clock.now.Equal(claims.IssuedAt.Time))
	assert.Equal(t, 3600*time.Second, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.Equal(t, time.Hour, svc.TTL())
}

func TestJWTService_ExpiredToken(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestJWTService(t, clock)
	accountID := uuid.New()

	token, err := svc.Issue(accountID)
	require.NoError(t, err)

	clock.Advance(3599 * time.Second)
	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)

	clock.Advance(2 * time.Second)
	claims, err = svc.Verify(token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.True(t, errors.Is(err, service.ErrTokenExpired))
	assert.False(t, errors.Is(err, service.ErrTokenMalformed))
}

func TestJWTService_MalformedTokens(t *testing.T) {
	svc := newTestJWTService(t, nil)
	accountID := uuid.New()

	token, err := svc.Issue(accountID)
	require.NoError(t, err)
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	otherSigner, err := NewJWTServiceWithSecret([]byte("another-secret"), time.Hour)
	require.NoError(t, err)
	foreignToken, err := otherSigner.Issue(accountID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "not a jwt", token: "clearly-not-a-jwt-token-format"},
		{name: "tampered signature", token: parts[0] + "." + parts[1] + "." + tamper(parts[2])},
		{name: "tampered payload", token: parts[0] + "." + forgePayload(t, parts[1], uuid.New()) + "." + parts[2]},
		{name: "truncated signature", token: token[:len(token)-5]},
		{name: "missing signature", token: parts[0] + "." + parts[1]},
		{name: "signed with another secret", token: foreignToken},
		{name: "alg none", token: unsignedToken(t, accountID)},
		{name: "no expiry", token: signedToken(t, jwt.MapClaims{"sub": accountID.String()})},
		{name: "subject is not a uuid", token: signedToken(t, jwt.MapClaims{
			"sub": "not-a-uuid",
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{name: "issued in the future", token: signedToken(t, jwt.MapClaims{
			"sub": accountID.String(),
			"iat": time.Now().Add(time.Hour).Unix(),
			"exp": time.Now().Add(2 * time.Hour).Unix(),
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.Verify(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.True(t, errors.Is(err, service.ErrTokenMalformed), "got %v", err)
			assert.False(t, errors.Is(err, service.ErrTokenExpired))
		})
	}
}

func TestJWTService_DistinctSecretsPerInstance(t *testing.T) {
	a, err := NewJWTServiceWithSecret([]byte("secret-a"), time.Hour)
	require.NoError(t, err)
	b, err := NewJWTServiceWithSecret([]byte("secret-b"), time.Hour)
	require.NoError(t, err)

	token, err := a.Issue(uuid.New())
	require.NoError(t, err)

	_, err = a.Verify(token)
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.True(t, errors.Is(err, service.ErrTokenMalformed))
}

func TestJWTService_EmptySecret(t *testing.T) {
	// Should fail to create service
	svc, err := NewJWTService(&config.Config{})
	assert.Error(t, err)
	assert.Nil(t, svc)
	assert.Contains(t, err.Error(), "jwt secret must be provided")
}

func TestJWTService_FromConfigUsesFixedTTL(t *testing.T) {
	cfg := &config.Config{
		SecretKey: config.SecretKey{Access: testSecret},
		Auth:      &config.AuthConfig{BcryptCost: 12},
	}

	svc, err := NewJWTService(cfg)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, svc.TTL())

	token, err := svc.Issue(uuid.New())
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 3600*time.Second, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestJWTService_InvalidTTL(t *testing.T) {
	svc, err := NewJWTServiceWithSecret([]byte(testSecret), 0)
	assert.Error(t, err)
	assert.Nil(t, svc)
}

// tamper flips a character in the middle of a base64url segment so the decoded bytes change.
func tamper(segment string) string {
	b := []byte(segment)
	i := len(b) / 2
	if b[i] == 'A' {
		b[i] = 'Z'
	} else {
		b[i] = 'A'
	}

	return string(b)
}

// forgePayload rewrites the subject of an encoded claims segment.
func forgePayload(t *testing.T, segment string, subject uuid.UUID) string {
	t.Helper()

	raw, err := base64.RawURLEncoding.DecodeString(segment)
	require.NoError(t, err)

	var claims map[string]any
	require.NoError(t, json.Unmarshal(raw, &claims))
	claims["sub"] = subject.String()

	forged, err := json.Marshal(claims)
	require.NoError(t, err)

	return base64.RawURLEncoding.EncodeToString(forged)
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	return token
}

func unsignedToken(t *testing.T, accountID uuid.UUID) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": accountID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	return token
}
