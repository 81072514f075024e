package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "attendance-api"})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newTestAuthService()

	token, expiresAt, err := svc.IssueToken(TokenRequest{UserID: "user-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "attendance-api", claims.Issuer)
}

func TestAuthServiceRejectsInvalidRequests(t *testing.T) {
	svc := newTestAuthService()

	_, _, err := svc.IssueToken(TokenRequest{UserID: "", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.IssueToken(TokenRequest{UserID: "u", Role: "JANITOR"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	svc := newTestAuthService()
	token, _, err := svc.IssueToken(TokenRequest{UserID: "user-1", Role: models.RoleAdmin})
	require.NoError(t, err)

	other := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "other", Issuer: "attendance-api"})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	wrongIssuer := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "secret", Issuer: "someone-else"})
	_, err = wrongIssuer.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	later := newTestAuthService()
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRejectsOtherAlgorithms(t *testing.T) {
	svc := newTestAuthService()
	claims := models.JWTClaims{UserID: "u", Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Issuer: "attendance-api"}}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(unsigned)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
