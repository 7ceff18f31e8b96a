package auth

import (
	"context"
	"testing"
	"time"

	"github.com/estudiomd/backoffice/internal/infrastructure/cache"
	"github.com/estudiomd/backoffice/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "backoffice-test",
	})
}

func newTestSubject() Subject {
	return Subject{UserID: uuid.New(), Email: "ana@estudio.pe", Role: "worker"}
}

func TestNewJWTService_UsesSecretForRefreshIfNotProvided(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret"})
	assert.Equal(t, []byte("test-secret"), svc.refreshSecret)
}

func TestGenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.GenerateTokenPair(newTestSubject())

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))
}

func TestValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()
	sub := newTestSubject()
	pair, err := svc.GenerateTokenPair(sub)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)

	id, err := claims.UserUUID()
	require.NoError(t, err)
	assert.Equal(t, sub.UserID, id)
	assert.Equal(t, sub.Email, claims.Email)
	assert.Equal(t, "worker", claims.Role)
	assert.False(t, claims.IsAdmin())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_Failures(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name: "refresh token used as access token",
			run: func() error {
				_, err := svc.ValidateAccessToken(pair.RefreshToken)
				return err
			},
			wantErr: ErrInvalidToken, // signed with the refresh secret
		},
		{
			name: "access token used as refresh token",
			run: func() error {
				_, err := svc.ValidateRefreshToken(pair.AccessToken)
				return err
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "garbage",
			run: func() error {
				_, err := svc.ValidateAccessToken("not.a.jwt")
				return err
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "other issuer",
			run: func() error {
				other := newTestJWTService()
				other.issuer = "someone-else"
				p, err := other.GenerateTokenPair(newTestSubject())
				require.NoError(t, err)
				_, err = svc.ValidateAccessToken(p.AccessToken)
				return err
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.wantErr)
		})
	}
}

func TestValidateToken_TypeMismatchWithSharedSecret(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret:                 "shared-secret-key-at-least-32-chars",
		AccessTokenExpiration:  time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "backoffice-test",
	})
	pair, err := svc.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := newTestJWTService()
	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }
	pair, err := svc.GenerateTokenPair(newTestSubject())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestClaims_RemainingTTL(t *testing.T) {
	now := time.Now()
	c := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))}}
	assert.InDelta(t, time.Minute.Seconds(), c.RemainingTTL(now).Seconds(), 1)
	assert.Zero(t, c.RemainingTTL(now.Add(time.Hour)))
	assert.Zero(t, (&Claims{}).RemainingTTL(now))
}

func TestCacheTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	bl := NewCacheTokenBlacklist(cache.NewMemoryCache(time.Minute))

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, bl.Revoke(ctx, "jti-2", 0))
	revoked, _ = bl.IsRevoked(ctx, "jti-2")
	assert.False(t, revoked, "already expired tokens are not stored")

	require.NoError(t, bl.Revoke(ctx, "jti-3", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	revoked, _ = bl.IsRevoked(ctx, "jti-3")
	assert.False(t, revoked)
}
