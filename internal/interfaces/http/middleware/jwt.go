package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/estudiomd/backoffice/internal/infrastructure/auth"
	"github.com/estudiomd/backoffice/internal/infrastructure/logger"
	"github.com/estudiomd/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "jwt_user_id"
	JWTRoleKey    = "jwt_role"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware. Only
// JWTService is required.
type JWTMiddlewareConfig struct {
	JWTService       *auth.JWTService
	TokenBlacklist   auth.TokenBlacklist
	SkipPaths        []string
	SkipPathPrefixes []string
	// OnError replaces the default 401 response
	OnError func(c *gin.Context, err error)
	Logger  *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/health",
			"/ready",
			"/api/v1/health",
			"/api/v1/ready",
			"/api/v1/auth/login/",
			"/api/v1/auth/refresh/",
		},
	}
}

// JWTAuthMiddleware creates JWT authentication middleware
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

var errMissingCredentials = errors.New("missing credentials")

// JWTAuthMiddlewareWithConfig creates JWT authentication middleware with custom config.
// Revocation lookups fail open: signature and expiry are already verified when
// the blacklist is consulted.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok || hasAnyPrefix(path, cfg.SkipPathPrefixes) {
			c.Next()
			return
		}

		claims, err := authenticate(c, cfg)
		if err != nil {
			rejectAuth(c, cfg, err)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTRoleKey, claims.Role)

		ctx := c.Request.Context()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// authenticate validates the bearer token of the request and checks it
// against the blacklist
func authenticate(c *gin.Context, cfg JWTMiddlewareConfig) (*auth.Claims, error) {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" {
		return nil, errMissingCredentials
	}
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: expected a bearer token", auth.ErrInvalidToken)
	}

	claims, err := cfg.JWTService.ValidateAccessToken(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if cfg.TokenBlacklist == nil || claims.ID == "" {
		return claims, nil
	}

	revoked, err := cfg.TokenBlacklist.IsRevoked(c.Request.Context(), claims.ID)
	switch {
	case err != nil:
		if cfg.Logger != nil {
			cfg.Logger.Error("Token blacklist lookup failed", zap.String("jti", claims.ID), zap.Error(err))
		}
	case revoked:
		return nil, auth.ErrTokenRevoked
	}
	return claims, nil
}

// authFailures maps token errors to the code and message returned to the caller
var authFailures = []struct {
	err     error
	code    string
	message string
}{
	{errMissingCredentials, dto.ErrCodeUnauthorized, "Authentication required"},
	{auth.ErrExpiredToken, dto.ErrCodeTokenExpired, "Token has expired"},
	{auth.ErrTokenRevoked, dto.ErrCodeTokenRevoked, "Token has been revoked"},
	{auth.ErrInvalidTokenType, dto.ErrCodeTokenInvalid, "An access token is required"},
	{auth.ErrTokenNotYetValid, dto.ErrCodeTokenInvalid, "Token is not valid yet"},
	{auth.ErrInvalidClaims, dto.ErrCodeTokenInvalid, "Token is invalid"},
	{auth.ErrInvalidToken, dto.ErrCodeTokenInvalid, "Token is invalid"},
}

func rejectAuth(c *gin.Context, cfg JWTMiddlewareConfig, err error) {
	if cfg.OnError != nil {
		cfg.OnError(c, err)
		return
	}
	if cfg.Logger != nil && !errors.Is(err, errMissingCredentials) {
		cfg.Logger.Info("Rejected bearer token", zap.Error(err), zap.String("path", c.Request.URL.Path))
	}

	code, message := dto.ErrCodeTokenInvalid, "Token is invalid"
	for _, f := range authFailures {
		if errors.Is(err, f.err) {
			code, message = f.code, f.message
			break
		}
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message, getRequestIDFromContext(c)))
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// RequireAdmin rejects authenticated users without the admin role
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Authentication required", getRequestIDFromContext(c)))
			return
		}
		if !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "Administrator role required", getRequestIDFromContext(c)))
			return
		}
		c.Next()
	}
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID retrieves the user ID from JWT claims in context
func GetJWTUserID(c *gin.Context) string {
	if userID, exists := c.Get(JWTUserIDKey); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}
