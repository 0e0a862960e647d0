package middleware

import (
	"strings"

	"aegis/internal/domain/constants"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by Authenticate for downstream handlers.
const (
	KeyTenantID = "tenantID"
	KeyClientID = "clientID"
	KeyUserID   = "userID"
)

// AuthMiddleware validates bearer access tokens against the owning tenant's
// signing key.
type AuthMiddleware struct {
	tenants service.TenantConfigProvider
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tenants service.TenantConfigProvider) *AuthMiddleware {
	return &AuthMiddleware{tenants: tenants}
}

// Authenticate validates the access token and stores the caller's identity on
// the request context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID := c.Request().Header.Get(constants.HeaderTenantID)
		if tenantID == "" {
			return domainerrors.ErrValidationFailed.WrapMessage("tenant header is required")
		}

		authHeader := c.Request().Header.Get("Authorization")
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || tokenString == authHeader {
			return domainerrors.ErrUnauthorized.WrapMessage("bearer token is required")
		}

		key, err := m.tenants.SigningKey(c.Request().Context(), tenantID)
		if err != nil {
			return err
		}

		token, err := jwt.Parse(tokenString,
			func(token *jwt.Token) (any, error) {
				return key.PrivateKey.Public(), nil
			},
			jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		)
		if err != nil || !token.Valid {
			return domainerrors.ErrUnauthorized.WrapMessage("invalid or expired token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return domainerrors.ErrUnauthorized.WrapMessage("failed to parse token claims")
		}

		userID, _ := claims["sub"].(string)
		if userID == "" {
			return domainerrors.ErrUnauthorized.WrapMessage("subject missing from token")
		}
		clientID, _ := claims["aud"].(string)

		c.Set(KeyTenantID, tenantID)
		c.Set(KeyClientID, clientID)
		c.Set(KeyUserID, userID)

		return next(c)
	}
}
