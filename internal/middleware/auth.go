package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	ContextKeyManagerID = "managerID"
	ContextKeyEmail     = "userEmail"
	ContextKeyRole      = "userRole"

	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth verifies the Firebase ID token in the Authorization header.
// The token UID becomes the manager ID that scopes every query.
func RequireAuth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if verifier == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication is not configured")
			}

			idToken := bearerToken(c)
			if idToken == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			decodedToken, err := verifier.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				logrus.WithError(err).Debug("Rejected ID token")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ContextKeyManagerID, decodedToken.UID)
			if email, ok := decodedToken.Claims["email"].(string); ok {
				c.Set(ContextKeyEmail, email)
			}
			if role, ok := decodedToken.Claims["role"].(string); ok {
				c.Set(ContextKeyRole, role)
			}

			return next(c)
		}
	}
}

// RequireRole checks the role claim set by RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextKeyRole).(string)
			if !slices.Contains(roles, role) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}

// RequireCronSecret guards the trigger endpoint used by external cron
// services. An empty secret disables the endpoint.
func RequireCronSecret(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "cron trigger is not configured")
			}
			token := bearerToken(c)
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid cron secret")
			}
			return next(c)
		}
	}
}

// ManagerID returns the authenticated manager, or "" outside RequireAuth.
func ManagerID(c echo.Context) string {
	id, _ := c.Get(ContextKeyManagerID).(string)
	return id
}
