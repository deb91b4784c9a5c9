package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-catalog-api/internal/errs"
	"github.com/iliyamo/product-catalog-api/internal/service"
	"github.com/iliyamo/product-catalog-api/internal/token"
)

// Authenticator verifies a raw bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*token.Claims, error)
}

// JWTAuth validates the Bearer token and injects the user id, role and raw
// token into the context. Handlers read them back with UserID, Role and Token.
func JWTAuth(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}

			ctx := c.Request().Context()
			claims, err := a.Authenticate(ctx, raw)
			if err != nil {
				e := errs.As(err)
				if e.Kind == errs.KindAuthentication {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": e.Message})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
			}
			uid, err := claims.UserID()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(ctxUserID, uid)
			c.Set(ctxRole, claims.Role)
			c.Set(ctxToken, raw)
			c.SetRequest(c.Request().WithContext(service.WithActor(ctx, uid)))
			return next(c)
		}
	}
}

// bearer extracts the token from an Authorization header. The scheme is
// matched case-insensitively.
func bearer(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(h[len(prefix):])
	return raw, raw != ""
}
