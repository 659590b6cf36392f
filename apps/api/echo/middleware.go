package echoapi

import (
	"github.com/labstack/echo/v4"
)

// adminOnly rejects the requests of non-admin users.
func adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if !claims.IsAdmin {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

// noStore keeps clients and proxies from caching per-user responses.
func noStore(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ctx.Response().Header().Set("Cache-Control", "no-store")
		return next(ctx)
	}
}
