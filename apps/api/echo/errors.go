package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/assignment"
	"github.com/caseload/caseload/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errEmailNotVerified     = echo.NewHTTPError(http.StatusForbidden, "email not verified")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// errorResponse maps err to a status code and a body. ok is false for unexpected (server) errors.
func errorResponse(err error) (code int, body interface{}, ok bool) {
	switch cause := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if cause == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, cause.Message, true
		}
		if herr, isHTTP := cause.Internal.(*echo.HTTPError); isHTTP {
			cause = herr
		}
		return cause.Code, cause.Message, true
	case validator.ValidationErrors:
		fields := make(map[string]string, len(cause))
		for _, fErr := range cause {
			fields[fErr.Field()] = fErr.Translate(core.Translator)
		}
		return http.StatusBadRequest, fields, true
	case *core.ValidationError:
		if len(cause.Fields) > 0 {
			return http.StatusBadRequest, cause.FieldMap(), true
		}
		return http.StatusBadRequest, cause.Error(), true
	}

	switch errors.Cause(err) {
	case user.ErrNotFound, assignment.ErrNotFound:
		return errHttpNotFound.Code, errHttpNotFound.Message, true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler rendering errors as JSON:
// a map of field errors for validation failures, {"error": message} otherwise.
// Server errors are logged; a core shutdown error also triggers signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := errorResponse(err)
		if !ok {
			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr = user.User{ID: claims.Subject, Name: claims.Name, Email: claims.Email}
			}
			logger.Error("echoapi: "+ctx.Request().Method+" "+ctx.Path(), err, usr)
			if ctx.Echo().Debug {
				body = err.Error()
			}
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}
		if msg, isStr := body.(string); isStr {
			body = echo.Map{"error": msg}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
