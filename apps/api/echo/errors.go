package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// fieldErrors maps translated validator errors by JSON field name.
func fieldErrors(vErrs validator.ValidationErrors) map[string]string {
	flds := make(map[string]string, len(vErrs))
	for _, vErr := range vErrs {
		flds[vErr.Field()] = vErr.Translate(core.Translator)
	}
	return flds
}

// newAppHTTPErrorHandler maps application errors to HTTP responses:
// validation failures become 400s with per-field messages, echo errors keep
// their code, anything else is logged and rendered as a generic 500.
// signalShutdown is called whenever a shutdown error is caught so the
// server can stop gracefully.
func newAppHTTPErrorHandler(logger core.Logger, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
			code = origErr.Code
			message = origErr.Message

		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = fieldErrors(origErr)

		case *core.ValidationError:
			code = http.StatusBadRequest
			if origErr.Fields != nil {
				flds := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					flds[fErr.Field] = fErr.Error
				}
				message = flds
			} else {
				message = origErr.Error()
			}

		default: // anything else is a server error; log it, hide the details
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.UserID()
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
