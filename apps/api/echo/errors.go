package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gjb2048/gradereviews/core"
	"github.com/gjb2048/gradereviews/core/gradereview"
)

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")

// serviceHTTPError maps the gradereview sentinel errors to HTTP errors; any other error is returned as is.
// Causes may be uncomparable (validator.ValidationErrors).
func serviceHTTPError(cause error) error {
	switch {
	case errors.Is(cause, gradereview.ErrInvalidCommentArea),
		errors.Is(cause, gradereview.ErrInvalidItemID),
		errors.Is(cause, gradereview.ErrInvalidContext):
		return echo.NewHTTPError(http.StatusBadRequest, cause.Error())
	case errors.Is(cause, gradereview.ErrPermissionDenied):
		return echo.NewHTTPError(http.StatusForbidden, cause.Error())
	case errors.Is(cause, gradereview.ErrCommentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, cause.Error())
	default:
		return cause
	}
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := serviceHTTPError(errors.Cause(err)).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case *echo.BindingError:
			code = http.StatusBadRequest
			message = map[string]string{origErr.Field: "invalid value"}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateValidationErrors(origErr, translator)
		case *core.ValidationError:
			if fields := origErr.FieldMap(); fields != nil {
				message = fields
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if viewer, vErr := getContextViewer(ctx); vErr == nil {
				args = append(args, core.UserRef{ID: viewer.ID})
			}
			logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
