package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gjb2048/gradereviews/core/gradereview"
)

const viewerKey = "viewer"

var errViewerNotFoundInCtx = errors.New("viewer not found in echo.Context")

// viewerMiddleware identifies the acting user from the header set by the host gateway.
func viewerMiddleware(header string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := strconv.Atoi(strings.TrimSpace(ctx.Request().Header.Get(header)))
			if err != nil || id <= 0 {
				return errUnauthorized
			}
			ctx.Set(viewerKey, gradereview.Viewer{ID: id})
			return next(ctx)
		}
	}
}

func getContextViewer(ctx echo.Context) (gradereview.Viewer, error) {
	viewer, ok := ctx.Get(viewerKey).(gradereview.Viewer)
	if !ok {
		return gradereview.Viewer{}, errViewerNotFoundInCtx
	}
	return viewer, nil
}
