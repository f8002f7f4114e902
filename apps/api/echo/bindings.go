package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gjb2048/gradereviews/core/gradereview"
)

// bindOptions reads the comment API options from the route and the query string.
// The area defaults to the grade reviews one.
func bindOptions(ctx echo.Context) (gradereview.Options, error) {
	var opts gradereview.Options
	err := echo.PathParamsBinder(ctx).
		MustInt("contextid", &opts.ContextID).
		MustInt("itemid", &opts.ItemID).
		BindError()
	if err != nil {
		return opts, err
	}
	err = echo.QueryParamsBinder(ctx).
		String("area", &opts.Area).
		String("component", &opts.Component).
		Int("courseid", &opts.CourseID).
		Int("cmid", &opts.CourseModuleID).
		Bool("showcount", &opts.ShowCount).
		BindError()
	if err != nil {
		return opts, err
	}
	if strings.TrimSpace(opts.Area) == "" {
		opts.Area = gradereview.AreaGradeReviews
	}
	return opts, nil
}
