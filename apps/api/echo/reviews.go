package echoapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gjb2048/gradereviews/core/gradereview"
)

// ReviewService is the part of gradereview.Service served over HTTP.
type ReviewService interface {
	List(ctx context.Context, viewer gradereview.Viewer, opts gradereview.Options) ([]gradereview.Comment, error)
	Permissions(ctx context.Context, viewer gradereview.Viewer, opts gradereview.Options) (gradereview.Permissions, error)
	Display(ctx context.Context, viewer gradereview.Viewer, opts gradereview.Options, comments []gradereview.Comment) ([]gradereview.Comment, error)
	Post(ctx context.Context, viewer gradereview.Viewer, opts gradereview.Options, nr gradereview.NewReview) (gradereview.Comment, error)
	Delete(ctx context.Context, viewer gradereview.Viewer, opts gradereview.Options, commentID int) error
}

var _ ReviewService = (*gradereview.Service)(nil)

type DisplayRequest struct {
	Comments []gradereview.Comment `json:"comments"`
}

// UnmarshalJSON offers the delete action on every comment that does not say otherwise.
func (r *DisplayRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		Comments []json.RawMessage `json:"comments"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Comments = make([]gradereview.Comment, len(raw.Comments))
	for i, item := range raw.Comments {
		r.Comments[i].Delete = true
		if err := json.Unmarshal(item, &r.Comments[i]); err != nil {
			return errors.Wrapf(err, "comment %d", i)
		}
	}
	return nil
}

type reviewApi struct {
	svc ReviewService
}

func registerReviewAPI(g *echo.Group, viewer echo.MiddlewareFunc, svc ReviewService) {
	api := reviewApi{svc: svc}

	rg := g.Group("/contexts/:contextid/submissions/:itemid/reviews", viewer)
	rg.GET("", api.list)
	rg.POST("", api.create)
	rg.GET("/permissions", api.permissions)
	rg.POST("/display", api.display)
	rg.DELETE("/:id", api.destroy)
}

// request returns the acting user and the comment API options of the request.
func (api *reviewApi) request(ctx echo.Context) (gradereview.Viewer, gradereview.Options, error) {
	viewer, err := getContextViewer(ctx)
	if err != nil {
		return viewer, gradereview.Options{}, errors.Wrap(err, "getting context viewer")
	}
	opts, err := bindOptions(ctx)
	return viewer, opts, err
}

func nonNil(comments []gradereview.Comment) []gradereview.Comment {
	if comments == nil {
		return []gradereview.Comment{}
	}
	return comments
}

// Handlers

func (api *reviewApi) list(ctx echo.Context) error {
	viewer, opts, err := api.request(ctx)
	if err != nil {
		return err
	}
	comments, err := api.svc.List(ctx.Request().Context(), viewer, opts)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, nonNil(comments))
}

func (api *reviewApi) permissions(ctx echo.Context) error {
	viewer, opts, err := api.request(ctx)
	if err != nil {
		return err
	}
	perms, err := api.svc.Permissions(ctx.Request().Context(), viewer, opts)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, perms)
}

func (api *reviewApi) display(ctx echo.Context) error {
	viewer, opts, err := api.request(ctx)
	if err != nil {
		return err
	}
	var data DisplayRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DisplayRequest")
	}
	comments, err := api.svc.Display(ctx.Request().Context(), viewer, opts, data.Comments)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, nonNil(comments))
}

func (api *reviewApi) create(ctx echo.Context) error {
	viewer, opts, err := api.request(ctx)
	if err != nil {
		return err
	}
	var data gradereview.NewReview
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	cmt, err := api.svc.Post(ctx.Request().Context(), viewer, opts, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, cmt)
}

func (api *reviewApi) destroy(ctx echo.Context) error {
	viewer, opts, err := api.request(ctx)
	if err != nil {
		return err
	}
	var id int
	if err = echo.PathParamsBinder(ctx).MustInt("id", &id).BindError(); err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), viewer, opts, id); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
