package privacy

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/text/language"

	"github.com/gjb2048/gradereviews/core"
	"github.com/gjb2048/gradereviews/core/gradereview"
)

// CommentsPath is the last element of every export path.
const CommentsPath = "comments"

// Repository reads and deletes the grade reviews stored in the host comments table.
// Every query is scoped to the grade reviews component and area.
type Repository interface {
	ContextIDsForUser(ctx context.Context, userID int) ([]int, error)
	StudentUserIDs(ctx context.Context, assignmentID, teacherID int) ([]int, error)
	UserIDsInContext(ctx context.Context, contextID int) ([]int, error)
	// ExportComments lists the reviews on itemID, all of them when userID is 0.
	ExportComments(ctx context.Context, contextID, itemID, userID int) ([]gradereview.Comment, error)
	DeleteComments(ctx context.Context, filter DeleteFilter) (int64, error)
}

// Writer stores exported data under a path of subcontexts.
type Writer interface {
	Export(path []string, data interface{}) error
}

type Provider struct {
	repo    Repository
	logger  core.Logger
	printer gradereview.Printer
}

func NewProvider(repo Repository, logger core.Logger) *Provider {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()

	return &Provider{repo: repo, logger: logger, printer: gradereview.NewPrinter(language.English)}
}

// Metadata describes the personal data kept by the component.
func (p *Provider) Metadata() Metadata {
	return Metadata{
		Component: gradereview.Component,
		Links: []SubsystemLink{{
			Subsystem:  SubsystemComment,
			PurposeKey: gradereview.StrPrivacyCommentPurpose,
			Purpose:    p.printer.String(gradereview.StrPrivacyCommentPurpose),
		}},
	}
}

// ContextsForUser returns the contexts where the user wrote grade reviews.
func (p *Provider) ContextsForUser(ctx context.Context, userID int) ([]int, error) {
	ids, err := p.repo.ContextIDsForUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "contexts for user %d", userID)
	}
	return ids, nil
}

// StudentUserIDs returns the authors of the submissions a teacher reviewed in an assignment.
func (p *Provider) StudentUserIDs(ctx context.Context, assignmentID, teacherID int) ([]int, error) {
	ids, err := p.repo.StudentUserIDs(ctx, assignmentID, teacherID)
	if err != nil {
		return nil, errors.Wrapf(err, "students reviewed by %d", teacherID)
	}
	return ids, nil
}

// UserIDsInContext returns the reviewers of a module context; other context levels hold no reviews.
func (p *Provider) UserIDsInContext(ctx context.Context, c Context) ([]int, error) {
	if c.Level != gradereview.ContextModule {
		return nil, nil
	}
	ids, err := p.repo.UserIDsInContext(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "users in context %d", c.ID)
	}
	return ids, nil
}

// ExportSubmissionUserData writes the grade reviews selected by req under {subcontext..., "comments"}.
// Nothing is written when there is nothing to export.
func (p *Provider) ExportSubmissionUserData(ctx context.Context, req ExportRequest, w Writer) error {
	comments, err := p.repo.ExportComments(ctx, req.ContextID, req.SubmissionID, req.UserID)
	if err != nil {
		return errors.Wrapf(err, "exporting submission %d", req.SubmissionID)
	}
	if len(comments) == 0 {
		return nil
	}

	exported := make([]ExportedComment, len(comments))
	for i, cmt := range comments {
		exported[i] = ExportedComment{
			Content:     cmt.Content,
			Format:      cmt.Format,
			TimeCreated: cmt.TimeCreated,
			UserID:      cmt.UserID,
			Author:      cmt.FullName,
		}
	}

	path := append(append([]string(nil), req.Subcontext...), CommentsPath)
	if err = w.Export(path, map[string]interface{}{"comments": exported}); err != nil {
		return errors.Wrap(err, "writing export")
	}
	return nil
}

// DeleteSubmissionForContext deletes every grade review of a context.
func (p *Provider) DeleteSubmissionForContext(ctx context.Context, contextID int) error {
	return p.delete(ctx, DeleteFilter{ContextID: contextID})
}

// DeleteSubmissionForUserID deletes the grade reviews a user wrote in a context.
func (p *Provider) DeleteSubmissionForUserID(ctx context.Context, contextID, userID int) error {
	return p.delete(ctx, DeleteFilter{ContextID: contextID, UserIDs: []int{userID}})
}

// DeleteSubmissions deletes the grade reviews written by any of userIDs in a context.
// An empty userIDs deletes nothing.
func (p *Provider) DeleteSubmissions(ctx context.Context, contextID int, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	return p.delete(ctx, DeleteFilter{ContextID: contextID, UserIDs: userIDs})
}

func (p *Provider) delete(ctx context.Context, filter DeleteFilter) error {
	n, err := p.repo.DeleteComments(ctx, filter)
	if err != nil {
		return errors.Wrapf(err, "deleting grade reviews in context %d", filter.ContextID)
	}
	p.logger.Info("privacy: deleted grade reviews", map[string]interface{}{
		"contextid": filter.ContextID,
		"userids":   filter.UserIDs,
		"deleted":   n,
	})
	return nil
}
