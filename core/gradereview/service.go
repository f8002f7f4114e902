package gradereview

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/gjb2048/gradereviews/core"
)

var (
	// errors
	ErrInvalidCommentArea = errors.New("invalid comment area")
	ErrInvalidItemID      = errors.New("invalid grade review item id")
	ErrInvalidContext     = errors.New("invalid context")
	ErrPermissionDenied   = errors.New("no permission to grade review")
	ErrCommentNotFound    = errors.New("grade review not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrUserNotFound       = errors.New("user not found")

	errContentTooLong = "grade review is longer than %d characters"
)

type (
	SubmissionRepository interface {
		GetSubmission(ctx context.Context, id int) (Submission, error)
	}

	AssignmentRepository interface {
		// GetAssignmentByContext returns the assignment of a module context.
		GetAssignmentByContext(ctx context.Context, contextID int) (AssignmentInstance, error)
	}

	UserMappingRepository interface {
		// GetOrCreateUserMapping returns the participant number of userID in assignmentID, allocating one if needed.
		GetOrCreateUserMapping(ctx context.Context, assignmentID, userID int) (int, error)
	}

	CommentRepository interface {
		AddComment(ctx context.Context, cmt Comment) (Comment, error)
		GetComment(ctx context.Context, id int) (Comment, error)
		// ListComments returns the comments of one item, with the author's full name.
		ListComments(ctx context.Context, filter CommentFilter) ([]Comment, error)
		DeleteComment(ctx context.Context, id int) error
	}

	UserRepository interface {
		GetUser(ctx context.Context, id int) (User, error)
	}

	Deps struct {
		Submissions  SubmissionRepository
		Assignments  AssignmentRepository
		UserMappings UserMappingRepository
		Comments     CommentRepository
		Users        UserRepository
		Capabilities CapabilityChecker
		Events       EventSink
		MailSvc      core.EmailService // optional
		Logger       core.Logger
		Validate     *validator.Validate
	}

	Service struct {
		deps   Deps
		conf   *core.Config
		filter *VisibilityFilter
	}
)

// CommentFilter selects the comments of one item.
type CommentFilter struct {
	ContextID int
	Component string
	Area      string
	ItemID    int
	Ordering  []core.DBOrdering
}

// User is the part of a host user record needed to address them.
type User struct {
	ID        int    `db:"id"`
	FirstName string `db:"firstname"`
	LastName  string `db:"lastname"`
	Email     string `db:"email"`
}

func (u User) FullName() string {
	return core.CleanString(u.FirstName + " " + u.LastName)
}

// NewService panics when a required dependency is missing.
func NewService(deps Deps, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Submissions, "Submissions"),
		vala.IsNotNil(deps.Assignments, "Assignments"),
		vala.IsNotNil(deps.UserMappings, "UserMappings"),
		vala.IsNotNil(deps.Comments, "Comments"),
		vala.IsNotNil(deps.Users, "Users"),
		vala.IsNotNil(deps.Capabilities, "Capabilities"),
		vala.IsNotNil(deps.Events, "Events"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{
		deps: deps,
		conf: conf,
		filter: NewVisibilityFilter(deps.Capabilities, FilterOptions{
			ApplyAnonymization: conf.GradeReviews.AnonymizeReviewers,
			GuestUserID:        conf.GradeReviews.GuestUserID,
			GuestEmail:         conf.GradeReviews.GuestEmail,
			PlaceholderAvatar:  conf.GradeReviews.PlaceholderAvatar,
		}),
	}
}

// reviewContext is what every callback resolves from Options before doing anything else.
type reviewContext struct {
	sub    Submission
	assign Assignment
}

func checkArea(area string) error {
	if area != AreaGradeReviews && area != AreaUpgrade {
		return ErrInvalidCommentArea
	}
	return nil
}

func (svc *Service) resolve(ctx context.Context, opts *Options) (reviewContext, error) {
	opts.Clean()
	if err := checkArea(opts.Area); err != nil {
		return reviewContext{}, err
	}
	if err := svc.deps.Validate.Struct(opts); err != nil {
		return reviewContext{}, err
	}

	sub, err := svc.deps.Submissions.GetSubmission(ctx, opts.ItemID)
	if err != nil {
		if errors.Cause(err) == ErrSubmissionNotFound {
			return reviewContext{}, ErrInvalidItemID
		}
		return reviewContext{}, errors.Wrap(err, "getting submission")
	}

	// resolved per call: the assignment of one context must never leak into another
	inst, err := svc.deps.Assignments.GetAssignmentByContext(ctx, opts.ContextID)
	if err != nil {
		if errors.Cause(err) == ErrAssignmentNotFound {
			return reviewContext{}, ErrInvalidContext
		}
		return reviewContext{}, errors.Wrap(err, "getting assignment")
	}
	if inst.ID != sub.AssignmentID {
		return reviewContext{}, ErrInvalidContext
	}
	if opts.CourseID == 0 {
		opts.CourseID = inst.CourseID
	}
	if opts.CourseModuleID == 0 {
		opts.CourseModuleID = inst.CourseModuleID
	}
	return reviewContext{sub: sub, assign: NewAssignment(inst, svc.deps.UserMappings)}, nil
}

// Validate checks that the viewer may see the grade reviews of the submission.
func (svc *Service) Validate(ctx context.Context, viewer Viewer, opts Options) error {
	rc, err := svc.resolve(ctx, &opts)
	if err != nil {
		return err
	}
	return svc.checkView(ctx, viewer, rc)
}

func (svc *Service) checkView(ctx context.Context, viewer Viewer, rc reviewContext) error {
	var (
		canView bool
		err     error
	)
	if rc.sub.UserID != 0 {
		canView, err = svc.deps.Capabilities.CanViewSubmission(ctx, viewer, rc.assign.ID(), rc.sub.UserID)
	} else {
		canView, err = svc.deps.Capabilities.CanViewGroupSubmission(ctx, viewer, rc.assign.ID(), rc.sub.GroupID)
	}
	if err != nil {
		return err
	}
	if !canView {
		return ErrPermissionDenied
	}
	return nil
}

// Permissions tells the host whether the viewer may view and post grade reviews.
func (svc *Service) Permissions(ctx context.Context, viewer Viewer, opts Options) (Permissions, error) {
	rc, err := svc.resolve(ctx, &opts)
	if err != nil {
		return Permissions{}, err
	}
	return svc.permissions(ctx, viewer, rc)
}

func (svc *Service) permissions(ctx context.Context, viewer Viewer, rc reviewContext) (Permissions, error) {
	var (
		canView bool
		err     error
	)
	if rc.assign.IsTeamSubmission() {
		canView, err = svc.deps.Capabilities.CanViewGroupSubmission(ctx, viewer, rc.assign.ID(), rc.sub.GroupID)
	} else {
		canView, err = svc.deps.Capabilities.CanViewSubmission(ctx, viewer, rc.assign.ID(), rc.sub.UserID)
	}
	if err != nil {
		return Permissions{}, err
	}
	if !canView {
		return Permissions{Post: false, View: false}, nil
	}
	return Permissions{Post: true, View: true}, nil
}

// Display enforces blind marking and delete rights on comments about to be shown to the viewer.
func (svc *Service) Display(ctx context.Context, viewer Viewer, opts Options, comments []Comment) ([]Comment, error) {
	rc, err := svc.resolve(ctx, &opts)
	if err != nil {
		return nil, err
	}
	return svc.filter.Filter(ctx, rc.sub, rc.assign, viewer, opts.CourseID, comments)
}

// PrepareAdd attributes comments added through the upgrade area to the submission author.
func (svc *Service) PrepareAdd(ctx context.Context, cmt *Comment) error {
	if cmt.Area != AreaUpgrade {
		return nil
	}
	sub, err := svc.deps.Submissions.GetSubmission(ctx, cmt.ItemID)
	if err != nil {
		if errors.Cause(err) == ErrSubmissionNotFound {
			return ErrInvalidItemID
		}
		return errors.Wrap(err, "getting submission")
	}
	cmt.UserID = sub.UserID
	cmt.Area = AreaGradeReviews
	return nil
}

// List returns the grade reviews of a submission as the viewer may see them, newest first.
func (svc *Service) List(ctx context.Context, viewer Viewer, opts Options) ([]Comment, error) {
	rc, err := svc.resolve(ctx, &opts)
	if err != nil {
		return nil, err
	}
	if err = svc.checkView(ctx, viewer, rc); err != nil {
		return nil, err
	}

	comments, err := svc.deps.Comments.ListComments(ctx, CommentFilter{
		ContextID: opts.ContextID,
		Component: opts.Component,
		Area:      AreaGradeReviews,
		ItemID:    opts.ItemID,
		Ordering:  []core.DBOrdering{{Field: "timecreated", Ascending: false}, {Field: "id", Ascending: false}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing comments")
	}
	for i := range comments {
		comments[i].Delete = true
	}
	return svc.filter.Filter(ctx, rc.sub, rc.assign, viewer, opts.CourseID, comments)
}

// Post adds a grade review written by the viewer.
func (svc *Service) Post(ctx context.Context, viewer Viewer, opts Options, nr NewReview) (Comment, error) {
	rc, err := svc.resolve(ctx, &opts)
	if err != nil {
		return Comment{}, err
	}
	perms, err := svc.permissions(ctx, viewer, rc)
	if err != nil {
		return Comment{}, err
	}
	if !perms.Post {
		return Comment{}, ErrPermissionDenied
	}

	nr.Clean()
	if err = svc.deps.Validate.Struct(nr); err != nil {
		return Comment{}, err
	}
	if limit := svc.conf.GradeReviews.MaxContentLength; limit > 0 && len([]rune(nr.Content)) > limit {
		return Comment{}, core.NewValidationError(nil, core.FieldError{Field: "content", Error: fmt.Sprintf(errContentTooLong, limit)})
	}

	cmt := Comment{
		ContextID:   opts.ContextID,
		Component:   opts.Component,
		Area:        opts.Area,
		ItemID:      opts.ItemID,
		UserID:      viewer.ID,
		Content:     nr.Content,
		Format:      nr.Format,
		TimeCreated: time.Now().UTC(),
	}
	if err = svc.PrepareAdd(ctx, &cmt); err != nil {
		return Comment{}, err
	}
	if cmt, err = svc.deps.Comments.AddComment(ctx, cmt); err != nil {
		return Comment{}, errors.Wrap(err, "adding comment")
	}
	cmt.Delete = true

	shown, err := svc.filter.Filter(ctx, rc.sub, rc.assign, viewer, opts.CourseID, []Comment{cmt})
	if err != nil {
		return Comment{}, err
	}
	svc.notifyAuthor(ctx, viewer, rc, cmt)
	return shown[0], nil
}

// Delete removes a grade review. Authors may delete their own; managers may delete any.
func (svc *Service) Delete(ctx context.Context, viewer Viewer, opts Options, commentID int) error {
	rc, err := svc.resolve(ctx, &opts)
	if err != nil {
		return err
	}
	if err = svc.checkView(ctx, viewer, rc); err != nil {
		return err
	}

	cmt, err := svc.deps.Comments.GetComment(ctx, commentID)
	if err != nil {
		if errors.Cause(err) == ErrCommentNotFound {
			return ErrCommentNotFound
		}
		return errors.Wrap(err, "getting comment")
	}
	if cmt.ItemID != opts.ItemID || cmt.ContextID != opts.ContextID || cmt.Area != AreaGradeReviews {
		return ErrCommentNotFound
	}

	if cmt.UserID != viewer.ID {
		canManage, err := CanManageReviews(ctx, svc.deps.Capabilities, viewer, opts.CourseID)
		if err != nil {
			return err
		}
		if !canManage {
			return ErrPermissionDenied
		}
	}

	if err = svc.deps.Comments.DeleteComment(ctx, cmt.ID); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	svc.deps.Events.Trigger(NewCommentDeleted(viewer, cmt, rc.assign.CourseModuleID()))
	return nil
}

// notifyAuthor emails the submission author about a review left by someone else.
// Group submissions and authors without an email address are skipped.
func (svc *Service) notifyAuthor(ctx context.Context, viewer Viewer, rc reviewContext, cmt Comment) {
	if !svc.conf.GradeReviews.NotifyAuthor || svc.deps.MailSvc == nil {
		return
	}
	if rc.sub.UserID == 0 || rc.sub.UserID == viewer.ID {
		return
	}
	recipient, err := svc.deps.Users.GetUser(ctx, rc.sub.UserID)
	if err != nil {
		svc.deps.Logger.Warn(fmt.Sprintf("grade review notification: getting user %d: %v", rc.sub.UserID, err), core.UserRef{ID: viewer.ID})
		return
	}
	if recipient.Email == "" {
		return
	}

	svc.deps.MailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: recipient.FullName(), Address: recipient.Email}},
		Subject:      svc.filter.printer.String(StrReviewPostedSubject),
		TemplateName: "gradereview_posted",
		TemplateData: map[string]interface{}{
			"RecipientName": recipient.FullName(),
			"AuthorName":    cmt.FullName,
			"Content":       cmt.Content,
			"LinkText":      svc.filter.printer.String(StrCommentLinkText),
			"URL":           AssignmentURL(svc.conf.GradeReviews.HostURL, rc.assign.CourseModuleID()).String(),
		},
	})
}
