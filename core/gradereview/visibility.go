package gradereview

import (
	"context"

	"github.com/volatiletech/null/v8"
	"golang.org/x/text/language"
)

// CapabilityChecker answers permission questions about the viewer. Implemented by the host.
type CapabilityChecker interface {
	CanViewSubmission(ctx context.Context, viewer Viewer, assignmentID, userID int) (bool, error)
	CanViewGroupSubmission(ctx context.Context, viewer Viewer, assignmentID, groupID int) (bool, error)
	CanEditGroupSubmission(ctx context.Context, viewer Viewer, assignmentID, groupID int) (bool, error)
	HasCapability(ctx context.Context, viewer Viewer, capability string, ref ContextRef) (bool, error)
}

// FilterOptions configures the VisibilityFilter.
type FilterOptions struct {
	// ApplyAnonymization writes the synthetic identity onto comments the viewer may not attribute.
	// When false the identity is still computed, but the real author stays visible.
	ApplyAnonymization bool
	GuestUserID        int
	GuestEmail         string
	PlaceholderAvatar  string
	Language           language.Tag
}

// AnonymousIdentity replaces a real author under blind marking.
type AnonymousIdentity struct {
	Number     int
	FullName   string
	Avatar     string
	GuestID    int
	GuestEmail string
}

// VisibilityFilter decides, per viewer, which author identity each comment shows and
// whether the delete action is offered.
type VisibilityFilter struct {
	caps    CapabilityChecker
	opts    FilterOptions
	printer Printer
}

func NewVisibilityFilter(caps CapabilityChecker, opts FilterOptions) *VisibilityFilter {
	if opts.Language == language.Und {
		opts.Language = language.English
	}
	return &VisibilityFilter{
		caps:    caps,
		opts:    opts,
		printer: NewPrinter(opts.Language),
	}
}

// Filter adjusts the display fields of comments in place and returns them in the same order.
// It fails with ErrInvalidContext, before touching any comment, when sub does not belong to a.
func (f *VisibilityFilter) Filter(
	ctx context.Context,
	sub Submission,
	a Assignment,
	viewer Viewer,
	courseID int,
	comments []Comment,
) ([]Comment, error) {
	if sub.AssignmentID != a.ID() {
		return nil, ErrInvalidContext
	}
	if len(comments) == 0 {
		return comments, nil
	}

	run := &filterRun{
		VisibilityFilter: f,
		sub:              sub,
		assign:           a,
		viewer:           viewer,
		courseID:         courseID,
		numbers:          make(map[int]int),
		identities:       make(map[int]AnonymousIdentity),
	}
	if a.IsBlindMarking() {
		if err := run.anonymize(ctx, comments); err != nil {
			return nil, err
		}
	}
	if err := run.restrictDelete(ctx, comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// filterRun holds the state of one Filter call; it is never shared between calls.
type filterRun struct {
	*VisibilityFilter

	sub      Submission
	assign   Assignment
	viewer   Viewer
	courseID int

	numbers    map[int]int // {userID: participant number}
	identities map[int]AnonymousIdentity

	blindDetails *bool
	canManage    *bool
}

func (r *filterRun) anonymize(ctx context.Context, comments []Comment) error {
	var inTeam bool
	if r.assign.IsTeamSubmission() {
		var err error
		if inTeam, err = r.viewerInTeam(ctx); err != nil {
			return err
		}
	}

	for i := range comments {
		cmt := &comments[i]

		blindDetails, err := r.canViewBlindDetails(ctx)
		if err != nil {
			return err
		}

		switch {
		case blindDetails && cmt.UserID != r.viewer.ID:
			num, err := r.participantNumber(ctx, cmt.UserID)
			if err != nil {
				return err
			}
			cmt.FullName = r.printer.BlindMarkingViewFullName(num, cmt.FullName)
		case cmt.UserID == r.viewer.ID || r.sub.UserID == r.viewer.ID || inTeam:
			// the viewer already knows who this is
		default:
			ident, err := r.anonymousIdentity(ctx, cmt.UserID)
			if err != nil {
				return err
			}
			if r.opts.ApplyAnonymization {
				cmt.FullName = ident.FullName
				cmt.Avatar = null.StringFrom(ident.Avatar)
				cmt.ProfileURL = null.String{}
			}
		}
	}
	return nil
}

// restrictDelete clears the delete action on comments the viewer neither wrote nor manages.
func (r *filterRun) restrictDelete(ctx context.Context, comments []Comment) error {
	for i := range comments {
		if comments[i].UserID == r.viewer.ID {
			continue
		}
		canManage, err := r.canManageReviews(ctx)
		if err != nil {
			return err
		}
		if !canManage {
			comments[i].Delete = false
		}
	}
	return nil
}

// viewerInTeam reports whether the viewer submits for the submission's group.
func (r *filterRun) viewerInTeam(ctx context.Context) (bool, error) {
	canSubmit, err := r.caps.HasCapability(ctx, r.viewer, CapSubmit, ModuleContext(r.assign.CourseModuleID()))
	if err != nil {
		return false, err
	}
	if !canSubmit {
		return false, nil
	}
	canEdit, err := r.caps.CanEditGroupSubmission(ctx, r.viewer, r.assign.ID(), r.sub.GroupID)
	if err != nil {
		return false, err
	}
	return canEdit, nil
}

func (r *filterRun) canViewBlindDetails(ctx context.Context) (bool, error) {
	if r.blindDetails == nil {
		ok, err := r.caps.HasCapability(ctx, r.viewer, CapViewBlindDetails, ModuleContext(r.assign.CourseModuleID()))
		if err != nil {
			return false, err
		}
		r.blindDetails = &ok
	}
	return *r.blindDetails, nil
}

func (r *filterRun) canManageReviews(ctx context.Context) (bool, error) {
	if r.canManage == nil {
		ok, err := CanManageReviews(ctx, r.caps, r.viewer, r.courseID)
		if err != nil {
			return false, err
		}
		r.canManage = &ok
	}
	return *r.canManage, nil
}

func (r *filterRun) participantNumber(ctx context.Context, userID int) (int, error) {
	if num, ok := r.numbers[userID]; ok {
		return num, nil
	}
	num, err := r.assign.UniqueIDForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	r.numbers[userID] = num
	return num, nil
}

func (r *filterRun) anonymousIdentity(ctx context.Context, userID int) (AnonymousIdentity, error) {
	if ident, ok := r.identities[userID]; ok {
		return ident, nil
	}
	num, err := r.participantNumber(ctx, userID)
	if err != nil {
		return AnonymousIdentity{}, err
	}
	ident := AnonymousIdentity{
		Number:     num,
		FullName:   r.printer.BlindMarkingName(num),
		Avatar:     r.opts.PlaceholderAvatar,
		GuestID:    r.opts.GuestUserID,
		GuestEmail: r.opts.GuestEmail,
	}
	r.identities[userID] = ident
	return ident, nil
}

// CanManageReviews reports whether the viewer may delete other people's grade reviews:
// the capability is checked in the viewer's user context, then in the course context.
// Capability errors are returned as is.
func CanManageReviews(ctx context.Context, caps CapabilityChecker, viewer Viewer, courseID int) (bool, error) {
	ok, err := caps.HasCapability(ctx, viewer, CapEditReviewGrade, UserContext(viewer.ID))
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	ok, err = caps.HasCapability(ctx, viewer, CapEditReviewGrade, CourseContext(courseID))
	if err != nil {
		return false, err
	}
	return ok, nil
}
