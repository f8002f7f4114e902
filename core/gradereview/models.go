package gradereview

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/gjb2048/gradereviews/core"
)

const (
	Component = "assignsubmission_gradereviews"

	// Comment areas
	AreaGradeReviews = "submission_gradereviews"
	AreaUpgrade      = "submission_gradereviews_upgrade" // used by the upgrade code; rewritten on add
)

// Capabilities
const (
	CapSubmit           = "mod/assign:submit"
	CapViewBlindDetails = "mod/assign:viewblinddetails"
	CapEditReviewGrade  = "assign/submission:caneditreviewgrade"
)

// ContextLevel mirrors the host context levels.
type ContextLevel int

const (
	ContextSystem ContextLevel = 10
	ContextUser   ContextLevel = 30
	ContextCourse ContextLevel = 50
	ContextModule ContextLevel = 70
)

func (l ContextLevel) String() string {
	switch l {
	case ContextSystem:
		return "system"
	case ContextUser:
		return "user"
	case ContextCourse:
		return "course"
	case ContextModule:
		return "module"
	default:
		return "unknown"
	}
}

// ContextRef points to a host context by level and instance id (user id, course id, course module id).
type ContextRef struct {
	Level      ContextLevel
	InstanceID int
}

func UserContext(userID int) ContextRef {
	return ContextRef{Level: ContextUser, InstanceID: userID}
}

func CourseContext(courseID int) ContextRef {
	return ContextRef{Level: ContextCourse, InstanceID: courseID}
}

func ModuleContext(cmID int) ContextRef {
	return ContextRef{Level: ContextModule, InstanceID: cmID}
}

// Submission is owned by the host. UserID is 0 for group submissions.
type Submission struct {
	ID           int `json:"id" db:"id"`
	AssignmentID int `json:"assignment" db:"assignment"`
	UserID       int `json:"userid" db:"userid"`
	GroupID      int `json:"groupid" db:"groupid"`
}

// Comment is a grade review as stored by the host comment subsystem.
// FullName, Avatar, ProfileURL and Delete are display fields, adjusted before rendering.
type Comment struct {
	ID          int       `json:"id" db:"id"`
	ContextID   int       `json:"contextid" db:"contextid"`
	Component   string    `json:"component" db:"component"`
	Area        string    `json:"commentarea" db:"commentarea"`
	ItemID      int       `json:"itemid" db:"itemid"`
	UserID      int       `json:"userid" db:"userid"`
	Content     string    `json:"content" db:"content"`
	Format      int       `json:"format" db:"format"`
	TimeCreated time.Time `json:"timecreated" db:"timecreated"`

	FullName   string      `json:"fullname" db:"fullname"`
	Avatar     null.String `json:"avatar" db:"-"`
	ProfileURL null.String `json:"profileurl" db:"-"`
	Delete     bool        `json:"delete" db:"-"`
}

// Viewer is the acting user.
type Viewer struct {
	ID int
}

// Options is what the host comment API hands to every callback.
type Options struct {
	Area           string `json:"area" validate:"required"`
	CourseID       int    `json:"courseid" validate:"gte=0"` // defaults to the assignment's course
	ContextID      int    `json:"contextid" validate:"gt=0"`
	CourseModuleID int    `json:"cmid" validate:"gte=0"`
	ItemID         int    `json:"itemid" validate:"gt=0"`
	Component      string `json:"component"`
	ShowCount      bool   `json:"showcount"`
	DisplayCancel  bool   `json:"displaycancel"`
}

func (opts *Options) Clean() {
	opts.Area = core.CleanString(opts.Area, true /* lower */)
	opts.Component = core.CleanString(opts.Component, true /* lower */)
	if opts.Component == "" {
		opts.Component = Component
	}
}

// Permissions answers the host comment API permission callback.
type Permissions struct {
	Post bool `json:"post"`
	View bool `json:"view"`
}

// NewReview contains information needed to post a grade review.
type NewReview struct {
	Content string `json:"content" validate:"required,notblank"`
	Format  int    `json:"format" validate:"gte=0,lte=4"`
}

func (nr *NewReview) Clean() {
	nr.Content = core.CleanString(nr.Content)
}

// AssignmentInstance is the host assignment record behind a module context.
type AssignmentInstance struct {
	ID             int  `json:"id" db:"id"`
	CourseID       int  `json:"course" db:"course"`
	CourseModuleID int  `json:"cmid" db:"cmid"`
	ContextID      int  `json:"contextid" db:"contextid"`
	BlindMarking   bool `json:"blindmarking" db:"blindmarking"`
	TeamSubmission bool `json:"teamsubmission" db:"teamsubmission"`
}
