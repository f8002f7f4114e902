package privacy

import (
	"time"

	"github.com/gjb2048/gradereviews/core/gradereview"
)

const SubsystemComment = "core_comment"

// Context is a host context, as handed over by the privacy API.
type Context struct {
	ID    int
	Level gradereview.ContextLevel
}

// SubsystemLink declares personal data stored through another subsystem.
type SubsystemLink struct {
	Subsystem  string `json:"subsystem"`
	PurposeKey string `json:"purposekey"`
	Purpose    string `json:"purpose"`
}

type Metadata struct {
	Component string          `json:"component"`
	Links     []SubsystemLink `json:"links"`
}

// ExportRequest selects the grade reviews of one submission.
// A zero UserID exports every review on the submission, for its author;
// otherwise only the reviews written by that user are exported.
type ExportRequest struct {
	ContextID    int
	SubmissionID int
	UserID       int
	Subcontext   []string
}

// ExportedComment is the exported form of a grade review.
type ExportedComment struct {
	Content     string    `json:"content"`
	Format      int       `json:"format"`
	TimeCreated time.Time `json:"timecreated"`
	UserID      int       `json:"userid"`
	Author      string    `json:"author"`
}

// DeleteFilter selects the grade reviews to delete within a context.
// No user ids means every review of the context.
type DeleteFilter struct {
	ContextID int
	UserIDs   []int
}
