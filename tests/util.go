package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gjb2048/gradereviews/core"
	"github.com/gjb2048/gradereviews/core/gradereview"
	"github.com/gjb2048/gradereviews/storage/database/dummy"
)

// Fixture ids: one course with a plain assignment and a blind-marked one.
const (
	CourseID = 2

	AssignID        = 3
	AssignCMID      = 11
	AssignContextID = 20

	BlindAssignID        = 4
	BlindAssignCMID      = 12
	BlindAssignContextID = 30

	SubmissionID      = 1 // Student's submission to the plain assignment
	BlindSubmissionID = 2 // Student's submission to the blind-marked assignment

	StudentID   = 100
	TeacherID   = 200 // may view and manage reviews
	ClassmateID = 300 // may view nothing
	MarkerID    = 400 // may view submissions, not blind details
)

// Config returns a TEST configuration that does not read the environment.
func Config() *core.Config {
	return &core.Config{
		Env:      "TEST",
		TestMode: true,
		AppName:  "Grade Reviews",
		Server: core.ServerConfig{
			Host:            "localhost",
			Port:            8000,
			ShutdownTimeout: time.Second,
			UserHeader:      "X-Gradereviews-User",
		},
		Database: core.DatabaseConfig{TablePrefix: "mdl_"},
		GradeReviews: core.GradeReviewsConfig{
			HostURL:            "https://lms.test",
			AnonymizeReviewers: true,
			GuestUserID:        1,
			GuestEmail:         "root@localhost",
			PlaceholderAvatar:  "/theme/image.php/boost/core/1/u/f2",
			NotifyAuthor:       true,
			MaxContentLength:   50,
		},
	}
}

// OpenDB returns a dummy database seeded with the fixture.
func OpenDB(t *testing.T) *dummydb.DB {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	db.AddAssignment(gradereview.AssignmentInstance{
		ID: AssignID, CourseID: CourseID, CourseModuleID: AssignCMID, ContextID: AssignContextID,
	})
	db.AddAssignment(gradereview.AssignmentInstance{
		ID: BlindAssignID, CourseID: CourseID, CourseModuleID: BlindAssignCMID, ContextID: BlindAssignContextID,
		BlindMarking: true,
	})
	db.AddSubmission(gradereview.Submission{ID: SubmissionID, AssignmentID: AssignID, UserID: StudentID})
	db.AddSubmission(gradereview.Submission{ID: BlindSubmissionID, AssignmentID: BlindAssignID, UserID: StudentID})

	db.AddUser(gradereview.User{ID: StudentID, FirstName: "Stu", LastName: "Dent", Email: "stu@lms.test"})
	db.AddUser(gradereview.User{ID: TeacherID, FirstName: "Tea", LastName: "Cher", Email: "tea@lms.test"})
	db.AddUser(gradereview.User{ID: ClassmateID, FirstName: "Class", LastName: "Mate", Email: "mate@lms.test"})
	db.AddUser(gradereview.User{ID: MarkerID, FirstName: "Mar", LastName: "Ker", Email: "marker@lms.test"})

	db.AllowSubmission(TeacherID, StudentID)
	db.AllowSubmission(MarkerID, StudentID)
	db.Grant(TeacherID, gradereview.CapEditReviewGrade, gradereview.CourseContext(CourseID))
	db.Grant(TeacherID, gradereview.CapViewBlindDetails, gradereview.ModuleContext(BlindAssignCMID))
	return db
}

// AddReview stores a grade review as the host would.
func AddReview(t *testing.T, db *dummydb.DB, contextID, itemID, userID int, content string) gradereview.Comment {
	cmt, err := dummydb.NewRepository(db).AddComment(context.Background(), gradereview.Comment{
		ContextID:   contextID,
		Component:   gradereview.Component,
		Area:        gradereview.AreaGradeReviews,
		ItemID:      itemID,
		UserID:      userID,
		Content:     content,
		TimeCreated: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("AddReview() failed: %v", err)
	}
	return cmt
}

// Logger discards everything.
type Logger struct{}

var _ core.Logger = (*Logger)(nil)

func (*Logger) Debug(string, ...interface{}) {}
func (*Logger) Info(string, ...interface{})  {}
func (*Logger) Warn(string, ...interface{})  {}
func (*Logger) Error(string, ...interface{}) {}
func (*Logger) Fatal(string, ...interface{}) {}
