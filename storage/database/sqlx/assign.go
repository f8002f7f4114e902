package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gjb2048/gradereviews/core"
	"github.com/gjb2048/gradereviews/core/gradereview"
)

// assignRepository reads the assignment tables of the host.
type assignRepository struct {
	exec   sqlx.ExtContext
	tables tables
}

var (
	_ gradereview.SubmissionRepository  = (*assignRepository)(nil) // interface compliance check
	_ gradereview.AssignmentRepository  = (*assignRepository)(nil)
	_ gradereview.UserMappingRepository = (*assignRepository)(nil)
	_ gradereview.UserRepository        = (*assignRepository)(nil)
)

func NewAssignRepository(exec sqlx.ExtContext, conf *core.Config) *assignRepository {
	return &assignRepository{exec: exec, tables: newTables(conf.Database)}
}

func (repo assignRepository) GetSubmission(ctx context.Context, id int) (gradereview.Submission, error) {
	var sub gradereview.Submission
	err := getContext(ctx, repo.exec, &sub, repo.tables.sql(
		"SELECT id, assignment, userid, groupid FROM {assign_submission} WHERE id = :id",
	), map[string]interface{}{"id": id})
	if err != nil {
		return gradereview.Submission{}, trapNoRowsErr(err, gradereview.ErrSubmissionNotFound, "getting submission")
	}
	return sub, nil
}

func (repo assignRepository) GetAssignmentByContext(ctx context.Context, contextID int) (gradereview.AssignmentInstance, error) {
	var inst gradereview.AssignmentInstance
	err := getContext(ctx, repo.exec, &inst, repo.tables.sql(`
SELECT a.id, a.course, cm.id AS cmid, ctx.id AS contextid, a.blindmarking, a.teamsubmission
  FROM {context} ctx
  JOIN {course_modules} cm ON cm.id = ctx.instanceid
  JOIN {modules} m ON m.id = cm.module AND m.name = 'assign'
  JOIN {assign} a ON a.id = cm.instance
 WHERE ctx.id = :contextid AND ctx.contextlevel = :contextlevel`,
	), map[string]interface{}{"contextid": contextID, "contextlevel": int(gradereview.ContextModule)})
	if err != nil {
		return gradereview.AssignmentInstance{}, trapNoRowsErr(err, gradereview.ErrAssignmentNotFound, "getting assignment")
	}
	return inst, nil
}

// GetOrCreateUserMapping returns the id of the user's row in the assignment user mapping,
// inserting the row the first time a user is seen.
func (repo assignRepository) GetOrCreateUserMapping(ctx context.Context, assignmentID, userID int) (int, error) {
	params := map[string]interface{}{"assignment": assignmentID, "userid": userID}

	var id int
	err := getContext(ctx, repo.exec, &id, repo.tables.sql(
		"SELECT id FROM {assign_user_mapping} WHERE assignment = :assignment AND userid = :userid",
	), params)
	if err == nil {
		return id, nil
	}
	if errors.Cause(err) != sql.ErrNoRows {
		return 0, errors.Wrap(err, "getting user mapping")
	}

	if err = getContext(ctx, repo.exec, &id, repo.tables.sql(
		"INSERT INTO {assign_user_mapping} (assignment, userid) VALUES (:assignment, :userid) RETURNING id",
	), params); err != nil {
		return 0, errors.Wrap(err, "creating user mapping")
	}
	return id, nil
}

func (repo assignRepository) GetUser(ctx context.Context, id int) (gradereview.User, error) {
	var usr gradereview.User
	err := getContext(ctx, repo.exec, &usr, repo.tables.sql(
		"SELECT id, firstname, lastname, email FROM {user} WHERE id = :id AND deleted = 0",
	), map[string]interface{}{"id": id})
	if err != nil {
		return gradereview.User{}, trapNoRowsErr(err, gradereview.ErrUserNotFound, "getting user")
	}
	return usr, nil
}
