package sqlxrepos

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjb2048/gradereviews/core/gradereview"
)

func TestAssignRepository_GetSubmission(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAssignRepository(db, testConf)

	cols := []string{"id", "assignment", "userid", "groupid"}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, assignment, userid, groupid FROM mdl_assign_submission WHERE id = $1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 3, 100, 0))
	mock.ExpectQuery("FROM mdl_assign_submission").WithArgs(2).WillReturnRows(sqlmock.NewRows(cols))

	sub, err := repo.GetSubmission(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, gradereview.Submission{ID: 1, AssignmentID: 3, UserID: 100}, sub)

	_, err = repo.GetSubmission(context.Background(), 2)
	assert.Equal(t, gradereview.ErrSubmissionNotFound, err)
}

func TestAssignRepository_GetAssignmentByContext(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAssignRepository(db, testConf)

	cols := []string{"id", "course", "cmid", "contextid", "blindmarking", "teamsubmission"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE ctx.id = $1 AND ctx.contextlevel = $2")).
		WithArgs(21, 70).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, 5, 11, 21, int64(1), int64(0)))
	mock.ExpectQuery("FROM mdl_context ctx").WithArgs(22, 70).WillReturnRows(sqlmock.NewRows(cols))

	inst, err := repo.GetAssignmentByContext(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, gradereview.AssignmentInstance{
		ID: 3, CourseID: 5, CourseModuleID: 11, ContextID: 21, BlindMarking: true,
	}, inst)

	_, err = repo.GetAssignmentByContext(context.Background(), 22)
	assert.Equal(t, gradereview.ErrAssignmentNotFound, err)
}

func TestAssignRepository_GetOrCreateUserMapping(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAssignRepository(db, testConf)

	selectMapping := regexp.QuoteMeta("SELECT id FROM mdl_assign_user_mapping WHERE assignment = $1 AND userid = $2")
	mock.ExpectQuery(selectMapping).WithArgs(3, 100).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectQuery(selectMapping).WithArgs(3, 101).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO mdl_assign_user_mapping (assignment, userid) VALUES ($1, $2) RETURNING id")).
		WithArgs(3, 101).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(43))
	mock.ExpectQuery(selectMapping).WithArgs(3, 102).WillReturnError(errors.New("connection reset"))

	id, err := repo.GetOrCreateUserMapping(context.Background(), 3, 100)
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	id, err = repo.GetOrCreateUserMapping(context.Background(), 3, 101)
	require.NoError(t, err)
	assert.Equal(t, 43, id)

	_, err = repo.GetOrCreateUserMapping(context.Background(), 3, 102)
	assert.EqualError(t, err, "getting user mapping: connection reset")
}

func TestAssignRepository_GetUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAssignRepository(db, testConf)

	cols := []string{"id", "firstname", "lastname", "email"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM mdl_user WHERE id = $1 AND deleted = 0")).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(100, "Stu", "Dent", "stu@test.test"))
	mock.ExpectQuery("FROM mdl_user").WithArgs(1).WillReturnRows(sqlmock.NewRows(cols))

	usr, err := repo.GetUser(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, "Stu Dent", usr.FullName())
	assert.Equal(t, "stu@test.test", usr.Email)

	_, err = repo.GetUser(context.Background(), 1)
	assert.Equal(t, gradereview.ErrUserNotFound, err)
}
