package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gjb2048/gradereviews/core"
	"github.com/gjb2048/gradereviews/core/gradereview"
	"github.com/gjb2048/gradereviews/core/privacy"
)

type privacyRepository struct {
	exec    sqlx.ExtContext
	tables  tables
	hostURL string
}

var _ privacy.Repository = (*privacyRepository)(nil) // interface compliance check

func NewPrivacyRepository(exec sqlx.ExtContext, conf *core.Config) *privacyRepository {
	return &privacyRepository{exec: exec, tables: newTables(conf.Database), hostURL: conf.GradeReviews.HostURL}
}

func (repo privacyRepository) params(extra map[string]interface{}) map[string]interface{} {
	p := map[string]interface{}{
		"component":   gradereview.Component,
		"commentarea": gradereview.AreaGradeReviews,
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

func (repo privacyRepository) ContextIDsForUser(ctx context.Context, userID int) ([]int, error) {
	var ids []int
	err := selectContext(ctx, repo.exec, &ids, repo.tables.sql(`
SELECT DISTINCT contextid
  FROM {comments}
 WHERE component = :component AND commentarea = :commentarea AND userid = :userid
 ORDER BY contextid`,
	), repo.params(map[string]interface{}{"userid": userID}))
	if err != nil {
		return nil, errors.Wrap(err, "selecting contexts")
	}
	return ids, nil
}

func (repo privacyRepository) StudentUserIDs(ctx context.Context, assignmentID, teacherID int) ([]int, error) {
	var ids []int
	err := selectContext(ctx, repo.exec, &ids, repo.tables.sql(`
SELECT DISTINCT asub.userid AS id
  FROM {assign_submission} asub
  JOIN {comments} c ON c.itemid = asub.id AND c.component = :component AND c.commentarea = :commentarea
 WHERE c.userid = :teacherid AND asub.assignment = :assignid
 ORDER BY id`,
	), repo.params(map[string]interface{}{"teacherid": teacherID, "assignid": assignmentID}))
	if err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	return ids, nil
}

func (repo privacyRepository) UserIDsInContext(ctx context.Context, contextID int) ([]int, error) {
	var ids []int
	err := selectContext(ctx, repo.exec, &ids, repo.tables.sql(`
SELECT DISTINCT userid
  FROM {comments}
 WHERE component = :component AND commentarea = :commentarea AND contextid = :contextid
 ORDER BY userid`,
	), repo.params(map[string]interface{}{"contextid": contextID}))
	if err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	return ids, nil
}

func (repo privacyRepository) ExportComments(ctx context.Context, contextID, itemID, userID int) ([]gradereview.Comment, error) {
	query := selectComments + `
 WHERE c.component = :component AND c.commentarea = :commentarea AND c.contextid = :contextid AND c.itemid = :itemid`
	params := repo.params(map[string]interface{}{"contextid": contextID, "itemid": itemID})
	if userID != 0 {
		query += " AND c.userid = :userid"
		params["userid"] = userID
	}
	query += " ORDER BY c.timecreated ASC, c.id ASC"

	var rows []commentRow
	if err := selectContext(ctx, repo.exec, &rows, repo.tables.sql(query), params); err != nil {
		return nil, errors.Wrap(err, "selecting comments")
	}
	return commentsFromRows(rows, repo.hostURL), nil
}

func (repo privacyRepository) DeleteComments(ctx context.Context, filter privacy.DeleteFilter) (int64, error) {
	query := "DELETE FROM {comments} WHERE component = :component AND commentarea = :commentarea AND contextid = :contextid"
	params := repo.params(map[string]interface{}{"contextid": filter.ContextID})
	if len(filter.UserIDs) > 0 {
		query += " AND userid IN (:userids)"
		params["userids"] = filter.UserIDs
	}

	q, args, err := named(repo.exec, repo.tables.sql(query), params)
	if err != nil {
		return 0, err
	}
	res, err := repo.exec.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting comments")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting comments")
	}
	return n, nil
}
