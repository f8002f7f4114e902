package sqlxrepos

import (
	"context"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gjb2048/gradereviews/core"
	"github.com/gjb2048/gradereviews/core/gradereview"
)

const selectComments = `
SELECT c.id, c.contextid, c.component, c.commentarea, c.itemid, c.userid, c.content, c.format, c.timecreated,
       u.firstname, u.lastname
  FROM {comments} c
  LEFT JOIN {user} u ON u.id = c.userid`

var commentColumns = map[string]string{
	"id":          "c.id",
	"timecreated": "c.timecreated",
	"userid":      "c.userid",
}

// commentRow is a row of the host comments table; timecreated is a unix timestamp.
type commentRow struct {
	ID          int         `db:"id"`
	ContextID   int         `db:"contextid"`
	Component   string      `db:"component"`
	Area        string      `db:"commentarea"`
	ItemID      int         `db:"itemid"`
	UserID      int         `db:"userid"`
	Content     string      `db:"content"`
	Format      int         `db:"format"`
	TimeCreated int64       `db:"timecreated"`
	FirstName   null.String `db:"firstname"`
	LastName    null.String `db:"lastname"`
}

func (row commentRow) comment(hostURL string) gradereview.Comment {
	return gradereview.Comment{
		ID:          row.ID,
		ContextID:   row.ContextID,
		Component:   row.Component,
		Area:        row.Area,
		ItemID:      row.ItemID,
		UserID:      row.UserID,
		Content:     row.Content,
		Format:      row.Format,
		TimeCreated: time.Unix(row.TimeCreated, 0).UTC(),
		FullName:    core.CleanString(row.FirstName.String + " " + row.LastName.String),
		ProfileURL:  profileURL(hostURL, row.UserID),
	}
}

func profileURL(hostURL string, userID int) null.String {
	if hostURL == "" || userID == 0 {
		return null.String{}
	}
	u, err := url.Parse(hostURL)
	if err != nil {
		return null.String{}
	}
	u.Path = path.Join("/", u.Path, "user/profile.php")
	u.RawQuery = url.Values{"id": {strconv.Itoa(userID)}}.Encode()
	return null.StringFrom(u.String())
}

type commentRepository struct {
	exec    sqlx.ExtContext
	tables  tables
	hostURL string
}

var _ gradereview.CommentRepository = (*commentRepository)(nil) // interface compliance check

// NewCommentRepository stores grade reviews in the host comments table.
// hostURL is used to link comment authors to their profile.
func NewCommentRepository(exec sqlx.ExtContext, conf *core.Config) *commentRepository {
	return &commentRepository{exec: exec, tables: newTables(conf.Database), hostURL: conf.GradeReviews.HostURL}
}

func (repo commentRepository) AddComment(ctx context.Context, cmt gradereview.Comment) (gradereview.Comment, error) {
	if cmt.TimeCreated.IsZero() {
		cmt.TimeCreated = time.Now()
	}
	q, args, err := named(repo.exec, repo.tables.sql(`
INSERT INTO {comments} (contextid, component, commentarea, itemid, content, format, userid, timecreated)
VALUES (:contextid, :component, :commentarea, :itemid, :content, :format, :userid, :timecreated)
RETURNING id`), map[string]interface{}{
		"contextid":   cmt.ContextID,
		"component":   cmt.Component,
		"commentarea": cmt.Area,
		"itemid":      cmt.ItemID,
		"content":     cmt.Content,
		"format":      cmt.Format,
		"userid":      cmt.UserID,
		"timecreated": cmt.TimeCreated.Unix(),
	})
	if err != nil {
		return gradereview.Comment{}, err
	}

	var id int
	if err = repo.exec.QueryRowxContext(ctx, q, args...).Scan(&id); err != nil {
		return gradereview.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return repo.GetComment(ctx, id)
}

func (repo commentRepository) GetComment(ctx context.Context, id int) (gradereview.Comment, error) {
	var row commentRow
	err := getContext(ctx, repo.exec, &row, repo.tables.sql(selectComments+" WHERE c.id = :id"), map[string]interface{}{"id": id})
	if err != nil {
		return gradereview.Comment{}, trapNoRowsErr(err, gradereview.ErrCommentNotFound, "getting comment")
	}
	return row.comment(repo.hostURL), nil
}

func (repo commentRepository) ListComments(ctx context.Context, filter gradereview.CommentFilter) ([]gradereview.Comment, error) {
	order, err := orderBy(filter.Ordering, commentColumns)
	if err != nil {
		return nil, err
	}
	query := selectComments + `
 WHERE c.contextid = :contextid AND c.component = :component AND c.commentarea = :commentarea AND c.itemid = :itemid` + order

	var rows []commentRow
	err = selectContext(ctx, repo.exec, &rows, repo.tables.sql(query), map[string]interface{}{
		"contextid":   filter.ContextID,
		"component":   filter.Component,
		"commentarea": filter.Area,
		"itemid":      filter.ItemID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing comments")
	}
	return commentsFromRows(rows, repo.hostURL), nil
}

func (repo commentRepository) DeleteComment(ctx context.Context, id int) error {
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(repo.tables.sql("DELETE FROM {comments} WHERE id = ?")), id)
	if err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return gradereview.ErrCommentNotFound
	}
	return nil
}

func commentsFromRows(rows []commentRow, hostURL string) []gradereview.Comment {
	comments := make([]gradereview.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.comment(hostURL))
	}
	return comments
}
