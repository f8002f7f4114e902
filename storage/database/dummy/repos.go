package dummydb

import (
	"context"
	"sort"

	"github.com/gjb2048/gradereviews/core/gradereview"
	"github.com/gjb2048/gradereviews/core/privacy"
)

// Repository implements every repository of the grade reviews service on top of the in-memory DB.
type Repository struct {
	db *DB
}

var (
	_ gradereview.SubmissionRepository  = (*Repository)(nil) // interface compliance check
	_ gradereview.AssignmentRepository  = (*Repository)(nil)
	_ gradereview.UserMappingRepository = (*Repository)(nil)
	_ gradereview.CommentRepository     = (*Repository)(nil)
	_ gradereview.UserRepository        = (*Repository)(nil)
	_ privacy.Repository                = (*Repository)(nil)
)

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

func (repo *Repository) GetSubmission(_ context.Context, id int) (gradereview.Submission, error) {
	repo.db.submission.RLock()
	defer repo.db.submission.RUnlock()

	if sub, ok := repo.db.submission.table[id]; ok {
		return sub, nil
	}
	return gradereview.Submission{}, gradereview.ErrSubmissionNotFound
}

func (repo *Repository) GetAssignmentByContext(_ context.Context, contextID int) (gradereview.AssignmentInstance, error) {
	repo.db.assignment.RLock()
	defer repo.db.assignment.RUnlock()

	if inst, ok := repo.db.assignment.table[contextID]; ok {
		return inst, nil
	}
	return gradereview.AssignmentInstance{}, gradereview.ErrAssignmentNotFound
}

func (repo *Repository) GetOrCreateUserMapping(_ context.Context, assignmentID, userID int) (int, error) {
	repo.db.mapping.Lock()
	defer repo.db.mapping.Unlock()

	key := [2]int{assignmentID, userID}
	if id, ok := repo.db.mapping.table[key]; ok {
		return id, nil
	}
	repo.db.mapping.pkSeq++
	repo.db.mapping.table[key] = repo.db.mapping.pkSeq
	return repo.db.mapping.pkSeq, nil
}

func (repo *Repository) GetUser(_ context.Context, id int) (gradereview.User, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()

	if usr, ok := repo.db.user.table[id]; ok {
		return usr, nil
	}
	return gradereview.User{}, gradereview.ErrUserNotFound
}

func (repo *Repository) fullName(userID int) string {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()
	return repo.db.user.table[userID].FullName()
}

func (repo *Repository) AddComment(_ context.Context, cmt gradereview.Comment) (gradereview.Comment, error) {
	cmt.FullName = repo.fullName(cmt.UserID)

	repo.db.comment.Lock()
	defer repo.db.comment.Unlock()

	repo.db.comment.pkSeq++
	cmt.ID = repo.db.comment.pkSeq
	repo.db.comment.table[cmt.ID] = &cmt
	return cmt, nil
}

func (repo *Repository) GetComment(_ context.Context, id int) (gradereview.Comment, error) {
	repo.db.comment.RLock()
	defer repo.db.comment.RUnlock()

	if cmt, ok := repo.db.comment.table[id]; ok {
		return *cmt, nil
	}
	return gradereview.Comment{}, gradereview.ErrCommentNotFound
}

// query returns the comments matching keep, oldest first.
func (repo *Repository) query(keep func(cmt *gradereview.Comment) bool) []gradereview.Comment {
	repo.db.comment.RLock()
	defer repo.db.comment.RUnlock()

	comments := make([]gradereview.Comment, 0)
	for _, cmt := range repo.db.comment.table {
		if keep(cmt) {
			comments = append(comments, *cmt)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].TimeCreated.Equal(comments[j].TimeCreated) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].TimeCreated.Before(comments[j].TimeCreated)
	})
	return comments
}

func (repo *Repository) ListComments(_ context.Context, filter gradereview.CommentFilter) ([]gradereview.Comment, error) {
	comments := repo.query(func(cmt *gradereview.Comment) bool {
		return cmt.ContextID == filter.ContextID && cmt.Component == filter.Component &&
			cmt.Area == filter.Area && cmt.ItemID == filter.ItemID
	})
	// newest first, the only ordering the service asks for
	for i, j := 0, len(comments)-1; i < j; i, j = i+1, j-1 {
		comments[i], comments[j] = comments[j], comments[i]
	}
	return comments, nil
}

func (repo *Repository) DeleteComment(_ context.Context, id int) error {
	repo.db.comment.Lock()
	defer repo.db.comment.Unlock()

	if _, ok := repo.db.comment.table[id]; !ok {
		return gradereview.ErrCommentNotFound
	}
	delete(repo.db.comment.table, id)
	return nil
}

// privacy

func isGradeReview(cmt *gradereview.Comment) bool {
	return cmt.Component == gradereview.Component && cmt.Area == gradereview.AreaGradeReviews
}

func distinct(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

func (repo *Repository) ContextIDsForUser(_ context.Context, userID int) ([]int, error) {
	var ids []int
	for _, cmt := range repo.query(func(cmt *gradereview.Comment) bool { return isGradeReview(cmt) && cmt.UserID == userID }) {
		ids = append(ids, cmt.ContextID)
	}
	return distinct(ids), nil
}

func (repo *Repository) StudentUserIDs(ctx context.Context, assignmentID, teacherID int) ([]int, error) {
	var ids []int
	for _, cmt := range repo.query(func(cmt *gradereview.Comment) bool { return isGradeReview(cmt) && cmt.UserID == teacherID }) {
		sub, err := repo.GetSubmission(ctx, cmt.ItemID)
		if err != nil || sub.AssignmentID != assignmentID {
			continue
		}
		ids = append(ids, sub.UserID)
	}
	return distinct(ids), nil
}

func (repo *Repository) UserIDsInContext(_ context.Context, contextID int) ([]int, error) {
	var ids []int
	for _, cmt := range repo.query(func(cmt *gradereview.Comment) bool { return isGradeReview(cmt) && cmt.ContextID == contextID }) {
		ids = append(ids, cmt.UserID)
	}
	return distinct(ids), nil
}

func (repo *Repository) ExportComments(_ context.Context, contextID, itemID, userID int) ([]gradereview.Comment, error) {
	return repo.query(func(cmt *gradereview.Comment) bool {
		return isGradeReview(cmt) && cmt.ContextID == contextID && cmt.ItemID == itemID &&
			(userID == 0 || cmt.UserID == userID)
	}), nil
}

func (repo *Repository) DeleteComments(_ context.Context, filter privacy.DeleteFilter) (int64, error) {
	users := make(map[int]bool, len(filter.UserIDs))
	for _, id := range filter.UserIDs {
		users[id] = true
	}

	repo.db.comment.Lock()
	defer repo.db.comment.Unlock()

	var n int64
	for id, cmt := range repo.db.comment.table {
		if !isGradeReview(cmt) || cmt.ContextID != filter.ContextID {
			continue
		}
		if len(users) > 0 && !users[cmt.UserID] {
			continue
		}
		delete(repo.db.comment.table, id)
		n++
	}
	return n, nil
}
