package dummydb

import (
	"sync"

	"github.com/gjb2048/gradereviews/core/gradereview"
)

type (
	// DB is an in-memory stand-in for the host database.
	DB struct {
		submission *submissionTable
		assignment *assignmentTable
		comment    *commentTable
		mapping    *mappingTable
		user       *userTable
		grant      *grantTable
	}

	submissionTable struct {
		sync.RWMutex
		table map[int]gradereview.Submission
	}

	assignmentTable struct {
		sync.RWMutex
		table map[int]gradereview.AssignmentInstance // {contextID: assignment}
	}

	commentTable struct {
		sync.RWMutex
		table map[int]*gradereview.Comment
		pkSeq int
	}

	mappingTable struct {
		sync.Mutex
		table map[[2]int]int // {[assignmentID, userID]: mapping id}
		pkSeq int
	}

	userTable struct {
		sync.RWMutex
		table map[int]gradereview.User
	}

	grantTable struct {
		sync.RWMutex
		caps        map[grant]bool
		submissions map[[2]int]bool // {[viewerID, userID]: can view}
		groups      map[[2]int]bool // {[viewerID, groupID]: member}
	}

	grant struct {
		userID     int
		capability string
		ref        gradereview.ContextRef
	}
)

func Open() (*DB, error) {
	db := &DB{
		submission: &submissionTable{table: make(map[int]gradereview.Submission)},
		assignment: &assignmentTable{table: make(map[int]gradereview.AssignmentInstance)},
		comment:    &commentTable{table: make(map[int]*gradereview.Comment)},
		mapping:    &mappingTable{table: make(map[[2]int]int)},
		user:       &userTable{table: make(map[int]gradereview.User)},
		grant: &grantTable{
			caps:        make(map[grant]bool),
			submissions: make(map[[2]int]bool),
			groups:      make(map[[2]int]bool),
		},
	}
	return db, nil
}

// fixtures

func (db *DB) AddAssignment(inst gradereview.AssignmentInstance) {
	db.assignment.Lock()
	defer db.assignment.Unlock()
	db.assignment.table[inst.ContextID] = inst
}

func (db *DB) AddSubmission(sub gradereview.Submission) {
	db.submission.Lock()
	defer db.submission.Unlock()
	db.submission.table[sub.ID] = sub
}

func (db *DB) AddUser(usr gradereview.User) {
	db.user.Lock()
	defer db.user.Unlock()
	db.user.table[usr.ID] = usr
}

// Grant gives a user a capability in a context.
func (db *DB) Grant(userID int, capability string, ref gradereview.ContextRef) {
	db.grant.Lock()
	defer db.grant.Unlock()
	db.grant.caps[grant{userID, capability, ref}] = true
}

// AllowSubmission lets viewerID see the submissions of userID.
// A userID of 0 lets them see every group submission.
func (db *DB) AllowSubmission(viewerID, userID int) {
	db.grant.Lock()
	defer db.grant.Unlock()
	db.grant.submissions[[2]int{viewerID, userID}] = true
}

// AddGroupMember makes userID a member of groupID.
func (db *DB) AddGroupMember(userID, groupID int) {
	db.grant.Lock()
	defer db.grant.Unlock()
	db.grant.groups[[2]int{userID, groupID}] = true
}
