package dummydb

import (
	"context"

	"github.com/gjb2048/gradereviews/core/gradereview"
)

// CapabilityChecker answers from the grants recorded with DB.Grant, DB.AllowSubmission and DB.AddGroupMember.
type CapabilityChecker struct {
	db *DB
}

var _ gradereview.CapabilityChecker = (*CapabilityChecker)(nil) // interface compliance check

func NewCapabilityChecker(db *DB) *CapabilityChecker {
	return &CapabilityChecker{db: db}
}

func (chk *CapabilityChecker) CanViewSubmission(_ context.Context, viewer gradereview.Viewer, _, userID int) (bool, error) {
	if viewer.ID == userID {
		return true, nil
	}
	chk.db.grant.RLock()
	defer chk.db.grant.RUnlock()
	return chk.db.grant.submissions[[2]int{viewer.ID, userID}], nil
}

func (chk *CapabilityChecker) CanViewGroupSubmission(_ context.Context, viewer gradereview.Viewer, _, groupID int) (bool, error) {
	chk.db.grant.RLock()
	defer chk.db.grant.RUnlock()
	return chk.db.grant.groups[[2]int{viewer.ID, groupID}] || chk.db.grant.submissions[[2]int{viewer.ID, 0}], nil
}

func (chk *CapabilityChecker) CanEditGroupSubmission(_ context.Context, viewer gradereview.Viewer, _, groupID int) (bool, error) {
	chk.db.grant.RLock()
	defer chk.db.grant.RUnlock()
	return chk.db.grant.groups[[2]int{viewer.ID, groupID}], nil
}

func (chk *CapabilityChecker) HasCapability(_ context.Context, viewer gradereview.Viewer, capability string, ref gradereview.ContextRef) (bool, error) {
	chk.db.grant.RLock()
	defer chk.db.grant.RUnlock()
	return chk.db.grant.caps[grant{viewer.ID, capability, ref}], nil
}
