package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gjb2048/gradereviews/core"
	"github.com/gjb2048/gradereviews/core/gradereview"
)

// Assignment capabilities consulted on top of the grade reviews ones.
const (
	CapView                 = "mod/assign:view"
	CapGrade                = "mod/assign:grade"
	CapViewGrades           = "mod/assign:viewgrades"
	CapEditOthersSubmission = "mod/assign:editothersubmission"

	permissionProhibit = -1000
)

// capabilityChecker resolves capabilities from the host role tables.
// A capability is granted when a role assigned to the user in the context, or in one of
// its parents, allows it and none prohibits it.
type capabilityChecker struct {
	exec   sqlx.ExtContext
	tables tables
}

var _ gradereview.CapabilityChecker = (*capabilityChecker)(nil) // interface compliance check

func NewCapabilityChecker(exec sqlx.ExtContext, conf *core.Config) *capabilityChecker {
	return &capabilityChecker{exec: exec, tables: newTables(conf.Database)}
}

// contextPath returns the ids of a context and its parents, from its "/1/3/21" path.
func (chk capabilityChecker) contextPath(ctx context.Context, ref gradereview.ContextRef) ([]int, error) {
	var p string
	err := getContext(ctx, chk.exec, &p, chk.tables.sql(
		"SELECT path FROM {context} WHERE contextlevel = :contextlevel AND instanceid = :instanceid",
	), map[string]interface{}{"contextlevel": int(ref.Level), "instanceid": ref.InstanceID})
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "getting %s context %d", ref.Level, ref.InstanceID)
	}
	return parsePath(p)
}

func parsePath(p string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(strings.Trim(p, "/"), "/") {
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing context path %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (chk capabilityChecker) hasCapabilityInPath(ctx context.Context, userID int, capability string, contextIDs []int) (bool, error) {
	if len(contextIDs) == 0 || userID == 0 {
		return false, nil
	}
	var perms struct {
		Min int `db:"minperm"`
		Max int `db:"maxperm"`
	}
	err := getContext(ctx, chk.exec, &perms, chk.tables.sql(`
SELECT COALESCE(MIN(rc.permission), 0) AS minperm, COALESCE(MAX(rc.permission), 0) AS maxperm
  FROM {role_assignments} ra
  JOIN {role_capabilities} rc ON rc.roleid = ra.roleid
 WHERE ra.userid = :userid AND ra.contextid IN (:contextids) AND rc.capability = :capability`,
	), map[string]interface{}{"userid": userID, "contextids": contextIDs, "capability": capability})
	if err != nil {
		return false, errors.Wrapf(err, "checking %s", capability)
	}
	return perms.Max > 0 && perms.Min > permissionProhibit, nil
}

func (chk capabilityChecker) HasCapability(ctx context.Context, viewer gradereview.Viewer, capability string, ref gradereview.ContextRef) (bool, error) {
	path, err := chk.contextPath(ctx, ref)
	if err != nil {
		return false, err
	}
	return chk.hasCapabilityInPath(ctx, viewer.ID, capability, path)
}

// moduleContextPath returns the context path of the course module of an assignment.
func (chk capabilityChecker) moduleContextPath(ctx context.Context, assignmentID int) ([]int, error) {
	var p string
	err := getContext(ctx, chk.exec, &p, chk.tables.sql(`
SELECT ctx.path
  FROM {course_modules} cm
  JOIN {modules} m ON m.id = cm.module AND m.name = 'assign'
  JOIN {context} ctx ON ctx.instanceid = cm.id AND ctx.contextlevel = :contextlevel
 WHERE cm.instance = :assignmentid`,
	), map[string]interface{}{"contextlevel": int(gradereview.ContextModule), "assignmentid": assignmentID})
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "getting context of assignment %d", assignmentID)
	}
	return parsePath(p)
}

func (chk capabilityChecker) hasAny(ctx context.Context, userID int, path []int, capabilities ...string) (bool, error) {
	for _, capability := range capabilities {
		ok, err := chk.hasCapabilityInPath(ctx, userID, capability, path)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (chk capabilityChecker) isGroupMember(ctx context.Context, userID, groupID int) (bool, error) {
	var n int
	err := getContext(ctx, chk.exec, &n, chk.tables.sql(
		"SELECT COUNT(1) FROM {groups_members} WHERE groupid = :groupid AND userid = :userid",
	), map[string]interface{}{"groupid": groupID, "userid": userID})
	if err != nil {
		return false, errors.Wrap(err, "checking group membership")
	}
	return n > 0, nil
}

// CanViewSubmission: graders see every submission, students their own.
func (chk capabilityChecker) CanViewSubmission(ctx context.Context, viewer gradereview.Viewer, assignmentID, userID int) (bool, error) {
	path, err := chk.moduleContextPath(ctx, assignmentID)
	if err != nil {
		return false, err
	}
	if ok, err := chk.hasCapabilityInPath(ctx, viewer.ID, CapView, path); err != nil || !ok {
		return false, err
	}
	if viewer.ID == userID {
		return true, nil
	}
	return chk.hasAny(ctx, viewer.ID, path, CapGrade, CapViewGrades)
}

// CanViewGroupSubmission: graders see every group submission, members their group's.
// Group 0 is the default group every participant belongs to.
func (chk capabilityChecker) CanViewGroupSubmission(ctx context.Context, viewer gradereview.Viewer, assignmentID, groupID int) (bool, error) {
	path, err := chk.moduleContextPath(ctx, assignmentID)
	if err != nil {
		return false, err
	}
	if ok, err := chk.hasCapabilityInPath(ctx, viewer.ID, CapView, path); err != nil || !ok {
		return false, err
	}
	if ok, err := chk.hasAny(ctx, viewer.ID, path, CapGrade, CapViewGrades); err != nil || ok {
		return ok, err
	}
	if groupID == 0 {
		return chk.hasCapabilityInPath(ctx, viewer.ID, gradereview.CapSubmit, path)
	}
	return chk.isGroupMember(ctx, viewer.ID, groupID)
}

// CanEditGroupSubmission: members may edit their group's submission, editors any.
func (chk capabilityChecker) CanEditGroupSubmission(ctx context.Context, viewer gradereview.Viewer, assignmentID, groupID int) (bool, error) {
	path, err := chk.moduleContextPath(ctx, assignmentID)
	if err != nil {
		return false, err
	}
	if ok, err := chk.hasCapabilityInPath(ctx, viewer.ID, CapEditOthersSubmission, path); err != nil || ok {
		return ok, err
	}
	canSubmit, err := chk.hasCapabilityInPath(ctx, viewer.ID, gradereview.CapSubmit, path)
	if err != nil || !canSubmit {
		return false, err
	}
	if groupID == 0 {
		return true, nil
	}
	return chk.isGroupMember(ctx, viewer.ID, groupID)
}
