package gradereview

import (
	"context"

	"github.com/pkg/errors"
)

// Assignment is the descriptor the visibility rules need from the host assignment.
type Assignment interface {
	ID() int
	CourseID() int
	CourseModuleID() int
	IsBlindMarking() bool
	IsTeamSubmission() bool
	// UniqueIDForUser returns the participant number of userID, stable within this assignment.
	UniqueIDForUser(ctx context.Context, userID int) (int, error)
}

type assignment struct {
	inst     AssignmentInstance
	mappings UserMappingRepository
}

var _ Assignment = (*assignment)(nil) // interface compliance check

// NewAssignment wraps a host assignment record. Participant numbers are allocated through mappings.
func NewAssignment(inst AssignmentInstance, mappings UserMappingRepository) Assignment {
	return &assignment{inst: inst, mappings: mappings}
}

func (a *assignment) ID() int                { return a.inst.ID }
func (a *assignment) CourseID() int          { return a.inst.CourseID }
func (a *assignment) CourseModuleID() int    { return a.inst.CourseModuleID }
func (a *assignment) IsBlindMarking() bool   { return a.inst.BlindMarking }
func (a *assignment) IsTeamSubmission() bool { return a.inst.TeamSubmission }

func (a *assignment) UniqueIDForUser(ctx context.Context, userID int) (int, error) {
	id, err := a.mappings.GetOrCreateUserMapping(ctx, a.inst.ID, userID)
	if err != nil {
		return 0, errors.Wrapf(err, "allocating participant number for user %d", userID)
	}
	return id, nil
}
