package tracker

import (
	"context"

	"github.com/caseload/caseload/core/assignment"
)

// Remote is the assignment store the tracker synchronises with.
// Failures are reported as *NetworkError.
type Remote interface {
	List(ctx context.Context, sess Session) ([]assignment.Assignment, error)
	Create(ctx context.Context, sess Session, na assignment.NewAssignment) (assignment.Assignment, error)
	// Update sends only the set fields of ua and returns the full server record.
	Update(ctx context.Context, sess Session, id string, ua assignment.UpdateAssignment) (assignment.Assignment, error)
	Delete(ctx context.Context, sess Session, id string) error
}
