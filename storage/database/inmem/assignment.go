package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/caseload/caseload/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	tbl := repo.db.assignment
	tbl.mutex.Lock()
	defer tbl.mutex.Unlock()

	a.ID = uuid.New().String()
	tbl.table[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) QueryAssignments(_ context.Context, filter assignment.QueryFilter) ([]assignment.Assignment, error) {
	tbl := repo.db.assignment
	tbl.mutex.RLock()
	defer tbl.mutex.RUnlock()

	list := make([]assignment.Assignment, 0, len(tbl.table))
	for _, a := range tbl.table {
		if filter.Match(*a) {
			list = append(list, *a)
		}
	}
	assignment.SortByDueDate(list)
	return list, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id string) (assignment.Assignment, error) {
	tbl := repo.db.assignment
	tbl.mutex.RLock()
	defer tbl.mutex.RUnlock()

	if a, ok := tbl.table[id]; ok {
		return *a, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) UpdateAssignment(_ context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	tbl := repo.db.assignment
	tbl.mutex.Lock()
	defer tbl.mutex.Unlock()

	orig, ok := tbl.table[a.ID]
	if !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	// owner and creation time are immutable
	a.CreatedBy = orig.CreatedBy
	a.CreatedAt = orig.CreatedAt
	tbl.table[a.ID] = &a
	return a, nil
}

func (repo *assignmentRepository) DeleteAssignment(_ context.Context, id string) error {
	tbl := repo.db.assignment
	tbl.mutex.Lock()
	defer tbl.mutex.Unlock()

	if _, ok := tbl.table[id]; !ok {
		return assignment.ErrNotFound
	}
	delete(tbl.table, id)
	return nil
}
