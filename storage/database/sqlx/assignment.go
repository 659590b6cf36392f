package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/caseload/caseload/core/assignment"
)

const assignmentColumns = `id, due_date, name, school_site, status, assignment_type, ap_signed, ap_date_signed,
	iep_signed, iep_date_signed, priority, created_by, created_at, updated_at`

type assignmentRow struct {
	ID            string    `db:"id"`
	DueDate       time.Time `db:"due_date"`
	Name          string    `db:"name"`
	SchoolSite    string    `db:"school_site"`
	Status        string    `db:"status"`
	Type          string    `db:"assignment_type"`
	APSigned      bool      `db:"ap_signed"`
	APDateSigned  null.Time `db:"ap_date_signed"`
	IEPSigned     bool      `db:"iep_signed"`
	IEPDateSigned null.Time `db:"iep_date_signed"`
	Priority      bool      `db:"priority"`
	CreatedBy     string    `db:"created_by"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func nullDate(d assignment.Date) null.Time {
	return null.NewTime(d.Time(), !d.IsZero())
}

func dateOf(t null.Time) assignment.Date {
	if !t.Valid {
		return assignment.Date{}
	}
	return assignment.DateOf(t.Time.UTC())
}

func toAssignmentRow(a assignment.Assignment) assignmentRow {
	return assignmentRow{
		ID:            a.ID,
		DueDate:       a.DueDate.Time(),
		Name:          a.Name,
		SchoolSite:    a.SchoolSite,
		Status:        string(a.Status),
		Type:          string(a.Type),
		APSigned:      a.APSigned,
		APDateSigned:  nullDate(a.APDateSigned),
		IEPSigned:     a.IEPSigned,
		IEPDateSigned: nullDate(a.IEPDateSigned),
		Priority:      a.Priority,
		CreatedBy:     a.CreatedBy,
		CreatedAt:     a.CreatedAt.UTC(),
		UpdatedAt:     a.UpdatedAt.UTC(),
	}
}

func (r assignmentRow) assignment() assignment.Assignment {
	return assignment.Assignment{
		ID:            r.ID,
		DueDate:       assignment.DateOf(r.DueDate.UTC()),
		Name:          r.Name,
		SchoolSite:    r.SchoolSite,
		Status:        assignment.Status(r.Status),
		Type:          assignment.Type(r.Type),
		APSigned:      r.APSigned,
		APDateSigned:  dateOf(r.APDateSigned),
		IEPSigned:     r.IEPSigned,
		IEPDateSigned: dateOf(r.IEPDateSigned),
		Priority:      r.Priority,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *sqlx.DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo assignmentRepository) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	a.ID = uuid.New().String()
	q := `INSERT INTO assignment (` + assignmentColumns + `)
		VALUES (:id, :due_date, :name, :school_site, :status, :assignment_type, :ap_signed, :ap_date_signed,
		:iep_signed, :iep_date_signed, :priority, :created_by, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, toAssignmentRow(a)); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return repo.GetAssignment(ctx, a.ID)
}

func (repo assignmentRepository) QueryAssignments(ctx context.Context, filter assignment.QueryFilter) ([]assignment.Assignment, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CreatedBy != "" {
		if _, err := uuid.Parse(filter.CreatedBy); err != nil {
			return []assignment.Assignment{}, nil
		}
		where = append(where, "created_by = ?")
		args = append(args, filter.CreatedBy)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		where = append(where, "status IN (?)")
		args = append(args, statuses)
	}

	q := `SELECT ` + assignmentColumns + ` FROM assignment`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY due_date, name, id`

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building assignments query")
	}

	var rows []assignmentRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	list := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.assignment())
	}
	return list, nil
}

func (repo assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT `+assignmentColumns+` FROM assignment WHERE id = $1`, id); err != nil {
		return assignment.Assignment{}, trapNoRowsErr(err, assignment.ErrNotFound, "selecting assignment")
	}
	return row.assignment(), nil
}

func (repo assignmentRepository) UpdateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	if _, err := uuid.Parse(a.ID); err != nil {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	q := `UPDATE assignment SET
		due_date = :due_date, name = :name, school_site = :school_site, status = :status,
		assignment_type = :assignment_type, ap_signed = :ap_signed, ap_date_signed = :ap_date_signed,
		iep_signed = :iep_signed, iep_date_signed = :iep_date_signed, priority = :priority, updated_at = :updated_at
		WHERE id = :id`
	if err := execOne(ctx, repo.db, assignment.ErrNotFound, q, toAssignmentRow(a)); err != nil {
		if err == assignment.ErrNotFound {
			return assignment.Assignment{}, err
		}
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	return repo.GetAssignment(ctx, a.ID)
}

func (repo assignmentRepository) DeleteAssignment(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return assignment.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM assignment WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.ErrNotFound
	}
	return nil
}
