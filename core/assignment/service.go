package assignment

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound = errors.New("assignment not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateAssignment stores a new Assignment and returns it with its generated ID.
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		// QueryAssignments returns the assignments matching filter, by ascending due date.
		QueryAssignments(ctx context.Context, filter QueryFilter) ([]Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, owner string, na NewAssignment) (Assignment, error)
		Query(ctx context.Context, owner string) ([]Assignment, error)
		Get(ctx context.Context, owner, id string) (Assignment, error)
		Update(ctx context.Context, owner, id string, ua UpdateAssignment) (Assignment, error)
		Delete(ctx context.Context, owner, id string) error
	}

	// Service holds the server side rules: validation, ownership, defaults and timestamps.
	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, owner string, na NewAssignment) (Assignment, error) {
	if err := na.Validate(); err != nil {
		return Assignment{}, err
	}
	status := na.Status
	if status == "" {
		status = StatusNotStarted
	}
	now := nowFunc().UTC()
	a := Assignment{
		DueDate:       na.DueDate,
		Name:          na.Name,
		SchoolSite:    na.SchoolSite,
		Status:        status,
		Type:          na.Type,
		APSigned:      na.APSigned,
		APDateSigned:  na.APDateSigned,
		IEPSigned:     na.IEPSigned,
		IEPDateSigned: na.IEPDateSigned,
		Priority:      na.Priority,
		CreatedBy:     owner,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	a, err := svc.repo.CreateAssignment(ctx, a)
	return a, errors.Wrap(err, "creating assignment")
}

func (svc *Service) Query(ctx context.Context, owner string) ([]Assignment, error) {
	list, err := svc.repo.QueryAssignments(ctx, QueryFilter{CreatedBy: owner})
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	SortByDueDate(list)
	return list, nil
}

// Get returns the assignment `id` when it belongs to owner; ErrNotFound otherwise.
func (svc *Service) Get(ctx context.Context, owner, id string) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, errors.Wrap(err, "finding assignment by ID")
	}
	if a.CreatedBy != owner {
		return Assignment{}, ErrNotFound
	}
	return a, nil
}

// Update merges ua into the owner's assignment `id` and returns the full merged record.
func (svc *Service) Update(ctx context.Context, owner, id string, ua UpdateAssignment) (Assignment, error) {
	a, err := svc.Get(ctx, owner, id)
	if err != nil {
		return Assignment{}, err
	}
	if err = ua.Validate(); err != nil {
		return Assignment{}, err
	}
	if ua.IsEmpty() {
		return a, nil
	}
	ua.Apply(&a)
	a.UpdatedAt = nowFunc().UTC()

	a, err = svc.repo.UpdateAssignment(ctx, a)
	return a, errors.Wrap(err, "updating assignment")
}

func (svc *Service) Delete(ctx context.Context, owner, id string) error {
	if _, err := svc.Get(ctx, owner, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteAssignment(ctx, id), "deleting assignment")
}
