package assignment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/assignment"
	inmemdb "github.com/caseload/caseload/storage/database/inmem"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := assignment.NewService(inmemdb.NewAssignmentRepository(inmemdb.Open()))

	created, err := svc.Create(ctx, "u1", assignment.NewAssignment{DueDate: assignment.MustParseDate("2024-03-09"), Name: " Ben "})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Ben", created.Name)
	assert.Equal(t, "u1", created.CreatedBy)
	assert.Equal(t, assignment.StatusNotStarted, created.Status, "default status")
	assert.False(t, created.CreatedAt.IsZero())

	early, err := svc.Create(ctx, "u1", assignment.NewAssignment{DueDate: assignment.MustParseDate("2024-01-09"), Name: "Ana"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "u2", assignment.NewAssignment{DueDate: assignment.MustParseDate("2024-02-09"), Name: "Cy"})
	require.NoError(t, err)

	t.Run("create invalid", func(t *testing.T) {
		_, err := svc.Create(ctx, "u1", assignment.NewAssignment{})
		assert.True(t, core.IsValidationError(err))
	})

	t.Run("query is scoped and ordered", func(t *testing.T) {
		list, err := svc.Query(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, early.ID, list[0].ID)
		assert.Equal(t, created.ID, list[1].ID)
	})

	t.Run("other owners see not found", func(t *testing.T) {
		_, err := svc.Get(ctx, "u2", created.ID)
		assert.Equal(t, assignment.ErrNotFound, err)

		name := "Hacked"
		_, err = svc.Update(ctx, "u2", created.ID, assignment.UpdateAssignment{Name: &name})
		assert.Equal(t, assignment.ErrNotFound, err)

		assert.Equal(t, assignment.ErrNotFound, svc.Delete(ctx, "u2", created.ID))
	})

	t.Run("partial update merges", func(t *testing.T) {
		status := assignment.StatusCompleted
		got, err := svc.Update(ctx, "u1", created.ID, assignment.UpdateAssignment{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, assignment.StatusCompleted, got.Status)
		assert.Equal(t, "Ben", got.Name)
		assert.Equal(t, created.DueDate, got.DueDate)
		assert.Equal(t, "u1", got.CreatedBy)
	})

	t.Run("invalid update", func(t *testing.T) {
		blank := ""
		_, err := svc.Update(ctx, "u1", created.ID, assignment.UpdateAssignment{Name: &blank})
		assert.True(t, core.IsValidationError(err))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, "u1", created.ID))
		_, err := svc.Get(ctx, "u1", created.ID)
		assert.Equal(t, assignment.ErrNotFound, err)
		assert.Equal(t, assignment.ErrNotFound, svc.Delete(ctx, "u1", created.ID))
	})
}
