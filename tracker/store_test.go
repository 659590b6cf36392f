package tracker

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/assignment"
)

var (
	ana = Session{UserID: "u1", Token: "t1"}
	ben = Session{UserID: "u2", Token: "t2"}
)

func newTestStore(t *testing.T, remote Remote) *Store {
	store, err := NewStore(remote, core.NewNopLogger())
	require.NoError(t, err)
	return store
}

func TestNewStore(t *testing.T) {
	_, err := NewStore(nil, core.NewNopLogger())
	assert.Error(t, err)
	_, err = NewStore(newFakeRemote(), nil)
	assert.Error(t, err)

	store, err := NewStore(newFakeRemote(), core.NewNopLogger())
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("sorted by due date", func(t *testing.T) {
		remote := newFakeRemote(
			rec("a", "Ava", "2025-11-10", assignment.StatusNotStarted, "u1"),
			rec("b", "Bo", "2025-11-05", assignment.StatusCompleted, "u1"),
		)
		store := newTestStore(t, remote)

		list, err := store.Load(ctx, ana)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, ids(list))
		assert.Equal(t, []string{"a"}, ids(Partition(list, TabUpcoming)))
		assert.Equal(t, []string{"b"}, ids(Partition(list, TabCompleted)))
	})

	t.Run("scoped to the user and deduplicated", func(t *testing.T) {
		remote := newFakeRemote(
			rec("a", "Ava", "2025-11-10", assignment.StatusNotStarted, "u1"),
			rec("x", "Xi", "2025-11-01", assignment.StatusNotStarted, "u2"),
			rec("a", "Ava (dup)", "2025-01-01", assignment.StatusNotStarted, "u1"),
			rec("c", "Cy", "2025-11-12", assignment.StatusNotStarted, ""),
		)
		store := newTestStore(t, remote)

		list, err := store.Load(ctx, ana)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, ids(list))
		assert.Equal(t, "Ava", list[0].Name)
		assert.Equal(t, "u1", store.Owner())
	})

	t.Run("anonymous gets an empty list", func(t *testing.T) {
		remote := newFakeRemote(rec("a", "Ava", "2025-11-10", assignment.StatusNotStarted, "u1"))
		store := newTestStore(t, remote)
		_, err := store.Load(ctx, ana)
		require.NoError(t, err)

		list, err := store.Load(ctx, Session{})
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.Empty(t, store.Snapshot())
		assert.Equal(t, 1, remote.count("list"), "no remote call")
	})

	t.Run("failure keeps the list of the same user", func(t *testing.T) {
		remote := newFakeRemote(rec("a", "Ava", "2025-11-10", assignment.StatusNotStarted, "u1"))
		store := newTestStore(t, remote)
		_, err := store.Load(ctx, ana)
		require.NoError(t, err)

		remote.fail["list"] = &NetworkError{Op: "list", StatusCode: http.StatusBadGateway}
		_, err = store.Load(ctx, ana)
		assert.True(t, IsNetworkError(err))
		assert.Equal(t, []string{"a"}, ids(store.Snapshot()))
	})

	t.Run("failure never shows another user's list", func(t *testing.T) {
		remote := newFakeRemote(rec("a", "Ava", "2025-11-10", assignment.StatusNotStarted, "u1"))
		store := newTestStore(t, remote)
		_, err := store.Load(ctx, ana)
		require.NoError(t, err)

		remote.fail["list"] = &NetworkError{Op: "list", StatusCode: http.StatusBadGateway}
		_, err = store.Load(ctx, ben)
		assert.Error(t, err)
		assert.Empty(t, store.Snapshot())
		assert.Equal(t, "u2", store.Owner())
	})
}

func TestStore_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid draft is not sent", func(t *testing.T) {
		remote := newFakeRemote()
		store := newTestStore(t, remote)

		_, err := store.Create(ctx, ana, assignment.NewAssignment{DueDate: assignment.MustParseDate("2025-12-01")})
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, map[string]string{"name": "Name is required"}, vErr.FieldMap())
		assert.Zero(t, remote.count("create"))
	})

	t.Run("created record is inserted in order", func(t *testing.T) {
		remote := newFakeRemote(
			rec("a", "Ava", "2025-11-01", assignment.StatusNotStarted, "u1"),
			rec("b", "Bo", "2025-11-20", assignment.StatusNotStarted, "u1"),
		)
		store := newTestStore(t, remote)
		_, err := store.Load(ctx, ana)
		require.NoError(t, err)

		created, err := store.Create(ctx, ana, assignment.NewAssignment{DueDate: assignment.MustParseDate("2025-11-10"), Name: "Cy"})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, []string{"a", created.ID, "b"}, ids(store.Snapshot()))

		list, err := store.Load(ctx, ana)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", created.ID, "b"}, ids(list))
		assert.Equal(t, created, list[1])
	})

	t.Run("remote failure leaves the list untouched", func(t *testing.T) {
		remote := newFakeRemote()
		remote.fail["create"] = &NetworkError{Op: "create", StatusCode: http.StatusInternalServerError}
		store := newTestStore(t, remote)

		_, err := store.Create(ctx, ana, assignment.NewAssignment{DueDate: assignment.MustParseDate("2025-11-10"), Name: "Cy"})
		assert.True(t, IsNetworkError(err))
		assert.Empty(t, store.Snapshot())
	})
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	setup := func(t *testing.T) (*fakeRemote, *Store) {
		remote := newFakeRemote(
			rec("a", "Ava", "2025-11-01", assignment.StatusNotStarted, "u1"),
			rec("b", "Bo", "2025-11-20", assignment.StatusNotStarted, "u1"),
		)
		store := newTestStore(t, remote)
		_, err := store.Load(ctx, ana)
		require.NoError(t, err)
		return remote, store
	}

	t.Run("server record replaces the local one", func(t *testing.T) {
		remote, store := setup(t)
		due := assignment.MustParseDate("2025-12-01")

		got, err := store.Update(ctx, ana, "a", assignment.UpdateAssignment{DueDate: &due})
		require.NoError(t, err)
		assert.Equal(t, due, got.DueDate)
		assert.Equal(t, []string{"b", "a"}, ids(store.Snapshot()), "re-sorted")
		require.Len(t, remote.sentUpdates(), 1)
		assert.Nil(t, remote.sentUpdates()[0].Name, "only changed fields are sent")
	})

	t.Run("idempotent", func(t *testing.T) {
		_, store := setup(t)
		status := assignment.StatusCompleted

		_, err := store.Update(ctx, ana, "a", assignment.UpdateAssignment{Status: &status})
		require.NoError(t, err)
		once := store.Snapshot()
		_, err = store.Update(ctx, ana, "a", assignment.UpdateAssignment{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, once, store.Snapshot())
	})

	t.Run("empty update is not sent", func(t *testing.T) {
		remote, store := setup(t)
		got, err := store.Update(ctx, ana, "a", assignment.UpdateAssignment{})
		require.NoError(t, err)
		assert.Equal(t, "a", got.ID)
		assert.Zero(t, remote.count("update"))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, store := setup(t)
		name := "Zed"
		_, err := store.Update(ctx, ana, "zz", assignment.UpdateAssignment{Name: &name})
		assert.Equal(t, ErrUnknownID, err)
	})

	t.Run("cancelled while queued", func(t *testing.T) {
		remote, store := setup(t)
		remote.holdCalls()

		first := make(chan error)
		go func() {
			name := "Ava B."
			_, err := store.Update(ctx, ana, "a", assignment.UpdateAssignment{Name: &name})
			first <- err
		}()
		assert.Equal(t, "update", <-remote.entered)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		site := "Lincoln"
		_, err := store.Update(cctx, ana, "a", assignment.UpdateAssignment{SchoolSite: &site})
		assert.Equal(t, context.Canceled, errors.Cause(err))

		remote.hold <- struct{}{}
		require.NoError(t, <-first)
		assert.Equal(t, 1, remote.count("update"))
		assert.Equal(t, "Ava B.", local(t, store, "a").Name)
		assert.Empty(t, local(t, store, "a").SchoolSite)
	})

	t.Run("not found refreshes the list", func(t *testing.T) {
		remote, store := setup(t)
		remote.drop("a")
		name := "Ava B."

		_, err := store.Update(ctx, ana, "a", assignment.UpdateAssignment{Name: &name})
		assert.True(t, IsNotFound(err))
		assert.Equal(t, []string{"b"}, ids(store.Snapshot()))
		assert.Equal(t, 2, remote.count("list"))
	})
}

func TestStore_Remove(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(
		rec("a", "Ava", "2025-11-01", assignment.StatusNotStarted, "u1"),
		rec("b", "Bo", "2025-11-20", assignment.StatusNotStarted, "u1"),
	)
	store := newTestStore(t, remote)
	_, err := store.Load(ctx, ana)
	require.NoError(t, err)

	t.Run("nonexistent id", func(t *testing.T) {
		err := store.Remove(ctx, ana, "zz")
		assert.Equal(t, ErrUnknownID, err)
		assert.Equal(t, []string{"a", "b"}, ids(store.Snapshot()))
	})

	t.Run("remote failure keeps the record", func(t *testing.T) {
		remote.fail["delete"] = &NetworkError{Op: "delete", ID: "a", StatusCode: http.StatusInternalServerError}
		defer delete(remote.fail, "delete")

		err := store.Remove(ctx, ana, "a")
		assert.True(t, IsNetworkError(err))
		assert.Equal(t, []string{"a", "b"}, ids(store.Snapshot()))
	})

	t.Run("removed after remote success", func(t *testing.T) {
		require.NoError(t, store.Remove(ctx, ana, "a"))
		assert.Equal(t, []string{"b"}, ids(store.Snapshot()))
		_, ok := remote.record("a")
		assert.False(t, ok)
	})
}

func TestPendingDelete(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(
		rec("a", "Ava", "2025-11-01", assignment.StatusNotStarted, "u1"),
		rec("b", "Bo", "2025-11-20", assignment.StatusNotStarted, "u1"),
	)
	store := newTestStore(t, remote)
	_, err := store.Load(ctx, ana)
	require.NoError(t, err)

	_, err = store.RequestDelete("zz")
	assert.Equal(t, ErrUnknownID, err)

	pending, err := store.RequestDelete("a")
	require.NoError(t, err)
	assert.Equal(t, "Ava", pending.Assignment.Name)
	pending.Cancel()
	assert.Equal(t, ErrDeleteSettled, pending.Confirm(ctx, ana))
	assert.Zero(t, remote.count("delete"))
	assert.Len(t, store.Snapshot(), 2)

	pending, err = store.RequestDelete("b")
	require.NoError(t, err)
	require.NoError(t, pending.Confirm(ctx, ana))
	assert.Equal(t, []string{"a"}, ids(store.Snapshot()))
	assert.Equal(t, ErrDeleteSettled, pending.Confirm(ctx, ana))
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(rec("a", "Ava", "2025-11-01", assignment.StatusNotStarted, "u1"))
	store := newTestStore(t, remote)

	var got [][]assignment.Assignment
	cancel := store.Subscribe(func(list []assignment.Assignment) { got = append(got, list) })

	_, err := store.Load(ctx, ana)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a"}, ids(got[0]))

	cancel()
	_, err = store.Load(ctx, ana)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
