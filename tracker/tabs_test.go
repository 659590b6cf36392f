package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseload/caseload/core/assignment"
)

func TestPartition(t *testing.T) {
	list := []assignment.Assignment{
		rec("a", "Ava", "2025-01-05", assignment.StatusNotStarted, "u1"),
		rec("b", "Bo", "2025-01-10", assignment.StatusCompleted, "u1"),
		rec("c", "Cy", "2025-02-01", assignment.StatusInProgress, "u1"),
		rec("d", "Di", "2025-02-03", assignment.StatusCompleted, "u1"),
	}

	tests := []struct {
		name string
		tab  Tab
		want []string
	}{
		{"upcoming", TabUpcoming, []string{"a", "c"}},
		{"completed", TabCompleted, []string{"b", "d"}},
		{"unknown tab", Tab(2), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Partition(list, tt.tab)))
		})
	}

	t.Run("disjoint and complete", func(t *testing.T) {
		seen := map[string]int{}
		for _, tab := range []Tab{TabUpcoming, TabCompleted} {
			for _, a := range Partition(list, tab) {
				seen[a.ID]++
			}
		}
		assert.Len(t, seen, len(list))
		for id, n := range seen {
			assert.Equal(t, 1, n, id)
		}
	})
}

func TestView(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(
		rec("a", "Ava", "2025-01-05", assignment.StatusNotStarted, "u1"),
		rec("b", "Bo", "2025-01-10", assignment.StatusCompleted, "u1"),
	)
	store := newTestStore(t, remote)
	_, err := store.Load(ctx, ana)
	require.NoError(t, err)

	view := NewView(store, TabUpcoming)
	assert.Equal(t, []string{"a"}, ids(view.Rows()))
	view.Tab = TabCompleted
	assert.Equal(t, []string{"b"}, ids(view.Rows()))

	up, done := view.Counts()
	assert.Equal(t, 1, up)
	assert.Equal(t, 1, done)
	assert.Equal(t, "Completed", view.Tab.String())
}
