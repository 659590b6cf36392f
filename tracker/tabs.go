package tracker

import "github.com/caseload/caseload/core/assignment"

// Tab selects one of the two views of the list.
type Tab int

const (
	TabUpcoming  Tab = iota // every status but Completed
	TabCompleted            // Completed only
)

func (t Tab) String() string {
	switch t {
	case TabUpcoming:
		return "Upcoming"
	case TabCompleted:
		return "Completed"
	}
	return "Unknown"
}

// Partition returns the records of list shown under tab, in list order.
// An unknown tab shows nothing.
func Partition(list []assignment.Assignment, tab Tab) []assignment.Assignment {
	res := make([]assignment.Assignment, 0, len(list))
	for _, a := range list {
		switch {
		case tab == TabUpcoming && !a.IsCompleted(),
			tab == TabCompleted && a.IsCompleted():
			res = append(res, a)
		}
	}
	return res
}

// View is a tab over a Store. Rows are recomputed from the current list on every call.
type View struct {
	store *Store
	Tab   Tab
}

func NewView(store *Store, tab Tab) *View {
	return &View{store: store, Tab: tab}
}

func (v *View) Rows() []assignment.Assignment {
	return Partition(v.store.Snapshot(), v.Tab)
}

// Counts returns the number of upcoming and completed assignments.
func (v *View) Counts() (upcoming, completed int) {
	for _, a := range v.store.Snapshot() {
		if a.IsCompleted() {
			completed++
		} else {
			upcoming++
		}
	}
	return upcoming, completed
}
