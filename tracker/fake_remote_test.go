package tracker

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/caseload/caseload/core/assignment"
)

// fakeRemote is an in-memory Remote with failure injection.
// When hold is set, Create and Update announce themselves on entered and wait for a value on hold.
type fakeRemote struct {
	mu         sync.Mutex
	records    []assignment.Assignment
	seq        int
	calls      map[string]int
	sent       []assignment.UpdateAssignment
	fail       map[string]error // by op: list, create, delete
	updateErrs []error          // consumed by successive updates; nil succeeds

	hold    chan struct{}
	entered chan string
}

func newFakeRemote(records ...assignment.Assignment) *fakeRemote {
	return &fakeRemote{
		records: records,
		calls:   make(map[string]int),
		fail:    make(map[string]error),
	}
}

func (r *fakeRemote) holdCalls() {
	r.hold = make(chan struct{})
	r.entered = make(chan string, 16)
}

func (r *fakeRemote) wait(op string) {
	if r.hold == nil {
		return
	}
	r.entered <- op
	<-r.hold
}

func (r *fakeRemote) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *fakeRemote) sentUpdates() []assignment.UpdateAssignment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]assignment.UpdateAssignment(nil), r.sent...)
}

func (r *fakeRemote) record(id string) (assignment.Assignment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(id); i >= 0 {
		return r.records[i], true
	}
	return assignment.Assignment{}, false
}

func (r *fakeRemote) drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.index(id); i >= 0 {
		r.records = append(r.records[:i], r.records[i+1:]...)
	}
}

func (r *fakeRemote) index(id string) int {
	for i := range r.records {
		if r.records[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *fakeRemote) List(_ context.Context, _ Session) ([]assignment.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["list"]++
	if err := r.fail["list"]; err != nil {
		return nil, err
	}
	return append([]assignment.Assignment(nil), r.records...), nil
}

func (r *fakeRemote) Create(_ context.Context, sess Session, na assignment.NewAssignment) (assignment.Assignment, error) {
	r.wait("create")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["create"]++
	if err := r.fail["create"]; err != nil {
		return assignment.Assignment{}, err
	}
	r.seq++
	status := na.Status
	if status == "" {
		status = assignment.StatusNotStarted
	}
	a := assignment.Assignment{
		ID:            fmt.Sprintf("new-%d", r.seq),
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
		CreatedBy:     sess.UserID,
	}
	r.records = append(r.records, a)
	return a, nil
}

func (r *fakeRemote) Update(_ context.Context, _ Session, id string, ua assignment.UpdateAssignment) (assignment.Assignment, error) {
	r.wait("update")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["update"]++
	r.sent = append(r.sent, ua)
	if len(r.updateErrs) > 0 {
		err := r.updateErrs[0]
		r.updateErrs = r.updateErrs[1:]
		if err != nil {
			return assignment.Assignment{}, err
		}
	}
	i := r.index(id)
	if i < 0 {
		return assignment.Assignment{}, &NetworkError{Op: "update", ID: id, StatusCode: http.StatusNotFound}
	}
	ua.Apply(&r.records[i])
	return r.records[i], nil
}

func (r *fakeRemote) Delete(_ context.Context, _ Session, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["delete"]++
	if err := r.fail["delete"]; err != nil {
		return err
	}
	i := r.index(id)
	if i < 0 {
		return &NetworkError{Op: "delete", ID: id, StatusCode: http.StatusNotFound}
	}
	r.records = append(r.records[:i], r.records[i+1:]...)
	return nil
}

var errUnavailable = &NetworkError{Op: "update", StatusCode: http.StatusServiceUnavailable}

func rec(id, name, due string, status assignment.Status, owner string) assignment.Assignment {
	return assignment.Assignment{
		ID:        id,
		Name:      name,
		DueDate:   assignment.MustParseDate(due),
		Status:    status,
		CreatedBy: owner,
	}
}

func ids(list []assignment.Assignment) []string {
	res := make([]string, len(list))
	for i, a := range list {
		res[i] = a.ID
	}
	return res
}
