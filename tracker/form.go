package tracker

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/assignment"
)

// Draft is the editable buffer behind the assignment dialog. Zero dates are unset.
type Draft struct {
	ID            string // empty for a new assignment
	DueDate       assignment.Date
	Name          string
	SchoolSite    string
	Status        assignment.Status
	Type          assignment.Type
	APSigned      bool
	APDateSigned  assignment.Date
	IEPSigned     bool
	IEPDateSigned assignment.Date
	Priority      bool
}

// NewDraft returns the empty draft of a new assignment. An empty status is defaulted by the server.
func NewDraft() Draft {
	return Draft{}
}

// DraftOf seeds a Draft from an existing assignment.
func DraftOf(a assignment.Assignment) Draft {
	return Draft{
		ID:            a.ID,
		DueDate:       a.DueDate,
		Name:          a.Name,
		SchoolSite:    a.SchoolSite,
		Status:        a.Status,
		Type:          a.Type,
		APSigned:      a.APSigned,
		APDateSigned:  a.APDateSigned,
		IEPSigned:     a.IEPSigned,
		IEPDateSigned: a.IEPDateSigned,
		Priority:      a.Priority,
	}
}

func (d Draft) IsEdit() bool { return d.ID != "" }

// APSignedEnabled reports whether the AP signature applies: only triennial reviews have one.
func (d Draft) APSignedEnabled() bool { return d.Type == assignment.TypeTriennial }

func (d Draft) APDateEnabled() bool  { return d.APSigned }
func (d Draft) IEPDateEnabled() bool { return d.IEPSigned }

// Validate returns a *core.ValidationError keyed by JSON field name, or nil.
func (d Draft) Validate() error {
	na := d.NewAssignment()
	return na.Validate()
}

// NewAssignment returns the creation payload. Signature dates of unsigned flags are dropped.
func (d Draft) NewAssignment() assignment.NewAssignment {
	d = d.stripped()
	return assignment.NewAssignment{
		DueDate:       d.DueDate,
		Name:          core.CleanString(d.Name),
		SchoolSite:    core.CleanString(d.SchoolSite),
		Status:        d.Status,
		Type:          d.Type,
		APSigned:      d.APSigned,
		APDateSigned:  d.APDateSigned,
		IEPSigned:     d.IEPSigned,
		IEPDateSigned: d.IEPDateSigned,
		Priority:      d.Priority,
	}
}

// Changes returns the update payload holding only the fields that differ from orig.
func (d Draft) Changes(orig assignment.Assignment) assignment.UpdateAssignment {
	d = d.stripped()
	var ua assignment.UpdateAssignment
	if d.DueDate != orig.DueDate {
		ua.DueDate = d.DueDate.Ptr()
	}
	if name := core.CleanString(d.Name); name != orig.Name {
		ua.Name = &name
	}
	if site := core.CleanString(d.SchoolSite); site != orig.SchoolSite {
		ua.SchoolSite = &site
	}
	if d.Status != orig.Status {
		ua.Status = &d.Status
	}
	if d.Type != orig.Type {
		ua.Type = &d.Type
	}
	if d.APSigned != orig.APSigned {
		ua.APSigned = &d.APSigned
	}
	if d.APDateSigned != orig.APDateSigned {
		ua.APDateSigned = d.APDateSigned.Ptr()
	}
	if d.IEPSigned != orig.IEPSigned {
		ua.IEPSigned = &d.IEPSigned
	}
	if d.IEPDateSigned != orig.IEPDateSigned {
		ua.IEPDateSigned = d.IEPDateSigned.Ptr()
	}
	if d.Priority != orig.Priority {
		ua.Priority = &d.Priority
	}
	return ua
}

func (d Draft) stripped() Draft {
	if !d.APSigned {
		d.APDateSigned = assignment.Date{}
	}
	if !d.IEPSigned {
		d.IEPDateSigned = assignment.Date{}
	}
	return d
}

type DialogState int

const (
	DialogClosed DialogState = iota
	DialogOpen
	DialogSubmitting
)

func (s DialogState) String() string {
	switch s {
	case DialogClosed:
		return "closed"
	case DialogOpen:
		return "open"
	case DialogSubmitting:
		return "submitting"
	}
	return "unknown"
}

// Dialog drives the creation and edition of one assignment at a time:
//   Closed -> Open -> Submitting -> Closed
// A failed validation keeps it Open with field errors; a failed submission returns it to Open.
type Dialog struct {
	store *Store

	mu     sync.Mutex
	state  DialogState
	draft  Draft
	orig   assignment.Assignment
	fields map[string]string
	err    error
}

func NewDialog(store *Store) *Dialog {
	return &Dialog{store: store}
}

// OpenNew opens the dialog on an empty draft.
func (d *Dialog) OpenNew() error {
	return d.open(NewDraft(), assignment.Assignment{})
}

// OpenEdit opens the dialog on the listed assignment `id`.
func (d *Dialog) OpenEdit(id string) error {
	a, ok := d.store.Get(id)
	if !ok {
		return ErrUnknownID
	}
	return d.open(DraftOf(a), a)
}

func (d *Dialog) open(draft Draft, orig assignment.Assignment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DialogSubmitting {
		return ErrSubmitInFlight
	}
	d.state = DialogOpen
	d.draft = draft
	d.orig = orig
	d.fields = nil
	d.err = nil
	return nil
}

func (d *Dialog) State() DialogState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dialog) Draft() Draft {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// FieldErrors returns the messages of the last failed validation, keyed by field.
func (d *Dialog) FieldErrors() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := make(map[string]string, len(d.fields))
	for k, v := range d.fields {
		res[k] = v
	}
	return res
}

// Err returns the error of the last failed submission.
func (d *Dialog) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Edit changes the open draft.
func (d *Dialog) Edit(fn func(draft *Draft)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case DialogClosed:
		return ErrDialogClosed
	case DialogSubmitting:
		return ErrSubmitInFlight
	}
	fn(&d.draft)
	d.draft.ID = d.orig.ID
	return nil
}

// Cancel closes the dialog, discarding the draft.
func (d *Dialog) Cancel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DialogSubmitting {
		return ErrSubmitInFlight
	}
	d.reset()
	return nil
}

// Submit validates the draft and, when valid, creates or updates the assignment through the Store.
// Nothing is sent when validation fails.
func (d *Dialog) Submit(ctx context.Context, sess Session) (assignment.Assignment, error) {
	d.mu.Lock()
	switch d.state {
	case DialogClosed:
		d.mu.Unlock()
		return assignment.Assignment{}, ErrDialogClosed
	case DialogSubmitting:
		d.mu.Unlock()
		return assignment.Assignment{}, ErrSubmitInFlight
	}
	if err := d.draft.Validate(); err != nil {
		d.fail(err)
		d.mu.Unlock()
		return assignment.Assignment{}, err
	}
	d.state = DialogSubmitting
	d.fields = nil
	d.err = nil
	draft, orig := d.draft, d.orig
	d.mu.Unlock()

	var (
		a   assignment.Assignment
		err error
	)
	if draft.IsEdit() {
		a, err = d.store.Update(ctx, sess, draft.ID, draft.Changes(orig))
	} else {
		a, err = d.store.Create(ctx, sess, draft.NewAssignment())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = DialogOpen
		d.fail(err)
		return assignment.Assignment{}, err
	}
	d.reset()
	return a, nil
}

// fail records err for display. Callers hold mu.
func (d *Dialog) fail(err error) {
	d.err = err
	var vErr *core.ValidationError
	if errors.As(err, &vErr) {
		d.fields = vErr.FieldMap()
	}
}

func (d *Dialog) reset() {
	d.state = DialogClosed
	d.draft = Draft{}
	d.orig = assignment.Assignment{}
	d.fields = nil
	d.err = nil
}
