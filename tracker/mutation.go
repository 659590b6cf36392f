package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/kat-co/vala"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/assignment"
)

// FailurePolicy decides what happens to an optimistic local change the Remote rejected.
type FailurePolicy int

const (
	RevertOnFailure FailurePolicy = iota // withdraw the change: the record shows the server value again
	KeepOnFailure                        // keep the local value; the list diverges until the next Load
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultErrorBuffer    = 16
)

type MutatorOptions struct {
	Policy FailurePolicy
	// LocalPriority keeps priority a local-only annotation: toggling it sends nothing.
	LocalPriority  bool
	RequestTimeout time.Duration
	ErrorBuffer    int // capacity of Errors(); errors are dropped (and logged) when it is full
}

func MutatorOptionsFromConfig(conf core.TrackerConfig) MutatorOptions {
	opts := MutatorOptions{
		Policy:         KeepOnFailure,
		LocalPriority:  !conf.PersistPriority,
		RequestTimeout: conf.RequestTimeout,
	}
	if conf.RevertOnFailure {
		opts.Policy = RevertOnFailure
	}
	return opts
}

// Mutator applies status and flag changes to the Store immediately, then sends them to the Remote.
// Updates of the same assignment, including the Store's own, are sent one at a time, in the order they were made.
type Mutator struct {
	store  *Store
	logger core.Logger
	opts   MutatorOptions

	mu         sync.Mutex
	inflight   int
	idle       chan struct{} // closed while inflight == 0
	closed     bool
	errsClosed bool
	errs       chan MutationError
}

// NewMutator returns a Mutator sending its updates through the Remote of store.
func NewMutator(store *Store, logger core.Logger, opts MutatorOptions) (*Mutator, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(store, "store"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.ErrorBuffer <= 0 {
		opts.ErrorBuffer = defaultErrorBuffer
	}
	idle := make(chan struct{})
	close(idle)
	return &Mutator{
		store:  store,
		logger: logger,
		opts:   opts,
		idle:   idle,
		errs:   make(chan MutationError, opts.ErrorBuffer),
	}, nil
}

// Errors returns the channel on which rejected mutations are reported. It is closed by Close.
func (m *Mutator) Errors() <-chan MutationError {
	return m.errs
}

func (m *Mutator) SetStatus(sess Session, id string, status assignment.Status) error {
	if !status.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid status"})
	}
	return m.mutate(sess, id, "status", true, func(assignment.Assignment) assignment.UpdateAssignment {
		return assignment.UpdateAssignment{Status: &status}
	})
}

func (m *Mutator) TogglePriority(sess Session, id string) error {
	return m.mutate(sess, id, "priority", !m.opts.LocalPriority, func(cur assignment.Assignment) assignment.UpdateAssignment {
		val := !cur.Priority
		return assignment.UpdateAssignment{Priority: &val}
	})
}

func (m *Mutator) ToggleAPSigned(sess Session, id string) error {
	return m.mutate(sess, id, "apSigned", true, func(cur assignment.Assignment) assignment.UpdateAssignment {
		val := !cur.APSigned
		return assignment.UpdateAssignment{APSigned: &val}
	})
}

func (m *Mutator) ToggleIEPSigned(sess Session, id string) error {
	return m.mutate(sess, id, "iepSigned", true, func(cur assignment.Assignment) assignment.UpdateAssignment {
		val := !cur.IEPSigned
		return assignment.UpdateAssignment{IEPSigned: &val}
	})
}

// Flush blocks until every queued mutation got its response, or ctx is done.
func (m *Mutator) Flush(ctx context.Context) error {
	m.mu.Lock()
	idle := m.idle
	m.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting mutations and waits for the queued ones.
// Errors() is closed once they are all done.
func (m *Mutator) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	if err := m.Flush(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.errsClosed {
		m.errsClosed = true
		close(m.errs)
	}
	return nil
}

// mutate applies the update change computes to the local record and, when send is set, queues it.
func (m *Mutator) mutate(sess Session, id, field string, send bool, change func(cur assignment.Assignment) assignment.UpdateAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if !send {
		return m.store.annotate(id, change)
	}

	w, err := m.store.enqueue(id, true, change)
	if err != nil {
		return err
	}
	if m.inflight == 0 {
		m.idle = make(chan struct{})
	}
	m.inflight++
	go m.run(sess, field, w)
	return nil
}

func (m *Mutator) run(sess Session, field string, w *pendingWrite) {
	defer m.done()

	// the write ahead holds its own timeout
	_ = m.store.awaitTurn(context.Background(), w)

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.RequestTimeout)
	defer cancel()

	_, reverted, err := m.store.send(ctx, sess, w, m.opts.Policy == KeepOnFailure)
	switch {
	case err == nil:
	case err == ErrUnknownID:
		m.logger.Debug("tracker.Mutator: record gone, update dropped", map[string]interface{}{"id": w.id, "field": field})
	default:
		m.logger.Error("tracker.Mutator: remote update failed", err, map[string]interface{}{"id": w.id, "field": field})
		m.report(MutationError{ID: w.id, Field: field, Err: err, Reverted: reverted})
	}
}

func (m *Mutator) done() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	if m.inflight == 0 {
		close(m.idle)
	}
}

func (m *Mutator) report(mErr MutationError) {
	select {
	case m.errs <- mErr:
	default:
		m.logger.Warn("tracker.Mutator: error dropped, buffer full", mErr)
	}
}
