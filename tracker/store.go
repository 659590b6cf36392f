package tracker

import (
	"context"
	"sync"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/caseload/caseload/core"
	"github.com/caseload/caseload/core/assignment"
)

// Store is the local, ordered copy of the signed-in user's assignments.
// The list is kept sorted by ascending due date and ids are unique.
type Store struct {
	remote Remote
	logger core.Logger

	mu    sync.RWMutex
	owner string
	list  []assignment.Assignment
	// A listed record is its confirmed (last server) copy, then its pending optimistic
	// updates, then its local annotations, applied in that order.
	confirmed   map[string]assignment.Assignment
	pending     map[string][]*pendingWrite // per id, in the order they are sent
	annotations map[string][]assignment.UpdateAssignment

	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     map[int]func([]assignment.Assignment)
	nextSub  int
}

func NewStore(remote Remote, logger core.Logger) (*Store, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(remote, "remote"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		return nil, err
	}
	return &Store{
		remote:      remote,
		logger:      logger,
		confirmed:   make(map[string]assignment.Assignment),
		pending:     make(map[string][]*pendingWrite),
		annotations: make(map[string][]assignment.UpdateAssignment),
		subs:        make(map[int]func([]assignment.Assignment)),
	}, nil
}

// Owner returns the id of the user the current list belongs to.
func (s *Store) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

// Snapshot returns a copy of the current list.
func (s *Store) Snapshot() []assignment.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make([]assignment.Assignment, len(s.list))
	copy(snap, s.list)
	return snap
}

func (s *Store) Get(id string) (assignment.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.list[i], true
	}
	return assignment.Assignment{}, false
}

// Subscribe registers fn to be called with a snapshot after every change of the list.
// fn runs synchronously and must not call the Store's mutating methods.
func (s *Store) Subscribe(fn func([]assignment.Assignment)) (cancel func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	key := s.nextSub
	s.nextSub++
	s.subs[key] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, key)
	}
}

// Load replaces the list with the user's assignments from the Remote.
// An anonymous session clears the list. On failure the list of the same user is left untouched.
func (s *Store) Load(ctx context.Context, sess Session) ([]assignment.Assignment, error) {
	if sess.Anonymous() {
		s.mu.Lock()
		s.reset("")
		s.mu.Unlock()
		s.publish()
		return []assignment.Assignment{}, nil
	}

	list, err := s.remote.List(ctx, sess)
	if err != nil {
		s.logger.Error("tracker.Store.Load", err, map[string]interface{}{"user": sess.UserID})
		s.mu.Lock()
		cleared := s.owner != sess.UserID
		if cleared {
			// never show another user's list
			s.reset(sess.UserID)
		}
		s.mu.Unlock()
		if cleared {
			s.publish()
		}
		return nil, errors.Wrap(err, "loading assignments")
	}
	list = ownedBy(list, sess.UserID)

	s.mu.Lock()
	if s.owner != sess.UserID {
		s.reset(sess.UserID)
	}
	s.list = list
	s.confirmed = make(map[string]assignment.Assignment, len(list))
	for _, a := range list {
		s.confirmed[a.ID] = a
	}
	for id := range s.pending {
		s.rebuild(id)
	}
	for id := range s.annotations {
		s.rebuild(id)
	}
	assignment.SortByDueDate(s.list)
	s.mu.Unlock()
	s.publish()
	return s.Snapshot(), nil
}

// Create validates na, sends it to the Remote and inserts the server record.
func (s *Store) Create(ctx context.Context, sess Session, na assignment.NewAssignment) (assignment.Assignment, error) {
	if err := na.Validate(); err != nil {
		return assignment.Assignment{}, err
	}
	a, err := s.remote.Create(ctx, sess, na)
	if err != nil {
		s.logger.Error("tracker.Store.Create", err, map[string]interface{}{"user": sess.UserID})
		return assignment.Assignment{}, errors.Wrap(err, "creating assignment")
	}

	s.mu.Lock()
	inserted := s.owner == sess.UserID && !sess.Anonymous()
	if inserted {
		s.confirmed[a.ID] = a
		if i := s.index(a.ID); i >= 0 {
			s.list[i] = a
		} else {
			s.list = append(s.list, a)
		}
		assignment.SortByDueDate(s.list)
	}
	s.mu.Unlock()
	if inserted {
		s.publish()
	}
	return a, nil
}

// Update sends the set fields of ua and replaces the local record with the server's.
// It is queued behind the updates of the same record still in flight.
// A NotFound response refreshes the whole list.
func (s *Store) Update(ctx context.Context, sess Session, id string, ua assignment.UpdateAssignment) (assignment.Assignment, error) {
	if err := ua.Validate(); err != nil {
		return assignment.Assignment{}, err
	}
	cur, ok := s.Get(id)
	if !ok {
		return assignment.Assignment{}, ErrUnknownID
	}
	if ua.IsEmpty() {
		return cur, nil
	}

	w, err := s.enqueue(id, false, func(assignment.Assignment) assignment.UpdateAssignment { return ua })
	if err != nil {
		return assignment.Assignment{}, err
	}
	if err = s.awaitTurn(ctx, w); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	a, _, err := s.send(ctx, sess, w, false)
	if err != nil {
		if err == ErrUnknownID {
			return assignment.Assignment{}, err
		}
		s.logger.Error("tracker.Store.Update", err, map[string]interface{}{"user": sess.UserID, "id": id})
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	return a, nil
}

// Remove deletes the assignment remotely, then locally. On failure the list is unchanged.
func (s *Store) Remove(ctx context.Context, sess Session, id string) error {
	if _, ok := s.Get(id); !ok {
		return ErrUnknownID
	}
	if err := s.remote.Delete(ctx, sess, id); err != nil {
		s.logger.Error("tracker.Store.Remove", err, map[string]interface{}{"user": sess.UserID, "id": id})
		return errors.Wrap(err, "deleting assignment")
	}

	s.mu.Lock()
	if i := s.index(id); i >= 0 {
		s.list = append(s.list[:i:i], s.list[i+1:]...)
	}
	delete(s.confirmed, id)
	delete(s.annotations, id)
	s.mu.Unlock()
	s.publish()
	return nil
}

// RequestDelete starts the confirmation of the removal of `id`.
func (s *Store) RequestDelete(id string) (*PendingDelete, error) {
	a, ok := s.Get(id)
	if !ok {
		return nil, ErrUnknownID
	}
	return &PendingDelete{store: s, Assignment: a}, nil
}

// PendingDelete is a removal waiting for the user's confirmation.
type PendingDelete struct {
	Assignment assignment.Assignment

	store   *Store
	mu      sync.Mutex
	settled bool
}

// Confirm removes the assignment. It may be retried after a failure.
func (p *PendingDelete) Confirm(ctx context.Context, sess Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return ErrDeleteSettled
	}
	if err := p.store.Remove(ctx, sess, p.Assignment.ID); err != nil {
		return err
	}
	p.settled = true
	return nil
}

// Cancel discards the request; the list is left untouched.
func (p *PendingDelete) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settled = true
}

func (s *Store) refresh(ctx context.Context, sess Session) {
	if _, err := s.Load(ctx, sess); err != nil {
		s.logger.Warn("tracker.Store.refresh", err)
	}
}

// pendingWrite is an update of one record, waiting for its turn or in flight.
type pendingWrite struct {
	id         string
	update     assignment.UpdateAssignment
	optimistic bool            // applied locally before the response
	turn       <-chan struct{} // closed once the previous write of the record is settled; nil for the first
	done       chan struct{}
	cancelled  error // set when the record disappeared while the write was queued
}

// enqueue queues the update that change computes from the current local record.
// An optimistic update shows in the list right away.
func (s *Store) enqueue(id string, optimistic bool, change func(cur assignment.Assignment) assignment.UpdateAssignment) (*pendingWrite, error) {
	s.mu.Lock()
	i := s.index(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrUnknownID
	}
	w := &pendingWrite{
		id:         id,
		update:     change(s.list[i]),
		optimistic: optimistic,
		done:       make(chan struct{}),
	}
	if q := s.pending[id]; len(q) > 0 {
		w.turn = q[len(q)-1].done
	}
	s.pending[id] = append(s.pending[id], w)
	if optimistic {
		s.rebuild(id)
		assignment.SortByDueDate(s.list)
	}
	s.mu.Unlock()

	if optimistic {
		s.publish()
	}
	return w, nil
}

// annotate applies a local-only change to the record `id`; it is never sent and survives server responses.
func (s *Store) annotate(id string, change func(cur assignment.Assignment) assignment.UpdateAssignment) error {
	s.mu.Lock()
	i := s.index(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrUnknownID
	}
	s.annotations[id] = append(s.annotations[id], change(s.list[i]))
	s.rebuild(id)
	assignment.SortByDueDate(s.list)
	s.mu.Unlock()

	s.publish()
	return nil
}

// awaitTurn blocks until the writes queued before w are settled.
// When ctx is done first, w is settled as cancelled once its turn comes.
func (s *Store) awaitTurn(ctx context.Context, w *pendingWrite) error {
	if w.turn == nil {
		return nil
	}
	select {
	case <-w.turn:
		return nil
	case <-ctx.Done():
		go func() {
			<-w.turn
			s.settle(w, nil, ctx.Err(), false)
		}()
		return ctx.Err()
	}
}

// send sends w, whose turn has come, and settles it.
// With keep set, a rejected optimistic update stays applied locally.
func (s *Store) send(ctx context.Context, sess Session, w *pendingWrite, keep bool) (a assignment.Assignment, reverted bool, err error) {
	s.mu.RLock()
	cancelled := w.cancelled
	s.mu.RUnlock()
	if cancelled != nil {
		s.settle(w, nil, cancelled, keep)
		return assignment.Assignment{}, false, cancelled
	}

	a, err = s.remote.Update(ctx, sess, w.id, w.update)
	if err != nil {
		reverted = s.settle(w, nil, err, keep)
		if IsNotFound(err) {
			s.refresh(ctx, sess)
		}
		return assignment.Assignment{}, reverted, err
	}
	s.settle(w, &a, nil, keep)
	return a, false, nil
}

// settle removes w from the queue of its record and lets the next write go.
// A response becomes the confirmed copy; the local record is rebuilt from it.
func (s *Store) settle(w *pendingWrite, resp *assignment.Assignment, err error, keep bool) (reverted bool) {
	s.mu.Lock()
	q := s.pending[w.id]
	for i := range q {
		if q[i] == w {
			q = append(q[:i:i], q[i+1:]...)
			break
		}
	}
	if len(q) == 0 {
		delete(s.pending, w.id)
	} else {
		s.pending[w.id] = q
	}

	base, listed := s.confirmed[w.id]
	switch {
	case err == nil:
		if listed {
			s.confirmed[w.id] = *resp
		}
	case IsNotFound(err):
		// the record is gone, the writes queued behind are moot
		for _, p := range q {
			p.cancelled = ErrUnknownID
		}
	case !w.optimistic || w.cancelled != nil:
	case keep:
		// the list diverges from the server until the next Load
		if listed {
			w.update.Apply(&base)
			s.confirmed[w.id] = base
		}
	default:
		reverted = listed
	}
	changed := s.rebuild(w.id)
	if changed {
		assignment.SortByDueDate(s.list)
	}
	close(w.done)
	s.mu.Unlock()

	if changed {
		s.publish()
	}
	return reverted
}

// rebuild recomputes the listed record `id` from its confirmed copy. Callers hold mu and sort the list.
func (s *Store) rebuild(id string) bool {
	i := s.index(id)
	base, ok := s.confirmed[id]
	if i < 0 || !ok {
		return false
	}
	a := base
	for _, w := range s.pending[id] {
		if w.optimistic {
			w.update.Apply(&a)
		}
	}
	for _, ua := range s.annotations[id] {
		ua.Apply(&a)
	}
	if a == s.list[i] {
		return false
	}
	s.list[i] = a
	return true
}

// reset empties the list for `owner`. Callers hold mu.
func (s *Store) reset(owner string) {
	s.owner = owner
	s.list = nil
	s.confirmed = make(map[string]assignment.Assignment)
	s.annotations = make(map[string][]assignment.UpdateAssignment)
}

// index returns the position of `id` in the list, or -1. Callers hold mu.
func (s *Store) index(id string) int {
	for i := range s.list {
		if s.list[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) publish() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subsMu.Lock()
	fns := make([]func([]assignment.Assignment), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()
	if len(fns) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// ownedBy keeps the records of userID (and the unowned ones), drops duplicate ids and sorts the result.
func ownedBy(list []assignment.Assignment, userID string) []assignment.Assignment {
	seen := make(map[string]bool, len(list))
	res := make([]assignment.Assignment, 0, len(list))
	for _, a := range list {
		if a.CreatedBy != "" && a.CreatedBy != userID {
			continue
		}
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		res = append(res, a)
	}
	assignment.SortByDueDate(res)
	return res
}
