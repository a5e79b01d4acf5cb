// Package edit implements the reviewer's score edit/commit state machine.
//
// A record is either Viewing or Editing. Exactly one record may be Editing
// process-wide: beginning an edit elsewhere cancels the current one and
// emits an explicit Cancelled event for it.
package edit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/tally/internal/domain/model"
)

// Score bounds accepted on commit.
const (
	minScore = 0
	maxScore = 100
)

// ScoreMessage is returned for any unparseable or out-of-range working value.
const ScoreMessage = "must be an integer in [0,100]"

// State of a record in the review table.
type State int

// States.
const (
	Viewing State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "viewing"
}

// EventKind names a transition.
type EventKind string

// Event kinds.
const (
	Began     EventKind = "began"
	Updated   EventKind = "updated"
	Committed EventKind = "committed"
	Cancelled EventKind = "cancelled"
	Rejected  EventKind = "rejected"
)

// Event is emitted after every transition or rejected commit.
type Event struct {
	Kind      EventKind
	SessionID string
	StudentID string
	Working   string
	Score     int   // set on Committed
	Err       error // set on Rejected
	At        time.Time
}

// Listener receives events synchronously. Listeners must not call back into
// the editor.
type Listener func(Event)

// Store is the subset of the session store the editor needs.
type Store interface {
	Get(ctx context.Context, sessionID, studentID string) (model.ParticipationRecord, error)
	SetApprovedScore(ctx context.Context, sessionID, studentID string, score int, expectedVersion uint64) (model.ParticipationRecord, error)
}

// Slot is the single in-flight edit.
type Slot struct {
	SessionID string    `json:"session_id"`
	StudentID string    `json:"student_id"`
	Working   string    `json:"working_value"`
	Version   uint64    `json:"version"`
	Since     time.Time `json:"since"`
}

// Option applies a configuration option to the Editor.
type Option func(*Editor)

// WithListener registers a listener for transition events.
func WithListener(l Listener) Option {
	return func(e *Editor) {
		if l != nil {
			e.listeners = append(e.listeners, l)
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		if now != nil {
			e.now = now
		}
	}
}

// Editor owns the process-wide edit slot.
type Editor struct {
	mu        sync.Mutex
	store     Store
	slot      *Slot
	listeners []Listener
	now       func() time.Time
}

// NewEditor creates an editor writing through store.
func NewEditor(store Store, opts ...Option) *Editor {
	e := &Editor{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BeginEdit moves the record to Editing and seeds the working value with
// its effective score. Committed data is not touched.
func (e *Editor) BeginEdit(ctx context.Context, sessionID, studentID string) (Slot, error) {
	rec, err := e.store.Get(ctx, sessionID, studentID)
	if err != nil {
		return Slot{}, err
	}

	e.mu.Lock()
	var events []Event
	if e.slot != nil && !e.slot.matches(sessionID, studentID) {
		events = append(events, e.event(Cancelled, e.slot))
	}
	e.slot = &Slot{
		SessionID: sessionID,
		StudentID: studentID,
		Working:   strconv.Itoa(rec.EffectiveScore()),
		Version:   rec.Version,
		Since:     e.now(),
	}
	events = append(events, e.event(Began, e.slot))
	slot := *e.slot
	e.mu.Unlock()

	e.emit(events...)
	return slot, nil
}

// UpdateWorkingValue stores raw input as typed. Validation waits for Commit.
func (e *Editor) UpdateWorkingValue(raw string) (Slot, error) {
	e.mu.Lock()
	if e.slot == nil {
		e.mu.Unlock()
		return Slot{}, fmt.Errorf("update working value: %w", model.ErrNotEditing)
	}
	e.slot.Working = raw
	ev := e.event(Updated, e.slot)
	slot := *e.slot
	e.mu.Unlock()

	e.emit(ev)
	return slot, nil
}

// Commit parses the working value and writes it as the approved score.
// A rejected value keeps the record in Editing with the working value kept.
// A version conflict or a vanished record closes the edit: the held version
// can never be written, so the slot is cancelled and must be reopened.
func (e *Editor) Commit(ctx context.Context, sessionID, studentID string) (model.ParticipationRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.slot == nil || !e.slot.matches(sessionID, studentID) {
		return model.ParticipationRecord{}, fmt.Errorf("commit %s/%s: %w", sessionID, studentID, model.ErrNotEditing)
	}

	score, err := ParseScore(e.slot.Working)
	if err != nil {
		e.emitLocked(e.rejected(err))
		return model.ParticipationRecord{}, err
	}

	rec, err := e.store.SetApprovedScore(ctx, sessionID, studentID, score, e.slot.Version)
	if err != nil {
		e.emitLocked(e.rejected(err))
		if errors.Is(err, model.ErrVersionConflict) || errors.Is(err, model.ErrNotFound) {
			e.emitLocked(e.event(Cancelled, e.slot))
			e.slot = nil
		}
		return model.ParticipationRecord{}, err
	}

	ev := e.event(Committed, e.slot)
	ev.Score = score
	e.slot = nil
	e.emitLocked(ev)
	return rec, nil
}

// Cancel discards the working value. Cancelling a record that is not being
// edited is a no-op.
func (e *Editor) Cancel(sessionID, studentID string) {
	e.mu.Lock()
	if e.slot == nil || !e.slot.matches(sessionID, studentID) {
		e.mu.Unlock()
		return
	}
	ev := e.event(Cancelled, e.slot)
	e.slot = nil
	e.mu.Unlock()

	e.emit(ev)
}

// CancelSession cancels the in-flight edit if it belongs to sessionID.
// Used when the session's records are replaced or discarded.
func (e *Editor) CancelSession(sessionID string) {
	e.mu.Lock()
	if e.slot == nil || e.slot.SessionID != sessionID {
		e.mu.Unlock()
		return
	}
	ev := e.event(Cancelled, e.slot)
	e.slot = nil
	e.mu.Unlock()

	e.emit(ev)
}

// Current returns the in-flight edit, if any.
func (e *Editor) Current() (Slot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.slot == nil {
		return Slot{}, false
	}
	return *e.slot, true
}

// StateOf reports the state of one record.
func (e *Editor) StateOf(sessionID, studentID string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.slot != nil && e.slot.matches(sessionID, studentID) {
		return Editing
	}
	return Viewing
}

// ParseScore parses a working value as a score in [0,100].
func ParseScore(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < minScore || n > maxScore {
		return 0, model.NewValidationError("score", ScoreMessage)
	}
	return n, nil
}

func (s *Slot) matches(sessionID, studentID string) bool {
	return s.SessionID == sessionID && s.StudentID == studentID
}

func (e *Editor) event(kind EventKind, s *Slot) Event {
	return Event{
		Kind:      kind,
		SessionID: s.SessionID,
		StudentID: s.StudentID,
		Working:   s.Working,
		At:        e.now(),
	}
}

func (e *Editor) rejected(err error) Event {
	ev := e.event(Rejected, e.slot)
	ev.Err = err
	return ev
}

func (e *Editor) emit(events ...Event) {
	for _, ev := range events {
		for _, l := range e.listeners {
			l(ev)
		}
	}
}

// emitLocked is used from Commit, which holds the lock across the store
// write so that a concurrent BeginEdit cannot interleave.
func (e *Editor) emitLocked(ev Event) {
	e.emit(ev)
}
