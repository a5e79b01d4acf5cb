package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/validate"
	"github.com/okian/tally/pkg/metrics"
)

// session is one loaded record set. records keep ingestion order and index
// maps student id to its position.
type session struct {
	info    model.SessionInfo
	records []model.ParticipationRecord
	index   map[string]int
}

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore implements Store with a map of sessions behind a RWMutex.
//
// Versions come from a store-wide counter, so a record reloaded under the
// same student id never reuses a version an earlier edit was seeded with.
type InMemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	order     []string
	version   uint64
	validator *validate.Validator
	now       func() time.Time
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[string]*session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = validate.New()
	}
	return s
}

// Load replaces a session's records after validating the whole batch.
// Ingested records start without an approved score.
func (s *InMemoryStore) Load(ctx context.Context, info model.SessionInfo, records []model.ParticipationRecord) error {
	if strings.TrimSpace(info.ID) == "" {
		return model.NewValidationError("session.id", ErrEmptySessionID.Error())
	}
	if err := s.validator.Batch(records); err != nil {
		metrics.RecordValidationFailure("load")
		return err
	}

	// Copy outside the lock; callers keep ownership of their slice.
	next := &session{
		info:    info,
		records: make([]model.ParticipationRecord, len(records)),
		index:   make(map[string]int, len(records)),
	}
	next.info.LoadedAt = s.now()
	for i, rec := range records {
		next.records[i] = rec.Clone()
		// overrides are only ever written through SetApprovedScore or ApproveAll
		next.records[i].ApprovedScore = nil
		next.index[rec.StudentID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range next.records {
		s.version++
		next.records[i].Version = s.version
	}
	if _, exists := s.sessions[info.ID]; !exists {
		s.order = append(s.order, info.ID)
	}
	s.sessions[info.ID] = next

	metrics.RecordBatchLoaded(len(records))
	metrics.UpdateSessionCount(len(s.sessions))
	return nil
}

// Get returns one record.
func (s *InMemoryStore) Get(ctx context.Context, sessionID, studentID string) (model.ParticipationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return model.ParticipationRecord{}, &model.NotFoundError{SessionID: sessionID}
	}
	i, ok := sess.index[studentID]
	if !ok {
		return model.ParticipationRecord{}, &model.NotFoundError{SessionID: sessionID, StudentID: studentID}
	}
	return sess.records[i].Clone(), nil
}

// All returns the session's records in ingestion order.
func (s *InMemoryStore) All(ctx context.Context, sessionID string) ([]model.ParticipationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, &model.NotFoundError{SessionID: sessionID}
	}
	out := make([]model.ParticipationRecord, len(sess.records))
	for i, rec := range sess.records {
		out[i] = rec.Clone()
	}
	return out, nil
}

// SetApprovedScore commits score with a compare-and-swap on the record version.
func (s *InMemoryStore) SetApprovedScore(ctx context.Context, sessionID, studentID string, score int, expectedVersion uint64) (model.ParticipationRecord, error) {
	if score < 0 || score > 100 {
		metrics.RecordValidationFailure("approved_score")
		return model.ParticipationRecord{}, model.NewValidationError("score", "must be an integer in [0,100]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return model.ParticipationRecord{}, &model.NotFoundError{SessionID: sessionID}
	}
	i, ok := sess.index[studentID]
	if !ok {
		return model.ParticipationRecord{}, &model.NotFoundError{SessionID: sessionID, StudentID: studentID}
	}
	rec := &sess.records[i]
	if rec.Version != expectedVersion {
		metrics.RecordVersionConflict()
		return model.ParticipationRecord{}, fmt.Errorf("student %q in session %q (have version %d, expected %d): %w",
			studentID, sessionID, rec.Version, expectedVersion, model.ErrVersionConflict)
	}

	v := score
	rec.ApprovedScore = &v
	s.version++
	rec.Version = s.version
	return rec.Clone(), nil
}

// ApproveAll fills in approved scores from AI scores where no override exists.
func (s *InMemoryStore) ApproveAll(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return 0, &model.NotFoundError{SessionID: sessionID}
	}
	approved := 0
	for i := range sess.records {
		rec := &sess.records[i]
		if rec.ApprovedScore != nil {
			continue
		}
		v := rec.AIScore
		rec.ApprovedScore = &v
		s.version++
		rec.Version = s.version
		approved++
	}
	return approved, nil
}

// Discard removes a session and all its records.
func (s *InMemoryStore) Discard(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return &model.NotFoundError{SessionID: sessionID}
	}
	delete(s.sessions, sessionID)
	for i, id := range s.order {
		if id == sessionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	metrics.UpdateSessionCount(len(s.sessions))
	return nil
}

// Session returns a session's info.
func (s *InMemoryStore) Session(ctx context.Context, sessionID string) (model.SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return model.SessionInfo{}, &model.NotFoundError{SessionID: sessionID}
	}
	return sess.info, nil
}

// Sessions lists session infos in first-load order.
func (s *InMemoryStore) Sessions(ctx context.Context) []model.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SessionInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id].info)
	}
	return out
}

// Count returns the number of loaded sessions.
func (s *InMemoryStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
