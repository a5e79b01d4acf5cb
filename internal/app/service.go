// Package service composes the review core and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tally/internal/adapters/mq/queue"
	"github.com/okian/tally/internal/adapters/mq/worker"
	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/dedupe"
	"github.com/okian/tally/internal/domain/edit"
	"github.com/okian/tally/internal/domain/flagging"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/summary"
	"github.com/okian/tally/internal/domain/types"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// Fetcher retrieves a finished batch from the analysis pipeline.
type Fetcher = worker.Fetcher

// Service implements the API dependencies for the review system.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	policy  *flagging.Policy
	editor  *edit.Editor
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool
	fetcher Fetcher

	jobsMu sync.RWMutex
	jobs   map[string]*types.JobStatus

	workerCount int
	queueSize   int
	dedupeSize  int
	policyOpts  []flagging.Option

	started bool
	logger  logger.Logger
}

// New constructs a Service. Workers run only after Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   1000,
		dedupeSize:  10000,
		jobs:        make(map[string]*types.JobStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		s.store = repository.NewInMemoryStore()
	}
	s.policy = flagging.NewPolicy(s.policyOpts...)
	s.editor = edit.NewEditor(s.store, edit.WithListener(s.onEdit))
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
		dedupe.WithOnEvict(s.forgetJob),
	)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	return s
}

// Start launches the analysis workers when a pipeline is configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.fetcher != nil {
		s.pool = worker.NewPool(s.workerCount, s.queue, s.fetcher, s,
			worker.WithObserver(s))
		s.pool.Start(ctx)
	}
	s.started = true
	s.logger.Info(ctx, "review service started",
		logger.Bool("pipeline", s.fetcher != nil),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("policy", s.policy.String()),
	)
	return nil
}

// Stop shuts the workers down and closes the job queue.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	_ = s.queue.Close()
	if s.pool != nil {
		s.pool.Stop()
	}
	s.started = false
	s.logger.Info(context.Background(), "review service stopped")
}

// Policy returns the ingestion flag policy.
func (s *Service) Policy() *flagging.Policy { return s.policy }

// LoadBatch applies the flag policy and replaces the session's records.
// An edit in flight on the session is cancelled.
func (s *Service) LoadBatch(ctx context.Context, batch model.Batch) error {
	records := s.policy.Apply(batch.Records)
	if err := s.store.Load(ctx, batch.Session, records); err != nil {
		return err
	}
	s.editor.CancelSession(batch.Session.ID)
	s.logger.Info(ctx, "session loaded",
		logger.String("session", batch.Session.ID),
		logger.Int("records", len(records)),
	)
	return nil
}

// Discard drops a session and any edit in flight on it.
func (s *Service) Discard(ctx context.Context, sessionID string) error {
	if err := s.store.Discard(ctx, sessionID); err != nil {
		return err
	}
	s.editor.CancelSession(sessionID)
	return nil
}

// Records returns the session's records in ingestion order.
func (s *Service) Records(ctx context.Context, sessionID string) ([]types.RecordView, error) {
	records, err := s.store.All(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	views := make([]types.RecordView, len(records))
	for i, rec := range records {
		views[i] = types.NewRecordView(rec, s.editor.StateOf(sessionID, rec.StudentID).String())
	}
	return views, nil
}

// RawRecords returns the session's records without display fields.
func (s *Service) RawRecords(ctx context.Context, sessionID string) ([]model.ParticipationRecord, error) {
	return s.store.All(ctx, sessionID)
}

// Record returns one record.
func (s *Service) Record(ctx context.Context, sessionID, studentID string) (types.RecordView, error) {
	rec, err := s.store.Get(ctx, sessionID, studentID)
	if err != nil {
		return types.RecordView{}, err
	}
	return types.NewRecordView(rec, s.editor.StateOf(sessionID, studentID).String()), nil
}

// Summary recomputes the session's summary from its current records.
func (s *Service) Summary(ctx context.Context, sessionID string) (types.SessionReport, error) {
	info, err := s.store.Session(ctx, sessionID)
	if err != nil {
		return types.SessionReport{}, err
	}
	records, err := s.store.All(ctx, sessionID)
	if err != nil {
		return types.SessionReport{}, err
	}
	return types.NewSessionReport(info, records), nil
}

// Sessions lists every loaded session with its summary.
func (s *Service) Sessions(ctx context.Context) []types.SessionReport {
	return s.CourseSessions(ctx, "")
}

// CourseSessions lists the loaded sessions of one course with their
// summaries. An empty courseID lists every session.
func (s *Service) CourseSessions(ctx context.Context, courseID string) []types.SessionReport {
	infos := s.store.Sessions(ctx)
	reports := make([]types.SessionReport, 0, len(infos))
	for _, info := range infos {
		if courseID != "" && info.CourseID != courseID {
			continue
		}
		records, err := s.store.All(ctx, info.ID)
		if err != nil {
			// discarded between the two reads
			continue
		}
		reports = append(reports, types.NewSessionReport(info, records))
	}
	return reports
}

// StudentRollup aggregates a student's records across loaded sessions in
// load order, optionally scoped to one course.
func (s *Service) StudentRollup(ctx context.Context, studentID, courseID string) (summary.StudentRollup, error) {
	if strings.TrimSpace(studentID) == "" {
		return summary.StudentRollup{}, model.NewValidationError("student_id", "is required")
	}
	var attendances []summary.Attendance
	for _, info := range s.store.Sessions(ctx) {
		if courseID != "" && info.CourseID != courseID {
			continue
		}
		rec, err := s.store.Get(ctx, info.ID, studentID)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return summary.StudentRollup{}, err
		}
		attendances = append(attendances, summary.Attendance{Session: info, Record: rec})
	}
	if len(attendances) == 0 {
		return summary.StudentRollup{}, &model.NotFoundError{StudentID: studentID}
	}
	return summary.Rollup(studentID, attendances), nil
}

// ApproveAll accepts the AI score of every record without an override.
func (s *Service) ApproveAll(ctx context.Context, sessionID string) (int, error) {
	n, err := s.store.ApproveAll(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	metrics.RecordApprovals(n)
	s.logger.Info(ctx, "approved all",
		logger.String("session", sessionID),
		logger.Int("approved", n),
	)
	return n, nil
}

// BeginEdit starts editing a record's score.
func (s *Service) BeginEdit(ctx context.Context, sessionID, studentID string) (edit.Slot, error) {
	return s.editor.BeginEdit(ctx, sessionID, studentID)
}

// UpdateWorkingValue replaces the in-flight edit's raw text.
func (s *Service) UpdateWorkingValue(_ context.Context, raw string) (edit.Slot, error) {
	return s.editor.UpdateWorkingValue(raw)
}

// Commit writes the in-flight edit.
func (s *Service) Commit(ctx context.Context, sessionID, studentID string) (types.RecordView, error) {
	rec, err := s.editor.Commit(ctx, sessionID, studentID)
	if err != nil {
		return types.RecordView{}, err
	}
	return types.NewRecordView(rec, edit.Viewing.String()), nil
}

// Cancel drops the in-flight edit on a record.
func (s *Service) Cancel(_ context.Context, sessionID, studentID string) {
	s.editor.Cancel(sessionID, studentID)
}

// CurrentEdit returns the in-flight edit, if any.
func (s *Service) CurrentEdit(_ context.Context) (edit.Slot, bool) {
	return s.editor.Current()
}

// RequestAnalysis queues a pipeline fetch for sessionID. jobID may be empty,
// in which case one is generated. A job id is accepted at most once; a
// repeat returns the existing status with ErrDuplicateJob.
func (s *Service) RequestAnalysis(ctx context.Context, sessionID, jobID string) (types.JobStatus, error) {
	if s.fetcher == nil {
		return types.JobStatus{}, ErrPipelineNotConfigured
	}
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return types.JobStatus{}, ErrNotStarted
	}
	if strings.TrimSpace(sessionID) == "" {
		return types.JobStatus{}, model.NewValidationError("session_id", "is required")
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}

	if s.deduper.SeenAndRecord(ctx, jobID) {
		metrics.RecordJobDuplicate()
		if st, ok := s.JobStatus(ctx, jobID); ok {
			return st, ErrDuplicateJob
		}
		return types.JobStatus{JobID: jobID}, ErrDuplicateJob
	}

	job := model.AnalysisJob{JobID: jobID, SessionID: sessionID, Requested: time.Now()}
	st := &types.JobStatus{
		JobID:     jobID,
		SessionID: sessionID,
		State:     types.JobQueued,
		Requested: job.Requested,
	}
	s.jobsMu.Lock()
	s.jobs[jobID] = st
	s.jobsMu.Unlock()

	if !s.queue.Enqueue(ctx, job) {
		s.deduper.Unrecord(ctx, jobID)
		s.jobsMu.Lock()
		delete(s.jobs, jobID)
		s.jobsMu.Unlock()
		return types.JobStatus{}, fmt.Errorf("request analysis for %s: %w", sessionID, queue.ErrQueueFull)
	}
	s.logger.Info(ctx, "analysis requested",
		logger.String("job", jobID),
		logger.String("session", sessionID),
	)
	return *st, nil
}

// JobStatus returns the status of an analysis job.
func (s *Service) JobStatus(_ context.Context, jobID string) (types.JobStatus, bool) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	st, ok := s.jobs[jobID]
	if !ok {
		return types.JobStatus{}, false
	}
	return *st, true
}

// JobStarted implements worker.Observer.
func (s *Service) JobStarted(_ context.Context, job model.AnalysisJob) {
	s.setJob(job.JobID, func(st *types.JobStatus) { st.State = types.JobRunning })
}

// JobFinished implements worker.Observer.
func (s *Service) JobFinished(_ context.Context, job model.AnalysisJob, err error) {
	now := time.Now()
	s.setJob(job.JobID, func(st *types.JobStatus) {
		st.Finished = &now
		if err != nil {
			st.State = types.JobFailed
			st.Error = err.Error()
			return
		}
		st.State = types.JobDone
	})
}

func (s *Service) trackedJobs() int {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()
	return len(s.jobs)
}

// forgetJob drops the status of a job id the deduper no longer remembers,
// keeping the status table bounded by the dedupe size.
func (s *Service) forgetJob(id string) {
	s.jobsMu.Lock()
	delete(s.jobs, id)
	s.jobsMu.Unlock()
}

func (s *Service) setJob(id string, fn func(*types.JobStatus)) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	if st, ok := s.jobs[id]; ok {
		fn(st)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	_, editing := s.editor.Current()
	stats := map[string]interface{}{
		"started":       s.started,
		"sessions":      s.store.Count(ctx),
		"editing":       editing,
		"pipeline":      s.fetcher != nil,
		"workerCount":   s.workerCount,
		"queueCapacity": s.queue.Capacity(),
		"queueLength":   s.queue.Len(ctx),
		"jobsSeen":      s.deduper.Size(),
		"jobsTracked":   s.trackedJobs(),
		"policy": map[string]interface{}{
			"lowConfidenceCutoff":             s.policy.LowConfidenceCutoff(),
			"overParticipationEventThreshold": s.policy.OverParticipationEventThreshold(),
		},
	}
	metrics.UpdateQueueSize(s.queue.Len(ctx))
	return stats
}

func (s *Service) onEdit(ev edit.Event) {
	if err := metrics.RecordEdit(string(ev.Kind)); err != nil {
		s.logger.Warn(context.Background(), "unrecorded edit event", logger.Error(err))
	}
	fields := []logger.Field{
		logger.String("kind", string(ev.Kind)),
		logger.String("session", ev.SessionID),
		logger.String("student", ev.StudentID),
	}
	if ev.Kind == edit.Rejected {
		fields = append(fields, logger.Error(ev.Err))
		if errors.Is(ev.Err, model.ErrVersionConflict) {
			s.logger.Warn(context.Background(), "edit rejected by a newer write", fields...)
			return
		}
	}
	s.logger.Debug(context.Background(), "edit event", fields...)
}
