// Package types contains the read models returned to API callers.
package types

import (
	"time"

	"github.com/okian/tally/internal/domain/flagging"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/summary"
)

// RecordView is a record decorated with derived display fields.
type RecordView struct {
	model.ParticipationRecord
	EffectiveScore int           `json:"effective_score"`
	ScoreBand      flagging.Band `json:"score_band"`
	ConfidenceBand flagging.Band `json:"confidence_band"`
	State          string        `json:"state"`
}

// NewRecordView derives the display fields of rec.
func NewRecordView(rec model.ParticipationRecord, state string) RecordView {
	return RecordView{
		ParticipationRecord: rec,
		EffectiveScore:      rec.EffectiveScore(),
		ScoreBand:           flagging.ScoreBand(rec.EffectiveScore()),
		ConfidenceBand:      flagging.ConfidenceBand(rec.Confidence),
		State:               state,
	}
}

// SessionReport is a session's info with its live summary.
type SessionReport struct {
	Session      model.SessionInfo    `json:"session"`
	Summary      model.SessionSummary `json:"summary"`
	Distribution summary.Distribution `json:"distribution"`
	ReviewNeeded bool                 `json:"review_needed"`
}

// NewSessionReport summarizes records for info.
func NewSessionReport(info model.SessionInfo, records []model.ParticipationRecord) SessionReport {
	s := summary.Summarize(records)
	return SessionReport{
		Session:      info,
		Summary:      s,
		Distribution: summary.Distribute(records),
		ReviewNeeded: summary.ReviewNeeded(s),
	}
}

// JobState tracks an analysis job.
type JobState string

// Job states.
const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// JobStatus reports an analysis job.
type JobStatus struct {
	JobID     string     `json:"job_id"`
	SessionID string     `json:"session_id"`
	State     JobState   `json:"state"`
	Error     string     `json:"error,omitempty"`
	Requested time.Time  `json:"requested"`
	Finished  *time.Time `json:"finished,omitempty"`
}
