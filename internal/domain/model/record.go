// Package model contains domain models passed between layers.
package model

// ParticipationRecord holds one student's analysed participation for a session.
// AIScore is immutable once ingested; ApprovedScore is the reviewer overlay.
type ParticipationRecord struct {
	StudentID     string         `json:"student_id" validate:"required"`
	Name          string         `json:"name"`
	EventCount    int            `json:"event_count" validate:"gte=0"`
	AIScore       int            `json:"ai_score" validate:"gte=0,lte=100"`
	ApprovedScore *int           `json:"approved_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	Confidence    float64        `json:"confidence" validate:"gte=0,lte=1"`
	Quality       Quality        `json:"quality" validate:"quality"`
	Frequency     Frequency      `json:"frequency" validate:"frequency"`
	Flagged       bool           `json:"flagged"`
	FlagReason    string         `json:"flag_reason,omitempty"`
	Contributions []Contribution `json:"contributions" validate:"dive"`

	// Version is bumped on every committed mutation and used for
	// compare-and-swap by concurrent reviewers.
	Version uint64 `json:"version"`
}

// Contribution is a single attributed utterance. Immutable.
type Contribution struct {
	Type             ContributionType `json:"type" validate:"contribution_type"`
	Text             string           `json:"text"`
	TimestampSeconds int              `json:"timestamp_seconds" validate:"gte=0"`
	Confidence       float64          `json:"confidence" validate:"gte=0,lte=1"`
}

// EffectiveScore returns the approved score when set, otherwise the AI score.
func (r ParticipationRecord) EffectiveScore() int {
	if r.ApprovedScore != nil {
		return *r.ApprovedScore
	}
	return r.AIScore
}

// Overridden reports whether a reviewer committed a score for the record.
func (r ParticipationRecord) Overridden() bool {
	return r.ApprovedScore != nil
}

// Clone returns a deep copy so callers never alias store internals.
func (r ParticipationRecord) Clone() ParticipationRecord {
	out := r
	if r.ApprovedScore != nil {
		v := *r.ApprovedScore
		out.ApprovedScore = &v
	}
	if r.Contributions != nil {
		out.Contributions = make([]Contribution, len(r.Contributions))
		copy(out.Contributions, r.Contributions)
	}
	return out
}

// SessionSummary is derived from a session's records on every read.
type SessionSummary struct {
	StudentsAnalyzed  int     `json:"students_analyzed"`
	TotalEvents       int     `json:"total_events"`
	FlaggedCount      int     `json:"flagged_count"`
	AverageConfidence float64 `json:"average_confidence"`
}
