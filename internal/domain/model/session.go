package model

import "time"

// SessionInfo describes the class meeting a batch was analysed from.
type SessionInfo struct {
	ID              string    `json:"id"`
	CourseID        string    `json:"course_id,omitempty"`
	Name            string    `json:"name,omitempty"`
	Date            string    `json:"date,omitempty"` // YYYY-MM-DD
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	LoadedAt        time.Time `json:"loaded_at"`
}

// Batch is the finished result handed over by the analysis pipeline.
type Batch struct {
	Session SessionInfo           `json:"session"`
	Records []ParticipationRecord `json:"records"`
}

// AnalysisJob asks the pipeline for a session's finished batch.
type AnalysisJob struct {
	JobID     string
	SessionID string
	Requested time.Time
}
