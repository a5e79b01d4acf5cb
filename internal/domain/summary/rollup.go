package summary

import (
	"math"

	"github.com/okian/tally/internal/domain/model"
)

// trendDelta is the effective-score change between a student's last two
// sessions that counts as a trend rather than noise.
const trendDelta = 5

// Trend describes the direction of a student's recent scores.
type Trend string

// Trends.
const (
	TrendImproving  Trend = "improving"
	TrendStable     Trend = "stable"
	TrendConcerning Trend = "concerning"
)

// Attendance is one student's record in one session.
type Attendance struct {
	Session model.SessionInfo
	Record  model.ParticipationRecord
}

// StudentSession is the per-session line of a rollup.
type StudentSession struct {
	SessionID      string `json:"session_id"`
	CourseID       string `json:"course_id,omitempty"`
	Name           string `json:"name,omitempty"`
	Date           string `json:"date,omitempty"`
	EffectiveScore int    `json:"effective_score"`
	EventCount     int    `json:"event_count"`
	Flagged        bool   `json:"flagged"`
}

// StudentRollup aggregates one student across sessions. OverallScore is the
// rounded mean effective score; TotalContributions sums event counts, not the
// sampled contribution list.
type StudentRollup struct {
	StudentID            string           `json:"student_id"`
	Name                 string           `json:"name"`
	OverallScore         int              `json:"overall_score"`
	SessionsAttended     int              `json:"sessions_attended"`
	TotalContributions   int              `json:"total_contributions"`
	AverageContributions float64          `json:"average_contributions_per_session"`
	FlaggedSessions      int              `json:"flagged_sessions"`
	Trend                Trend            `json:"trend"`
	Sessions             []StudentSession `json:"sessions"`
}

// Rollup aggregates a student's attendances, given in session load order.
// The name is taken from the latest session. An empty input yields a zero
// rollup with a stable trend.
func Rollup(studentID string, attendances []Attendance) StudentRollup {
	r := StudentRollup{
		StudentID: studentID,
		Trend:     TrendStable,
		Sessions:  make([]StudentSession, 0, len(attendances)),
	}
	if len(attendances) == 0 {
		return r
	}

	scoreSum := 0
	for _, a := range attendances {
		score := a.Record.EffectiveScore()
		scoreSum += score
		r.TotalContributions += a.Record.EventCount
		if a.Record.Flagged {
			r.FlaggedSessions++
		}
		if a.Record.Name != "" {
			r.Name = a.Record.Name
		}
		r.Sessions = append(r.Sessions, StudentSession{
			SessionID:      a.Session.ID,
			CourseID:       a.Session.CourseID,
			Name:           a.Session.Name,
			Date:           a.Session.Date,
			EffectiveScore: score,
			EventCount:     a.Record.EventCount,
			Flagged:        a.Record.Flagged,
		})
	}

	n := len(attendances)
	r.SessionsAttended = n
	r.OverallScore = int(math.Round(float64(scoreSum) / float64(n)))
	r.AverageContributions = float64(r.TotalContributions) / float64(n)
	if n >= 2 {
		r.Trend = trendOf(r.Sessions[n-2].EffectiveScore, r.Sessions[n-1].EffectiveScore)
	}
	return r
}

func trendOf(previous, latest int) Trend {
	switch d := latest - previous; {
	case d >= trendDelta:
		return TrendImproving
	case d <= -trendDelta:
		return TrendConcerning
	default:
		return TrendStable
	}
}
