// Package summary derives session-level aggregates from participation records.
// Nothing here is cached: callers recompute on every read.
package summary

import (
	"github.com/okian/tally/internal/domain/flagging"
	"github.com/okian/tally/internal/domain/model"
)

// Summarize computes the session summary. An empty set yields all zeros.
func Summarize(records []model.ParticipationRecord) model.SessionSummary {
	var s model.SessionSummary
	if len(records) == 0 {
		return s
	}
	var confidenceSum float64
	for _, rec := range records {
		s.TotalEvents += rec.EventCount
		if rec.Flagged {
			s.FlaggedCount++
		}
		confidenceSum += rec.Confidence
	}
	s.StudentsAnalyzed = len(records)
	s.AverageConfidence = confidenceSum / float64(len(records))
	return s
}

// Distribution counts effective scores per band.
type Distribution struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Distribute buckets each record's effective score.
func Distribute(records []model.ParticipationRecord) Distribution {
	var d Distribution
	for _, rec := range records {
		switch flagging.ScoreBand(rec.EffectiveScore()) {
		case flagging.BandHigh:
			d.High++
		case flagging.BandMedium:
			d.Medium++
		default:
			d.Low++
		}
	}
	return d
}

// ReviewNeeded reports whether any record is flagged.
func ReviewNeeded(s model.SessionSummary) bool {
	return s.FlaggedCount > 0
}
