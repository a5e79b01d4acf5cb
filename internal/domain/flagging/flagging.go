// Package flagging classifies ingested participation records for human attention.
//
// The policy runs once, before records enter a session store. Reviewer edits
// never re-run it, so a flag always reflects the analysis that produced the
// record rather than the reviewer's correction.
package flagging

import (
	"fmt"

	"github.com/okian/tally/internal/domain/model"
)

// Default policy configuration constants.
const (
	DefaultLowConfidenceCutoff             = 0.70
	DefaultOverParticipationEventThreshold = 10
)

// Flag reasons surfaced to reviewers.
const (
	ReasonLowConfidence     = "Low confidence in speaker identification"
	ReasonOverParticipation = "Potential over-participation"
)

// Option applies a configuration option to the Policy.
type Option func(*Policy)

// WithLowConfidenceCutoff sets the confidence below which a record is flagged.
func WithLowConfidenceCutoff(cutoff float64) Option {
	return func(p *Policy) {
		if cutoff >= 0 && cutoff <= 1 {
			p.lowConfidenceCutoff = cutoff
		}
	}
}

// WithOverParticipationEventThreshold sets the event count a High-frequency
// record must exceed to be flagged.
func WithOverParticipationEventThreshold(threshold int) Option {
	return func(p *Policy) {
		if threshold >= 0 {
			p.overParticipationThreshold = threshold
		}
	}
}

// Policy maps confidence and participation volume to a flag decision.
type Policy struct {
	lowConfidenceCutoff        float64
	overParticipationThreshold int
}

// NewPolicy creates a policy with default cutoffs.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		lowConfidenceCutoff:        DefaultLowConfidenceCutoff,
		overParticipationThreshold: DefaultOverParticipationEventThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LowConfidenceCutoff returns the configured cutoff.
func (p *Policy) LowConfidenceCutoff() float64 { return p.lowConfidenceCutoff }

// OverParticipationEventThreshold returns the configured threshold.
func (p *Policy) OverParticipationEventThreshold() int { return p.overParticipationThreshold }

// Classify decides whether rec needs attention. First match wins:
// low confidence takes precedence over over-participation.
func (p *Policy) Classify(rec model.ParticipationRecord) (flagged bool, reason string) {
	switch {
	case rec.Confidence < p.lowConfidenceCutoff:
		return true, ReasonLowConfidence
	case rec.Frequency == model.FrequencyHigh && rec.EventCount > p.overParticipationThreshold:
		return true, ReasonOverParticipation
	default:
		return false, ""
	}
}

// Apply returns copies of records with Flagged and FlagReason set by the
// policy. Any flag supplied by the pipeline is overwritten.
func (p *Policy) Apply(records []model.ParticipationRecord) []model.ParticipationRecord {
	out := make([]model.ParticipationRecord, len(records))
	for i, rec := range records {
		c := rec.Clone()
		c.Flagged, c.FlagReason = p.Classify(c)
		out[i] = c
	}
	return out
}

func (p *Policy) String() string {
	return fmt.Sprintf("flagging.Policy{lowConfidenceCutoff: %.2f, overParticipationEventThreshold: %d}",
		p.lowConfidenceCutoff, p.overParticipationThreshold)
}
