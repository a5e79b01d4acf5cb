package flagging

// Band is a coarse three-level grade used for display and distributions.
type Band string

// Bands.
const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Band cutoffs used by the review dashboard.
const (
	highScoreCutoff        = 85
	mediumScoreCutoff      = 70
	highConfidenceCutoff   = 0.80
	mediumConfidenceCutoff = 0.60
)

// ScoreBand grades a 0-100 score.
func ScoreBand(score int) Band {
	switch {
	case score >= highScoreCutoff:
		return BandHigh
	case score >= mediumScoreCutoff:
		return BandMedium
	default:
		return BandLow
	}
}

// ConfidenceBand grades a 0-1 confidence.
func ConfidenceBand(confidence float64) Band {
	switch {
	case confidence >= highConfidenceCutoff:
		return BandHigh
	case confidence >= mediumConfidenceCutoff:
		return BandMedium
	default:
		return BandLow
	}
}
