// Package seed loads demo or file batches into a running review service.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/tally/internal/domain/model"
)

// DemoBatch returns the three-student roster used for demos and smoke tests.
// Flags are left for the server's policy to decide.
func DemoBatch(sessionID string) model.Batch {
	return model.Batch{
		Session: model.SessionInfo{
			ID:              sessionID,
			CourseID:        "MGMT-540",
			Name:            "Strategic Management - Week 3",
			Date:            "2024-11-14",
			DurationMinutes: 75,
		},
		Records: []model.ParticipationRecord{
			{
				StudentID: "STU001", Name: "John Smith", EventCount: 8, AIScore: 85,
				Confidence: 0.92, Quality: model.QualityHigh, Frequency: model.FrequencyOptimal,
				Contributions: []model.Contribution{
					contribution(model.ContributionAnalyticalQuestion, "How does this strategy align with Porter's five forces?", "00:12:34", 0.95),
					contribution(model.ContributionBuildingOnOthers, "I agree with Sarah's point, and I'd add that market timing is crucial here.", "00:23:16", 0.89),
				},
			},
			{
				StudentID: "STU002", Name: "Sarah Johnson", EventCount: 12, AIScore: 92,
				Confidence: 0.88, Quality: model.QualityHigh, Frequency: model.FrequencyHigh,
				Contributions: []model.Contribution{
					contribution(model.ContributionNewInsight, "The cultural factors in this market are often overlooked in traditional analysis.", "00:08:22", 0.94),
					contribution(model.ContributionChallenge, "I'm not sure I agree with that conclusion based on the data presented.", "00:45:12", 0.82),
				},
			},
			{
				StudentID: "STU003", Name: "Michael Chen", EventCount: 2, AIScore: 45,
				Confidence: 0.65, Quality: model.QualityMedium, Frequency: model.FrequencyLow,
				Contributions: []model.Contribution{
					contribution(model.ContributionClarifyingQuestion, "Could you explain that concept again?", "00:32:18", 0.71),
				},
			},
		},
	}
}

func contribution(t model.ContributionType, text, clock string, confidence float64) model.Contribution {
	secs, err := ClockSeconds(clock)
	if err != nil {
		panic(err)
	}
	return model.Contribution{Type: t, Text: text, TimestampSeconds: secs, Confidence: confidence}
}

// ClockSeconds converts an "HH:MM:SS" or "MM:SS" offset into seconds.
func ClockSeconds(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("timestamp %q: want HH:MM:SS", clock)
	}
	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || (i > 0 && n > 59) {
			return 0, fmt.Errorf("timestamp %q: bad field %q", clock, p)
		}
		total = total*60 + n
	}
	return total, nil
}

// ReadBatch loads a batch from a JSON or YAML file, chosen by extension.
// YAML uses the same field names as the JSON wire format.
func ReadBatch(path string) (model.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Batch{}, fmt.Errorf("read batch: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if data, err = yamlToJSON(data); err != nil {
			return model.Batch{}, fmt.Errorf("decode batch %s: %w", path, err)
		}
	}
	var b model.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return model.Batch{}, fmt.Errorf("decode batch %s: %w", path, err)
	}
	return b, nil
}

// yamlToJSON re-encodes a YAML document so the tag types' JSON decoding
// applies unchanged.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
