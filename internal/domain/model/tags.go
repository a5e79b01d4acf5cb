package model

import (
	"encoding/json"
	"fmt"
)

// Quality grades how substantive a student's contributions were.
type Quality int

// Quality tags.
const (
	QualityUnknown Quality = iota
	QualityLow
	QualityMedium
	QualityHigh
)

var qualityNames = map[Quality]string{
	QualityLow:    "Low",
	QualityMedium: "Medium",
	QualityHigh:   "High",
}

func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether q is one of the defined tags.
func (q Quality) Valid() bool {
	_, ok := qualityNames[q]
	return ok
}

// ParseQuality maps a display name back to its tag.
func ParseQuality(s string) (Quality, error) {
	for q, name := range qualityNames {
		if name == s {
			return q, nil
		}
	}
	return QualityUnknown, fmt.Errorf("unknown quality %q", s)
}

func (q Quality) MarshalJSON() ([]byte, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("cannot marshal quality %d", int(q))
	}
	return json.Marshal(q.String())
}

func (q *Quality) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseQuality(s)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// Frequency grades how often a student spoke relative to the class.
type Frequency int

// Frequency tags.
const (
	FrequencyUnknown Frequency = iota
	FrequencyLow
	FrequencyOptimal
	FrequencyHigh
)

var frequencyNames = map[Frequency]string{
	FrequencyLow:     "Low",
	FrequencyOptimal: "Optimal",
	FrequencyHigh:    "High",
}

func (f Frequency) String() string {
	if name, ok := frequencyNames[f]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether f is one of the defined tags.
func (f Frequency) Valid() bool {
	_, ok := frequencyNames[f]
	return ok
}

// ParseFrequency maps a display name back to its tag.
func ParseFrequency(s string) (Frequency, error) {
	for f, name := range frequencyNames {
		if name == s {
			return f, nil
		}
	}
	return FrequencyUnknown, fmt.Errorf("unknown frequency %q", s)
}

func (f Frequency) MarshalJSON() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("cannot marshal frequency %d", int(f))
	}
	return json.Marshal(f.String())
}

func (f *Frequency) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseFrequency(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ContributionType classifies a single contribution.
type ContributionType int

// Contribution types as labelled by the analysis pipeline.
const (
	ContributionUnknown ContributionType = iota
	ContributionAnalyticalQuestion
	ContributionBuildingOnOthers
	ContributionNewInsight
	ContributionChallenge
	ContributionClarifyingQuestion
	ContributionOther
)

var contributionNames = map[ContributionType]string{
	ContributionAnalyticalQuestion: "Analytical Question",
	ContributionBuildingOnOthers:   "Building on Others",
	ContributionNewInsight:         "New Insight",
	ContributionChallenge:          "Challenge/Disagreement",
	ContributionClarifyingQuestion: "Clarifying Question",
	ContributionOther:              "Other",
}

func (c ContributionType) String() string {
	if name, ok := contributionNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether c is one of the defined types.
func (c ContributionType) Valid() bool {
	_, ok := contributionNames[c]
	return ok
}

// ParseContributionType maps a label back to its type.
func ParseContributionType(s string) (ContributionType, error) {
	for c, name := range contributionNames {
		if name == s {
			return c, nil
		}
	}
	return ContributionUnknown, fmt.Errorf("unknown contribution type %q", s)
}

func (c ContributionType) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("cannot marshal contribution type %d", int(c))
	}
	return json.Marshal(c.String())
}

func (c *ContributionType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseContributionType(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
