// Package export renders a session's records for download.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"github.com/okian/tally/internal/domain/model"
)

// ErrNoHeaders is returned when a dataset has no columns.
var ErrNoHeaders = errors.New("csv requires at least one header")

// Record columns, in output order.
const (
	ColStudentID      = "student_id"
	ColName           = "name"
	ColEventCount     = "event_count"
	ColAIScore        = "ai_score"
	ColApprovedScore  = "approved_score"
	ColEffectiveScore = "effective_score"
	ColConfidence     = "confidence"
	ColQuality        = "quality"
	ColFrequency      = "frequency"
	ColFlagged        = "flagged"
	ColFlagReason     = "flag_reason"
)

// RecordHeaders lists the columns of a record export.
var RecordHeaders = []string{
	ColStudentID, ColName, ColEventCount, ColAIScore, ColApprovedScore, ColEffectiveScore,
	ColConfidence, ColQuality, ColFrequency, ColFlagged, ColFlagReason,
}

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// RecordsDataset lays records out one per row in the given order.
// An unset approved score is an empty cell.
func RecordsDataset(records []model.ParticipationRecord) Dataset {
	rows := make([]map[string]string, len(records))
	for i, r := range records {
		approved := ""
		if r.ApprovedScore != nil {
			approved = strconv.Itoa(*r.ApprovedScore)
		}
		rows[i] = map[string]string{
			ColStudentID:      r.StudentID,
			ColName:           r.Name,
			ColEventCount:     strconv.Itoa(r.EventCount),
			ColAIScore:        strconv.Itoa(r.AIScore),
			ColApprovedScore:  approved,
			ColEffectiveScore: strconv.Itoa(r.EffectiveScore()),
			ColConfidence:     strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			ColQuality:        r.Quality.String(),
			ColFrequency:      r.Frequency.String(),
			ColFlagged:        strconv.FormatBool(r.Flagged),
			ColFlagReason:     r.FlagReason,
		}
	}
	return Dataset{Headers: RecordHeaders, Rows: rows}
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, ErrNoHeaders
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
