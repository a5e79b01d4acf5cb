package seed

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

// ErrNoBaseURL is returned when no service URL is configured.
var ErrNoBaseURL = errors.New("seed: base url is required")

// Run submits the configured batch, or asks for pipeline analysis, and logs
// what the service reports back.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.BaseURL == "" {
		return ErrNoBaseURL
	}
	log := logger.Get().Named("seed")
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if cfg.Analyze {
		st, err := client.RequestAnalysis(ctx, sessionID)
		if err != nil {
			return err
		}
		log.Info(ctx, "analysis requested",
			logger.String("job", st.JobID),
			logger.String("session", st.SessionID),
			logger.String("state", string(st.State)),
		)
		return nil
	}

	var batch model.Batch
	if cfg.File != "" {
		b, err := ReadBatch(cfg.File)
		if err != nil {
			return err
		}
		batch = b
		if batch.Session.ID == "" {
			batch.Session.ID = sessionID
		}
	} else {
		batch = DemoBatch(sessionID)
	}

	rep, err := client.Load(ctx, batch)
	if err != nil {
		return err
	}
	log.Info(ctx, "session loaded",
		logger.String("session", rep.Session.ID),
		logger.Int("students", rep.Summary.StudentsAnalyzed),
		logger.Int("events", rep.Summary.TotalEvents),
		logger.Int("flagged", rep.Summary.FlaggedCount),
		logger.Float64("avgConfidence", rep.Summary.AverageConfidence),
		logger.Bool("reviewNeeded", rep.ReviewNeeded),
	)

	if !cfg.Verbose {
		return nil
	}
	views, err := client.Records(ctx, rep.Session.ID)
	if err != nil {
		return err
	}
	for _, v := range views {
		log.Info(ctx, "record",
			logger.String("student", v.StudentID),
			logger.String("name", v.Name),
			logger.Int("score", v.EffectiveScore),
			logger.String("band", string(v.ScoreBand)),
			logger.Bool("flagged", v.Flagged),
			logger.String("reason", v.FlagReason),
		)
	}
	return nil
}
