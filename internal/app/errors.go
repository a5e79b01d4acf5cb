package service

import (
	"fmt"

	"github.com/okian/tally/internal/domain/model"
)

// Sentinel kinds for service errors.
var (
	ErrPipelineNotConfigured = fmt.Errorf("analysis pipeline is not configured: %w", model.ErrUnavailable)
	ErrNotStarted            = fmt.Errorf("service not started: %w", model.ErrUnavailable)
	ErrDuplicateJob          = fmt.Errorf("analysis job: %w", model.ErrDuplicate)
)
