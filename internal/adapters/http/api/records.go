package api

import (
	"context"
	"net/http"

	"github.com/okian/tally/internal/domain/types"
)

// RecordDependencies defines the record read operations.
type RecordDependencies interface {
	Records(ctx context.Context, sessionID string) ([]types.RecordView, error)
	Record(ctx context.Context, sessionID, studentID string) (types.RecordView, error)
}

// RecordsHandler handles record reads.
type RecordsHandler struct {
	deps RecordDependencies
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(deps RecordDependencies) *RecordsHandler {
	return &RecordsHandler{deps: deps}
}

// HandleList handles GET /sessions/{session}/records.
func (h *RecordsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_records"
	sessionID := r.PathValue("session")
	views, err := h.deps.Records(r.Context(), sessionID)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{SessionID: sessionID, Records: views})
}

// HandleGet handles GET /sessions/{session}/records/{student}.
func (h *RecordsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_record"
	view, err := h.deps.Record(r.Context(), r.PathValue("session"), r.PathValue("student"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}
