package api

import (
	"context"
	"net/http"

	"github.com/okian/tally/internal/domain/edit"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
)

// EditDependencies defines the edit state machine operations.
type EditDependencies interface {
	BeginEdit(ctx context.Context, sessionID, studentID string) (edit.Slot, error)
	UpdateWorkingValue(ctx context.Context, raw string) (edit.Slot, error)
	Commit(ctx context.Context, sessionID, studentID string) (types.RecordView, error)
	Cancel(ctx context.Context, sessionID, studentID string)
	CurrentEdit(ctx context.Context) (edit.Slot, bool)
}

// EditHandler handles score edits.
type EditHandler struct {
	deps EditDependencies
}

// NewEditHandler creates a new edit handler.
func NewEditHandler(deps EditDependencies) *EditHandler {
	return &EditHandler{deps: deps}
}

// HandleCurrent handles GET /edit.
func (h *EditHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.deps.CurrentEdit(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, editResponse{})
		return
	}
	writeJSON(w, http.StatusOK, editResponse{Editing: true, Slot: &slot})
}

// HandleBegin handles POST /sessions/{session}/records/{student}/edit.
func (h *EditHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	const op = "api.begin_edit"
	slot, err := h.deps.BeginEdit(r.Context(), r.PathValue("session"), r.PathValue("student"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, editResponse{Editing: true, Slot: &slot})
}

// HandleUpdate handles PUT /edit/value. The value is stored as typed.
func (h *EditHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_working_value"
	var req valueRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Value == nil {
		writeError(w, NewKind(op, model.NewValidationError("value", "is required")))
		return
	}
	slot, err := h.deps.UpdateWorkingValue(r.Context(), *req.Value)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, editResponse{Editing: true, Slot: &slot})
}

// HandleCommit handles POST /sessions/{session}/records/{student}/commit.
func (h *EditHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	const op = "api.commit_edit"
	view, err := h.deps.Commit(r.Context(), r.PathValue("session"), r.PathValue("student"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleCancel handles DELETE /sessions/{session}/records/{student}/edit.
func (h *EditHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.deps.Cancel(r.Context(), r.PathValue("session"), r.PathValue("student"))
	w.WriteHeader(http.StatusNoContent)
}
