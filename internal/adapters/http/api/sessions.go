package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
	"github.com/okian/tally/pkg/export"
)

// SessionDependencies defines the session level operations.
type SessionDependencies interface {
	LoadBatch(ctx context.Context, batch model.Batch) error
	Discard(ctx context.Context, sessionID string) error
	CourseSessions(ctx context.Context, courseID string) []types.SessionReport
	Summary(ctx context.Context, sessionID string) (types.SessionReport, error)
	RawRecords(ctx context.Context, sessionID string) ([]model.ParticipationRecord, error)
	ApproveAll(ctx context.Context, sessionID string) (int, error)
	RequestAnalysis(ctx context.Context, sessionID, jobID string) (types.JobStatus, error)
	JobStatus(ctx context.Context, jobID string) (types.JobStatus, bool)
}

// SessionsHandler handles session requests.
type SessionsHandler struct {
	deps     SessionDependencies
	exporter *export.CSVExporter
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps, exporter: export.NewCSVExporter()}
}

// HandleList handles GET /sessions, optionally filtered by ?course=.
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.CourseSessions(r.Context(), r.URL.Query().Get("course")))
}

// HandleLoad handles PUT /sessions/{session}/records. The whole set is
// replaced or nothing changes.
func (h *SessionsHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	const op = "api.load_session"
	sessionID := r.PathValue("session")

	var req loadRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Session.ID != "" && req.Session.ID != sessionID {
		writeError(w, NewKind(op, model.NewValidationError("session.id", "does not match the path")))
		return
	}
	req.Session.ID = sessionID
	if req.Records == nil {
		req.Records = []model.ParticipationRecord{}
	}
	if err := h.deps.LoadBatch(r.Context(), model.Batch{Session: req.Session, Records: req.Records}); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	rep, err := h.deps.Summary(r.Context(), sessionID)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleDiscard handles DELETE /sessions/{session}.
func (h *SessionsHandler) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	const op = "api.discard_session"
	if err := h.deps.Discard(r.Context(), r.PathValue("session")); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSummary handles GET /sessions/{session}/summary.
func (h *SessionsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.session_summary"
	rep, err := h.deps.Summary(r.Context(), r.PathValue("session"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleExport handles GET /sessions/{session}/export.csv.
func (h *SessionsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_session"
	sessionID := r.PathValue("session")
	records, err := h.deps.RawRecords(r.Context(), sessionID)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	body, err := h.exporter.Render(export.RecordsDataset(records))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sessionID+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// HandleApproveAll handles POST /sessions/{session}/approve-all.
func (h *SessionsHandler) HandleApproveAll(w http.ResponseWriter, r *http.Request) {
	const op = "api.approve_all"
	n, err := h.deps.ApproveAll(r.Context(), r.PathValue("session"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, approveResponse{Approved: n})
}

// HandleRequestAnalysis handles POST /sessions/{session}/analysis. A repeated
// job id answers with the existing job instead of queueing it again.
func (h *SessionsHandler) HandleRequestAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.request_analysis"
	var req analysisRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	st, err := h.deps.RequestAnalysis(r.Context(), r.PathValue("session"), req.JobID)
	switch {
	case errors.Is(err, model.ErrDuplicate) && st.JobID != "":
		writeJSON(w, http.StatusOK, st)
	case err != nil:
		writeError(w, Wrap(op, err))
	default:
		writeJSON(w, http.StatusAccepted, st)
	}
}

// HandleJob handles GET /jobs/{job}.
func (h *SessionsHandler) HandleJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.job_status"
	st, ok := h.deps.JobStatus(r.Context(), r.PathValue("job"))
	if !ok {
		writeError(w, NewKind(op, model.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
