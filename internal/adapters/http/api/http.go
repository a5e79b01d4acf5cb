// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/tally/internal/domain/edit"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
)

// maxBodyBytes bounds request bodies. A batch for a large seminar with full
// transcripts stays well under this.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	RecordDependencies
	StudentDependencies
	EditDependencies
	StatsProvider
}

// Server wires HTTP routes for the review API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionsHandler *SessionsHandler
	recordsHandler  *RecordsHandler
	studentsHandler *StudentsHandler
	editHandler     *EditHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
		recordsHandler:  NewRecordsHandler(deps),
		studentsHandler: NewStudentsHandler(deps),
		editHandler:     NewEditHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /sessions", MetricsMiddleware(s.sessionsHandler.HandleList, "sessions"))
	mux.HandleFunc("PUT /sessions/{session}/records", MetricsMiddleware(s.sessionsHandler.HandleLoad, "load"))
	mux.HandleFunc("DELETE /sessions/{session}", MetricsMiddleware(s.sessionsHandler.HandleDiscard, "discard"))
	mux.HandleFunc("GET /sessions/{session}/summary", MetricsMiddleware(s.sessionsHandler.HandleSummary, "summary"))
	mux.HandleFunc("GET /sessions/{session}/export.csv", MetricsMiddleware(s.sessionsHandler.HandleExport, "export"))
	mux.HandleFunc("POST /sessions/{session}/approve-all", MetricsMiddleware(s.sessionsHandler.HandleApproveAll, "approve_all"))
	mux.HandleFunc("POST /sessions/{session}/analysis", MetricsMiddleware(s.sessionsHandler.HandleRequestAnalysis, "analysis"))
	mux.HandleFunc("GET /jobs/{job}", MetricsMiddleware(s.sessionsHandler.HandleJob, "job"))

	mux.HandleFunc("GET /sessions/{session}/records", MetricsMiddleware(s.recordsHandler.HandleList, "records"))
	mux.HandleFunc("GET /sessions/{session}/records/{student}", MetricsMiddleware(s.recordsHandler.HandleGet, "record"))

	mux.HandleFunc("GET /students/{student}", MetricsMiddleware(s.studentsHandler.HandleRollup, "student"))

	mux.HandleFunc("GET /edit", MetricsMiddleware(s.editHandler.HandleCurrent, "edit"))
	mux.HandleFunc("PUT /edit/value", MetricsMiddleware(s.editHandler.HandleUpdate, "edit_value"))
	mux.HandleFunc("POST /sessions/{session}/records/{student}/edit", MetricsMiddleware(s.editHandler.HandleBegin, "edit_begin"))
	mux.HandleFunc("DELETE /sessions/{session}/records/{student}/edit", MetricsMiddleware(s.editHandler.HandleCancel, "edit_cancel"))
	mux.HandleFunc("POST /sessions/{session}/records/{student}/commit", MetricsMiddleware(s.editHandler.HandleCommit, "edit_commit"))
}

// loadRequest mirrors the body of PUT /sessions/{session}/records.
type loadRequest struct {
	Session model.SessionInfo           `json:"session"`
	Records []model.ParticipationRecord `json:"records"`
}

type valueRequest struct {
	Value *string `json:"value"`
}

type analysisRequest struct {
	JobID string `json:"job_id"`
}

type approveResponse struct {
	Approved int `json:"approved"`
}

type editResponse struct {
	Editing bool       `json:"editing"`
	Slot    *edit.Slot `json:"slot,omitempty"`
}

type recordsResponse struct {
	SessionID string             `json:"session_id"`
	Records   []types.RecordView `json:"records"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a bounded body into v. An empty body leaves v untouched
// when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
