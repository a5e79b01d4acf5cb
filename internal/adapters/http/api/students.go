package api

import (
	"context"
	"net/http"

	"github.com/okian/tally/internal/domain/summary"
)

// StudentDependencies defines the cross-session student operations.
type StudentDependencies interface {
	StudentRollup(ctx context.Context, studentID, courseID string) (summary.StudentRollup, error)
}

// StudentsHandler handles student report requests.
type StudentsHandler struct {
	deps StudentDependencies
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(deps StudentDependencies) *StudentsHandler {
	return &StudentsHandler{deps: deps}
}

// HandleRollup handles GET /students/{student}?course=.
func (h *StudentsHandler) HandleRollup(w http.ResponseWriter, r *http.Request) {
	const op = "api.student_rollup"
	rollup, err := h.deps.StudentRollup(r.Context(), r.PathValue("student"), r.URL.Query().Get("course"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rollup)
}
