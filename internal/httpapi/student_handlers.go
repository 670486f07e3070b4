package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"stellarclub.org/internal/audit"
	"stellarclub.org/internal/membership"
)

// handleStudents serves GET /v1/students?status=pending|approved|rejected.
// The pending and rejected queues are review material and stay behind the
// elevated roles; the approved roster is visible to any signed-in account.
func (a *API) handleStudents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}

	status := membership.ApprovalStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	if status == "" {
		status = membership.StatusPending
	}
	if status != membership.StatusApproved && !actor.Role.Elevated() {
		writeError(w, r, http.StatusForbidden, "elevated role required")
		return
	}

	students, err := a.members.Students(r.Context(), status)
	if err != nil {
		handleMembershipError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   string(status),
		"students": students,
	})
}

// handleStudentResource routes /v1/students/{id}/approve and
// /v1/students/{id}/reject.
func (a *API) handleStudentResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/students/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	var outcome membership.ApprovalStatus
	switch parts[1] {
	case "approve":
		outcome = membership.StatusApproved
	case "reject":
		outcome = membership.StatusRejected
	default:
		http.NotFound(w, r)
		return
	}

	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}

	studentID := parts[0]
	err := a.members.Decide(r.Context(), studentID, actor, outcome)
	if errors.Is(err, membership.ErrAlreadyDecided) {
		// The first decision won; repeating it is not an error.
		writeJSON(w, http.StatusOK, map[string]any{
			"student_id": studentID,
			"status":     "already_decided",
		})
		return
	}
	if err != nil {
		handleMembershipError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "membership.decided", map[string]any{
		"student_id": studentID,
		"outcome":    string(outcome),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"student_id": studentID,
		"status":     string(outcome),
	})
}
