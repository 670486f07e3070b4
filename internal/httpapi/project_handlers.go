package httpapi

import (
	"net/http"
	"strings"
	"time"

	"stellarclub.org/internal/audit"
	"stellarclub.org/internal/membership"
	"stellarclub.org/internal/project"
)

type createProjectRequest struct {
	Name             string `json:"name"`
	Type             string `json:"type,omitempty"`
	MissionObjective string `json:"mission_objective,omitempty"`
	SuccessCriteria  string `json:"success_criteria,omitempty"`
	StartDate        string `json:"start_date,omitempty"`
	EndDate          string `json:"end_date,omitempty"`
}

func (a *API) handleProjectsCollection(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		list, err := a.projects.ListProjects(r.Context(), actor)
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": list})

	case http.MethodPost:
		var req createProjectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		in := project.CreateProjectInput{
			Name:             req.Name,
			Type:             req.Type,
			MissionObjective: req.MissionObjective,
			SuccessCriteria:  req.SuccessCriteria,
		}
		var err error
		if in.StartDate, err = parseDate(req.StartDate); err != nil {
			writeError(w, r, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
			return
		}
		if in.EndDate, err = parseDate(req.EndDate); err != nil {
			writeError(w, r, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
			return
		}
		p, err := a.projects.CreateProject(r.Context(), actor, in)
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "project.created", map[string]any{
			"project_id": p.ID,
		})
		writeJSON(w, http.StatusCreated, p)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleProjectResource routes /v1/projects/{id} and its sub-resources:
// progress, phases, risks, members, files, messages.
func (a *API) handleProjectResource(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/projects/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	projectID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			p, err := a.projects.GetProject(r.Context(), actor, projectID)
			if err != nil {
				handleProjectError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, p)
		case http.MethodDelete:
			if err := a.projects.DeleteProject(r.Context(), actor, projectID); err != nil {
				handleProjectError(w, r, err)
				return
			}
			_ = audit.LogEvent(r.Context(), "project.deleted", map[string]any{
				"project_id": projectID,
			})
			writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
		return
	}

	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}

	switch parts[1] {
	case "progress":
		a.handleProjectProgress(w, r, actor, projectID)
	case "phases":
		a.requireGet(w, r, func() (any, error) {
			list, err := a.projects.Phases(r.Context(), actor, projectID)
			return map[string]any{"phases": list}, err
		})
	case "risks":
		a.handleProjectRisks(w, r, actor, projectID)
	case "members":
		a.handleProjectMembers(w, r, actor, projectID)
	case "files":
		a.handleProjectFiles(w, r, actor, projectID)
	case "messages":
		a.handleProjectMessages(w, r, actor, projectID)
	default:
		http.NotFound(w, r)
	}
}

func (a *API) handleProjectProgress(w http.ResponseWriter, r *http.Request, actor *membership.Account, projectID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req struct {
		Progress int `json:"progress"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.projects.UpdateProgress(r.Context(), actor, projectID, req.Progress); err != nil {
		handleProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project_id": projectID,
		"progress":   req.Progress,
	})
}

func (a *API) handleProjectRisks(w http.ResponseWriter, r *http.Request, actor *membership.Account, projectID string) {
	switch r.Method {
	case http.MethodGet:
		list, err := a.projects.Risks(r.Context(), actor, projectID)
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"risks": list})
	case http.MethodPost:
		var req struct {
			Description string `json:"description"`
			Probability string `json:"probability,omitempty"`
			Severity    string `json:"severity,omitempty"`
			Mitigation  string `json:"mitigation,omitempty"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		risk := &project.Risk{
			ProjectID:   projectID,
			Description: req.Description,
			Probability: req.Probability,
			Severity:    req.Severity,
			Mitigation:  req.Mitigation,
		}
		created, err := a.projects.AddRisk(r.Context(), actor, risk)
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProjectMembers(w http.ResponseWriter, r *http.Request, actor *membership.Account, projectID string) {
	switch r.Method {
	case http.MethodGet:
		list, err := a.projects.Members(r.Context(), actor, projectID)
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"members": list})
	case http.MethodPost:
		var req struct {
			AccountID        string `json:"account_id"`
			Role             string `json:"role,omitempty"`
			Responsibilities string `json:"responsibilities,omitempty"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		m, err := a.projects.AddMember(r.Context(), actor, projectID, req.AccountID, req.Role, req.Responsibilities)
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProjectFiles(w http.ResponseWriter, r *http.Request, actor *membership.Account, projectID string) {
	switch r.Method {
	case http.MethodGet:
		list, err := a.projects.Files(r.Context(), actor, projectID)
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": list})
	case http.MethodPost:
		var req struct {
			OriginalFilename string `json:"original_filename"`
			Path             string `json:"path,omitempty"`
			Description      string `json:"description,omitempty"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		f, err := a.projects.AddFile(r.Context(), actor, projectID, project.FileInput{
			OriginalFilename: req.OriginalFilename,
			Path:             req.Path,
			Description:      req.Description,
		})
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, f)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleProjectMessages(w http.ResponseWriter, r *http.Request, actor *membership.Account, projectID string) {
	switch r.Method {
	case http.MethodGet:
		list, err := a.projects.Messages(r.Context(), actor, projectID)
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"messages": list})
	case http.MethodPost:
		var req struct {
			Content string `json:"content"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		m, err := a.projects.PostMessage(r.Context(), actor, projectID, req.Content)
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleMemberResource routes /v1/members/{id} (DELETE) and
// /v1/members/{id}/progress (POST).
func (a *API) handleMemberResource(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/members/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	memberID := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w, r, http.MethodDelete)
			return
		}
		if err := a.projects.RemoveMember(r.Context(), actor, memberID); err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "removed"})

	case len(parts) == 2 && parts[1] == "progress":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		var req struct {
			Progress int `json:"progress"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if err := a.projects.UpdateMemberProgress(r.Context(), actor, memberID, req.Progress); err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"member_id": memberID,
			"progress":  req.Progress,
		})

	default:
		http.NotFound(w, r)
	}
}

// handleFileResource routes /v1/files/{id}: GET returns metadata, DELETE
// removes the record.
func (a *API) handleFileResource(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}

	fileID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/files/"), "/")
	if fileID == "" || strings.Contains(fileID, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		f, err := a.projects.GetFile(r.Context(), actor, fileID)
		if err != nil {
			handleProjectError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	case http.MethodDelete:
		if err := a.projects.DeleteFile(r.Context(), actor, fileID); err != nil {
			handleProjectError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "file.deleted", map[string]any{
			"file_id": fileID,
		})
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

// handlePhaseResource routes POST /v1/phases/{id} to update status and
// validation.
func (a *API) handlePhaseResource(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actor(w, r)
	if !ok {
		return
	}

	phaseID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/phases/"), "/")
	if phaseID == "" || strings.Contains(phaseID, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req struct {
		Status     string `json:"status"`
		Validation string `json:"validation,omitempty"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.projects.UpdatePhase(r.Context(), actor, phaseID, req.Status, req.Validation); err != nil {
		handleProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"phase_id": phaseID,
		"status":   req.Status,
	})
}

func (a *API) requireGet(w http.ResponseWriter, r *http.Request, fn func() (any, error)) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	v, err := fn()
	if err != nil {
		handleProjectError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
