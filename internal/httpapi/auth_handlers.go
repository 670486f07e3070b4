package httpapi

import (
	"net/http"
	"strings"
	"time"

	"stellarclub.org/internal/audit"
	"stellarclub.org/internal/membership"
	"stellarclub.org/internal/session"
)

const tokenTTL = 15 * time.Minute

type registerRequest struct {
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	PhoneNumber      string `json:"phone_number,omitempty"`
	Password         string `json:"password"`
	Role             string `json:"role"`
	Gender           string `json:"gender,omitempty"`
	StudentNumber    string `json:"student_number,omitempty"`
	BirthPlace       string `json:"birth_place,omitempty"`
	BirthDate        string `json:"birth_date,omitempty"`
	StudentCardPath  string `json:"student_card_path,omitempty"`
	Specialty        string `json:"specialty,omitempty"`
	AcceptRules      bool   `json:"accept_rules"`
	VerificationCode string `json:"verification_code,omitempty"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	in := membership.RegistrationInput{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Username:         req.Username,
		Email:            req.Email,
		PhoneNumber:      req.PhoneNumber,
		Password:         req.Password,
		Role:             req.Role,
		Gender:           req.Gender,
		StudentNumber:    req.StudentNumber,
		BirthPlace:       req.BirthPlace,
		StudentCardPath:  req.StudentCardPath,
		Specialty:        req.Specialty,
		AcceptedRules:    req.AcceptRules,
		VerificationCode: req.VerificationCode,
	}
	if req.BirthDate != "" {
		t, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "birth_date must be YYYY-MM-DD")
			return
		}
		in.BirthDate = &t
	}

	acct, err := a.members.Register(r.Context(), in)
	if err != nil {
		handleMembershipError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "membership.registered", map[string]any{
		"account_id": acct.ID,
		"role":       string(acct.Role),
		"status":     string(acct.ApprovalStatus),
	})
	writeJSON(w, http.StatusCreated, acct)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Account   *membership.Account `json:"account"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acct, err := a.members.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		// Pending and rejected students carry a distinguishable reason so
		// the client can render the right message.
		switch err {
		case membership.ErrPendingApproval:
			writeError(w, r, http.StatusForbidden, "pending")
		case membership.ErrRejected:
			writeError(w, r, http.StatusForbidden, "rejected")
		default:
			handleMembershipError(w, r, err)
		}
		return
	}

	token, err := session.GenerateToken(acct.ID, acct.Role, tokenTTL)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "session.established", map[string]any{
		"account_id": acct.ID,
		"role":       string(acct.Role),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().UTC().Add(tokenTTL),
		Account:   acct,
	})
}

type issueCodeRequest struct {
	Email string `json:"email"`
}

func (a *API) handleIssueCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req issueCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		writeError(w, r, http.StatusBadRequest, "a valid email is required")
		return
	}

	// Issuance stands even when delivery fails; the error is logged inside
	// the registry. The code itself is never echoed back.
	if _, err := a.codes.Issue(r.Context(), email); err != nil {
		_ = audit.LogEvent(r.Context(), "verify.delivery_failed", map[string]any{"email": email})
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "sent"})
}

type checkCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (a *API) handleCheckCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req checkCodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid": a.codes.Check(req.Email, req.Code),
	})
}
