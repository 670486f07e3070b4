package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stellarclub.org/internal/membership"
	"stellarclub.org/internal/project"
	"stellarclub.org/internal/session"
	"stellarclub.org/internal/verify"
)

// fakeMemberStore is a minimal in-memory membership.Store for handler tests.
type fakeMemberStore struct {
	accounts map[string]*membership.Account
}

func newFakeMemberStore() *fakeMemberStore {
	return &fakeMemberStore{accounts: make(map[string]*membership.Account)}
}

func (s *fakeMemberStore) Create(_ context.Context, a *membership.Account) error {
	for _, existing := range s.accounts {
		if existing.Username == a.Username || existing.Email == a.Email {
			return membership.ErrDuplicateIdentity
		}
	}
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *fakeMemberStore) Find(_ context.Context, id string) (*membership.Account, error) {
	if a, ok := s.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, membership.ErrNotFound
}

func (s *fakeMemberStore) FindByUsername(_ context.Context, username string) (*membership.Account, error) {
	for _, a := range s.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, membership.ErrNotFound
}

func (s *fakeMemberStore) FindByEmail(_ context.Context, email string) (*membership.Account, error) {
	for _, a := range s.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, membership.ErrNotFound
}

func (s *fakeMemberStore) ListStudents(_ context.Context, status membership.ApprovalStatus) ([]*membership.Account, error) {
	var res []*membership.Account
	for _, a := range s.accounts {
		if a.Role == membership.RoleStudent && a.ApprovalStatus == status {
			cp := *a
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *fakeMemberStore) ListByRoles(_ context.Context, roles ...membership.Role) ([]*membership.Account, error) {
	var res []*membership.Account
	for _, a := range s.accounts {
		for _, r := range roles {
			if a.Role == r {
				cp := *a
				res = append(res, &cp)
				break
			}
		}
	}
	return res, nil
}

func (s *fakeMemberStore) Decide(_ context.Context, accountID, deciderID string, status membership.ApprovalStatus, at time.Time) (bool, error) {
	a, ok := s.accounts[accountID]
	if !ok || a.Role != membership.RoleStudent || a.ApprovalStatus != membership.StatusPending {
		return false, nil
	}
	a.ApprovalStatus = status
	a.DecidedBy = &deciderID
	a.DecidedAt = &at
	return true, nil
}

type testEnv struct {
	api     *API
	handler http.Handler
	store   *fakeMemberStore
	codes   *verify.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("STELLAR_SESSION_SECRET", "httpapi-test-secret")
	session.ResetSecretForTests()
	t.Cleanup(session.ResetSecretForTests)

	store := newFakeMemberStore()
	codes := verify.NewRegistry()
	members, err := membership.NewService(store, codes)
	if err != nil {
		t.Fatalf("membership.NewService: %v", err)
	}
	projects, err := project.NewService(fakeProjectStore{})
	if err != nil {
		t.Fatalf("project.NewService: %v", err)
	}
	api := New(ReadyProbe{}, "test", members, projects, codes)
	return &testEnv{api: api, handler: api.Handler(), store: store, codes: codes}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:51234"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedAccount(role membership.Role, status membership.ApprovalStatus, username string) *membership.Account {
	hash, _ := membership.HashPassword("pw-123456")
	a := &membership.Account{
		ID:             "acct-" + username,
		Username:       username,
		Email:          username + "@example.org",
		PasswordHash:   hash,
		Role:           role,
		ApprovalStatus: status,
		CreatedAt:      time.Now().UTC(),
	}
	e.store.accounts[a.ID] = a
	return a
}

func (e *testEnv) tokenFor(t *testing.T, a *membership.Account) string {
	t.Helper()
	token, err := session.GenerateToken(a.ID, a.Role, 10*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/projects", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRegisterAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/register", "", map[string]any{
		"username":     "lead",
		"email":        "lead@example.org",
		"password":     "pw-123456",
		"role":         "manager",
		"accept_rules": true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"username": "lead",
		"password": "pw-123456",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	rec = env.do(t, http.MethodGet, "/v1/projects", resp.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("projects with token: expected 200, got %d", rec.Code)
	}
}

func TestLoginPendingStudentDistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.seedAccount(membership.RoleStudent, membership.StatusPending, "ada")

	rec := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"username": "ada",
		"password": "pw-123456",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != "pending" {
		t.Fatalf("expected distinguishable pending reason, got %q", resp.Error)
	}
}

func TestDecisionEndpointAndReplay(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedAccount(membership.RoleAdmin, membership.StatusApproved, "root")
	student := env.seedAccount(membership.RoleStudent, membership.StatusPending, "ada")
	token := env.tokenFor(t, admin)

	rec := env.do(t, http.MethodPost, "/v1/students/"+student.ID+"/approve", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// a second decision is reported, not applied
	rec = env.do(t, http.MethodPost, "/v1/students/"+student.ID+"/reject", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", rec.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "already_decided" {
		t.Fatalf("expected already_decided, got %q", resp.Status)
	}
	if env.store.accounts[student.ID].ApprovalStatus != membership.StatusApproved {
		t.Fatal("first decision was overwritten")
	}
}

func TestDecisionForbiddenForManager(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.seedAccount(membership.RoleManager, membership.StatusApproved, "lead")
	student := env.seedAccount(membership.RoleStudent, membership.StatusPending, "ada")

	rec := env.do(t, http.MethodPost, "/v1/students/"+student.ID+"/approve", env.tokenFor(t, mgr), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestPendingQueueRequiresElevatedRole(t *testing.T) {
	env := newTestEnv(t)
	mgr := env.seedAccount(membership.RoleManager, membership.StatusApproved, "lead")
	admin := env.seedAccount(membership.RoleAdmin, membership.StatusApproved, "root")
	env.seedAccount(membership.RoleStudent, membership.StatusPending, "ada")

	rec := env.do(t, http.MethodGet, "/v1/students?status=pending", env.tokenFor(t, mgr), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("manager on pending queue: expected 403, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/v1/students?status=pending", env.tokenFor(t, admin), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin on pending queue: expected 200, got %d", rec.Code)
	}
	var resp struct {
		Students []json.RawMessage `json:"students"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Students) != 1 {
		t.Fatalf("expected 1 pending student, got %d", len(resp.Students))
	}
}

func TestMidSessionGateOnDecidedStudent(t *testing.T) {
	env := newTestEnv(t)
	student := env.seedAccount(membership.RoleStudent, membership.StatusApproved, "ada")
	token := env.tokenFor(t, student)

	rec := env.do(t, http.MethodGet, "/v1/projects", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approved student: expected 200, got %d", rec.Code)
	}

	// rejection takes effect on the next request despite the live token
	env.store.accounts[student.ID].ApprovalStatus = membership.StatusRejected
	rec = env.do(t, http.MethodGet, "/v1/projects", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("rejected student: expected 403, got %d", rec.Code)
	}
}

func TestVerificationCodeEndpointsNeverEchoCode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/auth/verification-code", "", map[string]any{
		"email": "prof@univ-example.org",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if _, leaked := resp["code"]; leaked {
		t.Fatal("the verification code must not be echoed")
	}

	rec = env.do(t, http.MethodPost, "/v1/auth/verification-code/check", "", map[string]any{
		"email": "prof@univ-example.org",
		"code":  "000000",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("check: expected 200, got %d", rec.Code)
	}
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"username": "lead",
		"password": "pw",
		"extra":    true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMethodNotAllowedOnAuthRoutes(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/auth/register", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("unexpected Allow header: %q", allow)
	}
}
