package project

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"stellarclub.org/internal/membership"
)

type memStore struct {
	projects map[string]*Project
	phases   map[string]*Phase
	risks    map[string]*Risk
	members  map[string]*TeamMember
	files    map[string]*File
	messages map[string]*Message
}

func newMemStore() *memStore {
	return &memStore{
		projects: make(map[string]*Project),
		phases:   make(map[string]*Phase),
		risks:    make(map[string]*Risk),
		members:  make(map[string]*TeamMember),
		files:    make(map[string]*File),
		messages: make(map[string]*Message),
	}
}

func (s *memStore) CreateProject(_ context.Context, p *Project) error {
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *memStore) FindProject(_ context.Context, id string) (*Project, error) {
	if p, ok := s.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memStore) ListProjectsFor(_ context.Context, accountID string, elevated bool) ([]*Project, error) {
	var res []*Project
	for _, p := range s.projects {
		if elevated || p.ManagerID == accountID || s.isMember(p.ID, accountID) {
			cp := *p
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *memStore) UpdateProjectProgress(_ context.Context, id string, progress int) error {
	p, ok := s.projects[id]
	if !ok {
		return ErrNotFound
	}
	p.OverallProgress = progress
	return nil
}

func (s *memStore) DeleteProject(_ context.Context, id string) error {
	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(s.projects, id)
	for k, ph := range s.phases {
		if ph.ProjectID == id {
			delete(s.phases, k)
		}
	}
	for k, m := range s.members {
		if m.ProjectID == id {
			delete(s.members, k)
		}
	}
	for k, f := range s.files {
		if f.ProjectID == id {
			delete(s.files, k)
		}
	}
	return nil
}

func (s *memStore) CreatePhase(_ context.Context, ph *Phase) error {
	cp := *ph
	s.phases[ph.ID] = &cp
	return nil
}

func (s *memStore) FindPhase(_ context.Context, id string) (*Phase, error) {
	if ph, ok := s.phases[id]; ok {
		cp := *ph
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memStore) ListPhases(_ context.Context, projectID string) ([]*Phase, error) {
	var res []*Phase
	for _, ph := range s.phases {
		if ph.ProjectID == projectID {
			cp := *ph
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *memStore) UpdatePhase(_ context.Context, ph *Phase) error {
	if _, ok := s.phases[ph.ID]; !ok {
		return ErrNotFound
	}
	cp := *ph
	s.phases[ph.ID] = &cp
	return nil
}

func (s *memStore) CreateRisk(_ context.Context, r *Risk) error {
	cp := *r
	s.risks[r.ID] = &cp
	return nil
}

func (s *memStore) ListRisks(_ context.Context, projectID string) ([]*Risk, error) {
	var res []*Risk
	for _, r := range s.risks {
		if r.ProjectID == projectID {
			cp := *r
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *memStore) AddMember(_ context.Context, m *TeamMember) error {
	for _, existing := range s.members {
		if existing.ProjectID == m.ProjectID && existing.AccountID == m.AccountID {
			return ErrDuplicateMember
		}
	}
	cp := *m
	s.members[m.ID] = &cp
	return nil
}

func (s *memStore) FindMember(_ context.Context, id string) (*TeamMember, error) {
	if m, ok := s.members[id]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memStore) ListMembers(_ context.Context, projectID string) ([]*TeamMember, error) {
	var res []*TeamMember
	for _, m := range s.members {
		if m.ProjectID == projectID {
			cp := *m
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *memStore) RemoveMember(_ context.Context, id string) error {
	if _, ok := s.members[id]; !ok {
		return ErrNotFound
	}
	delete(s.members, id)
	return nil
}

func (s *memStore) UpdateMemberProgress(_ context.Context, id string, progress int) error {
	m, ok := s.members[id]
	if !ok {
		return ErrNotFound
	}
	m.Progress = progress
	return nil
}

func (s *memStore) IsTeamMember(_ context.Context, projectID, accountID string) (bool, error) {
	return s.isMember(projectID, accountID), nil
}

func (s *memStore) isMember(projectID, accountID string) bool {
	for _, m := range s.members {
		if m.ProjectID == projectID && m.AccountID == accountID {
			return true
		}
	}
	return false
}

func (s *memStore) CreateFile(_ context.Context, f *File) error {
	cp := *f
	s.files[f.ID] = &cp
	return nil
}

func (s *memStore) FindFile(_ context.Context, id string) (*File, error) {
	if f, ok := s.files[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memStore) ListFiles(_ context.Context, projectID string) ([]*File, error) {
	var res []*File
	for _, f := range s.files {
		if f.ProjectID == projectID {
			cp := *f
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *memStore) DeleteFile(_ context.Context, id string) error {
	if _, ok := s.files[id]; !ok {
		return ErrNotFound
	}
	delete(s.files, id)
	return nil
}

func (s *memStore) CreateMessage(_ context.Context, m *Message) error {
	cp := *m
	s.messages[m.ID] = &cp
	return nil
}

func (s *memStore) ListMessages(_ context.Context, projectID string) ([]*Message, error) {
	var res []*Message
	for _, m := range s.messages {
		if m.ProjectID == projectID {
			cp := *m
			res = append(res, &cp)
		}
	}
	return res, nil
}

func acct(id string, role membership.Role) *membership.Account {
	return &membership.Account{ID: id, Role: role, ApprovalStatus: membership.StatusApproved}
}

func newTestService(t *testing.T, store Store) *Service {
	t.Helper()
	svc, err := NewService(store)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateProjectSeedsDefaultPhases(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	mgr := acct("mgr-1", membership.RoleManager)

	p, err := svc.CreateProject(context.Background(), mgr, CreateProjectInput{Name: "CanSat"})
	if err != nil {
		t.Fatal(err)
	}
	if p.ManagerID != mgr.ID || p.Status != "active" {
		t.Fatalf("unexpected project: %#v", p)
	}
	phases, err := svc.Phases(context.Background(), mgr, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(phases) != len(DefaultPhases) {
		t.Fatalf("expected %d phases, got %d", len(DefaultPhases), len(phases))
	}
}

func TestGetProjectNotFoundBeforeDenied(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)

	// absent project: 404 semantics, even for an actor with no access
	if _, err := svc.GetProject(context.Background(), acct("stu-1", membership.RoleStudent), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	mgr := acct("mgr-1", membership.RoleManager)
	p, err := svc.CreateProject(context.Background(), mgr, CreateProjectInput{Name: "CanSat"})
	if err != nil {
		t.Fatal(err)
	}

	// existing project without a relationship: denial, not 404
	if _, err := svc.GetProject(context.Background(), acct("stu-1", membership.RoleStudent), p.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestListProjectsVisibility(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	mgr1 := acct("mgr-1", membership.RoleManager)
	mgr2 := acct("mgr-2", membership.RoleManager)
	p1, _ := svc.CreateProject(ctx, mgr1, CreateProjectInput{Name: "CanSat"})
	_, _ = svc.CreateProject(ctx, mgr2, CreateProjectInput{Name: "Rover"})

	mine, err := svc.ListProjects(ctx, mgr1)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].ID != p1.ID {
		t.Fatalf("manager should only see its own projects: %#v", mine)
	}

	all, err := svc.ListProjects(ctx, acct("adm-1", membership.RoleAdmin))
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("admin should see every project, got %d", len(all))
	}
}

func TestDeleteProjectByOwnerAndStranger(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	mgr := acct("mgr-1", membership.RoleManager)
	p, _ := svc.CreateProject(ctx, mgr, CreateProjectInput{Name: "CanSat"})

	if err := svc.DeleteProject(ctx, acct("mgr-2", membership.RoleManager), p.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.DeleteProject(ctx, mgr, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.FindProject(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatal("project should be gone")
	}
}

func TestUpdateProgressBounds(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	mgr := acct("mgr-1", membership.RoleManager)
	p, _ := svc.CreateProject(ctx, mgr, CreateProjectInput{Name: "CanSat"})

	if err := svc.UpdateProgress(ctx, mgr, p.ID, 101); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := svc.UpdateProgress(ctx, mgr, p.ID, 60); err != nil {
		t.Fatal(err)
	}
	got, _ := store.FindProject(ctx, p.ID)
	if got.OverallProgress != 60 {
		t.Fatalf("progress not stored: %d", got.OverallProgress)
	}
}

func TestUpdatePhaseCompletionStampsTime(t *testing.T) {
	store := newMemStore()
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	svc, err := NewService(store, WithClock(func() time.Time { return base }))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	mgr := acct("mgr-1", membership.RoleManager)
	p, _ := svc.CreateProject(ctx, mgr, CreateProjectInput{Name: "CanSat"})
	phases, _ := svc.Phases(ctx, mgr, p.ID)

	if err := svc.UpdatePhase(ctx, mgr, phases[0].ID, "completed", "validated"); err != nil {
		t.Fatal(err)
	}
	got, _ := store.FindPhase(ctx, phases[0].ID)
	if got.CompletedAt == nil || !got.CompletedAt.Equal(base) {
		t.Fatalf("completion time not stamped: %#v", got.CompletedAt)
	}
}

func TestMemberManagementAndCheckpoints(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	mgr := acct("mgr-1", membership.RoleManager)
	p, _ := svc.CreateProject(ctx, mgr, CreateProjectInput{Name: "CanSat"})

	m, err := svc.AddMember(ctx, mgr, p.ID, "stu-1", "avionics", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddMember(ctx, mgr, p.ID, "stu-1", "avionics", ""); !errors.Is(err, ErrDuplicateMember) {
		t.Fatalf("expected ErrDuplicateMember, got %v", err)
	}

	if err := svc.UpdateMemberProgress(ctx, mgr, m.ID, 30); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected checkpoint rejection, got %v", err)
	}
	if err := svc.UpdateMemberProgress(ctx, mgr, m.ID, 75); err != nil {
		t.Fatal(err)
	}

	member := acct("stu-1", membership.RoleStudent)
	if _, err := svc.AddMember(ctx, member, p.ID, "stu-2", "", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("members must not manage the team, got %v", err)
	}

	if err := svc.RemoveMember(ctx, mgr, m.ID); err != nil {
		t.Fatal(err)
	}
}

func TestFileLifecycle(t *testing.T) {
	store := newMemStore()
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	svc, err := NewService(store, WithClock(func() time.Time { return base }))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	mgr := acct("mgr-1", membership.RoleManager)
	p, _ := svc.CreateProject(ctx, mgr, CreateProjectInput{Name: "CanSat"})
	uploader := acct("stu-1", membership.RoleStudent)
	if _, err := svc.AddMember(ctx, mgr, p.ID, uploader.ID, "avionics", ""); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.AddFile(ctx, uploader, p.ID, FileInput{OriginalFilename: "payload.exe"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected extension rejection, got %v", err)
	}

	f, err := svc.AddFile(ctx, uploader, p.ID, FileInput{OriginalFilename: "telemetry.xlsx"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(f.Filename, base.Format("20060102_150405")+"_") {
		t.Fatalf("stored filename not timestamped: %s", f.Filename)
	}

	// a second member may download but not delete someone else's file
	other := acct("stu-2", membership.RoleStudent)
	if _, err := svc.AddMember(ctx, mgr, p.ID, other.ID, "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetFile(ctx, other, f.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteFile(ctx, other, f.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.DeleteFile(ctx, uploader, f.ID); err != nil {
		t.Fatal(err)
	}
}

func TestPostMessageRequiresMembership(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	mgr := acct("mgr-1", membership.RoleManager)
	p, _ := svc.CreateProject(ctx, mgr, CreateProjectInput{Name: "CanSat"})

	if _, err := svc.PostMessage(ctx, acct("stu-9", membership.RoleStudent), p.ID, "hello"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.PostMessage(ctx, mgr, p.ID, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.PostMessage(ctx, mgr, p.ID, "kickoff at noon"); err != nil {
		t.Fatal(err)
	}
	msgs, err := svc.Messages(ctx, mgr, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Content != "kickoff at noon" {
		t.Fatalf("unexpected messages: %#v", msgs)
	}
}
