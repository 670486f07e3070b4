package project

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"stellarclub.org/internal/authz"
	"stellarclub.org/internal/ids"
	"stellarclub.org/internal/membership"
)

// allowedFileTypes mirrors the upload allowlist of the club platform.
var allowedFileTypes = map[string]bool{
	".pdf": true, ".xlsx": true, ".xls": true, ".jpg": true, ".jpeg": true,
	".png": true, ".doc": true, ".docx": true, ".txt": true, ".zip": true,
}

// Service exposes project operations; every mutation and read is evaluated
// against the authorization policy before touching storage.
type Service struct {
	store Store
	authz *authz.Evaluator
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService wires the store and the evaluator. The evaluator's membership
// source is the store itself.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	s := &Service{
		store: store,
		authz: authz.NewEvaluator(store),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluator exposes the policy evaluator, e.g. for the HTTP layer's
// student-decision gate.
func (s *Service) Evaluator() *authz.Evaluator {
	return s.authz
}

// CreateProjectInput carries the fields for a new project.
type CreateProjectInput struct {
	Name             string
	Type             string
	MissionObjective string
	SuccessCriteria  string
	StartDate        time.Time
	EndDate          time.Time
}

// CreateProject creates a project managed by the actor, with the default
// phase set.
func (s *Service) CreateProject(ctx context.Context, actor *membership.Account, in CreateProjectInput) (*Project, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	p := &Project{
		ID:               ids.New(),
		Name:             strings.TrimSpace(in.Name),
		Type:             strings.TrimSpace(in.Type),
		MissionObjective: in.MissionObjective,
		SuccessCriteria:  in.SuccessCriteria,
		ManagerID:        actor.ID,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		Status:           "active",
		CreatedAt:        s.now().UTC(),
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	for _, name := range DefaultPhases {
		ph := &Phase{
			ID:         ids.New(),
			ProjectID:  p.ID,
			Name:       name,
			Status:     "not_started",
			Validation: "pending",
		}
		if err := s.store.CreatePhase(ctx, ph); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// GetProject resolves the project first, so an absent resource surfaces as
// ErrNotFound and never as a denial.
func (s *Service) GetProject(ctx context.Context, actor *membership.Account, id string) (*Project, error) {
	p, err := s.store.FindProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, actor, authz.ActionProjectView, resourceOf(p)); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProjects returns every project visible to the actor: all of them for
// elevated roles, managed-or-joined ones for everyone else.
func (s *Service) ListProjects(ctx context.Context, actor *membership.Account) ([]*Project, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	return s.store.ListProjectsFor(ctx, actor.ID, actor.Role.Elevated())
}

// UpdateProgress sets the project-level progress percentage.
func (s *Service) UpdateProgress(ctx context.Context, actor *membership.Account, projectID string, progress int) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: progress must be between 0 and 100", ErrInvalidInput)
	}
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.require(ctx, actor, authz.ActionProjectProgress, resourceOf(p)); err != nil {
		return err
	}
	return s.store.UpdateProjectProgress(ctx, p.ID, progress)
}

// DeleteProject removes the project and everything it owns.
func (s *Service) DeleteProject(ctx context.Context, actor *membership.Account, projectID string) error {
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.require(ctx, actor, authz.ActionProjectDelete, resourceOf(p)); err != nil {
		return err
	}
	return s.store.DeleteProject(ctx, p.ID)
}

// Phases lists a project's phases, gated by view access.
func (s *Service) Phases(ctx context.Context, actor *membership.Account, projectID string) ([]*Phase, error) {
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, actor, authz.ActionProjectView, resourceOf(p)); err != nil {
		return nil, err
	}
	return s.store.ListPhases(ctx, p.ID)
}

// UpdatePhase changes a phase's status and validation; completing a phase
// stamps its completion time.
func (s *Service) UpdatePhase(ctx context.Context, actor *membership.Account, phaseID, status, validation string) error {
	ph, err := s.store.FindPhase(ctx, phaseID)
	if err != nil {
		return err
	}
	p, err := s.store.FindProject(ctx, ph.ProjectID)
	if err != nil {
		return err
	}
	if err := s.require(ctx, actor, authz.ActionProjectEdit, resourceOf(p)); err != nil {
		return err
	}
	ph.Status = strings.TrimSpace(status)
	ph.Validation = strings.TrimSpace(validation)
	if ph.Status == "completed" && ph.CompletedAt == nil {
		now := s.now().UTC()
		ph.CompletedAt = &now
	}
	return s.store.UpdatePhase(ctx, ph)
}

// AddRisk records a project risk.
func (s *Service) AddRisk(ctx context.Context, actor *membership.Account, r *Risk) (*Risk, error) {
	if r == nil || strings.TrimSpace(r.Description) == "" {
		return nil, fmt.Errorf("%w: risk description is required", ErrInvalidInput)
	}
	p, err := s.store.FindProject(ctx, r.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, actor, authz.ActionProjectEdit, resourceOf(p)); err != nil {
		return nil, err
	}
	r.ID = ids.New()
	if r.Status == "" {
		r.Status = "open"
	}
	if err := s.store.CreateRisk(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Risks lists a project's risks, gated by view access.
func (s *Service) Risks(ctx context.Context, actor *membership.Account, projectID string) ([]*Risk, error) {
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, actor, authz.ActionProjectView, resourceOf(p)); err != nil {
		return nil, err
	}
	return s.store.ListRisks(ctx, p.ID)
}

// AddMember binds an account to the project team. Membership management is
// reserved to the manager and elevated roles.
func (s *Service) AddMember(ctx context.Context, actor *membership.Account, projectID, accountID, role, responsibilities string) (*TeamMember, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("%w: account_id is required", ErrInvalidInput)
	}
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, actor, authz.ActionMemberManage, resourceOf(p)); err != nil {
		return nil, err
	}
	m := &TeamMember{
		ID:               ids.New(),
		ProjectID:        p.ID,
		AccountID:        accountID,
		Role:             strings.TrimSpace(role),
		Responsibilities: responsibilities,
		AddedAt:          s.now().UTC(),
	}
	if err := s.store.AddMember(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Members lists the project team, gated by view access.
func (s *Service) Members(ctx context.Context, actor *membership.Account, projectID string) ([]*TeamMember, error) {
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, actor, authz.ActionProjectView, resourceOf(p)); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, p.ID)
}

// RemoveMember detaches a team member from its project.
func (s *Service) RemoveMember(ctx context.Context, actor *membership.Account, memberID string) error {
	m, err := s.store.FindMember(ctx, memberID)
	if err != nil {
		return err
	}
	p, err := s.store.FindProject(ctx, m.ProjectID)
	if err != nil {
		return err
	}
	if err := s.require(ctx, actor, authz.ActionMemberManage, resourceOf(p)); err != nil {
		return err
	}
	return s.store.RemoveMember(ctx, m.ID)
}

// UpdateMemberProgress sets a member's progress to one of the discrete
// checkpoints.
func (s *Service) UpdateMemberProgress(ctx context.Context, actor *membership.Account, memberID string, progress int) error {
	if !ValidCheckpoint(progress) {
		return fmt.Errorf("%w: progress must be one of %v", ErrInvalidInput, ProgressCheckpoints)
	}
	m, err := s.store.FindMember(ctx, memberID)
	if err != nil {
		return err
	}
	p, err := s.store.FindProject(ctx, m.ProjectID)
	if err != nil {
		return err
	}
	if err := s.require(ctx, actor, authz.ActionMemberProgress, resourceOf(p)); err != nil {
		return err
	}
	return s.store.UpdateMemberProgress(ctx, m.ID, progress)
}

// FileInput carries upload metadata recorded for a project file.
type FileInput struct {
	OriginalFilename string
	Path             string
	Description      string
}

// AddFile records an upload. Team membership is enough to upload.
func (s *Service) AddFile(ctx context.Context, actor *membership.Account, projectID string, in FileInput) (*File, error) {
	ext := strings.ToLower(filepath.Ext(in.OriginalFilename))
	if !allowedFileTypes[ext] {
		return nil, fmt.Errorf("%w: file type %q is not allowed", ErrInvalidInput, ext)
	}
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, actor, authz.ActionFileUpload, resourceOf(p)); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	f := &File{
		ID:               ids.New(),
		ProjectID:        p.ID,
		Filename:         now.Format("20060102_150405") + "_" + filepath.Base(in.OriginalFilename),
		OriginalFilename: in.OriginalFilename,
		FileType:         ext,
		Path:             in.Path,
		UploadedBy:       actor.ID,
		UploadedAt:       now,
		Description:      in.Description,
	}
	if err := s.store.CreateFile(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// GetFile returns file metadata, gated by download access on its project.
func (s *Service) GetFile(ctx context.Context, actor *membership.Account, fileID string) (*File, error) {
	f, err := s.store.FindFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	p, err := s.store.FindProject(ctx, f.ProjectID)
	if err != nil {
		return nil, err
	}
	res := resourceOf(p)
	res.UploaderID = f.UploadedBy
	if err := s.require(ctx, actor, authz.ActionFileDownload, res); err != nil {
		return nil, err
	}
	return f, nil
}

// Files lists a project's files, gated by view access.
func (s *Service) Files(ctx context.Context, actor *membership.Account, projectID string) ([]*File, error) {
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, actor, authz.ActionProjectView, resourceOf(p)); err != nil {
		return nil, err
	}
	return s.store.ListFiles(ctx, p.ID)
}

// DeleteFile removes a file record. The uploader keeps delete rights even
// without ownership or an elevated role.
func (s *Service) DeleteFile(ctx context.Context, actor *membership.Account, fileID string) error {
	f, err := s.store.FindFile(ctx, fileID)
	if err != nil {
		return err
	}
	p, err := s.store.FindProject(ctx, f.ProjectID)
	if err != nil {
		return err
	}
	res := resourceOf(p)
	res.UploaderID = f.UploadedBy
	if err := s.require(ctx, actor, authz.ActionFileDelete, res); err != nil {
		return err
	}
	return s.store.DeleteFile(ctx, f.ID)
}

// PostMessage appends to the project discussion.
func (s *Service) PostMessage(ctx context.Context, actor *membership.Account, projectID, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrInvalidInput)
	}
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, actor, authz.ActionMessagePost, resourceOf(p)); err != nil {
		return nil, err
	}
	m := &Message{
		ID:        ids.New(),
		ProjectID: p.ID,
		AccountID: actor.ID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Messages lists the project discussion, gated by view access.
func (s *Service) Messages(ctx context.Context, actor *membership.Account, projectID string) ([]*Message, error) {
	p, err := s.store.FindProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.require(ctx, actor, authz.ActionProjectView, resourceOf(p)); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, p.ID)
}

func (s *Service) require(ctx context.Context, actor *membership.Account, action authz.Action, res authz.Resource) error {
	allowed, err := s.authz.Can(ctx, actor, action, res)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

func resourceOf(p *Project) authz.Resource {
	return authz.Resource{ProjectID: p.ID, ManagerID: p.ManagerID}
}
