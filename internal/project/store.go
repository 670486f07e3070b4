package project

import "context"

// Store describes persistence for projects and their dependent resources.
// Deleting a project cascades to phases, risks, members, files and messages.
type Store interface {
	CreateProject(ctx context.Context, p *Project) error
	FindProject(ctx context.Context, id string) (*Project, error)
	ListProjectsFor(ctx context.Context, accountID string, elevated bool) ([]*Project, error)
	UpdateProjectProgress(ctx context.Context, id string, progress int) error
	DeleteProject(ctx context.Context, id string) error

	CreatePhase(ctx context.Context, ph *Phase) error
	FindPhase(ctx context.Context, id string) (*Phase, error)
	ListPhases(ctx context.Context, projectID string) ([]*Phase, error)
	UpdatePhase(ctx context.Context, ph *Phase) error

	CreateRisk(ctx context.Context, r *Risk) error
	ListRisks(ctx context.Context, projectID string) ([]*Risk, error)

	AddMember(ctx context.Context, m *TeamMember) error
	FindMember(ctx context.Context, id string) (*TeamMember, error)
	ListMembers(ctx context.Context, projectID string) ([]*TeamMember, error)
	RemoveMember(ctx context.Context, id string) error
	UpdateMemberProgress(ctx context.Context, id string, progress int) error
	IsTeamMember(ctx context.Context, projectID, accountID string) (bool, error)

	CreateFile(ctx context.Context, f *File) error
	FindFile(ctx context.Context, id string) (*File, error)
	ListFiles(ctx context.Context, projectID string) ([]*File, error)
	DeleteFile(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, projectID string) ([]*Message, error)
}
