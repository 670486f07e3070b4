package httpapi

import (
	"context"

	"stellarclub.org/internal/project"
)

// fakeProjectStore is an empty project.Store: reads return nothing and
// writes succeed. Handler tests that exercise project semantics in depth
// live in the project package; here the store only needs to satisfy routing.
type fakeProjectStore struct{}

func (fakeProjectStore) CreateProject(context.Context, *project.Project) error { return nil }
func (fakeProjectStore) FindProject(context.Context, string) (*project.Project, error) {
	return nil, project.ErrNotFound
}
func (fakeProjectStore) ListProjectsFor(context.Context, string, bool) ([]*project.Project, error) {
	return nil, nil
}
func (fakeProjectStore) UpdateProjectProgress(context.Context, string, int) error {
	return project.ErrNotFound
}
func (fakeProjectStore) DeleteProject(context.Context, string) error { return project.ErrNotFound }

func (fakeProjectStore) CreatePhase(context.Context, *project.Phase) error { return nil }
func (fakeProjectStore) FindPhase(context.Context, string) (*project.Phase, error) {
	return nil, project.ErrNotFound
}
func (fakeProjectStore) ListPhases(context.Context, string) ([]*project.Phase, error) {
	return nil, nil
}
func (fakeProjectStore) UpdatePhase(context.Context, *project.Phase) error { return project.ErrNotFound }

func (fakeProjectStore) CreateRisk(context.Context, *project.Risk) error { return nil }
func (fakeProjectStore) ListRisks(context.Context, string) ([]*project.Risk, error) {
	return nil, nil
}

func (fakeProjectStore) AddMember(context.Context, *project.TeamMember) error { return nil }
func (fakeProjectStore) FindMember(context.Context, string) (*project.TeamMember, error) {
	return nil, project.ErrNotFound
}
func (fakeProjectStore) ListMembers(context.Context, string) ([]*project.TeamMember, error) {
	return nil, nil
}
func (fakeProjectStore) RemoveMember(context.Context, string) error { return project.ErrNotFound }
func (fakeProjectStore) UpdateMemberProgress(context.Context, string, int) error {
	return project.ErrNotFound
}
func (fakeProjectStore) IsTeamMember(context.Context, string, string) (bool, error) {
	return false, nil
}

func (fakeProjectStore) CreateFile(context.Context, *project.File) error { return nil }
func (fakeProjectStore) FindFile(context.Context, string) (*project.File, error) {
	return nil, project.ErrNotFound
}
func (fakeProjectStore) ListFiles(context.Context, string) ([]*project.File, error) {
	return nil, nil
}
func (fakeProjectStore) DeleteFile(context.Context, string) error { return project.ErrNotFound }

func (fakeProjectStore) CreateMessage(context.Context, *project.Message) error { return nil }
func (fakeProjectStore) ListMessages(context.Context, string) ([]*project.Message, error) {
	return nil, nil
}
