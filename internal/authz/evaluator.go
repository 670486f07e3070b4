package authz

import (
	"context"

	"stellarclub.org/internal/membership"
)

// Resource identifies what an action is evaluated against: the enclosing
// project, its manager, and (for file resources) the uploading actor.
type Resource struct {
	ProjectID  string
	ManagerID  string
	UploaderID string
}

// MembershipSource answers whether an account holds a team-member
// relationship on a project. Kept narrow so the evaluator itself stays a
// deterministic table lookup.
type MembershipSource interface {
	IsTeamMember(ctx context.Context, projectID, accountID string) (bool, error)
}

// Evaluator applies the policy table and relationship predicates.
type Evaluator struct {
	members MembershipSource
}

func NewEvaluator(members MembershipSource) *Evaluator {
	return &Evaluator{members: members}
}

// Can reports whether actor may perform action on res. Predicates are
// evaluated as an OR: elevated role grant, ownership, the uploader
// exception, then team membership. The caller is responsible for resolving
// the resource first, so "not found" and "denied" stay distinct outcomes.
func (e *Evaluator) Can(ctx context.Context, actor *membership.Account, action Action, res Resource) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if roleGrants[actor.Role][action] {
		return true, nil
	}
	if res.ManagerID != "" && actor.ID == res.ManagerID && ownerActions[action] {
		return true, nil
	}
	if res.UploaderID != "" && actor.ID == res.UploaderID && uploaderActions[action] {
		return true, nil
	}
	if memberActions[action] && res.ProjectID != "" && e.members != nil {
		isMember, err := e.members.IsTeamMember(ctx, res.ProjectID, actor.ID)
		if err != nil {
			return false, err
		}
		if isMember {
			return true, nil
		}
	}
	return false, nil
}
