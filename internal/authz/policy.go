// Package authz decides, per request, whether an actor may perform an
// action against a resource. Decisions are pure lookups over an explicit
// policy table plus ownership/membership predicates; nothing is cached, so
// role and membership changes take effect immediately.
package authz

import "stellarclub.org/internal/membership"

// Action is the closed set of protected operations.
type Action string

const (
	ActionProjectView     Action = "project.view"
	ActionProjectEdit     Action = "project.edit"
	ActionProjectDelete   Action = "project.delete"
	ActionProjectProgress Action = "project.progress"
	ActionMemberManage    Action = "member.manage"
	ActionMemberProgress  Action = "member.progress"
	ActionFileUpload      Action = "file.upload"
	ActionFileDownload    Action = "file.download"
	ActionFileDelete      Action = "file.delete"
	ActionMessagePost     Action = "message.post"
	ActionStudentDecide   Action = "student.decide"
)

// allActions enumerates every protected action once, so the tables below
// stay in sync with the Action set.
var allActions = []Action{
	ActionProjectView, ActionProjectEdit, ActionProjectDelete, ActionProjectProgress,
	ActionMemberManage, ActionMemberProgress,
	ActionFileUpload, ActionFileDownload, ActionFileDelete,
	ActionMessagePost, ActionStudentDecide,
}

// roleGrants is the role×action matrix granted independent of any resource
// relationship. Elevated roles bypass ownership and membership entirely;
// every other role is decided by the relationship tables.
var roleGrants = map[membership.Role]map[Action]bool{
	membership.RoleAdmin:      grantAll(),
	membership.RoleInstructor: grantAll(),
}

// ownerActions are granted to the project manager.
var ownerActions = map[Action]bool{
	ActionProjectView:     true,
	ActionProjectEdit:     true,
	ActionProjectDelete:   true,
	ActionProjectProgress: true,
	ActionMemberManage:    true,
	ActionMemberProgress:  true,
	ActionFileUpload:      true,
	ActionFileDownload:    true,
	ActionFileDelete:      true,
	ActionMessagePost:     true,
}

// memberActions are granted to team members of the resource's project.
// Membership alone never allows managing the team or deleting anything.
var memberActions = map[Action]bool{
	ActionProjectView:  true,
	ActionFileUpload:   true,
	ActionFileDownload: true,
	ActionMessagePost:  true,
}

// uploaderActions layer the resource-author exception on top of the base
// rules: the uploading actor keeps delete rights over its own file.
var uploaderActions = map[Action]bool{
	ActionFileDelete: true,
}

func grantAll() map[Action]bool {
	m := make(map[Action]bool, len(allActions))
	for _, a := range allActions {
		m[a] = true
	}
	return m
}
