package project

import "errors"

var (
	ErrInvalidInput    = errors.New("project: invalid input")
	ErrNotFound        = errors.New("project: not found")
	ErrForbidden       = errors.New("project: forbidden")
	ErrDuplicateMember = errors.New("project: account is already a team member")
)
