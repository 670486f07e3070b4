package membership

import "errors"

var (
	ErrInvalidInput       = errors.New("membership: invalid input")
	ErrDuplicateIdentity  = errors.New("membership: username or email already registered")
	ErrInvalidCode        = errors.New("membership: invalid or expired verification code")
	ErrInvalidCredentials = errors.New("membership: invalid credentials")
	ErrPendingApproval    = errors.New("membership: registration pending approval")
	ErrRejected           = errors.New("membership: registration rejected")
	ErrUnauthorized       = errors.New("membership: unauthorized")
	ErrAlreadyDecided     = errors.New("membership: approval already decided")
	ErrNotFound           = errors.New("membership: not found")
)
