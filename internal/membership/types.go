package membership

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleManager    Role = "manager"
	RoleMember     Role = "member"
	RoleStudent    Role = "student"
)

// ParseRole normalizes and validates a role label.
func ParseRole(s string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(s)))
	switch role {
	case RoleAdmin, RoleInstructor, RoleManager, RoleMember, RoleStudent:
		return role, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// Elevated reports whether the role bypasses ownership and membership checks.
func (r Role) Elevated() bool {
	return r == RoleAdmin || r == RoleInstructor
}

// ApprovalStatus tracks the student approval state machine.
type ApprovalStatus string

const (
	StatusApproved ApprovalStatus = "approved"
	StatusPending  ApprovalStatus = "pending"
	StatusRejected ApprovalStatus = "rejected"
)

// Account is an identity record. Approval fields are meaningful only for
// the student role; every other role is created already approved.
type Account struct {
	ID               string          `json:"id"`
	FirstName        string          `json:"first_name,omitempty"`
	LastName         string          `json:"last_name,omitempty"`
	Username         string          `json:"username"`
	Email            string          `json:"email"`
	PhoneNumber      string          `json:"phone_number,omitempty"`
	PasswordHash     string          `json:"-"`
	Role             Role            `json:"role"`
	Gender           string          `json:"gender,omitempty"`
	StudentNumber    string          `json:"student_number,omitempty"`
	BirthPlace       string          `json:"birth_place,omitempty"`
	BirthDate        *time.Time      `json:"birth_date,omitempty"`
	StudentCardPath  string          `json:"student_card_path,omitempty"`
	Specialty        string          `json:"specialty,omitempty"`
	ProfileImagePath string          `json:"profile_image_path,omitempty"`
	ApprovalStatus   ApprovalStatus  `json:"approval_status"`
	DecidedBy        *string         `json:"decided_by,omitempty"`
	DecidedAt        *time.Time      `json:"decided_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// FullName is used when composing notifications.
func (a *Account) FullName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.Username
	}
	return name
}

// RegistrationInput carries the fields submitted at registration time.
type RegistrationInput struct {
	FirstName        string
	LastName         string
	Username         string
	Email            string
	PhoneNumber      string
	Password         string
	Role             string
	Gender           string
	StudentNumber    string
	BirthPlace       string
	BirthDate        *time.Time
	StudentCardPath  string
	Specialty        string
	AcceptedRules    bool
	VerificationCode string
}
