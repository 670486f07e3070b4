package membership

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stellarclub.org/internal/ids"
	"stellarclub.org/internal/notify"
	"stellarclub.org/internal/obs"
)

// institutionalMarkers gate instructor self-registration: the contact
// address must carry one of these before a verification code is even
// considered.
var institutionalMarkers = []string{"univ", "edu", "ac."}

// CodeGate is the slice of the verification registry consumed at
// registration time.
type CodeGate interface {
	Check(key, code string) bool
	Drop(key string)
}

// Service drives registration, authentication gating and the student
// approval state machine.
type Service struct {
	store    Store
	codes    CodeGate
	notifier notify.Notifier
	now      func() time.Time
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

// WithNotifier overrides the default log-based notifier.
func WithNotifier(n notify.Notifier) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// NewService constructs the membership service. The code gate may be nil
// when instructor self-registration is disabled.
func NewService(store Store, codes CodeGate, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidInput)
	}
	svc := &Service{
		store:    store,
		codes:    codes,
		notifier: notify.LogNotifier{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register validates input, applies the verification-code gate for
// instructor registrations, and creates the account in its initial
// approval state: pending for students, approved for everyone else.
func (s *Service) Register(ctx context.Context, in RegistrationInput) (*Account, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(strings.ToLower(in.Email))

	role, err := ParseRole(in.Role)
	if err != nil {
		obs.ObserveRegistration(strings.ToLower(in.Role), "invalid")
		return nil, err
	}
	if username == "" || email == "" || !strings.Contains(email, "@") {
		obs.ObserveRegistration(string(role), "invalid")
		return nil, fmt.Errorf("%w: username and a valid email are required", ErrInvalidInput)
	}
	if in.Password == "" {
		obs.ObserveRegistration(string(role), "invalid")
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if !in.AcceptedRules {
		obs.ObserveRegistration(string(role), "invalid")
		return nil, fmt.Errorf("%w: club rules must be accepted", ErrInvalidInput)
	}

	if role == RoleInstructor {
		if !hasInstitutionalMarker(email) {
			obs.ObserveRegistration(string(role), "invalid")
			return nil, fmt.Errorf("%w: an institutional email address is required", ErrInvalidInput)
		}
		if err := s.gateInstructorCode(email, in.VerificationCode); err != nil {
			obs.ObserveRegistration(string(role), "code_rejected")
			return nil, err
		}
	}

	if role == RoleStudent {
		if err := validateStudentFields(in); err != nil {
			obs.ObserveRegistration(string(role), "invalid")
			return nil, err
		}
	}

	if err := s.checkDuplicates(ctx, username, email); err != nil {
		obs.ObserveRegistration(string(role), "duplicate")
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	status := StatusApproved
	if role == RoleStudent {
		status = StatusPending
	}

	acct := &Account{
		ID:             ids.New(),
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		Username:       username,
		Email:          email,
		PhoneNumber:    strings.TrimSpace(in.PhoneNumber),
		PasswordHash:   hash,
		Role:           role,
		ApprovalStatus: status,
		CreatedAt:      s.now().UTC(),
	}
	if role == RoleStudent {
		acct.Gender = strings.TrimSpace(in.Gender)
		acct.StudentNumber = strings.TrimSpace(in.StudentNumber)
		acct.BirthPlace = strings.TrimSpace(in.BirthPlace)
		acct.BirthDate = in.BirthDate
		acct.StudentCardPath = in.StudentCardPath
		acct.Specialty = strings.TrimSpace(in.Specialty)
	}

	if err := s.store.Create(ctx, acct); err != nil {
		if err == ErrDuplicateIdentity {
			obs.ObserveRegistration(string(role), "duplicate")
		}
		return nil, err
	}
	obs.ObserveRegistration(string(role), "ok")

	s.dispatch(ctx, notify.ConfirmationMessage(acct.Email, acct.FullName(), status == StatusPending))
	if status == StatusPending {
		s.notifyReviewers(ctx, acct)
	}
	return acct, nil
}

// Authenticate verifies credentials and applies the approval login gate.
// Pending and rejected students fail with distinguishable errors even
// though their credentials are valid.
func (s *Service) Authenticate(ctx context.Context, identity, password string) (*Account, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	acct, err := s.store.FindByUsername(ctx, identity)
	if err == ErrNotFound && strings.Contains(identity, "@") {
		acct, err = s.store.FindByEmail(ctx, strings.ToLower(identity))
	}
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := VerifyPassword(acct.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if acct.Role == RoleStudent {
		switch acct.ApprovalStatus {
		case StatusPending:
			return nil, ErrPendingApproval
		case StatusRejected:
			return nil, ErrRejected
		}
	}
	return acct, nil
}

// Decide transitions a pending student to approved or rejected. Only
// elevated roles may decide, and only the first decision applies.
func (s *Service) Decide(ctx context.Context, accountID string, decider *Account, outcome ApprovalStatus) error {
	if decider == nil || !decider.Role.Elevated() {
		return ErrUnauthorized
	}
	if outcome != StatusApproved && outcome != StatusRejected {
		return fmt.Errorf("%w: outcome must be approved or rejected", ErrInvalidInput)
	}

	acct, err := s.store.Find(ctx, accountID)
	if err != nil {
		return err
	}
	if acct.Role != RoleStudent {
		return ErrNotFound
	}
	if acct.ApprovalStatus != StatusPending {
		return ErrAlreadyDecided
	}

	applied, err := s.store.Decide(ctx, acct.ID, decider.ID, outcome, s.now().UTC())
	if err != nil {
		return err
	}
	if !applied {
		// A concurrent decision won the compare-and-set.
		return ErrAlreadyDecided
	}
	obs.ObserveDecision(string(outcome))

	s.dispatch(ctx, notify.DecisionMessage(acct.Email, acct.FullName(), outcome == StatusApproved))
	return nil
}

// Students lists student accounts in the given approval state.
func (s *Service) Students(ctx context.Context, status ApprovalStatus) ([]*Account, error) {
	switch status {
	case StatusApproved, StatusPending, StatusRejected:
	default:
		return nil, fmt.Errorf("%w: unknown approval status %q", ErrInvalidInput, status)
	}
	return s.store.ListStudents(ctx, status)
}

// Find returns the account by ID.
func (s *Service) Find(ctx context.Context, id string) (*Account, error) {
	return s.store.Find(ctx, id)
}

func (s *Service) gateInstructorCode(email, code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("%w: verification code is required", ErrInvalidCode)
	}
	if s.codes == nil {
		return ErrInvalidCode
	}
	if !s.codes.Check(email, code) {
		return ErrInvalidCode
	}
	// The gate has passed: make sure no residue of the code survives, so it
	// cannot be replayed into another registration attempt.
	s.codes.Drop(email)
	return nil
}

func (s *Service) checkDuplicates(ctx context.Context, username, email string) error {
	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return ErrDuplicateIdentity
	} else if err != ErrNotFound {
		return err
	}
	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return ErrDuplicateIdentity
	} else if err != ErrNotFound {
		return err
	}
	return nil
}

func (s *Service) notifyReviewers(ctx context.Context, student *Account) {
	reviewers, err := s.store.ListByRoles(ctx, RoleAdmin, RoleInstructor)
	if err != nil {
		obs.LogEvent(map[string]any{"type": "notify", "error": err.Error(), "msg": "list reviewers failed"})
		return
	}
	addresses := make([]string, 0, len(reviewers))
	for _, r := range reviewers {
		if r.Email != "" {
			addresses = append(addresses, r.Email)
		}
	}
	if len(addresses) == 0 {
		return
	}
	s.dispatch(ctx, notify.PendingReviewMessage(addresses, student.FullName(), student.Username, student.StudentNumber, student.Specialty))
}

// dispatch is fire-and-forget: delivery failures are logged, never returned.
func (s *Service) dispatch(ctx context.Context, n notify.Notification) {
	if err := s.notifier.Send(ctx, n); err != nil {
		obs.LogEvent(map[string]any{
			"type":  "notify",
			"kind":  string(n.Kind),
			"error": err.Error(),
		})
	}
}

func validateStudentFields(in RegistrationInput) error {
	missing := make([]string, 0, 7)
	if strings.TrimSpace(in.FirstName) == "" {
		missing = append(missing, "first_name")
	}
	if strings.TrimSpace(in.LastName) == "" {
		missing = append(missing, "last_name")
	}
	if strings.TrimSpace(in.Gender) == "" {
		missing = append(missing, "gender")
	}
	if strings.TrimSpace(in.StudentNumber) == "" {
		missing = append(missing, "student_number")
	}
	if strings.TrimSpace(in.BirthPlace) == "" {
		missing = append(missing, "birth_place")
	}
	if in.BirthDate == nil {
		missing = append(missing, "birth_date")
	}
	if strings.TrimSpace(in.Specialty) == "" {
		missing = append(missing, "specialty")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing fields %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

func hasInstitutionalMarker(email string) bool {
	for _, marker := range institutionalMarkers {
		if strings.Contains(email, marker) {
			return true
		}
	}
	return false
}
