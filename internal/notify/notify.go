// Package notify delivers best-effort messages to account contact addresses.
// Failures are reported to the caller for logging but never abort the
// operation that triggered them.
package notify

import "context"

// Kind classifies outbound notifications.
type Kind string

const (
	KindVerification   Kind = "verification"
	KindConfirmation   Kind = "confirmation"
	KindStudentPending Kind = "student_pending"
	KindAcceptance     Kind = "acceptance"
	KindRejection      Kind = "rejection"
)

// Notification is a composed message ready for delivery.
type Notification struct {
	Recipients []string
	Subject    string
	Body       string
	Kind       Kind
}

// Notifier dispatches notifications to an external delivery channel.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
