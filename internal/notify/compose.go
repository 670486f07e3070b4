package notify

import (
	"fmt"
	"strings"
)

const signature = "The Stellar Club team"

// VerificationMessage carries a one-time code to a prospective instructor.
func VerificationMessage(email, code string) Notification {
	body := fmt.Sprintf(`Your verification code is: %s

The code expires in 10 minutes. If you did not request it, ignore this message.

%s`, code, signature)
	return Notification{
		Recipients: []string{email},
		Subject:    "Your verification code",
		Body:       body,
		Kind:       KindVerification,
	}
}

// ConfirmationMessage acknowledges a submitted registration.
func ConfirmationMessage(email, fullName string, pending bool) Notification {
	var body string
	if pending {
		body = fmt.Sprintf(`Hello %s,

Your registration was received and is awaiting review. You will be notified
as soon as a decision is made.

%s`, fullName, signature)
	} else {
		body = fmt.Sprintf(`Hello %s,

Your account has been created. You can sign in right away.

%s`, fullName, signature)
	}
	return Notification{
		Recipients: []string{email},
		Subject:    "Registration received",
		Body:       body,
		Kind:       KindConfirmation,
	}
}

// PendingReviewMessage alerts reviewers that a student registration awaits a decision.
func PendingReviewMessage(reviewers []string, fullName, username, studentNumber, specialty string) Notification {
	details := []string{
		"Name: " + fullName,
		"Username: " + username,
	}
	if studentNumber != "" {
		details = append(details, "Student number: "+studentNumber)
	}
	if specialty != "" {
		details = append(details, "Specialty: "+specialty)
	}
	body := fmt.Sprintf(`A new student registration awaits review:

%s

%s`, strings.Join(details, "\n"), signature)
	return Notification{
		Recipients: reviewers,
		Subject:    "New student registration pending review",
		Body:       body,
		Kind:       KindStudentPending,
	}
}

// DecisionMessage informs a student of the approval outcome.
func DecisionMessage(email, fullName string, approved bool) Notification {
	if approved {
		return Notification{
			Recipients: []string{email},
			Subject:    "Your registration has been accepted",
			Body: fmt.Sprintf(`Congratulations %s!

Your registration has been accepted. You can now sign in and take part in
club projects.

%s`, fullName, signature),
			Kind: KindAcceptance,
		}
	}
	return Notification{
		Recipients: []string{email},
		Subject:    "Your registration decision",
		Body: fmt.Sprintf(`Dear %s,

We are sorry to inform you that your registration was not accepted at this
time. You may review your details and apply again later.

%s`, fullName, signature),
		Kind: KindRejection,
	}
}
