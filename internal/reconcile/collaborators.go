package reconcile

import "context"

// Locker serializes work per student across goroutines or processes.
type Locker interface {
	Lock(ctx context.Context, studentID uint) (unlock func(), err error)
}

// LMS provisions course accounts.
type LMS interface {
	// CreateStudentUser creates the account and enrolls it in the student
	// group, returning the LMS user id.
	CreateStudentUser(ctx context.Context, username, email, password string) (string, error)
}

type CommunityMember struct {
	UserID string
	Handle string
}

// Community is the chat server students join after paying.
type Community interface {
	VerificationLink(state string) string
	// Join looks up the user behind accessToken, adds them to the server and
	// grants the student role.
	Join(ctx context.Context, accessToken string) (CommunityMember, error)
}

// Mailer sends a named template to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, template string, data map[string]any) error
}

// Passphrases generates human-readable random secrets.
type Passphrases interface {
	Generate() (string, error)
}

const (
	TemplateWelcome     = "welcome"
	TemplatePaymentLink = "payment_link"
)
