package reconcile

import (
	"context"
	"time"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/students"
)

// Store is the persistence the engine runs against. Lookups that find
// nothing return billing.NotFoundError; storage failures are
// billing.PersistenceError.
type Store interface {
	// Transaction runs fn against a transactional Store. Any error rolls
	// every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	FindStudent(ctx context.Context, id uint) (*students.Student, error)
	FindStudentByStripeCustomer(ctx context.Context, customerID string) (*students.Student, error)
	FindStudentByVerification(ctx context.Context, token string) (*students.Student, error)
	ListStudentIDs(ctx context.Context) ([]uint, error)
	// CreateStudent fails with billing.ValidationError on a taken email.
	CreateStudent(ctx context.Context, s *students.Student) error
	SetStripeCustomerID(ctx context.Context, studentID uint, customerID string) error
	SetPaymentMethod(ctx context.Context, studentID uint, method students.PaymentMethod) error
	SetCommunityVerification(ctx context.Context, studentID uint, token string) error
	SetLMSUser(ctx context.Context, studentID uint, user, initialPassword string) error
	SetCommunityAccount(ctx context.Context, studentID uint, userID, handle string) error
	MarkWelcomeSent(ctx context.Context, studentID uint, at time.Time) error

	ActiveSubscription(ctx context.Context, studentID uint) (*billing.Subscription, error)
	CreateSubscription(ctx context.Context, s *billing.Subscription) error
	ListDegrees(ctx context.Context, studentID uint) ([]billing.Degree, error)
	CreateDegree(ctx context.Context, d *billing.Degree) error
	ListMonthlyCharges(ctx context.Context, studentID uint) ([]billing.MonthlyCharge, error)
	// CreateMonthlyChargeIfAbsent inserts unless the billing period already
	// has a charge, in a single statement. It reports whether a row was added.
	CreateMonthlyChargeIfAbsent(ctx context.Context, m *billing.MonthlyCharge) (bool, error)
	// MarkChargePaid flips an unpaid charge to paid. It reports false when
	// the charge was already paid.
	MarkChargePaid(ctx context.Context, c billing.Charge, at time.Time) (bool, error)

	ListPayments(ctx context.Context, studentID uint) ([]billing.Payment, error)
	// CreatePayment reports false when a payment with the same ExternalRef
	// already exists.
	CreatePayment(ctx context.Context, p *billing.Payment) (bool, error)

	// OutstandingInvoices lists unpaid, unexpired invoices in creation order.
	OutstandingInvoices(ctx context.Context, studentID uint) ([]billing.Invoice, error)
	FindInvoice(ctx context.Context, id uint) (*billing.Invoice, error)
	FindInvoiceByExternalID(ctx context.Context, method students.PaymentMethod, externalID string) (*billing.Invoice, error)
	CreateInvoice(ctx context.Context, inv *billing.Invoice) error
	// ExpireInvoices marks every outstanding invoice of the student expired.
	ExpireInvoices(ctx context.Context, studentID uint) error
	// MarkInvoicePaid links an unsettled invoice to its payment. It reports
	// false when the invoice already has a payment.
	MarkInvoicePaid(ctx context.Context, invoiceID, paymentID uint) (bool, error)
	MarkInvoiceNotified(ctx context.Context, invoiceID uint, at time.Time) error

	CreateSessionToken(ctx context.Context, t *students.SessionToken) error
	FindSessionToken(ctx context.Context, value string) (*students.SessionToken, error)
}
