package reconcile

import (
	"context"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/plans"
	"student-billing/internal/domain/students"
)

type SignupForm struct {
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	Country       string `json:"country"`
	PaymentMethod string `json:"payment_method"`
	// Complimentary puts the student on the Guest plan. Admin only.
	Complimentary bool `json:"-"`
}

type SignupResult struct {
	Student     *students.Student `json:"student"`
	Invoice     *billing.Invoice  `json:"invoice"`
	ProfileLink string            `json:"profile_link"`
}

func (f *SignupForm) validate() (students.PaymentMethod, error) {
	f.Email = strings.TrimSpace(strings.ToLower(f.Email))
	f.FullName = strings.TrimSpace(f.FullName)
	f.Country = strings.ToUpper(strings.TrimSpace(f.Country))

	if _, err := mail.ParseAddress(f.Email); err != nil || f.Email == "" {
		return "", billing.Invalid("email", "must be a valid email address")
	}
	if f.FullName == "" {
		return "", billing.Invalid("full_name", "is required")
	}
	if len(f.Country) != 2 {
		return "", billing.Invalid("country", "must be a two letter country code")
	}
	method, err := students.ParsePaymentMethod(f.PaymentMethod)
	if err != nil {
		return "", billing.Invalid("payment_method", "must be stripe or btcpay")
	}
	return method, nil
}

// Signup creates the student and their subscription, then invoices the
// signup fee. A failed gateway call does not undo the signup: the student
// can ask to pay later from their profile.
func (e *Engine) Signup(ctx context.Context, form SignupForm) (*SignupResult, error) {
	method, err := form.validate()
	if err != nil {
		return nil, err
	}
	if _, ok := e.gateways[method]; !ok {
		return nil, billing.Invalid("payment_method", "unsupported payment method")
	}

	plan := e.catalog.ForCountry(form.Country)
	if form.Complimentary {
		plan = e.catalog.Plan(plans.Guest)
	}

	now := e.now()
	student := &students.Student{
		Email:         form.Email,
		FullName:      form.FullName,
		Country:       form.Country,
		PaymentMethod: method,
	}
	err = e.store.Transaction(ctx, func(tx Store) error {
		if err := tx.CreateStudent(ctx, student); err != nil {
			return err
		}
		return tx.CreateSubscription(ctx, &billing.Subscription{
			StudentID:    student.ID,
			CreatedAt:    now,
			InvoicingDay: now.Day(),
			PlanCode:     plan.Code,
			Price:        plan.SignupPrice,
			Active:       true,
		})
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("student signed up",
		zap.Uint("student_id", student.ID),
		zap.String("plan", string(plan.Code)),
		zap.String("payment_method", string(method)))

	result := &SignupResult{Student: student}
	_, err = e.withStudent(ctx, student.ID, func(s *Summary) error {
		if err := s.SyncPaidStatus(ctx); err != nil {
			return err
		}
		inv, err := s.InvoiceAllNotInvoicedYet(ctx)
		result.Invoice = inv
		return err
	})
	if billing.GatewayError.Has(err) {
		e.log.Warn("signup invoice deferred", zap.Uint("student_id", student.ID), zap.Error(err))
		err = nil
	}
	if err != nil {
		return nil, err
	}

	link, err := e.IssueSession(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	result.ProfileLink = link
	return result, nil
}

// IssueSession creates a short-lived token and returns the profile link
// carrying it.
func (e *Engine) IssueSession(ctx context.Context, studentID uint) (string, error) {
	value, err := e.words.Generate()
	if err != nil {
		return "", err
	}
	tok := &students.SessionToken{
		StudentID: studentID,
		Value:     value,
		ExpiresOn: e.now().Add(students.SessionTTL),
	}
	if err := e.store.CreateSessionToken(ctx, tok); err != nil {
		return "", err
	}
	return e.domain + "/students/?token=" + url.QueryEscape(value), nil
}

// StudentForSession resolves a profile token. Expired tokens are not found.
func (e *Engine) StudentForSession(ctx context.Context, value string) (*students.Student, error) {
	tok, err := e.store.FindSessionToken(ctx, value)
	if err != nil {
		return nil, err
	}
	if tok.Expired(e.now()) {
		return nil, billing.NotFoundError.New("session expired")
	}
	return e.store.FindStudent(ctx, tok.StudentID)
}

// StudentState is everything the profile page shows.
type StudentState struct {
	Student                   *students.Student `json:"student"`
	CommunityVerificationLink *string           `json:"community_verification_link"`
	Billing                   *Summary          `json:"billing"`
	NextInvoicingDate         time.Time         `json:"next_invoicing_date"`
}

func (e *Engine) State(ctx context.Context, studentID uint) (*StudentState, error) {
	s, err := e.Summary(ctx, studentID)
	if err != nil {
		return nil, err
	}
	state := &StudentState{
		Student:           s.Student,
		Billing:           s,
		NextInvoicingDate: s.Subscription.NextInvoicingDate(e.now()),
	}
	if v := s.Student.CommunityVerification; v != nil && s.Student.CommunityUserID == nil && e.onboarding != nil {
		link := e.onboarding.community.VerificationLink(*v)
		state.CommunityVerificationLink = &link
	}
	return state, nil
}

// CompleteCommunity finishes the community step of onboarding.
func (e *Engine) CompleteCommunity(ctx context.Context, state, accessToken string) (*students.Student, error) {
	if e.onboarding == nil {
		return nil, billing.NotFoundError.New("community verification disabled")
	}
	return e.onboarding.CompleteCommunity(ctx, state, accessToken)
}

func (e *Engine) Catalog() *plans.Catalog { return e.catalog }
