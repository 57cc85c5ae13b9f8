package students

import (
	"fmt"
	"strings"
	"time"
)

// PaymentMethod selects the gateway a student is invoiced through.
type PaymentMethod string

const (
	// Stripe is card checkout with one line item per charge.
	Stripe PaymentMethod = "stripe"
	// BtcPay is a lump-sum crypto invoice.
	BtcPay PaymentMethod = "btcpay"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case Stripe:
		return Stripe, nil
	case BtcPay:
		return BtcPay, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

type Student struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	Email         string        `gorm:"not null;uniqueIndex:idx_students_email" json:"email"`
	FullName      string        `gorm:"not null" json:"full_name"`
	Country       string        `gorm:"type:varchar(2);not null" json:"country"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`

	StripeCustomerID *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_students_stripe_customer_id" json:"-"`

	// Onboarding artifacts, written once after the signup charge is paid.
	LMSUser               *string    `gorm:"column:lms_user" json:"lms_user,omitempty"`
	LMSInitialPassword    *string    `gorm:"column:lms_initial_password" json:"-"`
	CommunityVerification *string    `gorm:"column:community_verification;uniqueIndex:idx_students_community_verification" json:"-"`
	CommunityUserID       *string    `gorm:"column:community_user_id" json:"community_user_id,omitempty"`
	CommunityHandle       *string    `gorm:"column:community_handle" json:"community_handle,omitempty"`
	WelcomeSentAt         *time.Time `gorm:"column:welcome_sent_at" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Onboarded reports whether every onboarding step has already run.
func (s *Student) Onboarded() bool {
	return s.CommunityVerification != nil && s.LMSUser != nil && s.WelcomeSentAt != nil
}
