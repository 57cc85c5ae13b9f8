package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlyCharge is the recurring fee. (student_id, billing_period) is unique.
type MonthlyCharge struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	StudentID     uint            `gorm:"not null;uniqueIndex:idx_monthly_charges_student_period" json:"student_id"`
	BillingPeriod time.Time       `gorm:"not null;uniqueIndex:idx_monthly_charges_student_period" json:"billing_period"`
	CreatedAt     time.Time       `json:"created_at"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Paid          bool            `gorm:"not null" json:"paid"`
	PaidAt        *time.Time      `json:"paid_at"`
}

// BillingPeriod normalizes a tick date to the period key it is stored under.
func BillingPeriod(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}
