package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"student-billing/internal/domain/plans"
)

// Subscription is the signup charge. A student has exactly one active row.
type Subscription struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	StudentID    uint            `gorm:"not null;index" json:"student_id"`
	CreatedAt    time.Time       `json:"created_at"`
	InvoicingDay int             `gorm:"not null" json:"invoicing_day"`
	PlanCode     plans.Code      `gorm:"type:varchar(20);not null" json:"plan_code"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Active       bool            `gorm:"not null;index" json:"active"`
	Paid         bool            `gorm:"not null" json:"paid"`
	PaidAt       *time.Time      `json:"paid_at"`
}

// NextInvoicingDate is the first due date strictly after from.
func (s *Subscription) NextInvoicingDate(from time.Time) time.Time {
	due := DueDate(from.Year(), from.Month(), s.InvoicingDay)
	if due.After(from) {
		return due
	}
	next := time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return DueDate(next.Year(), next.Month(), s.InvoicingDay)
}

// IsDue reports whether date is the invoicing day of its month.
func (s *Subscription) IsDue(date time.Time) bool {
	return date.Day() == DueDate(date.Year(), date.Month(), s.InvoicingDay).Day()
}

// DueDate clamps invoicingDay to the last day of the month.
func DueDate(year int, month time.Month, invoicingDay int) time.Time {
	last := DaysIn(year, month)
	day := invoicingDay
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
