package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"student-billing/internal/domain/students"
)

// InvoiceDescription is shown on every hosted checkout.
const InvoiceDescription = "Cargos pendientes"

// Invoice is a request for money. It moves from pending to paid or to
// expired exactly once.
type Invoice struct {
	ID            uint                   `gorm:"primaryKey" json:"id"`
	StudentID     uint                   `gorm:"not null;index" json:"student_id"`
	CreatedAt     time.Time              `json:"created_at"`
	PaymentMethod students.PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	ExternalID    string                 `gorm:"not null;index" json:"external_id"`
	Amount        decimal.Decimal        `gorm:"type:numeric(12,2);not null" json:"amount"`
	Description   string                 `json:"description"`
	URL           string                 `json:"url"`
	Paid          bool                   `gorm:"not null;index" json:"paid"`
	Expired       bool                   `gorm:"not null;index" json:"expired"`
	PaymentID     *uint                  `json:"payment_id,omitempty"`
	NotifiedOn    *time.Time             `json:"notified_on,omitempty"`
}

func (i *Invoice) Outstanding() bool {
	return !i.Paid && !i.Expired
}
