package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"student-billing/internal/domain/students"
)

// Payment is money received. Rows are never updated or deleted.
type Payment struct {
	ID            uint                   `gorm:"primaryKey" json:"id"`
	StudentID     uint                   `gorm:"not null;index" json:"student_id"`
	CreatedAt     time.Time              `json:"created_at"`
	Amount        decimal.Decimal        `gorm:"type:numeric(12,2);not null" json:"amount"`
	Fees          decimal.Decimal        `gorm:"type:numeric(12,2);not null" json:"fees"`
	PaymentMethod students.PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	ClearingData  datatypes.JSON         `json:"clearing_data,omitempty"`
	InvoiceID     *uint                  `gorm:"index" json:"invoice_id,omitempty"`

	// ExternalRef is the gateway's id for the settlement. Replayed webhooks
	// collide on it.
	ExternalRef *string `gorm:"column:external_ref;uniqueIndex:idx_payments_external_ref" json:"-"`
}

func (p *Payment) Description() string {
	return fmt.Sprintf("Payment #%d via %s", p.ID, p.PaymentMethod)
}
