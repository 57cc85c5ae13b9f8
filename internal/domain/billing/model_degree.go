package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

type Degree struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	StudentID      uint            `gorm:"not null;index" json:"student_id"`
	CreatedAt      time.Time       `json:"created_at"`
	Description    string          `json:"description"`
	CertificateURL *string         `json:"certificate_url,omitempty"`
	Price          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Paid           bool            `gorm:"not null" json:"paid"`
	PaidAt         *time.Time      `json:"paid_at"`
}
