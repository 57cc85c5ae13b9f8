package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryItem is one line of a student's ledger. Charges are negative.
type HistoryItem struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

func ChargeHistory(c Charge) HistoryItem {
	return HistoryItem{Date: c.CreatedAt(), Description: c.Description(), Amount: c.Amount().Neg()}
}

func PaymentHistory(p *Payment) HistoryItem {
	return HistoryItem{Date: p.CreatedAt, Description: p.Description(), Amount: p.Amount}
}
