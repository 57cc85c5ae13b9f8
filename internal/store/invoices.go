package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/students"
)

func (s *Store) ListPayments(ctx context.Context, studentID uint) ([]billing.Payment, error) {
	var out []billing.Payment
	err := s.conn(ctx).Where("student_id = ?", studentID).Order("id").Find(&out).Error
	return out, wrap(err, "payments")
}

func (s *Store) CreatePayment(ctx context.Context, p *billing.Payment) (bool, error) {
	q := s.conn(ctx)
	if p.ExternalRef != nil {
		q = q.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_ref"}},
			DoNothing: true,
		})
	}
	res := q.Create(p)
	if res.Error != nil {
		return false, wrap(res.Error, "payment")
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) OutstandingInvoices(ctx context.Context, studentID uint) ([]billing.Invoice, error) {
	var out []billing.Invoice
	err := s.conn(ctx).
		Where("student_id = ? AND paid = ? AND expired = ?", studentID, false, false).
		Order("id").
		Find(&out).Error
	return out, wrap(err, "invoices")
}

func (s *Store) FindInvoice(ctx context.Context, id uint) (*billing.Invoice, error) {
	var inv billing.Invoice
	if err := s.conn(ctx).First(&inv, id).Error; err != nil {
		return nil, wrap(err, fmt.Sprintf("invoice %d", id))
	}
	return &inv, nil
}

func (s *Store) FindInvoiceByExternalID(ctx context.Context, method students.PaymentMethod, externalID string) (*billing.Invoice, error) {
	var inv billing.Invoice
	err := s.conn(ctx).
		Where("payment_method = ? AND external_id = ?", method, externalID).
		Order("id DESC").
		First(&inv).Error
	if err != nil {
		return nil, wrap(err, fmt.Sprintf("%s invoice %s", method, externalID))
	}
	return &inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *billing.Invoice) error {
	return wrap(s.conn(ctx).Create(inv).Error, "invoice")
}

func (s *Store) ExpireInvoices(ctx context.Context, studentID uint) error {
	err := s.conn(ctx).Model(&billing.Invoice{}).
		Where("student_id = ? AND paid = ? AND expired = ?", studentID, false, false).
		Update("expired", true).Error
	return wrap(err, "invoices")
}

func (s *Store) MarkInvoicePaid(ctx context.Context, invoiceID, paymentID uint) (bool, error) {
	res := s.conn(ctx).Model(&billing.Invoice{}).
		Where("id = ? AND payment_id IS NULL", invoiceID).
		Updates(map[string]any{"paid": true, "payment_id": paymentID})
	if res.Error != nil {
		return false, wrap(res.Error, "invoice")
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) MarkInvoiceNotified(ctx context.Context, invoiceID uint, at time.Time) error {
	err := s.conn(ctx).Model(&billing.Invoice{}).
		Where("id = ?", invoiceID).
		Update("notified_on", at).Error
	return wrap(err, "invoice")
}
