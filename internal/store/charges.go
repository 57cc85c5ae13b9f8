package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"student-billing/internal/domain/billing"
)

func (s *Store) ActiveSubscription(ctx context.Context, studentID uint) (*billing.Subscription, error) {
	var sub billing.Subscription
	err := s.conn(ctx).
		Where("student_id = ? AND active = ?", studentID, true).
		Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, wrap(err, fmt.Sprintf("active subscription for student %d", studentID))
	}
	return &sub, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub *billing.Subscription) error {
	return wrap(s.conn(ctx).Create(sub).Error, "subscription")
}

func (s *Store) ListDegrees(ctx context.Context, studentID uint) ([]billing.Degree, error) {
	var out []billing.Degree
	err := s.conn(ctx).Where("student_id = ?", studentID).Order("id").Find(&out).Error
	return out, wrap(err, "degrees")
}

func (s *Store) CreateDegree(ctx context.Context, d *billing.Degree) error {
	return wrap(s.conn(ctx).Create(d).Error, "degree")
}

func (s *Store) ListMonthlyCharges(ctx context.Context, studentID uint) ([]billing.MonthlyCharge, error) {
	var out []billing.MonthlyCharge
	err := s.conn(ctx).Where("student_id = ?", studentID).Order("id").Find(&out).Error
	return out, wrap(err, "monthly charges")
}

func (s *Store) CreateMonthlyChargeIfAbsent(ctx context.Context, m *billing.MonthlyCharge) (bool, error) {
	res := s.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "billing_period"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return false, wrap(res.Error, "monthly charge")
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) MarkChargePaid(ctx context.Context, c billing.Charge, at time.Time) (bool, error) {
	var model any
	switch c.Kind {
	case billing.SubscriptionCharge:
		model = &billing.Subscription{}
	case billing.DegreeCharge:
		model = &billing.Degree{}
	case billing.MonthlyChargeKind:
		model = &billing.MonthlyCharge{}
	default:
		return false, billing.ValidationError.New("unknown charge kind %q", c.Kind)
	}

	res := s.conn(ctx).Model(model).
		Where("id = ? AND paid = ?", c.ID(), false).
		Updates(map[string]any{"paid": true, "paid_at": at})
	if res.Error != nil {
		return false, wrap(res.Error, "charge")
	}
	return res.RowsAffected == 1, nil
}
