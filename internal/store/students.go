package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"student-billing/internal/domain/billing"
	"student-billing/internal/domain/students"
)

func (s *Store) FindStudent(ctx context.Context, id uint) (*students.Student, error) {
	var st students.Student
	if err := s.conn(ctx).First(&st, id).Error; err != nil {
		return nil, wrap(err, fmt.Sprintf("student %d", id))
	}
	return &st, nil
}

func (s *Store) FindStudentByStripeCustomer(ctx context.Context, customerID string) (*students.Student, error) {
	var st students.Student
	err := s.conn(ctx).Where("stripe_customer_id = ?", customerID).First(&st).Error
	if err != nil {
		return nil, wrap(err, "student for customer "+customerID)
	}
	return &st, nil
}

func (s *Store) FindStudentByVerification(ctx context.Context, token string) (*students.Student, error) {
	var st students.Student
	err := s.conn(ctx).Where("community_verification = ?", token).First(&st).Error
	if err != nil {
		return nil, wrap(err, "student for verification token")
	}
	return &st, nil
}

func (s *Store) ListStudentIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.conn(ctx).Model(&students.Student{}).Order("id").Pluck("id", &ids).Error
	return ids, wrap(err, "students")
}

func (s *Store) CreateStudent(ctx context.Context, st *students.Student) error {
	var taken int64
	if err := s.conn(ctx).Model(&students.Student{}).Where("email = ?", st.Email).Count(&taken).Error; err != nil {
		return wrap(err, "student")
	}
	if taken > 0 {
		return billing.Invalid("email", "is already registered")
	}
	err := s.conn(ctx).Create(st).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return billing.Invalid("email", "is already registered")
	}
	return wrap(err, "student")
}

func (s *Store) updateStudent(ctx context.Context, id uint, fields map[string]any) error {
	res := s.conn(ctx).Model(&students.Student{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return wrap(res.Error, "student")
	}
	if res.RowsAffected == 0 {
		return billing.NotFoundError.New("student %d", id)
	}
	return nil
}

func (s *Store) SetStripeCustomerID(ctx context.Context, studentID uint, customerID string) error {
	return s.updateStudent(ctx, studentID, map[string]any{"stripe_customer_id": customerID})
}

func (s *Store) SetPaymentMethod(ctx context.Context, studentID uint, method students.PaymentMethod) error {
	return s.updateStudent(ctx, studentID, map[string]any{"payment_method": method})
}

func (s *Store) SetCommunityVerification(ctx context.Context, studentID uint, token string) error {
	return s.updateStudent(ctx, studentID, map[string]any{"community_verification": token})
}

func (s *Store) SetLMSUser(ctx context.Context, studentID uint, user, initialPassword string) error {
	return s.updateStudent(ctx, studentID, map[string]any{
		"lms_user":             user,
		"lms_initial_password": initialPassword,
	})
}

func (s *Store) MarkWelcomeSent(ctx context.Context, studentID uint, at time.Time) error {
	return s.updateStudent(ctx, studentID, map[string]any{"welcome_sent_at": at})
}

func (s *Store) SetCommunityAccount(ctx context.Context, studentID uint, userID, handle string) error {
	return s.updateStudent(ctx, studentID, map[string]any{
		"community_user_id": userID,
		"community_handle":  handle,
	})
}

func (s *Store) CreateSessionToken(ctx context.Context, t *students.SessionToken) error {
	return wrap(s.conn(ctx).Create(t).Error, "session token")
}

func (s *Store) FindSessionToken(ctx context.Context, value string) (*students.SessionToken, error) {
	var t students.SessionToken
	if err := s.conn(ctx).Where("value = ?", value).First(&t).Error; err != nil {
		return nil, wrap(err, "session token")
	}
	return &t, nil
}
