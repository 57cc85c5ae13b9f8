package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"student-billing/internal/domain/students"
)

// Onboarding provisions a student once their signup charge is paid. Each
// step checks the student record first, so rerunning it resumes where a
// previous run stopped. The welcome mail is tracked apart from the LMS
// account so a mail failure does not lose the credentials.
type Onboarding struct {
	store     Store
	lms       LMS
	community Community
	mailer    Mailer
	words     Passphrases
	log       *zap.Logger
}

func NewOnboarding(store Store, lms LMS, community Community, mailer Mailer, words Passphrases, log *zap.Logger) *Onboarding {
	if log == nil {
		log = zap.NewNop()
	}
	return &Onboarding{
		store:     store,
		lms:       lms,
		community: community,
		mailer:    mailer,
		words:     words,
		log:       log,
	}
}

func (o *Onboarding) Run(ctx context.Context, studentID uint) error {
	st, err := o.store.FindStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if st.Onboarded() {
		return nil
	}
	log := o.log.With(zap.Uint("student_id", st.ID))

	if st.CommunityVerification == nil {
		token, err := o.words.Generate()
		if err != nil {
			return err
		}
		if err := o.store.SetCommunityVerification(ctx, st.ID, token); err != nil {
			return err
		}
		st.CommunityVerification = &token
	}

	if st.LMSUser == nil {
		password, err := o.words.Generate()
		if err != nil {
			return err
		}
		user, err := o.lms.CreateStudentUser(ctx, st.FullName, st.Email, password)
		if err != nil {
			return err
		}
		if err := o.store.SetLMSUser(ctx, st.ID, user, password); err != nil {
			return err
		}
		st.LMSUser, st.LMSInitialPassword = &user, &password
		log.Info("lms account created", zap.String("lms_user", user))
	}

	if st.WelcomeSentAt != nil {
		return nil
	}
	var password string
	if st.LMSInitialPassword != nil {
		password = *st.LMSInitialPassword
	}
	err = o.mailer.Send(ctx, st.Email, TemplateWelcome, map[string]any{
		"full_name":                 st.FullName,
		"email":                     st.Email,
		"password":                  password,
		"discord_verification_link": o.community.VerificationLink(*st.CommunityVerification),
	})
	if err != nil {
		return err
	}
	if err := o.store.MarkWelcomeSent(ctx, st.ID, time.Now().UTC()); err != nil {
		return err
	}
	log.Info("welcome email sent")
	return nil
}

// CompleteCommunity links the community account behind accessToken to the
// student that was handed state in their verification link.
func (o *Onboarding) CompleteCommunity(ctx context.Context, state, accessToken string) (*students.Student, error) {
	st, err := o.store.FindStudentByVerification(ctx, state)
	if err != nil {
		return nil, err
	}
	member, err := o.community.Join(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if err := o.store.SetCommunityAccount(ctx, st.ID, member.UserID, member.Handle); err != nil {
		return nil, err
	}
	st.CommunityUserID, st.CommunityHandle = &member.UserID, &member.Handle
	o.log.Info("community account linked", zap.Uint("student_id", st.ID), zap.String("handle", member.Handle))
	return st, nil
}
