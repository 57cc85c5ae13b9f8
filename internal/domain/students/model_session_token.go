package students

import "time"

// SessionTTL is how long a profile link stays valid.
const SessionTTL = 72 * time.Hour

// SessionToken grants a student access to their own profile page.
type SessionToken struct {
	ID        uint   `gorm:"primaryKey"`
	StudentID uint   `gorm:"index;not null"`
	Value     string `gorm:"uniqueIndex;not null"`
	ExpiresOn time.Time
	CreatedAt time.Time
}

func (t SessionToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresOn)
}
