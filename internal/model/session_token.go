package model

import "time"

// SessionToken is one entry in a user's active token set. A user with zero
// rows here is logged out everywhere. Row-per-token keeps append and remove
// as single-statement writes, so concurrent logins cannot lose updates.
type SessionToken struct {
	ID       uint      `json:"-" gorm:"primaryKey"`
	UserID   uint      `json:"-" gorm:"index;not null"`
	Token    string    `json:"-" gorm:"size:512;index;not null"`
	IssuedAt time.Time `json:"-"`
}
