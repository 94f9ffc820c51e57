package auth

import (
	"time"

	"gorm.io/gorm"
)

// Account represents an authenticated user account
type Account struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"` // Never serialize password hash
	Active       bool       `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Session represents a user session with an opaque token
type Session struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"` // Don't expose in JSON
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Active    bool      `gorm:"default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// EventKind distinguishes auth state changes
type EventKind string

const (
	// EventSignedIn is emitted after a successful signup or login
	EventSignedIn EventKind = "signed_in"
	// EventSignedOut is emitted after logout
	EventSignedOut EventKind = "signed_out"
)

// Event is an auth state change notification delivered to subscribers
type Event struct {
	Kind   EventKind `json:"kind"`
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

// BeforeCreate hook for Account
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now()
	}
	return nil
}

// BeforeUpdate hook for Account
func (a *Account) BeforeUpdate(tx *gorm.DB) error {
	a.UpdatedAt = time.Now()
	return nil
}

// BeforeCreate hook for Session
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	return nil
}
