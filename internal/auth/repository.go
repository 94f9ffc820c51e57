package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository handles database operations for authentication
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new authentication repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the auth tables
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&Account{}, &Session{})
}

// CreateAccount creates a new account
func (r *Repository) CreateAccount(ctx context.Context, account *Account) error {
	if account.ID == "" {
		account.ID = generateID()
	}
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccountByID retrieves an account by ID
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetAccountByEmail retrieves an account by email
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).Where("email = ? AND active = ?", email, true).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// EmailExists checks whether an account already uses the given email
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Account{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// TouchLastLogin stamps the account's last login time
func (r *Repository) TouchLastLogin(ctx context.Context, id string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).Model(&Account{}).Where("id = ?", id).Update("last_login_at", now).Error
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// CreateSession creates a new session
func (r *Repository) CreateSession(ctx context.Context, session *Session) error {
	if session.ID == "" {
		session.ID = generateID()
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSessionByToken retrieves an active, unexpired session by token
func (r *Repository) GetSessionByToken(ctx context.Context, token string) (*Session, error) {
	var session Session
	err := r.db.WithContext(ctx).
		Where("token = ? AND active = ? AND expires_at > ?", token, true, time.Now()).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// DestroySession deactivates a session
func (r *Repository) DestroySession(ctx context.Context, token string) error {
	result := r.db.WithContext(ctx).
		Model(&Session{}).
		Where("token = ?", token).
		Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to destroy session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions
func (r *Repository) CleanupExpiredSessions(ctx context.Context) error {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", result.Error)
	}
	return nil
}
