package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bookfinder/bookfinder/internal/logger"
	"github.com/bookfinder/bookfinder/internal/store"
)

// Common errors
var (
	// ErrInvalidCredentials is returned for a wrong email or password
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when signing up with an email already in use
	ErrEmailTaken = errors.New("email already in use")
	// ErrAccountNotFound is returned when no account matches
	ErrAccountNotFound = errors.New("account not found")
	// ErrSessionNotFound is returned for a missing or expired session
	ErrSessionNotFound = errors.New("session not found or expired")
)

// ValidationError reports a signup or login form failure detected before
// any store operation
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Msg
}

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 6

// SignupInput carries the signup form fields
type SignupInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
}

// Service provides email/password authentication with persisted sessions
// and a subscription-style auth state change notification.
type Service struct {
	repo       *Repository
	profiles   *store.Repository
	sessionTTL time.Duration
	logger     *logger.Logger

	mu          sync.Mutex
	subscribers map[int]chan Event
	nextSubID   int
}

// NewService creates a new auth service. Signup also creates the user's
// profile document through the store repository.
func NewService(repo *Repository, profiles *store.Repository, sessionTTL time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Get()
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Service{
		repo:        repo,
		profiles:    profiles,
		sessionTTL:  sessionTTL,
		logger:      log,
		subscribers: make(map[int]chan Event),
	}
}

// validateSignup runs form validation before any store call
func validateSignup(in SignupInput) error {
	if strings.TrimSpace(in.Email) == "" {
		return &ValidationError{Field: "email", Msg: "is required"}
	}
	if !strings.Contains(in.Email, "@") {
		return &ValidationError{Field: "email", Msg: "is not a valid address"}
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return &ValidationError{Field: "firstName", Msg: "is required"}
	}
	if strings.TrimSpace(in.LastName) == "" {
		return &ValidationError{Field: "lastName", Msg: "is required"}
	}
	if len(in.Password) < MinPasswordLength {
		return &ValidationError{Field: "password", Msg: fmt.Sprintf("must be at least %d characters", MinPasswordLength)}
	}
	if in.Password != in.ConfirmPassword {
		return &ValidationError{Field: "confirmPassword", Msg: "does not match password"}
	}
	return nil
}

// Signup creates a new account with a hashed password, creates the user's
// profile document and signs the user in.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Account, *Session, error) {
	if err := validateSignup(in); err != nil {
		return nil, nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, ErrEmailTaken
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	account := &Account{
		ID:           generateID(),
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, nil, err
	}

	if _, err := s.profiles.SaveUserData(ctx, account.ID, in.FirstName, in.LastName, email); err != nil {
		return nil, nil, fmt.Errorf("account created but profile creation failed: %w", err)
	}

	session, err := s.createSession(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("User signed up", map[string]interface{}{
		"user_id": account.ID,
	})
	s.publish(Event{Kind: EventSignedIn, UserID: account.ID, At: time.Now()})
	return account, session, nil
}

// Login authenticates an email/password pair and opens a session
func (s *Service) Login(ctx context.Context, email, password string) (*Account, *Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, nil, &ValidationError{Field: "credentials", Msg: "email and password are required"}
	}

	account, err := s.repo.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := VerifyPassword(password, account.PasswordHash); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.TouchLastLogin(ctx, account.ID); err != nil {
		s.logger.Warn("Failed to stamp last login", map[string]interface{}{
			"user_id": account.ID,
			"error":   err.Error(),
		})
	}
	if err := s.profiles.TouchLastLogin(ctx, account.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("Failed to stamp profile last login", map[string]interface{}{
			"user_id": account.ID,
			"error":   err.Error(),
		})
	}

	s.logger.Info("User logged in", map[string]interface{}{
		"user_id": account.ID,
	})
	s.publish(Event{Kind: EventSignedIn, UserID: account.ID, At: time.Now()})
	return account, session, nil
}

// Logout destroys the session for the given token
func (s *Service) Logout(ctx context.Context, token string) error {
	session, err := s.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.repo.DestroySession(ctx, token); err != nil {
		return err
	}

	s.logger.Info("User logged out", map[string]interface{}{
		"user_id": session.UserID,
	})
	s.publish(Event{Kind: EventSignedOut, UserID: session.UserID, At: time.Now()})
	return nil
}

// ValidateSession resolves a session token to its account
func (s *Service) ValidateSession(ctx context.Context, token string) (*Account, error) {
	session, err := s.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.repo.GetAccountByID(ctx, session.UserID)
}

// Subscribe registers for auth state change events. The returned cancel
// function removes the subscription and closes the channel. Events are
// delivered best effort: a subscriber that is not draining its channel
// misses events rather than blocking auth operations.
func (s *Service) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Event, 8)
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if sub, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (s *Service) publish(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (s *Service) createSession(ctx context.Context, userID string) (*Session, error) {
	session := &Session{
		ID:        generateID(),
		UserID:    userID,
		Token:     generateSessionToken(),
		ExpiresAt: time.Now().Add(s.sessionTTL),
		Active:    true,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
