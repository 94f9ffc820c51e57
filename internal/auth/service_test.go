package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookfinder/bookfinder/internal/logger"
	"github.com/bookfinder/bookfinder/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Repository) {
	t.Helper()
	db, err := store.NewDatabase(filepath.Join(t.TempDir(), "test.db"), logger.Get())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db.GetDB())
	require.NoError(t, repo.Migrate())

	profiles := store.NewRepository(db, logger.Get())
	return NewService(repo, profiles, time.Hour, logger.Get()), profiles
}

func validInput() SignupInput {
	return SignupInput{
		Email:           "jane@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
		FirstName:       "Jane",
		LastName:        "Doe",
	}
}

func TestSignup(t *testing.T) {
	service, profiles := newTestService(t)
	ctx := context.Background()

	account, session, err := service.Signup(ctx, validInput())
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "jane@example.com", account.Email)
	assert.NotEqual(t, "secret123", account.PasswordHash)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	// Signup also creates the profile document
	profile, err := profiles.GetUserByUID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", profile.FirstName)
	assert.Equal(t, "Doe", profile.LastName)
}

func TestSignupValidation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*SignupInput)
	}{
		{"missing email", func(in *SignupInput) { in.Email = "" }},
		{"invalid email", func(in *SignupInput) { in.Email = "not-an-email" }},
		{"missing first name", func(in *SignupInput) { in.FirstName = "  " }},
		{"missing last name", func(in *SignupInput) { in.LastName = "" }},
		{"short password", func(in *SignupInput) { in.Password = "abc"; in.ConfirmPassword = "abc" }},
		{"password mismatch", func(in *SignupInput) { in.ConfirmPassword = "different1" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			_, _, err := service.Signup(ctx, in)
			require.Error(t, err)

			var valErr *ValidationError
			assert.ErrorAs(t, err, &valErr)
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := service.Signup(ctx, validInput())
	require.NoError(t, err)

	_, _, err = service.Signup(ctx, validInput())
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	service, profiles := newTestService(t)
	ctx := context.Background()

	created, _, err := service.Signup(ctx, validInput())
	require.NoError(t, err)

	account, session, err := service.Login(ctx, "Jane@Example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
	assert.NotEmpty(t, session.Token)

	profile, err := profiles.GetUserByUID(ctx, account.ID)
	require.NoError(t, err)
	assert.NotNil(t, profile.LastLoginAt)
}

func TestLoginWrongPassword(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := service.Signup(ctx, validInput())
	require.NoError(t, err)

	_, _, err = service.Login(ctx, "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = service.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionLifecycle(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	account, session, err := service.Signup(ctx, validInput())
	require.NoError(t, err)

	resolved, err := service.ValidateSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, resolved.ID)

	require.NoError(t, service.Logout(ctx, session.Token))

	_, err = service.ValidateSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.ErrorIs(t, service.Logout(ctx, session.Token), ErrSessionNotFound)
}

func TestExpiredSessionRejected(t *testing.T) {
	service, _ := newTestService(t)
	service.sessionTTL = -time.Minute // sessions are born expired
	ctx := context.Background()

	_, session, err := service.Signup(ctx, validInput())
	require.NoError(t, err)

	_, err = service.ValidateSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSubscribe(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	events, cancel := service.Subscribe()
	defer cancel()

	account, session, err := service.Signup(ctx, validInput())
	require.NoError(t, err)

	event := <-events
	assert.Equal(t, EventSignedIn, event.Kind)
	assert.Equal(t, account.ID, event.UserID)

	require.NoError(t, service.Logout(ctx, session.Token))

	event = <-events
	assert.Equal(t, EventSignedOut, event.Kind)
	assert.Equal(t, account.ID, event.UserID)
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	service, _ := newTestService(t)

	events, cancel := service.Subscribe()
	cancel()

	_, open := <-events
	assert.False(t, open)

	// Publishing after cancel must not panic
	_, _, err := service.Signup(context.Background(), validInput())
	require.NoError(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.NoError(t, VerifyPassword("secret123", hash))
	assert.ErrorIs(t, VerifyPassword("other", hash), ErrInvalidCredentials)
}
