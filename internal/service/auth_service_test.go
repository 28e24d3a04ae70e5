package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"skyview/api/internal/config"
	"skyview/api/internal/identity"
	"skyview/api/internal/models"
	"skyview/api/internal/security"
	"skyview/api/internal/store"
)

type fakeSessions struct {
	byID map[string]identity.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: make(map[string]identity.Session)}
}

func (f *fakeSessions) Save(_ context.Context, session identity.Session) error {
	f.byID[session.ID] = session
	return nil
}

func (f *fakeSessions) Get(_ context.Context, id string) (identity.Session, error) {
	session, ok := f.byID[id]
	if !ok {
		return identity.Session{}, identity.ErrSessionNotFound
	}
	return session, nil
}

func (f *fakeSessions) Delete(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Security: config.SecurityConfig{
			JWTAccessSecret: "test-secret",
			JWTAccessTTL:    15 * time.Minute,
			RefreshTTL:      24 * time.Hour,
		},
	}
}

func newTestAuth() (*AuthService, *fakeSessions) {
	sessions := newFakeSessions()
	svc := NewAuthService(store.NewMemory(), sessions, testConfig(), zerolog.Nop())
	return svc, sessions
}

func TestRegisterFirstAccountIsAdmin(t *testing.T) {
	svc, _ := newTestAuth()
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "Ada@Example.com", Password: "Sesame1"})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, first.Account.Role)
	require.Equal(t, "ada@example.com", first.Account.Email, "email normalized to lower case")
	require.NotEmpty(t, first.AccessToken)
	require.NotEmpty(t, first.RefreshToken)
	require.NotEmpty(t, first.SessionID)

	second, err := svc.Register(ctx, RegisterInput{Name: "Bo", Email: "bo@example.com", Password: "Sesame1"})
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, second.Account.Role)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuth()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "Sesame1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "Imposter", Email: "ADA@example.com", Password: "Sesame1"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, _ := newTestAuth()
	ctx := context.Background()

	for _, password := range []string{"Ab1", "alllower1", "ALLUPPER1"} {
		_, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: password})
		require.ErrorIs(t, err, security.ErrWeakPassword, password)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAuth()
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "Sesame1"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "Sesame1"})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", result.Account.Email)

	claims, err := security.ParseAccessToken(result.AccessToken, "test-secret")
	require.NoError(t, err)
	require.Equal(t, result.Account.UID, claims.UserID)
	require.Equal(t, result.SessionID, claims.SessionID)

	_, err = svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "wrongPass1"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Sesame1"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, sessions := newTestAuth()
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "Sesame1"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, RefreshInput{SessionID: registered.SessionID, RefreshToken: registered.RefreshToken})
	require.NoError(t, err)
	require.Equal(t, registered.SessionID, rotated.SessionID)
	require.NotEqual(t, registered.RefreshToken, rotated.RefreshToken)

	// The old refresh token died with the rotation.
	_, err = svc.Refresh(ctx, RefreshInput{SessionID: registered.SessionID, RefreshToken: registered.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Refresh(ctx, RefreshInput{SessionID: "missing", RefreshToken: rotated.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	require.Len(t, sessions.byID, 1)
}

func TestRefreshExpiredSession(t *testing.T) {
	svc, sessions := newTestAuth()
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "Sesame1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	_, err = svc.Refresh(ctx, RefreshInput{SessionID: registered.SessionID, RefreshToken: registered.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Empty(t, sessions.byID, "expired session removed")
}

func TestLogoutEndsSession(t *testing.T) {
	svc, sessions := newTestAuth()
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "Sesame1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, registered.SessionID))
	require.Empty(t, sessions.byID)

	_, err = svc.Refresh(ctx, RefreshInput{SessionID: registered.SessionID, RefreshToken: registered.RefreshToken})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserByUID(t *testing.T) {
	svc, _ := newTestAuth()
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "Sesame1"})
	require.NoError(t, err)

	account, err := svc.UserByUID(ctx, registered.Account.UID)
	require.NoError(t, err)
	require.Equal(t, "Ada", account.Name)

	_, err = svc.UserByUID(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}
