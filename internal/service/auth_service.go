package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"skyview/api/internal/config"
	"skyview/api/internal/identity"
	"skyview/api/internal/ids"
	"skyview/api/internal/models"
	"skyview/api/internal/security"
	"skyview/api/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// AuthService owns registration, login, and token refresh against the
// record store. It is the identity-provider collaborator: everything
// downstream sees only the resolved UserAccount.
type AuthService struct {
	records  store.Store
	sessions identity.Sessions
	cfg      *config.AppConfig
	log      zerolog.Logger
	now      func() time.Time
}

func NewAuthService(records store.Store, sessions identity.Sessions, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		records:  records,
		sessions: sessions,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	PhotoURL string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	Account      models.UserAccount
}

// Register creates the auth identity and its account document. The
// first account ever created gets the admin role; everyone after is a
// plain user. The exists-check and the create are separate store calls,
// so two simultaneous first signups could both end up admin. Accepted.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" || input.Name == "" {
		return AuthResult{}, fmt.Errorf("name and email required")
	}
	if err := security.ValidatePassword(input.Password); err != nil {
		return AuthResult{}, err
	}

	taken, err := s.records.QueryWhere(ctx, models.CollectionUsers, store.Where("email", email))
	if err != nil {
		return AuthResult{}, err
	}
	if len(taken) > 0 {
		return AuthResult{}, ErrEmailTaken
	}

	all, err := s.records.QueryWhere(ctx, models.CollectionUsers, store.All())
	if err != nil {
		return AuthResult{}, err
	}
	role := models.RoleUser
	if len(all) == 0 {
		role = models.RoleAdmin
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	account := models.UserAccount{
		UID:          ids.New(),
		Name:         input.Name,
		Email:        email,
		PasswordHash: passwordHash,
		PhotoURL:     input.PhotoURL,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}

	docID, err := s.records.Create(ctx, models.CollectionUsers, account)
	if err != nil {
		return AuthResult{}, err
	}
	account.ID = docID

	s.log.Info().
		Str("uid", account.UID).
		Str("role", string(role)).
		Msg("account registered")

	return s.createSession(ctx, account)
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))

	account, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, account.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.createSession(ctx, account)
}

type RefreshInput struct {
	SessionID    string
	RefreshToken string
}

// Refresh rotates the refresh token and issues a new access token.
func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (AuthResult, error) {
	session, err := s.sessions.Get(ctx, input.SessionID)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	hash := security.HashRefreshToken(input.RefreshToken)
	if string(hash) != string(session.RefreshTokenHash) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if session.ExpiresAt.Before(s.now()) {
		_ = s.sessions.Delete(ctx, session.ID)
		return AuthResult{}, ErrInvalidCredentials
	}

	account, err := s.UserByUID(ctx, session.UID)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, account, session.ID)
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// UserByUID implements identity.Provider.
func (s *AuthService) UserByUID(ctx context.Context, uid string) (models.UserAccount, error) {
	docs, err := s.records.QueryWhere(ctx, models.CollectionUsers, store.Where("uid", uid))
	if err != nil {
		return models.UserAccount{}, err
	}
	if len(docs) == 0 {
		return models.UserAccount{}, ErrUserNotFound
	}

	var account models.UserAccount
	if err := docs[0].Decode(&account); err != nil {
		return models.UserAccount{}, err
	}
	account.ID = docs[0].ID
	return account, nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (models.UserAccount, error) {
	docs, err := s.records.QueryWhere(ctx, models.CollectionUsers, store.Where("email", email))
	if err != nil {
		return models.UserAccount{}, err
	}
	if len(docs) == 0 {
		return models.UserAccount{}, ErrUserNotFound
	}

	var account models.UserAccount
	if err := docs[0].Decode(&account); err != nil {
		return models.UserAccount{}, err
	}
	account.ID = docs[0].ID
	return account, nil
}

func (s *AuthService) createSession(ctx context.Context, account models.UserAccount) (AuthResult, error) {
	return s.issueTokens(ctx, account, ids.New())
}

func (s *AuthService) issueTokens(ctx context.Context, account models.UserAccount, sessionID string) (AuthResult, error) {
	refreshToken, refreshHash, err := security.GenerateRefreshToken()
	if err != nil {
		return AuthResult{}, err
	}

	session := identity.Session{
		ID:               sessionID,
		UID:              account.UID,
		RefreshTokenHash: refreshHash,
		ExpiresAt:        s.now().Add(s.cfg.Security.RefreshTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return AuthResult{}, err
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		account.UID,
		sessionID,
		string(account.Role),
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		Account:      account,
	}, nil
}
