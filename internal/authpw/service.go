// Package authpw provides email/password authentication with email
// verification and password resets. Token signing and refresh session
// bookkeeping live in the app layer; this package only answers "who is
// this" questions against the user store.
package authpw

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"lucid/api/internal/auth"
	"lucid/api/internal/rbac"
	"lucid/api/internal/store"
	"lucid/api/internal/util"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrInvalidVerifyToken = errors.New("invalid or expired verification token")
)

const (
	minPasswordLength = 8
	verifyTokenTTL    = 24 * time.Hour
	resetTokenTTL     = time.Hour
)

type UserStore interface {
	CreateUser(ctx context.Context, user store.User) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByVerificationToken(ctx context.Context, token string) (store.User, error)
	MarkEmailVerified(ctx context.Context, userID string) error
	SetVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	SavePasswordReset(ctx context.Context, reset store.PasswordReset) error
	ConsumePasswordReset(ctx context.Context, tokenHash string) (store.PasswordReset, error)
	RevokeUserRefreshSessions(ctx context.Context, userID string) error
}

type Service struct {
	store UserStore
}

func NewService(userStore UserStore) *Service {
	return &Service{store: userStore}
}

type SignUpRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Timezone  string
}

type SignUpResult struct {
	User              store.User
	VerificationToken string
}

func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (SignUpResult, error) {
	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		return SignUpResult{}, errors.New("email, password and first name are required")
	}
	if len(req.Password) < minPasswordLength {
		return SignUpResult{}, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return SignUpResult{}, fmt.Errorf("unknown timezone %q", req.Timezone)
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return SignUpResult{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return SignUpResult{}, fmt.Errorf("hash password: %w", err)
	}

	verificationToken, err := generateToken()
	if err != nil {
		return SignUpResult{}, fmt.Errorf("generate verification token: %w", err)
	}
	expiresAt := time.Now().Add(verifyTokenTTL)

	user, err := s.store.CreateUser(ctx, store.User{
		ID:                    util.NewID("usr"),
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		Email:                 req.Email,
		PasswordHash:          string(hash),
		Role:                  string(rbac.RoleUser),
		Timezone:              timezone,
		VerificationToken:     verificationToken,
		VerificationExpiresAt: &expiresAt,
	})
	if err != nil {
		return SignUpResult{}, fmt.Errorf("create user: %w", err)
	}

	return SignUpResult{User: user, VerificationToken: verificationToken}, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (store.User, error) {
	if email == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if user.DeactivatedAt != nil {
		return store.User{}, ErrAccountDeactivated
	}
	if !user.IsEmailVerified {
		return store.User{}, ErrEmailNotVerified
	}
	return user, nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) (store.User, error) {
	if token == "" {
		return store.User{}, ErrInvalidVerifyToken
	}
	user, err := s.store.GetUserByVerificationToken(ctx, token)
	if err != nil {
		return store.User{}, ErrInvalidVerifyToken
	}
	if err := s.store.MarkEmailVerified(ctx, user.ID); err != nil {
		return store.User{}, fmt.Errorf("mark verified: %w", err)
	}
	user.IsEmailVerified = true
	return user, nil
}

// ResendVerification rotates the verification token for an unverified
// account. Returns the new token, or "" when the account does not exist
// or is already verified, so callers can answer uniformly.
func (s *Service) ResendVerification(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil || user.IsEmailVerified {
		return "", nil
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	if err := s.store.SetVerificationToken(ctx, user.ID, token, time.Now().Add(verifyTokenTTL)); err != nil {
		return "", err
	}
	return token, nil
}

// RequestPasswordReset returns the raw reset token, or "" when the email
// is unknown. Never errors on a miss so handlers cannot leak which
// addresses are registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	err = s.store.SavePasswordReset(ctx, store.PasswordReset{
		TokenHash: auth.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes the reset token, rewrites the password and
// revokes the user's stored refresh sessions. Returns the user ID so the
// caller can clear session caches of its own.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if token == "" || newPassword == "" {
		return "", errors.New("token and new password are required")
	}
	if len(newPassword) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	reset, err := s.store.ConsumePasswordReset(ctx, auth.HashToken(token))
	if err != nil {
		return "", ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, reset.UserID, string(hash)); err != nil {
		return "", fmt.Errorf("update password: %w", err)
	}

	// Existing sessions die with the old password.
	return reset.UserID, s.store.RevokeUserRefreshSessions(ctx, reset.UserID)
}

func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return s.store.RevokeUserRefreshSessions(ctx, userID)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
