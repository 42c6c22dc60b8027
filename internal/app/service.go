// Package app wires the journal domain together: auth sessions, journal
// entries with mood scoring and auto-tagging, feedback, visitor metrics
// and the HTTP surface.
package app

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"lucid/api/internal/auth"
	"lucid/api/internal/authpw"
	"lucid/api/internal/config"
	"lucid/api/internal/email"
	"lucid/api/internal/media"
	"lucid/api/internal/rbac"
	"lucid/api/internal/search"
	"lucid/api/internal/session"
	"lucid/api/internal/store"
	"lucid/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	Email        string
	FirstName    string
	Role         string
	Timezone     string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	CreateUser(context.Context, store.User) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByVerificationToken(context.Context, string) (store.User, error)
	MarkEmailVerified(context.Context, string) error
	SetVerificationToken(context.Context, string, string, time.Time) error
	UpdateUserProfile(context.Context, store.User) (store.User, error)
	UpdateUserPassword(context.Context, string, string) error
	DeactivateUser(context.Context, string) error

	SaveRefreshSession(context.Context, store.RefreshSession) error
	LookupRefreshSession(context.Context, string) (store.RefreshSession, error)
	RevokeRefreshSession(context.Context, string) error
	RevokeUserRefreshSessions(context.Context, string) error
	SavePasswordReset(context.Context, store.PasswordReset) error
	ConsumePasswordReset(context.Context, string) (store.PasswordReset, error)

	CreateEntry(context.Context, store.Entry) (store.Entry, error)
	GetEntry(context.Context, string, string) (store.Entry, error)
	ListEntries(context.Context, string, store.EntryFilter) ([]store.Entry, int, error)
	UpdateEntry(context.Context, store.Entry) (store.Entry, error)
	SoftDeleteEntry(context.Context, string, string) error
	RestoreEntry(context.Context, string, string) (store.Entry, error)
	PurgeEntries(context.Context, time.Time) (int, error)
	ListMoodsBetween(context.Context, string, time.Time, time.Time) ([]store.Entry, error)
	AddFollowUp(context.Context, string, store.FollowUp) (store.FollowUp, error)
	ListFollowUps(context.Context, string, string) ([]store.FollowUp, error)

	CreateFeedback(context.Context, store.Feedback) (store.Feedback, error)
	ListFeedback(context.Context, string, int, int) ([]store.Feedback, int, error)
	UpdateFeedbackStatus(context.Context, string, string) error

	RecordVisitor(context.Context, store.Visitor) (store.Visitor, error)
	VisitorStats(context.Context) (store.VisitorStats, error)

	Ping(ctx context.Context) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	authpw   *authpw.Service
	sessions *session.RedisStore // nil when Redis is not configured
	email    *email.Service
	media    *media.Service
	search   *search.Service
}

func New(cfg config.Config, dataStore *store.PostgresStore) *Service {
	return &Service{
		cfg:    cfg,
		store:  dataStore,
		authpw: authpw.NewService(dataStore),
		email:  email.NewService(email.Config{}),
	}
}

// WithSessions plugs in Redis-backed refresh sessions. Without it the
// Postgres refresh_sessions table carries the load alone.
func (s *Service) WithSessions(sessions *session.RedisStore) *Service {
	s.sessions = sessions
	return s
}

func (s *Service) WithEmail(emailSvc *email.Service) *Service {
	s.email = emailSvc
	return s
}

func (s *Service) WithMedia(mediaSvc *media.Service) *Service {
	s.media = mediaSvc
	return s
}

func (s *Service) WithSearch(searchSvc *search.Service) *Service {
	s.search = searchSvc
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// SignUp registers the account and mails the verification link. The
// returned payload never includes tokens: sign-in requires a verified
// email first.
func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (map[string]any, error) {
	result, err := s.authpw.SignUp(ctx, req)
	if err != nil {
		if errors.Is(err, authpw.ErrEmailTaken) {
			return nil, domainError(http.StatusConflict, "EMAIL_TAKEN", "Email already registered", nil)
		}
		return nil, domainError(http.StatusBadRequest, "INVALID_SIGNUP", err.Error(), nil)
	}

	s.sendAsync("verification email", func() error {
		verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.AppBaseURL, result.VerificationToken)
		return s.email.SendVerificationEmail(result.User.Email, result.User.FirstName, verifyURL)
	})

	return map[string]any{
		"userId":              result.User.ID,
		"email":               result.User.Email,
		"requiresEmailVerify": true,
	}, nil
}

func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (Session, error) {
	user, err := s.authpw.SignIn(ctx, emailAddr, password)
	if err != nil {
		switch {
		case errors.Is(err, authpw.ErrEmailNotVerified):
			return Session{}, domainError(http.StatusForbidden, "EMAIL_NOT_VERIFIED", "Verify your email before signing in", nil)
		case errors.Is(err, authpw.ErrAccountDeactivated):
			return Session{}, domainError(http.StatusForbidden, "ACCOUNT_DEACTIVATED", "Account is deactivated", nil)
		default:
			return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
	}
	return s.issueSession(ctx, user)
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	user, err := s.authpw.VerifyEmail(ctx, token)
	if err != nil {
		return domainError(http.StatusBadRequest, "INVALID_TOKEN", "Invalid or expired verification token", nil)
	}

	s.sendAsync("welcome email", func() error {
		return s.email.SendWelcomeEmail(user.Email, user.FirstName, s.cfg.AppBaseURL)
	})
	return nil
}

func (s *Service) ResendVerification(ctx context.Context, emailAddr string) error {
	token, err := s.authpw.ResendVerification(ctx, emailAddr)
	if err != nil {
		return err
	}
	if token == "" {
		// Unknown or already verified; answer uniformly.
		return nil
	}

	user, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		return nil
	}
	s.sendAsync("verification email", func() error {
		verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.cfg.AppBaseURL, token)
		return s.email.SendVerificationEmail(user.Email, user.FirstName, verifyURL)
	})
	return nil
}

func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	token, err := s.authpw.RequestPasswordReset(ctx, emailAddr)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	user, err := s.store.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		return nil
	}
	s.sendAsync("password reset email", func() error {
		resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.AppBaseURL, token)
		return s.email.SendPasswordResetEmail(user.Email, user.FirstName, resetURL)
	})
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.authpw.ResetPassword(ctx, token, newPassword)
	if err != nil {
		if errors.Is(err, authpw.ErrInvalidResetToken) {
			return domainError(http.StatusBadRequest, "INVALID_TOKEN", "Invalid or expired reset token", nil)
		}
		return domainError(http.StatusBadRequest, "INVALID_PASSWORD", err.Error(), nil)
	}
	s.revokeRedisSessions(ctx, userID)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := s.authpw.ChangePassword(ctx, userID, currentPassword, newPassword); err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			return domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Current password is wrong", nil)
		}
		return domainError(http.StatusBadRequest, "INVALID_PASSWORD", err.Error(), nil)
	}
	s.revokeRedisSessions(ctx, userID)
	return nil
}

// Refresh rotates the refresh token: the presented one dies whether or
// not a new session gets issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)

	userID, err := s.lookupRefresh(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	s.revokeRefresh(ctx, tokenHash)

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if user.DeactivatedAt != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	s.revokeRefresh(ctx, auth.HashToken(refreshToken))
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Sub,
		Email:     claims.Email,
		FirstName: claims.Name,
		Role:      claims.Role,
		Timezone:  claims.TZ,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:   user.ID,
		Email: user.Email,
		Name:  user.FirstName,
		Role:  user.Role,
		TZ:    user.Timezone,
		JTI:   jti,
		Exp:   expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.saveRefresh(ctx, auth.HashToken(refresh), user.ID, jti, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		Role:         user.Role,
		Timezone:     user.Timezone,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) saveRefresh(ctx context.Context, tokenHash, userID, jti string, expiresAt time.Time) error {
	if s.sessions != nil {
		err := s.sessions.Save(ctx, tokenHash, session.Token{UserID: userID, JTI: jti}, expiresAt)
		if err == nil {
			return nil
		}
		log.Printf("session: redis save failed, using postgres: %v", err)
	}
	return s.store.SaveRefreshSession(ctx, store.RefreshSession{
		TokenHash: tokenHash,
		UserID:    userID,
		JTI:       jti,
		ExpiresAt: expiresAt,
	})
}

func (s *Service) lookupRefresh(ctx context.Context, tokenHash string) (string, error) {
	if s.sessions != nil {
		token, err := s.sessions.Lookup(ctx, tokenHash)
		if err == nil {
			return token.UserID, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			log.Printf("session: redis lookup failed, using postgres: %v", err)
		}
	}
	record, err := s.store.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return "", err
	}
	return record.UserID, nil
}

func (s *Service) revokeRefresh(ctx context.Context, tokenHash string) {
	if s.sessions != nil {
		if err := s.sessions.Revoke(ctx, tokenHash); err != nil {
			log.Printf("session: redis revoke failed: %v", err)
		}
	}
	if err := s.store.RevokeRefreshSession(ctx, tokenHash); err != nil {
		log.Printf("session: postgres revoke failed: %v", err)
	}
}

// revokeRedisSessions clears every Redis-held refresh token for the
// user. The Postgres side is revoked where the credential itself
// changes; without this the Redis copies would outlive a password
// change until their TTL.
func (s *Service) revokeRedisSessions(ctx context.Context, userID string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		log.Printf("session: redis bulk revoke failed: %v", err)
	}
}

func (s *Service) Profile(ctx context.Context, userID string) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userPayload(user), nil
}

type UpdateProfileInput struct {
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	Timezone       *string `json:"timezone"`
	ProfilePicture *string `json:"profilePicture"`
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (map[string]any, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		if *input.FirstName == "" {
			return nil, domainError(http.StatusBadRequest, "INVALID_PROFILE", "First name cannot be empty", nil)
		}
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil {
			return nil, domainError(http.StatusBadRequest, "INVALID_TIMEZONE", fmt.Sprintf("Unknown timezone %q", *input.Timezone), nil)
		}
		user.Timezone = *input.Timezone
	}
	if input.ProfilePicture != nil {
		if user.ProfilePicture != "" && user.ProfilePicture != *input.ProfilePicture {
			old := user.ProfilePicture
			s.sendAsync("remove old profile picture", func() error {
				return s.media.Remove(context.Background(), old)
			})
		}
		user.ProfilePicture = *input.ProfilePicture
	}

	updated, err := s.store.UpdateUserProfile(ctx, user)
	if err != nil {
		return nil, err
	}
	return userPayload(updated), nil
}

// DeactivateAccount soft-disables the account and kills every session.
func (s *Service) DeactivateAccount(ctx context.Context, userID string) error {
	if err := s.store.DeactivateUser(ctx, userID); err != nil {
		return err
	}
	s.revokeRedisSessions(ctx, userID)
	return s.store.RevokeUserRefreshSessions(ctx, userID)
}

// HashIP keys visitor rows without retaining the address itself.
func (s *Service) HashIP(ip string) string {
	mac := hmac.New(sha256.New, []byte(s.cfg.IPHashSecret))
	_, _ = mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Service) sendAsync(what string, send func() error) {
	go func() {
		if err := send(); err != nil {
			log.Printf("app: %s failed: %v", what, err)
		}
	}()
}

func userPayload(user store.User) map[string]any {
	return map[string]any{
		"id":             user.ID,
		"firstName":      user.FirstName,
		"lastName":       user.LastName,
		"email":          user.Email,
		"role":           user.Role,
		"timezone":       user.Timezone,
		"profilePicture": user.ProfilePicture,
		"emailVerified":  user.IsEmailVerified,
		"createdAt":      user.CreatedAt,
	}
}
