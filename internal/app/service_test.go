package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"lucid/api/internal/authpw"
	"lucid/api/internal/config"
	"lucid/api/internal/email"
	"lucid/api/internal/session"
	"lucid/api/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

type fakeStore struct {
	createUserFn            func(context.Context, store.User) (store.User, error)
	getUserByIDFn           func(context.Context, string) (store.User, error)
	getUserByEmailFn        func(context.Context, string) (store.User, error)
	updateUserProfileFn     func(context.Context, store.User) (store.User, error)
	deactivateUserFn        func(context.Context, string) error
	saveRefreshSessionFn    func(context.Context, store.RefreshSession) error
	lookupRefreshSessionFn  func(context.Context, string) (store.RefreshSession, error)
	revokeRefreshSessionFn  func(context.Context, string) error
	createEntryFn           func(context.Context, store.Entry) (store.Entry, error)
	getEntryFn              func(context.Context, string, string) (store.Entry, error)
	listEntriesFn           func(context.Context, string, store.EntryFilter) ([]store.Entry, int, error)
	updateEntryFn           func(context.Context, store.Entry) (store.Entry, error)
	softDeleteEntryFn       func(context.Context, string, string) error
	restoreEntryFn          func(context.Context, string, string) (store.Entry, error)
	purgeEntriesFn          func(context.Context, time.Time) (int, error)
	listMoodsBetweenFn      func(context.Context, string, time.Time, time.Time) ([]store.Entry, error)
	addFollowUpFn           func(context.Context, string, store.FollowUp) (store.FollowUp, error)
	listFollowUpsFn         func(context.Context, string, string) ([]store.FollowUp, error)
	createFeedbackFn        func(context.Context, store.Feedback) (store.Feedback, error)
	listFeedbackFn          func(context.Context, string, int, int) ([]store.Feedback, int, error)
	updateFeedbackStatusFn  func(context.Context, string, string) error
	recordVisitorFn         func(context.Context, store.Visitor) (store.Visitor, error)
	visitorStatsFn          func(context.Context) (store.VisitorStats, error)
	revokeUserSessionsFn    func(context.Context, string) error
	setVerificationTokenFn  func(context.Context, string, string, time.Time) error
	markEmailVerifiedFn     func(context.Context, string) error
	updateUserPasswordFn    func(context.Context, string, string) error
	savePasswordResetFn     func(context.Context, store.PasswordReset) error
	consumePasswordResetFn  func(context.Context, string) (store.PasswordReset, error)
	getUserByVerifyTokenFn  func(context.Context, string) (store.User, error)
}

func (f *fakeStore) CreateUser(ctx context.Context, user store.User) (store.User, error) {
	if f.createUserFn != nil {
		return f.createUserFn(ctx, user)
	}
	return user, nil
}
func (f *fakeStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, userID)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) GetUserByEmail(ctx context.Context, emailAddr string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, emailAddr)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) GetUserByVerificationToken(ctx context.Context, token string) (store.User, error) {
	if f.getUserByVerifyTokenFn != nil {
		return f.getUserByVerifyTokenFn(ctx, token)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) MarkEmailVerified(ctx context.Context, userID string) error {
	if f.markEmailVerifiedFn != nil {
		return f.markEmailVerifiedFn(ctx, userID)
	}
	return nil
}
func (f *fakeStore) SetVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	if f.setVerificationTokenFn != nil {
		return f.setVerificationTokenFn(ctx, userID, token, expiresAt)
	}
	return nil
}
func (f *fakeStore) UpdateUserProfile(ctx context.Context, user store.User) (store.User, error) {
	if f.updateUserProfileFn != nil {
		return f.updateUserProfileFn(ctx, user)
	}
	return user, nil
}
func (f *fakeStore) UpdateUserPassword(ctx context.Context, userID, hash string) error {
	if f.updateUserPasswordFn != nil {
		return f.updateUserPasswordFn(ctx, userID, hash)
	}
	return nil
}
func (f *fakeStore) DeactivateUser(ctx context.Context, userID string) error {
	if f.deactivateUserFn != nil {
		return f.deactivateUserFn(ctx, userID)
	}
	return nil
}
func (f *fakeStore) SaveRefreshSession(ctx context.Context, session store.RefreshSession) error {
	if f.saveRefreshSessionFn != nil {
		return f.saveRefreshSessionFn(ctx, session)
	}
	return nil
}
func (f *fakeStore) LookupRefreshSession(ctx context.Context, tokenHash string) (store.RefreshSession, error) {
	if f.lookupRefreshSessionFn != nil {
		return f.lookupRefreshSessionFn(ctx, tokenHash)
	}
	return store.RefreshSession{}, sql.ErrNoRows
}
func (f *fakeStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	if f.revokeRefreshSessionFn != nil {
		return f.revokeRefreshSessionFn(ctx, tokenHash)
	}
	return nil
}
func (f *fakeStore) RevokeUserRefreshSessions(ctx context.Context, userID string) error {
	if f.revokeUserSessionsFn != nil {
		return f.revokeUserSessionsFn(ctx, userID)
	}
	return nil
}
func (f *fakeStore) SavePasswordReset(ctx context.Context, reset store.PasswordReset) error {
	if f.savePasswordResetFn != nil {
		return f.savePasswordResetFn(ctx, reset)
	}
	return nil
}
func (f *fakeStore) ConsumePasswordReset(ctx context.Context, tokenHash string) (store.PasswordReset, error) {
	if f.consumePasswordResetFn != nil {
		return f.consumePasswordResetFn(ctx, tokenHash)
	}
	return store.PasswordReset{}, sql.ErrNoRows
}
func (f *fakeStore) CreateEntry(ctx context.Context, entry store.Entry) (store.Entry, error) {
	if f.createEntryFn != nil {
		return f.createEntryFn(ctx, entry)
	}
	entry.CreatedAt = time.Now()
	entry.UpdatedAt = entry.CreatedAt
	return entry, nil
}
func (f *fakeStore) GetEntry(ctx context.Context, userID, entryID string) (store.Entry, error) {
	if f.getEntryFn != nil {
		return f.getEntryFn(ctx, userID, entryID)
	}
	return store.Entry{}, sql.ErrNoRows
}
func (f *fakeStore) ListEntries(ctx context.Context, userID string, filter store.EntryFilter) ([]store.Entry, int, error) {
	if f.listEntriesFn != nil {
		return f.listEntriesFn(ctx, userID, filter)
	}
	return nil, 0, nil
}
func (f *fakeStore) UpdateEntry(ctx context.Context, entry store.Entry) (store.Entry, error) {
	if f.updateEntryFn != nil {
		return f.updateEntryFn(ctx, entry)
	}
	return entry, nil
}
func (f *fakeStore) SoftDeleteEntry(ctx context.Context, userID, entryID string) error {
	if f.softDeleteEntryFn != nil {
		return f.softDeleteEntryFn(ctx, userID, entryID)
	}
	return nil
}
func (f *fakeStore) RestoreEntry(ctx context.Context, userID, entryID string) (store.Entry, error) {
	if f.restoreEntryFn != nil {
		return f.restoreEntryFn(ctx, userID, entryID)
	}
	return store.Entry{}, sql.ErrNoRows
}
func (f *fakeStore) PurgeEntries(ctx context.Context, cutoff time.Time) (int, error) {
	if f.purgeEntriesFn != nil {
		return f.purgeEntriesFn(ctx, cutoff)
	}
	return 0, nil
}
func (f *fakeStore) ListMoodsBetween(ctx context.Context, userID string, from, to time.Time) ([]store.Entry, error) {
	if f.listMoodsBetweenFn != nil {
		return f.listMoodsBetweenFn(ctx, userID, from, to)
	}
	return nil, nil
}
func (f *fakeStore) AddFollowUp(ctx context.Context, userID string, followUp store.FollowUp) (store.FollowUp, error) {
	if f.addFollowUpFn != nil {
		return f.addFollowUpFn(ctx, userID, followUp)
	}
	followUp.CreatedAt = time.Now()
	return followUp, nil
}
func (f *fakeStore) ListFollowUps(ctx context.Context, userID, entryID string) ([]store.FollowUp, error) {
	if f.listFollowUpsFn != nil {
		return f.listFollowUpsFn(ctx, userID, entryID)
	}
	return nil, nil
}
func (f *fakeStore) CreateFeedback(ctx context.Context, feedback store.Feedback) (store.Feedback, error) {
	if f.createFeedbackFn != nil {
		return f.createFeedbackFn(ctx, feedback)
	}
	feedback.Status = "open"
	return feedback, nil
}
func (f *fakeStore) ListFeedback(ctx context.Context, status string, page, limit int) ([]store.Feedback, int, error) {
	if f.listFeedbackFn != nil {
		return f.listFeedbackFn(ctx, status, page, limit)
	}
	return nil, 0, nil
}
func (f *fakeStore) UpdateFeedbackStatus(ctx context.Context, feedbackID, status string) error {
	if f.updateFeedbackStatusFn != nil {
		return f.updateFeedbackStatusFn(ctx, feedbackID, status)
	}
	return nil
}
func (f *fakeStore) RecordVisitor(ctx context.Context, visitor store.Visitor) (store.Visitor, error) {
	if f.recordVisitorFn != nil {
		return f.recordVisitorFn(ctx, visitor)
	}
	return visitor, nil
}
func (f *fakeStore) VisitorStats(ctx context.Context) (store.VisitorStats, error) {
	if f.visitorStatsFn != nil {
		return f.visitorStatsFn(ctx)
	}
	return store.VisitorStats{}, nil
}
func (f *fakeStore) Ping(context.Context) error { return nil }

func testConfig() config.Config {
	return config.Config{
		JWTSecret:    "test-secret",
		IPHashSecret: "test-ip-secret",
		AccessTTL:    15 * time.Minute,
		RefreshTTL:   30 * 24 * time.Hour,
		AppBaseURL:   "http://localhost:3000",
	}
}

func newTestService(fake *fakeStore) *Service {
	return &Service{
		cfg:    testConfig(),
		store:  fake,
		authpw: authpw.NewService(fake),
		email:  email.NewService(email.Config{}),
	}
}

func activeUser() store.User {
	return store.User{
		ID:              "usr_1",
		FirstName:       "River",
		Email:           "river@example.com",
		Role:            "user",
		Timezone:        "UTC",
		IsEmailVerified: true,
	}
}

func TestIssueSessionStoresHashedRefreshToken(t *testing.T) {
	var saved store.RefreshSession
	fake := &fakeStore{
		saveRefreshSessionFn: func(_ context.Context, session store.RefreshSession) error {
			saved = session
			return nil
		},
	}
	svc := newTestService(fake)

	session, err := svc.issueSession(context.Background(), activeUser())
	if err != nil {
		t.Fatalf("issueSession: %v", err)
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if saved.TokenHash == session.RefreshToken {
		t.Fatal("raw refresh token must never be persisted")
	}
	if saved.UserID != "usr_1" || saved.JTI != session.JTI {
		t.Fatalf("unexpected refresh record: %+v", saved)
	}

	parsed, err := svc.SessionFromToken(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("SessionFromToken: %v", err)
	}
	if parsed.UserID != "usr_1" || parsed.Email != "river@example.com" || parsed.Timezone != "UTC" {
		t.Fatalf("unexpected parsed session: %+v", parsed)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	var revoked []string
	fake := &fakeStore{
		lookupRefreshSessionFn: func(_ context.Context, tokenHash string) (store.RefreshSession, error) {
			return store.RefreshSession{TokenHash: tokenHash, UserID: "usr_1"}, nil
		},
		revokeRefreshSessionFn: func(_ context.Context, tokenHash string) error {
			revoked = append(revoked, tokenHash)
			return nil
		},
		getUserByIDFn: func(_ context.Context, _ string) (store.User, error) {
			return activeUser(), nil
		},
	}
	svc := newTestService(fake)

	session, err := svc.Refresh(context.Background(), "old-refresh-token")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(revoked) != 1 {
		t.Fatalf("expected presented token revoked, got %v", revoked)
	}
	if session.RefreshToken == "old-refresh-token" {
		t.Fatal("refresh must rotate the token")
	}
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	fake := &fakeStore{
		lookupRefreshSessionFn: func(_ context.Context, tokenHash string) (store.RefreshSession, error) {
			return store.RefreshSession{TokenHash: tokenHash, UserID: "usr_1"}, nil
		},
		getUserByIDFn: func(_ context.Context, _ string) (store.User, error) {
			user := activeUser()
			now := time.Now()
			user.DeactivatedAt = &now
			return user, nil
		},
	}
	svc := newTestService(fake)

	if _, err := svc.Refresh(context.Background(), "token"); err == nil {
		t.Fatal("deactivated accounts must not refresh")
	}
}

func TestChangePasswordKillsRedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	sessions := session.NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	fake := &fakeStore{
		getUserByIDFn: func(_ context.Context, _ string) (store.User, error) {
			user := activeUser()
			user.PasswordHash = string(hash)
			return user, nil
		},
	}
	svc := newTestService(fake).WithSessions(sessions)
	ctx := context.Background()

	issued, err := svc.issueSession(ctx, activeUser())
	if err != nil {
		t.Fatalf("issueSession: %v", err)
	}
	rotated, err := svc.Refresh(ctx, issued.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh before password change: %v", err)
	}

	if err := svc.ChangePassword(ctx, "usr_1", "hunter2hunter2", "a-new-password-1"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, err := svc.Refresh(ctx, rotated.RefreshToken); err == nil {
		t.Fatal("refresh token issued before the password change must be dead")
	}
}

func TestDeactivateAccountKillsRedisSessions(t *testing.T) {
	mr := miniredis.RunT(t)
	sessions := session.NewRedisStoreWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	fake := &fakeStore{
		getUserByIDFn: func(_ context.Context, _ string) (store.User, error) {
			return activeUser(), nil
		},
	}
	svc := newTestService(fake).WithSessions(sessions)
	ctx := context.Background()

	issued, err := svc.issueSession(ctx, activeUser())
	if err != nil {
		t.Fatalf("issueSession: %v", err)
	}
	if err := svc.DeactivateAccount(ctx, "usr_1"); err != nil {
		t.Fatalf("DeactivateAccount: %v", err)
	}
	if _, err := svc.Refresh(ctx, issued.RefreshToken); err == nil {
		t.Fatal("deactivation must revoke Redis-held refresh tokens")
	}
}

func TestCreateEntryGeneratesTags(t *testing.T) {
	fake := &fakeStore{}
	svc := newTestService(fake)

	payload, err := svc.CreateEntry(context.Background(), "usr_1", EntryInput{
		Body: "feeling joyful and grateful today",
		Mood: []string{"Happy"},
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	// "grateful" hits both the happy list and, within the edit budget,
	// the angry keyword "hateful".
	tags := payload["tags"].([]string)
	if len(tags) != 2 || tags[0] != "happy" || tags[1] != "angry" {
		t.Fatalf("expected auto-generated [happy angry] tags, got %v", tags)
	}
	if payload["moodScore"].(float64) != 2.5 {
		t.Fatalf("expected moodScore 2.5, got %v", payload["moodScore"])
	}
}

func TestCreateEntryKeepsExplicitTags(t *testing.T) {
	svc := newTestService(&fakeStore{})

	payload, err := svc.CreateEntry(context.Background(), "usr_1", EntryInput{
		Body: "feeling joyful and grateful today",
		Tags: []string{"work", "family"},
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	tags := payload["tags"].([]string)
	if len(tags) != 2 || tags[0] != "work" || tags[1] != "family" {
		t.Fatalf("explicit tags must win over classification, got %v", tags)
	}
}

func TestCreateEntryValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})
	ctx := context.Background()

	if _, err := svc.CreateEntry(ctx, "usr_1", EntryInput{Body: "   "}); err == nil {
		t.Fatal("blank body should be rejected")
	}
	if _, err := svc.CreateEntry(ctx, "usr_1", EntryInput{
		Body: "ok",
		Mood: []string{"Happy", "Sad", "Tired", "Angry"},
	}); err == nil {
		t.Fatal("more than three mood labels should be rejected")
	}
	if _, err := svc.CreateEntry(ctx, "usr_1", EntryInput{Body: strings.Repeat("x", maxBodyLength+1)}); err == nil {
		t.Fatal("oversized body should be rejected")
	}
}

func TestUpdateEntryRegeneratesTags(t *testing.T) {
	var updated store.Entry
	fake := &fakeStore{
		updateEntryFn: func(_ context.Context, entry store.Entry) (store.Entry, error) {
			updated = entry
			return entry, nil
		},
	}
	svc := newTestService(fake)

	if _, err := svc.UpdateEntry(context.Background(), "usr_1", "ent_1", EntryInput{
		Body: "so furious about everything",
		Mood: []string{"Angry"},
	}); err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "angry" {
		t.Fatalf("tags should be regenerated from the new body, got %v", updated.Tags)
	}
}

func TestRestoreEntryRejectsPurged(t *testing.T) {
	purgedAt := time.Now().Add(-time.Hour)
	fake := &fakeStore{
		getEntryFn: func(_ context.Context, _, _ string) (store.Entry, error) {
			return store.Entry{ID: "ent_1", PurgedAt: &purgedAt}, nil
		},
	}
	svc := newTestService(fake)

	_, err := svc.RestoreEntry(context.Background(), "usr_1", "ent_1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != http.StatusGone {
		t.Fatalf("expected 410 for purged entry, got %v", err)
	}
}

func TestPurgeExpiredUsesRetentionCutoff(t *testing.T) {
	var cutoff time.Time
	fake := &fakeStore{
		purgeEntriesFn: func(_ context.Context, at time.Time) (int, error) {
			cutoff = at
			return 3, nil
		},
	}
	svc := newTestService(fake)

	purged, err := svc.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if purged != 3 {
		t.Fatalf("expected 3 purged, got %d", purged)
	}
	expected := time.Now().Add(-archiveRetention)
	if cutoff.Before(expected.Add(-time.Minute)) || cutoff.After(expected.Add(time.Minute)) {
		t.Fatalf("cutoff %v not near the 30 day retention boundary", cutoff)
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})
	ctx := context.Background()

	if _, err := svc.SubmitFeedback(ctx, "usr_1", FeedbackInput{Message: ""}); err == nil {
		t.Fatal("empty message should be rejected")
	}
	if _, err := svc.SubmitFeedback(ctx, "usr_1", FeedbackInput{Message: "hi", Category: "spam"}); err == nil {
		t.Fatal("unknown category should be rejected")
	}
	if _, err := svc.SubmitFeedback(ctx, "usr_1", FeedbackInput{Message: "hi", Rating: 9}); err == nil {
		t.Fatal("rating above 5 should be rejected")
	}

	payload, err := svc.SubmitFeedback(ctx, "usr_1", FeedbackInput{Message: "love the app", Rating: 5})
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if payload["category"] != "general" {
		t.Fatalf("expected default category general, got %v", payload["category"])
	}
}

func TestRecordVisitHashesIP(t *testing.T) {
	var recorded store.Visitor
	fake := &fakeStore{
		recordVisitorFn: func(_ context.Context, visitor store.Visitor) (store.Visitor, error) {
			recorded = visitor
			return visitor, nil
		},
	}
	svc := newTestService(fake)

	if err := svc.RecordVisit(context.Background(), "203.0.113.9", VisitInput{UserAgent: "test"}); err != nil {
		t.Fatalf("RecordVisit: %v", err)
	}
	if recorded.IPHash == "" || strings.Contains(recorded.IPHash, "203.0.113.9") {
		t.Fatalf("raw IP must never be stored, got %q", recorded.IPHash)
	}
	if recorded.IPHash != svc.HashIP("203.0.113.9") {
		t.Fatal("hash should be deterministic for the same IP")
	}
	if recorded.UserID != nil {
		t.Fatal("anonymous visit should carry no user ID")
	}
}
