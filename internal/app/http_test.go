package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lucid/api/internal/store"
)

func newTestServer(t *testing.T, fake *fakeStore) (*httptest.Server, *Service) {
	t.Helper()
	svc := newTestService(fake)
	server := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	t.Cleanup(server.Close)
	return server, svc
}

func bearerFor(t *testing.T, svc *Service, user store.User) string {
	t.Helper()
	session, err := svc.issueSession(context.Background(), user)
	if err != nil {
		t.Fatalf("issueSession: %v", err)
	}
	return "Bearer " + session.Token
}

func doJSON(t *testing.T, method, url, authHeader, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakeStore{})

	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["ok"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestEntriesRequireAuth(t *testing.T) {
	server, _ := newTestServer(t, &fakeStore{})

	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/entries", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if payload["code"] != "UNAUTHORIZED" {
		t.Fatalf("unexpected error payload: %v", payload)
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/entries", "Bearer garbage", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}
}

func TestEntryLifecycleOverHTTP(t *testing.T) {
	entries := map[string]store.Entry{}
	fake := &fakeStore{
		createEntryFn: func(_ context.Context, entry store.Entry) (store.Entry, error) {
			entry.CreatedAt = time.Now()
			entry.UpdatedAt = entry.CreatedAt
			entries[entry.ID] = entry
			return entry, nil
		},
		getEntryFn: func(_ context.Context, userID, entryID string) (store.Entry, error) {
			entry, ok := entries[entryID]
			if !ok || entry.UserID != userID {
				return store.Entry{}, sql.ErrNoRows
			}
			return entry, nil
		},
		softDeleteEntryFn: func(_ context.Context, userID, entryID string) error {
			entry, ok := entries[entryID]
			if !ok || entry.UserID != userID {
				return sql.ErrNoRows
			}
			now := time.Now()
			entry.DeletedAt = &now
			entries[entryID] = entry
			return nil
		},
	}
	server, svc := newTestServer(t, fake)
	token := bearerFor(t, svc, activeUser())

	resp, created := doJSON(t, http.MethodPost, server.URL+"/api/entries", token,
		`{"body":"so furious about everything","mood":["Angry"]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %v", resp.StatusCode, created)
	}
	entryID := created["id"].(string)
	tags := created["tags"].([]any)
	if len(tags) != 1 || tags[0] != "angry" {
		t.Fatalf("expected auto tags [angry], got %v", tags)
	}

	resp, fetched := doJSON(t, http.MethodGet, server.URL+"/api/entries/"+entryID, token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	if fetched["body"] != "so furious about everything" {
		t.Fatalf("unexpected entry body: %v", fetched["body"])
	}

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/api/entries/"+entryID, token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}
	if entries[entryID].DeletedAt == nil {
		t.Fatal("delete should soft-delete, not remove")
	}

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/api/entries/missing", token, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown entry, got %d", resp.StatusCode)
	}
}

func TestEntryValidationOverHTTP(t *testing.T) {
	server, svc := newTestServer(t, &fakeStore{})
	token := bearerFor(t, svc, activeUser())

	resp, payload := doJSON(t, http.MethodPost, server.URL+"/api/entries", token,
		`{"body":"","mood":[]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if payload["code"] != "INVALID_ENTRY" {
		t.Fatalf("unexpected error code: %v", payload["code"])
	}
}

func TestTagsPreviewIsPublic(t *testing.T) {
	server, _ := newTestServer(t, &fakeStore{})

	resp, payload := doJSON(t, http.MethodPost, server.URL+"/api/tags/preview", "",
		`{"text":"feeling joyful and grateful today"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	// "grateful" also lands within the edit budget of the angry keyword
	// "hateful", so two categories come back.
	tags := payload["tags"].([]any)
	if len(tags) != 2 || tags[0] != "happy" || tags[1] != "angry" {
		t.Fatalf("expected [happy angry], got %v", tags)
	}
}

func TestEmotionsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, &fakeStore{})

	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/emotions", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	emotions := payload["emotions"].([]any)
	if len(emotions) == 0 {
		t.Fatal("expected a non-empty emotion list")
	}
}

func TestFeedbackModerationRequiresRole(t *testing.T) {
	fake := &fakeStore{
		listFeedbackFn: func(context.Context, string, int, int) ([]store.Feedback, int, error) {
			return []store.Feedback{{ID: "fbk_1", Message: "hi", Status: "open"}}, 1, nil
		},
	}
	server, svc := newTestServer(t, fake)

	userToken := bearerFor(t, svc, activeUser())
	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/feedback", userToken, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("plain users must not list feedback, got %d", resp.StatusCode)
	}

	admin := activeUser()
	admin.ID = "usr_admin"
	admin.Role = "admin"
	adminToken := bearerFor(t, svc, admin)
	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/feedback", adminToken, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list feedback: expected 200, got %d", resp.StatusCode)
	}
	if payload["total"].(float64) != 1 {
		t.Fatalf("unexpected feedback payload: %v", payload)
	}

	// Submitting feedback is open to any signed-in user.
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/feedback", userToken,
		`{"message":"love the app","rating":5}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit feedback: expected 201, got %d", resp.StatusCode)
	}
}

func TestVisitEndpointRecordsHashedIP(t *testing.T) {
	var recorded store.Visitor
	fake := &fakeStore{
		recordVisitorFn: func(_ context.Context, visitor store.Visitor) (store.Visitor, error) {
			recorded = visitor
			return visitor, nil
		},
	}
	server, _ := newTestServer(t, fake)

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/visits", "", "{}")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if recorded.IPHash == "" || strings.Contains(recorded.IPHash, "127.0.0.1") {
		t.Fatalf("expected hashed IP, got %q", recorded.IPHash)
	}
}

func TestBlissEndpoint(t *testing.T) {
	fake := &fakeStore{
		getUserByIDFn: func(context.Context, string) (store.User, error) {
			return activeUser(), nil
		},
		listMoodsBetweenFn: func(context.Context, string, time.Time, time.Time) ([]store.Entry, error) {
			return []store.Entry{
				{ID: "e1", Mood: []string{"Happy"}, CreatedAt: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	server, svc := newTestServer(t, fake)
	token := bearerFor(t, svc, activeUser())

	resp, payload := doJSON(t, http.MethodGet, server.URL+"/api/entries/bliss", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	days := payload["days"].([]any)
	if len(days) != 1 {
		t.Fatalf("expected one day, got %v", days)
	}
	day := days[0].(map[string]any)
	if day["date"] != "2026-01-10" || day["bucket"] != "excellent" {
		t.Fatalf("unexpected day: %v", day)
	}
	// 2.5/3*100 rounds to 83
	if day["blissScore"].(float64) != 83 {
		t.Fatalf("expected bliss score 83, got %v", day["blissScore"])
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/entries/bliss?from=2026-02-01&to=2026-01-01", token, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for inverted range, got %d", resp.StatusCode)
	}
}
