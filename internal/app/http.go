package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lucid/api/internal/auth"
	"lucid/api/internal/authpw"
	"lucid/api/internal/rbac"
)

const maxMediaUploadBytes = 10 << 20 // 10 MiB

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	if strings.HasPrefix(r.URL.Path, "/api/auth/") {
		s.handleAuth(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/emotions" {
		writeJSON(w, http.StatusOK, map[string]any{"emotions": s.service.Emotions()})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/tags/preview" {
		var body struct {
			Text string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tags": s.service.PreviewTags(body.Text)})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/visits" {
		s.handleRecordVisit(w, r)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	switch parts[1] {
	case "me":
		s.handleMe(w, r, session)
	case "entries":
		s.handleEntries(w, r, session, parts[2:])
	case "media":
		s.handleMediaUpload(w, r, session)
	case "feedback":
		s.handleFeedback(w, r, session, parts[2:])
	case "visitors":
		s.handleVisitors(w, r, session, parts[2:])
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{"status": "error", "error": err.Error()}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	switch strings.TrimPrefix(r.URL.Path, "/api/auth/") {
	case "signup":
		var body struct {
			Email     string `json:"email"`
			Password  string `json:"password"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			Timezone  string `json:"timezone"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.SignUp(r.Context(), authpw.SignUpRequest{
			Email:     body.Email,
			Password:  body.Password,
			FirstName: body.FirstName,
			LastName:  body.LastName,
			Timezone:  body.Timezone,
		})
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payload)

	case "signin":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.SignIn(r.Context(), body.Email, body.Password)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(session))

	case "verify-email":
		var body struct {
			Token string `json:"token"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.VerifyEmail(r.Context(), body.Token); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case "resend-verification":
		var body struct {
			Email string `json:"email"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ResendVerification(r.Context(), body.Email); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case "reset-password/request":
		var body struct {
			Email string `json:"email"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.RequestPasswordReset(r.Context(), body.Email); err != nil {
			writeMappedError(w, err)
			return
		}
		// Same answer whether or not the address exists.
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case "reset-password":
		var body struct {
			Token       string `json:"token"`
			NewPassword string `json:"newPassword"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ResetPassword(r.Context(), body.Token, body.NewPassword); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case "refresh":
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(session))

	case "logout":
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		s.service.Logout(r.Context(), body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case "change-password":
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			CurrentPassword string `json:"currentPassword"`
			NewPassword     string `json:"newPassword"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.ChangePassword(r.Context(), session.UserID, body.CurrentPassword, body.NewPassword); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request, session Session) {
	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.Profile(r.Context(), session.UserID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case http.MethodPut:
		var input UpdateProfileInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateProfile(r.Context(), session.UserID, input)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)

	case http.MethodDelete:
		if err := s.service.DeactivateAccount(r.Context(), session.UserID); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleEntries(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if !s.service.Can(session.Role, rbac.ActionRead) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return
	}

	// /api/entries
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodPost:
			var input EntryInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.CreateEntry(r.Context(), session.UserID, input)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, payload)
		case http.MethodGet:
			query, err := parseEntryListQuery(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
				return
			}
			payload, err := s.service.ListEntries(r.Context(), session.UserID, query)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	// /api/entries/{bliss|search|archive}
	if len(parts) == 1 {
		switch parts[0] {
		case "bliss":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
				return
			}
			from, to, err := parseDateRange(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
				return
			}
			days, err := s.service.DailyBliss(r.Context(), session.UserID, from, to)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"days": days})
			return
		case "search":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
				return
			}
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			response := s.service.SearchEntries(
				session.UserID,
				r.URL.Query().Get("q"),
				splitCSV(r.URL.Query().Get("tags")),
				limit,
				offset,
			)
			writeJSON(w, http.StatusOK, response)
			return
		case "archive":
			if r.Method != http.MethodGet {
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
				return
			}
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			payload, err := s.service.ListArchivedEntries(r.Context(), session.UserID, page, limit)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
			return
		}
	}

	entryID := parts[0]

	// /api/entries/{id}
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.GetEntry(r.Context(), session.UserID, entryID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		case http.MethodPut:
			var input EntryInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.UpdateEntry(r.Context(), session.UserID, entryID, input)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		case http.MethodDelete:
			if err := s.service.DeleteEntry(r.Context(), session.UserID, entryID); err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	// /api/entries/{id}/restore and /api/entries/{id}/follow-ups
	if len(parts) == 2 {
		switch parts[1] {
		case "restore":
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
				return
			}
			payload, err := s.service.RestoreEntry(r.Context(), session.UserID, entryID)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
			return
		case "follow-ups":
			switch r.Method {
			case http.MethodPost:
				var body struct {
					Body string `json:"body"`
				}
				if err := decodeBody(r, &body); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
					return
				}
				payload, err := s.service.AddFollowUp(r.Context(), session.UserID, entryID, body.Body)
				if err != nil {
					writeMappedError(w, err)
					return
				}
				writeJSON(w, http.StatusCreated, payload)
			case http.MethodGet:
				items, err := s.service.ListFollowUps(r.Context(), session.UserID, entryID)
				if err != nil {
					writeMappedError(w, err)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"followUps": items})
			default:
				writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			}
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleMediaUpload(w http.ResponseWriter, r *http.Request, session Session) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	if !s.service.media.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "MEDIA_UNAVAILABLE", "Media storage not configured", nil)
		return
	}

	if err := r.ParseMultipartForm(maxMediaUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "Invalid multipart upload", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_UPLOAD", "Missing file field", nil)
		return
	}
	defer file.Close()

	url, err := s.service.media.Upload(
		r.Context(),
		session.UserID,
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
		header.Size,
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", "Upload failed", nil)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"url": url})
}

func (s *HTTPServer) handleFeedback(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodPost:
			var input FeedbackInput
			if err := decodeBody(r, &input); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.SubmitFeedback(r.Context(), session.UserID, input)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, payload)
		case http.MethodGet:
			if !s.service.Can(session.Role, rbac.ActionModerate) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			payload, err := s.service.ListFeedback(r.Context(), r.URL.Query().Get("status"), page, limit)
			if err != nil {
				writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	// /api/feedback/{id}/status
	if len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPut {
		if !s.service.Can(session.Role, rbac.ActionModerate) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var body struct {
			Status string `json:"status"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.UpdateFeedbackStatus(r.Context(), parts[0], body.Status); err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleVisitors(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) == 1 && parts[0] == "stats" && r.Method == http.MethodGet {
		if !s.service.Can(session.Role, rbac.ActionModerate) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		payload, err := s.service.VisitorStats(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handleRecordVisit is public: it works with or without a session.
func (s *HTTPServer) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	input := VisitInput{
		UserAgent:  r.UserAgent(),
		AcceptLang: r.Header.Get("Accept-Language"),
		Referrer:   r.Referer(),
	}
	if token := bearerToken(r); token != "" {
		if session, err := s.service.SessionFromToken(r.Context(), token); err == nil {
			input.UserID = session.UserID
		}
	}

	if err := s.service.RecordVisit(r.Context(), clientIP(r), input); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseEntryListQuery(r *http.Request) (EntryListQuery, error) {
	query := EntryListQuery{
		Tags:  splitCSV(r.URL.Query().Get("tags")),
		Moods: splitCSV(r.URL.Query().Get("mood")),
	}
	query.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	query.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	from, to, err := parseDateRange(r)
	if err != nil {
		return EntryListQuery{}, err
	}
	query.DateFrom = from
	query.DateTo = to
	return query, nil
}

// parseDateRange accepts RFC 3339 timestamps or bare YYYY-MM-DD dates
// in the from/to query params. A bare "to" date is exclusive of the
// following midnight.
func parseDateRange(r *http.Request) (from, to *time.Time, err error) {
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := parseTimeParam(raw, false)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid from date %q", raw)
		}
		from = &parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := parseTimeParam(raw, true)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid to date %q", raw)
		}
		to = &parsed
	}
	return from, to, nil
}

func parseTimeParam(raw string, endOfDay bool) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		parsed = parsed.AddDate(0, 0, 1)
	}
	return parsed, nil
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"userId":       session.UserID,
		"email":        session.Email,
		"firstName":    session.FirstName,
		"role":         session.Role,
		"timezone":     session.Timezone,
		"expiresAt":    session.ExpiresAt,
	}
}
