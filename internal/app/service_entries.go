package app

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"lucid/api/internal/emotion"
	"lucid/api/internal/search"
	"lucid/api/internal/store"
	"lucid/api/internal/tagging"
	"lucid/api/internal/util"
)

const (
	maxMoodLabels = 3
	maxBodyLength = 20000

	// Soft-deleted entries become unrecoverable after this long.
	archiveRetention = 30 * 24 * time.Hour
)

type EntryInput struct {
	Body  string   `json:"body"`
	Mood  []string `json:"mood"`
	Tags  []string `json:"tags"`
	Media []string `json:"media"`
}

type EntryListQuery struct {
	Tags     []string
	Moods    []string
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

func (s *Service) CreateEntry(ctx context.Context, userID string, input EntryInput) (map[string]any, error) {
	if err := validateEntryInput(input); err != nil {
		return nil, err
	}

	entry, err := s.store.CreateEntry(ctx, store.Entry{
		ID:     util.NewID("ent"),
		UserID: userID,
		Body:   input.Body,
		Mood:   input.Mood,
		Tags:   entryTags(input),
		Media:  input.Media,
	})
	if err != nil {
		return nil, err
	}

	s.indexEntry(entry)
	return entryPayload(entry), nil
}

func (s *Service) GetEntry(ctx context.Context, userID, entryID string) (map[string]any, error) {
	entry, err := s.store.GetEntry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	return entryPayload(entry), nil
}

func (s *Service) ListEntries(ctx context.Context, userID string, query EntryListQuery) (map[string]any, error) {
	entries, total, err := s.store.ListEntries(ctx, userID, store.EntryFilter{
		Tags:     query.Tags,
		Moods:    query.Moods,
		DateFrom: query.DateFrom,
		DateTo:   query.DateTo,
		Page:     query.Page,
		Limit:    query.Limit,
	})
	if err != nil {
		return nil, err
	}
	return entryListPayload(entries, total, query.Page, query.Limit), nil
}

// UpdateEntry replaces the body, mood, tags and media. When the input
// carries no tags they are regenerated from the new body.
func (s *Service) UpdateEntry(ctx context.Context, userID, entryID string, input EntryInput) (map[string]any, error) {
	if err := validateEntryInput(input); err != nil {
		return nil, err
	}

	entry, err := s.store.UpdateEntry(ctx, store.Entry{
		ID:     entryID,
		UserID: userID,
		Body:   input.Body,
		Mood:   input.Mood,
		Media:  input.Media,
		Tags:   entryTags(input),
	})
	if err != nil {
		return nil, err
	}

	s.indexEntry(entry)
	return entryPayload(entry), nil
}

func (s *Service) DeleteEntry(ctx context.Context, userID, entryID string) error {
	if err := s.store.SoftDeleteEntry(ctx, userID, entryID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteEntry(entryID)
	}
	return nil
}

func (s *Service) ListArchivedEntries(ctx context.Context, userID string, page, limit int) (map[string]any, error) {
	entries, total, err := s.store.ListEntries(ctx, userID, store.EntryFilter{
		Deleted: true,
		Page:    page,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	return entryListPayload(entries, total, page, limit), nil
}

func (s *Service) RestoreEntry(ctx context.Context, userID, entryID string) (map[string]any, error) {
	current, err := s.store.GetEntry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if current.PurgedAt != nil {
		return nil, domainError(http.StatusGone, "ENTRY_PURGED", "Entry content was purged and cannot be restored", nil)
	}

	entry, err := s.store.RestoreEntry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	s.indexEntry(entry)
	return entryPayload(entry), nil
}

// PurgeExpired blanks entries whose archive retention ran out. Returns
// how many were purged.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	return s.store.PurgeEntries(ctx, time.Now().Add(-archiveRetention))
}

// StartPurgeLoop purges expired archives once immediately and then on
// every tick until ctx is cancelled.
func (s *Service) StartPurgeLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if purged, err := s.PurgeExpired(ctx); err != nil {
				log.Printf("app: archive purge failed: %v", err)
			} else if purged > 0 {
				log.Printf("app: purged %d expired archived entries", purged)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (s *Service) AddFollowUp(ctx context.Context, userID, entryID, body string) (map[string]any, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domainError(http.StatusBadRequest, "INVALID_FOLLOW_UP", "Follow-up body is required", nil)
	}

	followUp, err := s.store.AddFollowUp(ctx, userID, store.FollowUp{
		ID:      util.NewID("fwp"),
		EntryID: entryID,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	return followUpPayload(followUp), nil
}

func (s *Service) ListFollowUps(ctx context.Context, userID, entryID string) ([]map[string]any, error) {
	if _, err := s.store.GetEntry(ctx, userID, entryID); err != nil {
		return nil, err
	}
	followUps, err := s.store.ListFollowUps(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(followUps))
	for _, followUp := range followUps {
		items = append(items, followUpPayload(followUp))
	}
	return items, nil
}

func (s *Service) SearchEntries(userID, text string, tags []string, limit, offset int) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}
	}
	return s.search.Search(search.Query{
		UserID: userID,
		Text:   text,
		Tags:   tags,
		Limit:  limit,
		Offset: offset,
	})
}

// PreviewTags classifies text without persisting anything, so clients
// can show tags while the user is still typing.
func (s *Service) PreviewTags(text string) []string {
	return tagging.GenerateTags(text)
}

// Emotions lists every known emotion label with its valence, for mood
// pickers.
func (s *Service) Emotions() []map[string]any {
	items := make([]map[string]any, 0, len(emotion.Valence))
	for label, score := range emotion.Valence {
		items = append(items, map[string]any{"label": label, "valence": score})
	}
	return items
}

func (s *Service) indexEntry(entry store.Entry) {
	if s.search == nil || entry.DeletedAt != nil {
		return
	}
	s.search.IndexEntry(search.EntryRecord{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Body:      entry.Body,
		Tags:      entry.Tags,
		Mood:      entry.Mood,
		CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// entryTags keeps explicit tags when the caller supplied them and falls
// back to classifying the body.
func entryTags(input EntryInput) []string {
	if len(input.Tags) > 0 {
		return input.Tags
	}
	return tagging.GenerateTags(input.Body)
}

func validateEntryInput(input EntryInput) error {
	if strings.TrimSpace(input.Body) == "" {
		return domainError(http.StatusBadRequest, "INVALID_ENTRY", "Entry body is required", nil)
	}
	if len(input.Body) > maxBodyLength {
		return domainError(http.StatusBadRequest, "INVALID_ENTRY", "Entry body is too long", nil)
	}
	if len(input.Mood) > maxMoodLabels {
		return domainError(http.StatusBadRequest, "INVALID_ENTRY", "At most three mood labels are allowed", nil)
	}
	return nil
}

func entryPayload(entry store.Entry) map[string]any {
	score := emotion.ScoreTriad(entry.Mood)
	payload := map[string]any{
		"id":        entry.ID,
		"body":      entry.Body,
		"mood":      nonNilStrings(entry.Mood),
		"moodScore": score,
		"tags":      nonNilStrings(entry.Tags),
		"media":     nonNilStrings(entry.Media),
		"createdAt": entry.CreatedAt,
		"updatedAt": entry.UpdatedAt,
	}
	if entry.DeletedAt != nil {
		payload["deletedAt"] = entry.DeletedAt
	}
	if entry.PurgedAt != nil {
		payload["purgedAt"] = entry.PurgedAt
	}
	return payload
}

func entryListPayload(entries []store.Entry, total, page, limit int) map[string]any {
	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		items = append(items, entryPayload(entry))
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return map[string]any{
		"entries": items,
		"total":   total,
		"page":    page,
		"limit":   limit,
	}
}

func followUpPayload(followUp store.FollowUp) map[string]any {
	return map[string]any{
		"id":        followUp.ID,
		"entryId":   followUp.EntryID,
		"body":      followUp.Body,
		"createdAt": followUp.CreatedAt,
	}
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
