package app

import (
	"context"
	"net/http"
	"strings"

	"lucid/api/internal/store"
	"lucid/api/internal/util"
)

var feedbackCategories = map[string]bool{
	"general": true,
	"bug":     true,
	"feature": true,
	"other":   true,
}

var feedbackStatuses = map[string]bool{
	"open":      true,
	"reviewed":  true,
	"resolved":  true,
	"dismissed": true,
}

type FeedbackInput struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Rating   int    `json:"rating"`
}

func (s *Service) SubmitFeedback(ctx context.Context, userID string, input FeedbackInput) (map[string]any, error) {
	if strings.TrimSpace(input.Message) == "" {
		return nil, domainError(http.StatusBadRequest, "INVALID_FEEDBACK", "Feedback message is required", nil)
	}
	category := input.Category
	if category == "" {
		category = "general"
	}
	if !feedbackCategories[category] {
		return nil, domainError(http.StatusBadRequest, "INVALID_FEEDBACK", "Unknown feedback category", nil)
	}
	if input.Rating < 0 || input.Rating > 5 {
		return nil, domainError(http.StatusBadRequest, "INVALID_FEEDBACK", "Rating must be between 0 and 5", nil)
	}

	feedback, err := s.store.CreateFeedback(ctx, store.Feedback{
		ID:       util.NewID("fbk"),
		UserID:   userID,
		Subject:  strings.TrimSpace(input.Subject),
		Message:  strings.TrimSpace(input.Message),
		Category: category,
		Rating:   input.Rating,
	})
	if err != nil {
		return nil, err
	}
	return feedbackPayload(feedback), nil
}

func (s *Service) ListFeedback(ctx context.Context, status string, page, limit int) (map[string]any, error) {
	if status != "" && !feedbackStatuses[status] {
		return nil, domainError(http.StatusBadRequest, "INVALID_FEEDBACK", "Unknown feedback status", nil)
	}
	items, total, err := s.store.ListFeedback(ctx, status, page, limit)
	if err != nil {
		return nil, err
	}
	payloads := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, feedbackPayload(item))
	}
	return map[string]any{"feedback": payloads, "total": total}, nil
}

func (s *Service) UpdateFeedbackStatus(ctx context.Context, feedbackID, status string) error {
	if !feedbackStatuses[status] {
		return domainError(http.StatusBadRequest, "INVALID_FEEDBACK", "Unknown feedback status", nil)
	}
	return s.store.UpdateFeedbackStatus(ctx, feedbackID, status)
}

type VisitInput struct {
	UserAgent  string
	AcceptLang string
	Referrer   string
	UserID     string
}

// RecordVisit stores a visit keyed by HMAC of the IP; the raw address
// is never written anywhere.
func (s *Service) RecordVisit(ctx context.Context, ip string, input VisitInput) error {
	visitor := store.Visitor{
		IPHash:     s.HashIP(ip),
		UserAgent:  input.UserAgent,
		AcceptLang: input.AcceptLang,
		Referrer:   input.Referrer,
	}
	if input.UserID != "" {
		visitor.UserID = &input.UserID
	}
	_, err := s.store.RecordVisitor(ctx, visitor)
	return err
}

func (s *Service) VisitorStats(ctx context.Context) (map[string]any, error) {
	stats, err := s.store.VisitorStats(ctx)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"total":     stats.Total,
		"uniqueIps": stats.UniqueIPs,
		"loggedIn":  stats.LoggedIn,
	}
	if stats.LastVisitAt != nil {
		payload["lastVisitAt"] = stats.LastVisitAt
	}
	return payload, nil
}

func feedbackPayload(feedback store.Feedback) map[string]any {
	return map[string]any{
		"id":        feedback.ID,
		"userId":    feedback.UserID,
		"subject":   feedback.Subject,
		"message":   feedback.Message,
		"category":  feedback.Category,
		"rating":    feedback.Rating,
		"status":    feedback.Status,
		"createdAt": feedback.CreatedAt,
		"updatedAt": feedback.UpdatedAt,
	}
}
