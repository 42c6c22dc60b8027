package app

import (
	"context"
	"net/http"
	"sort"
	"time"

	"lucid/api/internal/emotion"
)

const defaultBlissWindow = 30 * 24 * time.Hour

// BlissDay is one day of mood analytics. Date is a calendar day in the
// user's timezone.
type BlissDay struct {
	Date       string  `json:"date"`
	BlissScore int     `json:"blissScore"`
	Bucket     string  `json:"bucket"`
	Opacity    float64 `json:"opacity"`
	EntryCount int     `json:"entryCount"`
}

// DailyBliss aggregates the user's mood triads per calendar day and
// scores each day. Days without entries are omitted. Bucketing happens
// in the user's stored timezone so a late-night entry lands on the day
// the user experienced, not the UTC day.
func (s *Service) DailyBliss(ctx context.Context, userID string, from, to *time.Time) ([]BlissDay, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		loc = time.UTC
	}

	now := time.Now()
	rangeTo := now
	if to != nil {
		rangeTo = *to
	}
	rangeFrom := rangeTo.Add(-defaultBlissWindow)
	if from != nil {
		rangeFrom = *from
	}
	if !rangeFrom.Before(rangeTo) {
		return nil, domainError(http.StatusBadRequest, "INVALID_RANGE", "from must be before to", nil)
	}

	entries, err := s.store.ListMoodsBetween(ctx, userID, rangeFrom, rangeTo)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][][]string)
	for _, entry := range entries {
		day := entry.CreatedAt.In(loc).Format("2006-01-02")
		byDay[day] = append(byDay[day], entry.Mood)
	}

	days := make([]BlissDay, 0, len(byDay))
	for day, moods := range byDay {
		score := emotion.DailyBlissScore(moods)
		days = append(days, BlissDay{
			Date:       day,
			BlissScore: score,
			Bucket:     emotion.BlissBucket(score),
			Opacity:    emotion.BlissOpacity(score),
			EntryCount: len(moods),
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days, nil
}
