package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const entryColumns = `
	id, user_id, body, mood, tags, media, deleted_at, purged_at, created_at, updated_at
`

func scanEntry(scan func(dest ...any) error) (Entry, error) {
	var (
		entry    Entry
		moodRaw  []byte
		tagsRaw  []byte
		mediaRaw []byte
	)
	err := scan(
		&entry.ID, &entry.UserID, &entry.Body, &moodRaw, &tagsRaw, &mediaRaw,
		&entry.DeletedAt, &entry.PurgedAt, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return Entry{}, err
	}
	_ = json.Unmarshal(moodRaw, &entry.Mood)
	_ = json.Unmarshal(tagsRaw, &entry.Tags)
	_ = json.Unmarshal(mediaRaw, &entry.Media)
	return entry, nil
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshal string list: %w", err)
	}
	return string(encoded), nil
}

func (s *PostgresStore) CreateEntry(ctx context.Context, entry Entry) (Entry, error) {
	mood, err := encodeStrings(entry.Mood)
	if err != nil {
		return Entry{}, err
	}
	tags, err := encodeStrings(entry.Tags)
	if err != nil {
		return Entry{}, err
	}
	media, err := encodeStrings(entry.Media)
	if err != nil {
		return Entry{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO entries (id, user_id, body, mood, tags, media)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::jsonb)
		RETURNING `+entryColumns+`
	`, entry.ID, entry.UserID, entry.Body, mood, tags, media)
	created, err := scanEntry(row.Scan)
	if err != nil {
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetEntry(ctx context.Context, userID, entryID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM entries WHERE id=$1 AND user_id=$2
	`, entryID, userID)
	return scanEntry(row.Scan)
}

// ListEntries returns the user's entries newest first, plus the total
// count matching the filter before pagination.
func (s *PostgresStore) ListEntries(ctx context.Context, userID string, filter EntryFilter) ([]Entry, int, error) {
	where := []string{"user_id = $1", "purged_at IS NULL"}
	args := []any{userID}

	if filter.Deleted {
		where = append(where, "deleted_at IS NOT NULL")
	} else {
		where = append(where, "deleted_at IS NULL")
	}
	if len(filter.Tags) > 0 {
		encoded, err := encodeStrings(filter.Tags)
		if err != nil {
			return nil, 0, err
		}
		args = append(args, encoded)
		where = append(where, fmt.Sprintf("tags @> $%d::jsonb", len(args)))
	}
	if len(filter.Moods) > 0 {
		encoded, err := encodeStrings(filter.Moods)
		if err != nil {
			return nil, 0, err
		}
		args = append(args, encoded)
		where = append(where, fmt.Sprintf("mood @> $%d::jsonb", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}

	condition := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE `+condition, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT %s FROM entries
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, entryColumns, condition, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

func (s *PostgresStore) UpdateEntry(ctx context.Context, entry Entry) (Entry, error) {
	mood, err := encodeStrings(entry.Mood)
	if err != nil {
		return Entry{}, err
	}
	tags, err := encodeStrings(entry.Tags)
	if err != nil {
		return Entry{}, err
	}
	media, err := encodeStrings(entry.Media)
	if err != nil {
		return Entry{}, err
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE entries
		SET body=$3, mood=$4::jsonb, tags=$5::jsonb, media=$6::jsonb, updated_at=NOW()
		WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL
		RETURNING `+entryColumns+`
	`, entry.ID, entry.UserID, entry.Body, mood, tags, media)
	updated, err := scanEntry(row.Scan)
	if err != nil {
		return Entry{}, err
	}
	return updated, nil
}

func (s *PostgresStore) SoftDeleteEntry(ctx context.Context, userID, entryID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE entries SET deleted_at=NOW(), updated_at=NOW()
		WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL
	`, entryID, userID)
	if err != nil {
		return fmt.Errorf("soft delete entry: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) RestoreEntry(ctx context.Context, userID, entryID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE entries SET deleted_at=NULL, updated_at=NOW()
		WHERE id=$1 AND user_id=$2 AND deleted_at IS NOT NULL AND purged_at IS NULL
		RETURNING `+entryColumns+`
	`, entryID, userID)
	return scanEntry(row.Scan)
}

// PurgeEntries blanks the content of entries soft-deleted before the
// cutoff. Rows stay behind as tombstones so restore attempts can report
// a proper conflict instead of a miss.
func (s *PostgresStore) PurgeEntries(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET body='', mood='[]'::jsonb, tags='[]'::jsonb, media='[]'::jsonb, purged_at=NOW(), updated_at=NOW()
		WHERE deleted_at IS NOT NULL AND deleted_at < $1 AND purged_at IS NULL
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge entries: %w", err)
	}
	affected, _ := result.RowsAffected()
	return int(affected), nil
}

// ListMoodsBetween feeds the bliss analytics: mood triads with their
// timestamps for all live entries in [from, to).
func (s *PostgresStore) ListMoodsBetween(ctx context.Context, userID string, from, to time.Time) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mood, created_at FROM entries
		WHERE user_id=$1 AND deleted_at IS NULL AND purged_at IS NULL
			AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list moods: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry   Entry
			moodRaw []byte
		)
		if err := rows.Scan(&entry.ID, &moodRaw, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mood row: %w", err)
		}
		_ = json.Unmarshal(moodRaw, &entry.Mood)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) AddFollowUp(ctx context.Context, userID string, followUp FollowUp) (FollowUp, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO entry_follow_ups (id, entry_id, body)
		SELECT $1, e.id, $3
		FROM entries e
		WHERE e.id=$2 AND e.user_id=$4 AND e.deleted_at IS NULL
		RETURNING id, entry_id, body, created_at
	`, followUp.ID, followUp.EntryID, followUp.Body, userID).Scan(
		&followUp.ID, &followUp.EntryID, &followUp.Body, &followUp.CreatedAt,
	)
	if err != nil {
		return FollowUp{}, err
	}
	return followUp, nil
}

func (s *PostgresStore) ListFollowUps(ctx context.Context, userID, entryID string) ([]FollowUp, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.entry_id, f.body, f.created_at
		FROM entry_follow_ups f
		JOIN entries e ON e.id = f.entry_id
		WHERE f.entry_id=$1 AND e.user_id=$2
		ORDER BY f.created_at ASC
	`, entryID, userID)
	if err != nil {
		return nil, fmt.Errorf("list follow-ups: %w", err)
	}
	defer rows.Close()

	followUps := []FollowUp{}
	for rows.Next() {
		var followUp FollowUp
		if err := rows.Scan(&followUp.ID, &followUp.EntryID, &followUp.Body, &followUp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan follow-up: %w", err)
		}
		followUps = append(followUps, followUp)
	}
	return followUps, rows.Err()
}
