package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search over the
// entries.search_vector column.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := []string{
		"user_id = $1",
		"deleted_at IS NULL",
		"purged_at IS NULL",
		"search_vector @@ plainto_tsquery('english', $2)",
	}
	args := []any{q.UserID, q.Text}
	for _, tag := range q.Tags {
		encoded, err := json.Marshal([]string{tag})
		if err != nil {
			return nil, 0, fmt.Errorf("marshal tag filter: %w", err)
		}
		args = append(args, string(encoded))
		where = append(where, fmt.Sprintf("tags @> $%d::jsonb", len(args)))
	}
	condition := strings.Join(where, " AND ")

	ctx := context.Background()

	var total int
	countSQL := "SELECT count(*) FROM entries WHERE " + condition
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT id, ts_headline('english', body, plainto_tsquery('english', $2), 'MaxFragments=1,MaxWords=30'),
			tags, mood, to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM entries
		WHERE %s
		ORDER BY ts_rank(search_vector, plainto_tsquery('english', $2)) DESC
		LIMIT %d OFFSET %d
	`, condition, limit, offset)

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r       Result
			tagsRaw []byte
			moodRaw []byte
		)
		if err := rows.Scan(&r.ID, &r.Snippet, &tagsRaw, &moodRaw, &r.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		_ = json.Unmarshal(tagsRaw, &r.Tags)
		_ = json.Unmarshal(moodRaw, &r.Mood)
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every live entry for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]EntryRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, body, tags, mood, to_char(created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"')
		FROM entries
		WHERE deleted_at IS NULL AND purged_at IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	records := make([]EntryRecord, 0)
	for rows.Next() {
		var (
			record  EntryRecord
			tagsRaw []byte
			moodRaw []byte
		)
		if err := rows.Scan(&record.ID, &record.UserID, &record.Body, &tagsRaw, &moodRaw, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		_ = json.Unmarshal(tagsRaw, &record.Tags)
		_ = json.Unmarshal(moodRaw, &record.Mood)
		records = append(records, record)
	}
	return records, rows.Err()
}
