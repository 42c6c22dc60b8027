package store

import (
	"context"
	"database/sql"
	"fmt"
)

const feedbackColumns = `
	id, user_id, subject, message, category, rating, status, created_at, updated_at
`

func (s *PostgresStore) CreateFeedback(ctx context.Context, feedback Feedback) (Feedback, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO feedback (id, user_id, subject, message, category, rating)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+feedbackColumns+`
	`, feedback.ID, feedback.UserID, feedback.Subject, feedback.Message,
		feedback.Category, feedback.Rating).Scan(
		&feedback.ID, &feedback.UserID, &feedback.Subject, &feedback.Message,
		&feedback.Category, &feedback.Rating, &feedback.Status,
		&feedback.CreatedAt, &feedback.UpdatedAt,
	)
	if err != nil {
		return Feedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	return feedback, nil
}

func (s *PostgresStore) ListFeedback(ctx context.Context, status string, page, limit int) ([]Feedback, int, error) {
	condition := "TRUE"
	args := []any{}
	if status != "" {
		args = append(args, status)
		condition = "status = $1"
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback WHERE `+condition, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}

	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	query := fmt.Sprintf(`
		SELECT %s FROM feedback
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, feedbackColumns, condition, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	items := []Feedback{}
	for rows.Next() {
		var item Feedback
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.Subject, &item.Message,
			&item.Category, &item.Rating, &item.Status,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan feedback: %w", err)
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (s *PostgresStore) UpdateFeedbackStatus(ctx context.Context, feedbackID, status string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE feedback SET status=$2, updated_at=NOW() WHERE id=$1
	`, feedbackID, status)
	if err != nil {
		return fmt.Errorf("update feedback status: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
