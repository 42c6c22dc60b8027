package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) RecordVisitor(ctx context.Context, visitor Visitor) (Visitor, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO visitors (ip_hash, user_agent, accept_lang, referrer, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, visitor.IPHash, visitor.UserAgent, visitor.AcceptLang, visitor.Referrer,
		visitor.UserID).Scan(&visitor.ID, &visitor.CreatedAt)
	if err != nil {
		return Visitor{}, fmt.Errorf("insert visitor: %w", err)
	}
	return visitor, nil
}

func (s *PostgresStore) VisitorStats(ctx context.Context) (VisitorStats, error) {
	var stats VisitorStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT ip_hash), COUNT(DISTINCT user_id) FILTER (WHERE user_id IS NOT NULL), MAX(created_at)
		FROM visitors
	`).Scan(&stats.Total, &stats.UniqueIPs, &stats.LoggedIn, &stats.LastVisitAt)
	if err != nil {
		return VisitorStats{}, fmt.Errorf("visitor stats: %w", err)
	}
	return stats, nil
}
