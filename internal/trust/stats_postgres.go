package trust

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dragoonbuster/MeatSocial/internal/verification/models"
)

// PostgresStats reads social-graph aggregates from PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE user_social_stats (
//	    user_id   TEXT PRIMARY KEY,
//	    followers INTEGER NOT NULL DEFAULT 0,
//	    following INTEGER NOT NULL DEFAULT 0
//	);
//
//	CREATE TABLE user_reports (
//	    id               UUID PRIMARY KEY,
//	    reported_user_id TEXT NOT NULL,
//	    created_at       TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX user_reports_reported_user_idx ON user_reports (reported_user_id);
type PostgresStats struct {
	db *sql.DB
}

func NewPostgresStats(db *sql.DB) *PostgresStats {
	return &PostgresStats{db: db}
}

func (s *PostgresStats) SocialStats(ctx context.Context, userID string) (models.SocialStats, error) {
	var stats models.SocialStats
	err := s.db.QueryRowContext(ctx,
		`SELECT followers, following FROM user_social_stats WHERE user_id = $1`,
		userID).Scan(&stats.Followers, &stats.Following)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SocialStats{}, nil
	}
	if err != nil {
		return models.SocialStats{}, fmt.Errorf("social stats: %w", err)
	}
	return stats, nil
}

func (s *PostgresStats) ReportsReceived(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_reports WHERE reported_user_id = $1`,
		userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("report count: %w", err)
	}
	return count, nil
}
