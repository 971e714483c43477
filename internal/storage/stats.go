package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ykihara/commentguard/internal/model"
)

// IncrementDailyStats atomically adds the delta to one day's counters. The
// row is created on first increment. Callers must never read-modify-write
// these counters; the single upsert statement is what keeps concurrent
// batches from losing updates.
func (s *SQLiteStorage) IncrementDailyStats(ctx context.Context, date string, delta model.StatsDelta) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(date, "date"); err != nil {
		return err
	}
	if delta.IsZero() {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_stats (
			date, positive_count, question_count, constructive_count,
			blocked_count, total_processed, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(date) DO UPDATE SET
			positive_count = positive_count + excluded.positive_count,
			question_count = question_count + excluded.question_count,
			constructive_count = constructive_count + excluded.constructive_count,
			blocked_count = blocked_count + excluded.blocked_count,
			total_processed = total_processed + excluded.total_processed,
			updated_at = CURRENT_TIMESTAMP
	`, date, delta.Positive, delta.Question, delta.Constructive, delta.Blocked, delta.Processed)
	if err != nil {
		return fmt.Errorf("failed to increment daily stats for %s: %w", date, err)
	}
	return nil
}

// GetDailyStats returns the aggregate counters for a date. A date with no
// increments yet returns zero counters, not an error.
func (s *SQLiteStorage) GetDailyStats(ctx context.Context, date string) (*model.DailyStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(date, "date"); err != nil {
		return nil, err
	}

	stats := &model.DailyStats{Date: date}
	err := s.db.QueryRowContext(ctx, `
		SELECT positive_count, question_count, constructive_count, blocked_count, total_processed
		FROM daily_stats WHERE date = ?
	`, date).Scan(
		&stats.PositiveCount,
		&stats.QuestionCount,
		&stats.ConstructiveCount,
		&stats.BlockedCount,
		&stats.TotalProcessed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats for %s: %w", date, err)
	}
	return stats, nil
}
