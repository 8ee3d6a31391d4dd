package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"study-ai/internal/db"
	"study-ai/internal/models"
)

// SQLiteStore keeps analytics in an in-memory SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore() (*SQLiteStore, error) {
	conn, err := db.OpenMemory()
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: conn}, nil
}

func (s *SQLiteStore) RecordUpload(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE counters SET value = value + 1 WHERE name = 'uploads';
	`); err != nil {
		return fmt.Errorf("increment uploads: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordQuiz(ctx context.Context, score float64) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		UPDATE counters SET value = value + 1 WHERE name = 'quizzes';
	`); err != nil {
		return fmt.Errorf("increment quizzes: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO quiz_scores (score, submitted_at) VALUES (?, ?);
	`, score, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit quiz: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Summary(ctx context.Context) (summary models.AnalyticsSummary, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var uploads, quizzes int64
	if err := tx.QueryRowContext(ctx, `
		SELECT
			COALESCE((SELECT value FROM counters WHERE name = 'uploads'), 0),
			COALESCE((SELECT value FROM counters WHERE name = 'quizzes'), 0);
	`).Scan(&uploads, &quizzes); err != nil {
		return summary, fmt.Errorf("read counters: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT score FROM quiz_scores ORDER BY id ASC;
	`)
	if err != nil {
		return summary, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var score float64
		if err := rows.Scan(&score); err != nil {
			return summary, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("iterate scores: %w", err)
	}

	return summarize(uploads, quizzes, scores), nil
}

func (s *SQLiteStore) Scores(ctx context.Context) ([]models.ScoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT score, submitted_at FROM quiz_scores ORDER BY id ASC;
	`)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var out []models.ScoreEntry
	for rows.Next() {
		var entry models.ScoreEntry
		if err := rows.Scan(&entry.Score, &entry.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
