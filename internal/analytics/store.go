// Package analytics owns the process-wide upload and quiz counters.
package analytics

import (
	"context"
	"fmt"

	"study-ai/internal/models"
)

// RecentLimit is the number of most recent scores reported.
const RecentLimit = 5

// Store records uploads and quiz scores. Implementations serialize all
// mutations: counters never decrease and scores keep submission order.
type Store interface {
	RecordUpload(ctx context.Context) error
	RecordQuiz(ctx context.Context, score float64) error
	Summary(ctx context.Context) (models.AnalyticsSummary, error)
	Scores(ctx context.Context) ([]models.ScoreEntry, error)
	Close() error
}

// Open returns the store for the named backend.
func Open(backend string) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore()
	default:
		return nil, fmt.Errorf("unknown analytics backend %q", backend)
	}
}

func summarize(uploads, quizzes int64, scores []float64) models.AnalyticsSummary {
	summary := models.AnalyticsSummary{
		Uploads: uploads,
		Quizzes: quizzes,
		Recent:  []float64{},
	}
	if len(scores) == 0 {
		return summary
	}

	summary.AvgScore = mean(scores)

	start := len(scores) - RecentLimit
	if start < 0 {
		start = 0
	}
	summary.Recent = append(summary.Recent, scores[start:]...)
	return summary
}

// mean is a running average. It stays finite for any finite inputs.
func mean(values []float64) float64 {
	var avg float64
	for i, v := range values {
		n := float64(i + 1)
		avg += v/n - avg/n
	}
	return avg
}
