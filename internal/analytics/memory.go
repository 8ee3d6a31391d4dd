package analytics

import (
	"context"
	"sync"
	"time"

	"study-ai/internal/models"
)

// MemoryStore keeps analytics in a mutex-guarded struct.
type MemoryStore struct {
	mu      sync.RWMutex
	uploads int64
	quizzes int64
	scores  []models.ScoreEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) RecordUpload(context.Context) error {
	m.withLock(func() {
		m.uploads++
	})
	return nil
}

func (m *MemoryStore) RecordQuiz(_ context.Context, score float64) error {
	m.withLock(func() {
		m.quizzes++
		m.scores = append(m.scores, models.ScoreEntry{Score: score, SubmittedAt: m.now().UTC()})
	})
	return nil
}

func (m *MemoryStore) Summary(context.Context) (models.AnalyticsSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := make([]float64, len(m.scores))
	for i, entry := range m.scores {
		values[i] = entry.Score
	}
	return summarize(m.uploads, m.quizzes, values), nil
}

// Scores returns a copy of the full history in submission order.
func (m *MemoryStore) Scores(context.Context) ([]models.ScoreEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.ScoreEntry(nil), m.scores...), nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) withLock(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}
