package services

import (
	"testing"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-ai/internal/models"
)

func TestRatingForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  fsrs.Rating
	}{
		{0, fsrs.Again},
		{49.9, fsrs.Again},
		{50, fsrs.Hard},
		{69, fsrs.Hard},
		{70, fsrs.Good},
		{89.5, fsrs.Good},
		{90, fsrs.Easy},
		{100, fsrs.Easy},
		{140, fsrs.Easy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RatingForScore(tt.score), "score %v", tt.score)
	}
}

func TestPlanWithoutHistory(t *testing.T) {
	plan := NewScheduleService().Plan(nil)

	assert.Equal(t, 0, plan.Reviews)
	assert.Equal(t, "new", plan.State)
	assert.Nil(t, plan.Due)
	assert.Empty(t, plan.LastRating)
}

func TestPlanReplaysHistory(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	history := []models.ScoreEntry{
		{Score: 40, SubmittedAt: start},
		{Score: 75, SubmittedAt: start.Add(24 * time.Hour)},
		{Score: 95, SubmittedAt: start.Add(72 * time.Hour)},
	}

	plan := NewScheduleService().Plan(history)

	assert.Equal(t, 3, plan.Reviews)
	assert.Equal(t, "easy", plan.LastRating)
	assert.NotEqual(t, "new", plan.State)
	require.NotNil(t, plan.Due)
	assert.True(t, plan.Due.After(history[2].SubmittedAt), "due %s", plan.Due)
}
