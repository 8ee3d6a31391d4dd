package services

import (
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"study-ai/internal/models"
)

// StudySchedule is the review plan derived from the quiz history.
type StudySchedule struct {
	Reviews       int        `json:"reviews"`
	State         string     `json:"state"`
	Due           *time.Time `json:"due"`
	ScheduledDays uint64     `json:"scheduled_days"`
	LastRating    string     `json:"last_rating,omitempty"`
}

// ScheduleService treats the study material as one FSRS card and every quiz
// submission as a review of it.
type ScheduleService struct {
	params fsrs.Parameters
}

func NewScheduleService() *ScheduleService {
	return &ScheduleService{params: fsrs.DefaultParam()}
}

// RatingForScore maps a percentage score onto an FSRS rating.
func RatingForScore(score float64) fsrs.Rating {
	switch {
	case score < 50:
		return fsrs.Again
	case score < 70:
		return fsrs.Hard
	case score < 90:
		return fsrs.Good
	default:
		return fsrs.Easy
	}
}

// Plan replays the history in submission order.
func (s *ScheduleService) Plan(history []models.ScoreEntry) StudySchedule {
	card := fsrs.Card{State: fsrs.New}
	plan := StudySchedule{Reviews: len(history)}
	for _, entry := range history {
		rating := RatingForScore(entry.Score)
		info, ok := s.params.Repeat(card, entry.SubmittedAt.UTC())[rating]
		if !ok {
			continue
		}
		card = info.Card
		plan.LastRating = ratingName(rating)
	}

	plan.State = stateName(card.State)
	plan.ScheduledDays = card.ScheduledDays
	if !card.Due.IsZero() {
		due := card.Due.UTC()
		plan.Due = &due
	}
	return plan
}

func ratingName(r fsrs.Rating) string {
	switch r {
	case fsrs.Again:
		return "again"
	case fsrs.Hard:
		return "hard"
	case fsrs.Good:
		return "good"
	case fsrs.Easy:
		return "easy"
	default:
		return "unknown"
	}
}

func stateName(s fsrs.State) string {
	switch s {
	case fsrs.New:
		return "new"
	case fsrs.Learning:
		return "learning"
	case fsrs.Review:
		return "review"
	case fsrs.Relearning:
		return "relearning"
	default:
		return "unknown"
	}
}
