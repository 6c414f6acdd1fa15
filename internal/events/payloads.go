package events

import (
	"time"

	"github.com/mcdev12/quizrally/internal/models"
)

// RoundStartedPayload is the payload for a RoundStarted event. The answer is
// intentionally absent; clients only learn it when the round finishes.
type RoundStartedPayload struct {
	QuestionID     string    `json:"question_id"`
	Category       string    `json:"category"`
	Text           string    `json:"text"`
	Choices        []string  `json:"choices"`
	Points         int       `json:"points"`
	RoundIndex     int       `json:"round_index"`
	TotalQuestions int       `json:"total_questions"`
	TotalSeconds   int       `json:"total_seconds"`
	StartedAt      time.Time `json:"started_at"`
	DeadlineAt     time.Time `json:"deadline_at"`
}

// TimerTickPayload carries the per-second countdown update.
type TimerTickPayload struct {
	QuestionID       string    `json:"question_id"`
	RemainingSec     int       `json:"remaining_sec"`
	PercentRemaining float64   `json:"percent_remaining"`
	TickedAt         time.Time `json:"ticked_at"`
}

// RoundFinishedPayload reports how a round ended and reveals the answer.
type RoundFinishedPayload struct {
	QuestionID string              `json:"question_id"`
	RoundIndex int                 `json:"round_index"`
	Reason     models.FinishReason `json:"reason"`
	Answer     string              `json:"answer"`
	FinishedAt time.Time           `json:"finished_at"`
}

// SessionCompletedPayload closes out a tournament session.
type SessionCompletedPayload struct {
	QuestionsPlayed int       `json:"questions_played"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
}
