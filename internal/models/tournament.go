package models

import (
	"time"

	"github.com/google/uuid"
)

// Tournament represents one game night. The owner is fixed at creation time;
// no update operation exists for tournaments.
type Tournament struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// SessionResult is the persisted outcome of one tournament session.
type SessionResult struct {
	TournamentID    uuid.UUID `json:"tournament_id"`
	QuestionsPlayed int       `json:"questions_played"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
}
