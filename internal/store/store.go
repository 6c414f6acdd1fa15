// Package store is the authoritative home of users, tournaments, and
// questions. Every mutating operation is atomic with respect to its own
// uniqueness and foreign-key checks; reads return defensive copies so callers
// can never reach into stored state.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/quizrally/internal/common"
	"github.com/mcdev12/quizrally/internal/models"
)

// Store defines the entity operations the rest of the system depends on.
// The in-memory implementation lives in this package; a Postgres-backed one
// lives in store/postgres.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	CreateTournament(ctx context.Context, name string, ownerUserID uuid.UUID) (*models.Tournament, error)
	GetTournament(ctx context.Context, id uuid.UUID) (*models.Tournament, error)
	ListTournaments(ctx context.Context) ([]models.Tournament, error)

	AddQuestion(ctx context.Context, req AddQuestionRequest) (*models.Question, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
	ListQuestions(ctx context.Context) ([]models.Question, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error

	SaveSessionResult(ctx context.Context, result models.SessionResult) error
	GetSessionResult(ctx context.Context, tournamentID uuid.UUID) (*models.SessionResult, error)

	// Seed guarantees a single administrative user exists. Safe to call on
	// every startup.
	Seed(ctx context.Context, username, passwordHash string) error
}

// AddQuestionRequest carries the fields for a new question.
type AddQuestionRequest struct {
	Category string   `json:"category"`
	Text     string   `json:"text"`
	Answer   string   `json:"answer"`
	Choices  []string `json:"choices"`
	Points   int      `json:"points"`
}

// Validate enforces the creation-time constraints. Answer is deliberately not
// checked against Choices.
func (r AddQuestionRequest) Validate() error {
	if r.Text == "" {
		return common.NewValidationError("text", "must not be empty")
	}
	if len(r.Choices) < models.MinChoices || len(r.Choices) > models.MaxChoices {
		return common.NewValidationError("choices", "length must be between 2 and 6")
	}
	if r.Points < models.MinPoints || r.Points > models.MaxPoints {
		return common.NewValidationError("points", "must be between 1 and 1000")
	}
	return nil
}
