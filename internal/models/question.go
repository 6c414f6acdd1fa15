package models

import (
	"github.com/google/uuid"
)

// Bounds enforced when a question is created. Reads never revalidate.
const (
	MinChoices = 2
	MaxChoices = 6
	MinPoints  = 1
	MaxPoints  = 1000
)

// Question is a single multiple-choice trivia question. Answer is expected to
// be one of Choices but that is not enforced; the admin tooling has always
// allowed free-form answers.
type Question struct {
	ID       uuid.UUID `json:"id"`
	Category string    `json:"category"`
	Text     string    `json:"text"`
	Answer   string    `json:"answer"`
	Choices  []string  `json:"choices"`
	Points   int       `json:"points"`
}
