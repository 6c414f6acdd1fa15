package models

import (
	"github.com/google/uuid"
)

// User represents an organizer account. Usernames are unique and matched
// case-sensitively; the password hash is opaque to everything but the auth
// service.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
}
