// Package auth authenticates organizers against the entity store and issues
// signed session credentials.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/mcdev12/quizrally/internal/common"
	"github.com/mcdev12/quizrally/internal/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Service is the access gate. Login failures are reported with a single
// sentinel regardless of whether the user exists or the password was wrong.
type Service struct {
	store    store.Store
	secret   []byte
	tokenTTL time.Duration
}

// NewService builds an auth service around a store.
func NewService(st store.Store, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		store:    st,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// dummyHash keeps the bcrypt comparison in the unknown-user path so response
// timing does not reveal whether the username resolved.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("quizrally-dummy"), bcrypt.DefaultCost)

// Login verifies the credentials and returns a signed token on success.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return "", common.ErrUnauthorized
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", common.ErrUnauthorized
	}

	token, err := GenerateToken(user.ID, user.Username, s.secret, s.tokenTTL)
	if err != nil {
		return "", common.ErrInternal
	}

	log.Info().Str("user_id", user.ID.String()).Str("username", username).Msg("login succeeded")
	return token, nil
}

// Verify checks a presented credential and returns its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	return ParseToken(tokenString, s.secret)
}

// HashPassword produces a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
