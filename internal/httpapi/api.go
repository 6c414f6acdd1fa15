// Package httpapi exposes the quiz platform over plain JSON HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcdev12/quizrally/internal/auth"
	"github.com/mcdev12/quizrally/internal/common"
	"github.com/mcdev12/quizrally/internal/round"
	"github.com/mcdev12/quizrally/internal/store"
	"github.com/rs/zerolog/log"
)

// API bundles the HTTP handlers and their dependencies.
type API struct {
	store    store.Store
	auth     *auth.Service
	sessions *round.Manager
}

// NewAPI creates the handler set.
func NewAPI(st store.Store, authService *auth.Service, sessions *round.Manager) *API {
	return &API{
		store:    st,
		auth:     authService,
		sessions: sessions,
	}
}

// RegisterRoutes wires every endpoint onto the mux. Everything except login
// and health requires a bearer token.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /login", a.handleLogin)
	mux.HandleFunc("GET /health", a.handleHealth)

	mux.HandleFunc("GET /tournaments", a.requireAuth(a.handleListTournaments))
	mux.HandleFunc("POST /tournaments", a.requireAuth(a.handleCreateTournament))
	mux.HandleFunc("GET /tournaments/{id}", a.requireAuth(a.handleGetTournament))

	mux.HandleFunc("GET /questions", a.requireAuth(a.handleListQuestions))
	mux.HandleFunc("POST /questions", a.requireAuth(a.handleAddQuestion))
	mux.HandleFunc("DELETE /questions/{id}", a.requireAuth(a.handleDeleteQuestion))
	mux.HandleFunc("GET /categories", a.requireAuth(a.handleListCategories))

	mux.HandleFunc("POST /tournaments/{id}/session/start", a.requireAuth(a.handleStartSession))
	mux.HandleFunc("POST /tournaments/{id}/session/next", a.requireAuth(a.handleNextRound))
	mux.HandleFunc("POST /tournaments/{id}/session/finish", a.requireAuth(a.handleFinishRound))
	mux.HandleFunc("GET /tournaments/{id}/session", a.requireAuth(a.handleGetSession))
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var status int
	message := err.Error()

	switch {
	case errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		status = http.StatusUnauthorized
		message = "Invalid credentials"
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrDuplicateKey), errors.Is(err, common.ErrInvalidStateTransition):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
		message = "internal error"
		log.Error().Err(err).Msg("request failed")
	}

	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return common.NewValidationError("body", "must be valid JSON")
	}
	return nil
}
