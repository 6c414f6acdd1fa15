package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/quizrally/internal/common"
	"github.com/mcdev12/quizrally/internal/models"
	"github.com/mcdev12/quizrally/internal/round"
)

func tournamentIDFromPath(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, common.NewValidationError("id", "must be a valid UUID")
	}
	return id, nil
}

func (a *API) handleStartSession(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := a.sessions.StartSession(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session.State())
}

func (a *API) handleNextRound(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := a.sessions.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := session.StartNextRound(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

func (a *API) handleFinishRound(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := a.sessions.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := session.ForceFinishRound(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session.State())
}

// handleGetSession returns the live session state, falling back to the
// persisted result for tournaments whose session already ended.
func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := a.sessions.Get(id)
	if err == nil {
		writeJSON(w, http.StatusOK, session.State())
		return
	}
	if !errors.Is(err, common.ErrNotFound) {
		writeError(w, err)
		return
	}

	result, err := a.store.GetSessionResult(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, round.SessionState{
		TournamentID:   id.String(),
		Status:         models.SessionStatusCompleted,
		RoundStatus:    models.RoundStatusIdle,
		RoundIndex:     result.QuestionsPlayed - 1,
		TotalQuestions: result.QuestionsPlayed,
	})
}
