package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/quizrally/internal/common"
)

type createTournamentRequest struct {
	Name string `json:"name"`
}

func (a *API) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	ownerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		writeError(w, common.ErrInvalidToken)
		return
	}

	var req createTournamentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, common.NewValidationError("name", "must not be empty"))
		return
	}

	tournament, err := a.store.CreateTournament(r.Context(), req.Name, ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tournament)
}

func (a *API) handleListTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := a.store.ListTournaments(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tournaments)
}

func (a *API) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, common.NewValidationError("id", "must be a valid UUID"))
		return
	}

	tournament, err := a.store.GetTournament(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tournament)
}
