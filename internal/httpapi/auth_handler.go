package httpapi

import (
	"net/http"

	"github.com/mcdev12/quizrally/internal/common"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" {
		writeError(w, common.NewValidationError("username", "must not be empty"))
		return
	}
	if req.Password == "" {
		writeError(w, common.NewValidationError("password", "must not be empty"))
		return
	}

	token, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, Username: req.Username})
}
