package httpapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/mcdev12/quizrally/internal/common"
	"github.com/mcdev12/quizrally/internal/store"
)

func (a *API) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var req store.AddQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	question, err := a.store.AddQuestion(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (a *API) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := a.store.ListQuestions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// handleListCategories lists the distinct categories of the stored
// questions, first occurrence first.
func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	questions, err := a.store.ListQuestions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	seen := make(map[string]bool)
	categories := []string{}
	for _, q := range questions {
		if q.Category == "" || seen[q.Category] {
			continue
		}
		seen[q.Category] = true
		categories = append(categories, q.Category)
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleDeleteQuestion always reports success; deleting an unknown question
// is a no-op.
func (a *API) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, common.NewValidationError("id", "must be a valid UUID"))
		return
	}

	if err := a.store.DeleteQuestion(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
