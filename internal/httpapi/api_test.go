package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/quizrally/internal/auth"
	"github.com/mcdev12/quizrally/internal/events"
	"github.com/mcdev12/quizrally/internal/models"
	"github.com/mcdev12/quizrally/internal/round"
	"github.com/mcdev12/quizrally/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	mux   *http.ServeMux
	store *store.Memory
	token string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory()
	hash, err := auth.HashPassword("password")
	require.NoError(t, err)
	require.NoError(t, mem.Seed(ctx, "admin", hash))

	authService := auth.NewService(mem, "test-secret", time.Hour)
	manager := round.NewManager(mem, events.NewBus(), clockwork.NewFakeClock(), round.SessionConfig{
		RoundSeconds: 30,
	})

	mux := http.NewServeMux()
	NewAPI(mem, authService, manager).RegisterRoutes(mux)

	api := &testAPI{mux: mux, store: mem}
	api.token = api.login(t, "admin", "password", http.StatusOK)
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if authed {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.mux.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(t *testing.T, username, password string, wantStatus int) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	}, false)
	require.Equal(t, wantStatus, rec.Code, rec.Body.String())
	if wantStatus != http.StatusOK {
		return ""
	}
	var resp loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func validQuestionBody() map[string]any {
	return map[string]any{
		"category": "science",
		"text":     "What is the chemical symbol for gold?",
		"answer":   "Au",
		"choices":  []string{"Au", "Ag", "Gd"},
		"points":   10,
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	api := newTestAPI(t)

	wrongPassword := api.do(t, http.MethodPost, "/login", map[string]string{
		"username": "admin", "password": "nope",
	}, false)
	unknownUser := api.do(t, http.MethodPost, "/login", map[string]string{
		"username": "ghost", "password": "nope",
	}, false)

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	// Both failure modes must be indistinguishable to the caller.
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.Contains(t, wrongPassword.Body.String(), "Invalid credentials")
}

func TestLoginValidatesInput(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/login", map[string]string{"username": "admin"}, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/tournaments", nil, false)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/tournaments", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	api.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthIsPublic(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestTournamentLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/tournaments", map[string]string{"name": "friday quiz"}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Tournament
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "friday quiz", created.Name)

	rec = api.do(t, http.MethodGet, "/tournaments", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []models.Tournament
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	require.Len(t, listed, 1)

	rec = api.do(t, http.MethodGet, "/tournaments/"+created.ID.String(), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/tournaments/00000000-0000-0000-0000-000000000001", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, "/tournaments/not-a-uuid", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/tournaments", map[string]string{"name": ""}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuestionValidationAndDelete(t *testing.T) {
	api := newTestAPI(t)

	tooFewChoices := validQuestionBody()
	tooFewChoices["choices"] = []string{"Au"}
	rec := api.do(t, http.MethodPost, "/questions", tooFewChoices, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tooManyPoints := validQuestionBody()
	tooManyPoints["points"] = 1001
	rec = api.do(t, http.MethodPost, "/questions", tooManyPoints, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/questions", validQuestionBody(), true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Question
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	// Deleting an unknown question still succeeds.
	rec = api.do(t, http.MethodDelete, "/questions/00000000-0000-0000-0000-000000000001", nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodDelete, "/questions/"+created.ID.String(), nil, true)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/questions", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var remaining []models.Question
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&remaining))
	assert.Empty(t, remaining)
}

func TestCategoriesListDistinctInOrder(t *testing.T) {
	api := newTestAPI(t)

	for _, category := range []string{"science", "history", "science", "music"} {
		body := validQuestionBody()
		body["category"] = category
		rec := api.do(t, http.MethodPost, "/questions", body, true)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := api.do(t, http.MethodGet, "/categories", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var categories []string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&categories))
	assert.Equal(t, []string{"science", "history", "music"}, categories)

	rec = api.do(t, http.MethodGet, "/categories", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/questions", validQuestionBody(), true)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(t, http.MethodPost, "/tournaments", map[string]string{"name": "pub night"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	var tournament models.Tournament
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tournament))
	base := "/tournaments/" + tournament.ID.String() + "/session"

	rec = api.do(t, http.MethodPost, base+"/start", nil, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var state round.SessionState
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, models.SessionStatusInProgress, state.Status)
	assert.Equal(t, models.RoundStatusRunning, state.RoundStatus)
	require.NotNil(t, state.CurrentQuestion)

	rec = api.do(t, http.MethodPost, base+"/start", nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, base+"/next", nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code, "next must be rejected while a round runs")

	// The only question just finished, so the session completes.
	rec = api.do(t, http.MethodPost, base+"/finish", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, models.SessionStatusCompleted, state.Status)

	rec = api.do(t, http.MethodGet, base, nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, models.SessionStatusCompleted, state.Status)

	rec = api.do(t, http.MethodPost, base+"/finish", nil, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSessionUnknownTournament(t *testing.T) {
	api := newTestAPI(t)

	base := fmt.Sprintf("/tournaments/%s/session", "00000000-0000-0000-0000-000000000001")
	rec := api.do(t, http.MethodPost, base+"/start", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodGet, base, nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
