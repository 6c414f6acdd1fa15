package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades client connections and serves pool stats.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	stateManager      *StateManager
}

// NewWebSocketHandler creates a handler over the given managers.
func NewWebSocketHandler(cm *ConnectionManager, sm *StateManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		stateManager:      sm,
	}
}

// HandleTournamentConnection handles WebSocket upgrades for a tournament.
func (h *WebSocketHandler) HandleTournamentConnection(w http.ResponseWriter, r *http.Request) {
	tournamentIDStr := r.URL.Query().Get("tournament_id")
	if tournamentIDStr == "" {
		http.Error(w, "tournament_id is required", http.StatusBadRequest)
		return
	}

	tournamentID, err := uuid.Parse(tournamentIDStr)
	if err != nil {
		http.Error(w, "invalid tournament_id format", http.StatusBadRequest)
		return
	}

	username := r.URL.Query().Get("username")
	if username == "" {
		username = "anonymous"
	}

	if err := h.connectionManager.UpgradeConnection(w, r, username, tournamentID); err != nil {
		log.Error().
			Err(err).
			Str("tournament_id", tournamentID.String()).
			Str("username", username).
			Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleTournamentState serves the gateway's state snapshot for late joiners.
func (h *WebSocketHandler) HandleTournamentState(w http.ResponseWriter, r *http.Request) {
	tournamentIDStr := r.PathValue("id")
	tournamentID, err := uuid.Parse(tournamentIDStr)
	if err != nil {
		http.Error(w, "invalid tournament id format", http.StatusBadRequest)
		return
	}

	state := h.stateManager.GetState(tournamentID)
	if state == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode tournament state response")
	}
}

// HandleConnectionStats reports the active connection pools.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.connectionManager.ConnectionStats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats response")
	}
}

// RegisterRoutes registers the WebSocket endpoints on the mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.HandleTournamentConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
	mux.HandleFunc("GET /tournaments/{id}/gateway-state", h.HandleTournamentState)
}
