// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/vkazarin/stavka/internal/lobby"
	"github.com/vkazarin/stavka/internal/models"
)

type createLobbyRequest struct {
	GameType  models.GameType  `json:"game_type"`
	Mode      models.CardsMode `json:"mode,omitempty"`
	DeckSize  int              `json:"deck_size,omitempty"`
	BetType   models.BetType   `json:"bet_type"`
	BetAmount int64            `json:"bet_amount"`
	ItemID    *uuid.UUID       `json:"item_id,omitempty"`
}

// CreateLobbyHandler opens a lobby, escrowing the owner's stake.
func CreateLobbyHandler(m *lobby.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		var req createLobbyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad lobby request payload", http.StatusBadRequest)
			return
		}

		lobbyID, err := m.Create(r.Context(), userID, lobby.CreateParams{
			GameType:  req.GameType,
			Mode:      req.Mode,
			DeckSize:  req.DeckSize,
			BetType:   req.BetType,
			BetAmount: req.BetAmount,
			ItemID:    req.ItemID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"lobby_id": lobbyID})
	}
}

// JoinLobbyHandler seats the caller in an open lobby.
func JoinLobbyHandler(m *lobby.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		var req struct {
			LobbyID uuid.UUID  `json:"lobby_id"`
			ItemID  *uuid.UUID `json:"item_id,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad join payload", http.StatusBadRequest)
			return
		}
		if err := m.Join(r.Context(), req.LobbyID, userID, req.ItemID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// LeaveLobbyHandler removes the caller; reports whether the lobby dissolved.
func LeaveLobbyHandler(m *lobby.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		var req struct {
			LobbyID uuid.UUID `json:"lobby_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad leave payload", http.StatusBadRequest)
			return
		}
		closed, err := m.Leave(r.Context(), req.LobbyID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"closed": closed})
	}
}

// StartLobbyHandler deals a cards lobby (owner only).
func StartLobbyHandler(m *lobby.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		var req struct {
			LobbyID uuid.UUID `json:"lobby_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad start payload", http.StatusBadRequest)
			return
		}
		if err := m.Start(r.Context(), req.LobbyID, userID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// StateHandler returns the viewer-scoped projection, sweeping timeouts and
// settling finished lobbies on the way.
func StateHandler(m *lobby.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		lobbyID, err := uuid.Parse(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "bad lobby id", http.StatusBadRequest)
			return
		}
		view, err := m.GetState(r.Context(), lobbyID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// ListLobbiesHandler returns every open lobby.
func ListLobbiesHandler(m *lobby.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authedUser(r); err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		lobbies, err := m.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lobbies)
	}
}

type actionRequest struct {
	LobbyID uuid.UUID `json:"lobby_id"`
	lobby.ActionRequest
}

// ActionHandler dispatches a game action to the lobby's engine.
func ActionHandler(m *lobby.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUser(r)
		if err != nil {
			http.Error(w, "invalid token", http.StatusForbidden)
			return
		}
		var req actionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad action payload", http.StatusBadRequest)
			return
		}
		if err := m.Action(r.Context(), req.LobbyID, userID, req.ActionRequest); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
