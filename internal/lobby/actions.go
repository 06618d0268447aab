// internal/lobby/actions.go
package lobby

import (
	"context"

	"github.com/google/uuid"

	"github.com/vkazarin/stavka/internal/chess"
	"github.com/vkazarin/stavka/internal/durak"
	"github.com/vkazarin/stavka/internal/escrow"
	"github.com/vkazarin/stavka/internal/models"
	"github.com/vkazarin/stavka/internal/reason"
)

// ActionRequest is the decoded game action payload. Action is a closed set
// per game type; anything else is rejected as unknown.
type ActionRequest struct {
	Action string        `json:"action"`
	Card   *models.Card  `json:"card,omitempty"`
	Slot   int           `json:"slot,omitempty"`
	From   *chess.Square `json:"from,omitempty"`
	To     *chess.Square `json:"to,omitempty"`
}

// GetState sweeps expired turns, settles a newly finished lobby, and
// returns the viewer-scoped projection — all inside one locked transaction.
func (m *Manager) GetState(ctx context.Context, lobbyID, viewerID uuid.UUID) (*View, error) {
	var view *View
	err := m.Store.UpdateLobby(ctx, lobbyID, func(lx escrow.Ledger, l *models.Lobby) (Outcome, error) {
		st, err := decodeState(l.State)
		if err != nil {
			return Keep, err
		}
		changed := m.sweep(l, st)
		if l.Status == models.LobbyFinished && !st.Settled {
			if err := m.settle(ctx, lx, l, st); err != nil {
				return Keep, err
			}
			changed = true
		}
		view = buildView(l, st, viewerID)
		if changed {
			return m.save(l, st, m.Now())
		}
		return Keep, nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Action sweeps, dispatches to the matching engine, and settles on a
// terminal result. A sweep-induced mutation is persisted even when the
// player's own action is rejected.
func (m *Manager) Action(ctx context.Context, lobbyID, playerID uuid.UUID, req ActionRequest) error {
	var actErr error
	err := m.Store.UpdateLobby(ctx, lobbyID, func(lx escrow.Ledger, l *models.Lobby) (Outcome, error) {
		st, err := decodeState(l.State)
		if err != nil {
			return Keep, err
		}
		changed := m.sweep(l, st)

		if l.Status != models.LobbyActive {
			actErr = reason.GameClosed
		} else {
			actErr = m.dispatch(l, st, playerID, req)
			if actErr == nil {
				changed = true
			}
		}

		if l.Status == models.LobbyFinished && !st.Settled {
			if err := m.settle(ctx, lx, l, st); err != nil {
				return Keep, err
			}
			changed = true
		}
		if changed {
			return m.save(l, st, m.Now())
		}
		return Keep, nil
	})
	if err != nil {
		return err
	}
	if actErr == nil {
		m.journal(ctx, lobbyID, playerID, "game_"+req.Action, nil)
	}
	return actErr
}

// sweep is the lazy timeout pass run before every read or action. Pure
// function of the loaded row and the clock; reports whether it mutated.
func (m *Manager) sweep(l *models.Lobby, st *State) bool {
	if l.Status != models.LobbyActive {
		return false
	}
	now := m.Now()
	changed := false
	switch {
	case st.Cards != nil:
		changed = st.Cards.ApplyTimeout(now)
		if st.Cards.Status == durak.StatusFinished {
			l.Status = models.LobbyFinished
		}
	case st.Chess != nil:
		changed = st.Chess.ApplyTimeout(now)
		if st.Chess.Status == chess.StatusFinished {
			l.Status = models.LobbyFinished
		}
	}
	return changed
}

func (m *Manager) dispatch(l *models.Lobby, st *State, playerID uuid.UUID, req ActionRequest) error {
	now := m.Now()
	switch l.GameType {
	case models.GameCards:
		if st.Cards == nil {
			return reason.GameClosed
		}
		var err error
		switch req.Action {
		case "attack":
			if req.Card == nil {
				return reason.Action
			}
			err = st.Cards.Attack(playerID, *req.Card, now)
		case "defend":
			if req.Card == nil {
				return reason.Action
			}
			err = st.Cards.Defend(playerID, *req.Card, req.Slot, now)
		case "take":
			err = st.Cards.Take(playerID, now)
		case "throw":
			if req.Card == nil {
				return reason.Action
			}
			err = st.Cards.Throw(playerID, *req.Card, now)
		case "pass":
			err = st.Cards.Pass(playerID, now)
		default:
			return reason.Unknown
		}
		if err != nil {
			return err
		}
		if st.Cards.Status == durak.StatusFinished {
			l.Status = models.LobbyFinished
		}
		return nil

	case models.GameChess:
		if st.Chess == nil {
			return reason.GameClosed
		}
		var err error
		switch req.Action {
		case "move":
			if req.From == nil || req.To == nil {
				return reason.Coords
			}
			err = st.Chess.Move(playerID, *req.From, *req.To, now)
		case "resign":
			err = st.Chess.Resign(playerID)
		default:
			return reason.Unknown
		}
		if err != nil {
			return err
		}
		if st.Chess.Status == chess.StatusFinished {
			l.Status = models.LobbyFinished
		}
		return nil
	}
	return reason.Unknown
}
