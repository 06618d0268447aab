// internal/lobby/store.go
package lobby

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/vkazarin/stavka/internal/chess"
	"github.com/vkazarin/stavka/internal/durak"
	"github.com/vkazarin/stavka/internal/escrow"
	"github.com/vkazarin/stavka/internal/models"
)

// Outcome tells the store what to do with the lobby row when the
// transaction body returns.
type Outcome int

const (
	// Keep means the body made no changes worth writing.
	Keep Outcome = iota
	// Save persists the mutated row.
	Save
	// Delete removes the row entirely (owner abandoning an open lobby).
	Delete
)

// Store is the persistence contract for lobby rows. Implementations must
// give the transaction body exclusive ownership of the row (row-level lock)
// and run the escrow ledger inside the same transaction, so a rejected stake
// rolls back together with the lobby mutation.
type Store interface {
	// InsertLobby runs fn, then persists the new lobby, in one transaction.
	InsertLobby(ctx context.Context, l *models.Lobby, fn func(lx escrow.Ledger) error) error

	// UpdateLobby loads the lobby row under lock, runs fn, and applies the
	// returned outcome. A missing row yields reason.NotFound.
	UpdateLobby(ctx context.Context, id uuid.UUID, fn func(lx escrow.Ledger, l *models.Lobby) (Outcome, error)) error

	// ListOpenLobbies returns every lobby still accepting players.
	ListOpenLobbies(ctx context.Context) ([]models.Lobby, error)
}

// State is the envelope stored in the lobby row's state blob: the escrowed
// stakes, the at-most-once settlement flag, and the embedded game state for
// whichever engine the lobby runs.
type State struct {
	Seats   []uuid.UUID             `json:"seats"`
	Stakes  map[string]models.Stake `json:"stakes"`
	Settled bool                    `json:"settled"`
	Cards   *durak.State            `json:"cards,omitempty"`
	Chess   *chess.State            `json:"chess,omitempty"`
}

func decodeState(raw []byte) (*State, error) {
	st := &State{Stakes: map[string]models.Stake{}}
	if len(raw) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, err
	}
	if st.Stakes == nil {
		st.Stakes = map[string]models.Stake{}
	}
	return st, nil
}

func (st *State) encode() ([]byte, error) {
	return json.Marshal(st)
}

func (st *State) seated(id uuid.UUID) bool {
	for _, s := range st.Seats {
		if s == id {
			return true
		}
	}
	return false
}

func (st *State) removeSeat(id uuid.UUID) {
	for i, s := range st.Seats {
		if s == id {
			st.Seats = append(st.Seats[:i], st.Seats[i+1:]...)
			return
		}
	}
}

// winner returns the finished game's winner, or nil when the game never
// produced one (abandoned lobby, mutual elimination).
func (st *State) winner() *uuid.UUID {
	switch {
	case st.Cards != nil:
		return st.Cards.WinnerID
	case st.Chess != nil:
		return st.Chess.WinnerID
	}
	return nil
}
