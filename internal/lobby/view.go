// internal/lobby/view.go
package lobby

import (
	"time"

	"github.com/google/uuid"

	"github.com/vkazarin/stavka/internal/chess"
	"github.com/vkazarin/stavka/internal/durak"
	"github.com/vkazarin/stavka/internal/models"
)

// View is the viewer-scoped projection returned by GetState. For cards the
// viewer sees their own hand and only card counts for everyone else; chess
// is perfect-information so the board ships whole.
type View struct {
	ID        uuid.UUID          `json:"id"`
	GameType  models.GameType    `json:"game_type"`
	Mode      models.CardsMode   `json:"mode,omitempty"`
	DeckSize  int                `json:"deck_size,omitempty"`
	BetType   models.BetType     `json:"bet_type"`
	BetAmount int64              `json:"bet_amount"`
	OwnerID   uuid.UUID          `json:"owner_id"`
	Status    models.LobbyStatus `json:"status"`
	Seats     []uuid.UUID        `json:"seats"`
	Pool      int64              `json:"pool"`
	Settled   bool               `json:"settled"`
	WinnerID  *uuid.UUID         `json:"winner_id,omitempty"`
	Cards     *CardsView         `json:"cards,omitempty"`
	Chess     *chess.State       `json:"chess,omitempty"`
}

// SeatView is an opponent's redacted hand.
type SeatView struct {
	ID       uuid.UUID `json:"id"`
	Cards    int       `json:"cards"`
	Finished bool      `json:"finished"`
}

type CardsView struct {
	Trump         models.Card   `json:"trump"`
	Phase         durak.Phase   `json:"phase"`
	Table         []durak.Pair  `json:"table"`
	DeckCount     int           `json:"deck_count"`
	DiscardCount  int           `json:"discard_count"`
	Hand          []models.Card `json:"hand"`
	Opponents     []SeatView    `json:"opponents"`
	AttackerID    uuid.UUID     `json:"attacker_id"`
	DefenderID    uuid.UUID     `json:"defender_id"`
	MaxAttack     int           `json:"max_attack"`
	PendingTake   bool          `json:"pending_take"`
	TurnOwnerID   uuid.UUID     `json:"turn_owner_id"`
	TurnStartedAt time.Time     `json:"turn_started_at"`
}

func buildView(l *models.Lobby, st *State, viewerID uuid.UUID) *View {
	v := &View{
		ID:        l.ID,
		GameType:  l.GameType,
		Mode:      l.Mode,
		DeckSize:  l.DeckSize,
		BetType:   l.BetType,
		BetAmount: l.BetAmount,
		OwnerID:   l.OwnerID,
		Status:    l.Status,
		Seats:     st.Seats,
		Pool:      pool(st),
		Settled:   st.Settled,
		WinnerID:  st.winner(),
		Chess:     st.Chess,
	}
	if st.Cards != nil {
		v.Cards = buildCardsView(st.Cards, viewerID)
	}
	return v
}

func buildCardsView(g *durak.State, viewerID uuid.UUID) *CardsView {
	cv := &CardsView{
		Trump:         g.Trump,
		Phase:         g.Phase,
		Table:         g.Table,
		DeckCount:     len(g.Deck),
		DiscardCount:  len(g.Discard),
		AttackerID:    g.Players[g.AttackerIndex].ID,
		DefenderID:    g.Players[g.DefenderIndex].ID,
		MaxAttack:     g.MaxAttack,
		PendingTake:   g.PendingTake,
		TurnOwnerID:   g.TurnOwnerID,
		TurnStartedAt: g.TurnStartedAt,
	}
	for _, p := range g.Players {
		if p.ID == viewerID {
			cv.Hand = p.Hand
			continue
		}
		cv.Opponents = append(cv.Opponents, SeatView{ID: p.ID, Cards: len(p.Hand), Finished: p.Finished})
	}
	return cv
}
