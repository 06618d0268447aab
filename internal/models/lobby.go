// internal/models/lobby.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type GameType string

const (
	GameCards GameType = "cards"
	GameChess GameType = "chess"
)

// CardsMode selects the durak variant. Classic restricts throwing to the
// attacker; podkidnoy lets every non-defender pile on; transfer additionally
// allows the defender to pass the attack along with a matching rank.
type CardsMode string

const (
	ModeClassic   CardsMode = "classic"
	ModePodkidnoy CardsMode = "podkidnoy"
	ModeTransfer  CardsMode = "transfer"
)

type BetType string

const (
	BetCurrency BetType = "currency"
	BetItem     BetType = "item"
)

type LobbyStatus string

const (
	LobbyOpen     LobbyStatus = "open"
	LobbyActive   LobbyStatus = "active"
	LobbyFinished LobbyStatus = "finished"
)

// Lobby is a row in the lobbies table. State is the opaque game-state blob
// (JSONB); only the lobby manager reads or writes it, always under a row lock.
type Lobby struct {
	ID        uuid.UUID   `json:"id"`
	GameType  GameType    `json:"game_type"`
	Mode      CardsMode   `json:"mode,omitempty"`      // cards only
	DeckSize  int         `json:"deck_size,omitempty"` // cards only: 36 or 52
	BetType   BetType     `json:"bet_type"`
	BetAmount int64       `json:"bet_amount"`
	OwnerID   uuid.UUID   `json:"owner_id"`
	Status    LobbyStatus `json:"status"`
	State     []byte      `json:"-"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Stake is one player's escrowed wager, recorded inside the lobby state.
// Exactly one entry exists per seated player. For item bets, ItemID and File
// identify the reserved inventory item; Amount holds its appraised value.
type Stake struct {
	Type   BetType    `json:"type"`
	Amount int64      `json:"amount"`
	ItemID *uuid.UUID `json:"item_id,omitempty"`
	File   string     `json:"file,omitempty"`
}
