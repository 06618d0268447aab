// internal/chess/chess.go
package chess

import (
	"time"

	"github.com/google/uuid"
	"github.com/vkazarin/stavka/internal/reason"
)

// TurnTimeout mirrors the card engine: evaluated lazily by the next observer.
const TurnTimeout = 60 * time.Second

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

type Kind string

const (
	Pawn   Kind = "pawn"
	Knight Kind = "knight"
	Bishop Kind = "bishop"
	Rook   Kind = "rook"
	Queen  Kind = "queen"
	King   Kind = "king"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

type Piece struct {
	Color Color `json:"color"`
	Kind  Kind  `json:"kind"`
}

type Player struct {
	ID    uuid.UUID `json:"id"`
	Color Color     `json:"color"`
}

// Square addresses a board cell: Row 0 is white's back rank.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// State is a deliberately simplified two-player chess game: no castling,
// no en passant, no check detection. Capturing the king ends the game and
// a pawn reaching the last rank always becomes a queen.
type State struct {
	Board         [8][8]*Piece `json:"board"`
	Players       [2]Player    `json:"players"`
	Turn          Color        `json:"turn"`
	TurnOwnerID   uuid.UUID    `json:"turn_owner_id"`
	TurnStartedAt time.Time    `json:"turn_started_at"`
	WinnerID      *uuid.UUID   `json:"winner_id,omitempty"`
	Status        Status       `json:"status"`
}

var backRank = [8]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Init sets up the standard position. The first seat plays white.
func Init(whiteID, blackID uuid.UUID, now time.Time) *State {
	s := &State{
		Players: [2]Player{
			{ID: whiteID, Color: White},
			{ID: blackID, Color: Black},
		},
		Turn:          White,
		TurnOwnerID:   whiteID,
		TurnStartedAt: now,
		Status:        StatusActive,
	}
	for col := 0; col < 8; col++ {
		s.Board[0][col] = &Piece{Color: White, Kind: backRank[col]}
		s.Board[1][col] = &Piece{Color: White, Kind: Pawn}
		s.Board[6][col] = &Piece{Color: Black, Kind: Pawn}
		s.Board[7][col] = &Piece{Color: Black, Kind: backRank[col]}
	}
	return s
}

// Move validates and applies a move for playerID. The board is untouched on
// any rejection.
func (s *State) Move(playerID uuid.UUID, from, to Square, now time.Time) error {
	if s.Status != StatusActive {
		return reason.GameClosed
	}
	player, ok := s.playerByID(playerID)
	if !ok {
		return reason.NotPlayer
	}
	if !onBoard(from) || !onBoard(to) || from == to {
		return reason.Coords
	}
	if player.Color != s.Turn {
		return reason.NotTurn
	}
	piece := s.Board[from.Row][from.Col]
	if piece == nil || piece.Color != player.Color {
		return reason.InvalidMove
	}
	target := s.Board[to.Row][to.Col]
	if target != nil && target.Color == player.Color {
		return reason.InvalidMove
	}
	if !s.legalFor(piece, from, to) {
		return reason.InvalidMove
	}

	captured := target
	s.Board[to.Row][to.Col] = piece
	s.Board[from.Row][from.Col] = nil

	if piece.Kind == Pawn && (to.Row == 7 || to.Row == 0) {
		piece.Kind = Queen
	}

	if captured != nil && captured.Kind == King {
		// King capture stands in for checkmate in this rule set.
		id := playerID
		s.WinnerID = &id
		s.Status = StatusFinished
		return nil
	}

	s.advanceTurn(now)
	return nil
}

// Resign ends the game in favor of the other seat.
func (s *State) Resign(playerID uuid.UUID) error {
	if s.Status != StatusActive {
		return reason.GameClosed
	}
	if _, ok := s.playerByID(playerID); !ok {
		return reason.NotPlayer
	}
	for _, p := range s.Players {
		if p.ID != playerID {
			id := p.ID
			s.WinnerID = &id
			break
		}
	}
	s.Status = StatusFinished
	return nil
}

// ApplyTimeout forfeits the game to the non-turn player once the turn clock
// has run out. Returns true when the state changed.
func (s *State) ApplyTimeout(now time.Time) bool {
	if s.Status != StatusActive {
		return false
	}
	if now.Sub(s.TurnStartedAt) < TurnTimeout {
		return false
	}
	for _, p := range s.Players {
		if p.ID != s.TurnOwnerID {
			id := p.ID
			s.WinnerID = &id
			break
		}
	}
	s.Status = StatusFinished
	return true
}

func (s *State) advanceTurn(now time.Time) {
	if s.Turn == White {
		s.Turn = Black
	} else {
		s.Turn = White
	}
	for _, p := range s.Players {
		if p.Color == s.Turn {
			s.TurnOwnerID = p.ID
		}
	}
	s.TurnStartedAt = now
}

func (s *State) playerByID(id uuid.UUID) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// legalFor checks per-piece movement geometry. Occupancy of the destination
// is already validated by Move; sliding pieces additionally require an empty
// path.
func (s *State) legalFor(piece *Piece, from, to Square) bool {
	dr := to.Row - from.Row
	dc := to.Col - from.Col

	switch piece.Kind {
	case Pawn:
		return s.legalPawn(piece.Color, from, to, dr, dc)
	case Knight:
		return (abs(dr) == 2 && abs(dc) == 1) || (abs(dr) == 1 && abs(dc) == 2)
	case Bishop:
		return abs(dr) == abs(dc) && s.clearPath(from, to)
	case Rook:
		return (dr == 0 || dc == 0) && s.clearPath(from, to)
	case Queen:
		return (dr == 0 || dc == 0 || abs(dr) == abs(dc)) && s.clearPath(from, to)
	case King:
		return abs(dr) <= 1 && abs(dc) <= 1
	}
	return false
}

func (s *State) legalPawn(color Color, from, to Square, dr, dc int) bool {
	dir := 1
	startRow := 1
	if color == Black {
		dir = -1
		startRow = 6
	}
	target := s.Board[to.Row][to.Col]

	// Diagonal one-step is capture only.
	if abs(dc) == 1 && dr == dir {
		return target != nil
	}
	if dc != 0 {
		return false
	}
	// Straight moves never capture.
	if target != nil {
		return false
	}
	if dr == dir {
		return true
	}
	// Two-step only from the start row with an empty intermediate square.
	if dr == 2*dir && from.Row == startRow {
		return s.Board[from.Row+dir][from.Col] == nil
	}
	return false
}

// clearPath verifies all squares strictly between from and to are empty
// along a straight or diagonal line.
func (s *State) clearPath(from, to Square) bool {
	dr := sign(to.Row - from.Row)
	dc := sign(to.Col - from.Col)
	r, c := from.Row+dr, from.Col+dc
	for r != to.Row || c != to.Col {
		if s.Board[r][c] != nil {
			return false
		}
		r += dr
		c += dc
	}
	return true
}

func onBoard(sq Square) bool {
	return sq.Row >= 0 && sq.Row < 8 && sq.Col >= 0 && sq.Col < 8
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
