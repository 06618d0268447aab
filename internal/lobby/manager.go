// internal/lobby/manager.go
package lobby

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vkazarin/stavka/internal/cache"
	"github.com/vkazarin/stavka/internal/chess"
	"github.com/vkazarin/stavka/internal/durak"
	"github.com/vkazarin/stavka/internal/escrow"
	"github.com/vkazarin/stavka/internal/models"
	"github.com/vkazarin/stavka/internal/reason"
)

const (
	MaxCardsPlayers = 4
	MaxChessPlayers = 2
	MinCardsPlayers = 2
)

var validModes = map[models.CardsMode]bool{
	models.ModeClassic:   true,
	models.ModePodkidnoy: true,
	models.ModeTransfer:  true,
}

var validDeckSizes = map[int]bool{36: true, 52: true}

// validBetAmounts enumerates the currency wagers a lobby may be opened with.
var validBetAmounts = map[int64]bool{25: true, 50: true, 100: true, 250: true, 500: true, 1000: true}

// Manager orchestrates lobby lifecycle and game actions. It is the only
// component that mutates a lobby row, and it does so exclusively through
// Store transactions that also scope the escrow ledger.
type Manager struct {
	Store Store
	Log   *log.Logger

	// Now is the clock; swapped out in tests to drive timeouts.
	Now func() time.Time
}

func NewManager(store Store, logger *log.Logger) *Manager {
	return &Manager{Store: store, Log: logger, Now: time.Now}
}

// CreateParams is the validated client configuration for a new lobby.
type CreateParams struct {
	GameType  models.GameType
	Mode      models.CardsMode
	DeckSize  int
	BetType   models.BetType
	BetAmount int64
	ItemID    *uuid.UUID
}

func validateCreate(p *CreateParams) error {
	switch p.GameType {
	case models.GameCards:
		if !validModes[p.Mode] || !validDeckSizes[p.DeckSize] {
			return reason.CreateFailed
		}
	case models.GameChess:
		if p.Mode != "" || p.DeckSize != 0 {
			return reason.CreateFailed
		}
	default:
		return reason.CreateFailed
	}
	switch p.BetType {
	case models.BetCurrency:
		if !validBetAmounts[p.BetAmount] {
			return reason.CreateFailed
		}
	case models.BetItem:
		if p.BetAmount < 1 || p.ItemID == nil {
			return reason.CreateFailed
		}
	default:
		return reason.CreateFailed
	}
	return nil
}

// Create opens a lobby and escrows the owner's stake in the same
// transaction that inserts the row.
func (m *Manager) Create(ctx context.Context, ownerID uuid.UUID, p CreateParams) (uuid.UUID, error) {
	if err := validateCreate(&p); err != nil {
		return uuid.Nil, err
	}
	now := m.Now()
	l := &models.Lobby{
		ID:        uuid.New(),
		GameType:  p.GameType,
		Mode:      p.Mode,
		DeckSize:  p.DeckSize,
		BetType:   p.BetType,
		BetAmount: p.BetAmount,
		OwnerID:   ownerID,
		Status:    models.LobbyOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	st := &State{Seats: []uuid.UUID{ownerID}, Stakes: map[string]models.Stake{}}

	err := m.Store.InsertLobby(ctx, l, func(lx escrow.Ledger) error {
		stake, err := escrow.Reserve(ctx, lx, ownerID, escrow.Bet{Type: p.BetType, Amount: p.BetAmount, ItemID: p.ItemID})
		if err != nil {
			return err
		}
		st.Stakes[ownerID.String()] = stake
		raw, err := st.encode()
		if err != nil {
			return err
		}
		l.State = raw
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	m.Log.WithFields(log.Fields{
		"lobby": l.ID, "owner": ownerID, "game": p.GameType, "bet": p.BetAmount,
	}).Info("lobby created")
	m.journal(ctx, l.ID, ownerID, "lobby_create", nil)
	return l.ID, nil
}

// Join seats a player and escrows their stake. A chess lobby goes active
// the instant the second seat fills; cards wait for an explicit Start.
func (m *Manager) Join(ctx context.Context, lobbyID, playerID uuid.UUID, itemID *uuid.UUID) error {
	err := m.Store.UpdateLobby(ctx, lobbyID, func(lx escrow.Ledger, l *models.Lobby) (Outcome, error) {
		if l.Status != models.LobbyOpen {
			return Keep, reason.Closed
		}
		st, err := decodeState(l.State)
		if err != nil {
			return Keep, err
		}
		if st.seated(playerID) {
			return Keep, reason.Closed
		}
		limit := MaxCardsPlayers
		if l.GameType == models.GameChess {
			limit = MaxChessPlayers
		}
		if len(st.Seats) >= limit {
			return Keep, reason.Full
		}

		stake, err := escrow.Reserve(ctx, lx, playerID, escrow.Bet{Type: l.BetType, Amount: l.BetAmount, ItemID: itemID})
		if err != nil {
			return Keep, err
		}
		st.Seats = append(st.Seats, playerID)
		st.Stakes[playerID.String()] = stake

		now := m.Now()
		if l.GameType == models.GameChess && len(st.Seats) == MaxChessPlayers {
			st.Chess = chess.Init(st.Seats[0], st.Seats[1], now)
			l.Status = models.LobbyActive
		}
		return m.save(l, st, now)
	})
	if err != nil {
		return err
	}
	m.journal(ctx, lobbyID, playerID, "lobby_join", nil)
	return nil
}

// Start deals a cards lobby. Owner-only, needs at least two seated players.
func (m *Manager) Start(ctx context.Context, lobbyID, callerID uuid.UUID) error {
	err := m.Store.UpdateLobby(ctx, lobbyID, func(lx escrow.Ledger, l *models.Lobby) (Outcome, error) {
		if l.GameType != models.GameCards {
			return Keep, reason.Action
		}
		if l.OwnerID != callerID {
			return Keep, reason.Owner
		}
		if l.Status != models.LobbyOpen {
			return Keep, reason.Started
		}
		st, err := decodeState(l.State)
		if err != nil {
			return Keep, err
		}
		if len(st.Seats) < MinCardsPlayers {
			return Keep, reason.Players
		}
		now := m.Now()
		st.Cards = durak.Init(st.Seats, l.Mode, l.DeckSize, now)
		l.Status = models.LobbyActive
		return m.save(l, st, now)
	})
	if err != nil {
		return err
	}
	m.journal(ctx, lobbyID, callerID, "lobby_start", nil)
	return nil
}

// Leave removes a player. From an open lobby it refunds their stake, and
// dissolves the whole lobby when the owner walks away. From an active cards
// game it eliminates the player the same way a timeout would; leaving an
// active chess game is not allowed.
func (m *Manager) Leave(ctx context.Context, lobbyID, playerID uuid.UUID) (bool, error) {
	closed := false
	err := m.Store.UpdateLobby(ctx, lobbyID, func(lx escrow.Ledger, l *models.Lobby) (Outcome, error) {
		st, err := decodeState(l.State)
		if err != nil {
			return Keep, err
		}
		if !st.seated(playerID) {
			return Keep, reason.NotPlayer
		}
		now := m.Now()

		switch l.Status {
		case models.LobbyOpen:
			if l.OwnerID == playerID {
				// Owner abandons: every stake goes home, the row disappears.
				for pidStr, stake := range st.Stakes {
					pid, err := uuid.Parse(pidStr)
					if err != nil {
						return Keep, err
					}
					if err := escrow.Refund(ctx, lx, pid, stake); err != nil {
						return Keep, err
					}
				}
				closed = true
				return Delete, nil
			}
			stake := st.Stakes[playerID.String()]
			if err := escrow.Refund(ctx, lx, playerID, stake); err != nil {
				return Keep, err
			}
			st.removeSeat(playerID)
			delete(st.Stakes, playerID.String())
			return m.save(l, st, now)

		case models.LobbyActive:
			if l.GameType == models.GameChess {
				return Keep, reason.Active
			}
			// Stake stays in the pool; leaving a live game forfeits it.
			if err := st.Cards.Eliminate(playerID, now); err != nil {
				return Keep, err
			}
			if st.Cards.Status == durak.StatusFinished {
				l.Status = models.LobbyFinished
				if err := m.settle(ctx, lx, l, st); err != nil {
					return Keep, err
				}
			}
			return m.save(l, st, now)
		}
		// Finished lobbies have nothing left to release.
		return Keep, nil
	})
	if err != nil {
		return false, err
	}
	m.journal(ctx, lobbyID, playerID, "lobby_leave", map[string]interface{}{"closed": closed})
	return closed, nil
}

// List returns every open lobby.
func (m *Manager) List(ctx context.Context) ([]models.Lobby, error) {
	return m.Store.ListOpenLobbies(ctx)
}

// save encodes the state blob back into the row and marks it dirty.
func (m *Manager) save(l *models.Lobby, st *State, now time.Time) (Outcome, error) {
	raw, err := st.encode()
	if err != nil {
		return Keep, err
	}
	l.State = raw
	l.UpdatedAt = now
	return Save, nil
}

func (m *Manager) journal(ctx context.Context, lobbyID, actorID uuid.UUID, action string, payload map[string]interface{}) {
	rec := cache.ActionRecord{
		LobbyID:   lobbyID,
		ActorID:   actorID,
		Action:    action,
		Payload:   payload,
		Timestamp: m.Now().Unix(),
	}
	if err := cache.PublishAction(ctx, rec); err != nil {
		m.Log.WithError(err).Warn("action journal publish failed")
	}
}
