// internal/escrow/escrow.go
package escrow

import (
	"context"

	"github.com/google/uuid"
	"github.com/vkazarin/stavka/internal/models"
	"github.com/vkazarin/stavka/internal/reason"
)

// Ledger is the transaction-scoped view of player balances and inventory.
// Implementations must run inside the same database transaction that holds
// the lobby row lock, so checking funds and committing the stake are one
// atomic step.
type Ledger interface {
	// ReserveBalance debits amount if the balance covers it. Returns false
	// with no side effect otherwise.
	ReserveBalance(ctx context.Context, playerID uuid.UUID, amount int64) (bool, error)

	// CreditBalance adds amount unconditionally.
	CreditBalance(ctx context.Context, playerID uuid.UUID, amount int64) error

	// ReserveItem moves exactly one item owned by the player into escrow.
	// Returns nil when the player does not own such an item.
	ReserveItem(ctx context.Context, ownerID, itemID uuid.UUID) (*models.Item, error)

	// TransferItem releases an escrowed item to the given player.
	TransferItem(ctx context.Context, itemID, newOwnerID uuid.UUID) error
}

// Bet describes the wager a player is putting up.
type Bet struct {
	Type   models.BetType
	Amount int64 // currency units, or minimum item value for item bets
	ItemID *uuid.UUID
}

// Reserve escrows the player's wager and returns the stake entry to record
// in the lobby state. Item bets are re-appraised against the lobby minimum;
// on a mismatch the item is handed straight back and the bet rejected.
func Reserve(ctx context.Context, lx Ledger, playerID uuid.UUID, bet Bet) (models.Stake, error) {
	switch bet.Type {
	case models.BetCurrency:
		ok, err := lx.ReserveBalance(ctx, playerID, bet.Amount)
		if err != nil {
			return models.Stake{}, err
		}
		if !ok {
			return models.Stake{}, reason.Funds
		}
		return models.Stake{Type: models.BetCurrency, Amount: bet.Amount}, nil

	case models.BetItem:
		if bet.ItemID == nil {
			return models.Stake{}, reason.Item
		}
		item, err := lx.ReserveItem(ctx, playerID, *bet.ItemID)
		if err != nil {
			return models.Stake{}, err
		}
		if item == nil {
			return models.Stake{}, reason.Item
		}
		if item.Value < bet.Amount {
			if err := lx.TransferItem(ctx, item.ID, playerID); err != nil {
				return models.Stake{}, err
			}
			return models.Stake{}, reason.ItemPrice
		}
		id := item.ID
		return models.Stake{Type: models.BetItem, Amount: item.Value, ItemID: &id, File: item.File}, nil
	}
	return models.Stake{}, reason.Item
}

// Refund reverses a stake entry back to its original owner. Idempotency is
// the caller's duty: call at most once per entry.
func Refund(ctx context.Context, lx Ledger, playerID uuid.UUID, st models.Stake) error {
	if st.Type == models.BetItem {
		if st.ItemID == nil {
			return nil
		}
		return lx.TransferItem(ctx, *st.ItemID, playerID)
	}
	return lx.CreditBalance(ctx, playerID, st.Amount)
}

// Award pays a stake entry out to the winner.
func Award(ctx context.Context, lx Ledger, winnerID uuid.UUID, st models.Stake) error {
	if st.Type == models.BetItem {
		if st.ItemID == nil {
			return nil
		}
		return lx.TransferItem(ctx, *st.ItemID, winnerID)
	}
	return lx.CreditBalance(ctx, winnerID, st.Amount)
}
