// internal/lobby/settle.go
package lobby

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vkazarin/stavka/internal/escrow"
	"github.com/vkazarin/stavka/internal/models"
)

// settle pays the pool out exactly once. With a winner, every stake entry
// is awarded to them; without one (abandoned game), each stake refunds to
// its original owner. Runs inside the transaction that holds the lobby row
// lock, and the settled flag flips in the same write — two concurrent
// pollers can both observe finished && !settled, but only one commit wins.
func (m *Manager) settle(ctx context.Context, lx escrow.Ledger, l *models.Lobby, st *State) error {
	if st.Settled {
		return nil
	}
	winner := st.winner()
	for pidStr, stake := range st.Stakes {
		pid, err := uuid.Parse(pidStr)
		if err != nil {
			return err
		}
		if winner != nil {
			err = escrow.Award(ctx, lx, *winner, stake)
		} else {
			err = escrow.Refund(ctx, lx, pid, stake)
		}
		if err != nil {
			return err
		}
	}
	st.Settled = true

	fields := log.Fields{"lobby": l.ID, "stakes": len(st.Stakes)}
	if winner != nil {
		fields["winner"] = *winner
	}
	m.Log.WithFields(fields).Info("lobby settled")
	m.journal(ctx, l.ID, l.OwnerID, "settlement", map[string]interface{}{
		"winner": winnerString(winner),
		"pool":   pool(st),
	})
	return nil
}

func pool(st *State) int64 {
	var total int64
	for _, stake := range st.Stakes {
		if stake.Type == models.BetCurrency {
			total += stake.Amount
		}
	}
	return total
}

func winnerString(w *uuid.UUID) string {
	if w == nil {
		return ""
	}
	return w.String()
}
