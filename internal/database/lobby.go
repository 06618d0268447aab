// internal/database/lobby.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vkazarin/stavka/internal/escrow"
	"github.com/vkazarin/stavka/internal/lobby"
	"github.com/vkazarin/stavka/internal/models"
	"github.com/vkazarin/stavka/internal/reason"
)

// LobbyStore is the Postgres-backed lobby.Store. Every operation runs in a
// single transaction; the lobby row is loaded with FOR UPDATE so concurrent
// requests against the same lobby serialize at the database.
type LobbyStore struct {
	Pool *pgxpool.Pool
}

func NewLobbyStore(pool *pgxpool.Pool) *LobbyStore {
	return &LobbyStore{Pool: pool}
}

const lobbyColumns = `id, game_type, mode, deck_size, bet_type, bet_amount, owner_id, status, state, created_at, updated_at`

func (s *LobbyStore) InsertLobby(ctx context.Context, l *models.Lobby, fn func(lx escrow.Ledger) error) error {
	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := fn(&ledgerTx{tx: tx}); err != nil {
			return err
		}
		q := `
		INSERT INTO lobbies (` + lobbyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err := tx.Exec(ctx, q,
			l.ID, l.GameType, l.Mode, l.DeckSize, l.BetType, l.BetAmount,
			l.OwnerID, l.Status, l.State, l.CreatedAt, l.UpdatedAt,
		)
		return err
	})
}

func (s *LobbyStore) UpdateLobby(ctx context.Context, id uuid.UUID, fn func(lx escrow.Ledger, l *models.Lobby) (lobby.Outcome, error)) error {
	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var l models.Lobby
		q := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE id=$1 FOR UPDATE`
		err := tx.QueryRow(ctx, q, id).Scan(
			&l.ID, &l.GameType, &l.Mode, &l.DeckSize, &l.BetType, &l.BetAmount,
			&l.OwnerID, &l.Status, &l.State, &l.CreatedAt, &l.UpdatedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return reason.NotFound
		}
		if err != nil {
			return err
		}

		out, err := fn(&ledgerTx{tx: tx}, &l)
		if err != nil {
			return err
		}
		switch out {
		case lobby.Save:
			_, err = tx.Exec(ctx,
				`UPDATE lobbies SET status=$2, state=$3, updated_at=$4 WHERE id=$1`,
				l.ID, l.Status, l.State, l.UpdatedAt,
			)
			return err
		case lobby.Delete:
			_, err = tx.Exec(ctx, `DELETE FROM lobbies WHERE id=$1`, l.ID)
			return err
		}
		return nil
	})
}

func (s *LobbyStore) ListOpenLobbies(ctx context.Context) ([]models.Lobby, error) {
	q := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE status=$1 ORDER BY created_at`
	rows, err := s.Pool.Query(ctx, q, models.LobbyOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lobbies []models.Lobby
	for rows.Next() {
		var l models.Lobby
		err := rows.Scan(
			&l.ID, &l.GameType, &l.Mode, &l.DeckSize, &l.BetType, &l.BetAmount,
			&l.OwnerID, &l.Status, &l.State, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		lobbies = append(lobbies, l)
	}
	return lobbies, rows.Err()
}

// ledgerTx implements escrow.Ledger on the transaction that also holds the
// lobby row lock, closing the TOCTOU window between checking funds and
// committing the stake.
type ledgerTx struct {
	tx pgx.Tx
}

func (lx *ledgerTx) ReserveBalance(ctx context.Context, playerID uuid.UUID, amount int64) (bool, error) {
	tag, err := lx.tx.Exec(ctx,
		`UPDATE users SET balance = balance - $2 WHERE id=$1 AND balance >= $2`,
		playerID, amount,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (lx *ledgerTx) CreditBalance(ctx context.Context, playerID uuid.UUID, amount int64) error {
	tag, err := lx.tx.Exec(ctx,
		`UPDATE users SET balance = balance + $2 WHERE id=$1`,
		playerID, amount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("credit balance: no such user %s", playerID)
	}
	return nil
}

func (lx *ledgerTx) ReserveItem(ctx context.Context, ownerID, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	q := `
	UPDATE items SET escrowed = true
	WHERE id=$1 AND owner_id=$2 AND NOT escrowed
	RETURNING id, owner_id, name, value, file
	`
	err := lx.tx.QueryRow(ctx, q, itemID, ownerID).Scan(
		&item.ID, &item.OwnerID, &item.Name, &item.Value, &item.File,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (lx *ledgerTx) TransferItem(ctx context.Context, itemID, newOwnerID uuid.UUID) error {
	tag, err := lx.tx.Exec(ctx,
		`UPDATE items SET owner_id=$2, escrowed=false WHERE id=$1`,
		itemID, newOwnerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("transfer item: no such item %s", itemID)
	}
	return nil
}
