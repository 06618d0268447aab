// internal/lobby/memstore.go
package lobby

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vkazarin/stavka/internal/escrow"
	"github.com/vkazarin/stavka/internal/models"
	"github.com/vkazarin/stavka/internal/reason"
)

// MemStore is an in-memory Store with transactional semantics: the body of
// InsertLobby/UpdateLobby either commits wholly or leaves the store and the
// ledger untouched. It backs tests and local development; production runs
// on the Postgres store.
type MemStore struct {
	mu      sync.Mutex
	lobbies map[uuid.UUID]*models.Lobby
	Ledger  *MemLedger
}

func NewMemStore() *MemStore {
	return &MemStore{
		lobbies: map[uuid.UUID]*models.Lobby{},
		Ledger:  NewMemLedger(),
	}
}

func (s *MemStore) InsertLobby(ctx context.Context, l *models.Lobby, fn func(lx escrow.Ledger) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.Ledger.snapshot()
	if err := fn(s.Ledger); err != nil {
		s.Ledger.restore(snap)
		return err
	}
	cp := *l
	cp.State = append([]byte(nil), l.State...)
	s.lobbies[l.ID] = &cp
	return nil
}

func (s *MemStore) UpdateLobby(ctx context.Context, id uuid.UUID, fn func(lx escrow.Ledger, l *models.Lobby) (Outcome, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.lobbies[id]
	if !ok {
		return reason.NotFound
	}
	work := *stored
	work.State = append([]byte(nil), stored.State...)

	snap := s.Ledger.snapshot()
	out, err := fn(s.Ledger, &work)
	if err != nil {
		s.Ledger.restore(snap)
		return err
	}
	switch out {
	case Save:
		s.lobbies[id] = &work
	case Delete:
		delete(s.lobbies, id)
	}
	return nil
}

func (s *MemStore) ListOpenLobbies(ctx context.Context) ([]models.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Lobby
	for _, l := range s.lobbies {
		if l.Status == models.LobbyOpen {
			out = append(out, *l)
		}
	}
	return out, nil
}

// MemLedger holds balances and inventory. Escrowed items are parked under
// uuid.Nil until settlement transfers them out.
type MemLedger struct {
	Balances map[uuid.UUID]int64
	Items    map[uuid.UUID]*models.Item
}

func NewMemLedger() *MemLedger {
	return &MemLedger{
		Balances: map[uuid.UUID]int64{},
		Items:    map[uuid.UUID]*models.Item{},
	}
}

func (m *MemLedger) ReserveBalance(ctx context.Context, playerID uuid.UUID, amount int64) (bool, error) {
	if m.Balances[playerID] < amount {
		return false, nil
	}
	m.Balances[playerID] -= amount
	return true, nil
}

func (m *MemLedger) CreditBalance(ctx context.Context, playerID uuid.UUID, amount int64) error {
	m.Balances[playerID] += amount
	return nil
}

func (m *MemLedger) ReserveItem(ctx context.Context, ownerID, itemID uuid.UUID) (*models.Item, error) {
	item, ok := m.Items[itemID]
	if !ok || item.OwnerID != ownerID {
		return nil, nil
	}
	item.OwnerID = uuid.Nil
	cp := *item
	return &cp, nil
}

func (m *MemLedger) TransferItem(ctx context.Context, itemID, newOwnerID uuid.UUID) error {
	item, ok := m.Items[itemID]
	if !ok {
		return reason.Item
	}
	item.OwnerID = newOwnerID
	return nil
}

func (m *MemLedger) snapshot() *MemLedger {
	snap := NewMemLedger()
	for k, v := range m.Balances {
		snap.Balances[k] = v
	}
	for k, v := range m.Items {
		cp := *v
		snap.Items[k] = &cp
	}
	return snap
}

func (m *MemLedger) restore(snap *MemLedger) {
	m.Balances = snap.Balances
	m.Items = snap.Items
}
