// internal/durak/durak.go
package durak

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/vkazarin/stavka/internal/models"
	"github.com/vkazarin/stavka/internal/reason"
)

const (
	// HandSize is the number of cards dealt and drawn up to between rounds.
	HandSize = 6

	// TurnTimeout is how long a turn owner may idle before the next observer
	// eliminates them. There is no scheduler; expiry is checked lazily.
	TurnTimeout = 60 * time.Second
)

type Phase string

const (
	PhaseAttack    Phase = "attack"
	PhaseDefend    Phase = "defend"
	PhaseThrow     Phase = "throw"
	PhaseThrowTake Phase = "throw_take"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Pair is one table slot: an attacking card and, once covered, its defense.
type Pair struct {
	Attack  models.Card  `json:"attack"`
	Defense *models.Card `json:"defense,omitempty"`
}

type Player struct {
	ID       uuid.UUID     `json:"id"`
	Hand     []models.Card `json:"hand"`
	Finished bool          `json:"finished"`
}

// State is the full durak game state. It performs no I/O: the lobby manager
// loads it from the lobby row, calls exactly one mutation, and persists it
// back in the same transaction.
//
// TurnOwnerID is derivable from (Phase, AttackerIndex, DefenderIndex); it is
// cached for the timeout sweeper and recomputed by syncTurn after every
// mutation.
type State struct {
	Mode          models.CardsMode `json:"mode"`
	Order         []uuid.UUID      `json:"order"`
	Players       []*Player        `json:"players"`
	Deck          []models.Card    `json:"deck"`
	Trump         models.Card      `json:"trump"`
	Table         []Pair           `json:"table"`
	Discard       []models.Card    `json:"discard"`
	AttackerIndex int              `json:"attacker_index"`
	DefenderIndex int              `json:"defender_index"`
	Phase         Phase            `json:"phase"`
	Passes        []uuid.UUID      `json:"passes,omitempty"`
	PendingTake   bool             `json:"pending_take"`
	MaxAttack     int              `json:"max_attack"`
	FinishOrder   []uuid.UUID      `json:"finish_order,omitempty"`
	WinnerID      *uuid.UUID       `json:"winner_id,omitempty"`
	TurnOwnerID   uuid.UUID        `json:"turn_owner_id"`
	TurnStartedAt time.Time        `json:"turn_started_at"`
	Status        Status           `json:"status"`
}

// Init deals a fresh game. The bottom card of the shuffled deck is revealed
// as trump and drawn last; the first attacker is the holder of the lowest
// trump, seat order breaking ties.
func Init(playerIDs []uuid.UUID, mode models.CardsMode, deckSize int, now time.Time) *State {
	deck := models.NewDeck(deckSize)
	r := rand.New(rand.NewSource(now.UnixNano()))
	r.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	s := &State{
		Mode:   mode,
		Order:  append([]uuid.UUID(nil), playerIDs...),
		Deck:   deck,
		Trump:  deck[0],
		Phase:  PhaseAttack,
		Status: StatusActive,
	}
	for _, id := range playerIDs {
		s.Players = append(s.Players, &Player{ID: id})
	}
	for i := 0; i < HandSize; i++ {
		for _, p := range s.Players {
			if c, ok := s.draw(); ok {
				p.Hand = append(p.Hand, c)
			}
		}
	}

	attacker := 0
	lowest := 0
	for i, p := range s.Players {
		for _, c := range p.Hand {
			if c.Suit == s.Trump.Suit && (lowest == 0 || c.Value < lowest) {
				lowest = c.Value
				attacker = i
			}
		}
	}
	s.AttackerIndex = attacker
	s.DefenderIndex = s.nextActive(attacker)
	s.MaxAttack = min(HandSize, len(s.Players[s.DefenderIndex].Hand))
	s.TurnStartedAt = now
	s.syncTurn()
	return s
}

// Attack opens a table slot with a new attacking card.
func (s *State) Attack(playerID uuid.UUID, card models.Card, now time.Time) error {
	if s.Status != StatusActive {
		return reason.GameClosed
	}
	p, i := s.player(playerID)
	if p == nil {
		return reason.NotPlayer
	}
	if s.Phase != PhaseAttack || i != s.AttackerIndex {
		return reason.NotTurn
	}
	if len(s.Table) >= s.MaxAttack {
		return reason.Limit
	}
	if len(s.Table) > 0 && !s.rankOnTable(card.Rank) {
		return reason.Rank
	}
	played, ok := p.take(card)
	if !ok {
		return reason.CardMissing
	}
	s.Table = append(s.Table, Pair{Attack: played})
	s.Phase = PhaseDefend
	s.Passes = nil
	s.TurnStartedAt = now
	s.syncTurn()
	return nil
}

// Defend covers the table slot at idx, or in transfer mode rotates the
// attack onto the next player when the played card matches the attack rank
// and nothing has been defended yet.
func (s *State) Defend(playerID uuid.UUID, card models.Card, idx int, now time.Time) error {
	if s.Status != StatusActive {
		return reason.GameClosed
	}
	p, i := s.player(playerID)
	if p == nil {
		return reason.NotPlayer
	}
	if s.Phase != PhaseDefend || i != s.DefenderIndex {
		return reason.NotTurn
	}
	if idx < 0 || idx >= len(s.Table) {
		return reason.Action
	}
	if s.Table[idx].Defense != nil {
		return reason.AlreadyDefended
	}
	held, ok := p.peek(card)
	if !ok {
		return reason.CardMissing
	}

	if !s.beats(held, s.Table[idx].Attack) {
		if s.Mode == models.ModeTransfer && !s.anyDefended() && held.Rank == s.Table[idx].Attack.Rank {
			// Full role rotation: the defender joins the attack and the next
			// active player inherits the whole table.
			p.take(held)
			s.Table = append(s.Table, Pair{Attack: held})
			s.AttackerIndex = s.DefenderIndex
			s.DefenderIndex = s.nextActive(s.AttackerIndex)
			s.MaxAttack = min(HandSize, len(s.Players[s.DefenderIndex].Hand))
			s.Passes = nil
			s.TurnStartedAt = now
			s.syncTurn()
			return nil
		}
		return reason.NoBeat
	}

	p.take(held)
	s.Table[idx].Defense = &held
	if !s.anyUndefended() {
		s.Phase = PhaseThrow
		s.Passes = nil
	}
	s.TurnStartedAt = now
	s.syncTurn()
	return nil
}

// Take is the defender conceding the round. The table stays open for
// matching-rank throw-ins until every eligible player has passed.
func (s *State) Take(playerID uuid.UUID, now time.Time) error {
	if s.Status != StatusActive {
		return reason.GameClosed
	}
	p, i := s.player(playerID)
	if p == nil {
		return reason.NotPlayer
	}
	if s.Phase != PhaseDefend || i != s.DefenderIndex {
		return reason.NotTurn
	}
	s.PendingTake = true
	s.Phase = PhaseThrowTake
	s.Passes = nil
	s.TurnStartedAt = now
	s.syncTurn()
	return nil
}

// Throw adds an extra attacking card of a rank already on the table.
func (s *State) Throw(playerID uuid.UUID, card models.Card, now time.Time) error {
	if s.Status != StatusActive {
		return reason.GameClosed
	}
	p, i := s.player(playerID)
	if p == nil {
		return reason.NotPlayer
	}
	if s.Phase != PhaseThrow && s.Phase != PhaseThrowTake {
		return reason.NotTurn
	}
	if p.Finished || i == s.DefenderIndex {
		return reason.NotTurn
	}
	if s.Mode == models.ModeClassic && i != s.AttackerIndex {
		return reason.NotTurn
	}
	if len(s.Table) >= s.MaxAttack {
		return reason.Limit
	}
	if !s.rankOnTable(card.Rank) {
		return reason.Rank
	}
	played, ok := p.take(card)
	if !ok {
		return reason.CardMissing
	}
	s.Table = append(s.Table, Pair{Attack: played})
	// Everyone must re-pass after a new card appears.
	s.Passes = nil
	if s.Phase == PhaseThrow {
		s.Phase = PhaseDefend
	}
	s.TurnStartedAt = now
	s.syncTurn()
	return nil
}

// Pass declares the player has nothing more to add. Once every eligible
// non-defender has passed, the round resolves.
func (s *State) Pass(playerID uuid.UUID, now time.Time) error {
	if s.Status != StatusActive {
		return reason.GameClosed
	}
	p, _ := s.player(playerID)
	if p == nil {
		return reason.NotPlayer
	}
	if s.Phase != PhaseThrow && s.Phase != PhaseThrowTake {
		return reason.NotTurn
	}
	eligible := false
	for _, id := range s.throwers() {
		if id == playerID {
			eligible = true
		}
	}
	if !eligible || s.hasPassed(playerID) {
		return reason.NotTurn
	}
	s.Passes = append(s.Passes, playerID)
	if len(s.Passes) >= len(s.throwers()) {
		s.resolveRound(now)
	} else {
		s.TurnStartedAt = now
		s.syncTurn()
	}
	return nil
}

// Eliminate forces the player out of the game: their hand goes to the
// discard pile and the round resolves as if they passed with nothing left.
// Used for turn timeouts and for leaving an active game.
func (s *State) Eliminate(playerID uuid.UUID, now time.Time) error {
	if s.Status != StatusActive {
		return reason.GameClosed
	}
	p, _ := s.player(playerID)
	if p == nil {
		return reason.NotPlayer
	}
	if p.Finished {
		return nil
	}
	p.Finished = true
	s.Discard = append(s.Discard, p.Hand...)
	p.Hand = nil

	if s.activeCount() <= 1 {
		s.PendingTake = false
		s.discardTable()
		s.finish()
		return nil
	}
	// A declared take survives the elimination of anyone but the defender:
	// resolveRound still hands the table to the defender, and resets the flag.
	s.resolveRound(now)
	return nil
}

// ApplyTimeout eliminates the turn owner if their turn has expired.
// Returns true when the state changed.
func (s *State) ApplyTimeout(now time.Time) bool {
	if s.Status != StatusActive {
		return false
	}
	if now.Sub(s.TurnStartedAt) < TurnTimeout {
		return false
	}
	return s.Eliminate(s.TurnOwnerID, now) == nil
}

// resolveRound settles the table, draws everyone back up to six, marks
// emptied hands finished and rotates attacker/defender for the next round.
func (s *State) resolveRound(now time.Time) {
	took := s.PendingTake
	if took {
		def := s.Players[s.DefenderIndex]
		if def.Finished {
			// Defender was eliminated mid-take; cards die with the round.
			s.discardTable()
		} else {
			for _, pair := range s.Table {
				def.Hand = append(def.Hand, pair.Attack)
				if pair.Defense != nil {
					def.Hand = append(def.Hand, *pair.Defense)
				}
			}
			s.Table = nil
		}
	} else {
		s.discardTable()
	}
	s.Passes = nil
	s.PendingTake = false

	// Draw up in seat order starting from the attacker.
	n := len(s.Players)
	for k := 0; k < n; k++ {
		p := s.Players[(s.AttackerIndex+k)%n]
		if p.Finished {
			continue
		}
		for len(p.Hand) < HandSize {
			c, ok := s.draw()
			if !ok {
				break
			}
			p.Hand = append(p.Hand, c)
		}
	}

	if len(s.Deck) == 0 {
		for _, p := range s.Players {
			if !p.Finished && len(p.Hand) == 0 {
				p.Finished = true
				s.FinishOrder = append(s.FinishOrder, p.ID)
				if s.WinnerID == nil {
					id := p.ID
					s.WinnerID = &id
				}
			}
		}
	}

	if s.activeCount() <= 1 {
		s.finish()
		return
	}

	// Successful defense passes the attack to the defender; a take leaves
	// the attacker in place.
	next := s.DefenderIndex
	if took {
		next = s.AttackerIndex
	}
	if s.Players[next].Finished {
		next = s.nextActive(next)
	}
	s.AttackerIndex = next
	s.DefenderIndex = s.nextActive(next)
	s.MaxAttack = min(HandSize, len(s.Players[s.DefenderIndex].Hand))
	s.Phase = PhaseAttack
	s.TurnStartedAt = now
	s.syncTurn()
}

func (s *State) finish() {
	s.Status = StatusFinished
	if s.WinnerID == nil {
		for _, p := range s.Players {
			if !p.Finished {
				id := p.ID
				s.WinnerID = &id
				break
			}
		}
	}
}

// syncTurn recomputes the cached turn owner from the authoritative fields.
func (s *State) syncTurn() {
	if s.Phase == PhaseDefend {
		s.TurnOwnerID = s.Players[s.DefenderIndex].ID
		return
	}
	s.TurnOwnerID = s.Players[s.AttackerIndex].ID
}

// throwers lists the players who must pass before the round resolves.
func (s *State) throwers() []uuid.UUID {
	var ids []uuid.UUID
	for i, p := range s.Players {
		if p.Finished || i == s.DefenderIndex {
			continue
		}
		if s.Mode == models.ModeClassic && i != s.AttackerIndex {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids
}

func (s *State) hasPassed(id uuid.UUID) bool {
	for _, pid := range s.Passes {
		if pid == id {
			return true
		}
	}
	return false
}

// beats reports whether def covers att under the current trump.
func (s *State) beats(def, att models.Card) bool {
	if def.Suit == att.Suit {
		return def.Value > att.Value
	}
	return def.Suit == s.Trump.Suit
}

func (s *State) rankOnTable(rank string) bool {
	for _, pair := range s.Table {
		if pair.Attack.Rank == rank {
			return true
		}
		if pair.Defense != nil && pair.Defense.Rank == rank {
			return true
		}
	}
	return false
}

func (s *State) anyDefended() bool {
	for _, pair := range s.Table {
		if pair.Defense != nil {
			return true
		}
	}
	return false
}

func (s *State) anyUndefended() bool {
	for _, pair := range s.Table {
		if pair.Defense == nil {
			return true
		}
	}
	return false
}

func (s *State) discardTable() {
	for _, pair := range s.Table {
		s.Discard = append(s.Discard, pair.Attack)
		if pair.Defense != nil {
			s.Discard = append(s.Discard, *pair.Defense)
		}
	}
	s.Table = nil
}

func (s *State) player(id uuid.UUID) (*Player, int) {
	for i, p := range s.Players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

func (s *State) activeCount() int {
	n := 0
	for _, p := range s.Players {
		if !p.Finished {
			n++
		}
	}
	return n
}

// nextActive returns the next unfinished seat clockwise from i, excluding i.
func (s *State) nextActive(i int) int {
	n := len(s.Players)
	for k := 1; k < n; k++ {
		j := (i + k) % n
		if !s.Players[j].Finished {
			return j
		}
	}
	return i
}

// draw pops from the top of the deck; the revealed trump at the bottom is
// drawn last.
func (s *State) draw() (models.Card, bool) {
	if len(s.Deck) == 0 {
		return models.Card{}, false
	}
	c := s.Deck[len(s.Deck)-1]
	s.Deck = s.Deck[:len(s.Deck)-1]
	return c, true
}

// peek finds the canonical hand card matching the payload's rank and suit.
// Client payloads are never trusted for the value field.
func (p *Player) peek(card models.Card) (models.Card, bool) {
	for _, c := range p.Hand {
		if c.Rank == card.Rank && c.Suit == card.Suit {
			return c, true
		}
	}
	return models.Card{}, false
}

// take removes and returns the matching hand card.
func (p *Player) take(card models.Card) (models.Card, bool) {
	for i, c := range p.Hand {
		if c.Rank == card.Rank && c.Suit == card.Suit {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return c, true
		}
	}
	return models.Card{}, false
}
