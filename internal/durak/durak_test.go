// internal/durak/durak_test.go
package durak

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkazarin/stavka/internal/models"
	"github.com/vkazarin/stavka/internal/reason"
)

var t0 = time.Unix(1700000000, 0)

func card(rank, suit string, value int) models.Card {
	return models.Card{Rank: rank, Suit: suit, Value: value}
}

// buildGame constructs a hand-crafted state with spades as trump,
// seat 0 attacking seat 1.
func buildGame(mode models.CardsMode, hands ...[]models.Card) *State {
	s := &State{
		Mode:   mode,
		Trump:  card("6", "S", 6),
		Phase:  PhaseAttack,
		Status: StatusActive,
	}
	for _, h := range hands {
		id := uuid.New()
		s.Order = append(s.Order, id)
		s.Players = append(s.Players, &Player{ID: id, Hand: append([]models.Card(nil), h...)})
	}
	s.AttackerIndex = 0
	s.DefenderIndex = 1
	s.MaxAttack = min(HandSize, len(s.Players[1].Hand))
	s.TurnStartedAt = t0
	s.syncTurn()
	return s
}

// cardTotal counts every card in hands, deck, discard and on the table.
func cardTotal(s *State) int {
	n := len(s.Deck) + len(s.Discard)
	for _, p := range s.Players {
		n += len(p.Hand)
	}
	for _, pair := range s.Table {
		n++
		if pair.Defense != nil {
			n++
		}
	}
	return n
}

// derivedTurnOwner recomputes the turn owner from scratch; the cached field
// must always agree.
func derivedTurnOwner(s *State) uuid.UUID {
	if s.Phase == PhaseDefend {
		return s.Players[s.DefenderIndex].ID
	}
	return s.Players[s.AttackerIndex].ID
}

func TestInitDealAndTrump(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	s := Init(ids, models.ModeClassic, 36, t0)

	require.Len(t, s.Players, 2)
	for _, p := range s.Players {
		assert.Len(t, p.Hand, HandSize)
	}
	assert.Len(t, s.Deck, 36-2*HandSize)
	assert.Equal(t, 36, cardTotal(s))
	assert.Equal(t, s.Deck[0], s.Trump, "trump is the revealed bottom card")
	assert.Equal(t, PhaseAttack, s.Phase)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, HandSize, s.MaxAttack)

	// The attacker holds the lowest trump, seat order breaking ties.
	lowest := 0
	want := 0
	for i, p := range s.Players {
		for _, c := range p.Hand {
			if c.Suit == s.Trump.Suit && (lowest == 0 || c.Value < lowest) {
				lowest = c.Value
				want = i
			}
		}
	}
	assert.Equal(t, want, s.AttackerIndex)
	assert.Equal(t, derivedTurnOwner(s), s.TurnOwnerID)
}

func TestInit52Deck(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	s := Init(ids, models.ModePodkidnoy, 52, t0)
	assert.Equal(t, 52, cardTotal(s))
	assert.Len(t, s.Deck, 52-4*HandSize)
}

func TestAttackNotTurn(t *testing.T) {
	s := buildGame(models.ModeClassic,
		[]models.Card{card("7", "H", 7)},
		[]models.Card{card("9", "H", 9)},
	)
	defender := s.Players[1]

	err := s.Attack(defender.ID, card("9", "H", 9), t0)
	assert.ErrorIs(t, err, reason.NotTurn)
	assert.Empty(t, s.Table)
	assert.Len(t, defender.Hand, 1)
}

func TestAttackCardMissing(t *testing.T) {
	s := buildGame(models.ModeClassic,
		[]models.Card{card("7", "H", 7)},
		[]models.Card{card("9", "H", 9)},
	)
	err := s.Attack(s.Players[0].ID, card("K", "D", 13), t0)
	assert.ErrorIs(t, err, reason.CardMissing)
}

func TestAttackDefendBeatAndResolve(t *testing.T) {
	s := buildGame(models.ModeClassic,
		[]models.Card{card("7", "H", 7), card("8", "C", 8)},
		[]models.Card{card("9", "H", 9), card("6", "D", 6)},
	)
	attacker, defender := s.Players[0], s.Players[1]
	total := cardTotal(s)

	require.NoError(t, s.Attack(attacker.ID, card("7", "H", 7), t0))
	assert.Equal(t, PhaseDefend, s.Phase)
	assert.Equal(t, defender.ID, s.TurnOwnerID)
	assert.Equal(t, total, cardTotal(s))

	// Higher card of the same suit beats.
	require.NoError(t, s.Defend(defender.ID, card("9", "H", 9), 0, t0))
	require.NotNil(t, s.Table[0].Defense)
	assert.Equal(t, 9, s.Table[0].Defense.Value)
	assert.Equal(t, PhaseThrow, s.Phase, "phase becomes throw once every slot is defended")
	assert.Equal(t, attacker.ID, s.TurnOwnerID)
	assert.Equal(t, total, cardTotal(s))

	// Attacker has nothing to add; round resolves to discard.
	require.NoError(t, s.Pass(attacker.ID, t0))
	assert.Empty(t, s.Table)
	assert.Len(t, s.Discard, 2)
	assert.Equal(t, total, cardTotal(s))

	// Successful defense hands the attack to the defender.
	assert.Equal(t, 1, s.AttackerIndex)
	assert.Equal(t, 0, s.DefenderIndex)
	assert.Equal(t, PhaseAttack, s.Phase)
	assert.Equal(t, min(HandSize, len(attacker.Hand)), s.MaxAttack)
	assert.Equal(t, derivedTurnOwner(s), s.TurnOwnerID)
}

func TestDefendTrumpBeatsOffsuit(t *testing.T) {
	s := buildGame(models.ModeClassic,
		[]models.Card{card("A", "H", 14), card("2", "C", 2)},
		[]models.Card{card("7", "S", 7), card("2", "D", 2)},
	)
	require.NoError(t, s.Attack(s.Players[0].ID, card("A", "H", 14), t0))
	require.NoError(t, s.Defend(s.Players[1].ID, card("7", "S", 7), 0, t0))
	assert.Equal(t, PhaseThrow, s.Phase)
}

func TestDefendNoBeat(t *testing.T) {
	s := buildGame(models.ModeClassic,
		[]models.Card{card("7", "H", 7)},
		[]models.Card{card("6", "C", 6), card("2", "D", 2)},
	)
	require.NoError(t, s.Attack(s.Players[0].ID, card("7", "H", 7), t0))

	err := s.Defend(s.Players[1].ID, card("6", "C", 6), 0, t0)
	assert.ErrorIs(t, err, reason.NoBeat)
	assert.Nil(t, s.Table[0].Defense)
	assert.Len(t, s.Players[1].Hand, 2)
}

func TestDefendAlreadyDefended(t *testing.T) {
	s := buildGame(models.ModePodkidnoy,
		[]models.Card{card("7", "H", 7), card("7", "C", 7)},
		[]models.Card{card("9", "H", 9), card("8", "C", 8), card("2", "D", 2)},
	)
	attacker, defender := s.Players[0], s.Players[1]

	require.NoError(t, s.Attack(attacker.ID, card("7", "H", 7), t0))
	require.NoError(t, s.Defend(defender.ID, card("9", "H", 9), 0, t0))
	require.Equal(t, PhaseThrow, s.Phase)

	// Piling on reopens the defense.
	require.NoError(t, s.Throw(attacker.ID, card("7", "C", 7), t0))
	assert.Equal(t, PhaseDefend, s.Phase)

	err := s.Defend(defender.ID, card("8", "C", 8), 0, t0)
	assert.ErrorIs(t, err, reason.AlreadyDefended)

	require.NoError(t, s.Defend(defender.ID, card("8", "C", 8), 1, t0))
	assert.Equal(t, PhaseThrow, s.Phase)
}

func TestTransferRotatesRoles(t *testing.T) {
	s := buildGame(models.ModeTransfer,
		[]models.Card{card("7", "H", 7), card("2", "C", 2)},
		[]models.Card{card("7", "C", 7), card("2", "D", 2)},
		[]models.Card{card("K", "D", 13), card("2", "H", 2)},
	)
	require.NoError(t, s.Attack(s.Players[0].ID, card("7", "H", 7), t0))

	// Matching rank with nothing defended yet: full role rotation.
	require.NoError(t, s.Defend(s.Players[1].ID, card("7", "C", 7), 0, t0))
	assert.Len(t, s.Table, 2)
	assert.Nil(t, s.Table[0].Defense)
	assert.Nil(t, s.Table[1].Defense)
	assert.Equal(t, 1, s.AttackerIndex)
	assert.Equal(t, 2, s.DefenderIndex)
	assert.Equal(t, PhaseDefend, s.Phase)
	assert.Equal(t, s.Players[2].ID, s.TurnOwnerID)
	assert.Equal(t, min(HandSize, len(s.Players[2].Hand)), s.MaxAttack)
}

func TestTransferRejectedOutsideMode(t *testing.T) {
	s := buildGame(models.ModeClassic,
		[]models.Card{card("7", "H", 7)},
		[]models.Card{card("7", "C", 7), card("2", "D", 2)},
	)
	require.NoError(t, s.Attack(s.Players[0].ID, card("7", "H", 7), t0))
	err := s.Defend(s.Players[1].ID, card("7", "C", 7), 0, t0)
	assert.ErrorIs(t, err, reason.NoBeat)
}

func TestTakeThrowResolve(t *testing.T) {
	s := buildGame(models.ModePodkidnoy,
		[]models.Card{card("7", "H", 7), card("7", "C", 7), card("8", "D", 8), card("9", "D", 9)},
		[]models.Card{card("6", "C", 6), card("6", "D", 6)},
	)
	s.Deck = []models.Card{card("10", "H", 10), card("10", "C", 10), card("10", "D", 10)}
	attacker, defender := s.Players[0], s.Players[1]
	total := cardTotal(s)

	require.NoError(t, s.Attack(attacker.ID, card("7", "H", 7), t0))
	require.NoError(t, s.Take(defender.ID, t0))
	assert.True(t, s.PendingTake)
	assert.Equal(t, PhaseThrowTake, s.Phase)
	assert.Equal(t, attacker.ID, s.TurnOwnerID)

	// Matching rank can still be piled on before the take resolves.
	require.NoError(t, s.Throw(attacker.ID, card("7", "C", 7), t0))
	assert.Equal(t, PhaseThrowTake, s.Phase)

	require.NoError(t, s.Pass(attacker.ID, t0))
	assert.Empty(t, s.Table)
	assert.Len(t, defender.Hand, 4, "defender absorbed the table")
	assert.Len(t, attacker.Hand, 5, "attacker drew back up until the deck ran out")
	assert.Empty(t, s.Deck)
	assert.Equal(t, total, cardTotal(s))

	// A take leaves the attacker in place.
	assert.Equal(t, 0, s.AttackerIndex)
	assert.Equal(t, 1, s.DefenderIndex)
	assert.Equal(t, PhaseAttack, s.Phase)
	assert.False(t, s.PendingTake)
}

func TestThrowClassicOnlyAttacker(t *testing.T) {
	s := buildGame(models.ModeClassic,
		[]models.Card{card("7", "H", 7), card("2", "C", 2)},
		[]models.Card{card("9", "H", 9), card("2", "D", 2)},
		[]models.Card{card("7", "D", 7), card("2", "H", 2)},
	)
	require.NoError(t, s.Attack(s.Players[0].ID, card("7", "H", 7), t0))
	require.NoError(t, s.Defend(s.Players[1].ID, card("9", "H", 9), 0, t0))
	require.Equal(t, PhaseThrow, s.Phase)

	err := s.Throw(s.Players[2].ID, card("7", "D", 7), t0)
	assert.ErrorIs(t, err, reason.NotTurn)
}

func TestThrowWrongRank(t *testing.T) {
	s := buildGame(models.ModePodkidnoy,
		[]models.Card{card("7", "H", 7), card("8", "C", 8)},
		[]models.Card{card("9", "H", 9), card("2", "D", 2), card("2", "H", 2)},
	)
	require.NoError(t, s.Attack(s.Players[0].ID, card("7", "H", 7), t0))
	require.NoError(t, s.Defend(s.Players[1].ID, card("9", "H", 9), 0, t0))

	assert.ErrorIs(t, s.Throw(s.Players[0].ID, card("8", "C", 8), t0), reason.Rank)
}

func TestThrowLimitCappedByDefenderHand(t *testing.T) {
	s := buildGame(models.ModePodkidnoy,
		[]models.Card{card("7", "H", 7), card("7", "C", 7)},
		[]models.Card{card("9", "H", 9)},
	)
	require.Equal(t, 1, s.MaxAttack)
	require.NoError(t, s.Attack(s.Players[0].ID, card("7", "H", 7), t0))
	require.NoError(t, s.Defend(s.Players[1].ID, card("9", "H", 9), 0, t0))

	assert.ErrorIs(t, s.Throw(s.Players[0].ID, card("7", "C", 7), t0), reason.Limit)
}

func TestThrowClearsPasses(t *testing.T) {
	s := buildGame(models.ModePodkidnoy,
		[]models.Card{card("7", "H", 7), card("7", "C", 7), card("2", "C", 2)},
		[]models.Card{card("9", "H", 9), card("9", "C", 9), card("2", "D", 2)},
		[]models.Card{card("7", "D", 7), card("2", "H", 2)},
	)
	require.NoError(t, s.Attack(s.Players[0].ID, card("7", "H", 7), t0))
	require.NoError(t, s.Defend(s.Players[1].ID, card("9", "H", 9), 0, t0))
	require.Equal(t, PhaseThrow, s.Phase)

	require.NoError(t, s.Pass(s.Players[0].ID, t0))
	require.Len(t, s.Passes, 1)

	// A fresh card resets the pass tally.
	require.NoError(t, s.Throw(s.Players[2].ID, card("7", "D", 7), t0))
	assert.Empty(t, s.Passes)
	assert.Equal(t, PhaseDefend, s.Phase)
}

func TestDeckExhaustionWinner(t *testing.T) {
	s := buildGame(models.ModeClassic,
		[]models.Card{card("6", "H", 6)},
		[]models.Card{card("9", "H", 9), card("8", "C", 8)},
	)
	attacker, defender := s.Players[0], s.Players[1]
	total := cardTotal(s)

	require.NoError(t, s.Attack(attacker.ID, card("6", "H", 6), t0))
	require.NoError(t, s.Defend(defender.ID, card("9", "H", 9), 0, t0))
	require.NoError(t, s.Pass(attacker.ID, t0))

	assert.True(t, attacker.Finished)
	assert.Equal(t, StatusFinished, s.Status)
	require.NotNil(t, s.WinnerID)
	assert.Equal(t, attacker.ID, *s.WinnerID, "first to empty their hand wins")
	assert.Equal(t, []uuid.UUID{attacker.ID}, s.FinishOrder)
	assert.Equal(t, total, cardTotal(s))
}

func TestApplyTimeoutEliminates(t *testing.T) {
	s := buildGame(models.ModeClassic,
		[]models.Card{card("7", "H", 7), card("8", "C", 8)},
		[]models.Card{card("9", "H", 9), card("2", "D", 2)},
	)
	attacker, defender := s.Players[0], s.Players[1]
	total := cardTotal(s)

	assert.False(t, s.ApplyTimeout(t0.Add(59*time.Second)), "no change before the deadline")

	changed := s.ApplyTimeout(t0.Add(61 * time.Second))
	assert.True(t, changed)
	assert.True(t, attacker.Finished)
	assert.Empty(t, attacker.Hand, "eliminated hand moves to the discard pile")
	assert.Equal(t, StatusFinished, s.Status)
	require.NotNil(t, s.WinnerID)
	assert.Equal(t, defender.ID, *s.WinnerID)
	assert.Equal(t, total, cardTotal(s))
}

func TestApplyTimeoutThreePlayersContinues(t *testing.T) {
	s := buildGame(models.ModePodkidnoy,
		[]models.Card{card("7", "H", 7)},
		[]models.Card{card("9", "H", 9)},
		[]models.Card{card("K", "D", 13)},
	)
	total := cardTotal(s)

	require.True(t, s.ApplyTimeout(t0.Add(TurnTimeout)))
	assert.True(t, s.Players[0].Finished)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, 2, s.activeCount())
	assert.Equal(t, total, cardTotal(s))
	assert.Equal(t, derivedTurnOwner(s), s.TurnOwnerID)
	assert.False(t, s.Players[s.AttackerIndex].Finished)
	assert.False(t, s.Players[s.DefenderIndex].Finished)
}

func TestAttackerTimeoutAfterTakeDefenderAbsorbs(t *testing.T) {
	s := buildGame(models.ModePodkidnoy,
		[]models.Card{card("7", "H", 7), card("2", "C", 2)},
		[]models.Card{card("6", "C", 6), card("6", "D", 6)},
		[]models.Card{card("K", "D", 13), card("2", "H", 2)},
	)
	attacker, defender := s.Players[0], s.Players[1]
	total := cardTotal(s)

	require.NoError(t, s.Attack(attacker.ID, card("7", "H", 7), t0))
	require.NoError(t, s.Take(defender.ID, t0))
	require.Equal(t, attacker.ID, s.TurnOwnerID)

	require.True(t, s.ApplyTimeout(t0.Add(61*time.Second)))
	assert.True(t, attacker.Finished)
	assert.Equal(t, StatusActive, s.Status)

	// The declared take still stands: the table goes to the defender, not
	// the discard pile.
	assert.Len(t, defender.Hand, 3)
	assert.Contains(t, defender.Hand, card("7", "H", 7))
	assert.Empty(t, s.Table)
	assert.False(t, s.PendingTake)
	assert.Equal(t, total, cardTotal(s))
	assert.Equal(t, derivedTurnOwner(s), s.TurnOwnerID)
}

func TestDefenderEliminatedAfterTakeDiscardsTable(t *testing.T) {
	s := buildGame(models.ModePodkidnoy,
		[]models.Card{card("7", "H", 7), card("2", "C", 2)},
		[]models.Card{card("6", "C", 6), card("6", "D", 6)},
		[]models.Card{card("K", "D", 13), card("2", "H", 2)},
	)
	defender := s.Players[1]
	total := cardTotal(s)

	require.NoError(t, s.Attack(s.Players[0].ID, card("7", "H", 7), t0))
	require.NoError(t, s.Take(defender.ID, t0))
	require.NoError(t, s.Eliminate(defender.ID, t0))

	// Nobody inherits a dead defender's take; the round dies to the discard.
	assert.True(t, defender.Finished)
	assert.Empty(t, s.Table)
	assert.Len(t, s.Discard, 3, "the table card plus the defender's hand")
	assert.False(t, s.PendingTake)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, total, cardTotal(s))
}

func TestPassIneligible(t *testing.T) {
	s := buildGame(models.ModeClassic,
		[]models.Card{card("7", "H", 7), card("2", "C", 2)},
		[]models.Card{card("9", "H", 9), card("2", "D", 2)},
	)
	require.NoError(t, s.Attack(s.Players[0].ID, card("7", "H", 7), t0))
	require.NoError(t, s.Defend(s.Players[1].ID, card("9", "H", 9), 0, t0))

	// The defender never passes.
	assert.ErrorIs(t, s.Pass(s.Players[1].ID, t0), reason.NotTurn)

	// Double pass is rejected too (the first one resolves the round here).
	require.NoError(t, s.Pass(s.Players[0].ID, t0))
	assert.ErrorIs(t, s.Pass(s.Players[0].ID, t0), reason.NotTurn)
}

func TestTurnOwnerNeverDrifts(t *testing.T) {
	s := buildGame(models.ModePodkidnoy,
		[]models.Card{card("7", "H", 7), card("7", "C", 7), card("2", "C", 2)},
		[]models.Card{card("9", "H", 9), card("9", "D", 9), card("2", "D", 2)},
		[]models.Card{card("7", "D", 7), card("2", "H", 2)},
	)
	steps := []func() error{
		func() error { return s.Attack(s.Players[0].ID, card("7", "H", 7), t0) },
		func() error { return s.Defend(s.Players[1].ID, card("9", "H", 9), 0, t0) },
		func() error { return s.Throw(s.Players[2].ID, card("7", "D", 7), t0) },
		func() error { return s.Defend(s.Players[1].ID, card("9", "D", 9), 1, t0) },
		func() error { return s.Pass(s.Players[0].ID, t0) },
		func() error { return s.Pass(s.Players[2].ID, t0) },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assert.Equal(t, derivedTurnOwner(s), s.TurnOwnerID, "step %d", i)
	}
}

func TestActionsAfterFinishRejected(t *testing.T) {
	s := buildGame(models.ModeClassic,
		[]models.Card{card("7", "H", 7)},
		[]models.Card{card("9", "H", 9)},
	)
	require.True(t, s.ApplyTimeout(t0.Add(TurnTimeout)))
	require.Equal(t, StatusFinished, s.Status)

	assert.ErrorIs(t, s.Attack(s.Players[0].ID, card("7", "H", 7), t0), reason.GameClosed)
	assert.ErrorIs(t, s.Take(s.Players[1].ID, t0), reason.GameClosed)
	assert.False(t, s.ApplyTimeout(t0.Add(5*time.Minute)))
}
