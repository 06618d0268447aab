package models

// Card is a single playing card. Value carries the beat ordering
// 2..10, J, Q, K, A => 2..14 so trump comparisons are plain integer math.
type Card struct {
	Rank  string `json:"rank"`
	Suit  string `json:"suit"`
	Value int    `json:"value"`
}

// Suits uses single-letter codes: Hearts, Diamonds, Clubs, Spades.
var Suits = []string{"H", "D", "C", "S"}

var rankValues = []struct {
	Rank  string
	Value int
}{
	{"2", 2}, {"3", 3}, {"4", 4}, {"5", 5}, {"6", 6}, {"7", 7}, {"8", 8},
	{"9", 9}, {"10", 10}, {"J", 11}, {"Q", 12}, {"K", 13}, {"A", 14},
}

// NewDeck builds an unshuffled deck of the given size. A 36-card deck
// starts at rank 6; a 52-card deck uses all thirteen ranks.
func NewDeck(size int) []Card {
	lowest := 2
	if size == 36 {
		lowest = 6
	}
	var deck []Card
	for _, suit := range Suits {
		for _, rv := range rankValues {
			if rv.Value < lowest {
				continue
			}
			deck = append(deck, Card{Rank: rv.Rank, Suit: suit, Value: rv.Value})
		}
	}
	return deck
}
