package models

import "github.com/google/uuid"

// Item is a unique inventory asset a player can wager instead of currency.
// Value is its appraised price in currency units; File references the
// rendered asset served by the presentation layer.
type Item struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Name    string    `json:"name"`
	Value   int64     `json:"value"`
	File    string    `json:"file,omitempty"`
}
