// internal/reason/reason.go
package reason

// Reason is a machine-readable rejection code. Every failed engine or lobby
// operation returns one of these values; the HTTP layer serializes the string
// verbatim so clients can branch on it without parsing prose.
type Reason string

func (r Reason) Error() string { return string(r) }

// Game action rejections.
const (
	NotTurn         Reason = "not_turn"
	CardMissing     Reason = "card_missing"
	Limit           Reason = "limit"
	Rank            Reason = "rank"
	NoBeat          Reason = "no_beat"
	AlreadyDefended Reason = "already_defended"
	Action          Reason = "action"
	Coords          Reason = "coords"
	InvalidMove     Reason = "invalid_move"
	GameClosed      Reason = "game_closed"
	NotPlayer       Reason = "not_player"
	Unknown         Reason = "unknown"
)

// Lobby lifecycle rejections.
const (
	NotFound     Reason = "not_found"
	Closed       Reason = "closed"
	Full         Reason = "full"
	Active       Reason = "active"
	Owner        Reason = "owner"
	Started      Reason = "started"
	Players      Reason = "players"
	CreateFailed Reason = "create_failed"
)

// Stake rejections.
const (
	Funds     Reason = "funds"
	Item      Reason = "item"
	ItemPrice Reason = "item_price"
)
