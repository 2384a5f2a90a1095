package model

import "fmt"

// Coord is a square on the shared board grid. The origin is the top-left
// corner as seen by the player in slot 1.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// Side names one of the four edges of a card.
type Side string

const (
	SideTop    Side = "top"
	SideRight  Side = "right"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
)

// Sides lists the card edges in a stable order.
var Sides = []Side{SideTop, SideRight, SideBottom, SideLeft}

// Opposite returns the edge facing this one across a shared border.
func (s Side) Opposite() Side {
	switch s {
	case SideTop:
		return SideBottom
	case SideBottom:
		return SideTop
	case SideRight:
		return SideLeft
	default:
		return SideRight
	}
}

// Step returns the neighbouring coordinate across the given edge using the
// fixed board geometry: top is y-1, bottom y+1, left x-1, right x+1.
func (c Coord) Step(side Side) Coord {
	switch side {
	case SideTop:
		return Coord{X: c.X, Y: c.Y - 1}
	case SideBottom:
		return Coord{X: c.X, Y: c.Y + 1}
	case SideLeft:
		return Coord{X: c.X - 1, Y: c.Y}
	default:
		return Coord{X: c.X + 1, Y: c.Y}
	}
}

// Neighbours returns the orthogonal neighbours in Sides order.
func (c Coord) Neighbours() []Coord {
	out := make([]Coord, 0, len(Sides))
	for _, side := range Sides {
		out = append(out, c.Step(side))
	}
	return out
}

// SideTowards returns the board edge of c facing the adjacent coordinate to.
func (c Coord) SideTowards(to Coord) (Side, bool) {
	for _, side := range Sides {
		if c.Step(side) == to {
			return side, true
		}
	}
	return "", false
}

// Rotated maps a board-facing side to the stored stat side for a player slot.
// Slot 0 sits on the far edge of the board and reads the grid turned 180
// degrees, which swaps top and bottom. Every other slot reads stored stats.
func Rotated(side Side, slot int) Side {
	if slot != 0 {
		return side
	}
	switch side {
	case SideTop:
		return SideBottom
	case SideBottom:
		return SideTop
	default:
		return side
	}
}

// SquareKind tags a temporary board square.
type SquareKind string

const (
	// SquareBarrier blocks placement and movement until it expires.
	SquareBarrier SquareKind = "barrier"
)

// Square is a temporary board feature with a remaining lifetime in turns.
type Square struct {
	Coord     Coord      `json:"coord"`
	Kind      SquareKind `json:"kind"`
	Owner     string     `json:"owner,omitempty"`
	TurnsLeft int        `json:"turnsLeft"`
}

// Settings are the per-game-type board rules, value-copied into the instance.
type Settings struct {
	BoardWidth  int `json:"boardWidth" yaml:"boardWidth"`
	BoardHeight int `json:"boardHeight" yaml:"boardHeight"`
	HandSize    int `json:"handSize" yaml:"handSize"`
	InitialHand int `json:"initialHand" yaml:"initialHand"`
	MaxTurns    int `json:"maxTurns" yaml:"maxTurns"`
}

// DefaultSettings returns the duel board rules.
func DefaultSettings() Settings {
	return Settings{
		BoardWidth:  5,
		BoardHeight: 5,
		HandSize:    5,
		InitialHand: 4,
		MaxTurns:    40,
	}
}

// HomeCoord is where the summoner of a slot starts: bottom centre for slot 1
// and top centre for slot 0.
func (s Settings) HomeCoord(slot int) Coord {
	x := s.BoardWidth / 2
	if slot == 0 {
		return Coord{X: x, Y: 0}
	}
	return Coord{X: x, Y: s.BoardHeight - 1}
}

// ReadSide returns the side stats of a card as its owner sees them.
func ReadSide(inst *GameInstance, card *Card, side Side) SideStats {
	return card.Stats.Side(Rotated(side, inst.UserSlot(card.Owner)))
}

// MutateSide applies fn to the stored side stats that its owner sees as side.
func MutateSide(inst *GameInstance, card *Card, side Side, fn func(*SideStats)) {
	fn(card.Stats.sidePtr(Rotated(side, inst.UserSlot(card.Owner))))
}

// ForwardSide is the board edge a player's cards face: towards the opponent.
func ForwardSide(slot int) Side {
	if slot == 0 {
		return SideBottom
	}
	return SideTop
}
