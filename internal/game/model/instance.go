package model

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/magefree/arena-server-go/internal/game/counters"
)

// Status is the lifecycle state of a game instance.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Outcome is the per-user result of a finished game.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
)

// Reward rule modifiers.
const (
	ModifierDoubleLoot = "doubleLoot"
	ModifierNoLoot     = "noLoot"
)

// User is one seat of an instance. Its slot is its index in GameInstance.Users.
type User struct {
	ID           string             `json:"id"`
	Destiny      string             `json:"destiny,omitempty"`
	Origin       string             `json:"origin,omitempty"`
	Style        string             `json:"style,omitempty"`
	Counters     *counters.Counters `json:"counters"`
	Achievements []string           `json:"achievements,omitempty"`
}

// HasAchievement reports whether the user already unlocked name.
func (u *User) HasAchievement(name string) bool {
	return slices.Contains(u.Achievements, name)
}

// Result is the outcome and reward of one user.
type Result struct {
	User    string  `json:"user"`
	Outcome Outcome `json:"outcome"`
	Loot    int     `json:"loot"`
}

// Turn tracks whose turn it is.
type Turn struct {
	Number int    `json:"number"`
	User   string `json:"user"`
}

// GameInstance is one match. It is mutated only while its engine session
// holds the state lock.
type GameInstance struct {
	ID         string    `json:"id"`
	GameTypeID string    `json:"gameTypeId"`
	Status     Status    `json:"status"`
	Users      []*User   `json:"users"`
	Cards      []*Card   `json:"cards"`
	Actions    Actions   `json:"actions"`
	Result     []Result  `json:"result,omitempty"`
	Modifiers  []string  `json:"modifiers,omitempty"`
	Settings   Settings  `json:"settings"`
	Squares    []*Square `json:"squares,omitempty"`
	Turn       Turn      `json:"turn"`
	Seed       uint64    `json:"seed"`
	RandCalls  uint64    `json:"randCalls"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Ended reports whether the match is over.
func (g *GameInstance) Ended() bool {
	return g.Status == StatusEnded
}

// UserSlot returns the seat index of a user, or -1.
func (g *GameInstance) UserSlot(userID string) int {
	for i, u := range g.Users {
		if u.ID == userID {
			return i
		}
	}
	return -1
}

// User returns the seat of a user, or nil.
func (g *GameInstance) User(userID string) *User {
	if slot := g.UserSlot(userID); slot >= 0 {
		return g.Users[slot]
	}
	return nil
}

// Opponent returns the id of the other seat in a two-player game.
func (g *GameInstance) Opponent(userID string) string {
	for _, u := range g.Users {
		if u.ID != userID {
			return u.ID
		}
	}
	return ""
}

// HasModifier reports whether a reward modifier is active.
func (g *GameInstance) HasModifier(name string) bool {
	return slices.Contains(g.Modifiers, name)
}

// CardByID returns a card by id, or nil.
func (g *GameInstance) CardByID(id string) *Card {
	for _, c := range g.Cards {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// CardAt returns the board card occupying coord, or nil.
func (g *GameInstance) CardAt(coord Coord) *Card {
	for _, c := range g.Cards {
		if c.OnBoard() && *c.Coord == coord {
			return c
		}
	}
	return nil
}

func (g *GameInstance) cardsIn(userID string, loc Location) []*Card {
	var out []*Card
	for _, c := range g.Cards {
		if c.Location == loc && (userID == "" || c.Owner == userID) {
			out = append(out, c)
		}
	}
	return out
}

// Hand returns the user's hand. A hand index is a position in this slice,
// which follows the order of Cards.
func (g *GameInstance) Hand(userID string) []*Card {
	return g.cardsIn(userID, LocationHand)
}

// Deck returns the user's deck, top card first.
func (g *GameInstance) Deck(userID string) []*Card {
	return g.cardsIn(userID, LocationDeck)
}

// Discard returns the user's discard pile.
func (g *GameInstance) Discard(userID string) []*Card {
	return g.cardsIn(userID, LocationDiscard)
}

// BoardCards returns the cards in play, for one user or for everybody when
// userID is empty.
func (g *GameInstance) BoardCards(userID string) []*Card {
	return g.cardsIn(userID, LocationBoard)
}

// Summoner returns the summoner card of a user, wherever it is.
func (g *GameInstance) Summoner(userID string) *Card {
	for _, c := range g.Cards {
		if c.Owner == userID && c.Type == CardTypeSummoner {
			return c
		}
	}
	return nil
}

// SquareAt returns the temporary square at coord, or nil.
func (g *GameInstance) SquareAt(coord Coord) *Square {
	for _, s := range g.Squares {
		if s.Coord == coord {
			return s
		}
	}
	return nil
}

// InBounds reports whether coord lies on the board.
func (g *GameInstance) InBounds(coord Coord) bool {
	return coord.X >= 0 && coord.Y >= 0 &&
		coord.X < g.Settings.BoardWidth && coord.Y < g.Settings.BoardHeight
}

// IsFree reports whether a card may be put or moved onto coord.
func (g *GameInstance) IsFree(coord Coord) bool {
	if !g.InBounds(coord) || g.CardAt(coord) != nil {
		return false
	}
	if s := g.SquareAt(coord); s != nil && s.Kind == SquareBarrier {
		return false
	}
	return true
}

// FreeCoords lists every free square in row-major order.
func (g *GameInstance) FreeCoords() []Coord {
	var out []Coord
	for y := 0; y < g.Settings.BoardHeight; y++ {
		for x := 0; x < g.Settings.BoardWidth; x++ {
			c := Coord{X: x, Y: y}
			if g.IsFree(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// AddAction appends an action to the current list.
func (g *GameInstance) AddAction(a *Action) {
	g.Actions.Current = append(g.Actions.Current, a)
}

// FindAction returns a current action by id, or nil.
func (g *GameInstance) FindAction(id string) *Action {
	for _, a := range g.Actions.Current {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// RetireAction moves an action from current to previous and stamps PassedAt.
// It reports false when the action is not current.
func (g *GameInstance) RetireAction(a *Action, now time.Time) bool {
	idx := slices.Index(g.Actions.Current, a)
	if idx < 0 {
		return false
	}
	g.Actions.Current = slices.Delete(g.Actions.Current, idx, idx+1)
	passed := now
	a.PassedAt = &passed
	g.Actions.Previous = append(g.Actions.Previous, a)
	return true
}

// CurrentOf returns the current actions of one type, optionally for one user.
func (g *GameInstance) CurrentOf(actionType, userID string) []*Action {
	var out []*Action
	for _, a := range g.Actions.Current {
		if a.Type == actionType && (userID == "" || a.User == userID) {
			out = append(out, a)
		}
	}
	return out
}

// DecidableActions returns the user's current actions carrying the highest
// priority among that user's pending actions.
func (g *GameInstance) DecidableActions(userID string) []*Action {
	best := 0
	found := false
	for _, a := range g.Actions.Current {
		if a.User != userID {
			continue
		}
		if !found || a.Priority > best {
			best = a.Priority
			found = true
		}
	}
	var out []*Action
	for _, a := range g.Actions.Current {
		if a.User == userID && a.Priority == best {
			out = append(out, a)
		}
	}
	return out
}

// IsDecidable reports whether a belongs to the decidable set of its user.
func (g *GameInstance) IsDecidable(a *Action) bool {
	return slices.Contains(g.DecidableActions(a.User), a)
}

// Rand returns the next deterministic generator of the instance. Each call
// advances RandCalls, so a restored or cloned instance replays the same
// sequence of fallback choices.
func (g *GameInstance) Rand() *rand.Rand {
	g.RandCalls++
	return rand.New(rand.NewPCG(g.Seed, g.RandCalls))
}

// Clone returns a deep copy of the instance, used as the rollback point of an
// action resolution.
func (g *GameInstance) Clone() *GameInstance {
	out := *g
	out.Users = make([]*User, len(g.Users))
	for i, u := range g.Users {
		cu := *u
		cu.Counters = u.Counters.Copy()
		cu.Achievements = slices.Clone(u.Achievements)
		out.Users[i] = &cu
	}
	out.Cards = make([]*Card, len(g.Cards))
	for i, c := range g.Cards {
		out.Cards[i] = c.Clone()
	}
	out.Actions = Actions{
		Current:  make([]*Action, len(g.Actions.Current)),
		Previous: make([]*Action, len(g.Actions.Previous)),
	}
	for i, a := range g.Actions.Current {
		out.Actions.Current[i] = a.Clone()
	}
	for i, a := range g.Actions.Previous {
		out.Actions.Previous[i] = a.Clone()
	}
	out.Result = slices.Clone(g.Result)
	out.Modifiers = slices.Clone(g.Modifiers)
	out.Squares = make([]*Square, len(g.Squares))
	for i, s := range g.Squares {
		cs := *s
		out.Squares[i] = &cs
	}
	return &out
}
