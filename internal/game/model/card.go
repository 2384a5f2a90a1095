package model

import (
	"fmt"

	"github.com/magefree/arena-server-go/internal/game/counters"
)

// CardType is the broad family of a card definition.
type CardType string

const (
	CardTypeCreature CardType = "creature"
	CardTypeArtifact CardType = "artifact"
	CardTypeSpell    CardType = "spell"
	CardTypeSummoner CardType = "summoner"
)

// Location is the zone a card currently sits in.
type Location string

const (
	LocationDeck    Location = "deck"
	LocationHand    Location = "hand"
	LocationBoard   Location = "board"
	LocationDiscard Location = "discard"
	LocationBanned  Location = "banned"
)

// allowedMoves lists the forward-only location transitions. Nothing ever
// returns to deck or hand.
var allowedMoves = map[Location]map[Location]bool{
	LocationDeck:    {LocationHand: true, LocationDiscard: true, LocationBanned: true},
	LocationHand:    {LocationBoard: true, LocationDiscard: true, LocationBanned: true},
	LocationBoard:   {LocationDiscard: true, LocationBanned: true},
	LocationDiscard: {LocationBanned: true},
	LocationBanned:  {},
}

// CanMove reports whether a card may move from one location to another.
func CanMove(from, to Location) bool {
	return allowedMoves[from][to]
}

// Capability and capacity names understood by the rules.
const (
	// CapabilityThreat lets a non-creature card attack from that side.
	CapabilityThreat = "threat"

	CapacityRun  = "run"
	CapacityGrow = "grow"
)

// SideStats are the combat numbers printed on one side of a card.
type SideStats struct {
	Strength   int    `json:"strength" yaml:"strength"`
	Defense    int    `json:"defense" yaml:"defense"`
	Capability string `json:"capability,omitempty" yaml:"capability,omitempty"`
}

// Stats is the mutable stat block of a card in play.
type Stats struct {
	Top        SideStats `json:"top" yaml:"top"`
	Right      SideStats `json:"right" yaml:"right"`
	Bottom     SideStats `json:"bottom" yaml:"bottom"`
	Left       SideStats `json:"left" yaml:"left"`
	Life       int       `json:"life" yaml:"life"`
	Capacities []string  `json:"capacities,omitempty" yaml:"capacities,omitempty"`
	Effects    []string  `json:"effects,omitempty" yaml:"effects,omitempty"`
}

// Side returns the stored stats of a side, ignoring rotation.
func (s *Stats) Side(side Side) SideStats {
	return *s.sidePtr(side)
}

func (s *Stats) sidePtr(side Side) *SideStats {
	switch side {
	case SideTop:
		return &s.Top
	case SideRight:
		return &s.Right
	case SideBottom:
		return &s.Bottom
	default:
		return &s.Left
	}
}

// HasCapacity reports whether the stat block lists the capacity.
func (s *Stats) HasCapacity(name string) bool {
	for _, c := range s.Capacities {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a value copy with its own slices.
func (s Stats) Clone() Stats {
	out := s
	out.Capacities = append([]string(nil), s.Capacities...)
	out.Effects = append([]string(nil), s.Effects...)
	return out
}

// SpellKind selects what a spell does to its target.
type SpellKind string

const (
	SpellDamage  SpellKind = "damage"
	SpellHeal    SpellKind = "heal"
	SpellBarrier SpellKind = "barrier"
)

// SpellEffect describes the effect of a spell card.
type SpellEffect struct {
	Kind   SpellKind `json:"kind" yaml:"kind"`
	Amount int       `json:"amount" yaml:"amount"`
}

// CardDefinition is the immutable catalog template of a card.
type CardDefinition struct {
	ID           string       `json:"id" yaml:"id"`
	Name         string       `json:"name" yaml:"name"`
	Type         CardType     `json:"type" yaml:"type"`
	Stats        Stats        `json:"stats" yaml:"stats"`
	Text         string       `json:"text,omitempty" yaml:"text,omitempty"`
	Spell        *SpellEffect `json:"spell,omitempty" yaml:"spell,omitempty"`
	UpgradeTo    string       `json:"upgradeTo,omitempty" yaml:"upgradeTo,omitempty"`
	UpgradeAfter int          `json:"upgradeAfter,omitempty" yaml:"upgradeAfter,omitempty"`
}

// Card is one physical card of a game instance.
type Card struct {
	ID           string             `json:"id"`
	DefinitionID string             `json:"definitionId"`
	Name         string             `json:"name"`
	Type         CardType           `json:"type"`
	Owner        string             `json:"owner"`
	Location     Location           `json:"location"`
	Coord        *Coord             `json:"coord,omitempty"`
	Stats        Stats              `json:"currentStats"`
	MaxLife      int                `json:"maxLife"`
	Spell        *SpellEffect       `json:"spell,omitempty"`
	UpgradeTo    string             `json:"upgradeTo,omitempty"`
	UpgradeAfter int                `json:"upgradeAfter,omitempty"`
	Metadata     *counters.Counters `json:"metadata"`
}

// NewCard instantiates a definition for an owner. Stats are copied by value so
// later catalog changes never reach cards already in play.
func NewCard(id string, def CardDefinition, owner string) *Card {
	c := &Card{
		ID:           id,
		DefinitionID: def.ID,
		Name:         def.Name,
		Type:         def.Type,
		Owner:        owner,
		Location:     LocationDeck,
		Stats:        def.Stats.Clone(),
		MaxLife:      def.Stats.Life,
		UpgradeTo:    def.UpgradeTo,
		UpgradeAfter: def.UpgradeAfter,
		Metadata:     counters.NewCounters(),
	}
	if def.Spell != nil {
		spell := *def.Spell
		c.Spell = &spell
	}
	return c
}

// MoveTo changes the card location, enforcing forward-only transitions. The
// board coordinate is cleared whenever the card leaves the board.
func (c *Card) MoveTo(to Location) error {
	if !CanMove(c.Location, to) {
		return fmt.Errorf("card %s cannot move from %s to %s", c.ID, c.Location, to)
	}
	c.Location = to
	if to != LocationBoard {
		c.Coord = nil
	}
	return nil
}

// OnBoard reports whether the card is in play.
func (c *Card) OnBoard() bool {
	return c.Location == LocationBoard && c.Coord != nil
}

// Alive reports whether the card still has life left.
func (c *Card) Alive() bool {
	return c.Stats.Life > 0
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	out := *c
	out.Stats = c.Stats.Clone()
	if c.Coord != nil {
		coord := *c.Coord
		out.Coord = &coord
	}
	if c.Spell != nil {
		spell := *c.Spell
		out.Spell = &spell
	}
	out.Metadata = c.Metadata.Copy()
	return &out
}
