// Package combat holds the confrontation math: which sides of which cards
// may attack, how much damage a confrontation deals and which sources were
// already used earlier in the current chain.
package combat

import (
	"fmt"

	"github.com/magefree/arena-server-go/internal/game/model"
)

// DefaultLookback bounds the backward scan over retired actions.
const DefaultLookback = 50

// AttackingSides returns the board-facing sides a card may attack from.
// Creatures use every side; other card types only sides carrying the threat
// capability. A side is active when its effective strength is positive.
func AttackingSides(inst *model.GameInstance, card *model.Card) []model.Side {
	var out []model.Side
	for _, side := range model.Sides {
		stats := model.ReadSide(inst, card, side)
		if stats.Strength <= 0 {
			continue
		}
		if card.Type != model.CardTypeCreature && stats.Capability != model.CapabilityThreat {
			continue
		}
		out = append(out, side)
	}
	return out
}

// Possibilities lists every confrontation open to a user: one couple per
// active side of a board card facing an opposing card. Sources in exclude
// are skipped.
func Possibilities(inst *model.GameInstance, userID string, exclude []model.Coord) []model.Couple {
	var out []model.Couple
	for _, card := range inst.BoardCards(userID) {
		from := *card.Coord
		if model.ContainsCoord(exclude, from) {
			continue
		}
		for _, side := range AttackingSides(inst, card) {
			to := from.Step(side)
			target := inst.CardAt(to)
			if target == nil || target.Owner == card.Owner {
				continue
			}
			out = append(out, model.Couple{From: from, To: to})
		}
	}
	return out
}

// Exchange is the damage of one confrontation, computed before either side
// is applied.
type Exchange struct {
	Attacker *model.Card
	Defender *model.Card
	// ToDefender is the life loss of the defender, ToAttacker the counter-hit.
	ToDefender int
	ToAttacker int
}

// Damage computes the symmetric damage between two adjacent cards: each
// side loses max(0, strength of the facing side - defense of its own side).
func Damage(inst *model.GameInstance, attacker, defender *model.Card) (Exchange, error) {
	if !attacker.OnBoard() || !defender.OnBoard() {
		return Exchange{}, fmt.Errorf("confrontation needs two board cards")
	}
	side, ok := attacker.Coord.SideTowards(*defender.Coord)
	if !ok {
		return Exchange{}, fmt.Errorf("cards at %s and %s are not adjacent", attacker.Coord, defender.Coord)
	}
	att := model.ReadSide(inst, attacker, side)
	def := model.ReadSide(inst, defender, side.Opposite())
	return Exchange{
		Attacker:   attacker,
		Defender:   defender,
		ToDefender: max(0, att.Strength-def.Defense),
		ToAttacker: max(0, def.Strength-att.Defense),
	}, nil
}

// Lookback returns the sources already used by userID in the current chain:
// it scans retired actions backwards while they are contiguous entries of
// actionType, up to limit entries.
func Lookback(inst *model.GameInstance, actionType, userID string, limit int) []model.Coord {
	if limit <= 0 {
		limit = DefaultLookback
	}
	var out []model.Coord
	prev := inst.Actions.Previous
	for i, seen := len(prev)-1, 0; i >= 0 && seen < limit; i, seen = i-1, seen+1 {
		a := prev[i]
		if a.Type != actionType {
			break
		}
		if a.User != userID {
			continue
		}
		if r, ok := a.Response.(model.SelectCoupleOnBoardResponse); ok {
			out = append(out, r.Couple.From)
		}
	}
	return out
}
