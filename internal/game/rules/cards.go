package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/magefree/arena-server-go/internal/game/counters"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
)

// ErrDeckEmpty is returned by Draw when the user has no card left to draw.
var ErrDeckEmpty = errors.New("deck is empty")

// Draw moves the top card of the user's deck to their hand. An empty deck
// dispatches user:deckEmpty and returns ErrDeckEmpty.
func (r *Rules) Draw(ctx context.Context, inst *model.GameInstance, userID string) (*model.Card, error) {
	deck := inst.Deck(userID)
	if len(deck) == 0 {
		if err := r.dispatcher.DispatchName(ctx, inst, hooks.EventUserDeckEmpty, hooks.Params{User: userID}); err != nil {
			return nil, err
		}
		return nil, ErrDeckEmpty
	}
	card := deck[0]
	if err := card.MoveTo(model.LocationHand); err != nil {
		return nil, err
	}
	err := r.dispatcher.Dispatch(ctx, inst, hooks.CardEvent(hooks.EventCardDrawn, card),
		hooks.Params{Card: card, User: userID})
	return card, err
}

// Place puts a hand card onto a free square.
func (r *Rules) Place(ctx context.Context, inst *model.GameInstance, card *model.Card, coord model.Coord) error {
	if !inst.IsFree(coord) {
		return fmt.Errorf("square %s is not free", coord)
	}
	if err := card.MoveTo(model.LocationBoard); err != nil {
		return err
	}
	c := coord
	card.Coord = &c
	return r.dispatcher.Dispatch(ctx, inst, hooks.CardEvent(hooks.EventCardPlaced, card),
		hooks.Params{Card: card, User: card.Owner, Coord: &c})
}

// Move relocates a board card to a free square.
func (r *Rules) Move(ctx context.Context, inst *model.GameInstance, card *model.Card, to model.Coord) error {
	if !card.OnBoard() {
		return fmt.Errorf("card %s is not on the board", card.ID)
	}
	if !inst.IsFree(to) {
		return fmt.Errorf("square %s is not free", to)
	}
	from := *card.Coord
	dest := to
	card.Coord = &dest
	return r.dispatcher.Dispatch(ctx, inst, hooks.CardEvent(hooks.EventCardMoved, card),
		hooks.Params{Card: card, User: card.Owner, Coord: &from})
}

// Discard moves a card from hand or deck to the discard pile.
func (r *Rules) Discard(ctx context.Context, inst *model.GameInstance, card *model.Card) error {
	if err := card.MoveTo(model.LocationDiscard); err != nil {
		return err
	}
	return r.dispatcher.Dispatch(ctx, inst, hooks.CardEvent(hooks.EventCardDiscarded, card),
		hooks.Params{Card: card, User: card.Owner})
}

// SpellTargets lists the squares a spell may be cast on: opposing cards for
// damage, own cards for healing and free squares for barriers.
func SpellTargets(inst *model.GameInstance, spell *model.Card) []model.Coord {
	if spell.Spell == nil {
		return nil
	}
	if spell.Spell.Kind == model.SpellBarrier {
		return inst.FreeCoords()
	}
	owner := spell.Owner
	if spell.Spell.Kind == model.SpellDamage {
		owner = inst.Opponent(spell.Owner)
	}
	var out []model.Coord
	for _, c := range inst.BoardCards(owner) {
		out = append(out, *c.Coord)
	}
	return out
}

// CastSpell resolves a spell from hand on a target square, discards it and
// dispatches spell:cast:<definitionId>.
func (r *Rules) CastSpell(ctx context.Context, inst *model.GameInstance, spell *model.Card, target model.Coord) error {
	if spell.Spell == nil {
		return fmt.Errorf("card %s is not a spell", spell.ID)
	}
	effect := *spell.Spell
	switch effect.Kind {
	case model.SpellBarrier:
		if !inst.IsFree(target) {
			return fmt.Errorf("square %s is not free", target)
		}
		inst.Squares = append(inst.Squares, &model.Square{
			Coord:     target,
			Kind:      model.SquareBarrier,
			Owner:     spell.Owner,
			TurnsLeft: max(effect.Amount, 1),
		})
	case model.SpellDamage, model.SpellHeal:
		card := inst.CardAt(target)
		if card == nil {
			return fmt.Errorf("no card at %s", target)
		}
		delta := effect.Amount
		if effect.Kind == model.SpellDamage {
			delta = -delta
		}
		if err := r.ChangeLife(ctx, inst, card, delta, spell); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown spell kind %q", effect.Kind)
	}

	if spell.Location != model.LocationDiscard {
		if err := spell.MoveTo(model.LocationDiscard); err != nil {
			return err
		}
	}
	t := target
	return r.dispatcher.Dispatch(ctx, inst, hooks.SpellCast(spell.DefinitionID),
		hooks.Params{Card: spell, User: spell.Owner, Coord: &t, Amount: effect.Amount})
}

// TurnsOnBoard returns how many owner turns a card has spent in play.
func TurnsOnBoard(card *model.Card) int {
	return card.Metadata.Get(counters.TurnsOnBoard)
}
