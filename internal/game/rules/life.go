package rules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
)

// ChangeLife adds delta to the life of a card and dispatches the damaged or
// healed event. A board card whose life crosses from positive to zero or
// below is destroyed once, unless a lifeChanged hook restored it; later
// losses on an already dead card never destroy it again. Healing is capped at the card's maximum life.
func (r *Rules) ChangeLife(ctx context.Context, inst *model.GameInstance, card *model.Card, delta int, source *model.Card) error {
	if delta == 0 {
		return nil
	}
	before := card.Stats.Life
	after := before + delta
	if delta > 0 && card.MaxLife > 0 && after > card.MaxLife {
		after = max(card.MaxLife, before)
	}
	if after == before {
		return nil
	}
	card.Stats.Life = after

	r.logger.Debug("card life changed",
		zap.String("game_id", inst.ID),
		zap.String("card_id", card.ID),
		zap.Int("before", before),
		zap.Int("after", after))

	crossed := before > 0 && after <= 0
	amount := after - before
	if amount < 0 {
		amount = -amount
	}
	params := hooks.Params{Card: card, Source: source, User: card.Owner, Amount: amount}
	if err := r.dispatcher.Dispatch(ctx, inst, hooks.LifeChanged(card, after-before), params); err != nil {
		return err
	}
	// A hook may have healed the card back while the event fanned out.
	if crossed && card.Stats.Life <= 0 && card.Location == model.LocationBoard {
		return r.Destroy(ctx, inst, card, source)
	}
	return nil
}

// Destroy moves a board card to the discard pile and dispatches
// card:destroyed. Cards no longer on the board are ignored.
func (r *Rules) Destroy(ctx context.Context, inst *model.GameInstance, card *model.Card, source *model.Card) error {
	if card.Location != model.LocationBoard {
		return nil
	}
	if err := card.MoveTo(model.LocationDiscard); err != nil {
		return fmt.Errorf("destroy: %w", err)
	}
	card.Metadata.Clear()

	r.logger.Info("card destroyed",
		zap.String("game_id", inst.ID),
		zap.String("card_id", card.ID),
		zap.String("definition_id", card.DefinitionID))

	return r.dispatcher.Dispatch(ctx, inst, hooks.CardEvent(hooks.EventCardDestroyed, card),
		hooks.Params{Card: card, Source: source, User: card.Owner})
}
