package rules

import (
	"context"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/counters"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
)

// boardEffects runs the per-turn upkeep for the user starting a turn.
func (r *Rules) boardEffects(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
	return true, r.BoardEffects(ctx, inst, p.User)
}

// BoardEffects expires temporary squares, grows cards with the grow capacity
// up to the cap and evolves cards whose upgrade chain is due.
func (r *Rules) BoardEffects(ctx context.Context, inst *model.GameInstance, userID string) error {
	if err := r.expireSquares(ctx, inst, userID); err != nil {
		return err
	}
	forward := model.ForwardSide(inst.UserSlot(userID))
	for _, card := range inst.BoardCards(userID) {
		card.Metadata.Add(counters.TurnsOnBoard, 1)
		if card.Stats.HasCapacity(model.CapacityGrow) {
			if added := card.Metadata.AddCapped(counters.GrowBonus, 1, r.cfg.GrowCap); added > 0 {
				model.MutateSide(inst, card, forward, func(s *model.SideStats) { s.Strength += added })
			}
		}
		if err := r.evolve(ctx, inst, card); err != nil {
			return err
		}
	}
	return nil
}

// expireSquares ages the squares owned by userID and removes those that ran
// out, dispatching board:squareExpired for each.
func (r *Rules) expireSquares(ctx context.Context, inst *model.GameInstance, userID string) error {
	var kept, expired []*model.Square
	for _, sq := range inst.Squares {
		if sq.Owner == userID || sq.Owner == "" {
			sq.TurnsLeft--
		}
		if sq.TurnsLeft <= 0 {
			expired = append(expired, sq)
			continue
		}
		kept = append(kept, sq)
	}
	inst.Squares = kept
	for _, sq := range expired {
		coord := sq.Coord
		if err := r.dispatcher.DispatchName(ctx, inst, hooks.EventBoardSquareExpired,
			hooks.Params{User: sq.Owner, Coord: &coord}); err != nil {
			return err
		}
	}
	return nil
}

// evolve swaps a card for the next step of its upgrade chain once it spent
// enough turns on the board. Damage taken and accumulated bonuses carry over.
func (r *Rules) evolve(ctx context.Context, inst *model.GameInstance, card *model.Card) error {
	if card.UpgradeTo == "" || card.UpgradeAfter <= 0 || TurnsOnBoard(card) < card.UpgradeAfter {
		return nil
	}
	if r.definitions == nil {
		return nil
	}
	def, err := r.definitions.CardDefinition(card.UpgradeTo)
	if err != nil {
		r.logger.Warn("evolution target missing",
			zap.String("game_id", inst.ID),
			zap.String("card_id", card.ID),
			zap.String("upgrade_to", card.UpgradeTo),
			zap.Error(err))
		return nil
	}

	damage := card.MaxLife - card.Stats.Life
	bonus := card.Metadata.Get(counters.GrowBonus) + card.Metadata.Get(counters.AuraBonus)

	card.DefinitionID = def.ID
	card.Name = def.Name
	card.Type = def.Type
	card.Stats = def.Stats.Clone()
	card.MaxLife = def.Stats.Life
	card.Stats.Life = max(def.Stats.Life-damage, 1)
	card.UpgradeTo = def.UpgradeTo
	card.UpgradeAfter = def.UpgradeAfter
	card.Metadata.Set(counters.TurnsOnBoard, 0)
	if bonus > 0 {
		forward := model.ForwardSide(inst.UserSlot(card.Owner))
		model.MutateSide(inst, card, forward, func(s *model.SideStats) { s.Strength += bonus })
	}

	r.logger.Info("card evolved",
		zap.String("game_id", inst.ID),
		zap.String("card_id", card.ID),
		zap.String("definition_id", def.ID))

	return r.dispatcher.Dispatch(ctx, inst, hooks.CardEvent(hooks.EventCardEvolved, card),
		hooks.Params{Card: card, User: card.Owner})
}
