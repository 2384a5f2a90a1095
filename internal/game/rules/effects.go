package rules

import (
	"context"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/counters"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
)

// bansheeWail: a damaged banshee that survives deals 1 to every adjacent
// opposing card.
func (r *Rules) bansheeWail(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
	banshee := p.Card
	if banshee == nil || !banshee.OnBoard() || !banshee.Alive() {
		return false, nil
	}
	for _, coord := range banshee.Coord.Neighbours() {
		target := inst.CardAt(coord)
		if target == nil || target.Owner == banshee.Owner {
			continue
		}
		if err := r.ChangeLife(ctx, inst, target, -1, banshee); err != nil {
			return false, err
		}
	}
	return true, nil
}

// totemAura: a placed totem gives every adjacent own creature +1 strength on
// the side facing the opponent.
func (r *Rules) totemAura(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
	totem := p.Card
	if totem == nil || !totem.OnBoard() {
		return false, nil
	}
	forward := model.ForwardSide(inst.UserSlot(totem.Owner))
	applied := false
	for _, coord := range totem.Coord.Neighbours() {
		target := inst.CardAt(coord)
		if target == nil || target.Owner != totem.Owner || target.Type != model.CardTypeCreature {
			continue
		}
		model.MutateSide(inst, target, forward, func(s *model.SideStats) { s.Strength++ })
		target.Metadata.Add(counters.AuraBonus, 1)
		applied = true
	}
	return applied, nil
}

// summonerDestroyed ends the game in favour of the opponent.
func (r *Rules) summonerDestroyed(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
	if p.Card == nil || inst.Ended() {
		return false, nil
	}
	winner := inst.Opponent(p.Card.Owner)
	r.logger.Info("summoner destroyed",
		zap.String("game_id", inst.ID),
		zap.String("loser", p.Card.Owner),
		zap.String("winner", winner))
	return true, r.EndGame(ctx, inst, winner)
}

// fatigue damages the summoner of a user who had to draw from an empty deck.
func (r *Rules) fatigue(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
	summoner := inst.Summoner(p.User)
	if summoner == nil || !summoner.OnBoard() || r.cfg.FatigueDamage <= 0 {
		return false, nil
	}
	return true, r.ChangeLife(ctx, inst, summoner, -r.cfg.FatigueDamage, nil)
}
