package rules

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/counters"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
)

// EndGame finishes the match with the given winner: results and loot are
// computed, every pending action is cancelled and game:ended is dispatched.
// Ending an already ended game is a no-op.
func (r *Rules) EndGame(ctx context.Context, inst *model.GameInstance, winner string) error {
	if inst.Ended() {
		return nil
	}
	inst.Status = model.StatusEnded
	now := r.now()

	inst.Result = inst.Result[:0]
	for _, u := range inst.Users {
		outcome := model.OutcomeLose
		if u.ID == winner {
			outcome = model.OutcomeWin
		}
		inst.Result = append(inst.Result, model.Result{
			User:    u.ID,
			Outcome: outcome,
			Loot:    r.loot(inst, u, outcome),
		})
	}

	for _, a := range slices.Clone(inst.Actions.Current) {
		inst.RetireAction(a, now)
	}

	r.logger.Info("game ended",
		zap.String("game_id", inst.ID),
		zap.String("winner", winner),
		zap.Int("turn", inst.Turn.Number))

	return r.dispatcher.DispatchName(ctx, inst, hooks.EventGameEnded, hooks.Params{User: winner})
}

func (r *Rules) loot(inst *model.GameInstance, u *model.User, outcome model.Outcome) int {
	if inst.HasModifier(model.ModifierNoLoot) {
		return 0
	}
	loot := r.cfg.LoseLoot
	if outcome == model.OutcomeWin {
		loot = r.cfg.WinLoot
	}
	loot += r.cfg.LootPerKill * u.Counters.Get(counters.Destroyed)
	if inst.HasModifier(model.ModifierDoubleLoot) {
		loot *= 2
	}
	return loot
}

// WinnerByLife picks the winner when the turn limit is reached: the user
// whose summoner has the most life left. Ties go to the second seat, which
// played one turn fewer.
func WinnerByLife(inst *model.GameInstance) string {
	winner := ""
	best := 0
	for i, u := range inst.Users {
		life := 0
		if s := inst.Summoner(u.ID); s != nil && s.OnBoard() {
			life = s.Stats.Life
		}
		if i == 0 || life >= best {
			winner = u.ID
			best = life
		}
	}
	return winner
}
