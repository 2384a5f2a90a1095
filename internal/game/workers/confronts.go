package workers

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/combat"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
)

// confrontsWorker resolves one confrontation and chains the next one, so
// each confrontation can be answered or expire on its own.
type confrontsWorker struct {
	base
}

func newConfrontsWorker(r *Registry) *confrontsWorker {
	return &confrontsWorker{base{typ: TypeConfronts, priority: 2, expiring: true, reg: r}}
}

// used returns the sources already confronted in the current chain.
func (w *confrontsWorker) used(inst *model.GameInstance, userID string, extra ...model.Coord) []model.Coord {
	out := combat.Lookback(inst, TypeConfronts, userID, w.reg.cfg.Lookback)
	return append(out, extra...)
}

func (w *confrontsWorker) Create(ctx context.Context, inst *model.GameInstance, p CreateParams) (*model.Action, error) {
	couples := combat.Possibilities(inst, p.User, w.used(inst, p.User, p.Exclude...))
	return w.newAction(p, model.SelectCoupleOnBoardInteraction{Couples: couples}), nil
}

func (w *confrontsWorker) Refresh(inst *model.GameInstance, action *model.Action) {
	action.Interaction = model.SelectCoupleOnBoardInteraction{
		Couples: combat.Possibilities(inst, action.User, w.used(inst, action.User)),
	}
}

func (w *confrontsWorker) Execute(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	interaction, ok := action.Interaction.(model.SelectCoupleOnBoardInteraction)
	if !ok {
		return w.reject(inst, action, "unexpected interaction")
	}
	resp, ok := action.Response.(model.SelectCoupleOnBoardResponse)
	if !ok {
		return w.reject(inst, action, "expected selectCoupleOnBoard response")
	}
	if len(interaction.Couples) == 0 {
		// Nothing left to confront: the chain ends here.
		return true, w.endTurn(ctx, inst, action.User)
	}
	if !slices.Contains(interaction.Couples, resp.Couple) {
		return w.reject(inst, action, "couple not offered")
	}
	attacker := inst.CardAt(resp.Couple.From)
	defender := inst.CardAt(resp.Couple.To)
	if attacker == nil || attacker.Owner != action.User {
		return w.reject(inst, action, "no own card at source")
	}
	if defender == nil || defender.Owner == action.User {
		return w.reject(inst, action, "no opposing card at target")
	}

	ex, err := combat.Damage(inst, attacker, defender)
	if err != nil {
		return w.reject(inst, action, err.Error())
	}
	w.reg.logger.Debug("confrontation",
		zap.String("game_id", inst.ID),
		zap.String("attacker", attacker.ID),
		zap.String("defender", defender.ID),
		zap.Int("to_defender", ex.ToDefender),
		zap.Int("to_attacker", ex.ToAttacker))

	if err := w.reg.rules.ChangeLife(ctx, inst, defender, -ex.ToDefender, attacker); err != nil {
		return false, err
	}
	if err := w.reg.rules.ChangeLife(ctx, inst, attacker, -ex.ToAttacker, defender); err != nil {
		return false, err
	}
	if err := w.reg.dispatcher.Dispatch(ctx, inst, hooks.CardEvent(hooks.EventCardConfronted, attacker),
		hooks.Params{Card: defender, Source: attacker, User: action.User, Amount: ex.ToDefender}); err != nil {
		return false, err
	}
	if inst.Ended() {
		return true, nil
	}

	// This action is still current, so its own source is excluded by hand.
	exclude := []model.Coord{resp.Couple.From}
	if len(combat.Possibilities(inst, action.User, w.used(inst, action.User, exclude...))) > 0 {
		_, err := w.reg.Enqueue(ctx, inst, TypeConfronts, CreateParams{User: action.User, Exclude: exclude})
		return err == nil, err
	}
	return true, w.endTurn(ctx, inst, action.User)
}

func (w *confrontsWorker) endTurn(ctx context.Context, inst *model.GameInstance, userID string) error {
	return w.reg.dispatcher.DispatchName(ctx, inst, hooks.EventTurnEnded, hooks.Params{User: userID})
}

// Expires picks a random offered couple.
func (w *confrontsWorker) Expires(ctx context.Context, inst *model.GameInstance, action *model.Action) bool {
	interaction, ok := action.Interaction.(model.SelectCoupleOnBoardInteraction)
	if !ok {
		return false
	}
	if len(interaction.Couples) == 0 {
		action.Response = model.SelectCoupleOnBoardResponse{}
		return true
	}
	pick := interaction.Couples[inst.Rand().IntN(len(interaction.Couples))]
	action.Response = model.SelectCoupleOnBoardResponse{Couple: pick}
	return true
}
