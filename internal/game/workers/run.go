package workers

import (
	"context"

	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
)

func canRun(c *model.Card) bool {
	return c.Stats.HasCapacity(model.CapacityRun)
}

// RunMoves lists the moves available to the user's cards with the run
// capacity.
func RunMoves(inst *model.GameInstance, userID string) []model.Move {
	return BoardMoves(inst, userID, canRun)
}

// runWorker lets a run card move once before the turn starts. It is always
// offered together with skipRun.
type runWorker struct {
	base
}

func newRunWorker(r *Registry) *runWorker {
	return &runWorker{base{typ: TypeRun, priority: 1, reg: r}}
}

func (w *runWorker) Create(ctx context.Context, inst *model.GameInstance, p CreateParams) (*model.Action, error) {
	return w.newAction(p, model.MoveCardOnBoardInteraction{Moves: RunMoves(inst, p.User)}), nil
}

func (w *runWorker) Refresh(inst *model.GameInstance, action *model.Action) {
	action.Interaction = model.MoveCardOnBoardInteraction{Moves: RunMoves(inst, action.User)}
}

func (w *runWorker) Execute(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	ok, err := executeMove(ctx, &w.base, inst, action)
	if !ok || err != nil {
		return ok, err
	}
	w.reg.CancelTypes(inst, action.User, action, TypeSkipRun)
	return true, w.reg.dispatcher.DispatchName(ctx, inst, hooks.EventTurnStarted, hooks.Params{User: action.User})
}

func (w *runWorker) Expires(ctx context.Context, inst *model.GameInstance, action *model.Action) bool {
	return w.noExpiry(ctx, inst, action)
}

type skipRunWorker struct {
	base
}

func newSkipRunWorker(r *Registry) *skipRunWorker {
	return &skipRunWorker{base{typ: TypeSkipRun, priority: 1, expiring: true, reg: r}}
}

func (w *skipRunWorker) Create(ctx context.Context, inst *model.GameInstance, p CreateParams) (*model.Action, error) {
	return w.newAction(p, model.PassInteraction{}), nil
}

func (w *skipRunWorker) Execute(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	if _, ok := action.Response.(model.PassResponse); !ok {
		return w.reject(inst, action, "expected pass")
	}
	w.reg.CancelTypes(inst, action.User, action, TypeRun)
	return true, w.reg.dispatcher.DispatchName(ctx, inst, hooks.EventTurnStarted, hooks.Params{User: action.User})
}

func (w *skipRunWorker) Expires(ctx context.Context, inst *model.GameInstance, action *model.Action) bool {
	return passExpiry(action)
}
