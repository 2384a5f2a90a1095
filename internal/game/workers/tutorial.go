package workers

import (
	"context"

	"github.com/magefree/arena-server-go/internal/game/model"
)

// tutorialWorker drives the scripted tutorial: a linear chain of pass
// actions that never expire. Completing the last step wins the game.
type tutorialWorker struct {
	base
}

func newTutorialWorker(r *Registry) *tutorialWorker {
	return &tutorialWorker{base{typ: TypeTutorial, priority: 1, reg: r}}
}

func (w *tutorialWorker) Create(ctx context.Context, inst *model.GameInstance, p CreateParams) (*model.Action, error) {
	return w.newAction(p, model.PassInteraction{}), nil
}

func (w *tutorialWorker) Execute(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	if _, ok := action.Response.(model.PassResponse); !ok {
		return w.reject(inst, action, "expected pass")
	}
	if next := action.Step + 1; next < w.reg.cfg.TutorialSteps {
		_, err := w.reg.Enqueue(ctx, inst, TypeTutorial, CreateParams{User: action.User, Step: next})
		return err == nil, err
	}
	return true, w.reg.rules.EndGame(ctx, inst, action.User)
}

func (w *tutorialWorker) Expires(ctx context.Context, inst *model.GameInstance, action *model.Action) bool {
	return w.noExpiry(ctx, inst, action)
}
