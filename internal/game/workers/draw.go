package workers

import (
	"context"
	"errors"

	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/rules"
)

// drawWorker opens a turn: the user draws one card, discards down to the
// hand size if needed, then the main phase starts.
type drawWorker struct {
	base
}

func newDrawWorker(r *Registry) *drawWorker {
	return &drawWorker{base{typ: TypeDraw, priority: 3, expiring: true, reg: r}}
}

func (w *drawWorker) Create(ctx context.Context, inst *model.GameInstance, p CreateParams) (*model.Action, error) {
	return w.newAction(p, model.PassInteraction{}), nil
}

func (w *drawWorker) Execute(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	if _, ok := action.Response.(model.PassResponse); !ok {
		return w.reject(inst, action, "expected pass")
	}
	if _, err := w.reg.rules.Draw(ctx, inst, action.User); err != nil && !errors.Is(err, rules.ErrDeckEmpty) {
		return false, err
	}
	if inst.Ended() {
		return true, nil
	}
	if excess := len(inst.Hand(action.User)) - inst.Settings.HandSize; excess > 0 && inst.Settings.HandSize > 0 {
		_, err := w.reg.Enqueue(ctx, inst, TypeDiscard, CreateParams{User: action.User})
		return err == nil, err
	}
	return true, w.reg.dispatcher.DispatchName(ctx, inst, hooks.EventTurnDrawEnded, hooks.Params{User: action.User})
}

func (w *drawWorker) Expires(ctx context.Context, inst *model.GameInstance, action *model.Action) bool {
	return passExpiry(action)
}

// discardWorker asks the user to drop cards above the hand size.
type discardWorker struct {
	base
}

func newDiscardWorker(r *Registry) *discardWorker {
	return &discardWorker{base{typ: TypeDiscard, priority: 3, expiring: true, reg: r}}
}

func (w *discardWorker) interaction(inst *model.GameInstance, userID string) model.MoveCardsToDiscardInteraction {
	hand := inst.Hand(userID)
	indexes := make([]int, len(hand))
	for i := range hand {
		indexes[i] = i
	}
	count := max(len(hand)-inst.Settings.HandSize, 0)
	return model.MoveCardsToDiscardInteraction{HandIndexes: indexes, Count: count}
}

func (w *discardWorker) Create(ctx context.Context, inst *model.GameInstance, p CreateParams) (*model.Action, error) {
	return w.newAction(p, w.interaction(inst, p.User)), nil
}

func (w *discardWorker) Refresh(inst *model.GameInstance, action *model.Action) {
	action.Interaction = w.interaction(inst, action.User)
}

func (w *discardWorker) Execute(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	interaction, ok := action.Interaction.(model.MoveCardsToDiscardInteraction)
	if !ok {
		return w.reject(inst, action, "unexpected interaction")
	}
	resp, ok := action.Response.(model.MoveCardsToDiscardResponse)
	if !ok {
		return w.reject(inst, action, "expected moveCardsToDiscard response")
	}
	if len(resp.HandIndexes) != interaction.Count {
		return w.reject(inst, action, "wrong number of cards")
	}
	hand := inst.Hand(action.User)
	seen := make(map[int]bool, len(resp.HandIndexes))
	picked := make([]*model.Card, 0, len(resp.HandIndexes))
	for _, idx := range resp.HandIndexes {
		if seen[idx] || !model.ContainsInt(interaction.HandIndexes, idx) || idx < 0 || idx >= len(hand) {
			return w.reject(inst, action, "invalid hand index")
		}
		seen[idx] = true
		picked = append(picked, hand[idx])
	}
	for _, card := range picked {
		if err := w.reg.rules.Discard(ctx, inst, card); err != nil {
			return false, err
		}
	}
	return true, w.reg.dispatcher.DispatchName(ctx, inst, hooks.EventTurnDrawEnded, hooks.Params{User: action.User})
}

// Expires discards random distinct cards.
func (w *discardWorker) Expires(ctx context.Context, inst *model.GameInstance, action *model.Action) bool {
	interaction, ok := action.Interaction.(model.MoveCardsToDiscardInteraction)
	if !ok || interaction.Count > len(interaction.HandIndexes) {
		return false
	}
	perm := inst.Rand().Perm(len(interaction.HandIndexes))
	picked := make([]int, interaction.Count)
	for i := range picked {
		picked[i] = interaction.HandIndexes[perm[i]]
	}
	action.Response = model.MoveCardsToDiscardResponse{HandIndexes: picked}
	return true
}
