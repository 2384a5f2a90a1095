package workers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/model"
)

// Worker keys.
const (
	TypeDraw           = "draw"
	TypeDiscard        = "discard"
	TypePutCardOnBoard = "putCardOnBoard"
	TypeMoveCreature   = "moveCreature"
	TypeCastSpell      = "castSpell"
	TypeStartConfronts = "startConfronts"
	TypeConfronts      = "confronts"
	TypeRun            = "run"
	TypeSkipRun        = "skipRun"
	TypeTutorial       = "tutorial"
)

// MainPhaseTypes are the actions offered between the draw and the
// confrontation chain.
var MainPhaseTypes = []string{TypePutCardOnBoard, TypeMoveCreature, TypeCastSpell, TypeStartConfronts}

// CreateParams carries the creation data of an action.
type CreateParams struct {
	User   string
	CardID string
	Step   int
	// Exclude lists confrontation sources that may not attack again.
	Exclude []model.Coord
}

// Worker owns the lifecycle of one action type.
type Worker interface {
	// Type returns the unique worker key.
	Type() string
	// Create builds a new action from the current instance state. It does
	// not push the action; see Registry.Enqueue.
	Create(ctx context.Context, inst *model.GameInstance, p CreateParams) (*model.Action, error)
	// Execute validates the response of the action and applies it. false
	// means the response was rejected and the action is left untouched; an
	// error means a hook fault aborted the resolution.
	Execute(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error)
	// Expires synthesizes a default response. false opts the worker out of
	// automatic resolution.
	Expires(ctx context.Context, inst *model.GameInstance, action *model.Action) bool
	// Delete retires the action to the previous list.
	Delete(inst *model.GameInstance, action *model.Action)
}

// Refresher is implemented by workers whose legal choices depend on state
// that other actions may change.
type Refresher interface {
	Refresh(inst *model.GameInstance, action *model.Action)
}

// base implements the parts every worker shares.
type base struct {
	typ      string
	priority int
	// expiring workers get a deadline and synthesize responses.
	expiring bool
	reg      *Registry
}

func (b *base) Type() string { return b.typ }

func (b *base) Delete(inst *model.GameInstance, action *model.Action) {
	inst.RetireAction(action, b.reg.now())
}

func (b *base) newAction(p CreateParams, interaction model.Interaction) *model.Action {
	now := b.reg.now()
	a := &model.Action{
		ID:          uuid.NewString(),
		Type:        b.typ,
		User:        p.User,
		Priority:    b.priority,
		CreatedAt:   now,
		Interaction: interaction,
		CardID:      p.CardID,
		Step:        p.Step,
	}
	if b.expiring {
		if timeout := b.reg.timeout(b.typ); timeout > 0 {
			deadline := now.Add(timeout)
			a.ExpiresAt = &deadline
		}
	}
	return a
}

// reject logs a soft validation failure and reports false.
func (b *base) reject(inst *model.GameInstance, action *model.Action, reason string) (bool, error) {
	b.reg.logger.Info("response rejected",
		zap.String("game_id", inst.ID),
		zap.String("action_id", action.ID),
		zap.String("action_type", action.Type),
		zap.String("user_id", action.User),
		zap.String("reason", reason))
	return false, nil
}

func (b *base) noExpiry(context.Context, *model.GameInstance, *model.Action) bool {
	return false
}

func passExpiry(action *model.Action) bool {
	action.Response = model.PassResponse{}
	return true
}

// timeout returns the deadline length of a worker type.
func (r *Registry) timeout(typ string) time.Duration {
	if d, ok := r.cfg.Timeouts[typ]; ok {
		return d
	}
	return r.cfg.DefaultTimeout
}
