package workers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/combat"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/rules"
)

// ErrUnknownWorker is returned when no worker is registered for a type.
var ErrUnknownWorker = errors.New("unknown worker type")

// Config tunes the action lifecycle.
type Config struct {
	// DefaultTimeout applies to expiring workers without their own entry.
	DefaultTimeout time.Duration
	Timeouts       map[string]time.Duration
	// Lookback bounds the confrontation chain scan over retired actions.
	Lookback int
	// TutorialSteps is the length of the scripted tutorial chain.
	TutorialSteps int
}

// DefaultConfig returns the standard lifecycle settings.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 60 * time.Second,
		Timeouts:       map[string]time.Duration{},
		Lookback:       combat.DefaultLookback,
		TutorialSteps:  3,
	}
}

// Registry maps worker keys to workers. It is built once per process:
// NewRegistry, then Bind once the dispatcher and rules exist.
type Registry struct {
	logger     *zap.Logger
	cfg        Config
	now        func() time.Time
	workers    map[string]Worker
	dispatcher *hooks.Dispatcher
	rules      *rules.Rules
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger, cfg Config) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = combat.DefaultLookback
	}
	return &Registry{
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		workers: make(map[string]Worker),
	}
}

// SetClock overrides the time source used for deadlines and retirement.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Now returns the registry time.
func (r *Registry) Now() time.Time {
	return r.now()
}

// Bind wires the dispatcher and rules into the registry and registers the
// built-in workers, which need both.
func (r *Registry) Bind(dispatcher *hooks.Dispatcher, rl *rules.Rules) {
	r.dispatcher = dispatcher
	r.rules = rl
	for _, w := range []Worker{
		newDrawWorker(r),
		newDiscardWorker(r),
		newPutCardOnBoardWorker(r),
		newMoveCreatureWorker(r),
		newCastSpellWorker(r),
		newStartConfrontsWorker(r),
		newConfrontsWorker(r),
		newRunWorker(r),
		newSkipRunWorker(r),
		newTutorialWorker(r),
	} {
		r.Register(w)
	}
}

// Rules returns the rules bound to the registry, nil before Bind.
func (r *Registry) Rules() *rules.Rules {
	return r.rules
}

// Register adds or replaces a worker.
func (r *Registry) Register(w Worker) {
	r.workers[w.Type()] = w
}

// Types returns the registered worker keys in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.workers))
	for k := range r.workers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the worker registered for typ.
func (r *Registry) Get(typ string) (Worker, error) {
	w, ok := r.workers[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorker, typ)
	}
	return w, nil
}

// Enqueue creates an action and pushes it to the current list. It is a
// no-op once the instance has ended.
func (r *Registry) Enqueue(ctx context.Context, inst *model.GameInstance, typ string, p CreateParams) (*model.Action, error) {
	if inst.Ended() {
		return nil, nil
	}
	w, err := r.Get(typ)
	if err != nil {
		return nil, err
	}
	action, err := w.Create(ctx, inst, p)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", typ, err)
	}
	inst.AddAction(action)
	r.logger.Debug("action created",
		zap.String("game_id", inst.ID),
		zap.String("action_id", action.ID),
		zap.String("action_type", typ),
		zap.String("user_id", action.User))
	return action, nil
}

// Resolve executes an answered action, deletes it and refreshes every other
// current action. It reports false when the response was rejected.
func (r *Registry) Resolve(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	w, err := r.Get(action.Type)
	if err != nil {
		r.logger.Warn("cannot resolve action",
			zap.String("game_id", inst.ID),
			zap.String("action_id", action.ID),
			zap.Error(err))
		return false, nil
	}
	ok, err := w.Execute(ctx, inst, action)
	if err != nil {
		return false, fmt.Errorf("execute %s: %w", action.Type, err)
	}
	if !ok {
		return false, nil
	}
	w.Delete(inst, action)
	r.RefreshAll(inst)
	return true, nil
}

// Expire synthesizes the default response of an overdue action and resolves
// it. It reports false when the worker opted out or the synthesized
// response was rejected.
func (r *Registry) Expire(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	w, err := r.Get(action.Type)
	if err != nil {
		r.logger.Warn("cannot expire action",
			zap.String("game_id", inst.ID),
			zap.String("action_id", action.ID),
			zap.Error(err))
		return false, nil
	}
	if !w.Expires(ctx, inst, action) {
		return false, nil
	}
	return r.Resolve(ctx, inst, action)
}

// Cancel retires an action without resolving it.
func (r *Registry) Cancel(inst *model.GameInstance, action *model.Action) {
	if w, err := r.Get(action.Type); err == nil {
		w.Delete(inst, action)
		return
	}
	inst.RetireAction(action, r.now())
}

// CancelTypes cancels the user's current actions of the given types, except
// keep.
func (r *Registry) CancelTypes(inst *model.GameInstance, userID string, keep *model.Action, types ...string) {
	for _, a := range slices.Clone(inst.Actions.Current) {
		if a == keep || a.User != userID || !slices.Contains(types, a.Type) {
			continue
		}
		r.Cancel(inst, a)
	}
}

// RefreshAll recomputes the legal choices of every current action whose
// worker supports it.
func (r *Registry) RefreshAll(inst *model.GameInstance) {
	for _, a := range slices.Clone(inst.Actions.Current) {
		w, ok := r.workers[a.Type]
		if !ok {
			continue
		}
		if rf, ok := w.(Refresher); ok {
			rf.Refresh(inst, a)
		}
	}
}
