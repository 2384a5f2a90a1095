package watchers

import (
	"context"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
)

// Watcher tallies one kind of event into a per-user counter. Tallies are
// stored on the instance users so they survive persistence and rollback.
type Watcher interface {
	// Key is the user counter the watcher increments.
	Key() string
	// Event is the event name the watcher subscribes to.
	Event() string
	// Watch returns the user to credit for the event, if any.
	Watch(inst *model.GameInstance, params hooks.Params) (string, bool)
}

// BaseWatcher provides the key and event of a watcher.
type BaseWatcher struct {
	key   string
	event string
}

// NewBaseWatcher creates a base watcher counting event under key.
func NewBaseWatcher(key, event string) BaseWatcher {
	return BaseWatcher{key: key, event: event}
}

func (bw BaseWatcher) Key() string   { return bw.key }
func (bw BaseWatcher) Event() string { return bw.event }

// Achievement unlocks once a user counter reaches a threshold.
type Achievement struct {
	Name      string
	Counter   string
	Threshold int
}

// Registry subscribes watchers to the dispatcher and awards achievements.
type Registry struct {
	logger       *zap.Logger
	dispatcher   *hooks.Dispatcher
	watchers     []Watcher
	achievements []Achievement
	handles      []hooks.Handle
}

// NewRegistry creates a watcher registry.
func NewRegistry(logger *zap.Logger, dispatcher *hooks.Dispatcher, achievements []Achievement) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:       logger,
		dispatcher:   dispatcher,
		achievements: achievements,
	}
}

// AddWatcher adds a watcher. Call before Register.
func (wr *Registry) AddWatcher(w Watcher) {
	if w != nil {
		wr.watchers = append(wr.watchers, w)
	}
}

// Watchers returns the registered watchers.
func (wr *Registry) Watchers() []Watcher {
	return append([]Watcher(nil), wr.watchers...)
}

// Register subscribes every watcher.
func (wr *Registry) Register() {
	for _, w := range wr.watchers {
		wr.handles = append(wr.handles, wr.dispatcher.Subscribe(w.Event(), wr.hookFor(w)))
	}
}

// Unregister removes every subscription made by Register.
func (wr *Registry) Unregister() {
	for _, h := range wr.handles {
		wr.dispatcher.Unsubscribe(h)
	}
	wr.handles = nil
}

func (wr *Registry) hookFor(w Watcher) hooks.Hook {
	return func(ctx context.Context, inst *model.GameInstance, params hooks.Params) (bool, error) {
		userID, ok := w.Watch(inst, params)
		if !ok {
			return false, nil
		}
		user := inst.User(userID)
		if user == nil {
			return false, nil
		}
		count := user.Counters.Add(w.Key(), 1)
		return true, wr.award(ctx, inst, user, w.Key(), count)
	}
}

func (wr *Registry) award(ctx context.Context, inst *model.GameInstance, user *model.User, counter string, count int) error {
	for _, a := range wr.achievements {
		if a.Counter != counter || count < a.Threshold || user.HasAchievement(a.Name) {
			continue
		}
		user.Achievements = append(user.Achievements, a.Name)
		wr.logger.Info("achievement unlocked",
			zap.String("game_id", inst.ID),
			zap.String("user_id", user.ID),
			zap.String("achievement", a.Name))
		if err := wr.dispatcher.Dispatch(ctx, inst, hooks.Achievement(a.Name), hooks.Params{User: user.ID, Amount: count}); err != nil {
			return err
		}
	}
	return nil
}
