// Package engine owns the live game instances. It wires the dispatcher,
// worker registry, rules, watchers and phase hooks together, serializes all
// work on one instance and persists and announces every change.
package engine

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/catalog"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/phase"
	"github.com/magefree/arena-server-go/internal/game/replay"
	"github.com/magefree/arena-server-go/internal/game/rules"
	"github.com/magefree/arena-server-go/internal/game/scheduler"
	"github.com/magefree/arena-server-go/internal/game/watchers"
	"github.com/magefree/arena-server-go/internal/game/workers"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrGameNotFound   = errors.New("game not found")
	ErrGameEnded      = errors.New("game has ended")
	ErrActionNotFound = errors.New("action not found")
	ErrNotYourAction  = errors.New("action belongs to another user")
	ErrNotDecidable   = errors.New("action is not decidable yet")
	ErrResponseKind   = errors.New("response does not match interaction")
	// ErrRejected is returned when a worker refused the response. The action
	// stays pending and can be answered again.
	ErrRejected = errors.New("response rejected")
	// ErrHookFault wraps a failure raised while resolving an action. The
	// instance is restored to its state before the response.
	ErrHookFault = errors.New("hook fault")
)

// Catalog resolves definitions and game types.
type Catalog interface {
	CardDefinition(id string) (model.CardDefinition, error)
	GameType(id string) (catalog.GameType, error)
}

// Store persists instances.
type Store interface {
	Save(ctx context.Context, inst *model.GameInstance) error
	Load(ctx context.Context, id string) (*model.GameInstance, error)
	ListActive(ctx context.Context) ([]string, error)
}

// Notification types.
const (
	NotificationGameCreated = "GAME_CREATED"
	NotificationGameState   = "GAME_STATE_CHANGE"
	NotificationActions     = "ACTIONS_AVAILABLE"
	NotificationGameEnded   = "GAME_ENDED"
)

// Notification is pushed to clients whenever an instance changes.
type Notification struct {
	Type      string                 `json:"type"`
	GameID    string                 `json:"gameId"`
	PlayerID  string                 `json:"playerId,omitempty"` // empty for broadcast
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NotificationHandler receives notifications. It runs on its own goroutine.
type NotificationHandler func(n Notification)

// Config gathers the tunables of every engine component.
type Config struct {
	Workers workers.Config
	Rules   rules.Config
	// SlayerThreshold is the destroyed count that unlocks the slayer
	// achievement.
	SlayerThreshold int
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		Workers:         workers.DefaultConfig(),
		Rules:           rules.DefaultConfig(),
		SlayerThreshold: 5,
	}
}

// session serializes work on one instance. op is held for a whole response
// or tick; state is the lock hooks hand to each other while they mutate the
// instance.
type session struct {
	op    sync.Mutex
	state sync.Mutex
	inst  *model.GameInstance
}

// Engine runs game instances.
type Engine struct {
	logger  *zap.Logger
	catalog Catalog
	store   Store
	now     func() time.Time
	newSeed func() (uint64, error)

	dispatcher   *hooks.Dispatcher
	registry     *workers.Registry
	rules        *rules.Rules
	watchers     *watchers.Registry
	orchestrator *phase.Orchestrator
	scheduler    *scheduler.Scheduler

	mu       sync.RWMutex
	sessions map[string]*session
	handler  NotificationHandler
	recorder *replay.Recorder
}

// New builds an engine and installs every hook. store may be nil.
func New(logger *zap.Logger, cat Catalog, store Store, cfg Config) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	dispatcher := hooks.NewDispatcher(logger.Named("hooks"))
	registry := workers.NewRegistry(logger.Named("workers"), cfg.Workers)
	rl := rules.New(logger.Named("rules"), dispatcher, cat, cfg.Rules)
	rl.Register()
	registry.Bind(dispatcher, rl)

	orchestrator := phase.New(logger.Named("phase"), dispatcher, registry, rl)
	orchestrator.Register()

	wr := watchers.NewRegistry(logger.Named("watchers"), dispatcher, watchers.DefaultAchievements(cfg.SlayerThreshold))
	wr.AddCommonWatchers()
	wr.Register()

	return &Engine{
		logger:       logger,
		catalog:      cat,
		store:        store,
		now:          time.Now,
		newSeed:      cryptoSeed,
		dispatcher:   dispatcher,
		registry:     registry,
		rules:        rl,
		watchers:     wr,
		orchestrator: orchestrator,
		scheduler:    scheduler.New(logger.Named("scheduler"), registry),
		sessions:     make(map[string]*session),
	}
}

func cryptoSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// SetClock overrides the time source of the engine and its components.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
	e.registry.SetClock(now)
	e.rules.SetClock(now)
}

// SetNotificationHandler installs the handler that receives every
// notification. The handler runs synchronously, in commit order, while the
// game is still locked: it must not block or call back into the engine.
func (e *Engine) SetNotificationHandler(handler NotificationHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = handler
}

// SetRecorder installs a replay recorder. Games created or restored
// afterwards are recorded.
func (e *Engine) SetRecorder(rec *replay.Recorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorder = rec
}

func (e *Engine) replays() *replay.Recorder {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.recorder
}

// Replay returns the recorded history of a game.
func (e *Engine) Replay(id string) (*replay.Replay, error) {
	rec := e.replays()
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", replay.ErrNoReplay, id)
	}
	return rec.Replay(id)
}

// Dispatcher exposes the event dispatcher so callers can add their own hooks.
func (e *Engine) Dispatcher() *hooks.Dispatcher {
	return e.dispatcher
}

// Registry exposes the worker registry.
func (e *Engine) Registry() *workers.Registry {
	return e.registry
}

func (e *Engine) session(id string) (*session, error) {
	e.mu.RLock()
	s, ok := e.sessions[id]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return s, nil
}

func (e *Engine) emitNotification(n Notification) {
	e.mu.RLock()
	handler := e.handler
	e.mu.RUnlock()
	if handler == nil {
		return
	}
	handler(n)
}

// announce broadcasts the new state and tells each user which actions they
// can decide. Ended games are announced once more and then dropped.
func (e *Engine) announce(inst *model.GameInstance) {
	now := e.now()
	snapshot := inst.Clone()
	e.emitNotification(Notification{
		Type:      NotificationGameState,
		GameID:    inst.ID,
		Timestamp: now,
		Data:      map[string]interface{}{"game": snapshot},
	})
	if inst.Ended() {
		e.emitNotification(Notification{
			Type:      NotificationGameEnded,
			GameID:    inst.ID,
			Timestamp: now,
			Data:      map[string]interface{}{"result": snapshot.Result},
		})
		return
	}
	for _, u := range inst.Users {
		actions := snapshot.DecidableActions(u.ID)
		if len(actions) == 0 {
			continue
		}
		e.emitNotification(Notification{
			Type:      NotificationActions,
			GameID:    inst.ID,
			PlayerID:  u.ID,
			Timestamp: now,
			Data:      map[string]interface{}{"actions": actions},
		})
	}
}

// persist saves the instance. Failures are logged and never undo the change.
func (e *Engine) persist(ctx context.Context, inst *model.GameInstance) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, inst); err != nil {
		e.logger.Error("failed to persist game",
			zap.String("game_id", inst.ID),
			zap.Error(err))
	}
}

// commit persists and announces a change, and releases ended games. The
// change is already applied in memory, so the save outlives a cancelled
// caller.
func (e *Engine) commit(ctx context.Context, inst *model.GameInstance) {
	inst.UpdatedAt = e.now()
	e.persist(context.WithoutCancel(ctx), inst)
	rec := e.replays()
	if rec != nil {
		rec.Record(inst)
	}
	e.announce(inst)
	if inst.Ended() {
		e.mu.Lock()
		delete(e.sessions, inst.ID)
		e.mu.Unlock()
		e.logger.Info("game ended",
			zap.String("game_id", inst.ID),
			zap.Any("result", inst.Result))
		if rec != nil && rec.Recording(inst.ID) {
			if err := rec.Save(inst.ID); err != nil {
				e.logger.Error("failed to save replay",
					zap.String("game_id", inst.ID),
					zap.Error(err))
			}
		}
	}
}

// Game returns a copy of an instance. Games no longer in memory are read
// from the store.
func (e *Engine) Game(ctx context.Context, id string) (*model.GameInstance, error) {
	s, err := e.session(id)
	if err == nil {
		s.state.Lock()
		defer s.state.Unlock()
		return s.inst.Clone(), nil
	}
	if e.store == nil {
		return nil, err
	}
	inst, loadErr := e.store.Load(ctx, id)
	if loadErr != nil {
		return nil, fmt.Errorf("load game %s: %w", id, loadErr)
	}
	return inst, nil
}

// Actions returns copies of the actions the user can decide now.
func (e *Engine) Actions(id, userID string) ([]*model.Action, error) {
	s, err := e.session(id)
	if err != nil {
		return nil, err
	}
	s.state.Lock()
	defer s.state.Unlock()
	var out []*model.Action
	for _, a := range s.inst.DecidableActions(userID) {
		out = append(out, a.Clone())
	}
	return out, nil
}

// GameIDs lists the games held in memory.
func (e *Engine) GameIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		out = append(out, id)
	}
	return out
}

// Restore loads every active game from the store into memory. Games already
// in memory are left alone.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	if e.store == nil {
		return 0, nil
	}
	ids, err := e.store.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active games: %w", err)
	}
	restored := 0
	for _, id := range ids {
		if _, err := e.session(id); err == nil {
			continue
		}
		inst, err := e.store.Load(ctx, id)
		if err != nil {
			e.logger.Warn("failed to restore game",
				zap.String("game_id", id),
				zap.Error(err))
			continue
		}
		if inst.Ended() {
			continue
		}
		e.mu.Lock()
		e.sessions[id] = &session{inst: inst}
		rec := e.recorder
		e.mu.Unlock()
		if rec != nil {
			rec.Start(id)
			rec.Record(inst)
		}
		restored++
	}
	e.logger.Info("games restored", zap.Int("count", restored))
	return restored, nil
}

// Run ticks every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx, e.now())
		}
	}
}
