// Package gametest wires the game components together for package tests:
// a fixed clock, the default catalog and a context that carries a held
// state lock, the way the engine runs hooks.
package gametest

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/magefree/arena-server-go/internal/catalog"
	"github.com/magefree/arena-server-go/internal/game/counters"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/phase"
	"github.com/magefree/arena-server-go/internal/game/rules"
	"github.com/magefree/arena-server-go/internal/game/scheduler"
	"github.com/magefree/arena-server-go/internal/game/watchers"
	"github.com/magefree/arena-server-go/internal/game/workers"
)

// Users of the instances built by the harness. Alice sits in slot 0.
const (
	Alice = "alice"
	Bob   = "bob"
)

// Epoch is the harness start time.
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// Harness holds one fully wired set of components.
type Harness struct {
	t          *testing.T
	Logger     *zap.Logger
	Catalog    *catalog.Catalog
	Dispatcher *hooks.Dispatcher
	Registry   *workers.Registry
	Rules      *rules.Rules
	Watchers   *watchers.Registry
	Phase      *phase.Orchestrator
	Scheduler  *scheduler.Scheduler

	now   time.Time
	state sync.Mutex
	ctx   context.Context
	ids   int
}

// Options tweak the wiring.
type Options struct {
	Workers         workers.Config
	Rules           rules.Config
	SlayerThreshold int
	// NoPhase leaves the turn graph out so tests can drive workers alone.
	NoPhase bool
}

// New wires everything with default settings.
func New(t *testing.T) *Harness {
	return NewWithOptions(t, Options{
		Workers:         workers.DefaultConfig(),
		Rules:           rules.DefaultConfig(),
		SlayerThreshold: 3,
	})
}

// NewWithOptions wires everything with custom settings.
func NewWithOptions(t *testing.T, opts Options) *Harness {
	t.Helper()

	cat, err := catalog.Default()
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	h := &Harness{t: t, Logger: logger, Catalog: cat, now: Epoch}

	h.Dispatcher = hooks.NewDispatcher(logger)
	h.Registry = workers.NewRegistry(logger, opts.Workers)
	h.Registry.SetClock(h.Now)
	h.Rules = rules.New(logger, h.Dispatcher, cat, opts.Rules)
	h.Rules.SetClock(h.Now)
	h.Rules.Register()
	h.Registry.Bind(h.Dispatcher, h.Rules)
	if !opts.NoPhase {
		h.Phase = phase.New(logger, h.Dispatcher, h.Registry, h.Rules)
		h.Phase.Register()
	}
	h.Watchers = watchers.NewRegistry(logger, h.Dispatcher, watchers.DefaultAchievements(opts.SlayerThreshold))
	h.Watchers.AddCommonWatchers()
	h.Watchers.Register()
	h.Scheduler = scheduler.New(logger, h.Registry)

	h.state.Lock()
	h.ctx = hooks.WithStateLock(context.Background(), &h.state)
	t.Cleanup(h.state.Unlock)
	return h
}

// Ctx returns the hook context. The state lock it carries is held by the
// test goroutine.
func (h *Harness) Ctx() context.Context {
	return h.ctx
}

// Now returns the harness clock.
func (h *Harness) Now() time.Time {
	return h.now
}

// Advance moves the clock forward.
func (h *Harness) Advance(d time.Duration) time.Time {
	h.now = h.now.Add(d)
	return h.now
}

// Instance returns an active duel instance with an empty board.
func (h *Harness) Instance() *model.GameInstance {
	return &model.GameInstance{
		ID:         "game-1",
		GameTypeID: "duel",
		Status:     model.StatusActive,
		Users: []*model.User{
			{ID: Alice, Counters: counters.NewCounters()},
			{ID: Bob, Counters: counters.NewCounters()},
		},
		Settings:  model.DefaultSettings(),
		Turn:      model.Turn{Number: 1, User: Alice},
		Seed:      7,
		CreatedAt: Epoch,
		UpdatedAt: Epoch,
	}
}

// Card instantiates a catalog card for owner in the deck.
func (h *Harness) Card(inst *model.GameInstance, defID, owner string) *model.Card {
	h.t.Helper()
	def, err := h.Catalog.CardDefinition(defID)
	require.NoError(h.t, err)
	h.ids++
	card := model.NewCard(defID+"-"+strconv.Itoa(h.ids), def, owner)
	inst.Cards = append(inst.Cards, card)
	return card
}

// InHand adds a card directly to the owner's hand.
func (h *Harness) InHand(inst *model.GameInstance, defID, owner string) *model.Card {
	h.t.Helper()
	card := h.Card(inst, defID, owner)
	require.NoError(h.t, card.MoveTo(model.LocationHand))
	return card
}

// OnBoard puts a card on the board without running placement hooks.
func (h *Harness) OnBoard(inst *model.GameInstance, defID, owner string, x, y int) *model.Card {
	h.t.Helper()
	card := h.InHand(inst, defID, owner)
	require.NoError(h.t, card.MoveTo(model.LocationBoard))
	card.Coord = &model.Coord{X: x, Y: y}
	return card
}

// Enqueue creates an action through the registry.
func (h *Harness) Enqueue(inst *model.GameInstance, typ, user string) *model.Action {
	h.t.Helper()
	a, err := h.Registry.Enqueue(h.ctx, inst, typ, workers.CreateParams{User: user})
	require.NoError(h.t, err)
	require.NotNil(h.t, a)
	return a
}

// Answer sets the response and resolves the action.
func (h *Harness) Answer(inst *model.GameInstance, a *model.Action, resp model.Response) (bool, error) {
	a.Response = resp
	return h.Registry.Resolve(h.ctx, inst, a)
}

// Current returns the only current action of a type for a user.
func (h *Harness) Current(inst *model.GameInstance, typ, user string) *model.Action {
	h.t.Helper()
	actions := inst.CurrentOf(typ, user)
	require.Len(h.t, actions, 1, "current %s actions of %s", typ, user)
	return actions[0]
}

// Types lists the types of the current actions in order.
func Types(inst *model.GameInstance) []string {
	out := make([]string, 0, len(inst.Actions.Current))
	for _, a := range inst.Actions.Current {
		out = append(out, a.Type)
	}
	return out
}

// Recorder collects dispatched event paths.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// Record subscribes the recorder under name.
func (h *Harness) Record(name string) *Recorder {
	r := &Recorder{}
	h.Dispatcher.Subscribe(name, func(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, name)
		return true, nil
	})
	return r
}

// Count returns how many times the event fired.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
