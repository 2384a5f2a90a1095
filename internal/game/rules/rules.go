package rules

import (
	"time"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
)

// DefinitionSource resolves card templates, e.g. for evolution.
type DefinitionSource interface {
	CardDefinition(id string) (model.CardDefinition, error)
}

// Config holds the tunable numbers of the card rules.
type Config struct {
	// GrowCap bounds the strength a grow card accumulates.
	GrowCap int
	// FatigueDamage is dealt to a summoner whose owner must draw from an
	// empty deck.
	FatigueDamage int
	// WinLoot and LoseLoot are the base rewards; LootPerKill is added for
	// each opposing card the user destroyed.
	WinLoot     int
	LoseLoot    int
	LootPerKill int
}

// DefaultConfig returns the standard rule numbers.
func DefaultConfig() Config {
	return Config{
		GrowCap:       3,
		FatigueDamage: 1,
		WinLoot:       100,
		LoseLoot:      25,
		LootPerKill:   5,
	}
}

// Rules implements the card and game rules shared by every worker. Rules
// reach other rules only through dispatched events.
type Rules struct {
	logger      *zap.Logger
	dispatcher  *hooks.Dispatcher
	definitions DefinitionSource
	cfg         Config
	now         func() time.Time
	handles     []hooks.Handle
}

// New constructs the rules. Call Register to subscribe the rule hooks.
func New(logger *zap.Logger, dispatcher *hooks.Dispatcher, definitions DefinitionSource, cfg Config) *Rules {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rules{
		logger:      logger,
		dispatcher:  dispatcher,
		definitions: definitions,
		cfg:         cfg,
		now:         time.Now,
	}
}

// SetClock overrides the time source used to stamp retired actions.
func (r *Rules) SetClock(now func() time.Time) {
	r.now = now
}

// Dispatcher returns the dispatcher the rules publish to.
func (r *Rules) Dispatcher() *hooks.Dispatcher {
	return r.dispatcher
}

// Register subscribes the card and game hooks.
func (r *Rules) Register() {
	r.handles = append(r.handles,
		r.dispatcher.Subscribe(hooks.EventCardDamaged+":creature:banshee", r.bansheeWail),
		r.dispatcher.Subscribe(hooks.EventCardPlaced+":artifact:totem", r.totemAura),
		r.dispatcher.Subscribe(hooks.EventCardDestroyed+":summoner", r.summonerDestroyed),
		r.dispatcher.Subscribe(hooks.EventUserDeckEmpty, r.fatigue),
		r.dispatcher.Subscribe(hooks.EventTurnBoardEffects, r.boardEffects),
	)
}

// Unregister removes every hook installed by Register.
func (r *Rules) Unregister() {
	for _, h := range r.handles {
		r.dispatcher.Unsubscribe(h)
	}
	r.handles = nil
}
