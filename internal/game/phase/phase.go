// Package phase sequences a match. Every transition is a hook on a dispatched
// event that creates the next actions, so alternate game kinds only need to
// subscribe to their own game:created event.
package phase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/rules"
	"github.com/magefree/arena-server-go/internal/game/workers"
)

// Orchestrator installs the default turn graph and the tutorial chain.
type Orchestrator struct {
	logger     *zap.Logger
	dispatcher *hooks.Dispatcher
	registry   *workers.Registry
	rules      *rules.Rules
	handles    []hooks.Handle
}

// New creates an orchestrator. Call Register to install its hooks.
func New(logger *zap.Logger, dispatcher *hooks.Dispatcher, registry *workers.Registry, rl *rules.Rules) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		logger:     logger,
		dispatcher: dispatcher,
		registry:   registry,
		rules:      rl,
	}
}

// Register subscribes the phase hooks.
func (o *Orchestrator) Register() {
	created := hooks.ParsePath(hooks.EventGameCreated)
	o.handles = append(o.handles,
		o.dispatcher.SubscribePath(created.Child(hooks.KindDuel), o.setupDuel),
		o.dispatcher.SubscribePath(created.Child(hooks.KindTutorial), o.setupTutorial),
		o.dispatcher.Subscribe(hooks.EventTurnDrawEnded, o.mainPhase),
		o.dispatcher.Subscribe(hooks.EventTurnEnded, o.endTurn),
		o.dispatcher.Subscribe(hooks.EventTurnStarted, o.startTurn),
	)
}

// Unregister removes the phase hooks.
func (o *Orchestrator) Unregister() {
	for _, h := range o.handles {
		o.dispatcher.Unsubscribe(h)
	}
	o.handles = nil
}

// shuffleDecks randomizes deck order. Deck order is the order of cards in
// the instance, so the whole card list is permuted.
func shuffleDecks(inst *model.GameInstance) {
	inst.Rand().Shuffle(len(inst.Cards), func(i, j int) {
		inst.Cards[i], inst.Cards[j] = inst.Cards[j], inst.Cards[i]
	})
}

// placeSummoners puts every summoner on its home square.
func (o *Orchestrator) placeSummoners(ctx context.Context, inst *model.GameInstance) error {
	for slot, u := range inst.Users {
		summoner := inst.Summoner(u.ID)
		if summoner == nil {
			return fmt.Errorf("user %s has no summoner", u.ID)
		}
		if summoner.Location == model.LocationBoard {
			continue
		}
		if summoner.Location == model.LocationDeck {
			if err := summoner.MoveTo(model.LocationHand); err != nil {
				return err
			}
		}
		if err := o.rules.Place(ctx, inst, summoner, inst.Settings.HomeCoord(slot)); err != nil {
			return fmt.Errorf("place summoner of %s: %w", u.ID, err)
		}
	}
	return nil
}

// drawInitialHand deals the opening hand. A short deck only deals what it
// has: fatigue applies to turn draws, not to the setup.
func (o *Orchestrator) drawInitialHand(ctx context.Context, inst *model.GameInstance, userID string) error {
	for i := 0; i < inst.Settings.InitialHand && len(inst.Deck(userID)) > 0; i++ {
		if _, err := o.rules.Draw(ctx, inst, userID); err != nil && !errors.Is(err, rules.ErrDeckEmpty) {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) setupDuel(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
	if len(inst.Users) != 2 {
		return false, fmt.Errorf("duel needs two users, got %d", len(inst.Users))
	}
	shuffleDecks(inst)
	if err := o.placeSummoners(ctx, inst); err != nil {
		return false, err
	}
	for _, u := range inst.Users {
		if err := o.drawInitialHand(ctx, inst, u.ID); err != nil {
			return false, err
		}
	}
	first := inst.Users[0].ID
	inst.Turn = model.Turn{Number: 1, User: first}

	o.logger.Info("duel started",
		zap.String("game_id", inst.ID),
		zap.String("first_user", first))

	_, err := o.registry.Enqueue(ctx, inst, workers.TypeDraw, workers.CreateParams{User: first})
	return true, err
}

// setupTutorial lays out a fixed board and starts the linear tutorial chain
// for the first user. Decks are not shuffled so the script is repeatable.
func (o *Orchestrator) setupTutorial(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
	if len(inst.Users) == 0 {
		return false, fmt.Errorf("tutorial needs a user")
	}
	if err := o.placeSummoners(ctx, inst); err != nil {
		return false, err
	}
	userID := inst.Users[0].ID
	if err := o.drawInitialHand(ctx, inst, userID); err != nil {
		return false, err
	}
	inst.Turn = model.Turn{Number: 1, User: userID}
	_, err := o.registry.Enqueue(ctx, inst, workers.TypeTutorial, workers.CreateParams{User: userID})
	return true, err
}

// mainPhase offers the main phase actions once the draw is over.
func (o *Orchestrator) mainPhase(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
	if inst.Ended() {
		return false, nil
	}
	user := p.User
	if _, err := o.registry.Enqueue(ctx, inst, workers.TypePutCardOnBoard, workers.CreateParams{User: user}); err != nil {
		return false, err
	}
	if _, err := o.registry.Enqueue(ctx, inst, workers.TypeMoveCreature, workers.CreateParams{User: user}); err != nil {
		return false, err
	}
	for _, card := range inst.Hand(user) {
		if card.Type != model.CardTypeSpell {
			continue
		}
		if _, err := o.registry.Enqueue(ctx, inst, workers.TypeCastSpell, workers.CreateParams{User: user, CardID: card.ID}); err != nil {
			return false, err
		}
	}
	_, err := o.registry.Enqueue(ctx, inst, workers.TypeStartConfronts, workers.CreateParams{User: user})
	return true, err
}

// endTurn hands the turn to the opponent, who may first run.
func (o *Orchestrator) endTurn(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
	if inst.Ended() {
		return false, nil
	}
	if limit := inst.Settings.MaxTurns; limit > 0 && inst.Turn.Number >= limit {
		o.logger.Info("turn limit reached",
			zap.String("game_id", inst.ID),
			zap.Int("turn", inst.Turn.Number))
		return true, o.rules.EndGame(ctx, inst, rules.WinnerByLife(inst))
	}

	next := inst.Opponent(p.User)
	inst.Turn = model.Turn{Number: inst.Turn.Number + 1, User: next}

	if len(workers.RunMoves(inst, next)) > 0 {
		if _, err := o.registry.Enqueue(ctx, inst, workers.TypeRun, workers.CreateParams{User: next}); err != nil {
			return false, err
		}
		_, err := o.registry.Enqueue(ctx, inst, workers.TypeSkipRun, workers.CreateParams{User: next})
		return true, err
	}
	return true, o.dispatcher.DispatchName(ctx, inst, hooks.EventTurnStarted, hooks.Params{User: next})
}

// startTurn applies board effects and opens the draw.
func (o *Orchestrator) startTurn(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
	if inst.Ended() {
		return false, nil
	}
	if err := o.dispatcher.DispatchName(ctx, inst, hooks.EventTurnBoardEffects, hooks.Params{User: p.User}); err != nil {
		return false, err
	}
	_, err := o.registry.Enqueue(ctx, inst, workers.TypeDraw, workers.CreateParams{User: p.User})
	return true, err
}
