package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/counters"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/scheduler"
)

// Seat describes one user joining a new game.
type Seat struct {
	ID      string `json:"id"`
	Destiny string `json:"destiny,omitempty"`
	Origin  string `json:"origin,omitempty"`
	Style   string `json:"style,omitempty"`
	// Summoner and Deck override the game type defaults when set.
	Summoner string   `json:"summoner,omitempty"`
	Deck     []string `json:"deck,omitempty"`
}

// CreateRequest starts a game.
type CreateRequest struct {
	GameTypeID string   `json:"gameTypeId"`
	Users      []Seat   `json:"users"`
	Modifiers  []string `json:"modifiers,omitempty"`
	// Seed fixes the fallback randomness. Zero draws a random seed.
	Seed uint64 `json:"seed,omitempty"`
}

// CreateGame instantiates a game type and runs its setup hooks. The game is
// only registered when setup succeeded.
func (e *Engine) CreateGame(ctx context.Context, req CreateRequest) (*model.GameInstance, error) {
	gt, err := e.catalog.GameType(req.GameTypeID)
	if err != nil {
		return nil, err
	}
	if len(req.Users) == 0 {
		return nil, fmt.Errorf("%w: game %s needs at least one user", ErrInvalidRequest, gt.ID)
	}

	seed := req.Seed
	if seed == 0 {
		if seed, err = e.newSeed(); err != nil {
			return nil, err
		}
	}

	now := e.now()
	inst := &model.GameInstance{
		ID:         uuid.NewString(),
		GameTypeID: gt.ID,
		Status:     model.StatusActive,
		Modifiers:  append(gt.Modifiers, req.Modifiers...),
		Settings:   gt.Settings,
		Seed:       seed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	seen := make(map[string]bool, len(req.Users))
	for _, seat := range req.Users {
		if seat.ID == "" || seen[seat.ID] {
			return nil, fmt.Errorf("%w: invalid or duplicate user %q", ErrInvalidRequest, seat.ID)
		}
		seen[seat.ID] = true
		inst.Users = append(inst.Users, &model.User{
			ID:       seat.ID,
			Destiny:  seat.Destiny,
			Origin:   seat.Origin,
			Style:    seat.Style,
			Counters: counters.NewCounters(),
		})

		summoner := seat.Summoner
		if summoner == "" {
			summoner = gt.Summoner
		}
		deck := seat.Deck
		if len(deck) == 0 {
			deck = gt.Deck
		}
		for _, defID := range append([]string{summoner}, deck...) {
			def, err := e.catalog.CardDefinition(defID)
			if err != nil {
				return nil, fmt.Errorf("deck of %s: %w", seat.ID, err)
			}
			inst.Cards = append(inst.Cards, model.NewCard(uuid.NewString(), def, seat.ID))
		}
	}

	s := &session{inst: inst}
	s.op.Lock()
	defer s.op.Unlock()

	s.state.Lock()
	err = e.dispatcher.Dispatch(hooks.WithStateLock(ctx, &s.state), inst, hooks.GameCreated(gt.Kind, gt.ID), hooks.Params{})
	s.state.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: setup %s: %w", ErrHookFault, gt.ID, err)
	}

	e.mu.Lock()
	e.sessions[inst.ID] = s
	rec := e.recorder
	e.mu.Unlock()
	if rec != nil {
		rec.Start(inst.ID)
	}

	e.logger.Info("game created",
		zap.String("game_id", inst.ID),
		zap.String("game_type", gt.ID),
		zap.Int("users", len(inst.Users)),
		zap.Uint64("seed", seed))

	e.emitNotification(Notification{
		Type:      NotificationGameCreated,
		GameID:    inst.ID,
		Timestamp: now,
		Data:      map[string]interface{}{"gameType": gt.ID},
	})

	s.state.Lock()
	defer s.state.Unlock()
	e.commit(ctx, inst)
	return inst.Clone(), nil
}

// Respond decodes raw params for the action's interaction kind and applies
// them.
func (e *Engine) Respond(ctx context.Context, gameID, userID, actionID string, params json.RawMessage) error {
	return e.respond(ctx, gameID, userID, actionID, func(a *model.Action) (model.Response, error) {
		resp, err := model.DecodeResponse(a.Interaction.Kind(), params)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResponseKind, err)
		}
		return resp, nil
	})
}

// RespondWith applies an already decoded response.
func (e *Engine) RespondWith(ctx context.Context, gameID, userID, actionID string, resp model.Response) error {
	return e.respond(ctx, gameID, userID, actionID, func(a *model.Action) (model.Response, error) {
		if resp == nil || resp.Kind() != a.Interaction.Kind() {
			return nil, fmt.Errorf("%w: action %s expects %s", ErrResponseKind, a.ID, a.Interaction.Kind())
		}
		return resp, nil
	})
}

func (e *Engine) respond(ctx context.Context, gameID, userID, actionID string, decode func(*model.Action) (model.Response, error)) error {
	s, err := e.session(gameID)
	if err != nil {
		return e.missingGame(ctx, gameID, err)
	}
	s.op.Lock()
	defer s.op.Unlock()
	s.state.Lock()

	inst := s.inst
	if inst.Ended() {
		s.state.Unlock()
		return fmt.Errorf("%w: %s", ErrGameEnded, gameID)
	}
	action := inst.FindAction(actionID)
	if action == nil {
		s.state.Unlock()
		return fmt.Errorf("%w: %s", ErrActionNotFound, actionID)
	}
	if action.User != userID {
		s.state.Unlock()
		return fmt.Errorf("%w: %s", ErrNotYourAction, actionID)
	}
	if !inst.IsDecidable(action) {
		s.state.Unlock()
		return fmt.Errorf("%w: %s", ErrNotDecidable, actionID)
	}
	resp, err := decode(action)
	if err != nil {
		s.state.Unlock()
		return err
	}

	snapshot := inst.Clone()
	action.Response = resp
	ok, err := e.registry.Resolve(hooks.WithStateLock(ctx, &s.state), inst, action)
	if err != nil {
		s.inst = snapshot
		s.state.Unlock()
		e.logger.Error("response aborted and state restored",
			zap.String("game_id", gameID),
			zap.String("action_id", actionID),
			zap.String("action_type", action.Type),
			zap.Error(err))
		return fmt.Errorf("%w: %w", ErrHookFault, err)
	}
	if !ok {
		action.Response = nil
		s.state.Unlock()
		return fmt.Errorf("%w: %s", ErrRejected, actionID)
	}
	e.commit(ctx, inst)
	s.state.Unlock()
	return nil
}

// missingGame tells games that ended and left memory apart from unknown ones.
func (e *Engine) missingGame(ctx context.Context, gameID string, err error) error {
	if e.store == nil {
		return err
	}
	if inst, loadErr := e.store.Load(ctx, gameID); loadErr == nil && inst.Ended() {
		return fmt.Errorf("%w: %s", ErrGameEnded, gameID)
	}
	return err
}

// TickGame expires the overdue actions of one game.
func (e *Engine) TickGame(ctx context.Context, gameID string, now time.Time) (scheduler.Report, error) {
	s, err := e.session(gameID)
	if err != nil {
		return scheduler.Report{}, err
	}
	s.op.Lock()
	defer s.op.Unlock()
	s.state.Lock()
	defer s.state.Unlock()

	if s.inst.Ended() {
		return scheduler.Report{}, nil
	}
	report := e.scheduler.Tick(hooks.WithStateLock(ctx, &s.state), s.inst, now)
	if report.Changed() {
		e.commit(ctx, s.inst)
	}
	return report, nil
}

// Tick expires overdue actions across every game in memory.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	for _, id := range e.GameIDs() {
		if ctx.Err() != nil {
			return
		}
		report, err := e.TickGame(ctx, id, now)
		if err != nil {
			continue
		}
		if report.Changed() {
			e.logger.Debug("game ticked",
				zap.String("game_id", id),
				zap.Int("expired", report.Expired),
				zap.Int("skipped", report.Skipped),
				zap.Int("faults", report.Faults))
		}
	}
}
