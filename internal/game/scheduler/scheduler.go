// Package scheduler drives action deadlines. One Tick expires every overdue
// action of an instance and refreshes the rest.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/rules"
	"github.com/magefree/arena-server-go/internal/game/workers"
)

// Report summarizes one tick.
type Report struct {
	Expired int
	Skipped int
	Faults  int
	// Abandoned is set when a fault left nothing to decide and the game was
	// ended by summoner life.
	Abandoned bool
}

// Changed reports whether the tick may have mutated the instance.
func (r Report) Changed() bool {
	return r.Expired > 0 || r.Faults > 0
}

// Scheduler expires overdue actions through the worker registry.
type Scheduler struct {
	logger   *zap.Logger
	registry *workers.Registry
}

// New creates a scheduler.
func New(logger *zap.Logger, registry *workers.Registry) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger, registry: registry}
}

// Tick resolves every action whose deadline passed at now: expires, then
// execute, then delete. A hook fault restores the instance, in place, to its
// state before that action, retires the action unresolved and moves on to
// the next one. If that leaves no current action the game is ended by
// summoner life. Remaining actions are refreshed at the end.
func (s *Scheduler) Tick(ctx context.Context, inst *model.GameInstance, now time.Time) Report {
	var report Report

	var due []string
	for _, a := range inst.Actions.Current {
		if a.Expired(now) {
			due = append(due, a.ID)
		}
	}

	for _, id := range due {
		if inst.Ended() {
			break
		}
		// Earlier resolutions may have cancelled the action or a rollback
		// may have replaced it with its restored copy.
		action := inst.FindAction(id)
		if action == nil {
			continue
		}
		snapshot := inst.Clone()
		ok, err := s.registry.Expire(ctx, inst, action)
		if err != nil {
			s.logger.Error("expiration aborted by hook fault",
				zap.String("game_id", inst.ID),
				zap.String("action_id", id),
				zap.String("action_type", action.Type),
				zap.Error(err))
			*inst = *snapshot
			report.Faults++
			if restored := inst.FindAction(id); restored != nil {
				s.registry.Cancel(inst, restored)
			}
			continue
		}
		if !ok {
			s.logger.Debug("overdue action not resolved",
				zap.String("game_id", inst.ID),
				zap.String("action_id", id),
				zap.String("action_type", action.Type))
			action.Response = nil
			report.Skipped++
			continue
		}
		report.Expired++
	}
	if report.Faults > 0 && !inst.Ended() && len(inst.Actions.Current) == 0 {
		report.Abandoned = s.abandon(ctx, inst)
	}
	s.registry.RefreshAll(inst)
	return report
}

// abandon ends a game that has nothing left to decide.
func (s *Scheduler) abandon(ctx context.Context, inst *model.GameInstance) bool {
	rl := s.registry.Rules()
	if rl == nil {
		return false
	}
	winner := rules.WinnerByLife(inst)
	s.logger.Warn("ending game left without actions",
		zap.String("game_id", inst.ID),
		zap.String("winner", winner))
	if err := rl.EndGame(ctx, inst, winner); err != nil {
		s.logger.Error("game ended with hook fault",
			zap.String("game_id", inst.ID),
			zap.Error(err))
	}
	return true
}
