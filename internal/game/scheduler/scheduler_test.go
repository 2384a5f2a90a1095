package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magefree/arena-server-go/internal/game/gametest"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/workers"
)

const alice = gametest.Alice

func TestTickLeavesPendingActions(t *testing.T) {
	h := gametest.New(t)
	inst := h.Instance()
	draw := h.Enqueue(inst, workers.TypeDraw, alice)

	report := h.Scheduler.Tick(h.Ctx(), inst, h.Advance(59*time.Second))

	assert.False(t, report.Changed())
	assert.Equal(t, []*model.Action{draw}, inst.Actions.Current)
}

func TestTickExpiresOverdueActions(t *testing.T) {
	h := gametest.New(t)
	inst := h.Instance()
	h.Card(inst, "wolf", alice)
	draw := h.Enqueue(inst, workers.TypeDraw, alice)

	now := h.Advance(61 * time.Second)
	report := h.Scheduler.Tick(h.Ctx(), inst, now)

	assert.Equal(t, 1, report.Expired)
	assert.True(t, report.Changed())
	require.NotEmpty(t, inst.Actions.Previous)
	assert.Equal(t, draw.ID, inst.Actions.Previous[0].ID)
	assert.Equal(t, now, *inst.Actions.Previous[0].PassedAt)
	assert.Equal(t, model.PassResponse{}, inst.Actions.Previous[0].Response)
	assert.Len(t, inst.Hand(alice), 1)
	assert.Contains(t, gametest.Types(inst), workers.TypeStartConfronts)
}

func TestTickSkipsOptOutWorkers(t *testing.T) {
	h := gametest.New(t)
	inst := h.Instance()
	put := h.Enqueue(inst, workers.TypePutCardOnBoard, alice)
	past := gametest.Epoch.Add(-time.Second)
	put.ExpiresAt = &past

	report := h.Scheduler.Tick(h.Ctx(), inst, h.Now())

	assert.Equal(t, 1, report.Skipped)
	assert.False(t, report.Changed())
	assert.Equal(t, []*model.Action{put}, inst.Actions.Current)
	assert.Nil(t, put.Response)
}

func TestTickFaultEndsGameLeftWithoutActions(t *testing.T) {
	h := gametest.New(t)
	inst := h.Instance()
	wolf := h.Card(inst, "wolf", alice)
	draw := h.Enqueue(inst, workers.TypeDraw, alice)
	h.Dispatcher.Subscribe(hooks.EventTurnDrawEnded, func(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
		return false, errors.New("boom")
	})
	ended := h.Record(hooks.EventGameEnded)

	report := h.Scheduler.Tick(h.Ctx(), inst, h.Advance(2*time.Minute))

	assert.Equal(t, 1, report.Faults)
	assert.Equal(t, 0, report.Expired)
	assert.True(t, report.Abandoned)
	assert.Equal(t, model.LocationDeck, inst.CardByID(wolf.ID).Location, "the faulting draw is undone")
	require.NotEmpty(t, inst.Actions.Previous)
	assert.Equal(t, draw.ID, inst.Actions.Previous[0].ID)
	assert.Nil(t, inst.Actions.Previous[0].Response)
	assert.Empty(t, inst.Actions.Current)
	require.True(t, inst.Ended())
	assert.Equal(t, model.OutcomeWin, inst.Result[1].Outcome)
	assert.Equal(t, 1, ended.Count())

	again := h.Scheduler.Tick(h.Ctx(), inst, h.Advance(2*time.Minute))
	assert.False(t, again.Changed())
}

func TestTickFaultRetiresOnlyTheFaultingAction(t *testing.T) {
	h := gametest.New(t)
	inst := h.Instance()
	wolf := h.Card(inst, "wolf", alice)
	put := h.Enqueue(inst, workers.TypePutCardOnBoard, alice)
	draw := h.Enqueue(inst, workers.TypeDraw, alice)
	h.Dispatcher.Subscribe(hooks.EventTurnDrawEnded, func(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
		return false, errors.New("boom")
	})

	report := h.Scheduler.Tick(h.Ctx(), inst, h.Advance(2*time.Minute))
	assert.Equal(t, 1, report.Faults)
	assert.False(t, report.Abandoned)
	assert.False(t, inst.Ended())
	assert.Nil(t, inst.FindAction(draw.ID))
	require.Len(t, inst.Actions.Current, 1)
	assert.Equal(t, put.ID, inst.Actions.Current[0].ID)
	assert.Equal(t, model.LocationDeck, inst.CardByID(wolf.ID).Location)

	// The fault is not replayed on later ticks.
	later := h.Scheduler.Tick(h.Ctx(), inst, h.Advance(2*time.Minute))
	assert.Zero(t, later.Faults)
}

func TestTickExpiresEveryDueAction(t *testing.T) {
	h := gametest.New(t)
	inst := h.Instance()
	h.OnBoard(inst, "wolf", alice, 0, 0)
	h.Enqueue(inst, workers.TypeRun, alice)
	h.Enqueue(inst, workers.TypeSkipRun, alice)

	report := h.Scheduler.Tick(h.Ctx(), inst, h.Advance(time.Hour))

	// skipRun expires, cancels run and starts the turn: a fresh draw is due
	// only after its own deadline.
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, []string{workers.TypeDraw}, gametest.Types(inst))
}
