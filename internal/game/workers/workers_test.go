package workers_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magefree/arena-server-go/internal/game/gametest"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/rules"
	"github.com/magefree/arena-server-go/internal/game/workers"
)

const (
	alice = gametest.Alice
	bob   = gametest.Bob
)

// newHarness wires the workers without the turn graph so each test sees the
// raw events a worker dispatches.
func newHarness(t *testing.T) *gametest.Harness {
	return gametest.NewWithOptions(t, gametest.Options{
		Workers:         workers.DefaultConfig(),
		Rules:           rules.DefaultConfig(),
		SlayerThreshold: 3,
		NoPhase:         true,
	})
}

func TestRegistryKnowsEveryWorker(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, []string{
		workers.TypeCastSpell,
		workers.TypeConfronts,
		workers.TypeDiscard,
		workers.TypeDraw,
		workers.TypeMoveCreature,
		workers.TypePutCardOnBoard,
		workers.TypeRun,
		workers.TypeSkipRun,
		workers.TypeStartConfronts,
		workers.TypeTutorial,
	}, h.Registry.Types())

	_, err := h.Registry.Get("nope")
	assert.ErrorIs(t, err, workers.ErrUnknownWorker)
}

func TestDeadlinesOnlyForExpiringWorkers(t *testing.T) {
	cfg := workers.DefaultConfig()
	cfg.Timeouts[workers.TypeConfronts] = 10 * time.Second
	h := gametest.NewWithOptions(t, gametest.Options{Workers: cfg, Rules: rules.DefaultConfig(), NoPhase: true})
	inst := h.Instance()

	draw := h.Enqueue(inst, workers.TypeDraw, alice)
	require.NotNil(t, draw.ExpiresAt)
	assert.Equal(t, gametest.Epoch.Add(60*time.Second), *draw.ExpiresAt)
	assert.Equal(t, 3, draw.Priority)

	confronts := h.Enqueue(inst, workers.TypeConfronts, alice)
	require.NotNil(t, confronts.ExpiresAt)
	assert.Equal(t, gametest.Epoch.Add(10*time.Second), *confronts.ExpiresAt)

	put := h.Enqueue(inst, workers.TypePutCardOnBoard, alice)
	assert.Nil(t, put.ExpiresAt)
	tutorial := h.Enqueue(inst, workers.TypeTutorial, alice)
	assert.Nil(t, tutorial.ExpiresAt)
}

func TestEnqueueIsNoopOnEndedGame(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	inst.Status = model.StatusEnded

	a, err := h.Registry.Enqueue(h.Ctx(), inst, workers.TypeDraw, workers.CreateParams{User: alice})
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Empty(t, inst.Actions.Current)
}

func TestDrawEndsTheDrawPhase(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	wolf := h.Card(inst, "wolf", alice)
	drawEnded := h.Record(hooks.EventTurnDrawEnded)

	draw := h.Enqueue(inst, workers.TypeDraw, alice)
	ok, err := h.Answer(inst, draw, model.PassResponse{})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, model.LocationHand, wolf.Location)
	assert.Equal(t, 1, drawEnded.Count())
	assert.Empty(t, inst.Actions.Current)
	require.Len(t, inst.Actions.Previous, 1)
	assert.Equal(t, gametest.Epoch, *inst.Actions.Previous[0].PassedAt)
}

func TestDrawRejectsWrongResponse(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	draw := h.Enqueue(inst, workers.TypeDraw, alice)

	ok, err := h.Answer(inst, draw, model.ChooseCardOnBoardResponse{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{workers.TypeDraw}, gametest.Types(inst))
}

func TestDrawOverHandSizeAsksForDiscard(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	for i := 0; i < inst.Settings.HandSize; i++ {
		h.InHand(inst, "squire", alice)
	}
	h.Card(inst, "wolf", alice)
	drawEnded := h.Record(hooks.EventTurnDrawEnded)

	draw := h.Enqueue(inst, workers.TypeDraw, alice)
	ok, err := h.Answer(inst, draw, model.PassResponse{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, drawEnded.Count())

	discard := h.Current(inst, workers.TypeDiscard, alice)
	interaction := discard.Interaction.(model.MoveCardsToDiscardInteraction)
	assert.Equal(t, 1, interaction.Count)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, interaction.HandIndexes)

	for _, bad := range [][]int{{}, {0, 1}, {6}, {-1}} {
		ok, err = h.Answer(inst, discard, model.MoveCardsToDiscardResponse{HandIndexes: bad})
		require.NoError(t, err)
		assert.False(t, ok, "indexes %v", bad)
	}

	hand := inst.Hand(alice)
	ok, err = h.Answer(inst, discard, model.MoveCardsToDiscardResponse{HandIndexes: []int{5}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.LocationDiscard, hand[5].Location)
	assert.Len(t, inst.Hand(alice), inst.Settings.HandSize)
	assert.Equal(t, 1, drawEnded.Count())
}

func TestDiscardExpiresWithDistinctRandomCards(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	inst.Settings.HandSize = 2
	for i := 0; i < 5; i++ {
		h.InHand(inst, "squire", alice)
	}
	discard := h.Enqueue(inst, workers.TypeDiscard, alice)

	ok, err := h.Registry.Expire(h.Ctx(), inst, discard)
	require.NoError(t, err)
	require.True(t, ok)

	resp := discard.Response.(model.MoveCardsToDiscardResponse)
	assert.Len(t, resp.HandIndexes, 3)
	assert.Len(t, inst.Hand(alice), 2)
	assert.Len(t, inst.Discard(alice), 3)
}

func TestPutCardOnBoardNextToOwnCards(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	h.OnBoard(inst, "archmage", alice, 2, 0)
	wolf := h.InHand(inst, "wolf", alice)
	h.InHand(inst, "firebolt", alice)

	put := h.Enqueue(inst, workers.TypePutCardOnBoard, alice)
	interaction := put.Interaction.(model.PutCardOnBoardInteraction)
	assert.Equal(t, []int{0}, interaction.HandIndexes, "spells are cast, not placed")
	assert.Equal(t, []model.Coord{{X: 1, Y: 0}, {X: 3, Y: 0}, {X: 2, Y: 1}}, interaction.Coords)

	ok, err := h.Answer(inst, put, model.PutCardOnBoardResponse{HandIndex: 0, Coord: model.Coord{X: 4, Y: 4}})
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = h.Answer(inst, put, model.PutCardOnBoardResponse{HandIndex: 1, Coord: model.Coord{X: 2, Y: 1}})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.Answer(inst, put, model.PutCardOnBoardResponse{HandIndex: 0, Coord: model.Coord{X: 2, Y: 1}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, wolf.OnBoard())
	assert.Equal(t, model.Coord{X: 2, Y: 1}, *wolf.Coord)
}

func TestResolveRefreshesOtherActions(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	h.OnBoard(inst, "archmage", alice, 2, 0)
	h.InHand(inst, "wolf", alice)

	put := h.Enqueue(inst, workers.TypePutCardOnBoard, alice)
	move := h.Enqueue(inst, workers.TypeMoveCreature, alice)
	assert.Empty(t, move.Interaction.(model.MoveCardOnBoardInteraction).Moves)

	ok, err := h.Answer(inst, put, model.PutCardOnBoardResponse{HandIndex: 0, Coord: model.Coord{X: 2, Y: 1}})
	require.NoError(t, err)
	require.True(t, ok)

	moves := move.Interaction.(model.MoveCardOnBoardInteraction).Moves
	require.Len(t, moves, 1)
	assert.Equal(t, model.Coord{X: 2, Y: 1}, moves[0].From)
	assert.Equal(t, []model.Coord{{X: 3, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 1}}, moves[0].To)
}

func TestMoveCreature(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	wolf := h.OnBoard(inst, "wolf", alice, 2, 1)
	h.OnBoard(inst, "archmage", alice, 2, 0)
	moved := h.Record(hooks.EventCardMoved)

	move := h.Enqueue(inst, workers.TypeMoveCreature, alice)
	interaction := move.Interaction.(model.MoveCardOnBoardInteraction)
	require.Len(t, interaction.Moves, 1, "summoners do not move")

	ok, err := h.Answer(inst, move, model.MoveCardOnBoardResponse{From: model.Coord{X: 2, Y: 1}, To: model.Coord{X: 4, Y: 4}})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.Answer(inst, move, model.MoveCardOnBoardResponse{From: model.Coord{X: 2, Y: 1}, To: model.Coord{X: 2, Y: 2}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.Coord{X: 2, Y: 2}, *wolf.Coord)
	assert.Equal(t, 1, moved.Count())
}

func TestCastSpell(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	target := h.OnBoard(inst, "knight", bob, 2, 3)
	firebolt := h.InHand(inst, "firebolt", alice)

	cast, err := h.Registry.Enqueue(h.Ctx(), inst, workers.TypeCastSpell, workers.CreateParams{User: alice, CardID: firebolt.ID})
	require.NoError(t, err)
	assert.Equal(t, []model.Coord{{X: 2, Y: 3}}, cast.Interaction.(model.ChooseCardOnBoardInteraction).Coords)

	ok, err := h.Answer(inst, cast, model.ChooseCardOnBoardResponse{Coord: model.Coord{X: 2, Y: 3}})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, target.Stats.Life)
	assert.Equal(t, model.LocationDiscard, firebolt.Location)
}

func TestStartConfrontsCancelsMainPhase(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	turnEnded := h.Record(hooks.EventTurnEnded)

	h.Enqueue(inst, workers.TypePutCardOnBoard, alice)
	h.Enqueue(inst, workers.TypeMoveCreature, alice)
	h.Enqueue(inst, workers.TypeDraw, bob)
	start := h.Enqueue(inst, workers.TypeStartConfronts, alice)

	ok, err := h.Answer(inst, start, model.PassResponse{})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{workers.TypeDraw}, gametest.Types(inst), "other users keep their actions")
	assert.Len(t, inst.Actions.Previous, 3)
	assert.Equal(t, 1, turnEnded.Count(), "nothing to confront ends the turn")
}

// confrontBoard puts two alice wolves facing two bob treants.
func confrontBoard(h *gametest.Harness, inst *model.GameInstance) (wolves, treants [2]*model.Card) {
	wolves[0] = h.OnBoard(inst, "wolf", alice, 1, 1)
	wolves[1] = h.OnBoard(inst, "wolf", alice, 3, 1)
	treants[0] = h.OnBoard(inst, "treant", bob, 1, 2)
	treants[1] = h.OnBoard(inst, "treant", bob, 3, 2)
	return wolves, treants
}

func TestConfrontationChain(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	wolves, treants := confrontBoard(h, inst)
	turnEnded := h.Record(hooks.EventTurnEnded)
	confronted := h.Record(hooks.EventCardConfronted)

	start := h.Enqueue(inst, workers.TypeStartConfronts, alice)
	ok, err := h.Answer(inst, start, model.PassResponse{})
	require.NoError(t, err)
	require.True(t, ok)

	first := h.Current(inst, workers.TypeConfronts, alice)
	left := model.Couple{From: model.Coord{X: 1, Y: 1}, To: model.Coord{X: 1, Y: 2}}
	right := model.Couple{From: model.Coord{X: 3, Y: 1}, To: model.Coord{X: 3, Y: 2}}
	assert.Equal(t, []model.Couple{left, right}, first.Interaction.(model.SelectCoupleOnBoardInteraction).Couples)

	ok, err = h.Answer(inst, first, model.SelectCoupleOnBoardResponse{Couple: left})
	require.NoError(t, err)
	require.True(t, ok)

	// Wolf deals 2 against defense 2; the treant hits back 1 against 0.
	assert.Equal(t, 4, treants[0].Stats.Life)
	assert.Equal(t, 1, wolves[0].Stats.Life)
	assert.Equal(t, 0, turnEnded.Count())

	second := h.Current(inst, workers.TypeConfronts, alice)
	assert.Equal(t, []model.Couple{right}, second.Interaction.(model.SelectCoupleOnBoardInteraction).Couples)

	ok, err = h.Answer(inst, second, model.SelectCoupleOnBoardResponse{Couple: left})
	require.NoError(t, err)
	assert.False(t, ok, "a source confronts once per chain")

	ok, err = h.Answer(inst, second, model.SelectCoupleOnBoardResponse{Couple: right})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, wolves[1].Stats.Life)
	assert.Empty(t, inst.Actions.Current)
	assert.Equal(t, 1, turnEnded.Count())
	assert.Equal(t, 2, confronted.Count())
}

func TestConfrontationChainSingleAttacker(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	h.OnBoard(inst, "wolf", alice, 1, 1)
	h.OnBoard(inst, "treant", bob, 1, 2)
	turnEnded := h.Record(hooks.EventTurnEnded)

	confronts := h.Enqueue(inst, workers.TypeConfronts, alice)
	ok, err := h.Registry.Expire(h.Ctx(), inst, confronts)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Empty(t, inst.Actions.Current)
	assert.Equal(t, 1, turnEnded.Count())
}

func TestConfrontationWithNothingLeftEndsTurn(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	_, treants := confrontBoard(h, inst)
	turnEnded := h.Record(hooks.EventTurnEnded)

	confronts := h.Enqueue(inst, workers.TypeConfronts, alice)
	require.Len(t, confronts.Interaction.(model.SelectCoupleOnBoardInteraction).Couples, 2)

	// Both targets leave the board before the chain is answered.
	for _, tr := range treants {
		require.NoError(t, h.Rules.Destroy(h.Ctx(), inst, tr, nil))
	}
	h.Registry.RefreshAll(inst)
	assert.Empty(t, confronts.Interaction.(model.SelectCoupleOnBoardInteraction).Couples)

	ok, err := h.Registry.Expire(h.Ctx(), inst, confronts)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, turnEnded.Count())
}

func TestConfrontationKillingAttackerStillChains(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	wolves, _ := confrontBoard(h, inst)
	wolves[0].Stats.Life = 1

	confronts := h.Enqueue(inst, workers.TypeConfronts, alice)
	ok, err := h.Answer(inst, confronts, model.SelectCoupleOnBoardResponse{
		Couple: model.Couple{From: model.Coord{X: 1, Y: 1}, To: model.Coord{X: 1, Y: 2}},
	})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, model.LocationDiscard, wolves[0].Location)
	next := h.Current(inst, workers.TypeConfronts, alice)
	assert.Len(t, next.Interaction.(model.SelectCoupleOnBoardInteraction).Couples, 1)
}

func TestRunAndSkipRunAreExclusive(t *testing.T) {
	tests := []struct {
		name      string
		answerRun bool
		cancelled string
	}{
		{name: "run", answerRun: true, cancelled: workers.TypeSkipRun},
		{name: "skip", answerRun: false, cancelled: workers.TypeRun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			inst := h.Instance()
			wolf := h.OnBoard(inst, "wolf", alice, 0, 0)
			started := h.Record(hooks.EventTurnStarted)

			run := h.Enqueue(inst, workers.TypeRun, alice)
			skip := h.Enqueue(inst, workers.TypeSkipRun, alice)
			require.NotEmpty(t, workers.RunMoves(inst, alice))

			var ok bool
			var err error
			if tt.answerRun {
				ok, err = h.Answer(inst, run, model.MoveCardOnBoardResponse{From: model.Coord{X: 0, Y: 0}, To: model.Coord{X: 1, Y: 0}})
			} else {
				ok, err = h.Answer(inst, skip, model.PassResponse{})
			}
			require.NoError(t, err)
			require.True(t, ok)

			assert.Empty(t, inst.Actions.Current)
			assert.Equal(t, 1, started.Count())
			var types []string
			for _, a := range inst.Actions.Previous {
				types = append(types, a.Type)
			}
			assert.Contains(t, types, tt.cancelled)
			if tt.answerRun {
				assert.Equal(t, model.Coord{X: 1, Y: 0}, *wolf.Coord)
			}
		})
	}
}

func TestTutorialChainEndsInVictory(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()

	step := h.Enqueue(inst, workers.TypeTutorial, alice)
	for i := 0; i < 3; i++ {
		require.Equal(t, i, step.Step)
		ok, err := h.Answer(inst, step, model.PassResponse{})
		require.NoError(t, err)
		require.True(t, ok)
		if i < 2 {
			step = h.Current(inst, workers.TypeTutorial, alice)
		}
	}

	require.True(t, inst.Ended())
	assert.Equal(t, model.OutcomeWin, inst.Result[0].Outcome)
}

func TestTutorialNeverExpires(t *testing.T) {
	h := newHarness(t)
	inst := h.Instance()
	step := h.Enqueue(inst, workers.TypeTutorial, alice)

	ok, err := h.Registry.Expire(h.Ctx(), inst, step)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, step.Response)
	assert.Len(t, inst.Actions.Current, 1)
}
