package phase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magefree/arena-server-go/internal/game/gametest"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/workers"
)

const (
	alice = gametest.Alice
	bob   = gametest.Bob
)

var duelDeck = []string{"squire", "squire", "wolf", "treant", "firebolt", "knight"}

// newDuel deals a summoner and a deck to both users and runs the duel setup.
func newDuel(t *testing.T, h *gametest.Harness, configure func(*model.GameInstance)) *model.GameInstance {
	t.Helper()
	inst := h.Instance()
	for _, u := range []string{alice, bob} {
		h.Card(inst, "archmage", u)
		for _, id := range duelDeck {
			h.Card(inst, id, u)
		}
	}
	if configure != nil {
		configure(inst)
	}
	require.NoError(t, h.Dispatcher.Dispatch(h.Ctx(), inst, hooks.GameCreated(hooks.KindDuel, "duel"), hooks.Params{}))
	return inst
}

func answer(t *testing.T, h *gametest.Harness, inst *model.GameInstance, typ, user string, resp model.Response) {
	t.Helper()
	ok, err := h.Answer(inst, h.Current(inst, typ, user), resp)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDuelSetup(t *testing.T) {
	h := gametest.New(t)
	inst := newDuel(t, h, nil)

	for slot, u := range []string{alice, bob} {
		summoner := inst.Summoner(u)
		require.True(t, summoner.OnBoard())
		assert.Equal(t, inst.Settings.HomeCoord(slot), *summoner.Coord)
		assert.Len(t, inst.Hand(u), inst.Settings.InitialHand)
		assert.Len(t, inst.Deck(u), len(duelDeck)-inst.Settings.InitialHand)
	}
	assert.Equal(t, model.Turn{Number: 1, User: alice}, inst.Turn)
	assert.Equal(t, []string{workers.TypeDraw}, gametest.Types(inst))
}

func TestDuelSetupIsReplayable(t *testing.T) {
	hand := func() []string {
		h := gametest.New(t)
		inst := newDuel(t, h, nil)
		var out []string
		for _, c := range inst.Hand(alice) {
			out = append(out, c.DefinitionID)
		}
		return out
	}
	assert.Equal(t, hand(), hand())
}

func TestDuelNeedsTwoUsers(t *testing.T) {
	h := gametest.New(t)
	inst := h.Instance()
	inst.Users = inst.Users[:1]

	err := h.Dispatcher.Dispatch(h.Ctx(), inst, hooks.GameCreated(hooks.KindDuel, "duel"), hooks.Params{})
	assert.Error(t, err)
}

func TestDrawOpensMainPhase(t *testing.T) {
	h := gametest.New(t)
	inst := newDuel(t, h, nil)

	answer(t, h, inst, workers.TypeDraw, alice, model.PassResponse{})

	spells := 0
	for _, c := range inst.Hand(alice) {
		if c.Type == model.CardTypeSpell {
			spells++
		}
	}
	want := []string{workers.TypePutCardOnBoard, workers.TypeMoveCreature}
	for i := 0; i < spells; i++ {
		want = append(want, workers.TypeCastSpell)
	}
	want = append(want, workers.TypeStartConfronts)
	assert.Equal(t, want, gametest.Types(inst))
}

func TestEndTurnHandsOverToOpponent(t *testing.T) {
	h := gametest.New(t)
	inst := newDuel(t, h, nil)
	effects := h.Record(hooks.EventTurnBoardEffects)

	answer(t, h, inst, workers.TypeDraw, alice, model.PassResponse{})
	answer(t, h, inst, workers.TypeStartConfronts, alice, model.PassResponse{})

	assert.Equal(t, model.Turn{Number: 2, User: bob}, inst.Turn)
	assert.Equal(t, []string{workers.TypeDraw}, gametest.Types(inst))
	assert.Equal(t, bob, inst.Actions.Current[0].User)
	assert.Equal(t, 1, effects.Count())
}

func TestEndTurnOffersRun(t *testing.T) {
	h := gametest.New(t)
	inst := newDuel(t, h, nil)
	h.OnBoard(inst, "wolf", bob, 0, 4)

	answer(t, h, inst, workers.TypeDraw, alice, model.PassResponse{})
	answer(t, h, inst, workers.TypeStartConfronts, alice, model.PassResponse{})

	assert.Equal(t, []string{workers.TypeRun, workers.TypeSkipRun}, gametest.Types(inst))

	answer(t, h, inst, workers.TypeSkipRun, bob, model.PassResponse{})
	assert.Equal(t, []string{workers.TypeDraw}, gametest.Types(inst))
}

func TestTurnLimitEndsGameBySummonerLife(t *testing.T) {
	h := gametest.New(t)
	inst := newDuel(t, h, func(inst *model.GameInstance) {
		inst.Settings.MaxTurns = 1
	})
	ended := h.Record(hooks.EventGameEnded)

	answer(t, h, inst, workers.TypeDraw, alice, model.PassResponse{})
	answer(t, h, inst, workers.TypeStartConfronts, alice, model.PassResponse{})

	require.True(t, inst.Ended())
	assert.Equal(t, model.OutcomeWin, inst.Result[1].Outcome, "equal life goes to the second seat")
	assert.Empty(t, inst.Actions.Current)
	assert.Equal(t, 1, ended.Count())
}

func TestTutorialSetup(t *testing.T) {
	h := gametest.New(t)
	inst := h.Instance()
	inst.Users = inst.Users[:1]
	h.Card(inst, "archmage", alice)
	h.Card(inst, "wolf", alice)
	h.Card(inst, "squire", alice)

	require.NoError(t, h.Dispatcher.Dispatch(h.Ctx(), inst, hooks.GameCreated(hooks.KindTutorial, "tutorial"), hooks.Params{}))

	assert.True(t, inst.Summoner(alice).OnBoard())
	assert.Equal(t, 12, inst.Summoner(alice).Stats.Life, "a short deck causes no fatigue during setup")
	assert.Len(t, inst.Hand(alice), 2)
	assert.Equal(t, []string{workers.TypeTutorial}, gametest.Types(inst))
	assert.Nil(t, inst.Actions.Current[0].ExpiresAt)
}

func TestUnregisterStopsTheTurnGraph(t *testing.T) {
	h := gametest.New(t)
	h.Phase.Unregister()
	inst := h.Instance()

	require.NoError(t, h.Dispatcher.Dispatch(h.Ctx(), inst, hooks.GameCreated(hooks.KindDuel, "duel"), hooks.Params{}))
	assert.Empty(t, inst.Actions.Current)
}
