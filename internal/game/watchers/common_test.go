package watchers

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/magefree/arena-server-go/internal/game/counters"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
)

func newInstance() *model.GameInstance {
	return &model.GameInstance{
		ID: "g1",
		Users: []*model.User{
			{ID: "north", Counters: counters.NewCounters()},
			{ID: "south", Counters: counters.NewCounters()},
		},
	}
}

func lockedContext(t *testing.T) context.Context {
	var mu sync.Mutex
	mu.Lock()
	t.Cleanup(mu.Unlock)
	return hooks.WithStateLock(context.Background(), &mu)
}

func TestDestroyedWatcherAwardsSlayer(t *testing.T) {
	d := hooks.NewDispatcher(zaptest.NewLogger(t))
	reg := NewRegistry(zaptest.NewLogger(t), d, DefaultAchievements(2))
	reg.AddCommonWatchers()
	reg.Register()

	unlocked := 0
	d.Subscribe("user:achievement:slayer", func(ctx context.Context, inst *model.GameInstance, p hooks.Params) (bool, error) {
		unlocked++
		assert.Equal(t, "south", p.User)
		return true, nil
	})

	inst := newInstance()
	ctx := lockedContext(t)
	killer := &model.Card{ID: "k", Owner: "south", Type: model.CardTypeCreature}
	for i := 0; i < 3; i++ {
		victim := &model.Card{ID: "v", Owner: "north", Type: model.CardTypeCreature, DefinitionID: "wolf"}
		require.NoError(t, d.Dispatch(ctx, inst, hooks.CardEvent(hooks.EventCardDestroyed, victim),
			hooks.Params{Card: victim, Source: killer}))
	}

	south := inst.User("south")
	assert.Equal(t, 3, south.Counters.Get(counters.Destroyed))
	assert.Equal(t, []string{AchievementSlayer}, south.Achievements)
	assert.Equal(t, 1, unlocked, "achievement unlocks once")
	assert.Equal(t, 0, inst.User("north").Counters.Get(counters.Destroyed))
}

func TestDestroyedWatcherIgnoresOwnCardsAndFatigue(t *testing.T) {
	w := NewDestroyedWatcher()
	inst := newInstance()
	own := &model.Card{Owner: "south"}

	_, ok := w.Watch(inst, hooks.Params{Card: own, Source: &model.Card{Owner: "south"}})
	assert.False(t, ok)
	_, ok = w.Watch(inst, hooks.Params{Card: own})
	assert.False(t, ok)
}

func TestSpellsCastAndConfrontsWatchers(t *testing.T) {
	d := hooks.NewDispatcher(zaptest.NewLogger(t))
	reg := NewRegistry(zaptest.NewLogger(t), d, nil)
	reg.AddCommonWatchers()
	reg.Register()
	require.Len(t, reg.Watchers(), 3)

	inst := newInstance()
	ctx := lockedContext(t)
	require.NoError(t, d.Dispatch(ctx, inst, hooks.SpellCast("fireball"), hooks.Params{User: "north"}))
	require.NoError(t, d.Dispatch(ctx, inst, hooks.ParsePath(hooks.EventCardConfronted).Child("creature", "wolf"), hooks.Params{User: "north"}))
	require.NoError(t, d.Dispatch(ctx, inst, hooks.ParsePath(hooks.EventCardConfronted).Child("creature", "wolf"), hooks.Params{User: "north"}))

	north := inst.User("north")
	assert.Equal(t, 1, north.Counters.Get(counters.SpellsCast))
	assert.Equal(t, 2, north.Counters.Get(counters.Confronts))

	reg.Unregister()
	require.NoError(t, d.Dispatch(ctx, inst, hooks.SpellCast("fireball"), hooks.Params{User: "north"}))
	assert.Equal(t, 1, north.Counters.Get(counters.SpellsCast))
}
