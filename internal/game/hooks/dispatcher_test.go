package hooks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/magefree/arena-server-go/internal/game/model"
)

func testInstance() *model.GameInstance {
	return &model.GameInstance{ID: "g1", Status: model.StatusActive}
}

func TestParsePath(t *testing.T) {
	assert.Equal(t, Path{"card", "destroyed", "creature"}, ParsePath("card:destroyed:creature"))
	assert.Equal(t, Path{"a", "b"}, ParsePath(":a::b:"))
	assert.Equal(t, "a:b:c", ParsePath("a:b").Child("c", "").String())
}

func TestDispatchFiresEveryPrefixOnceConcurrently(t *testing.T) {
	d := NewDispatcher(zaptest.NewLogger(t))

	var started sync.WaitGroup
	started.Add(3)
	release := make(chan struct{})
	go func() {
		started.Wait()
		close(release)
	}()

	var counts [4]atomic.Int32
	register := func(name string, idx int) {
		d.Subscribe(name, func(ctx context.Context, inst *model.GameInstance, p Params) (bool, error) {
			counts[idx].Add(1)
			started.Done()
			select {
			case <-release:
				return true, nil
			case <-time.After(2 * time.Second):
				return false, errors.New("hooks did not run concurrently")
			}
		})
	}
	register("a", 0)
	register("a:b", 1)
	register("a:b:c", 2)
	d.Subscribe("a:x", func(ctx context.Context, inst *model.GameInstance, p Params) (bool, error) {
		counts[3].Add(1)
		return true, nil
	})

	require.NoError(t, d.DispatchName(context.Background(), testInstance(), "a:b:c", Params{}))

	assert.Equal(t, int32(1), counts[0].Load())
	assert.Equal(t, int32(1), counts[1].Load())
	assert.Equal(t, int32(1), counts[2].Load())
	assert.Equal(t, int32(0), counts[3].Load(), "sibling branch must not fire")
}

func TestDispatchDeeperPathsDoNotReachShallowerEvents(t *testing.T) {
	d := NewDispatcher(zaptest.NewLogger(t))
	var fired atomic.Int32
	d.Subscribe("card:destroyed:summoner", func(ctx context.Context, inst *model.GameInstance, p Params) (bool, error) {
		fired.Add(1)
		return true, nil
	})

	require.NoError(t, d.DispatchName(context.Background(), testInstance(), "card:destroyed:creature:wolf", Params{}))
	require.NoError(t, d.DispatchName(context.Background(), testInstance(), "card:destroyed", Params{}))
	assert.Equal(t, int32(0), fired.Load())

	require.NoError(t, d.DispatchName(context.Background(), testInstance(), "card:destroyed:summoner:mage", Params{}))
	assert.Equal(t, int32(1), fired.Load())
}

func TestDispatchPropagatesHookError(t *testing.T) {
	d := NewDispatcher(zaptest.NewLogger(t))
	boom := errors.New("boom")
	d.Subscribe("turn", func(ctx context.Context, inst *model.GameInstance, p Params) (bool, error) {
		return false, boom
	})

	err := d.DispatchName(context.Background(), testInstance(), "turn:ended", Params{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestDispatchRecoversPanics(t *testing.T) {
	d := NewDispatcher(zaptest.NewLogger(t))
	d.Subscribe("turn:ended", func(ctx context.Context, inst *model.GameInstance, p Params) (bool, error) {
		panic("bad hook")
	})

	err := d.DispatchName(context.Background(), testInstance(), "turn:ended", Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad hook")
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher(zaptest.NewLogger(t))
	var fired atomic.Int32
	h := d.Subscribe("game:ended", func(ctx context.Context, inst *model.GameInstance, p Params) (bool, error) {
		fired.Add(1)
		return true, nil
	})
	require.Equal(t, 1, d.Len())

	d.Unsubscribe(h)
	d.Unsubscribe(h)
	require.NoError(t, d.DispatchName(context.Background(), testInstance(), "game:ended", Params{}))
	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, 0, d.Len())
}

func TestStateLockIsHandedToHooks(t *testing.T) {
	d := NewDispatcher(zaptest.NewLogger(t))
	var state sync.Mutex
	// Plain ints: the race detector flags any hook running without the lock.
	inside := 0
	nested := 0

	track := func() func() {
		inside++
		return func() { inside-- }
	}

	for i := 0; i < 4; i++ {
		d.Subscribe("card:placed", func(ctx context.Context, inst *model.GameInstance, p Params) (bool, error) {
			defer track()()
			return true, d.DispatchName(ctx, inst, "card:moved", p)
		})
	}
	d.Subscribe("card:moved", func(ctx context.Context, inst *model.GameInstance, p Params) (bool, error) {
		defer track()()
		nested++
		return true, nil
	})

	state.Lock()
	ctx := WithStateLock(context.Background(), &state)
	require.NoError(t, d.DispatchName(ctx, testInstance(), "card:placed", Params{}))

	assert.False(t, state.TryLock(), "lock is held again after dispatch")
	state.Unlock()
	assert.Equal(t, 4, nested)
	assert.Equal(t, 0, inside)
}

func TestEventBuilders(t *testing.T) {
	card := &model.Card{Type: model.CardTypeCreature, DefinitionID: "banshee"}
	assert.Equal(t, "card:lifeChanged:damaged:creature:banshee", LifeChanged(card, -2).String())
	assert.Equal(t, "card:lifeChanged:healed:creature:banshee", LifeChanged(card, 1).String())
	assert.Equal(t, "game:created:duel:classic", GameCreated(KindDuel, "classic").String())
	assert.Equal(t, "user:achievement:slayer", Achievement("slayer").String())
}
