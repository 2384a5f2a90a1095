package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magefree/arena-server-go/internal/game/model"
)

func newBoard() *model.GameInstance {
	return &model.GameInstance{
		ID:       "g1",
		Users:    []*model.User{{ID: "north"}, {ID: "south"}},
		Settings: model.DefaultSettings(),
	}
}

func place(inst *model.GameInstance, id, owner string, typ model.CardType, stats model.Stats, at model.Coord) *model.Card {
	card := model.NewCard(id, model.CardDefinition{ID: id, Type: typ, Stats: stats}, owner)
	card.Location = model.LocationBoard
	card.Coord = &at
	inst.Cards = append(inst.Cards, card)
	return card
}

func uniform(strength, defense, life int) model.Stats {
	s := model.SideStats{Strength: strength, Defense: defense}
	return model.Stats{Top: s, Right: s, Bottom: s, Left: s, Life: life}
}

func TestDamageIsSymmetricAndClamped(t *testing.T) {
	cases := []struct {
		name           string
		att, def       model.Stats
		wantDef, wantA int
	}{
		{"both hit", uniform(4, 1, 5), uniform(3, 2, 5), 2, 2},
		{"armoured defender", uniform(2, 0, 5), uniform(1, 5, 5), 0, 1},
		{"no counter", uniform(5, 3, 5), uniform(0, 1, 5), 4, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inst := newBoard()
			a := place(inst, "a", "south", model.CardTypeCreature, tc.att, model.Coord{X: 2, Y: 3})
			d := place(inst, "d", "north", model.CardTypeCreature, tc.def, model.Coord{X: 2, Y: 2})

			ex, err := Damage(inst, a, d)
			require.NoError(t, err)
			assert.Equal(t, tc.wantDef, ex.ToDefender)
			assert.Equal(t, tc.wantA, ex.ToAttacker)
		})
	}
}

func TestDamageReadsRotatedSides(t *testing.T) {
	inst := newBoard()
	// South attacks upwards with its top side. North (slot 0) defends with
	// the side it reads as bottom, which is its stored top.
	southStats := model.Stats{Top: model.SideStats{Strength: 6, Defense: 0}, Life: 5}
	northStats := model.Stats{
		Top:    model.SideStats{Strength: 1, Defense: 4},
		Bottom: model.SideStats{Strength: 9, Defense: 0},
		Life:   5,
	}
	a := place(inst, "a", "south", model.CardTypeCreature, southStats, model.Coord{X: 1, Y: 2})
	d := place(inst, "d", "north", model.CardTypeCreature, northStats, model.Coord{X: 1, Y: 1})

	ex, err := Damage(inst, a, d)
	require.NoError(t, err)
	assert.Equal(t, 2, ex.ToDefender, "6 strength against stored top defense 4")
	assert.Equal(t, 1, ex.ToAttacker, "counter-hit with stored top strength 1")
}

func TestDamageRejectsDistantCards(t *testing.T) {
	inst := newBoard()
	a := place(inst, "a", "south", model.CardTypeCreature, uniform(1, 1, 1), model.Coord{X: 0, Y: 0})
	d := place(inst, "d", "north", model.CardTypeCreature, uniform(1, 1, 1), model.Coord{X: 2, Y: 2})
	_, err := Damage(inst, a, d)
	assert.Error(t, err)
}

func TestPossibilities(t *testing.T) {
	inst := newBoard()
	place(inst, "creature", "south", model.CardTypeCreature, uniform(2, 1, 3), model.Coord{X: 2, Y: 2})
	place(inst, "left", "north", model.CardTypeCreature, uniform(1, 1, 3), model.Coord{X: 1, Y: 2})
	place(inst, "up", "north", model.CardTypeCreature, uniform(1, 1, 3), model.Coord{X: 2, Y: 1})
	place(inst, "friend", "south", model.CardTypeCreature, uniform(1, 1, 3), model.Coord{X: 3, Y: 2})

	couples := Possibilities(inst, "south", nil)
	assert.ElementsMatch(t, []model.Couple{
		{From: model.Coord{X: 2, Y: 2}, To: model.Coord{X: 2, Y: 1}},
		{From: model.Coord{X: 2, Y: 2}, To: model.Coord{X: 1, Y: 2}},
	}, couples)

	assert.Empty(t, Possibilities(inst, "south", []model.Coord{{X: 2, Y: 2}}))
}

func TestNonCreaturesAttackOnlyFromThreatSides(t *testing.T) {
	inst := newBoard()
	stats := uniform(2, 1, 3)
	stats.Left.Capability = model.CapabilityThreat
	place(inst, "tower", "south", model.CardTypeArtifact, stats, model.Coord{X: 2, Y: 2})
	place(inst, "left", "north", model.CardTypeCreature, uniform(1, 1, 3), model.Coord{X: 1, Y: 2})
	place(inst, "up", "north", model.CardTypeCreature, uniform(1, 1, 3), model.Coord{X: 2, Y: 1})

	assert.Equal(t, []model.Couple{{From: model.Coord{X: 2, Y: 2}, To: model.Coord{X: 1, Y: 2}}},
		Possibilities(inst, "south", nil))
}

func TestZeroStrengthSidesAreInactive(t *testing.T) {
	inst := newBoard()
	place(inst, "wall", "south", model.CardTypeCreature, uniform(0, 3, 3), model.Coord{X: 2, Y: 2})
	place(inst, "up", "north", model.CardTypeCreature, uniform(1, 1, 3), model.Coord{X: 2, Y: 1})
	assert.Empty(t, Possibilities(inst, "south", nil))
}

func TestLookbackStopsAtOtherActionTypes(t *testing.T) {
	inst := newBoard()
	confront := func(user string, from model.Coord) *model.Action {
		return &model.Action{
			Type:     "confronts",
			User:     user,
			Response: model.SelectCoupleOnBoardResponse{Couple: model.Couple{From: from}},
		}
	}
	inst.Actions.Previous = []*model.Action{
		confront("south", model.Coord{X: 0, Y: 0}),
		{Type: "startConfronts", User: "south"},
		confront("south", model.Coord{X: 1, Y: 1}),
		confront("south", model.Coord{X: 2, Y: 2}),
		{Type: "confronts", User: "south"},
	}

	got := Lookback(inst, "confronts", "south", 0)
	assert.Equal(t, []model.Coord{{X: 2, Y: 2}, {X: 1, Y: 1}}, got)
	assert.Equal(t, []model.Coord{{X: 2, Y: 2}}, Lookback(inst, "confronts", "south", 2))
	assert.Empty(t, Lookback(inst, "confronts", "north", 0))
}
