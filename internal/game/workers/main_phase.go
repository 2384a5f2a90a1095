package workers

import (
	"context"

	"github.com/magefree/arena-server-go/internal/game/combat"
	"github.com/magefree/arena-server-go/internal/game/hooks"
	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/rules"
)

// PlacementCoords lists the free squares next to one of the user's cards in
// play, in row-major order.
func PlacementCoords(inst *model.GameInstance, userID string) []model.Coord {
	var out []model.Coord
	for _, free := range inst.FreeCoords() {
		for _, n := range free.Neighbours() {
			if c := inst.CardAt(n); c != nil && c.Owner == userID {
				out = append(out, free)
				break
			}
		}
	}
	return out
}

// placeableIndexes lists the hand indexes of cards that can be put on the
// board; spells are cast instead.
func placeableIndexes(inst *model.GameInstance, userID string) []int {
	var out []int
	for i, c := range inst.Hand(userID) {
		if c.Type != model.CardTypeSpell {
			out = append(out, i)
		}
	}
	return out
}

// BoardMoves lists, for each of the user's board cards accepted by filter,
// the free neighbouring squares it may move to.
func BoardMoves(inst *model.GameInstance, userID string, filter func(*model.Card) bool) []model.Move {
	var out []model.Move
	for _, card := range inst.BoardCards(userID) {
		if !filter(card) {
			continue
		}
		var to []model.Coord
		for _, n := range card.Coord.Neighbours() {
			if inst.IsFree(n) {
				to = append(to, n)
			}
		}
		if len(to) > 0 {
			out = append(out, model.Move{From: *card.Coord, To: to})
		}
	}
	return out
}

type putCardOnBoardWorker struct {
	base
}

func newPutCardOnBoardWorker(r *Registry) *putCardOnBoardWorker {
	return &putCardOnBoardWorker{base{typ: TypePutCardOnBoard, priority: 1, reg: r}}
}

func (w *putCardOnBoardWorker) interaction(inst *model.GameInstance, userID string) model.PutCardOnBoardInteraction {
	return model.PutCardOnBoardInteraction{
		HandIndexes: placeableIndexes(inst, userID),
		Coords:      PlacementCoords(inst, userID),
	}
}

func (w *putCardOnBoardWorker) Create(ctx context.Context, inst *model.GameInstance, p CreateParams) (*model.Action, error) {
	return w.newAction(p, w.interaction(inst, p.User)), nil
}

func (w *putCardOnBoardWorker) Refresh(inst *model.GameInstance, action *model.Action) {
	action.Interaction = w.interaction(inst, action.User)
}

func (w *putCardOnBoardWorker) Execute(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	interaction, ok := action.Interaction.(model.PutCardOnBoardInteraction)
	if !ok {
		return w.reject(inst, action, "unexpected interaction")
	}
	resp, ok := action.Response.(model.PutCardOnBoardResponse)
	if !ok {
		return w.reject(inst, action, "expected putCardOnBoard response")
	}
	if !model.ContainsInt(interaction.HandIndexes, resp.HandIndex) || !model.ContainsCoord(interaction.Coords, resp.Coord) {
		return w.reject(inst, action, "choice not offered")
	}
	hand := inst.Hand(action.User)
	if resp.HandIndex < 0 || resp.HandIndex >= len(hand) {
		return w.reject(inst, action, "hand index out of range")
	}
	if !inst.IsFree(resp.Coord) {
		return w.reject(inst, action, "square taken")
	}
	return true, w.reg.rules.Place(ctx, inst, hand[resp.HandIndex], resp.Coord)
}

func (w *putCardOnBoardWorker) Expires(ctx context.Context, inst *model.GameInstance, action *model.Action) bool {
	return w.noExpiry(ctx, inst, action)
}

type moveCreatureWorker struct {
	base
}

func newMoveCreatureWorker(r *Registry) *moveCreatureWorker {
	return &moveCreatureWorker{base{typ: TypeMoveCreature, priority: 1, reg: r}}
}

func isCreature(c *model.Card) bool {
	return c.Type == model.CardTypeCreature
}

func (w *moveCreatureWorker) Create(ctx context.Context, inst *model.GameInstance, p CreateParams) (*model.Action, error) {
	return w.newAction(p, model.MoveCardOnBoardInteraction{Moves: BoardMoves(inst, p.User, isCreature)}), nil
}

func (w *moveCreatureWorker) Refresh(inst *model.GameInstance, action *model.Action) {
	action.Interaction = model.MoveCardOnBoardInteraction{Moves: BoardMoves(inst, action.User, isCreature)}
}

func (w *moveCreatureWorker) Execute(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	return executeMove(ctx, &w.base, inst, action)
}

func (w *moveCreatureWorker) Expires(ctx context.Context, inst *model.GameInstance, action *model.Action) bool {
	return w.noExpiry(ctx, inst, action)
}

// executeMove validates and applies a moveCardOnBoard response.
func executeMove(ctx context.Context, b *base, inst *model.GameInstance, action *model.Action) (bool, error) {
	interaction, ok := action.Interaction.(model.MoveCardOnBoardInteraction)
	if !ok {
		return b.reject(inst, action, "unexpected interaction")
	}
	resp, ok := action.Response.(model.MoveCardOnBoardResponse)
	if !ok {
		return b.reject(inst, action, "expected moveCardOnBoard response")
	}
	if !model.ContainsCoord(interaction.Targets(resp.From), resp.To) {
		return b.reject(inst, action, "move not offered")
	}
	card := inst.CardAt(resp.From)
	if card == nil || card.Owner != action.User {
		return b.reject(inst, action, "no own card at source")
	}
	if !inst.IsFree(resp.To) {
		return b.reject(inst, action, "square taken")
	}
	return true, b.reg.rules.Move(ctx, inst, card, resp.To)
}

// castSpellWorker offers one spell in hand, identified by CardID.
type castSpellWorker struct {
	base
}

func newCastSpellWorker(r *Registry) *castSpellWorker {
	return &castSpellWorker{base{typ: TypeCastSpell, priority: 1, reg: r}}
}

func (w *castSpellWorker) targets(inst *model.GameInstance, cardID string) []model.Coord {
	spell := inst.CardByID(cardID)
	if spell == nil || spell.Location != model.LocationHand {
		return nil
	}
	return rules.SpellTargets(inst, spell)
}

func (w *castSpellWorker) Create(ctx context.Context, inst *model.GameInstance, p CreateParams) (*model.Action, error) {
	return w.newAction(p, model.ChooseCardOnBoardInteraction{Coords: w.targets(inst, p.CardID)}), nil
}

func (w *castSpellWorker) Refresh(inst *model.GameInstance, action *model.Action) {
	action.Interaction = model.ChooseCardOnBoardInteraction{Coords: w.targets(inst, action.CardID)}
}

func (w *castSpellWorker) Execute(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	interaction, ok := action.Interaction.(model.ChooseCardOnBoardInteraction)
	if !ok {
		return w.reject(inst, action, "unexpected interaction")
	}
	resp, ok := action.Response.(model.ChooseCardOnBoardResponse)
	if !ok {
		return w.reject(inst, action, "expected choseCardOnBoard response")
	}
	if !model.ContainsCoord(interaction.Coords, resp.Coord) {
		return w.reject(inst, action, "target not offered")
	}
	spell := inst.CardByID(action.CardID)
	if spell == nil || spell.Owner != action.User || spell.Location != model.LocationHand {
		return w.reject(inst, action, "spell not in hand")
	}
	if !model.ContainsCoord(rules.SpellTargets(inst, spell), resp.Coord) {
		return w.reject(inst, action, "target no longer valid")
	}
	return true, w.reg.rules.CastSpell(ctx, inst, spell, resp.Coord)
}

func (w *castSpellWorker) Expires(ctx context.Context, inst *model.GameInstance, action *model.Action) bool {
	return w.noExpiry(ctx, inst, action)
}

// startConfrontsWorker closes the main phase and opens the confrontation
// chain.
type startConfrontsWorker struct {
	base
}

func newStartConfrontsWorker(r *Registry) *startConfrontsWorker {
	return &startConfrontsWorker{base{typ: TypeStartConfronts, priority: 1, expiring: true, reg: r}}
}

func (w *startConfrontsWorker) Create(ctx context.Context, inst *model.GameInstance, p CreateParams) (*model.Action, error) {
	return w.newAction(p, model.PassInteraction{}), nil
}

func (w *startConfrontsWorker) Execute(ctx context.Context, inst *model.GameInstance, action *model.Action) (bool, error) {
	if _, ok := action.Response.(model.PassResponse); !ok {
		return w.reject(inst, action, "expected pass")
	}
	w.reg.CancelTypes(inst, action.User, action, MainPhaseTypes...)
	if len(combat.Possibilities(inst, action.User, nil)) > 0 {
		_, err := w.reg.Enqueue(ctx, inst, TypeConfronts, CreateParams{User: action.User})
		return err == nil, err
	}
	return true, w.reg.dispatcher.DispatchName(ctx, inst, hooks.EventTurnEnded, hooks.Params{User: action.User})
}

func (w *startConfrontsWorker) Expires(ctx context.Context, inst *model.GameInstance, action *model.Action) bool {
	return passExpiry(action)
}
