package model

import (
	"encoding/json"
	"fmt"
	"slices"
)

// InteractionKind tags the shape of the choices offered by an action.
type InteractionKind string

const (
	InteractionPass                InteractionKind = "pass"
	InteractionPutCardOnBoard      InteractionKind = "putCardOnBoard"
	InteractionMoveCardOnBoard     InteractionKind = "moveCardOnBoard"
	InteractionChoseCardOnBoard    InteractionKind = "choseCardOnBoard"
	InteractionSelectCoupleOnBoard InteractionKind = "selectCoupleOnBoard"
	InteractionMoveCardsToDiscard  InteractionKind = "moveCardsToDiscard"
)

// Interaction describes the legal choices of an action. Each kind is its own
// struct; switch on the concrete type to read parameters.
type Interaction interface {
	Kind() InteractionKind
}

// Response is a player's answer to an interaction of the same kind.
type Response interface {
	Kind() InteractionKind
}

// Move is one movable card and the squares it may go to.
type Move struct {
	From Coord   `json:"from"`
	To   []Coord `json:"to"`
}

// Couple pairs an attacking source square with a defending target square.
type Couple struct {
	From Coord `json:"from"`
	To   Coord `json:"to"`
}

type PassInteraction struct{}

func (PassInteraction) Kind() InteractionKind { return InteractionPass }

type PutCardOnBoardInteraction struct {
	HandIndexes []int   `json:"handIndexes"`
	Coords      []Coord `json:"coords"`
}

func (PutCardOnBoardInteraction) Kind() InteractionKind { return InteractionPutCardOnBoard }

type MoveCardOnBoardInteraction struct {
	Moves []Move `json:"moves"`
}

func (MoveCardOnBoardInteraction) Kind() InteractionKind { return InteractionMoveCardOnBoard }

// Targets returns the allowed destinations for the card at from.
func (i MoveCardOnBoardInteraction) Targets(from Coord) []Coord {
	for _, m := range i.Moves {
		if m.From == from {
			return m.To
		}
	}
	return nil
}

type ChooseCardOnBoardInteraction struct {
	Coords []Coord `json:"coords"`
}

func (ChooseCardOnBoardInteraction) Kind() InteractionKind { return InteractionChoseCardOnBoard }

type SelectCoupleOnBoardInteraction struct {
	Couples []Couple `json:"couples"`
}

func (SelectCoupleOnBoardInteraction) Kind() InteractionKind {
	return InteractionSelectCoupleOnBoard
}

// MoveCardsToDiscardInteraction asks for exactly Count distinct hand indexes.
type MoveCardsToDiscardInteraction struct {
	HandIndexes []int `json:"handIndexes"`
	Count       int   `json:"count"`
}

func (MoveCardsToDiscardInteraction) Kind() InteractionKind {
	return InteractionMoveCardsToDiscard
}

type PassResponse struct{}

func (PassResponse) Kind() InteractionKind { return InteractionPass }

type PutCardOnBoardResponse struct {
	HandIndex int   `json:"handIndex"`
	Coord     Coord `json:"coord"`
}

func (PutCardOnBoardResponse) Kind() InteractionKind { return InteractionPutCardOnBoard }

type MoveCardOnBoardResponse struct {
	From Coord `json:"from"`
	To   Coord `json:"to"`
}

func (MoveCardOnBoardResponse) Kind() InteractionKind { return InteractionMoveCardOnBoard }

type ChooseCardOnBoardResponse struct {
	Coord Coord `json:"coord"`
}

func (ChooseCardOnBoardResponse) Kind() InteractionKind { return InteractionChoseCardOnBoard }

type SelectCoupleOnBoardResponse struct {
	Couple Couple `json:"couple"`
}

func (SelectCoupleOnBoardResponse) Kind() InteractionKind { return InteractionSelectCoupleOnBoard }

type MoveCardsToDiscardResponse struct {
	HandIndexes []int `json:"handIndexes"`
}

func (MoveCardsToDiscardResponse) Kind() InteractionKind { return InteractionMoveCardsToDiscard }

// envelope is the wire shape shared by interactions and responses.
type envelope struct {
	Kind   InteractionKind `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

func encodeTagged(kind InteractionKind, v any) ([]byte, error) {
	params, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Kind: kind, Params: params})
}

// EncodeInteraction writes an interaction as {kind, params}.
func EncodeInteraction(i Interaction) ([]byte, error) {
	if i == nil {
		return []byte("null"), nil
	}
	return encodeTagged(i.Kind(), i)
}

// EncodeResponse writes a response as {kind, params}.
func EncodeResponse(r Response) ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return encodeTagged(r.Kind(), r)
}

// DecodeInteraction reads an interaction envelope.
func DecodeInteraction(data []byte) (Interaction, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode interaction: %w", err)
	}
	var target Interaction
	switch env.Kind {
	case InteractionPass:
		return PassInteraction{}, nil
	case InteractionPutCardOnBoard:
		var v PutCardOnBoardInteraction
		if err := unmarshalParams(env.Params, &v); err != nil {
			return nil, err
		}
		target = v
	case InteractionMoveCardOnBoard:
		var v MoveCardOnBoardInteraction
		if err := unmarshalParams(env.Params, &v); err != nil {
			return nil, err
		}
		target = v
	case InteractionChoseCardOnBoard:
		var v ChooseCardOnBoardInteraction
		if err := unmarshalParams(env.Params, &v); err != nil {
			return nil, err
		}
		target = v
	case InteractionSelectCoupleOnBoard:
		var v SelectCoupleOnBoardInteraction
		if err := unmarshalParams(env.Params, &v); err != nil {
			return nil, err
		}
		target = v
	case InteractionMoveCardsToDiscard:
		var v MoveCardsToDiscardInteraction
		if err := unmarshalParams(env.Params, &v); err != nil {
			return nil, err
		}
		target = v
	default:
		return nil, fmt.Errorf("unknown interaction kind %q", env.Kind)
	}
	return target, nil
}

// DecodeResponse reads the params of a response of the given kind. Clients
// send only params; the kind comes from the action being answered.
func DecodeResponse(kind InteractionKind, params []byte) (Response, error) {
	switch kind {
	case InteractionPass:
		return PassResponse{}, nil
	case InteractionPutCardOnBoard:
		var v PutCardOnBoardResponse
		if err := unmarshalParams(params, &v); err != nil {
			return nil, err
		}
		return v, nil
	case InteractionMoveCardOnBoard:
		var v MoveCardOnBoardResponse
		if err := unmarshalParams(params, &v); err != nil {
			return nil, err
		}
		return v, nil
	case InteractionChoseCardOnBoard:
		var v ChooseCardOnBoardResponse
		if err := unmarshalParams(params, &v); err != nil {
			return nil, err
		}
		return v, nil
	case InteractionSelectCoupleOnBoard:
		var v SelectCoupleOnBoardResponse
		if err := unmarshalParams(params, &v); err != nil {
			return nil, err
		}
		return v, nil
	case InteractionMoveCardsToDiscard:
		var v MoveCardsToDiscardResponse
		if err := unmarshalParams(params, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown response kind %q", kind)
	}
}

// DecodeResponseEnvelope reads a response stored as {kind, params}.
func DecodeResponseEnvelope(data []byte) (Response, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return DecodeResponse(env.Kind, env.Params)
}

func unmarshalParams(params []byte, v any) error {
	if len(params) == 0 || string(params) == "null" {
		return fmt.Errorf("missing params")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

// ContainsCoord reports whether coords holds c.
func ContainsCoord(coords []Coord, c Coord) bool {
	return slices.Contains(coords, c)
}

// ContainsInt reports whether values holds v.
func ContainsInt(values []int, v int) bool {
	return slices.Contains(values, v)
}
