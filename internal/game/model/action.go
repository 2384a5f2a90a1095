package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Action is one decision point offered to a user. It stays in Actions.Current
// until a worker resolves or cancels it, then moves to Actions.Previous with
// PassedAt set.
type Action struct {
	ID          string
	Type        string
	User        string
	Priority    int
	CreatedAt   time.Time
	ExpiresAt   *time.Time
	PassedAt    *time.Time
	Interaction Interaction
	Response    Response
	// CardID and Step carry worker specific creation data, e.g. the spell of a
	// castSpell action or the position within a tutorial chain.
	CardID string
	Step   int
}

// Expired reports whether the action deadline has elapsed at now.
func (a *Action) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !now.Before(*a.ExpiresAt)
}

// Clone returns a copy of the action. Interactions and responses are treated
// as immutable values and are shared.
func (a *Action) Clone() *Action {
	out := *a
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		out.ExpiresAt = &t
	}
	if a.PassedAt != nil {
		t := *a.PassedAt
		out.PassedAt = &t
	}
	return &out
}

// Actions holds the pending and retired decisions of an instance.
type Actions struct {
	Current  []*Action `json:"current"`
	Previous []*Action `json:"previous"`
}

type actionJSON struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	User        string          `json:"user"`
	Priority    int             `json:"priority"`
	CreatedAt   time.Time       `json:"createdAt"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
	PassedAt    *time.Time      `json:"passedAt,omitempty"`
	Interaction json.RawMessage `json:"interaction"`
	Response    json.RawMessage `json:"response,omitempty"`
	CardID      string          `json:"cardId,omitempty"`
	Step        int             `json:"step,omitempty"`
}

// MarshalJSON writes the interaction and response as tagged envelopes.
func (a *Action) MarshalJSON() ([]byte, error) {
	interaction, err := EncodeInteraction(a.Interaction)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", a.ID, err)
	}
	out := actionJSON{
		ID:          a.ID,
		Type:        a.Type,
		User:        a.User,
		Priority:    a.Priority,
		CreatedAt:   a.CreatedAt,
		ExpiresAt:   a.ExpiresAt,
		PassedAt:    a.PassedAt,
		Interaction: interaction,
		CardID:      a.CardID,
		Step:        a.Step,
	}
	if a.Response != nil {
		out.Response, err = EncodeResponse(a.Response)
		if err != nil {
			return nil, fmt.Errorf("action %s: %w", a.ID, err)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads an action written by MarshalJSON.
func (a *Action) UnmarshalJSON(data []byte) error {
	var in actionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*a = Action{
		ID:        in.ID,
		Type:      in.Type,
		User:      in.User,
		Priority:  in.Priority,
		CreatedAt: in.CreatedAt,
		ExpiresAt: in.ExpiresAt,
		PassedAt:  in.PassedAt,
		CardID:    in.CardID,
		Step:      in.Step,
	}
	if len(in.Interaction) > 0 && string(in.Interaction) != "null" {
		interaction, err := DecodeInteraction(in.Interaction)
		if err != nil {
			return fmt.Errorf("action %s: %w", in.ID, err)
		}
		a.Interaction = interaction
	}
	if len(in.Response) > 0 && string(in.Response) != "null" {
		response, err := DecodeResponseEnvelope(in.Response)
		if err != nil {
			return fmt.Errorf("action %s: %w", in.ID, err)
		}
		a.Response = response
	}
	return nil
}
