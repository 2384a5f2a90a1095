package model

import (
	"encoding/json"
	"fmt"

	"github.com/magefree/arena-server-go/internal/game/counters"
)

// EncodeInstance serializes an instance for storage and notifications.
func EncodeInstance(g *GameInstance) ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode instance %s: %w", g.ID, err)
	}
	return data, nil
}

// DecodeInstance reads an instance written by EncodeInstance and restores
// the invariants the JSON form leaves implicit.
func DecodeInstance(data []byte) (*GameInstance, error) {
	var g GameInstance
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode instance: %w", err)
	}
	for _, u := range g.Users {
		if u.Counters == nil {
			u.Counters = counters.NewCounters()
		}
	}
	for _, c := range g.Cards {
		if c.Metadata == nil {
			c.Metadata = counters.NewCounters()
		}
		if c.Location != LocationBoard {
			c.Coord = nil
		}
	}
	return &g, nil
}
