package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/magefree/arena-server-go/internal/game/model"
)

type memoryRecord struct {
	status model.Status
	data   []byte
}

// Memory keeps encoded instances in a map. Encoding on save keeps stored
// copies independent from live instances.
type Memory struct {
	mu    sync.RWMutex
	games map[string]memoryRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{games: make(map[string]memoryRecord)}
}

func (m *Memory) Save(ctx context.Context, inst *model.GameInstance) error {
	data, err := model.EncodeInstance(inst)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[inst.ID] = memoryRecord{status: inst.Status, data: data}
	return nil
}

func (m *Memory) Load(ctx context.Context, id string) (*model.GameInstance, error) {
	m.mu.RLock()
	rec, ok := m.games[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return model.DecodeInstance(rec.data)
}

func (m *Memory) ListActive(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for id, rec := range m.games {
		if rec.status == model.StatusActive {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
