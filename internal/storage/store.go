// Package storage persists game instances. Every backend stores the JSON
// encoding of an instance keyed by id, plus its status so active games can
// be listed after a restart.
package storage

import (
	"context"
	"errors"

	"github.com/magefree/arena-server-go/internal/game/model"
)

// ErrNotFound is returned when no instance is stored under an id.
var ErrNotFound = errors.New("game not stored")

// Store is the save-entity collaborator of the engine. Saves are
// last-write-wins.
type Store interface {
	Save(ctx context.Context, inst *model.GameInstance) error
	Load(ctx context.Context, id string) (*model.GameInstance, error)
	ListActive(ctx context.Context) ([]string, error)
	Close() error
}
