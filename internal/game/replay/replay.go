// Package replay records the state history of games and stores it as
// gzipped files once a game ends.
package replay

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/game/model"
)

const fileVersion = 1

// ErrNoReplay is returned for games that are not being recorded.
var ErrNoReplay = errors.New("no replay recorded")

// Replay is the ordered list of encoded snapshots of one game, one per
// committed change.
type Replay struct {
	GameID string

	mu     sync.RWMutex
	states [][]byte
	cursor int
}

// NewReplay creates an empty replay.
func NewReplay(gameID string) *Replay {
	return &Replay{GameID: gameID}
}

// Record appends a snapshot of inst.
func (r *Replay) Record(inst *model.GameInstance) error {
	data, err := model.EncodeInstance(inst)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.states = append(r.states, data)
	r.mu.Unlock()
	return nil
}

// Size returns the number of recorded snapshots.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// At decodes the snapshot at index.
func (r *Replay) At(index int) (*model.GameInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.states) {
		return nil, fmt.Errorf("replay %s has no state %d", r.GameID, index)
	}
	return model.DecodeInstance(r.states[index])
}

// Start rewinds the cursor.
func (r *Replay) Start() {
	r.mu.Lock()
	r.cursor = 0
	r.mu.Unlock()
}

// Next returns the snapshot under the cursor and advances it. It returns
// nil at the end.
func (r *Replay) Next() (*model.GameInstance, error) {
	r.mu.Lock()
	if r.cursor >= len(r.states) {
		r.mu.Unlock()
		return nil, nil
	}
	data := r.states[r.cursor]
	r.cursor++
	r.mu.Unlock()
	return model.DecodeInstance(data)
}

// Skip moves the cursor by count, clamped to the recorded range.
func (r *Replay) Skip(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor = min(max(r.cursor+count, 0), len(r.states))
}

type fileHeader struct {
	GameID     string
	SavedAt    time.Time
	Version    int
	StateCount int
}

func path(dir, gameID string) string {
	return filepath.Join(dir, gameID+".replay")
}

// SaveToFile writes the replay to dir/<game id>.replay.
func (r *Replay) SaveToFile(dir string, now time.Time) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create replay dir: %w", err)
	}
	file, err := os.Create(path(dir, r.GameID))
	if err != nil {
		return fmt.Errorf("create replay file: %w", err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	enc := gob.NewEncoder(zw)
	header := fileHeader{GameID: r.GameID, SavedAt: now, Version: fileVersion, StateCount: len(r.states)}
	if err := enc.Encode(&header); err != nil {
		return fmt.Errorf("encode replay header: %w", err)
	}
	for i, state := range r.states {
		if err := enc.Encode(state); err != nil {
			return fmt.Errorf("encode state %d: %w", i, err)
		}
	}
	return zw.Close()
}

// LoadFromFile reads a replay written by SaveToFile.
func LoadFromFile(dir, gameID string) (*Replay, error) {
	file, err := os.Open(path(dir, gameID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoReplay, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("open replay stream: %w", err)
	}
	defer zr.Close()

	dec := gob.NewDecoder(zr)
	var header fileHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("decode replay header: %w", err)
	}
	if header.Version != fileVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", header.Version)
	}

	r := NewReplay(header.GameID)
	for i := 0; i < header.StateCount; i++ {
		var state []byte
		if err := dec.Decode(&state); err != nil {
			return nil, fmt.Errorf("decode state %d: %w", i, err)
		}
		r.states = append(r.states, state)
	}
	return r, nil
}

// Recorder keeps the replays of running games and saves them when the
// games end.
type Recorder struct {
	logger  *zap.Logger
	dir     string
	now     func() time.Time
	mu      sync.RWMutex
	replays map[string]*Replay
}

// NewRecorder creates a recorder saving into dir.
func NewRecorder(logger *zap.Logger, dir string) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		logger:  logger,
		dir:     dir,
		now:     time.Now,
		replays: make(map[string]*Replay),
	}
}

// Start begins recording a game, dropping any earlier recording.
func (rr *Recorder) Start(gameID string) {
	rr.mu.Lock()
	rr.replays[gameID] = NewReplay(gameID)
	rr.mu.Unlock()
	rr.logger.Debug("started replay recording", zap.String("game_id", gameID))
}

// Recording reports whether a game is being recorded.
func (rr *Recorder) Recording(gameID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()
	_, ok := rr.replays[gameID]
	return ok
}

// Record appends a snapshot to a recorded game. Unrecorded games are
// ignored.
func (rr *Recorder) Record(inst *model.GameInstance) {
	rr.mu.RLock()
	r := rr.replays[inst.ID]
	rr.mu.RUnlock()
	if r == nil {
		return
	}
	if err := r.Record(inst); err != nil {
		rr.logger.Warn("failed to record replay state",
			zap.String("game_id", inst.ID),
			zap.Error(err))
	}
}

// Save writes a recording to disk and forgets it.
func (rr *Recorder) Save(gameID string) error {
	rr.mu.Lock()
	r, ok := rr.replays[gameID]
	delete(rr.replays, gameID)
	rr.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoReplay, gameID)
	}

	if err := r.SaveToFile(rr.dir, rr.now()); err != nil {
		return fmt.Errorf("save replay %s: %w", gameID, err)
	}
	rr.logger.Info("saved replay to disk",
		zap.String("game_id", gameID),
		zap.Int("state_count", r.Size()),
		zap.String("directory", rr.dir))
	return nil
}

// Replay returns the live recording of a game, or the saved one.
func (rr *Recorder) Replay(gameID string) (*Replay, error) {
	rr.mu.RLock()
	r, ok := rr.replays[gameID]
	rr.mu.RUnlock()
	if ok {
		return r, nil
	}
	return LoadFromFile(rr.dir, gameID)
}
