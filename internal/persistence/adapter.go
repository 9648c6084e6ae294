// Package persistence bridges learning path snapshots and a durable KV store.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pablasso/parcours/internal/path"
	"github.com/pablasso/parcours/internal/storage"
)

// DefaultKey is the fixed key the learning path is stored under.
const DefaultKey = "learningPath"

// ErrPersistence wraps every failure to write a snapshot.
var ErrPersistence = errors.New("persistence failure")

// Adapter loads and saves snapshots under a single key.
type Adapter struct {
	kv     storage.KV
	key    string
	logger *slog.Logger
}

// NewAdapter creates an adapter over kv. An empty key selects DefaultKey and a
// nil logger selects slog.Default().
func NewAdapter(kv storage.KV, key string, logger *slog.Logger) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{kv: kv, key: key, logger: logger}
}

// Key returns the storage key in use.
func (a *Adapter) Key() string {
	return a.key
}

// Save writes snapshot under the adapter key. Errors wrap ErrPersistence; the
// caller's in-memory state stays authoritative either way.
func (a *Adapter) Save(ctx context.Context, snapshot path.LearningPath) error {
	data, err := path.Encode(snapshot)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := a.kv.Set(ctx, a.key, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// Load reads the stored snapshot. ok is false when nothing usable is stored:
// no value, a read error, or data failing validation. The latter two are
// logged, never returned.
func (a *Adapter) Load(ctx context.Context) (path.LearningPath, bool) {
	p, state := a.load(ctx)
	return p, state == StateValidData
}

// Restore makes the stored snapshot current in store, or the default path
// when nothing usable is stored, and reports which startup state applied.
func (a *Adapter) Restore(ctx context.Context, store *path.Store) StartupState {
	p, state := a.load(ctx)
	if state != StateValidData {
		store.Reset()
		return state
	}
	store.Replace(p)
	return state
}

func (a *Adapter) load(ctx context.Context) (path.LearningPath, StartupState) {
	data, err := a.kv.Get(ctx, a.key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return path.LearningPath{}, StateNoData
		}
		a.logger.Warn("failed to read stored learning path", "key", a.key, "error", err)
		return path.LearningPath{}, StateReadFailed
	}

	p, err := path.Decode(data)
	if err != nil {
		a.logger.Warn("discarding stored learning path", "key", a.key, "error", err)
		return path.LearningPath{}, StateCorruptData
	}
	return p, StateValidData
}

// StartupState describes what Restore found in storage.
type StartupState int

const (
	StateNoData StartupState = iota
	StateValidData
	StateCorruptData
	// StateReadFailed means storage could not be read at all; the stored
	// value may be intact but is replaced on the next save.
	StateReadFailed
)

func (s StartupState) String() string {
	switch s {
	case StateNoData:
		return "no_data"
	case StateValidData:
		return "valid_data"
	case StateCorruptData:
		return "corrupt_data"
	case StateReadFailed:
		return "read_failed"
	default:
		return "unknown"
	}
}
