// Package offline keeps clock actions the backend could not accept and
// replays them once it is reachable again.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fentz26/crewclock/internal/models"
	"github.com/fentz26/crewclock/internal/store"
	"go.uber.org/zap"
)

// QueueStore persists the ordered list of pending actions.
type QueueStore interface {
	// Load returns the stored actions in append order. It never fails; missing
	// or unreadable state reads as empty.
	Load(ctx context.Context) []models.PendingAction
	// Save overwrites the stored list.
	Save(ctx context.Context, actions []models.PendingAction) error
	// Update replaces the stored list with fn's result as one atomic step,
	// also against other processes sharing the store. If fn fails nothing
	// is written and its error is returned.
	Update(ctx context.Context, fn func([]models.PendingAction) ([]models.PendingAction, error)) error
}

// SlotBackend is the key/value storage a SlotStore writes through.
type SlotBackend interface {
	GetSlot(ctx context.Context, key string) ([]byte, error)
	PutSlot(ctx context.Context, key string, value []byte) error
	UpdateSlot(ctx context.Context, key string, fn func(value []byte, found bool) ([]byte, error)) error
}

// SlotStore keeps the queue as one JSON document in a named slot.
type SlotStore struct {
	backend SlotBackend
	key     string
	logger  *zap.Logger
}

// NewSlotStore creates a queue store over backend under key.
func NewSlotStore(backend SlotBackend, key string, logger *zap.Logger) *SlotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotStore{backend: backend, key: key, logger: logger}
}

// Load implements QueueStore.
func (s *SlotStore) Load(ctx context.Context) []models.PendingAction {
	data, err := s.backend.GetSlot(ctx, s.key)
	if errors.Is(err, store.ErrSlotNotFound) {
		return []models.PendingAction{}
	}
	if err != nil {
		s.logger.Warn("reading offline queue", zap.String("key", s.key), zap.Error(err))
		return []models.PendingAction{}
	}
	return s.decode(data)
}

func (s *SlotStore) decode(data []byte) []models.PendingAction {
	var actions []models.PendingAction
	if err := json.Unmarshal(data, &actions); err != nil {
		s.logger.Warn("discarding malformed offline queue", zap.String("key", s.key), zap.Error(err))
		return []models.PendingAction{}
	}
	if actions == nil {
		actions = []models.PendingAction{}
	}
	return actions
}

func encode(actions []models.PendingAction) ([]byte, error) {
	if actions == nil {
		actions = []models.PendingAction{}
	}
	data, err := json.Marshal(actions)
	if err != nil {
		return nil, fmt.Errorf("encode queue: %w", err)
	}
	return data, nil
}

// Save implements QueueStore.
func (s *SlotStore) Save(ctx context.Context, actions []models.PendingAction) error {
	data, err := encode(actions)
	if err != nil {
		return err
	}
	if err := s.backend.PutSlot(ctx, s.key, data); err != nil {
		return fmt.Errorf("save queue: %w", err)
	}
	return nil
}

// Update implements QueueStore. The read and the write share one backend
// transaction.
func (s *SlotStore) Update(ctx context.Context, fn func([]models.PendingAction) ([]models.PendingAction, error)) error {
	return s.backend.UpdateSlot(ctx, s.key, func(value []byte, found bool) ([]byte, error) {
		actions := []models.PendingAction{}
		if found {
			actions = s.decode(value)
		}
		next, err := fn(actions)
		if err != nil {
			return nil, err
		}
		return encode(next)
	})
}

// MemoryStore is an in-process QueueStore.
type MemoryStore struct {
	mu      sync.Mutex
	actions []models.PendingAction
	saves   int
}

// NewMemoryStore creates a memory store seeded with actions.
func NewMemoryStore(actions ...models.PendingAction) *MemoryStore {
	return &MemoryStore{actions: append([]models.PendingAction{}, actions...)}
}

// Load implements QueueStore.
func (m *MemoryStore) Load(ctx context.Context) []models.PendingAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PendingAction{}, m.actions...)
}

// Save implements QueueStore.
func (m *MemoryStore) Save(ctx context.Context, actions []models.PendingAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append([]models.PendingAction{}, actions...)
	m.saves++
	return nil
}

// Update implements QueueStore.
func (m *MemoryStore) Update(ctx context.Context, fn func([]models.PendingAction) ([]models.PendingAction, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(append([]models.PendingAction{}, m.actions...))
	if err != nil {
		return err
	}
	m.actions = append([]models.PendingAction{}, next...)
	m.saves++
	return nil
}

// Saves returns how many writes Save and Update have made.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
