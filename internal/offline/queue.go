package offline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fentz26/crewclock/internal/models"
)

// Queue serializes every read-modify-write of a QueueStore.
type Queue struct {
	mu    sync.Mutex
	store QueueStore
}

// NewQueue wraps store.
func NewQueue(store QueueStore) *Queue {
	return &Queue{store: store}
}

// Snapshot returns a copy of the queued actions in replay order.
func (q *Queue) Snapshot(ctx context.Context) []models.PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Load(ctx)
}

// Len returns the number of queued actions.
func (q *Queue) Len(ctx context.Context) int {
	return len(q.Snapshot(ctx))
}

// Append adds action to the tail of the queue.
func (q *Queue) Append(ctx context.Context, action models.PendingAction) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	err := q.store.Update(ctx, func(actions []models.PendingAction) ([]models.PendingAction, error) {
		return append(actions, action), nil
	})
	if err != nil {
		return fmt.Errorf("append %s: %w", action.LocalID, err)
	}
	return nil
}

// Remove deletes the action with localID and returns it.
func (q *Queue) Remove(ctx context.Context, localID string) (models.PendingAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var removed models.PendingAction
	err := q.store.Update(ctx, func(actions []models.PendingAction) ([]models.PendingAction, error) {
		for i, a := range actions {
			if a.LocalID == localID {
				removed = a
				return append(actions[:i:i], actions[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, localID)
	})
	if errors.Is(err, ErrActionNotFound) {
		return models.PendingAction{}, err
	}
	if err != nil {
		return models.PendingAction{}, fmt.Errorf("remove %s: %w", localID, err)
	}
	return removed, nil
}

// commit finishes a replay of snapshot. The stored list becomes the retained
// actions that are still stored, followed by whatever was appended since the
// snapshot was taken.
func (q *Queue) commit(ctx context.Context, snapshot, retained []models.PendingAction) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	seen := make(map[string]bool, len(snapshot))
	for _, a := range snapshot {
		seen[a.LocalID] = true
	}

	return q.store.Update(ctx, func(current []models.PendingAction) ([]models.PendingAction, error) {
		stillStored := make(map[string]bool, len(current))
		var appended []models.PendingAction
		for _, a := range current {
			stillStored[a.LocalID] = true
			if !seen[a.LocalID] {
				appended = append(appended, a)
			}
		}

		next := make([]models.PendingAction, 0, len(retained)+len(appended))
		for _, a := range retained {
			if stillStored[a.LocalID] {
				next = append(next, a)
			}
		}
		return append(next, appended...), nil
	})
}
