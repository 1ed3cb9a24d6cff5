package gradebook

import (
	"context"
	"sync"
	"time"
)

// Store persists scores. Get and FindByScope see soft-deleted rows so history
// stays inspectable and restores are possible; ListLive never does. Create and
// Update must enforce the one-live-score-per-(enrollment, scope) constraint
// atomically and report violations as *DuplicateScoreError.
type Store interface {
	Create(ctx context.Context, sc Score) (Score, error)
	Update(ctx context.Context, sc Score) (Score, error)
	Get(ctx context.Context, id string) (Score, error)
	FindByScope(ctx context.Context, enrollmentID string, scope Scope) (Score, error)
	ListLive(ctx context.Context, enrollmentID string) ([]Score, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

type memoryStore struct {
	mu     sync.RWMutex
	scores map[string]Score
}

// NewMemoryStore returns a Store backed by a map, for tests and single-node
// dev runs. The uniqueness constraint is enforced under the store lock, so it
// carries the same commit-time guarantee as the SQL schema.
func NewMemoryStore() Store {
	return &memoryStore{scores: map[string]Score{}}
}

func (m *memoryStore) Create(_ context.Context, sc Score) (Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkConstraint(sc); err != nil {
		return Score{}, err
	}
	m.scores[sc.ID] = sc
	return sc, nil
}

func (m *memoryStore) Update(_ context.Context, sc Score) (Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scores[sc.ID]; !ok {
		return Score{}, ErrScoreNotFound
	}
	if err := m.checkConstraint(sc); err != nil {
		return Score{}, err
	}
	m.scores[sc.ID] = sc
	return sc, nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.scores[id]
	if !ok {
		return Score{}, ErrScoreNotFound
	}
	return sc, nil
}

func (m *memoryStore) FindByScope(_ context.Context, enrollmentID string, scope Scope) (Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := scope.Key()
	// Prefer the live row; a deleted one is still a hit when nothing live exists.
	var deleted *Score
	for id := range m.scores {
		sc := m.scores[id]
		if sc.EnrollmentID != enrollmentID || sc.Scope.Key() != key {
			continue
		}
		if !sc.Deleted() {
			return sc, nil
		}
		d := sc
		deleted = &d
	}
	if deleted != nil {
		return *deleted, nil
	}
	return Score{}, ErrScoreNotFound
}

func (m *memoryStore) ListLive(_ context.Context, enrollmentID string) ([]Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Score{}
	for id := range m.scores {
		sc := m.scores[id]
		if sc.EnrollmentID == enrollmentID && !sc.Deleted() {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (m *memoryStore) SoftDelete(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scores[id]
	if !ok {
		return ErrScoreNotFound
	}
	sc.Status = StatusDeleted
	sc.DeletedAt = &at
	sc.UpdatedAt = at
	m.scores[id] = sc
	return nil
}

// checkConstraint is the in-memory stand-in for the partial unique indexes.
func (m *memoryStore) checkConstraint(candidate Score) error {
	if candidate.Deleted() {
		return nil
	}
	key := candidate.Scope.Key()
	for id := range m.scores {
		other := m.scores[id]
		if other.ID == candidate.ID || other.Deleted() {
			continue
		}
		if other.EnrollmentID == candidate.EnrollmentID && other.Scope.Key() == key {
			return &DuplicateScoreError{EnrollmentID: candidate.EnrollmentID, Scope: candidate.Scope}
		}
	}
	return nil
}
