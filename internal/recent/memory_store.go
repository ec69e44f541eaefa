package recent

import (
	"context"
	"sync"

	"github.com/pedrohpiress/banktransaction-queue/internal/models"
)

// MemoryStore is the in-process Store used when no Redis address is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []models.RecentTransaction
	limit   int
}

func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &MemoryStore{limit: limit}
}

func (s *MemoryStore) Add(_ context.Context, entry models.RecentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]models.RecentTransaction{entry}, s.entries...)
	if len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.RecentTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RecentTransaction, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries)), nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	return nil
}
