package quota

import (
	"context"
	"sync"

	"billserver/internal/domain"
)

// MemStore is an in-memory Store. It backs tests and local development; the
// production store lives in the repo adapter layer.
type MemStore struct {
	mu      sync.Mutex
	records map[string]*domain.UserQuota
}

func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]*domain.UserQuota)}
}

func (s *MemStore) Get(_ context.Context, userID string) (*domain.UserQuota, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *MemStore) Put(_ context.Context, rec *domain.UserQuota) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.UserID] = rec.Clone()
	return nil
}

func (s *MemStore) IncrementUsage(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return domain.ErrNotFound
	}
	rec.DailyUsed++
	rec.MonthlyUsed++
	return nil
}
