package memory

import (
	"context"
	"sort"
	"sync"

	"gacha-lab/internal/domain"
	"gacha-lab/internal/storage"
)

// ResultStore is an in-memory implementation of storage.ResultStore.
// With a positive retention it keeps only the newest inserted records.
type ResultStore struct {
	mu        sync.RWMutex
	data      map[string]*domain.ResultRecord // keyed by result_id
	order     []string                        // result_ids in insertion order
	retention int                             // 0 keeps everything
}

// NewResultStore creates a new in-memory result store without a retention limit.
func NewResultStore() *ResultStore {
	return NewResultStoreWithRetention(0)
}

// NewResultStoreWithRetention creates a store that evicts the oldest inserted
// record once more than retention records are held. Zero or less disables eviction.
func NewResultStoreWithRetention(retention int) *ResultStore {
	if retention < 0 {
		retention = 0
	}
	return &ResultStore{
		data:      make(map[string]*domain.ResultRecord),
		retention: retention,
	}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if result_id exists.
func (s *ResultStore) Insert(_ context.Context, r *domain.ResultRecord) error {
	if r == nil || r.ResultID == "" || r.Result == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ResultID]; exists {
		return storage.ErrDuplicateKey
	}

	rec := *r
	s.data[r.ResultID] = &rec
	s.order = append(s.order, r.ResultID)

	if s.retention > 0 {
		for len(s.order) > s.retention {
			delete(s.data, s.order[0])
			s.order[0] = ""
			s.order = s.order[1:]
		}
	}
	return nil
}

// Len returns the number of records held.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// GetByID retrieves a record by its ID. Returns ErrNotFound if not exists.
func (s *ResultStore) GetByID(_ context.Context, resultID string) (*domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[resultID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	rec := *r
	return &rec, nil
}

// List retrieves up to limit records, newest first.
func (s *ResultStore) List(_ context.Context, limit int) ([]*domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ResultRecord, 0, len(s.data))
	for _, r := range s.data {
		rec := *r
		result = append(result, &rec)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ResultID < result[j].ResultID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
