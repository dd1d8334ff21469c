package memory

import (
	"context"
	"sort"
	"sync"

	"gacha-lab/internal/domain"
	"gacha-lab/internal/storage"
)

// CategoryStatStore is an in-memory implementation of storage.CategoryStatStore.
// With a positive retention it keeps only the rows of the newest results.
type CategoryStatStore struct {
	mu        sync.RWMutex
	data      map[string]*domain.CategoryStat // keyed by result_id|category_id
	byResult  map[string][]string             // result_id -> row keys
	order     []string                        // result_ids in first-insert order
	retention int                             // results kept; 0 keeps everything
}

// NewCategoryStatStore creates a new in-memory category stat store without a retention limit.
func NewCategoryStatStore() *CategoryStatStore {
	return NewCategoryStatStoreWithRetention(0)
}

// NewCategoryStatStoreWithRetention creates a store that drops the rows of the
// oldest result once rows of more than retention results are held.
func NewCategoryStatStoreWithRetention(retention int) *CategoryStatStore {
	if retention < 0 {
		retention = 0
	}
	return &CategoryStatStore{
		data:      make(map[string]*domain.CategoryStat),
		byResult:  make(map[string][]string),
		retention: retention,
	}
}

// Compile-time interface check.
var _ storage.CategoryStatStore = (*CategoryStatStore)(nil)

func statKey(s *domain.CategoryStat) string {
	return s.ResultID + "|" + s.CategoryID
}

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *CategoryStatStore) InsertBulk(_ context.Context, stats []*domain.CategoryStat) error {
	if len(stats) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(stats))

	// First pass: validate and check for duplicates (existing + intra-batch)
	for _, st := range stats {
		if st == nil || st.ResultID == "" || st.CategoryID == "" {
			return storage.ErrInvalidInput
		}

		key := statKey(st)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, st := range stats {
		row := *st
		key := statKey(st)
		s.data[key] = &row
		if _, seen := s.byResult[st.ResultID]; !seen {
			s.order = append(s.order, st.ResultID)
		}
		s.byResult[st.ResultID] = append(s.byResult[st.ResultID], key)
	}

	if s.retention > 0 {
		for len(s.order) > s.retention {
			oldest := s.order[0]
			for _, key := range s.byResult[oldest] {
				delete(s.data, key)
			}
			delete(s.byResult, oldest)
			s.order[0] = ""
			s.order = s.order[1:]
		}
	}

	return nil
}

// GetByResultID retrieves the rows of one result, ordered by expected_value DESC.
func (s *CategoryStatStore) GetByResultID(_ context.Context, resultID string) ([]*domain.CategoryStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CategoryStat
	for _, st := range s.data {
		if st.ResultID == resultID {
			row := *st
			result = append(result, &row)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ExpectedValue != result[j].ExpectedValue {
			return result[i].ExpectedValue > result[j].ExpectedValue
		}
		return result[i].CategoryID < result[j].CategoryID
	})

	return result, nil
}

// GetByCategoryName retrieves the history of a category across results, oldest first.
func (s *CategoryStatStore) GetByCategoryName(_ context.Context, name string) ([]*domain.CategoryStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CategoryStat
	for _, st := range s.data {
		if st.CategoryName == name {
			row := *st
			result = append(result, &row)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ResultID < result[j].ResultID
	})

	return result, nil
}
