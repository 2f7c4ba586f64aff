package store

import (
	"context"
	"sync"
	"time"
)

// -----------------------------------------------------------------------------
// MemoryConfigStore
// -----------------------------------------------------------------------------

// MemoryConfigStore is an in-process ConfigStore, used in tests and as a
// stand-in when no external configuration backend is wired.
type MemoryConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
	// failWith, when set, makes every lookup fail. Tests use it to exercise
	// the degrade-to-defaults paths.
	failWith error
}

func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{values: make(map[string]any)}
}

func (s *MemoryConfigStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *MemoryConfigStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *MemoryConfigStore) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, false, s.failWith
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryConfigStore) GetMany(_ context.Context, keys []string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if v, ok := s.values[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// MemoryHistoryStore
// -----------------------------------------------------------------------------

// MemoryHistoryStore is an in-process HistoryStore.
type MemoryHistoryStore struct {
	mu          sync.RWMutex
	executions  []ExecutionRecord
	predictions []PredictionRecord
	failWith    error
}

func NewMemoryHistoryStore() *MemoryHistoryStore {
	return &MemoryHistoryStore{}
}

func (s *MemoryHistoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *MemoryHistoryStore) RecordExecution(_ context.Context, rec ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.executions = append(s.executions, rec)
	return nil
}

func (s *MemoryHistoryStore) QueryExecutions(_ context.Context, filter ExecutionFilter) ([]ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []ExecutionRecord
	for _, rec := range s.executions {
		if filter.Intent != "" && rec.Intent != filter.Intent {
			continue
		}
		if filter.Tier != "" && rec.Tier != filter.Tier {
			continue
		}
		if rec.Complexity < filter.MinComplexity || rec.Complexity > filter.MaxComplexity {
			continue
		}
		if !filter.Since.IsZero() && rec.CreatedAt.Before(filter.Since) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryHistoryStore) RecordPrediction(_ context.Context, rec PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.predictions = append(s.predictions, rec)
	return nil
}

func (s *MemoryHistoryStore) QueryPredictions(_ context.Context, intent, tier string, since time.Time) ([]PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []PredictionRecord
	for _, rec := range s.predictions {
		if intent != "" && rec.Intent != intent {
			continue
		}
		if tier != "" && rec.Tier != tier {
			continue
		}
		if !since.IsZero() && rec.CreatedAt.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
