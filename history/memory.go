package history

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore keeps attempts in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	seq     int
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	rec.ID = strconv.Itoa(s.seq)
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *MemoryStore) ListByContent(_ context.Context, contentID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, rec := range s.records {
		if rec.ContentID == contentID {
			out = append(out, rec)
		}
	}
	return out, nil
}
