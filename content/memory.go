package content

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps content in process memory. Used for tests and MOCK runs.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Content
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Content)}
}

func (s *MemoryStore) Create(_ context.Context, c *Content) error {
	if c == nil || strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("content id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[c.ID]; exists {
		return fmt.Errorf("content %s already exists", c.ID)
	}
	s.items[c.ID] = clone(c)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[id]
	if !ok {
		return nil, notFound("content.get", id)
	}
	return clone(c), nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status, postedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[id]
	if !ok {
		return notFound("content.update_status", id)
	}
	c.Status = status
	if postedAt != nil {
		t := *postedAt
		c.PostedAt = &t
	} else {
		c.PostedAt = nil
	}
	return nil
}

func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]*Content, error) {
	s.mu.RLock()
	out := make([]*Content, 0, len(s.items))
	for _, c := range s.items {
		out = append(out, clone(c))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
