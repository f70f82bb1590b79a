package comments

import (
	"context"
	"sort"
	"sync"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

type MemoryStore struct {
	mu     sync.RWMutex
	byPost map[string][]model.Comment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byPost: make(map[string][]model.Comment)}
}

func (s *MemoryStore) Insert(_ context.Context, comment model.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPost[comment.PostID] = append(s.byPost[comment.PostID], comment)
	return nil
}

func (s *MemoryStore) ListByPost(_ context.Context, postID string) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Comment, len(s.byPost[postID]))
	copy(out, s.byPost[postID])
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) DeleteByPost(_ context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byPost, postID)
	return nil
}
