package posts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/rules"
)

// MemoryStore keeps posts in process memory. The API app falls back to it
// when postgres is unavailable at startup, and tests use it directly.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[string]model.Post
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: map[string]model.Post{}}
}

func (s *MemoryStore) Insert(_ context.Context, post model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = post
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return model.Post{}, ErrNotFound
	}
	return post, nil
}

func (s *MemoryStore) ListActive(_ context.Context, now time.Time, limit int) ([]model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := make([]model.Post, 0, len(s.posts))
	for _, post := range s.posts {
		if post.Active(now) {
			active = append(active, post)
		}
	}
	sortNewestFirst(active)

	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, status enums.ModerationStatus, limit int) ([]model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]model.Post, 0)
	for _, post := range s.posts {
		if post.Status == status {
			matched = append(matched, post)
		}
	}
	sortNewestFirst(matched)

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryStore) Update(_ context.Context, post model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[post.ID]; !ok {
		return ErrNotFound
	}
	s.posts[post.ID] = post
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

// DeleteExpiredBefore drops posts whose expiry is older than the cutoff;
// used by the cleanup job.
func (s *MemoryStore) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, post := range s.posts {
		if post.ExpiresAt.Before(cutoff) {
			delete(s.posts, id)
			removed++
		}
	}
	return removed, nil
}

// CountRecentNearby satisfies the moderation engine's context provider.
func (s *MemoryStore) CountRecentNearby(_ context.Context, lat, lon, radiusKM float64, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, post := range s.posts {
		if post.Status != enums.ModerationStatusApproved || post.CreatedAt.Before(since) {
			continue
		}
		if rules.HaversineKM(lat, lon, post.Latitude, post.Longitude) <= radiusKM {
			count++
		}
	}
	return count, nil
}

func sortNewestFirst(posts []model.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

// Exists answers the comment service's existence check.
func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.posts[id]
	return ok, nil
}
