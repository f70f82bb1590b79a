package users

import (
	"context"
	"sync"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

// MemoryStore keeps users in process memory. It backs tests and the
// degraded mode the API falls into when postgres is unreachable.
type MemoryStore struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]model.User
	byTelegram map[int64]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:     1,
		byID:       make(map[int64]model.User),
		byTelegram: make(map[int64]int64),
	}
}

func (s *MemoryStore) GetByID(_ context.Context, id int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetByTelegramID(_ context.Context, telegramID int64) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTelegram[telegramID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemoryStore) Upsert(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		if id, ok := s.byTelegram[user.TelegramID]; ok {
			user.ID = id
		} else {
			user.ID = s.nextID
			s.nextID++
		}
	}
	s.byID[user.ID] = user
	s.byTelegram[user.TelegramID] = user.ID
	return user, nil
}

func (s *MemoryStore) UpdatePreferences(_ context.Context, userID int64, prefs model.NotificationPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return ErrNotFound
	}
	user.Preferences = prefs
	s.byID[userID] = user
	return nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, userID int64, role enums.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return ErrNotFound
	}
	user.Role = role
	s.byID[userID] = user
	return nil
}

func (s *MemoryStore) ListNotifiable(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, 0, len(s.byID))
	for _, user := range s.byID {
		if user.Preferences.Enabled {
			out = append(out, user)
		}
	}
	return out, nil
}
