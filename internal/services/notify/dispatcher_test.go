package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

type fakeSubscribers struct {
	users []model.User
}

func (f fakeSubscribers) ListNotifiable(_ context.Context) ([]model.User, error) {
	return f.users, nil
}

type fakeLocations struct {
	mu    sync.Mutex
	fixes map[int64]*model.LocationFix
}

func (f *fakeLocations) LastFix(_ context.Context, userID int64) (*model.LocationFix, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fixes[userID], nil
}

type fakeCooldown struct {
	mu       sync.Mutex
	acquired map[int64]bool
}

func (f *fakeCooldown) TryAcquire(_ context.Context, userID int64, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquired == nil {
		f.acquired = map[int64]bool{}
	}
	if f.acquired[userID] {
		return false, nil
	}
	f.acquired[userID] = true
	return true, nil
}

type fakeHistory struct {
	mu      sync.Mutex
	entries map[int64][]model.Notification
}

func (f *fakeHistory) Append(_ context.Context, n model.Notification, limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entries == nil {
		f.entries = map[int64][]model.Notification{}
	}
	list := append([]model.Notification{n}, f.entries[n.UserID]...)
	if len(list) > limit {
		list = list[:limit]
	}
	f.entries[n.UserID] = list
	return nil
}

func (f *fakeHistory) List(_ context.Context, userID int64, limit int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.entries[userID]
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (f *fakeHistory) MarkRead(_ context.Context, userID int64, notificationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.entries[userID] {
		if n.ID == notificationID {
			f.entries[userID][i].Read = true
			return nil
		}
	}
	return errors.New("notification not found")
}

type fakeSink struct {
	mu        sync.Mutex
	delivered []model.Notification
	chats     []int64
	failFor   map[int64]bool
	panicFor  map[int64]bool
}

func (f *fakeSink) Deliver(_ context.Context, chatID int64, n model.Notification) error {
	if f.panicFor[chatID] {
		panic("sink exploded")
	}
	if f.failFor[chatID] {
		return errors.New("delivery failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered = append(f.delivered, n)
	f.chats = append(f.chats, chatID)
	return nil
}

// Telegram ids live in a separate space from internal ids so tests catch
// any lookup keyed by the wrong one.
func tgID(id int64) int64 { return id + 700000000 }

func subscriber(id int64) model.User {
	return model.User{
		ID:         id,
		TelegramID: tgID(id),
		Preferences: model.NotificationPreferences{
			Enabled:  true,
			RadiusKM: 10,
		},
	}
}

func freshFix(lat, lon float64) *model.LocationFix {
	return &model.LocationFix{Latitude: lat, Longitude: lon, AccuracyM: 20, Source: model.FixSourceSensor, Timestamp: time.Now().UTC()}
}

func approvedPost() model.Post {
	now := time.Now().UTC()
	return model.Post{
		ID:          "post-1",
		Description: "экипаж у моста",
		Latitude:    59.3733,
		Longitude:   28.6134,
		Category:    enums.PostCategoryDPS,
		Status:      enums.ModerationStatusApproved,
		UserID:      999,
		CreatedAt:   now,
		ExpiresAt:   now.Add(4 * time.Hour),
	}
}

func newDispatcher(users []model.User, locations *fakeLocations, sink *fakeSink) (*Dispatcher, *fakeHistory) {
	history := &fakeHistory{}
	d := NewDispatcher(fakeSubscribers{users: users}, locations, &fakeCooldown{}, history, sink, Config{
		Cooldown:          5 * time.Minute,
		LocationFreshness: 5 * time.Minute,
		HistoryLimit:      100,
	}, nil)
	return d, history
}

func TestDispatchNotifiesNearbyFreshSubscriber(t *testing.T) {
	locations := &fakeLocations{fixes: map[int64]*model.LocationFix{
		1: freshFix(59.3750, 28.6100), // a few hundred meters away
	}}
	sink := &fakeSink{}
	d, history := newDispatcher([]model.User{subscriber(1)}, locations, sink)

	d.OnPostApproved(context.Background(), approvedPost())

	if len(sink.delivered) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(sink.delivered))
	}
	n := sink.delivered[0]
	if n.PostID != "post-1" || n.Title == "" || n.Body == "" {
		t.Fatalf("incomplete notification: %+v", n)
	}
	if n.UserID != 1 {
		t.Fatalf("notification should carry the internal user id, got %d", n.UserID)
	}
	if sink.chats[0] != tgID(1) {
		t.Fatalf("delivery should address the telegram chat, got %d", sink.chats[0])
	}
	if n.DistanceKM <= 0 || n.DistanceKM > 1 {
		t.Fatalf("unexpected distance: %f", n.DistanceKM)
	}

	list, err := history.List(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if len(list) != 1 || list[0].Read {
		t.Fatalf("history entry should exist unread: %+v", list)
	}
}

func TestDispatchSkips(t *testing.T) {
	post := approvedPost()

	tests := []struct {
		name string
		user func() model.User
		fix  *model.LocationFix
	}{
		{
			name: "disabled notifications",
			user: func() model.User { u := subscriber(1); u.Preferences.Enabled = false; return u },
			fix:  freshFix(59.3750, 28.6100),
		},
		{
			name: "category opted out",
			user: func() model.User {
				u := subscriber(1)
				u.Preferences.Categories = map[enums.PostCategory]bool{enums.PostCategoryDPS: false}
				return u
			},
			fix: freshFix(59.3750, 28.6100),
		},
		{
			name: "no cached location",
			user: func() model.User { return subscriber(1) },
			fix:  nil,
		},
		{
			name: "stale location",
			user: func() model.User { return subscriber(1) },
			fix: &model.LocationFix{
				Latitude: 59.3750, Longitude: 28.6100,
				Timestamp: time.Now().Add(-time.Hour),
			},
		},
		{
			name: "outside radius",
			user: func() model.User { u := subscriber(1); u.Preferences.RadiusKM = 1; return u },
			fix:  freshFix(60.5, 30.5),
		},
		{
			name: "post author",
			user: func() model.User { return subscriber(999) },
			fix:  freshFix(59.3750, 28.6100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locations := &fakeLocations{fixes: map[int64]*model.LocationFix{}}
			user := tt.user()
			if tt.fix != nil {
				locations.fixes[user.ID] = tt.fix
			}
			sink := &fakeSink{}
			d, _ := newDispatcher([]model.User{user}, locations, sink)

			d.OnPostApproved(context.Background(), post)

			if len(sink.delivered) != 0 {
				t.Fatalf("expected no delivery, got %d", len(sink.delivered))
			}
		})
	}
}

func TestDispatchQuietHoursSuppresses(t *testing.T) {
	user := subscriber(1)
	user.Preferences.QuietStart = "00:00"
	user.Preferences.QuietEnd = "23:59"

	locations := &fakeLocations{fixes: map[int64]*model.LocationFix{1: freshFix(59.3750, 28.6100)}}
	sink := &fakeSink{}
	d, _ := newDispatcher([]model.User{user}, locations, sink)

	d.OnPostApproved(context.Background(), approvedPost())

	if len(sink.delivered) != 0 {
		t.Fatalf("quiet hours should suppress delivery")
	}
}

func TestDispatchCooldownSuppressesSecondAlert(t *testing.T) {
	locations := &fakeLocations{fixes: map[int64]*model.LocationFix{1: freshFix(59.3750, 28.6100)}}
	sink := &fakeSink{}
	d, _ := newDispatcher([]model.User{subscriber(1)}, locations, sink)

	d.OnPostApproved(context.Background(), approvedPost())
	second := approvedPost()
	second.ID = "post-2"
	d.OnPostApproved(context.Background(), second)

	if len(sink.delivered) != 1 {
		t.Fatalf("cooldown should suppress the second alert, got %d deliveries", len(sink.delivered))
	}
}

func TestDispatchIsolatesSubscriberFailures(t *testing.T) {
	locations := &fakeLocations{fixes: map[int64]*model.LocationFix{
		1: freshFix(59.3750, 28.6100),
		2: freshFix(59.3750, 28.6100),
		3: freshFix(59.3750, 28.6100),
	}}
	sink := &fakeSink{
		failFor:  map[int64]bool{tgID(1): true},
		panicFor: map[int64]bool{tgID(2): true},
	}
	d, _ := newDispatcher([]model.User{subscriber(1), subscriber(2), subscriber(3)}, locations, sink)

	d.OnPostApproved(context.Background(), approvedPost())

	if len(sink.delivered) != 1 || sink.delivered[0].UserID != 3 {
		t.Fatalf("healthy subscriber should still be notified: %+v", sink.delivered)
	}
}

func TestAckMarksRead(t *testing.T) {
	locations := &fakeLocations{fixes: map[int64]*model.LocationFix{1: freshFix(59.3750, 28.6100)}}
	sink := &fakeSink{}
	d, history := newDispatcher([]model.User{subscriber(1)}, locations, sink)

	d.OnPostApproved(context.Background(), approvedPost())

	list, err := d.History(context.Background(), 1, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("history: %v, %d entries", err, len(list))
	}
	if err := d.Ack(context.Background(), 1, list[0].ID); err != nil {
		t.Fatalf("ack: %v", err)
	}

	list, err = history.List(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !list[0].Read {
		t.Fatalf("notification should be read after ack")
	}
}
