package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/enums"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/rules"
)

var ErrValidation = errors.New("validation error")

// SubscriberSource lists users that may receive proximity alerts.
type SubscriberSource interface {
	ListNotifiable(ctx context.Context) ([]model.User, error)
}

// LocationSource returns the subscriber's last known fix, or nil when none
// is cached.
type LocationSource interface {
	LastFix(ctx context.Context, userID int64) (*model.LocationFix, error)
}

// CooldownGate enforces the per-subscriber minimum gap between alerts.
type CooldownGate interface {
	TryAcquire(ctx context.Context, userID int64, ttl time.Duration) (bool, error)
}

// HistoryStore keeps the bounded, most-recent-first notification history.
type HistoryStore interface {
	Append(ctx context.Context, notification model.Notification, limit int) error
	List(ctx context.Context, userID int64, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID int64, notificationID string) error
}

// Sink delivers the alert to the subscriber's chat. The chat id is the
// subscriber's telegram id, not the internal user id.
type Sink interface {
	Deliver(ctx context.Context, chatID int64, notification model.Notification) error
}

type Config struct {
	Cooldown          time.Duration
	LocationFreshness time.Duration
	HistoryLimit      int
}

type Dispatcher struct {
	subscribers SubscriberSource
	locations   LocationSource
	cooldown    CooldownGate
	history     HistoryStore
	sink        Sink
	cfg         Config
	logger      *zap.Logger
	now         func() time.Time
}

func NewDispatcher(subscribers SubscriberSource, locations LocationSource, cooldown CooldownGate, history HistoryStore, sink Sink, cfg Config, logger *zap.Logger) *Dispatcher {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.LocationFreshness <= 0 {
		cfg.LocationFreshness = 5 * time.Minute
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		subscribers: subscribers,
		locations:   locations,
		cooldown:    cooldown,
		history:     history,
		sink:        sink,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// OnPostApproved fans an approved post out across subscribers. Fan-out is
// parallel and order-independent; one subscriber failing or panicking
// never blocks the rest.
func (d *Dispatcher) OnPostApproved(ctx context.Context, post model.Post) {
	if d.subscribers == nil {
		return
	}

	users, err := d.subscribers.ListNotifiable(ctx)
	if err != nil {
		d.logger.Warn("list notifiable subscribers failed", zap.Error(err), zap.String("post_id", post.ID))
		return
	}

	var wg sync.WaitGroup
	for _, user := range users {
		wg.Add(1)
		go func(user model.User) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					d.logger.Error("subscriber dispatch panicked",
						zap.Int64("user_id", user.ID), zap.Any("panic", r))
				}
			}()

			if err := d.dispatchOne(ctx, post, user); err != nil {
				d.logger.Warn("dispatch to subscriber failed",
					zap.Error(err), zap.Int64("user_id", user.ID), zap.String("post_id", post.ID))
			}
		}(user)
	}
	wg.Wait()
}

// dispatchOne keys every lookup by the internal user id; the telegram id
// is used only as the delivery chat id.
func (d *Dispatcher) dispatchOne(ctx context.Context, post model.Post, user model.User) error {
	if user.ID == post.UserID {
		return nil
	}
	if !user.Preferences.Enabled || !user.Preferences.WantsCategory(post.Category) {
		return nil
	}

	fix, err := d.lastFresh(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("last fix: %w", err)
	}
	if fix == nil {
		return nil
	}

	distanceKM := rules.HaversineKM(fix.Latitude, fix.Longitude, post.Latitude, post.Longitude)
	// an unset radius means the subscriber wants every alert
	if user.Preferences.RadiusKM > 0 && distanceKM > user.Preferences.RadiusKM {
		return nil
	}

	window, err := rules.ParseQuietWindow(user.Preferences.QuietStart, user.Preferences.QuietEnd)
	if err != nil {
		return fmt.Errorf("quiet window: %w", err)
	}
	if window.Contains(d.now()) {
		return nil
	}

	if d.cooldown != nil {
		acquired, err := d.cooldown.TryAcquire(ctx, user.ID, d.cfg.Cooldown)
		if err != nil {
			return fmt.Errorf("cooldown: %w", err)
		}
		if !acquired {
			return nil
		}
	}

	notification := model.Notification{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		PostID:     post.ID,
		Title:      titleFor(post.Category),
		Body:       fmt.Sprintf("%s • %s", rules.FormatDistance(distanceKM), post.Description),
		DistanceKM: distanceKM,
		CreatedAt:  d.now().UTC(),
	}

	if d.history != nil {
		if err := d.history.Append(ctx, notification, d.cfg.HistoryLimit); err != nil {
			d.logger.Warn("append notification history failed", zap.Error(err), zap.Int64("user_id", user.ID))
		}
	}
	if d.sink != nil {
		if err := d.sink.Deliver(ctx, user.TelegramID, notification); err != nil {
			return fmt.Errorf("deliver: %w", err)
		}
	}
	return nil
}

func (d *Dispatcher) lastFresh(ctx context.Context, userID int64) (*model.LocationFix, error) {
	if d.locations == nil {
		return nil, nil
	}
	fix, err := d.locations.LastFix(ctx, userID)
	if err != nil || fix == nil {
		return nil, err
	}
	if d.now().Sub(fix.Timestamp) > d.cfg.LocationFreshness {
		return nil, nil
	}
	return fix, nil
}

// History returns the subscriber's bounded alert history, newest first.
func (d *Dispatcher) History(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	if d.history == nil {
		return nil, fmt.Errorf("notification history store is nil")
	}
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id: %w", ErrValidation)
	}
	if limit <= 0 || limit > d.cfg.HistoryLimit {
		limit = d.cfg.HistoryLimit
	}
	return d.history.List(ctx, userID, limit)
}

// Ack marks one notification as read.
func (d *Dispatcher) Ack(ctx context.Context, userID int64, notificationID string) error {
	if d.history == nil {
		return fmt.Errorf("notification history store is nil")
	}
	if userID <= 0 || notificationID == "" {
		return fmt.Errorf("user id and notification id are required: %w", ErrValidation)
	}
	return d.history.MarkRead(ctx, userID, notificationID)
}

func titleFor(category enums.PostCategory) string {
	switch category {
	case enums.PostCategoryDPS:
		return "ДПС рядом"
	case enums.PostCategoryPatrol:
		return "Патруль рядом"
	case enums.PostCategoryAccident:
		return "ДТП рядом"
	case enums.PostCategoryCamera:
		return "Камера рядом"
	case enums.PostCategoryRoadwork:
		return "Дорожные работы"
	case enums.PostCategoryAnimals:
		return "Животные на дороге"
	default:
		return "Событие рядом"
	}
}
