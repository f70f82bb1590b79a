package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

const (
	notificationsPrefix   = "notifications:"
	notifyCooldownPrefix  = "notify:cooldown:"
	notificationRetention = 7 * 24 * time.Hour
)

// NotificationRepo keeps a capped per-user alert history. Newest entries
// sit at the head of the list.
type NotificationRepo struct {
	client *goredis.Client
}

func NewNotificationRepo(client *goredis.Client) *NotificationRepo {
	return &NotificationRepo{client: client}
}

func (r *NotificationRepo) Append(ctx context.Context, notification model.Notification, limit int) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if notification.ID == "" || notification.UserID <= 0 {
		return fmt.Errorf("invalid notification payload")
	}
	if limit <= 0 {
		limit = 100
	}

	raw, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	key := notificationsKey(notification.UserID)
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, int64(limit-1))
	pipe.Expire(ctx, key, notificationRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

func (r *NotificationRepo) List(ctx context.Context, userID int64, limit int) ([]model.Notification, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	raws, err := r.client.LRange(ctx, notificationsKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	out := make([]model.Notification, 0, len(raws))
	for _, raw := range raws {
		var notification model.Notification
		if err := json.Unmarshal([]byte(raw), &notification); err != nil {
			continue
		}
		out = append(out, notification)
	}
	return out, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, userID int64, notificationID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if notificationID == "" {
		return fmt.Errorf("notification id is required")
	}

	key := notificationsKey(userID)
	raws, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}

	for i, raw := range raws {
		var notification model.Notification
		if err := json.Unmarshal([]byte(raw), &notification); err != nil {
			continue
		}
		if notification.ID != notificationID {
			continue
		}
		if notification.Read {
			return nil
		}
		notification.Read = true
		updated, err := json.Marshal(notification)
		if err != nil {
			return fmt.Errorf("encode notification: %w", err)
		}
		if err := r.client.LSet(ctx, key, int64(i), updated).Err(); err != nil {
			return fmt.Errorf("mark notification read: %w", err)
		}
		return nil
	}
	return fmt.Errorf("notification %s not found", notificationID)
}

// TryAcquire implements the per-user alert cooldown with SET NX.
func (r *NotificationRepo) TryAcquire(ctx context.Context, userID int64, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if userID <= 0 || ttl <= 0 {
		return false, fmt.Errorf("invalid cooldown payload")
	}

	acquired, err := r.client.SetNX(ctx, notifyCooldownPrefix+strconv.FormatInt(userID, 10), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire notify cooldown: %w", err)
	}
	return acquired, nil
}

func notificationsKey(userID int64) string {
	return notificationsPrefix + strconv.FormatInt(userID, 10)
}
