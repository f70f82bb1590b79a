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
	locationFixPrefix = "location:fix:"
	addressPrefix     = "location:address:"
)

// LocationRepo caches last known fixes and reverse-geocoded addresses.
// TTLs come from the caller so the freshness policy lives in one place.
type LocationRepo struct {
	client *goredis.Client
}

func NewLocationRepo(client *goredis.Client) *LocationRepo {
	return &LocationRepo{client: client}
}

func (r *LocationRepo) Get(ctx context.Context, userID int64) (*model.LocationFix, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	raw, err := r.client.Get(ctx, fixKey(userID)).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location fix: %w", err)
	}

	var fix model.LocationFix
	if err := json.Unmarshal([]byte(raw), &fix); err != nil {
		return nil, fmt.Errorf("decode location fix: %w", err)
	}
	return &fix, nil
}

func (r *LocationRepo) Put(ctx context.Context, userID int64, fix model.LocationFix, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID <= 0 || ttl <= 0 {
		return fmt.Errorf("invalid location fix payload")
	}

	raw, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("encode location fix: %w", err)
	}
	if err := r.client.Set(ctx, fixKey(userID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set location fix: %w", err)
	}
	return nil
}

// LastFix satisfies the alert dispatcher's location source.
func (r *LocationRepo) LastFix(ctx context.Context, userID int64) (*model.LocationFix, error) {
	return r.Get(ctx, userID)
}

// AddressRepo caches reverse-geocoded addresses keyed by rounded
// coordinates.
type AddressRepo struct {
	client *goredis.Client
}

func NewAddressRepo(client *goredis.Client) *AddressRepo {
	return &AddressRepo{client: client}
}

func (r *AddressRepo) Get(ctx context.Context, key string) (string, bool, error) {
	if r.client == nil {
		return "", false, fmt.Errorf("redis client is nil")
	}

	address, err := r.client.Get(ctx, addressPrefix+key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cached address: %w", err)
	}
	return address, true, nil
}

func (r *AddressRepo) Put(ctx context.Context, key, address string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if key == "" || address == "" || ttl <= 0 {
		return fmt.Errorf("invalid address cache payload")
	}
	if err := r.client.Set(ctx, addressPrefix+key, address, ttl).Err(); err != nil {
		return fmt.Errorf("set cached address: %w", err)
	}
	return nil
}

func fixKey(userID int64) string {
	return locationFixPrefix + strconv.FormatInt(userID, 10)
}
