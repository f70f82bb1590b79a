package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
	"github.com/Iornfire12211221/KNG-sub001/internal/domain/rules"
)

// IPFallbackAccuracyM marks an IP-derived fix as coarse so callers can
// distinguish precision tiers.
const IPFallbackAccuracyM = 10000

var ErrPermissionDenied = errors.New("location permission denied")

// FixCache stores last known fixes with the configured freshness window.
type FixCache interface {
	Get(ctx context.Context, userID int64) (*model.LocationFix, error)
	Put(ctx context.Context, userID int64, fix model.LocationFix, ttl time.Duration) error
}

// AddressCache stores resolved street addresses, keyed by rounded
// coordinates.
type AddressCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, address string, ttl time.Duration) error
}

// PermissionGate answers whether the subscriber granted location access.
type PermissionGate interface {
	Check(ctx context.Context, userID int64) (bool, error)
}

// Sensor acquires a live fix. Implementations must honor context
// cancellation; the resolver races every acquisition against a timeout.
type Sensor interface {
	Acquire(ctx context.Context, userID int64) (model.LocationFix, error)
}

// IPLocator estimates a coarse position from the caller's IP address.
type IPLocator interface {
	Locate(ctx context.Context, ip string) (model.LocationFix, error)
}

// Geocoder reverse-geocodes a coordinate into a street address.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

type Config struct {
	CacheFreshness   time.Duration
	AddressFreshness time.Duration
	MaxRetries       int
	AcquireTimeout   time.Duration
}

type Resolver struct {
	cache     FixCache
	addresses AddressCache
	gate      PermissionGate
	sensor    Sensor
	ip        IPLocator
	geocoder  Geocoder
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewResolver(cache FixCache, addresses AddressCache, gate PermissionGate, sensor Sensor, ip IPLocator, geocoder Geocoder, cfg Config, logger *zap.Logger) *Resolver {
	if cfg.CacheFreshness <= 0 {
		cfg.CacheFreshness = 5 * time.Minute
	}
	if cfg.AddressFreshness <= 0 {
		cfg.AddressFreshness = 24 * time.Hour
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		cache:     cache,
		addresses: addresses,
		gate:      gate,
		sensor:    sensor,
		ip:        ip,
		geocoder:  geocoder,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Resolve walks the fallback chain: cached fix, live sensor with retries
// and linear backoff, IP geolocation. A (nil, nil) return means the caller
// has no resolvable location; that outcome is not an error.
func (r *Resolver) Resolve(ctx context.Context, userID int64, clientIP string) (*model.LocationFix, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	if fix := r.cachedFix(ctx, userID); fix != nil {
		return fix, nil
	}

	granted := false
	if r.gate != nil {
		var err error
		granted, err = r.gate.Check(ctx, userID)
		if err != nil {
			r.logger.Warn("location permission check failed", zap.Error(err), zap.Int64("user_id", userID))
		}
	}

	if granted && r.sensor != nil {
		if fix := r.acquireWithRetries(ctx, userID); fix != nil {
			r.cacheFix(ctx, userID, *fix)
			return fix, nil
		}
	}

	return r.ipFallback(ctx, userID, clientIP)
}

func (r *Resolver) cachedFix(ctx context.Context, userID int64) *model.LocationFix {
	if r.cache == nil {
		return nil
	}
	fix, err := r.cache.Get(ctx, userID)
	if err != nil {
		r.logger.Warn("location cache read failed", zap.Error(err), zap.Int64("user_id", userID))
		return nil
	}
	if fix == nil || r.now().Sub(fix.Timestamp) > r.cfg.CacheFreshness {
		return nil
	}
	return fix
}

// acquireWithRetries races each sensor read against the acquire timeout
// and backs off linearly (attempt × 1s) between failures.
func (r *Resolver) acquireWithRetries(ctx context.Context, userID int64) *model.LocationFix {
	for attempt := 1; attempt <= r.cfg.MaxRetries; attempt++ {
		fix, err := r.acquireOnce(ctx, userID)
		if err == nil {
			return fix
		}
		r.logger.Debug("sensor acquisition failed",
			zap.Error(err), zap.Int64("user_id", userID), zap.Int("attempt", attempt))

		if attempt < r.cfg.MaxRetries {
			if err := r.sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
				return nil
			}
		}
	}
	return nil
}

func (r *Resolver) acquireOnce(ctx context.Context, userID int64) (*model.LocationFix, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, r.cfg.AcquireTimeout)
	defer cancel()

	type result struct {
		fix model.LocationFix
		err error
	}
	// buffered so a late sensor result never leaks a goroutine
	ch := make(chan result, 1)
	go func() {
		fix, err := r.sensor.Acquire(acquireCtx, userID)
		ch <- result{fix: fix, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		fix := res.fix
		fix.Source = model.FixSourceSensor
		if fix.Timestamp.IsZero() {
			fix.Timestamp = r.now().UTC()
		}
		return &fix, nil
	case <-acquireCtx.Done():
		return nil, acquireCtx.Err()
	}
}

func (r *Resolver) ipFallback(ctx context.Context, userID int64, clientIP string) (*model.LocationFix, error) {
	if r.ip == nil || strings.TrimSpace(clientIP) == "" {
		return nil, nil
	}

	fix, err := r.ip.Locate(ctx, clientIP)
	if err != nil {
		r.logger.Debug("ip geolocation failed", zap.Error(err), zap.Int64("user_id", userID))
		return nil, nil
	}

	fix.AccuracyM = IPFallbackAccuracyM
	fix.Source = model.FixSourceIP
	if fix.Timestamp.IsZero() {
		fix.Timestamp = r.now().UTC()
	}

	r.cacheFix(ctx, userID, fix)
	return &fix, nil
}

func (r *Resolver) cacheFix(ctx context.Context, userID int64, fix model.LocationFix) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, userID, fix, r.cfg.CacheFreshness); err != nil {
		r.logger.Warn("location cache write failed", zap.Error(err), zap.Int64("user_id", userID))
	}
}

// CacheFix stores an externally supplied fix (e.g. reported by the Mini
// App) so the dispatcher can use it for proximity checks.
func (r *Resolver) CacheFix(ctx context.Context, userID int64, fix model.LocationFix) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if err := rules.ValidateCoordinates(fix.Latitude, fix.Longitude); err != nil {
		return err
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = r.now().UTC()
	}
	if fix.Source == "" {
		fix.Source = model.FixSourceSensor
	}
	if r.cache == nil {
		return fmt.Errorf("location cache is nil")
	}
	return r.cache.Put(ctx, userID, fix, r.cfg.CacheFreshness)
}

// ResolveAddress reverse-geocodes a coordinate. Addresses change far more
// slowly than positions, so results are cached for 24 hours on an ~11 m
// grid (4 decimal places).
func (r *Resolver) ResolveAddress(ctx context.Context, lat, lon float64) (string, error) {
	if err := rules.ValidateCoordinates(lat, lon); err != nil {
		return "", err
	}

	key := addressKey(lat, lon)
	if r.addresses != nil {
		address, found, err := r.addresses.Get(ctx, key)
		if err != nil {
			r.logger.Warn("address cache read failed", zap.Error(err))
		} else if found {
			return address, nil
		}
	}

	if r.geocoder == nil {
		return "", fmt.Errorf("geocoder is not configured")
	}
	address, err := r.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}

	if r.addresses != nil {
		if err := r.addresses.Put(ctx, key, address, r.cfg.AddressFreshness); err != nil {
			r.logger.Warn("address cache write failed", zap.Error(err))
		}
	}
	return address, nil
}

func addressKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f:%.4f", rules.RoundCoordinate(lat), rules.RoundCoordinate(lon))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
