package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Iornfire12211221/KNG-sub001/internal/domain/model"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestLocationRepoFixRoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewLocationRepo(client)
	ctx := context.Background()

	fix := model.LocationFix{
		Latitude:  59.3733,
		Longitude: 28.6134,
		AccuracyM: 25,
		Source:    model.FixSourceSensor,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.Put(ctx, 42, fix, 5*time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := repo.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Latitude != fix.Latitude || got.Source != fix.Source {
		t.Fatalf("fix mismatch: %+v", got)
	}

	mr.FastForward(6 * time.Minute)
	expired, err := repo.Get(ctx, 42)
	if err != nil {
		t.Fatalf("get after ttl: %v", err)
	}
	if expired != nil {
		t.Fatalf("fix survived ttl: %+v", expired)
	}
}

func TestLocationRepoMissReturnsNil(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewLocationRepo(client)

	got, err := repo.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil on miss, got %+v", got)
	}
}

func TestAddressRepoRoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewAddressRepo(client)
	ctx := context.Background()

	if err := repo.Put(ctx, "59.3733:28.6134", "Крикковское шоссе, Кингисепп", 24*time.Hour); err != nil {
		t.Fatalf("put: %v", err)
	}

	address, found, err := repo.Get(ctx, "59.3733:28.6134")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !found || address == "" {
		t.Fatalf("expected cached address, found=%v address=%q", found, address)
	}

	mr.FastForward(25 * time.Hour)
	_, found, err = repo.Get(ctx, "59.3733:28.6134")
	if err != nil {
		t.Fatalf("get after ttl: %v", err)
	}
	if found {
		t.Fatal("address survived ttl")
	}
}
