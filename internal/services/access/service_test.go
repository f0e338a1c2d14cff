package access

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	pgrepo "github.com/joinua/JR-Foxy/internal/repo/postgres"
	redrepo "github.com/joinua/JR-Foxy/internal/repo/redis"
)

type fakeAdminStore struct {
	levels   map[int64]int
	getCalls int
}

func (f *fakeAdminStore) Upsert(_ context.Context, userID int64, _, _, _ string) error {
	if _, ok := f.levels[userID]; !ok {
		f.levels[userID] = 1
	}
	return nil
}

func (f *fakeAdminStore) SetLevel(_ context.Context, userID int64, level int) (bool, error) {
	if _, ok := f.levels[userID]; !ok {
		return false, nil
	}
	f.levels[userID] = level
	return true, nil
}

func (f *fakeAdminStore) Delete(_ context.Context, userID int64) (bool, error) {
	if _, ok := f.levels[userID]; !ok {
		return false, nil
	}
	delete(f.levels, userID)
	return true, nil
}

func (f *fakeAdminStore) GetLevel(_ context.Context, userID int64) (int, error) {
	f.getCalls++
	return f.levels[userID], nil
}

func (f *fakeAdminStore) List(_ context.Context) ([]pgrepo.AdminRecord, error) {
	return nil, nil
}

func newCacheForTest(t *testing.T) *redrepo.LevelsCache {
	t.Helper()

	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return redrepo.NewLevelsCache(client, time.Minute)
}

func TestGetLevelCachesStoreReads(t *testing.T) {
	store := &fakeAdminStore{levels: map[int64]int{10: 3}}
	svc := NewService(store, newCacheForTest(t), nil)

	ctx := context.Background()

	for i := 0; i < 3; i++ {
		level, err := svc.GetLevel(ctx, 10)
		if err != nil {
			t.Fatalf("get level #%d: %v", i+1, err)
		}
		if level != 3 {
			t.Fatalf("unexpected level: %d", level)
		}
	}

	if store.getCalls != 1 {
		t.Fatalf("expected one store read behind the cache, got %d", store.getCalls)
	}
}

func TestSetLevelInvalidatesCache(t *testing.T) {
	store := &fakeAdminStore{levels: map[int64]int{10: 1}}
	svc := NewService(store, newCacheForTest(t), nil)

	ctx := context.Background()

	if _, err := svc.GetLevel(ctx, 10); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	updated, err := svc.SetLevel(ctx, 10, 4)
	if err != nil {
		t.Fatalf("set level: %v", err)
	}
	if !updated {
		t.Fatalf("expected update to apply")
	}

	level, err := svc.GetLevel(ctx, 10)
	if err != nil {
		t.Fatalf("get level after update: %v", err)
	}
	if level != 4 {
		t.Fatalf("expected fresh level 4, got %d", level)
	}
}

func TestSetLevelRejectsOutOfRange(t *testing.T) {
	store := &fakeAdminStore{levels: map[int64]int{10: 1}}
	svc := NewService(store, nil, nil)

	for _, level := range []int{0, -1, 5, 100} {
		if _, err := svc.SetLevel(context.Background(), 10, level); err == nil {
			t.Fatalf("expected error for level %d", level)
		}
	}
}

func TestGetLevelForUnknownUserIsZero(t *testing.T) {
	store := &fakeAdminStore{levels: map[int64]int{}}
	svc := NewService(store, nil, nil)

	level, err := svc.GetLevel(context.Background(), 99)
	if err != nil {
		t.Fatalf("get level: %v", err)
	}
	if level != LevelNone {
		t.Fatalf("expected level 0 for unknown user, got %d", level)
	}
}

func TestBootstrapOwner(t *testing.T) {
	store := &fakeAdminStore{levels: map[int64]int{}}
	svc := NewService(store, nil, nil)

	if err := svc.BootstrapOwner(context.Background(), 777); err != nil {
		t.Fatalf("bootstrap owner: %v", err)
	}

	level, err := svc.GetLevel(context.Background(), 777)
	if err != nil {
		t.Fatalf("get owner level: %v", err)
	}
	if level != LevelOwner {
		t.Fatalf("expected owner level %d, got %d", LevelOwner, level)
	}
}
