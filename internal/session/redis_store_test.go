package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStoreWithClient(client), mr
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	hash := "abc123"
	if err := s.SaveRefreshSession(ctx, hash, "usr_1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}

	user, err := s.LookupRefreshSession(ctx, hash)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if user.ID != "usr_1" {
		t.Fatalf("expected usr_1, got %q", user.ID)
	}
}

func TestLookupUnknownTokenFails(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.LookupRefreshSession(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown token")
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	hash := "revoke-me"
	if err := s.SaveRefreshSession(ctx, hash, "usr_2", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.RevokeRefreshSession(ctx, hash); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := s.LookupRefreshSession(ctx, hash); err == nil {
		t.Fatalf("expected revoked token to be gone")
	}
}

func TestRefreshSessionExpires(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	hash := "short-lived"
	if err := s.SaveRefreshSession(ctx, hash, "usr_3", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := s.LookupRefreshSession(ctx, hash); err == nil {
		t.Fatalf("expected expired token to be gone")
	}
}

func TestPastExpiryGetsDefaultTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	hash := "already-expired"
	if err := s.SaveRefreshSession(ctx, hash, "usr_4", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A non-positive TTL falls back to 30 days rather than erroring.
	mr.FastForward(time.Hour)
	if _, err := s.LookupRefreshSession(ctx, hash); err != nil {
		t.Fatalf("expected token still present under default TTL, got %v", err)
	}
}
