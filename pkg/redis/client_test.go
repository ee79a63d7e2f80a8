package redis

import (
	"context"
	"testing"
	"time"
)

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.GuardLockKey("user-1", "line-9"); got != "lw:guard:user-1:lock:line-9" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.GuardBusyKey("user-1"); got != "lw:guard:user-1:busy" {
		t.Fatalf("unexpected busy key %s", got)
	}
	if got := client.SessionKey("user-1"); got != "lw:session:user-1" {
		t.Fatalf("unexpected session key %s", got)
	}
	if got := client.GuardLockKey("user-1", ""); got != "lw:guard:user-1:lock" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestReleaseIfOwner(t *testing.T) {
	ctx := context.Background()
	client := NewInMemory()

	ok, err := client.SetNX(ctx, "k", "token-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, "k", "token-b", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, ok=%v err=%v", ok, err)
	}

	released, err := client.ReleaseIfOwner(ctx, "k", "token-b")
	if err != nil || released {
		t.Fatalf("non-owner must not release, released=%v err=%v", released, err)
	}
	released, err = client.ReleaseIfOwner(ctx, "k", "token-a")
	if err != nil || !released {
		t.Fatalf("owner should release, released=%v err=%v", released, err)
	}
	if _, err := client.Get(ctx, "k"); !IsNil(err) {
		t.Fatalf("expected redis.Nil after release, got %v", err)
	}
}

func TestMemoryStoreExpiresKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newMemoryStore(func() time.Time { return now })
	client := &Client{store: store}

	if err := client.Set(ctx, "k", "v", time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := client.Get(ctx, "k"); !IsNil(err) {
		t.Fatalf("expected expired key to be gone, got %v", err)
	}
	ok, err := client.SetNX(ctx, "k", "v2", 0)
	if err != nil || !ok {
		t.Fatalf("expected SetNX to succeed after expiry, ok=%v err=%v", ok, err)
	}
}

func TestSetMembership(t *testing.T) {
	ctx := context.Background()
	client := NewInMemory()

	if err := client.AddMember(ctx, "busy", time.Minute, "b", "a"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	members, err := client.Members(ctx, "busy")
	if err != nil {
		t.Fatalf("members failed: %v", err)
	}
	if len(members) != 2 || members[0] != "a" || members[1] != "b" {
		t.Fatalf("unexpected members %v", members)
	}
	if err := client.RemoveMember(ctx, "busy", "a", "b"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	members, err = client.Members(ctx, "busy")
	if err != nil || len(members) != 0 {
		t.Fatalf("expected empty set, got %v err=%v", members, err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close should be a no-op, got %v", err)
	}
}
