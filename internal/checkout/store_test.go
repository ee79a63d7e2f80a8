package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/luvwish-checkout/pkg/redis"
	"github.com/angelmondragon/luvwish-checkout/pkg/types"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	redisStore, err := NewRedisStore(redis.NewInMemory(), time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	return map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  redisStore,
	}
}

func TestStoreLoadReturnsFreshSession(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sess, err := store.Load(context.Background(), "user-1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if sess.Stage != StageCart || sess.UserID != "user-1" {
				t.Fatalf("unexpected fresh session %+v", sess)
			}
			if _, err := store.Load(context.Background(), " "); err == nil {
				t.Fatal("expected error for blank user id")
			}
		})
	}
}

func TestStoreUpdateIsAtomic(t *testing.T) {
	const writers = 25
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := store.Update(ctx, "user-1", func(s *Session) error {
						s.Candidates = append(s.Candidates, Persisted(types.Address{ID: fmt.Sprintf("addr-%d", i)}))
						return nil
					})
					if err != nil {
						t.Errorf("Update: %v", err)
					}
				}(i)
			}
			wg.Wait()

			sess, err := store.Load(ctx, "user-1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(sess.Candidates) != writers {
				t.Fatalf("expected %d candidates, got %d", writers, len(sess.Candidates))
			}
		})
	}
}

func TestStoreUpdateErrorLeavesSessionUntouched(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			boom := fmt.Errorf("boom")
			_, err := store.Update(ctx, "user-1", func(s *Session) error {
				s.Stage = StagePayment
				return boom
			})
			require.ErrorIs(t, err, boom)

			sess, err := store.Load(ctx, "user-1")
			require.NoError(t, err)
			require.Equal(t, StageCart, sess.Stage)
		})
	}
}

func TestMemoryStoreLoadReturnsCopy(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	_, err := store.Update(ctx, "user-1", func(s *Session) error {
		s.Candidates = append(s.Candidates, Persisted(types.Address{ID: "addr-1"}))
		return nil
	})
	require.NoError(t, err)

	sess, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	sess.Candidates[0] = Pending(types.Address{ID: "orderaddr-x"})

	again, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "addr-1", again.Candidates[0].ID())
}

func TestMemoryStoreExpiresIdleSessions(t *testing.T) {
	store := NewMemoryStore(time.Minute).(*memoryStore)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := store.Update(ctx, "user-1", func(s *Session) error {
		s.Stage = StageDelivery
		return nil
	})
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	sess, err := store.Load(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, StageCart, sess.Stage)
}

func TestRedisStoreWaitsForLock(t *testing.T) {
	client := redis.NewInMemory()
	store := newRedisStore(client, time.Hour)
	ctx := context.Background()

	held, err := client.SetNX(ctx, client.SessionLockKey("user-1"), "someone-else", time.Second)
	require.NoError(t, err)
	require.True(t, held)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = client.Del(ctx, client.SessionLockKey("user-1"))
	}()

	sess, err := store.Update(ctx, "user-1", func(s *Session) error {
		s.Stage = StageDelivery
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, StageDelivery, sess.Stage)
}

func TestRedisStoreHonorsCancellation(t *testing.T) {
	client := redis.NewInMemory()
	store := newRedisStore(client, time.Hour)

	_, err := client.SetNX(context.Background(), client.SessionLockKey("user-1"), "someone-else", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = store.Update(ctx, "user-1", func(*Session) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCandidateJSONKeepsKind(t *testing.T) {
	in := []Candidate{
		Persisted(types.Address{ID: "addr-1"}),
		Pending(types.Address{ID: "orderaddr-1"}),
	}
	payload, err := json.Marshal(in)
	require.NoError(t, err)
	require.Contains(t, string(payload), `"kind":"pending"`)
	require.Contains(t, string(payload), `"durable":true`)

	var out []Candidate
	require.NoError(t, json.Unmarshal(payload, &out))
	require.True(t, out[0].IsDurable())
	require.True(t, out[1].IsPending())
	require.False(t, out[1].IsDurable())

	var bad Candidate
	require.Error(t, json.Unmarshal([]byte(`{"kind":"draft"}`), &bad))
	_, err = json.Marshal(Candidate{})
	require.Error(t, err)
}

func TestReselectPrefersDefault(t *testing.T) {
	sess := newSession("user-1")
	sess.mergeCandidates([]types.Address{
		{ID: "addr-1"},
		{ID: "addr-2", IsDefault: true},
	})
	require.Equal(t, "addr-2", sess.SelectedAddressID)

	sess.SelectedAddressID = "addr-1"
	sess.mergeCandidates([]types.Address{{ID: "addr-1"}, {ID: "addr-2", IsDefault: true}})
	require.Equal(t, "addr-1", sess.SelectedAddressID, "existing selection is kept")

	sess.removeCandidate("addr-1")
	require.Equal(t, "addr-2", sess.SelectedAddressID)
}
