package guard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/luvwish-checkout/pkg/redis"
)

func implementations(policy Policy) map[string]Guard {
	return map[string]Guard{
		"memory": NewMemory(policy),
		"redis":  newRedisGuard(redis.NewInMemory(), policy, time.Minute),
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != PolicyPerLine {
		t.Fatalf("expected default per_line, got %q err=%v", p, err)
	}
	if p, err := ParsePolicy(" GLOBAL "); err != nil || p != PolicyGlobal {
		t.Fatalf("expected global, got %q err=%v", p, err)
	}
	if _, err := ParsePolicy("random"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestPerLineRejectsSameLineOnly(t *testing.T) {
	ctx := context.Background()
	for name, g := range implementations(PolicyPerLine) {
		t.Run(name, func(t *testing.T) {
			if ok, err := g.Begin(ctx, "user-1", "line-a"); err != nil || !ok {
				t.Fatalf("first begin should win, ok=%v err=%v", ok, err)
			}
			if ok, err := g.Begin(ctx, "user-1", "line-a"); err != nil || ok {
				t.Fatalf("second begin on same line must be rejected, ok=%v err=%v", ok, err)
			}
			if ok, err := g.Begin(ctx, "user-1", "line-b"); err != nil || !ok {
				t.Fatalf("other line should be allowed, ok=%v err=%v", ok, err)
			}
			if ok, err := g.Begin(ctx, "user-2", "line-a"); err != nil || !ok {
				t.Fatalf("other scope should be allowed, ok=%v err=%v", ok, err)
			}

			busy, err := g.InFlight(ctx, "user-1")
			if err != nil {
				t.Fatalf("in flight: %v", err)
			}
			if len(busy) != 2 || busy[0] != "line-a" || busy[1] != "line-b" {
				t.Fatalf("unexpected busy lines %v", busy)
			}

			if err := g.End(ctx, "user-1", "line-a"); err != nil {
				t.Fatalf("end: %v", err)
			}
			if ok, err := g.Begin(ctx, "user-1", "line-a"); err != nil || !ok {
				t.Fatalf("line should be free after end, ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestGlobalRejectsAnyLine(t *testing.T) {
	ctx := context.Background()
	for name, g := range implementations(PolicyGlobal) {
		t.Run(name, func(t *testing.T) {
			if ok, _ := g.Begin(ctx, "user-1", "line-a"); !ok {
				t.Fatal("first begin should win")
			}
			if ok, _ := g.Begin(ctx, "user-1", "line-b"); ok {
				t.Fatal("global policy must reject a second line")
			}
			if err := g.End(ctx, "user-1", "line-a"); err != nil {
				t.Fatalf("end: %v", err)
			}
			if ok, _ := g.Begin(ctx, "user-1", "line-b"); !ok {
				t.Fatal("slot should be free after end")
			}
		})
	}
}

func TestConcurrentBeginAdmitsOne(t *testing.T) {
	ctx := context.Background()
	for name, g := range implementations(PolicyPerLine) {
		t.Run(name, func(t *testing.T) {
			var (
				wg       sync.WaitGroup
				admitted int32
				start    = make(chan struct{})
			)
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					ok, err := g.Begin(ctx, "user-1", "line-a")
					if err != nil {
						t.Errorf("begin: %v", err)
						return
					}
					if ok {
						atomic.AddInt32(&admitted, 1)
					}
				}()
			}
			close(start)
			wg.Wait()
			if admitted != 1 {
				t.Fatalf("expected exactly one admitted mutation, got %d", admitted)
			}
		})
	}
}

func TestBeginValidatesArguments(t *testing.T) {
	g := NewMemory(PolicyPerLine)
	if _, err := g.Begin(context.Background(), "", "line"); err == nil {
		t.Fatal("expected error for empty scope")
	}
	if _, err := g.Begin(context.Background(), "user", " "); err == nil {
		t.Fatal("expected error for empty line id")
	}
}

func TestRedisLockExpires(t *testing.T) {
	ctx := context.Background()
	g := newRedisGuard(redis.NewInMemory(), PolicyPerLine, 20*time.Millisecond)
	if ok, _ := g.Begin(ctx, "user-1", "line-a"); !ok {
		t.Fatal("first begin should win")
	}
	time.Sleep(40 * time.Millisecond)
	if ok, _ := g.Begin(ctx, "user-1", "line-a"); !ok {
		t.Fatal("expired lock should not block the line")
	}
}
