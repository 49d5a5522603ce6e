package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestCache_CheckAndSet(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	seen, err := cache.CheckAndSet(ctx, "fp-1", time.Minute)
	if err != nil {
		t.Fatalf("CheckAndSet() error = %v", err)
	}
	if seen {
		t.Error("first sighting must report seen=false")
	}

	seen, err = cache.CheckAndSet(ctx, "fp-1", time.Minute)
	if err != nil {
		t.Fatalf("CheckAndSet() error = %v", err)
	}
	if !seen {
		t.Error("second sighting inside the window must report seen=true")
	}
}

func TestCache_Forget(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	if _, err := cache.CheckAndSet(ctx, "fp-1", time.Minute); err != nil {
		t.Fatalf("CheckAndSet() error = %v", err)
	}
	if err := cache.Forget(ctx, "fp-1"); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}

	seen, err := cache.CheckAndSet(ctx, "fp-1", time.Minute)
	if err != nil {
		t.Fatalf("CheckAndSet() error = %v", err)
	}
	if seen {
		t.Error("forgotten fingerprint must report seen=false")
	}
}

func TestCache_Expiry(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	if _, err := cache.CheckAndSet(ctx, "fp-1", 10*time.Millisecond); err != nil {
		t.Fatalf("CheckAndSet() error = %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	seen, err := cache.CheckAndSet(ctx, "fp-1", time.Minute)
	if err != nil {
		t.Fatalf("CheckAndSet() error = %v", err)
	}
	if seen {
		t.Error("expired fingerprint must report seen=false")
	}
}

func TestCache_ConcurrentCheckAndSet(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	const racers = 32
	var wg sync.WaitGroup
	firsts := make(chan bool, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen, err := cache.CheckAndSet(ctx, "fp-race", time.Minute)
			if err != nil {
				t.Errorf("CheckAndSet() error = %v", err)
				return
			}
			if !seen {
				firsts <- true
			}
		}()
	}
	wg.Wait()
	close(firsts)

	if got := len(firsts); got != 1 {
		t.Errorf("exactly one racer must observe seen=false, got %d", got)
	}
}
