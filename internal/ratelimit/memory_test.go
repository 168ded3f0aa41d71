package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_BlocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter()
	key := AttemptKey("subject-1", "192.168.1.1")

	for i := 0; i < 5; i++ {
		blocked, err := limiter.TooManyAttempts(ctx, key, 5)
		if err != nil {
			t.Fatalf("TooManyAttempts failed: %v", err)
		}
		if blocked {
			t.Fatalf("attempt %d should not be blocked", i+1)
		}
		if err := limiter.Hit(ctx, key, time.Minute); err != nil {
			t.Fatalf("Hit failed: %v", err)
		}
	}

	blocked, err := limiter.TooManyAttempts(ctx, key, 5)
	if err != nil {
		t.Fatalf("TooManyAttempts failed: %v", err)
	}
	if !blocked {
		t.Error("6th attempt should be blocked after 5 failures")
	}
}

func TestMemoryLimiter_ClearResets(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter()
	key := AttemptKey("subject-1", "192.168.1.1")

	for i := 0; i < 5; i++ {
		limiter.Hit(ctx, key, time.Minute)
	}
	if err := limiter.Clear(ctx, key); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	blocked, _ := limiter.TooManyAttempts(ctx, key, 5)
	if blocked {
		t.Error("counter should be reset after Clear")
	}
}

func TestMemoryLimiter_WindowDecays(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter()
	key := AttemptKey("subject-1", "192.168.1.1")

	current := time.Now()
	limiter.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		limiter.Hit(ctx, key, 60*time.Second)
	}
	blocked, _ := limiter.TooManyAttempts(ctx, key, 5)
	if !blocked {
		t.Fatal("should be blocked inside the window")
	}

	// The window opens at the first failure; 61 seconds later it has decayed.
	current = current.Add(61 * time.Second)
	blocked, _ = limiter.TooManyAttempts(ctx, key, 5)
	if blocked {
		t.Error("counter should decay after the window elapses")
	}
}

func TestMemoryLimiter_WindowStartsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter()
	key := AttemptKey("subject-1", "192.168.1.1")

	current := time.Now()
	limiter.now = func() time.Time { return current }

	limiter.Hit(ctx, key, 60*time.Second)

	// Later hits do not extend the window.
	current = current.Add(30 * time.Second)
	for i := 0; i < 4; i++ {
		limiter.Hit(ctx, key, 60*time.Second)
	}

	current = current.Add(31 * time.Second)
	blocked, _ := limiter.TooManyAttempts(ctx, key, 5)
	if blocked {
		t.Error("window should be measured from the first failure")
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	limiter := NewMemoryLimiter()

	keyA := AttemptKey("subject-1", "192.168.1.1")
	keyB := AttemptKey("subject-2", "192.168.1.1")

	for i := 0; i < 5; i++ {
		limiter.Hit(ctx, keyA, time.Minute)
	}

	blocked, _ := limiter.TooManyAttempts(ctx, keyB, 5)
	if blocked {
		t.Error("counters must be scoped per key")
	}
}
