package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trimlink/trimlink/internal/cache/cachetest"
)

func TestLock_AcquireRelease(t *testing.T) {
	t.Parallel()

	client := cachetest.New()
	lock := NewLock(client, CronLockKey)

	held, err := lock.Acquire(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !held {
		t.Fatal("expected to win an uncontended lock")
	}
	if _, ok := client.Value(CronLockKey); !ok {
		t.Fatal("expected lock key to exist while held")
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok := client.Value(CronLockKey); ok {
		t.Fatal("expected lock key to be gone after release")
	}
}

func TestLock_SecondAcquirerLoses(t *testing.T) {
	t.Parallel()

	client := cachetest.New()
	first := NewLock(client, CronLockKey)
	second := NewLock(client, CronLockKey)

	held, err := first.Acquire(context.Background(), time.Minute)
	if err != nil || !held {
		t.Fatalf("first acquire: held=%v err=%v", held, err)
	}

	held, err = second.Acquire(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if held {
		t.Fatal("second acquirer must lose while the lock is held")
	}
}

func TestLock_ConcurrentAcquireSingleWinner(t *testing.T) {
	t.Parallel()

	const instances = 16
	client := cachetest.New()

	var (
		start sync.WaitGroup
		done  sync.WaitGroup
		wins  atomic.Int64
	)
	start.Add(1)
	for i := 0; i < instances; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			lock := NewLock(client, CronLockKey)
			start.Wait()
			held, err := lock.Acquire(context.Background(), time.Minute)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			if held {
				wins.Add(1)
			}
		}()
	}
	start.Done()
	done.Wait()

	if got := wins.Load(); got != 1 {
		t.Fatalf("%d instances won the lock, want exactly 1", got)
	}
}

func TestLock_ReleaseWithoutTokenIsNoop(t *testing.T) {
	t.Parallel()

	client := cachetest.New()
	lock := NewLock(client, CronLockKey)

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release of unheld lock must be a no-op: %v", err)
	}
}

func TestLock_ReleaseDoesNotDeleteForeignLock(t *testing.T) {
	t.Parallel()

	client := cachetest.New()
	loser := NewLock(client, CronLockKey)
	winner := NewLock(client, CronLockKey)

	if held, err := winner.Acquire(context.Background(), time.Minute); err != nil || !held {
		t.Fatalf("winner acquire: held=%v err=%v", held, err)
	}
	if held, _ := loser.Acquire(context.Background(), time.Minute); held {
		t.Fatal("loser should not have acquired")
	}

	// The loser never held the lock, so its release must leave the
	// winner's key in place.
	if err := loser.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok := client.Value(CronLockKey); !ok {
		t.Fatal("winner's lock must survive a loser's release")
	}
}

func TestLock_ReacquireAfterRelease(t *testing.T) {
	t.Parallel()

	client := cachetest.New()
	lock := NewLock(client, CronLockKey)

	if held, err := lock.Acquire(context.Background(), time.Minute); err != nil || !held {
		t.Fatalf("acquire: held=%v err=%v", held, err)
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}

	held, err := lock.Acquire(context.Background(), time.Minute)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if !held {
		t.Fatal("expected to reacquire after release")
	}
}
