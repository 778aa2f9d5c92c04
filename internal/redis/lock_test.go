package redisclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLockerReleasesKey(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, 5*time.Second, 0)

	err := locker.WithLock(context.Background(), "slot:a", func(ctx context.Context) error {
		assert.True(t, mr.Exists("lock:slot:a"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("lock:slot:a"))
}

func TestRedisLockerFailsFastWhenHeld(t *testing.T) {
	mr, client := newTestRedis(t)
	require.NoError(t, mr.Set("lock:slot:a", "someone-else"))

	locker := NewRedisLocker(client, 5*time.Second, 0)
	called := false
	err := locker.WithLock(context.Background(), "slot:a", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.False(t, called)

	got, _ := mr.Get("lock:slot:a")
	assert.Equal(t, "someone-else", got, "foreign lock must not be released")
}

func TestRedisLockerWaitsForRelease(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisLocker(client, 5*time.Second, 2*time.Second)

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), ConversationKey("c1"), func(ctx context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxActive)
}

func TestLocalLockerSerializesPerKey(t *testing.T) {
	locker := NewLocalLocker(time.Second)

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locker.WithLock(context.Background(), "k", func(ctx context.Context) error {
				n := atomic.AddInt32(&active, 1)
				if n > atomic.LoadInt32(&maxActive) {
					atomic.StoreInt32(&maxActive, n)
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxActive)
	assert.Empty(t, locker.locks)
}

func TestLocalLockerFailFast(t *testing.T) {
	locker := NewLocalLocker(0)
	inside := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = locker.WithLock(context.Background(), "k", func(ctx context.Context) error {
			close(inside)
			<-done
			return nil
		})
	}()
	<-inside

	err := locker.WithLock(context.Background(), "k", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	err = locker.WithLock(context.Background(), "other", func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
	close(done)
}

func TestSlotKey(t *testing.T) {
	id := uuid.MustParse("6f1c2f44-8d7e-4a53-9a57-4f8f0e5b1c11")
	start := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "slot:6f1c2f44-8d7e-4a53-9a57-4f8f0e5b1c11:2025-03-04T10:00", SlotKey(id, start))
}
