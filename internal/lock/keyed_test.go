package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyed_SerializesSameKey(t *testing.T) {
	k := NewKeyed()
	ctx := context.Background()

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := k.Lock(ctx, "/ws")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak)
	assert.Equal(t, 0, k.Len(), "slots are dropped once idle")
}

func TestKeyed_IndependentKeys(t *testing.T) {
	k := NewKeyed()
	ctx := context.Background()

	unlockA, err := k.Lock(ctx, "/a")
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := k.Lock(ctx, "/b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on /b blocked behind /a")
	}
}

func TestKeyed_CleanedKeys(t *testing.T) {
	k := NewKeyed()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	unlock, err := k.Lock(context.Background(), "/ws/")
	require.NoError(t, err)
	defer unlock()

	_, err = k.Lock(ctx, "/ws")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeyed_ContextCancelWhileWaiting(t *testing.T) {
	k := NewKeyed()

	unlock, err := k.Lock(context.Background(), "/ws")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = k.Lock(ctx, "/ws")
	assert.ErrorIs(t, err, context.Canceled)

	unlock()
	unlock() // idempotent
	assert.Equal(t, 0, k.Len())
}
