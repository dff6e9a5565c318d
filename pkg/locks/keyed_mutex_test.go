package locks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
)

func TestKeyedMutex_SameKeySerialises(t *testing.T) {
	locker := NewKeyedMutex(time.Second, nil)
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "item:a")
			if !assert.NoError(t, err) {
				return
			}
			defer release()
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, locker.Len(), "idle slots should be reclaimed")
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	locker := NewKeyedMutex(50*time.Millisecond, nil)
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "item:a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(ctx, "item:b")
	require.NoError(t, err)
	releaseB()
}

func TestKeyedMutex_TimeoutIsBusy(t *testing.T) {
	locker := NewKeyedMutex(20*time.Millisecond, nil)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "item:a")
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(ctx, "item:a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrBusy))
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestKeyedMutex_ContextCancelIsBusy(t *testing.T) {
	locker := NewKeyedMutex(0, nil)
	release, err := locker.Acquire(context.Background(), "item:a")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "item:a")
	assert.True(t, errors.Is(err, pkgerrors.ErrBusy))
	assert.Equal(t, 1, locker.Len())
}

func TestKeyedMutex_ReleaseIsIdempotent(t *testing.T) {
	locker := NewKeyedMutex(20*time.Millisecond, nil)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "item:a")
	require.NoError(t, err)
	release()
	release()

	again, err := locker.Acquire(ctx, "item:a")
	require.NoError(t, err)
	again()
	assert.Equal(t, 0, locker.Len())
}

func TestItemKey(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	assert.Equal(t, "item:11111111-2222-3333-4444-555555555555", ItemKey(id))
}

func TestWith_ReleasesAfterError(t *testing.T) {
	locker := NewKeyedMutex(20*time.Millisecond, nil)
	boom := errors.New("boom")

	err := With(context.Background(), locker, "item:a", func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, locker.Len())

	ran := false
	require.NoError(t, With(context.Background(), locker, "item:a", func() error {
		ran = true
		return nil
	}))
	assert.True(t, ran)
}
