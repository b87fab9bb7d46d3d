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

func TestLocalSerialisesSameKey(t *testing.T) {
	l := NewLocal()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Obtain(context.Background(), "allocation:a:b")
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, l.entries)
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	releaseA, err := l.Obtain(context.Background(), "a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := l.Obtain(context.Background(), "b")
	require.NoError(t, err)
	releaseB()
}

func TestLocalHonoursContext(t *testing.T) {
	l := NewLocal()
	release, err := l.Obtain(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Obtain(ctx, "k")
	assert.ErrorIs(t, err, ErrNotObtained)

	release()
	release() // second call is a no-op

	again, err := l.Obtain(context.Background(), "k")
	require.NoError(t, err)
	again()
}
