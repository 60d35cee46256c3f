package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_Frozen(t *testing.T) {
	clock := NewManualClock(1_700_000_000_000)

	assert.Equal(t, int64(1_700_000_000_000), clock.NowMillis())
	assert.Equal(t, int64(1_700_000_000_000), clock.NowMillis())
}

func TestManualClock_Advance(t *testing.T) {
	clock := NewManualClock(1000)

	clock.Advance(5 * time.Millisecond)
	assert.Equal(t, int64(1005), clock.NowMillis())

	clock.Advance(-10 * time.Millisecond)
	assert.Equal(t, int64(995), clock.NowMillis())
}

func TestManualClock_Set(t *testing.T) {
	clock := NewManualClock(1000)
	clock.Set(42)
	assert.Equal(t, int64(42), clock.NowMillis())
	assert.Equal(t, time.UnixMilli(42), clock.Now())
}

func TestManualClock_ConcurrentAdvance(t *testing.T) {
	clock := NewManualClock(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), clock.NowMillis())
}
