package semaphore

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zrepl/wsema/logger"
)

const eventuallyTimeout = 5 * time.Second

func waitForWaiters(t *testing.T, sem *Weighted, n int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		return sem.Stats().Waiters == n
	}, eventuallyTimeout, time.Millisecond, "expecting %d waiters, have %s", n, sem)
}

func acquireAsync(sem *Weighted, weight int64) <-chan *AcquireGuard {
	c := make(chan *AcquireGuard, 1)
	go func() {
		c <- sem.Acquire(weight)
	}()
	return c
}

func requireNotAcquired(t *testing.T, c <-chan *AcquireGuard) {
	t.Helper()
	select {
	case g := <-c:
		t.Fatalf("acquisition of weight %d must still be blocked", g.Weight())
	case <-time.After(20 * time.Millisecond):
	}
}

func requireAcquired(t *testing.T, c <-chan *AcquireGuard) *AcquireGuard {
	t.Helper()
	select {
	case g := <-c:
		require.Equal(t, StateHeld, g.State())
		return g
	case <-time.After(eventuallyTimeout):
		t.Fatal("acquisition did not unblock")
		return nil
	}
}

func TestSemaphore(t *testing.T) {
	const numGoroutines = 10
	const concurrentSemaphore = 6
	const sleepTime = 300 * time.Millisecond

	begin := time.Now()

	sem := NewWithParams(Params{Capacity: concurrentSemaphore, Log: logger.NewTestLogger(t)})

	var acquisitions struct {
		beforeT, afterT uint32
	}

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			res := sem.Acquire(1)
			defer res.Release()
			if time.Since(begin) > sleepTime {
				atomic.AddUint32(&acquisitions.afterT, 1)
			} else {
				atomic.AddUint32(&acquisitions.beforeT, 1)
			}
			time.Sleep(sleepTime)
		}()
	}

	wg.Wait()

	assert.Equal(t, uint32(concurrentSemaphore), acquisitions.beforeT)
	assert.Equal(t, uint32(numGoroutines-concurrentSemaphore), acquisitions.afterT)
	assert.Equal(t, int64(0), sem.Stats().Outstanding)
}

func TestCapacityInvariant(t *testing.T) {
	const capacity = 7
	const numGoroutines = 50
	const rounds = 20

	sem := New(capacity)

	var held, maxHeld int64
	observe := func(delta int64) {
		now := atomic.AddInt64(&held, delta)
		for {
			max := atomic.LoadInt64(&maxHeld)
			if now <= max || atomic.CompareAndSwapInt64(&maxHeld, max, now) {
				return
			}
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for r := 0; r < rounds; r++ {
				weight := 1 + rng.Int63n(capacity)
				g := sem.Acquire(weight)
				observe(weight)
				if st := sem.Stats(); st.Outstanding < 0 || st.Outstanding > capacity {
					t.Errorf("outstanding out of bounds: %s", st)
				}
				time.Sleep(time.Duration(rng.Intn(100)) * time.Microsecond)
				observe(-weight)
				g.Release()
			}
		}(int64(i))
	}
	wg.Wait()

	assert.LessOrEqual(t, maxHeld, int64(capacity))
	assert.Equal(t, Stats{Capacity: capacity}, sem.Stats())
}

func TestReleaseUnblocksWaiter(t *testing.T) {
	sem := New(3)

	guards := make([]*AcquireGuard, 3)
	var wg sync.WaitGroup
	for i := range guards {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			guards[i] = sem.Acquire(1)
		}(i)
	}
	wg.Wait()
	require.Equal(t, int64(3), sem.Stats().Outstanding)

	fourth := acquireAsync(sem, 1)
	waitForWaiters(t, sem, 1)
	requireNotAcquired(t, fourth)

	guards[0].Release()
	g4 := requireAcquired(t, fourth)
	assert.Equal(t, int64(3), sem.Stats().Outstanding)
	assert.Equal(t, int64(0), sem.Stats().Waiters)

	guards[1].Release()
	guards[2].Release()
	g4.Release()
	assert.Equal(t, int64(0), sem.Stats().Outstanding)
}

func TestFullWeightBlocksSmallRequest(t *testing.T) {
	sem := New(3)

	big := sem.Acquire(3)
	require.Equal(t, int64(3), sem.Stats().Outstanding)

	small := acquireAsync(sem, 1)
	waitForWaiters(t, sem, 1)
	requireNotAcquired(t, small)

	big.Release()
	g := requireAcquired(t, small)
	assert.Equal(t, int64(1), sem.Stats().Outstanding)
	g.Release()
	assert.Equal(t, int64(0), sem.Stats().Outstanding)
}

func TestReleaseWakesAllWaitersThatFit(t *testing.T) {
	sem := New(3)

	big := sem.Acquire(3)
	a := acquireAsync(sem, 1)
	b := acquireAsync(sem, 2)
	waitForWaiters(t, sem, 2)

	// a single release must be able to satisfy more than one waiter
	big.Release()
	ga := requireAcquired(t, a)
	gb := requireAcquired(t, b)
	assert.Equal(t, Stats{Capacity: 3, Outstanding: 3}, sem.Stats())
	ga.Release()
	gb.Release()
}

func TestWaiterNeedsAggregateOfReleases(t *testing.T) {
	sem := New(3)

	small := []*AcquireGuard{sem.Acquire(1), sem.Acquire(1), sem.Acquire(1)}
	big := acquireAsync(sem, 3)
	waitForWaiters(t, sem, 1)

	small[0].Release()
	requireNotAcquired(t, big)
	small[1].Release()
	requireNotAcquired(t, big)
	small[2].Release()

	g := requireAcquired(t, big)
	assert.Equal(t, int64(3), sem.Stats().Outstanding)
	g.Release()
}

func TestAcquireOverCapacityPanicsWithoutBlocking(t *testing.T) {
	for capacity := int64(1); capacity <= 5; capacity++ {
		capacity := capacity
		t.Run(fmt.Sprintf("capacity=%d", capacity), func(t *testing.T) {
			sem := New(capacity)
			// hold everything so that a blocking implementation would hang
			g := sem.Acquire(capacity)
			defer g.Release()

			done := make(chan interface{})
			go func() {
				defer func() { done <- recover() }()
				sem.Acquire(capacity + 1)
			}()

			select {
			case r := <-done:
				err, ok := r.(error)
				require.True(t, ok, "panic value must be an error, got %T", r)
				var oce *OverCapacityError
				require.True(t, errors.As(err, &oce))
				assert.Equal(t, &OverCapacityError{Op: "acquire", Weight: capacity + 1, Capacity: capacity}, oce)
			case <-time.After(eventuallyTimeout):
				t.Fatal("over-capacity acquire blocked")
			}
			assert.Equal(t, Stats{Capacity: capacity, Outstanding: capacity}, sem.Stats())
		})
	}
}

func TestAcquireOverCapacityScenario(t *testing.T) {
	sem := New(3)
	assert.PanicsWithError(t, "semaphore: acquire: weight 5 exceeds capacity 3", func() {
		sem.Acquire(5)
	})
	assert.Equal(t, int64(0), sem.Stats().Outstanding)
}

func TestAcquireNonPositiveWeightPanics(t *testing.T) {
	sem := New(3)
	assert.PanicsWithError(t, "semaphore: acquire: weight must be positive, got 0", func() {
		sem.Acquire(0)
	})
	assert.Panics(t, func() { sem.Acquire(-1) })
}

func TestNewInvalidCapacityPanics(t *testing.T) {
	assert.PanicsWithError(t, "semaphore: capacity must be at least 1, got 0", func() {
		New(0)
	})
	assert.NotPanics(t, func() { New(1) })
}

func TestReleaseOverCapacityPanics(t *testing.T) {
	sem := New(2)
	g := &AcquireGuard{s: sem, weight: 3, state: StateHeld}
	assert.PanicsWithError(t, "semaphore: release: weight 3 exceeds capacity 2", g.Release)
}

func TestReleaseWithoutAcquirePanics(t *testing.T) {
	sem := New(2)
	g := &AcquireGuard{s: sem, weight: 1, state: StateHeld}
	assert.Panics(t, g.Release)
	// the lock must have been dropped by the panicking release
	assert.Equal(t, int64(0), sem.Stats().Outstanding)
}

func TestGuardReleaseIsIdempotent(t *testing.T) {
	sem := New(5)
	g1 := sem.Acquire(2)
	g2 := sem.Acquire(3)
	require.Equal(t, int64(5), sem.Stats().Outstanding)

	g1.Release()
	assert.Equal(t, StateReleased, g1.State())
	assert.Equal(t, int64(3), sem.Stats().Outstanding)
	g1.Release()
	assert.Equal(t, int64(3), sem.Stats().Outstanding, "second release must not return weight again")

	g2.Release()
	assert.Equal(t, int64(0), sem.Stats().Outstanding)

	var nilGuard *AcquireGuard
	assert.NotPanics(t, nilGuard.Release)
}

func TestDo(t *testing.T) {
	sem := New(2)

	errFoo := errors.New("foo")
	err := sem.Do(2, func() error {
		assert.Equal(t, int64(2), sem.Stats().Outstanding)
		return errFoo
	})
	assert.Equal(t, errFoo, err)
	assert.Equal(t, int64(0), sem.Stats().Outstanding)

	assert.PanicsWithValue(t, "bar", func() {
		_ = sem.Do(1, func() error { panic("bar") })
	})
	assert.Equal(t, int64(0), sem.Stats().Outstanding, "weight must be returned if f panics")
}

func TestStatsString(t *testing.T) {
	sem := New(4)
	g := sem.Acquire(3)
	defer g.Release()
	assert.Equal(t, "Weighted(3/4, waiters=0)", sem.String())
	assert.Equal(t, int64(4), sem.Capacity())
}

func TestHandleStateEnumer(t *testing.T) {
	assert.Equal(t, "Blocked", StateBlocked.String())
	s, err := HandleStateString("Released")
	require.NoError(t, err)
	assert.Equal(t, StateReleased, s)
	assert.Len(t, HandleStateValues(), 4)
	assert.False(t, HandleState(23).IsAHandleState())
}
