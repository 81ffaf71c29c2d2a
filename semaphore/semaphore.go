package semaphore

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/zrepl/wsema/logger"
	"github.com/zrepl/wsema/util/chainlock"
)

// Weighted is a weighted counting semaphore.
// The sum of the weights of all unreleased AcquireGuards never exceeds its capacity.
type Weighted struct {
	capacity int64 // immutable

	mtx  *chainlock.L
	cond *chainlock.Cond // bound to mtx, broadcast on every release

	// protected by mtx
	outstanding int64
	waiters     int64

	log     logger.Logger
	metrics *Metrics
}

type Params struct {
	Capacity int64
	// optional, defaults to a null logger
	Log logger.Logger
	// optional
	Metrics *Metrics
}

// New returns a semaphore with the given capacity.
// It panics with an *InvalidCapacityError if capacity < 1.
func New(capacity int64) *Weighted {
	return NewWithParams(Params{Capacity: capacity})
}

func NewWithParams(p Params) *Weighted {
	if p.Capacity < 1 {
		panic(&InvalidCapacityError{p.Capacity})
	}
	log := p.Log
	if log == nil {
		log = logger.NewNullLogger()
	}
	mtx := chainlock.New()
	s := &Weighted{
		capacity: p.Capacity,
		mtx:      mtx,
		cond:     mtx.NewCond(),
		log:      log,
		metrics:  p.Metrics,
	}
	s.metrics.setCapacity(p.Capacity)
	return s
}

func (s *Weighted) Capacity() int64 { return s.capacity }

// callers must hold s.mtx
func (s *Weighted) fitsLocked(weight int64) bool {
	return s.capacity-s.outstanding >= weight
}

// Acquire blocks until weight fits into the semaphore, reserves it and
// returns the guard that releases it.
//
// Acquire panics with an *OverCapacityError if weight < 1 or
// weight > Capacity(), without blocking.
//
// The returned AcquireGuard is not goroutine-safe.
func (s *Weighted) Acquire(weight int64) *AcquireGuard {
	if weight < 1 || weight > s.capacity {
		panic(&OverCapacityError{Op: "acquire", Weight: weight, Capacity: s.capacity})
	}

	log := s.log.WithField("weight", weight)
	begin := time.Now()

	defer s.mtx.Lock().Unlock()

	blocked := !s.fitsLocked(weight)
	if blocked {
		s.waiters++
		s.metrics.setWaiters(s.waiters)
		log.WithField("state", StateBlocked).
			WithField("outstanding", s.outstanding).
			Debug("waiting for capacity")
	}

	wakeups := s.cond.WaitWhile(func() bool { return !s.fitsLocked(weight) })

	if blocked {
		s.waiters--
		s.metrics.setWaiters(s.waiters)
	}

	s.outstanding += weight
	waited := time.Since(begin)
	s.metrics.acquired(s.outstanding, waited)

	log.WithField("state", StateHeld).
		WithField("outstanding", s.outstanding).
		WithField("wakeups", wakeups).
		Debug("acquired")

	return &AcquireGuard{s: s, weight: weight, state: StateHeld}
}

// release is only called through AcquireGuard.Release.
func (s *Weighted) release(weight int64) {
	if weight > s.capacity {
		panic(&OverCapacityError{Op: "release", Weight: weight, Capacity: s.capacity})
	}

	s.mtx.HoldWhile(func() {
		if s.outstanding < weight {
			panic(errors.Wrapf(ErrNegativeOutstanding, "release weight %d with outstanding %d", weight, s.outstanding))
		}
		s.outstanding -= weight
		s.metrics.released(s.outstanding)
		s.log.WithField("state", StateReleased).
			WithField("weight", weight).
			WithField("outstanding", s.outstanding).
			Debug("released")
	})

	// every waiter re-checks its own weight, a single wakeup could miss
	// waiters that fit only into the aggregate of several releases
	s.cond.Broadcast()
}

// Do acquires weight, runs f and releases weight when f returns or panics.
func (s *Weighted) Do(weight int64, f func() error) error {
	g := s.Acquire(weight)
	defer g.Release()
	return f()
}

// Stats is a point-in-time snapshot of a semaphore's state.
type Stats struct {
	Capacity    int64
	Outstanding int64
	Waiters     int64
}

func (st Stats) String() string {
	return fmt.Sprintf("Weighted(%d/%d, waiters=%d)", st.Outstanding, st.Capacity, st.Waiters)
}

func (s *Weighted) Stats() (st Stats) {
	s.mtx.HoldWhile(func() {
		st = Stats{
			Capacity:    s.capacity,
			Outstanding: s.outstanding,
			Waiters:     s.waiters,
		}
	})
	return st
}

func (s *Weighted) String() string {
	return s.Stats().String()
}

// AcquireGuard represents weight held in a Weighted semaphore.
// Release returns that weight to the semaphore.
type AcquireGuard struct {
	s      *Weighted
	weight int64
	state  HandleState
}

// Release returns the guard's weight to its semaphore.
// Only the first call has an effect. Calling Release on a nil guard is a no-op.
func (g *AcquireGuard) Release() {
	if g == nil || g.state == StateReleased {
		return
	}
	g.state = StateReleased
	g.s.release(g.weight)
}

func (g *AcquireGuard) Weight() int64 { return g.weight }

func (g *AcquireGuard) State() HandleState { return g.state }
