// Package chainlock implements a mutex whose Lock and Unlock
// methods return the lock itself, to enable chaining.
//
// Intended Usage
//
//	defer s.mtx.Lock().Unlock()
//	// wait until the predicate no longer holds, dropping the lock meanwhile
//	s.cond.WaitWhile(func() bool { return s.avail < n })
package chainlock

import "sync"

type L struct {
	mtx sync.Mutex
}

func New() *L {
	return &L{}
}

func (l *L) Lock() *L {
	l.mtx.Lock()
	return l
}

func (l *L) Unlock() *L {
	l.mtx.Unlock()
	return l
}

func (l *L) HoldWhile(f func()) {
	defer l.Lock().Unlock()
	f()
}

// Cond is a condition variable bound to the mutex of the L that created it.
type Cond struct {
	c *sync.Cond
}

func (l *L) NewCond() *Cond {
	return &Cond{sync.NewCond(&l.mtx)}
}

// Wait atomically unlocks the bound L, suspends the caller until woken
// and re-locks the L before returning. The caller must hold the lock.
func (c *Cond) Wait() {
	c.c.Wait()
}

// WaitWhile calls Wait as long as pred returns true. pred is evaluated with
// the lock held, once initially and once per wakeup.
// Returns the number of times the caller was suspended.
func (c *Cond) WaitWhile(pred func() bool) (waits int) {
	for pred() {
		c.c.Wait()
		waits++
	}
	return waits
}

// Broadcast wakes all goroutines waiting on c.
// It is allowed but not required for the caller to hold the lock.
func (c *Cond) Broadcast() {
	c.c.Broadcast()
}

func (c *Cond) Signal() {
	c.c.Signal()
}
