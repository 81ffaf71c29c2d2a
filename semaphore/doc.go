// Package semaphore implements a weighted counting semaphore.
//
// A Weighted semaphore bounds the total weight held by all live
// AcquireGuards to a capacity fixed at construction. Each acquisition may
// request a different weight between 1 and the capacity.
//
// Usage
//
//	sem := semaphore.New(3)
//	g := sem.Acquire(2)
//	defer g.Release()
//	// ... at most one more unit of weight can be held by others ...
//
// Acquire blocks until the requested weight fits. It cannot be cancelled and
// has no timeout. A request that exceeds the capacity can never be
// satisfied and panics with an *OverCapacityError instead of blocking.
//
// Fairness
//
// Waiters are not queued. Every release wakes all waiters, and each waiter
// re-checks whether its own weight now fits. Whoever re-acquires the lock
// first and fits proceeds. Under sustained churn of small requests, a large
// request can starve. Callers that need fairness or timeouts must build it
// on top of this package.
package semaphore
