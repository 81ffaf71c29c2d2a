package semaphore

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	m := NewMetrics("wsema", "test")
	require.NoError(t, m.Register(reg))

	sem := NewWithParams(Params{Capacity: 2, Metrics: m})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.capacity))

	g := sem.Acquire(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.outstanding))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.acquisitions))

	waiter := acquireAsync(sem, 1)
	waitForWaiters(t, sem, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.waiters))

	g.Release()
	g2 := requireAcquired(t, waiter)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.waiters))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outstanding))

	g2.Release()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.outstanding))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.acquisitions))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.releases))
}

func TestMetricsRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, NewMetrics("wsema", "dup").Register(reg))
	assert.Error(t, NewMetrics("wsema", "dup").Register(reg))
}

func TestNilMetricsAreNoop(t *testing.T) {
	sem := NewWithParams(Params{Capacity: 1})
	sem.Acquire(1).Release()
}
