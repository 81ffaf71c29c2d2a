// Package demo runs a set of workers that contend for a weighted semaphore
// and reports how long each of them waited.
package demo

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/zrepl/wsema/config"
	"github.com/zrepl/wsema/logger"
	"github.com/zrepl/wsema/logging"
	"github.com/zrepl/wsema/semaphore"
	"github.com/zrepl/wsema/util/errorarray"
)

// HoldFunc is called while worker holds its weight.
// d is the randomly chosen hold duration for that worker.
type HoldFunc func(ctx context.Context, worker int, d time.Duration) error

type Params struct {
	Capacity int64
	Workers  int
	Weight   int64
	HoldMin  time.Duration
	HoldMax  time.Duration
	// 0 seeds from the current time
	Seed int64

	// optional
	Log     logger.Logger
	Metrics *semaphore.Metrics
	// optional, defaults to sleeping for d or until ctx is done
	Hold HoldFunc
}

func ParamsFromConfig(in *config.Demo) Params {
	return Params{
		Capacity: in.Capacity,
		Workers:  in.Workers,
		Weight:   in.Weight,
		HoldMin:  in.HoldMin,
		HoldMax:  in.HoldMax,
		Seed:     in.Seed,
	}
}

func (p Params) Validate() error {
	c := config.Demo{
		Capacity: p.Capacity,
		Workers:  p.Workers,
		Weight:   p.Weight,
		HoldMin:  p.HoldMin,
		HoldMax:  p.HoldMax,
	}
	if p.HoldMin < 0 {
		return errors.Errorf("hold_min must not be negative, got %s", p.HoldMin)
	}
	return c.Validate()
}

func sleep(ctx context.Context, worker int, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type WorkerReport struct {
	Worker int
	Waited time.Duration
	Held   time.Duration
}

type Report struct {
	RunID   uuid.UUID
	Seed    int64
	Workers []WorkerReport
	// highest outstanding weight observed by any worker right after acquiring
	MaxOutstanding int64
	// outstanding weight after all workers were joined
	FinalOutstanding int64
}

// Run spawns p.Workers goroutines that each acquire p.Weight from a
// semaphore of p.Capacity, hold it and release it. Run returns after all
// workers have released their weight.
//
// Cancelling ctx shortens the holds but does not interrupt blocked acquisitions.
func Run(ctx context.Context, p Params) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid demo parameters")
	}
	if p.Log == nil {
		p.Log = logger.NewNullLogger()
	}
	hold := p.Hold
	if hold == nil {
		hold = sleep
	}
	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	report := &Report{
		RunID:   uuid.New(),
		Seed:    seed,
		Workers: make([]WorkerReport, p.Workers),
	}

	log := logging.LogSubsystem(p.Log, logging.SubsysDemo).
		WithField(logging.RunField, report.RunID.String())
	sem := semaphore.NewWithParams(semaphore.Params{
		Capacity: p.Capacity,
		Log:      logging.LogSubsystem(p.Log, logging.SubsysSemaphore),
		Metrics:  p.Metrics,
	})

	// *rand.Rand is not goroutine-safe, draw all durations upfront
	rng := rand.New(rand.NewSource(seed))
	holds := make([]time.Duration, p.Workers)
	for i := range holds {
		holds[i] = p.HoldMin + time.Duration(rng.Int63n(int64(p.HoldMax-p.HoldMin)+1))
	}

	log.WithField("capacity", p.Capacity).
		WithField("workers", p.Workers).
		WithField("weight", p.Weight).
		WithField("seed", seed).
		Info("starting workers")

	var maxMtx sync.Mutex
	observe := func(outstanding int64) {
		maxMtx.Lock()
		defer maxMtx.Unlock()
		if outstanding > report.MaxOutstanding {
			report.MaxOutstanding = outstanding
		}
	}

	errs := make([]error, p.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.Workers; i++ {
		i := i
		g.Go(func() error {
			wlog := log.WithField(logging.WorkerField, i)

			wlog.Info("TRYING to acquire")
			begin := time.Now()
			guard := sem.Acquire(p.Weight)
			defer guard.Release()
			waited := time.Since(begin)
			observe(sem.Stats().Outstanding)
			wlog.WithField("waited", waited).Info("ACQUIRED")

			holdBegin := time.Now()
			err := hold(gctx, i, holds[i])
			report.Workers[i] = WorkerReport{
				Worker: i,
				Waited: waited,
				Held:   time.Since(holdBegin),
			}
			if err != nil {
				wlog.WithError(err).Warn("hold interrupted")
			}
			wlog.WithField("held", report.Workers[i].Held).Info("RELEASING")
			// the first error cancels gctx, which interrupts the other holds
			errs[i] = errors.Wrapf(err, "worker %d", i)
			return errs[i]
		})
	}

	_ = g.Wait() // errors are reported per worker
	err := errorarray.Wrap(errs, "demo workers failed")
	report.FinalOutstanding = sem.Stats().Outstanding
	log.WithField("max_outstanding", report.MaxOutstanding).Info("all workers joined")
	return report, err
}

type Summary struct {
	MeanWait   time.Duration
	MedianWait time.Duration
	P90Wait    time.Duration
	MaxWait    time.Duration
	TotalHeld  time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("wait mean=%s median=%s p90=%s max=%s, total held=%s",
		s.MeanWait, s.MedianWait, s.P90Wait, s.MaxWait, s.TotalHeld)
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func (r *Report) Summary() (s Summary, err error) {
	waits := make(stats.Float64Data, len(r.Workers))
	for i, w := range r.Workers {
		waits[i] = w.Waited.Seconds()
		s.TotalHeld += w.Held
	}

	var mean, median, p90, max float64
	if mean, err = stats.Mean(waits); err != nil {
		return s, errors.Wrap(err, "mean wait")
	}
	if median, err = stats.Median(waits); err != nil {
		return s, errors.Wrap(err, "median wait")
	}
	if p90, err = stats.Percentile(waits, 90); err != nil {
		return s, errors.Wrap(err, "p90 wait")
	}
	if max, err = stats.Max(waits); err != nil {
		return s, errors.Wrap(err, "max wait")
	}
	s.MeanWait = seconds(mean)
	s.MedianWait = seconds(median)
	s.P90Wait = seconds(p90)
	s.MaxWait = seconds(max)
	return s, nil
}
