package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/zrepl/wsema/cli"
	"github.com/zrepl/wsema/demo"
	"github.com/zrepl/wsema/logger"
	"github.com/zrepl/wsema/logging"
	"github.com/zrepl/wsema/semaphore"
	"github.com/zrepl/wsema/util/envconst"
	"github.com/zrepl/wsema/version"
)

var demoArgs struct {
	capacity int64
	workers  int
	weight   int64
	holdMin  time.Duration
	holdMax  time.Duration
	seed     int64

	metricsListen string
	cpuProfileDir string
}

var DemoCmd = &cli.Subcommand{
	Use:   "demo",
	Short: "run workers that contend for a weighted semaphore",
	Example: `  wsema demo
  wsema demo --capacity 5 --workers 20 --weight 2 --hold-max 2s`,
	SetupFlags: func(f *pflag.FlagSet) {
		f.Int64Var(&demoArgs.capacity, "capacity", 0, "semaphore capacity (overrides config and WSEMA_DEMO_CAPACITY)")
		f.IntVar(&demoArgs.workers, "workers", 0, "number of workers (overrides config and WSEMA_DEMO_WORKERS)")
		f.Int64Var(&demoArgs.weight, "weight", 0, "weight acquired by each worker (overrides config and WSEMA_DEMO_WEIGHT)")
		f.DurationVar(&demoArgs.holdMin, "hold-min", 0, "minimum hold duration (overrides config and WSEMA_DEMO_HOLD_MIN)")
		f.DurationVar(&demoArgs.holdMax, "hold-max", 0, "maximum hold duration (overrides config and WSEMA_DEMO_HOLD_MAX)")
		f.Int64Var(&demoArgs.seed, "seed", 0, "seed for hold durations, 0 means time-based")
		f.StringVar(&demoArgs.metricsListen, "metrics-listen", "", "serve prometheus metrics at this address while running")
		f.StringVar(&demoArgs.cpuProfileDir, "cpuprofile", "", "write a CPU profile to this directory")
	},
	Run: func(ctx context.Context, subcommand *cli.Subcommand, args []string) error {
		return runDemo(ctx, subcommand)
	},
}

// applyEnv overrides p with the WSEMA_DEMO_* environment variables.
func applyEnv(p *demo.Params) {
	p.Capacity = envconst.Int64("WSEMA_DEMO_CAPACITY", p.Capacity)
	p.Workers = envconst.Int("WSEMA_DEMO_WORKERS", p.Workers)
	p.Weight = envconst.Int64("WSEMA_DEMO_WEIGHT", p.Weight)
	p.HoldMin = envconst.Duration("WSEMA_DEMO_HOLD_MIN", p.HoldMin)
	p.HoldMax = envconst.Duration("WSEMA_DEMO_HOLD_MAX", p.HoldMax)
}

// applyFlags overrides p with the flags that were set explicitly.
func applyFlags(p *demo.Params, f *pflag.FlagSet) {
	if f.Changed("capacity") {
		p.Capacity = demoArgs.capacity
	}
	if f.Changed("workers") {
		p.Workers = demoArgs.workers
	}
	if f.Changed("weight") {
		p.Weight = demoArgs.weight
	}
	if f.Changed("hold-min") {
		p.HoldMin = demoArgs.holdMin
	}
	if f.Changed("hold-max") {
		p.HoldMax = demoArgs.holdMax
	}
	if f.Changed("seed") {
		p.Seed = demoArgs.seed
	}
}

func runDemo(ctx context.Context, subcommand *cli.Subcommand) error {
	conf := subcommand.Config()

	outlets, err := logging.OutletsFromConfig(*conf.Logging)
	if err != nil {
		return errors.Wrap(err, "cannot build logging from config")
	}
	log := logger.NewLogger(outlets)

	p := demo.ParamsFromConfig(conf.Demo)
	applyEnv(&p)
	applyFlags(&p, subcommand.Flags())
	p.Log = log

	if demoArgs.cpuProfileDir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(demoArgs.cpuProfileDir), profile.Quiet).Stop()
	}

	if demoArgs.metricsListen != "" {
		reg := prometheus.NewRegistry()
		p.Metrics = semaphore.NewMetrics("wsema", "demo")
		if err := p.Metrics.Register(reg); err != nil {
			return err
		}
		if err := version.PrometheusRegister(reg); err != nil {
			return errors.Wrap(err, "cannot register version metric")
		}
		serveCtx, stopServing := context.WithCancel(ctx)
		defer stopServing()
		if err := serveMetrics(serveCtx, demoArgs.metricsListen, reg, logging.LogSubsystem(log, logging.SubsysMetrics)); err != nil {
			return err
		}
	}

	report, err := demo.Run(ctx, p)
	if err != nil {
		return errors.Wrap(err, "demo failed")
	}
	summary, err := report.Summary()
	if err != nil {
		return errors.Wrap(err, "cannot summarize demo run")
	}
	fmt.Printf("run %s (seed %d): %s\n", report.RunID, report.Seed, summary)
	return nil
}

// serveMetrics serves reg at /metrics on listen until ctx is done.
func serveMetrics(ctx context.Context, listen string, reg *prometheus.Registry, log logger.Logger) error {
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return errors.Wrap(err, "cannot listen for metrics")
	}
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	go func() {
		err := http.Serve(l, mux)
		if err != nil && ctx.Err() == nil {
			log.WithError(err).Error("error while serving")
		}
	}()
	log.WithField("addr", l.Addr().String()).Info("serving metrics")
	return nil
}
