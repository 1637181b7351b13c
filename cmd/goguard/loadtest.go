package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/internal/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type loadtestOptions struct {
	principals  int
	concurrency int
	ops         int
	limit       int
	window      time.Duration
	redis       redisFlags
}

func newLoadtestCmd() *cobra.Command {
	opts := loadtestOptions{}

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure limiter and secure action latency against Redis",
		Long: `Runs two phases against an engine backed by the Redis rate limit store:
"allow" calls Engine.Allow for random principals and "run" wraps a no-op in
Engine.Run with auditing to a discarding sink. Without --redis-addr or REDIS_ADDR
an in-process miniredis is started.`,
		Example: `  goguard loadtest
  goguard loadtest --principals 1000 --ops 500000 --limit 50
  goguard loadtest --redis-addr localhost:6379 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.principals <= 0 || opts.concurrency <= 0 || opts.ops <= 0 || opts.limit <= 0 || opts.window <= 0 {
				return errors.New("principals, concurrency, ops, limit and window must be > 0")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runLoadtest(cmd.Context(), cmd, cfg, opts)
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&opts.principals, "principals", 10000, "number of distinct principals")
	fs.IntVar(&opts.concurrency, "concurrency", 256, "number of concurrent workers")
	fs.IntVar(&opts.ops, "ops", 200000, "operations per phase (allow + run)")
	fs.IntVar(&opts.limit, "limit", 100, "max requests per principal per window")
	fs.DurationVar(&opts.window, "window", time.Minute, "quota window")
	opts.redis.register(fs)
	return cmd
}

func runLoadtest(ctx context.Context, cmd *cobra.Command, cfg goGuard.Config, opts loadtestOptions) error {
	out := cmd.OutOrStdout()
	log := logger.NewWithWriter(cmd.ErrOrStderr(), "loadtest")

	client, cleanup, err := connectRedis(opts.redis.resolve(), log)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := goGuard.New().
		WithConfig(cfg).
		WithRedis(client).
		WithAuditSink(goGuard.NewJSONWriterSink(io.Discard)).
		WithMetricsEnabled(true, true).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	principals := make([]goGuard.Principal, opts.principals)
	for i := range principals {
		principals[i] = goGuard.Principal{ID: fmt.Sprintf("user-%d", i)}
	}

	allowStats, err := runAllowPhase(ctx, engine, principals, opts)
	if err != nil {
		return err
	}
	runStats, err := runSecurePhase(ctx, engine, principals, opts)
	if err != nil {
		return err
	}

	results := []phaseStats{allowStats, runStats}
	if getOutputFormat(cmd) == "json" {
		return printJSON(out, results)
	}
	fmt.Fprintln(out, "---- results ----")
	for _, s := range results {
		printStats(out, s)
	}
	return nil
}

func connectRedis(addr string, log *logger.Logger) (redis.UniversalClient, func(), error) {
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		log.Info().Str("addr", mr.Addr()).Msg("using miniredis")
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	log.Info().Str("addr", addr).Msg("using redis")
	return client, func() { _ = client.Close() }, nil
}

// phaseOp performs one request for p. denied reports a quota rejection, which the
// phase counts separately from errors.
type phaseOp func(ctx context.Context, p goGuard.Principal) (denied bool, err error)

func runAllowPhase(ctx context.Context, e *goGuard.Engine, principals []goGuard.Principal, opts loadtestOptions) (phaseStats, error) {
	endpoint := "loadtest/allow"
	return runPhase(ctx, "allow", principals, opts, func(ctx context.Context, p goGuard.Principal) (bool, error) {
		return !e.Allow(goGuard.WithPrincipal(ctx, p), endpoint, opts.limit, opts.window), nil
	})
}

func runSecurePhase(ctx context.Context, e *goGuard.Engine, principals []goGuard.Principal, opts loadtestOptions) (phaseStats, error) {
	action := goGuard.SecureActionOptions{
		Endpoint:    "loadtest/run",
		Action:      goGuard.ActionProfileUpdate,
		Resource:    "loadtest",
		MaxRequests: opts.limit,
		Window:      opts.window,
	}
	noop := func(context.Context) error { return nil }
	return runPhase(ctx, "run", principals, opts, func(ctx context.Context, p goGuard.Principal) (bool, error) {
		err := e.Run(goGuard.WithPrincipal(ctx, p), action, noop, nil)
		if goGuard.IsQuotaExceeded(err) {
			return true, nil
		}
		return false, err
	})
}

func runPhase(ctx context.Context, name string, principals []goGuard.Principal, opts loadtestOptions, op phaseOp) (phaseStats, error) {
	var (
		cursor    int64
		denied    int64
		failures  int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		worker := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= opts.ops {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				p := principals[r.Intn(len(principals))]
				t0 := time.Now()
				wasDenied, err := op(gctx, p)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else if wasDenied {
					atomic.AddInt64(&denied, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return phaseStats{}, fmt.Errorf("%s phase: %w", name, err)
	}
	return computeStats(name, time.Since(start), latencies, denied, failures), nil
}
