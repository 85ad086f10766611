// Command hrm-refresh-storm checks refresh coalescing under load.
//
// It starts the stub backend in-process, logs one client in, and then runs rounds. Each
// round revokes every access token on the backend and fires --workers concurrent
// requests through the client pipeline. All of them get a 401, so a correct client
// makes exactly one refresh call per round.
//
//	go run ./cmd/hrm-refresh-storm --workers 256 --rounds 20
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	hrmAuth "github.com/MrEthical07/hrmAuth"
	"github.com/MrEthical07/hrmAuth/internal/stubapi"
	"github.com/MrEthical07/hrmAuth/session"
)

const stormPassword = "storm-password"

type stormOptions struct {
	workers   int
	rounds    int
	username  string
	redisAddr string
	verbose   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := stormOptions{}
	cmd := &cobra.Command{
		Use:          "hrm-refresh-storm",
		Short:        "Fire concurrent 401s at one client session and count refresh calls.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.workers <= 0 || opts.rounds <= 0 {
				return errors.New("workers and rounds must be > 0")
			}
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.workers, "workers", 128, "concurrent requests per round")
	cmd.Flags().IntVar(&opts.rounds, "rounds", 10, "number of revoke-and-storm rounds")
	cmd.Flags().StringVar(&opts.username, "user", "hr", "seeded account to log in as (ceo, hr, manager, employee)")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis for session storage; empty starts miniredis")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log client warnings")
	return cmd
}

func run(ctx context.Context, opts stormOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	level := slog.LevelError
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	addr := opts.redisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()
		addr = mr.Addr()
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		fmt.Printf("using redis at %s\n", addr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	api, err := stubapi.New(stubapi.Config{
		Secret:    []byte("refresh-storm-secret"),
		AccessTTL: 10 * time.Minute,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if err := api.Seed(stormPassword); err != nil {
		return err
	}
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	cfg := hrmAuth.DefaultConfig()
	cfg.API.BaseURL = srv.URL + "/api"
	cfg.Logger = logger
	client, err := hrmAuth.New().
		WithConfig(cfg).
		WithBackend(session.NewRedisBackend(rdb, "hrm-storm", time.Hour)).
		Build()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Login(ctx, hrmAuth.Credentials{Username: opts.username, Password: stormPassword}); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	var (
		latencies []time.Duration
		failures  int
		badRounds int
	)
	start := time.Now()
	for round := 0; round < opts.rounds; round++ {
		api.RevokeAccessTokens()
		before := api.RefreshCalls()

		samples, failed, err := storm(ctx, client, opts.workers)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		refreshes := api.RefreshCalls() - before
		if refreshes != 1 {
			badRounds++
		}
		failures += failed
		latencies = append(latencies, samples...)
		if opts.verbose {
			fmt.Printf("round %d: refreshes=%d failures=%d\n", round, refreshes, failed)
		}
	}
	total := time.Since(start)

	snap := client.MetricsSnapshot()
	fmt.Println("---- results ----")
	printStats("requests", computeStats(total, latencies, failures))
	fmt.Printf("rounds=%d refresh_calls=%d coalesced=%d retried=%d forced_logouts=%d\n",
		opts.rounds,
		api.RefreshCalls(),
		snap.Counters[hrmAuth.MetricRefreshCoalesced],
		snap.Counters[hrmAuth.MetricRequestRetried],
		snap.Counters[hrmAuth.MetricForcedLogout],
	)
	if badRounds > 0 {
		return fmt.Errorf("%d of %d rounds did not make exactly one refresh call", badRounds, opts.rounds)
	}
	fmt.Println("ok: one refresh per round")
	return nil
}

func storm(ctx context.Context, client *hrmAuth.Client, workers int) ([]time.Duration, int, error) {
	var (
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, workers)
		failures  int
	)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			t0 := time.Now()
			_, err := client.Get(gctx, "dashboard")
			d := time.Since(t0)
			if errors.Is(err, hrmAuth.ErrSessionEnded) {
				return err
			}
			mu.Lock()
			latencies = append(latencies, d)
			if err != nil {
				failures++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return latencies, failures, nil
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
