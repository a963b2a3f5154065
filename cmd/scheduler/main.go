package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"job-skill-pipeline/internal/api"
	"job-skill-pipeline/internal/archive"
	"job-skill-pipeline/internal/config"
	"job-skill-pipeline/internal/extractor"
	"job-skill-pipeline/internal/fetcher"
	"job-skill-pipeline/internal/ledger"
	"job-skill-pipeline/internal/logger"
	"job-skill-pipeline/internal/pipeline"
	"job-skill-pipeline/internal/scheduler"
	"job-skill-pipeline/internal/source"
	"job-skill-pipeline/internal/store"
	"job-skill-pipeline/internal/taxonomy"
	"job-skill-pipeline/internal/telemetry"
)

func main() {
	cfg := config.Load()

	daemon := flag.Bool("daemon", false, "run on an interval instead of once")
	interval := flag.Float64("interval", cfg.IntervalHours, "hours between runs in daemon mode")
	batchSize := flag.Int("batch-size", cfg.BatchSize, "candidates per sequential batch")
	maxConcurrent := flag.Int("max-concurrent", cfg.MaxConcurrent, "max candidates in flight at once")
	maxJobs := flag.Int("max-jobs", 0, "cap on new candidates per run, 0 = unlimited")
	retryFailed := flag.Bool("retry-failed", false, "reprocess URLs with failure history")
	showStats := flag.Bool("stats", false, "print aggregate stats and exit")
	clearFailed := flag.Bool("clear-failed", false, "delete all failure history and exit")
	showFailed := flag.Bool("show-failed", false, "print recorded failures and exit")
	flag.Parse()

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.PostgresDSN)
	if err != nil {
		zlog.Fatal("connect postgres", zap.Error(err))
	}
	defer st.Close()

	if err := st.Init(ctx); err != nil {
		zlog.Fatal("init schema", zap.Error(err))
	}

	var cache *ledger.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			zlog.Warn("redis unavailable, running without ledger cache", zap.Error(err))
		} else {
			cache = ledger.NewCache(client)
		}
	}
	led := ledger.New(st, cache, zlog)

	// Maintenance modes act and exit without touching the pipeline.
	switch {
	case *showStats:
		printStats(ctx, st, zlog)
		return
	case *clearFailed:
		n, err := led.ClearFailures(ctx)
		if err != nil {
			zlog.Fatal("clear failures", zap.Error(err))
		}
		fmt.Printf("cleared %d failed URLs\n", n)
		return
	case *showFailed:
		printFailures(ctx, st, zlog)
		return
	}

	if cfg.GeminiAPIKey == "" {
		zlog.Fatal("GOOGLE_API_KEY is required")
	}

	var archiver pipeline.Archiver
	if cfg.ArchiveS3Bucket != "" {
		a, err := archive.New(ctx, archive.Options{
			Bucket:   cfg.ArchiveS3Bucket,
			Region:   cfg.ArchiveS3Region,
			Endpoint: cfg.ArchiveS3Endpoint,
		})
		if err != nil {
			zlog.Fatal("init archiver", zap.Error(err))
		}
		archiver = a
	}

	proc := pipeline.New(
		fetcher.New(cfg.FetchTimeout, zlog),
		extractor.New(extractor.Options{
			BaseURL:   cfg.GeminiBaseURL,
			Model:     cfg.GeminiModel,
			APIKey:    cfg.GeminiAPIKey,
			PerSecond: cfg.ExtractPerSecond,
			Burst:     cfg.ExtractBurst,
		}, zlog),
		st, led,
		taxonomy.NewNormalizer(), taxonomy.NewCategorizer(),
		archiver,
		pipeline.Options{
			MaxConcurrent:    *maxConcurrent,
			BatchDelay:       cfg.BatchDelay,
			MinContentLength: cfg.MinContentLength,
		},
		zlog,
	)

	sched := scheduler.New(
		source.New(cfg.ListingURL, zlog),
		led, proc,
		scheduler.Options{
			Interval:    time.Duration(*interval * float64(time.Hour)),
			BatchSize:   *batchSize,
			MaxJobs:     *maxJobs,
			RetryFailed: *retryFailed,
		},
		zlog,
	)

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			zlog.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	if !*daemon {
		stats := sched.RunOnce(ctx)
		if !stats.Success {
			zlog.Error("run failed", zap.String("error", stats.Error))
			os.Exit(1)
		}
		return
	}

	opsServer := api.New(st, sched, zlog)
	go func() {
		addr := ":" + cfg.HTTPPort
		zlog.Info("ops server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, opsServer.Router()); err != nil {
			zlog.Warn("ops server stopped", zap.Error(err))
		}
	}()

	if err := sched.RunDaemon(ctx); err != nil && err != context.Canceled {
		zlog.Error("daemon stopped", zap.Error(err))
		os.Exit(1)
	}
}

func printStats(ctx context.Context, st *store.Store, zlog *zap.Logger) {
	stats, err := st.Stats(ctx)
	if err != nil {
		zlog.Fatal("load stats", zap.Error(err))
	}
	out, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(out))
}

func printFailures(ctx context.Context, st *store.Store, zlog *zap.Logger) {
	n, err := st.CountFailures(ctx)
	if err != nil {
		zlog.Fatal("count failures", zap.Error(err))
	}
	entries, err := st.ListFailures(ctx, 100)
	if err != nil {
		zlog.Fatal("list failures", zap.Error(err))
	}
	fmt.Printf("%d failed URLs\n", n)
	for _, e := range entries {
		fmt.Printf("  [%d attempts] %s\n      %s\n", e.Attempts, e.URL, e.Error)
	}
}
