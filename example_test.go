package goGuard_test

import (
	"context"
	"fmt"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/redis/go-redis/v9"
)

// ExampleNew demonstrates engine construction with production-style dependencies.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	engine, _ := goGuard.New().
		WithRedis(rdb).
		WithAuditSink(goGuard.NewChannelSink(256)).
		Build()
	defer engine.Close()
}

// ExampleExecute wraps an export in a quota check and exactly one audit event.
func ExampleExecute() {
	engine, _ := goGuard.New().Build()
	defer engine.Close()

	ctx := goGuard.WithPrincipal(context.Background(), goGuard.Principal{ID: "user-1"})
	rows, err := goGuard.Execute(ctx, engine, goGuard.DataExportAction, func(context.Context) (int, error) {
		return 42, nil
	}, goGuard.Metadata{"format": "csv"})
	if goGuard.IsQuotaExceeded(err) {
		fmt.Println(goGuard.UserMessage(err))
		return
	}
	fmt.Println(rows, err)
	// Output: 42 <nil>
}

// ExampleEngine_Allow shows a plain quota check without auditing.
func ExampleEngine_Allow() {
	engine, _ := goGuard.New().Build()
	defer engine.Close()

	ctx := goGuard.WithPrincipal(context.Background(), goGuard.Principal{ID: "user-1"})
	for i := 0; i < 3; i++ {
		fmt.Println(engine.Allow(ctx, "search", 2, time.Minute))
	}
	// Output:
	// true
	// true
	// false
}

// ExampleEngine_MetricsSnapshot shows how to read in-process metrics counters.
func ExampleEngine_MetricsSnapshot() {
	engine, _ := goGuard.New().WithMetricsEnabled(true, false).Build()
	defer engine.Close()

	ctx := goGuard.WithPrincipal(context.Background(), goGuard.Principal{ID: "user-1"})
	engine.Allow(ctx, "search", 1, time.Minute)
	engine.Allow(ctx, "search", 1, time.Minute)

	snap := engine.MetricsSnapshot()
	fmt.Println(snap.Counters[goGuard.MetricRateLimitAllowed], snap.Counters[goGuard.MetricRateLimitDenied])
	// Output: 1 1
}
