package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/dalfonso89/currency-converter/internal/loadtest"
	"github.com/dalfonso89/currency-converter/internal/platform"
)

func main() {
	var (
		cfg      loadtest.Config
		pairs    string
		timeout  time.Duration
		duration time.Duration
	)

	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:8081", "Base URL of the converter API")
	flag.IntVar(&cfg.Workers, "users", 10, "Number of concurrent users")
	flag.IntVar(&cfg.RequestsPerWorker, "requests", 100, "Number of requests per user")
	flag.Float64Var(&cfg.Amount, "amount", 100, "Amount to convert")
	flag.StringVar(&pairs, "pairs", "USD:KES,EUR:KES,USD:EUR", "Comma separated FROM:TO pairs")
	flag.DurationVar(&cfg.RampUp, "rampup", 5*time.Second, "Ramp-up duration")
	flag.DurationVar(&cfg.ThinkTime, "think", 100*time.Millisecond, "Think time between requests")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	flag.DurationVar(&duration, "duration", 0, "Test duration (0 = run until all requests complete)")
	flag.Parse()

	var err error
	if cfg.Pairs, err = loadtest.ParsePairs(pairs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := platform.NewShutdownContext(context.Background())
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	fmt.Printf("Load testing %s/api/v1/convert with %d users x %d requests\n\n",
		cfg.BaseURL, cfg.Workers, cfg.RequestsPerWorker)

	summary, err := loadtest.Run(ctx, &http.Client{Timeout: timeout}, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	printSummary(summary)
}

func printSummary(summary loadtest.Summary) {
	fmt.Println("=== Load Test Results ===")
	fmt.Printf("Total Requests: %d\n", summary.Total)
	fmt.Printf("Successful Requests: %d\n", summary.Succeeded)
	fmt.Printf("Failed Requests: %d (%.2f%%)\n", summary.Failed, summary.ErrorRate)
	fmt.Printf("Total Duration: %v\n", summary.Elapsed)
	fmt.Printf("Requests per Second: %.2f\n", summary.RequestsPerSecond)
	fmt.Printf("Response Time avg/min/max: %v / %v / %v\n", summary.Average, summary.Min, summary.Max)
	fmt.Printf("Response Time p95/p99: %v / %v\n", summary.P95, summary.P99)

	statuses := make([]int, 0, len(summary.StatusCounts))
	for status := range summary.StatusCounts {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)
	for _, status := range statuses {
		label := http.StatusText(status)
		if status == 0 {
			label = "no response"
		}
		fmt.Printf("  %3d %-22s %d\n", status, label, summary.StatusCounts[status])
	}

	fmt.Println("\n=== Assessment ===")
	assess(summary.ErrorRate <= 5, "error rate %.2f%% (target < 5%%)", summary.ErrorRate)
	assess(summary.Average <= 2*time.Second, "average response time %v (target < 2s)", summary.Average)
	assess(summary.RequestsPerSecond >= 10, "throughput %.2f req/s (target > 10 req/s)", summary.RequestsPerSecond)
}

func assess(ok bool, format string, args ...interface{}) {
	if ok {
		color.Green("ok    "+format, args...)
		return
	}
	color.Yellow("warn  "+format, args...)
}
