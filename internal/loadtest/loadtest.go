// Package loadtest drives concurrent conversion requests against a running converter API
// and summarises latency and status codes.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dalfonso89/currency-converter/internal/models"
)

// Pair is one currency pair requested by the workers
type Pair struct {
	From string
	To   string
}

// Config describes one load test run
type Config struct {
	BaseURL           string
	Workers           int
	RequestsPerWorker int
	Amount            float64
	Pairs             []Pair
	RampUp            time.Duration
	ThinkTime         time.Duration
}

// Result is the outcome of a single request. StatusCode is zero when no response arrived.
type Result struct {
	Worker     int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Summary aggregates the results of a run
type Summary struct {
	Total             int
	Succeeded         int
	Failed            int
	StatusCounts      map[int]int
	Elapsed           time.Duration
	Average           time.Duration
	Min               time.Duration
	Max               time.Duration
	P95               time.Duration
	P99               time.Duration
	RequestsPerSecond float64
	ErrorRate         float64
}

// ParsePairs parses "USD:KES,EUR:GBP"
func ParsePairs(input string) ([]Pair, error) {
	var pairs []Pair
	for _, item := range strings.Split(input, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		from, to, ok := strings.Cut(item, ":")
		from, to = models.NormalizeCode(from), models.NormalizeCode(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("invalid pair %q, want FROM:TO", item)
		}
		pairs = append(pairs, Pair{From: from, To: to})
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no pairs in %q", input)
	}
	return pairs, nil
}

// Run starts cfg.Workers workers, each issuing cfg.RequestsPerWorker conversions in turn.
// Canceling ctx stops the workers early; the summary covers what completed.
func Run(ctx context.Context, client *http.Client, cfg Config) (Summary, error) {
	if cfg.Workers <= 0 || cfg.RequestsPerWorker <= 0 {
		return Summary{}, fmt.Errorf("workers and requests must be positive")
	}
	if len(cfg.Pairs) == 0 {
		return Summary{}, fmt.Errorf("no currency pairs configured")
	}

	endpoint, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/api/v1/convert")
	if err != nil {
		return Summary{}, fmt.Errorf("invalid base url: %w", err)
	}

	perWorker := make([][]Result, cfg.Workers)
	rampUpStep := cfg.RampUp / time.Duration(cfg.Workers)
	started := time.Now()

	group, groupContext := errgroup.WithContext(ctx)
	for worker := 0; worker < cfg.Workers; worker++ {
		group.Go(func() error {
			if !sleep(groupContext, time.Duration(worker)*rampUpStep) {
				return nil
			}
			for i := 0; i < cfg.RequestsPerWorker; i++ {
				if groupContext.Err() != nil {
					return nil
				}
				pair := cfg.Pairs[(worker+i)%len(cfg.Pairs)]
				perWorker[worker] = append(perWorker[worker], request(groupContext, client, *endpoint, worker, cfg.Amount, pair))
				if !sleep(groupContext, cfg.ThinkTime) {
					return nil
				}
			}
			return nil
		})
	}
	_ = group.Wait()

	var results []Result
	for _, workerResults := range perWorker {
		results = append(results, workerResults...)
	}
	return Summarize(results, time.Since(started)), nil
}

func request(ctx context.Context, client *http.Client, endpoint url.URL, worker int, amount float64, pair Pair) Result {
	query := url.Values{}
	query.Set("amount", strconv.FormatFloat(amount, 'f', -1, 64))
	query.Set("from", pair.From)
	query.Set("to", pair.To)
	endpoint.RawQuery = query.Encode()

	result := Result{Worker: worker}
	started := time.Now()

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		result.Err = err
		return result
	}
	response, err := client.Do(httpRequest)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(started)
		return result
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	result.StatusCode = response.StatusCode
	result.Duration = time.Since(started)
	return result
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Summarize aggregates results collected over elapsed
func Summarize(results []Result, elapsed time.Duration) Summary {
	summary := Summary{
		Total:        len(results),
		Elapsed:      elapsed,
		StatusCounts: make(map[int]int),
	}
	if len(results) == 0 {
		return summary
	}

	durations := make([]time.Duration, len(results))
	var total time.Duration
	for i, result := range results {
		durations[i] = result.Duration
		total += result.Duration
		summary.StatusCounts[result.StatusCode]++
		if result.Err == nil && result.StatusCode >= 200 && result.StatusCode < 300 {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	summary.Min = durations[0]
	summary.Max = durations[len(durations)-1]
	summary.Average = total / time.Duration(len(durations))
	summary.P95 = Percentile(durations, 95)
	summary.P99 = Percentile(durations, 99)
	summary.ErrorRate = float64(summary.Failed) / float64(summary.Total) * 100
	if elapsed > 0 {
		summary.RequestsPerSecond = float64(summary.Total) / elapsed.Seconds()
	}
	return summary
}

// Percentile returns the nearest-rank percentile of sorted durations
func Percentile(sorted []time.Duration, percentile int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	index := len(sorted)*percentile/100 - 1
	if len(sorted)*percentile%100 != 0 {
		index++
	}
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
