// Command loadtest drives concurrent read traffic against a running
// originpoint server, adapted in place from the teacher's economic-barrier
// load test: same worker-pool/stats/percentile shape, retargeted from
// escrow.Sequester/AwaitRelease calls to HTTP requests against the
// pipeline-analytics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// LoadTestConfig holds load test parameters
type LoadTestConfig struct {
	BaseURL         string
	Token           string
	NumTransactions int
	Concurrency     int
	ReportInterval  time.Duration
}

// LoadTestStats tracks test metrics
type LoadTestStats struct {
	TotalTransactions   uint64
	SuccessfulReleases  uint64
	FailedValidations   uint64
	TotalDuration       time.Duration
	AvgLatency          time.Duration
	MaxLatency          time.Duration
	MinLatency          time.Duration
	P95Latency          time.Duration
	P99Latency          time.Duration
	ThroughputPerSecond float64
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the running server")
	token := flag.String("token", "", "Bearer token for Authorization header")
	numTxns := flag.Int("requests", 1000, "Number of requests to send")
	concurrency := flag.Int("concurrency", 50, "Number of concurrent workers")
	reportInterval := flag.Duration("report", 5*time.Second, "Stats reporting interval")
	flag.Parse()

	config := LoadTestConfig{
		BaseURL:         *baseURL,
		Token:           *token,
		NumTransactions: *numTxns,
		Concurrency:     *concurrency,
		ReportInterval:  *reportInterval,
	}

	slog.Info("starting load test", "requests", config.NumTransactions, "concurrency", config.Concurrency, "url", config.BaseURL)
	stats := runLoadTest(config)

	printResults(stats)
}

func runLoadTest(config LoadTestConfig) *LoadTestStats {
	client := &http.Client{Timeout: 10 * time.Second}

	stats := &LoadTestStats{
		MinLatency: time.Hour,
	}
	var latencies []time.Duration
	var latenciesMu sync.Mutex

	reqChan := make(chan int, config.NumTransactions)
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reportStats(ctx, stats, config.ReportInterval)

	startTime := time.Now()
	for i := 0; i < config.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for reqID := range reqChan {
				processRequest(ctx, client, config, workerID, reqID, stats, &latencies, &latenciesMu)
			}
		}(i)
	}

	for i := 0; i < config.NumTransactions; i++ {
		reqChan <- i
	}
	close(reqChan)

	wg.Wait()
	totalDuration := time.Since(startTime)

	stats.TotalDuration = totalDuration
	stats.ThroughputPerSecond = float64(stats.TotalTransactions) / totalDuration.Seconds()

	latenciesMu.Lock()
	if len(latencies) > 0 {
		stats.AvgLatency = calculateAverage(latencies)
		stats.P95Latency = calculatePercentile(latencies, 95)
		stats.P99Latency = calculatePercentile(latencies, 99)
	}
	latenciesMu.Unlock()

	return stats
}

func processRequest(
	ctx context.Context,
	client *http.Client,
	config LoadTestConfig,
	workerID, reqID int,
	stats *LoadTestStats,
	latencies *[]time.Duration,
	latenciesMu *sync.Mutex,
) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.BaseURL+"/api/analytics/pipeline", nil)
	if err == nil && config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+config.Token)
	}

	start := time.Now()
	var reqErr error
	if err != nil {
		reqErr = err
	} else {
		resp, err := client.Do(req)
		if err != nil {
			reqErr = err
		} else {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode >= 400 {
				reqErr = fmt.Errorf("status %d", resp.StatusCode)
			}
		}
	}
	latency := time.Since(start)

	atomic.AddUint64(&stats.TotalTransactions, 1)
	if reqErr != nil {
		atomic.AddUint64(&stats.FailedValidations, 1)
	} else {
		atomic.AddUint64(&stats.SuccessfulReleases, 1)
	}

	latenciesMu.Lock()
	*latencies = append(*latencies, latency)
	if latency > stats.MaxLatency {
		stats.MaxLatency = latency
	}
	if latency < stats.MinLatency {
		stats.MinLatency = latency
	}
	latenciesMu.Unlock()
}

func reportStats(ctx context.Context, stats *LoadTestStats, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := atomic.LoadUint64(&stats.TotalTransactions)
			success := atomic.LoadUint64(&stats.SuccessfulReleases)
			failed := atomic.LoadUint64(&stats.FailedValidations)
			slog.Info("progress", "total", total, "success", success, "failed", failed, "min_latency", stats.MinLatency, "max_latency", stats.MaxLatency)
		case <-ctx.Done():
			return
		}
	}
}

func printResults(stats *LoadTestStats) {
	separator := "================================================================================"
	divider := "--------------------------------------------------------------------------------"

	fmt.Println("\n" + separator)
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println(separator)
	fmt.Printf("Total Requests:         %d\n", stats.TotalTransactions)
	fmt.Printf("Successful:             %d (%.2f%%)\n",
		stats.SuccessfulReleases,
		float64(stats.SuccessfulReleases)/float64(stats.TotalTransactions)*100)
	fmt.Printf("Failed:                 %d (%.2f%%)\n",
		stats.FailedValidations,
		float64(stats.FailedValidations)/float64(stats.TotalTransactions)*100)
	fmt.Println(divider)
	fmt.Printf("Total Duration:         %v\n", stats.TotalDuration)
	fmt.Printf("Throughput:             %.2f req/sec\n", stats.ThroughputPerSecond)
	fmt.Println(divider)
	fmt.Printf("Latency (min):          %v\n", stats.MinLatency)
	fmt.Printf("Latency (avg):          %v\n", stats.AvgLatency)
	fmt.Printf("Latency (p95):          %v\n", stats.P95Latency)
	fmt.Printf("Latency (p99):          %v\n", stats.P99Latency)
	fmt.Printf("Latency (max):          %v\n", stats.MaxLatency)
	fmt.Println(separator + "\n")
}

func calculateAverage(latencies []time.Duration) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	return total / time.Duration(len(latencies))
}

func calculatePercentile(latencies []time.Duration, percentile int) time.Duration {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[i] > sorted[j] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	idx := int(float64(len(sorted)) * float64(percentile) / 100.0)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
