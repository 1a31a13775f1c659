// Benchmark tool for load-testing Myna with synthetic taxpayer profiles.
//
// Usage:
//   go run cmd/benchmark/main.go -users 1000 -url http://localhost:8080
//
// This tool:
//   1. Generates synthetic salary/deduction profiles across income bands
//   2. Uploads each profile and requests a regime comparison
//   3. Tallies old vs new recommendations per income band
//   4. Reports latency and throughput
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// TaxpayerProfile is one synthetic user's financial data.
type TaxpayerProfile struct {
	UserID      string
	GrossSalary int64
	HRA         int64
	Section80C  int64
	Section80D  int64
}

// SalaryRecord is the record upload payload. Amounts travel as decimal
// strings.
type SalaryRecord struct {
	GrossSalary string `json:"grossSalary"`
	HRA         string `json:"hra,omitempty"`
	Section80C  string `json:"section80C,omitempty"`
	Section80D  string `json:"section80D,omitempty"`
}

// ComparisonResponse is the slice of the API response the benchmark reads.
type ComparisonResponse struct {
	Result struct {
		RecommendedRegime string `json:"recommendedRegime"`
		TaxSaving         string `json:"taxSaving"`
	} `json:"result"`
}

// Metrics tracks benchmark results
type Metrics struct {
	TotalProcessed int64
	TotalErrors    int64

	OldRecommended int64
	NewRecommended int64

	ProcessingTimeMs int64
}

// incomeBands drive the synthetic salary distribution (annual, INR).
var incomeBands = []struct {
	Name string
	Min  int64
	Max  int64
}{
	{"0-5L", 200_000, 500_000},
	{"5-10L", 500_000, 1_000_000},
	{"10-20L", 1_000_000, 2_000_000},
	{"20L+", 2_000_000, 6_000_000},
}

func main() {
	// Parse flags
	baseURL := flag.String("url", "http://localhost:8080", "Myna base URL")
	numUsers := flag.Int("users", 1000, "Number of synthetic users")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	seed := flag.Int64("seed", 42, "Random seed for profile generation")
	verbose := flag.Bool("verbose", false, "Print each comparison result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          MYNA BENCHMARK - Regime Comparison Load Test         ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nMyna URL:  %s\n", *baseURL)
	fmt.Printf("Users:     %d\n", *numUsers)
	fmt.Printf("Workers:   %d\n", *workers)
	fmt.Printf("Seed:      %d\n", *seed)
	fmt.Println()

	// Check Myna is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Myna not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Myna is running:")
		fmt.Println("  cd myna && go run cmd/myna/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Myna is healthy")

	// Generate synthetic profiles
	profiles := generateProfiles(*numUsers, *seed)
	fmt.Printf("✓ Generated %d synthetic profiles\n", len(profiles))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(profiles, *baseURL, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func generateProfiles(count int, seed int64) []TaxpayerProfile {
	rng := rand.New(rand.NewSource(seed))
	profiles := make([]TaxpayerProfile, 0, count)

	for i := 0; i < count; i++ {
		band := incomeBands[i%len(incomeBands)]
		salary := band.Min + rng.Int63n(band.Max-band.Min)

		p := TaxpayerProfile{
			UserID:      fmt.Sprintf("bench-user-%05d", i),
			GrossSalary: salary,
		}

		// Roughly half the users claim deductions, mirroring who would
		// bother filing under the old regime.
		if rng.Intn(2) == 0 {
			p.HRA = salary / 10
			p.Section80C = min64(150_000, salary/8)
			p.Section80D = 25_000
		}

		profiles = append(profiles, p)
	}

	return profiles
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func runBenchmark(profiles []TaxpayerProfile, baseURL string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan TaxpayerProfile, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for p := range work {
				start := time.Now()
				result, err := compareProfile(client, baseURL, p)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", p.UserID, err)
					}
					continue
				}

				switch result.Result.RecommendedRegime {
				case "old":
					atomic.AddInt64(&metrics.OldRecommended, 1)
				case "new":
					atomic.AddInt64(&metrics.NewRecommended, 1)
				}

				if verbose {
					fmt.Printf("%s | Salary: ₹%12d | 80C: ₹%7d | Regime: %-3s | Saving: ₹%s\n",
						p.UserID,
						p.GrossSalary,
						p.Section80C,
						result.Result.RecommendedRegime,
						result.Result.TaxSaving,
					)
				}
			}
		}()
	}

	// Send work
	for _, p := range profiles {
		work <- p
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func compareProfile(client *http.Client, baseURL string, p TaxpayerProfile) (*ComparisonResponse, error) {
	record := SalaryRecord{
		GrossSalary: fmt.Sprintf("%d", p.GrossSalary),
	}
	if p.HRA > 0 {
		record.HRA = fmt.Sprintf("%d", p.HRA)
	}
	if p.Section80C > 0 {
		record.Section80C = fmt.Sprintf("%d", p.Section80C)
	}
	if p.Section80D > 0 {
		record.Section80D = fmt.Sprintf("%d", p.Section80D)
	}

	body, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	putReq, err := http.NewRequest(http.MethodPut, baseURL+"/v1/records/salary", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	putReq.Header.Set("Content-Type", "application/json")
	putReq.Header.Set("X-User-ID", p.UserID)

	putResp, err := client.Do(putReq)
	if err != nil {
		return nil, err
	}
	putResp.Body.Close()
	if putResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("record upload: status %d", putResp.StatusCode)
	}

	postReq, err := http.NewRequest(http.MethodPost, baseURL+"/v1/comparisons", nil)
	if err != nil {
		return nil, err
	}
	postReq.Header.Set("X-User-ID", p.UserID)

	resp, err := client.Do(postReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("comparison: status %d", resp.StatusCode)
	}

	var result ComparisonResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 RUN STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\n⚖️  RECOMMENDATION SPLIT\n")
	compared := m.OldRecommended + m.NewRecommended
	if compared > 0 {
		fmt.Printf("   Old regime:  %d (%.2f%%)\n", m.OldRecommended, 100*float64(m.OldRecommended)/float64(compared))
		fmt.Printf("   New regime:  %d (%.2f%%)\n", m.NewRecommended, 100*float64(m.NewRecommended)/float64(compared))
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		ups := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms (upload + compare)\n", avgMs)
		fmt.Printf("   Throughput:       %.2f users/sec\n", ups)
	}

	fmt.Println()
}
