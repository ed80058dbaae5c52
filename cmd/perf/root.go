package perf

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/XiaonuoGantan/rsedis/cmd/util"
	"github.com/XiaonuoGantan/rsedis/lib/common"
	"github.com/XiaonuoGantan/rsedis/lib/store"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var plog = logger.GetLogger(common.LoggerCLI)

var (
	// PerfCmd benchmarks the string commands against a local store
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the rsedis engine",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	PerfCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	PerfCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread <= 0 {
		return fmt.Errorf("keys must be greater than 0")
	}
	return nil
}

// result is the outcome of one benchmark
type result struct {
	bench testing.BenchmarkResult
	p50   float64 // ns
	p99   float64 // ns
}

func run(cmd *cobra.Command, _ []string) error {
	s, config, err := util.NewStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Println("Performance testing tool for the rsedis engine")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	results := make(map[string]result)
	for _, bm := range benchmarks(s) {
		r := runBenchmark(s, bm)
		results[bm.name] = r
		printResult(bm.name, r)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, results, &config); err != nil {
			return err
		}
		fmt.Printf("\nresults written to %s\n", csvPath)
	}
	return nil
}

// --------------------------------------------------------------------------
// Benchmarks
// --------------------------------------------------------------------------

type benchmark struct {
	name string
	// seed prepares a key before the benchmark starts, may be nil
	seed func(key []byte) error
	op   func(key []byte) error
}

func benchmarks(s store.IStore) []benchmark {
	small := []byte("test")
	large := make([]byte, perfLargeValueSizeKB*1024)
	seedSmall := func(key []byte) error { return s.Set(0, key, small) }
	seedLarge := func(key []byte) error { return s.Set(0, key, large) }

	return []benchmark{
		{name: "set", op: func(key []byte) error {
			return s.Set(0, key, small)
		}},
		{name: "set-large", op: func(key []byte) error {
			return s.Set(0, key, large)
		}},
		{name: "set-px", op: func(key []byte) error {
			return s.SetPX(0, key, small, time.Now().Add(time.Hour).UnixMilli())
		}},
		{name: "get", seed: seedSmall, op: func(key []byte) error {
			_, _, err := s.Get(0, key)
			return err
		}},
		{name: "incr", op: func(key []byte) error {
			_, err := s.IncrBy(0, key, 1)
			return err
		}},
		{name: "append", op: func(key []byte) error {
			_, err := s.Append(0, key, small)
			return err
		}},
		{name: "getrange", seed: seedLarge, op: func(key []byte) error {
			_, err := s.GetRange(0, key, 100, 1123)
			return err
		}},
		{name: "setrange", seed: seedLarge, op: func(key []byte) error {
			_, err := s.SetRange(0, key, 100, small)
			return err
		}},
		{name: "exists", seed: seedSmall, op: func(key []byte) error {
			_, err := s.Exists(0, key)
			return err
		}},
	}
}

// runBenchmark runs bm in parallel over the test keys and records the latency of every call
func runBenchmark(s store.IStore, bm benchmark) result {
	var timer gometrics.Timer

	res := testing.Benchmark(func(b *testing.B) {
		if shouldSkip(bm.name) {
			return
		}

		// prepare keys
		getKey, iter := getKeys(bm.name)

		if bm.seed != nil {
			iter(func(k []byte) {
				if err := bm.seed(k); err != nil {
					plog.Errorf("(%s) - error preparing key: %v", bm.name, err)
				}
			})
		}

		// cleanup
		b.Cleanup(func() {
			iter(func(k []byte) {
				if _, err := s.Delete(0, k); err != nil {
					plog.Errorf("(%s) - error deleting key: %v", bm.name, err)
				}
			})
		})

		if timer != nil {
			timer.Stop()
		}
		timer = gometrics.NewTimer()
		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := bm.op(getKey(counter)); err != nil {
					plog.Errorf("(%s) - error: %v", bm.name, err)
				}
				timer.UpdateSince(start)
				counter++
			}
		})
	})

	r := result{bench: res}
	if timer != nil && timer.Count() > 0 {
		ps := timer.Percentiles([]float64{0.5, 0.99})
		r.p50, r.p99 = ps[0], ps[1]
		timer.Stop()
	}
	return r
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) []byte, func(func([]byte))) {
	keys := make([][]byte, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = []byte(fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i))
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) []byte {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func([]byte)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, r result) {
	if r.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(r.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50 %s\tp99 %s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, time.Duration(r.p50), time.Duration(r.p99))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]result, config *common.EngineConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50Ns", "P99Ns", "Skipped",
		"Databases", "SweepIntervalMs", "SweepBudget",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, r := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if r.bench.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(r.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			fmt.Sprintf("%.0f", r.p50),
			fmt.Sprintf("%.0f", r.p99),
			skipped,
			strconv.FormatUint(uint64(config.Databases), 10),
			strconv.FormatInt(config.SweepInterval.Milliseconds(), 10),
			strconv.Itoa(config.SweepBudget),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
