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

	"github.com/ValentinKolb/dSM/cmd/util"
	"github.com/ValentinKolb/dSM/lib/smap"
	"github.com/ValentinKolb/dSM/remote"
	"github.com/ValentinKolb/dSM/remote/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dSM receiver nodes",
		Long:    "Measures the throughput of the replication link by mutating a local shared map that replicates to the given endpoint.",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitEnvConfig)

	// add common replication link flags
	util.SetupDispatcherFlags(PerfCmd)

	// add flags
	key := "skip"
	PerfCmd.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,delete)"))
	key = "large-value-size"
	PerfCmd.PersistentFlags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	PerfCmd.PersistentFlags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for dSM receiver nodes")

	config := util.GetDispatcherConfig("perf")

	// Print configuration
	fmt.Println(config.String())
	fmt.Println("starting tests...")

	// Build the replication link and the local map feeding it
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	rep, err := remote.NewRemoteReplicator(util.GetProvider(config), s, config)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", config.Endpoint, err)
	}

	m := smap.NewSharedMap(rep.Replicate)

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	setResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set") {
			return
		}

		getKey := getKeys("set")

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			if err := m.Set(getKey(i), []byte("test")); err != nil {
				b.Fatalf("(set) - error setting key: %v", err)
			}
		}
	})

	results["set"] = setResult
	printResult("set", setResult)

	setLargeResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set-large") {
			return
		}

		// prepare large value
		largeValue := make([]byte, perfLargeValueSizeKB*1024)

		getKey := getKeys("set-large")

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			if err := m.Set(getKey(i), largeValue); err != nil {
				b.Fatalf("(set-large) - error setting key: %v", err)
			}
		}
	})

	results["set-large"] = setLargeResult
	printResult("set-large", setLargeResult)

	deleteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}

		getKey := getKeys("delete")

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			if err := m.Delete(getKey(i)); err != nil {
				b.Fatalf("(delete) - error deleting key: %v", err)
			}
		}
	})

	results["delete"] = deleteResult
	printResult("delete", deleteResult)

	announceResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("announce") {
			return
		}

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			rep.AnnounceIndex(m.WriteIndex())
		}
	})

	results["announce"] = announceResult
	printResult("announce", announceResult)

	mixedResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		getKey := getKeys("mixed")

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			var err error
			switch i % 3 {
			case 0, 1: // two writes per delete
				err = m.Set(getKey(i), []byte("test"))
			case 2:
				err = m.Delete(getKey(i))
			}
			if err != nil {
				b.Fatalf("(mixed) - error performing operation: %v", err)
			}
		}
	})

	results["mixed"] = mixedResult
	printResult("mixed", mixedResult)

	// announce the final index so the receiver can report how far it got
	rep.AnnounceIndex(m.WriteIndex())

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// getKeys creates an array of test keys and returns an accessor with wraparound
func getKeys(prefix string) func(int) string {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	return func(i int) string {
		return keys[i%perfKeySpread]
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config common.DispatcherConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoint", "BufferSize", "RetryCount", "Serializer",
		"LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Endpoint,
			strconv.Itoa(config.BufferSize),
			strconv.Itoa(config.RetryCount),
			viper.GetString("serializer"),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row for test %s: %v", test, err)
		}
	}

	return nil
}
