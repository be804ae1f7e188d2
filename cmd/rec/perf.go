package rec

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCDT/cmd/util"
	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/ValentinKolb/dCDT/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dCDT servers",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__test"
	perfNumThreads = 10
	perfKeySpread  = 100
	perfOps        = 10000
	perfListSize   = 100
	perfSkip       = make([]string, 0)
)

func init() {
	flags := perfTestCmd.Flags()
	flags.String("skip", "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	flags.Int("threads", 10, util.WrapString("Number of concurrent clients used for the benchmark"))
	flags.Int("ops", 10000, util.WrapString("Number of operations per benchmark"))
	flags.Int("keys", 100, util.WrapString("How many different keys to use for the tests"))
	flags.Int("list-size", 100, util.WrapString("Number of elements in the lists used by the list benchmarks"))
	flags.String("csv", "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOps = max(viper.GetInt("ops"), 1)
	perfListSize = max(viper.GetInt("list-size"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	return nil
}

// benchmark is a single perf test. setup prepares the keys, op runs one request.
type benchmark struct {
	name  string
	setup func(key string) error
	op    func(key string, i int) error
}

// perfResult is the outcome of one benchmark.
type perfResult struct {
	name    string
	skipped bool
	errors  int64
	elapsed time.Duration
	timer   gometrics.Timer
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for dCDT servers")

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d, Ops: %d, Keys: %d, List size: %d\n", perfNumThreads, perfOps, perfKeySpread, perfListSize)
	fmt.Println()

	fmt.Println("starting tests...")

	registry := gometrics.NewRegistry()
	var results []perfResult
	for _, b := range benchmarks() {
		res := runBenchmark(registry, b)
		printResult(res)
		results = append(results, res)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return err
		}
		fmt.Printf("results written to %s\n", csvPath)
	}
	return nil
}

func benchmarks() []benchmark {
	list := make([]any, perfListSize)
	for i := range list {
		list[i] = int64((i * 7919) % perfListSize)
	}
	putList := func(key string) error {
		return rpcStore.Put(key, record.Bins{"l": slices.Clone(list)}, store.TTLDefault)
	}

	return []benchmark{
		{
			name: "put",
			op: func(key string, _ int) error {
				return rpcStore.Put(key, record.Bins{"v": "test"}, store.TTLDefault)
			},
		},
		{
			name:  "get",
			setup: putList,
			op: func(key string, _ int) error {
				_, err := rpcStore.Get(key)
				return err
			},
		},
		{
			name:  "exists",
			setup: putList,
			op: func(key string, _ int) error {
				_, err := rpcStore.Exists(key)
				return err
			},
		},
		{
			name: "list-append",
			op: func(key string, i int) error {
				_, err := rpcStore.Operate(key, []record.Operation{
					record.ListAppend{Bin: "l", Values: []any{int64(i)}},
				})
				return err
			},
		},
		{
			name:  "get-by-rank",
			setup: putList,
			op: func(key string, _ int) error {
				_, err := rpcStore.Operate(key, []record.Operation{
					record.ListGetBy{Bin: "l", Selector: cdt.ByRankRange{Rank: -3, Count: 3}, Return: cdt.ReturnValue},
				})
				return err
			},
		},
		{
			name:  "get-by-value-range",
			setup: putList,
			op: func(key string, _ int) error {
				_, err := rpcStore.Operate(key, []record.Operation{
					record.ListGetBy{Bin: "l", Selector: cdt.ByValueRange{Begin: int64(10), End: int64(20)}, Return: cdt.ReturnIndex},
				})
				return err
			},
		},
		{
			name:  "remove-by-rank",
			setup: putList,
			op: func(key string, i int) error {
				_, err := rpcStore.Operate(key, []record.Operation{
					record.ListRemoveBy{Bin: "l", Selector: cdt.ByRank{Rank: 0}, Return: cdt.ReturnValue},
					record.ListAppend{Bin: "l", Values: []any{int64(i % perfListSize)}},
				})
				return err
			},
		},
		{
			name:  "batch-read",
			setup: putList,
			op: func(key string, _ int) error {
				records := []*store.BatchRecord{
					store.NewBatchRead(key),
					store.NewBatchRead(key, record.ListSize{Bin: "l"}),
				}
				if err := rpcStore.BatchOperate(records); err != nil {
					return err
				}
				for _, r := range records {
					if r.Err != nil {
						return r.Err
					}
				}
				return nil
			},
		},
	}
}

// runBenchmark runs b.op perfOps times spread over perfNumThreads workers and
// records the latency of every call in a timer.
func runBenchmark(registry gometrics.Registry, b benchmark) perfResult {
	res := perfResult{name: b.name}
	if shouldSkip(b.name) {
		res.skipped = true
		return res
	}

	keys := getKeys(b.name)
	defer func() {
		for _, k := range keys {
			if err := rpcStore.Remove(k); err != nil && store.CodeOf(err) != store.RetCRecordNotFound {
				log.Printf("(%s) - error removing key: %v\n", b.name, err)
			}
		}
	}()

	if b.setup != nil {
		for _, k := range keys {
			if err := b.setup(k); err != nil {
				log.Printf("(%s) - error preparing key: %v\n", b.name, err)
			}
		}
	}

	res.timer = gometrics.GetOrRegisterTimer(b.name, registry)

	var next, errCount atomic.Int64
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < perfNumThreads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1) - 1)
				if i >= perfOps {
					return
				}
				opStart := time.Now()
				err := b.op(keys[i%len(keys)], i)
				res.timer.UpdateSince(opStart)
				if err != nil {
					if errCount.Add(1) == 1 {
						log.Printf("(%s) - error: %v\n", b.name, err)
					}
				}
			}
		}()
	}
	wg.Wait()
	res.elapsed = time.Since(start)
	res.errors = errCount.Load()
	return res
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	return slices.Contains(perfSkip, test)
}

// getKeys creates the test keys of a benchmark
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return keys
}

func (r perfResult) opsPerSec() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.timer.Count()) / r.elapsed.Seconds()
}

// printResult prints the result of a benchmark in a formatted way
func printResult(r perfResult) {
	if r.skipped {
		fmt.Printf("%-20sskipped\n", r.name)
		return
	}
	snap := r.timer.Snapshot()
	ps := snap.Percentiles([]float64{0.5, 0.99})
	fmt.Printf("%-20smean %s\tp50 %s\tp99 %s\t%.0f ops/sec\t%d errors\n",
		r.name,
		time.Duration(snap.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		r.opsPerSec(),
		r.errors,
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "Skipped", "Ops", "Errors", "MeanNs", "P50Ns", "P99Ns", "OpsPerSec",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport", "Threads", "Keys", "ListSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		row := []string{r.name, strconv.FormatBool(r.skipped), "0", "0", "0", "0", "0", "0"}
		if !r.skipped {
			snap := r.timer.Snapshot()
			ps := snap.Percentiles([]float64{0.5, 0.99})
			row = []string{
				r.name,
				"false",
				strconv.FormatInt(snap.Count(), 10),
				strconv.FormatInt(r.errors, 10),
				fmt.Sprintf("%.0f", snap.Mean()),
				fmt.Sprintf("%.0f", ps[0]),
				fmt.Sprintf("%.0f", ps[1]),
				fmt.Sprintf("%.0f", r.opsPerSec()),
			}
		}
		row = append(row,
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
			strconv.Itoa(perfListSize),
		)

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.name, err)
		}
	}

	return nil
}
