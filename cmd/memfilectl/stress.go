package main

import (
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	sigar "github.com/cloudfoundry/gosigar"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/memfile/alloc"
)

var (
	stressGoroutines int
	stressOps        int
	stressMax        int
	stressDir        string
	stressSeed       int64
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressGoroutines, "goroutines", 8, "Concurrent goroutines")
	cmd.Flags().IntVar(&stressOps, "ops", 200, "Lifecycles per goroutine")
	cmd.Flags().IntVar(&stressMax, "max-size", 64*1024, "Maximum block size in bytes")
	cmd.Flags().StringVar(&stressDir, "dir", "", "Directory for backing files (default: a fresh temp dir)")
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Hammer the allocator from many goroutines",
		Long: `The stress command runs concurrent allocation lifecycles (allocate,
maybe grow or shrink, free) and then cross-checks the registry against the
allocator's own counters.

Example:
  memfilectl stress
  memfilectl stress --goroutines 32 --ops 1000
  memfilectl stress --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(args)
		},
	}
	return cmd
}

type stressReport struct {
	Goroutines int   `json:"goroutines"`
	Ops        int   `json:"ops"`
	ElapsedMS  int64 `json:"elapsed_ms"`
	Allocs     int64 `json:"allocs"`
	Frees      int64 `json:"frees"`
	Grows      int64 `json:"grows"`
	Shrinks    int64 `json:"shrinks"`
	Live       int   `json:"live"`
	LiveBytes  int64 `json:"live_bytes"`
	Registry   int   `json:"registry_entries"`
}

func runStress(_ []string) error {
	if stressGoroutines < 1 || stressOps < 1 || stressMax < 1 {
		return fmt.Errorf("goroutines, ops and max-size must all be positive")
	}

	dir := stressDir
	if dir == "" {
		var err error
		if dir, err = os.MkdirTemp("", "memfile-stress-*"); err != nil {
			return fmt.Errorf("failed to create stress directory: %w", err)
		}
	}
	printVerbose("Backing files in: %s\n", dir)

	a := alloc.New(alloc.WithPathProvider(alloc.NewCounterPaths(dir)))
	p := message.NewPrinter(language.English)

	if !jsonOut {
		printInfo("==> %s goroutines x %s lifecycles, blocks up to %s\n",
			p.Sprintf("%d", stressGoroutines), p.Sprintf("%d", stressOps),
			humanize.IBytes(uint64(stressMax)))
	}

	// Each goroutine leaves its final allocation live so the registry
	// cross-check below sees a non-trivial table.
	live := make([][]byte, stressGoroutines)
	liveSizes := make([]int, stressGoroutines)
	var failures atomic.Int64

	start := time.Now()
	var wg sync.WaitGroup
	for g := 0; g < stressGoroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(stressSeed + int64(g)))
			for op := 0; op < stressOps; op++ {
				size := 1 + rng.Intn(stressMax)
				buf, err := a.Allocate(alloc.LayoutOf(size))
				if err != nil {
					failures.Add(1)
					continue
				}
				switch rng.Intn(3) {
				case 0:
					grown := size + rng.Intn(stressMax)
					if buf, err = a.Grow(buf, alloc.LayoutOf(size), alloc.LayoutOf(grown)); err != nil {
						failures.Add(1)
						continue
					}
					size = grown
				case 1:
					shrunk := 1 + rng.Intn(size)
					if buf, err = a.Shrink(buf, alloc.LayoutOf(size), alloc.LayoutOf(shrunk)); err != nil {
						failures.Add(1)
						continue
					}
					size = shrunk
				}
				if op == stressOps-1 {
					live[g], liveSizes[g] = buf, size
					continue
				}
				if err := a.Deallocate(buf, alloc.LayoutOf(size)); err != nil {
					failures.Add(1)
				}
			}
		}(g)
	}
	wg.Wait()
	elapsed := time.Since(start)

	st := a.Stats()
	state := a.State()

	if jsonOut {
		report := stressReport{
			Goroutines: stressGoroutines,
			Ops:        stressOps,
			ElapsedMS:  elapsed.Milliseconds(),
			Allocs:     st.Allocs,
			Frees:      st.Frees,
			Grows:      st.Grows,
			Shrinks:    st.Shrinks,
			Live:       st.Live,
			LiveBytes:  st.LiveBytes,
			Registry:   len(state),
		}
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		total := st.Allocs + st.Frees + st.Grows + st.Shrinks
		printInfo("\nResults:\n")
		printInfo("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
		printInfo("  Operations: %s allocs, %s grows, %s shrinks, %s frees\n",
			p.Sprintf("%d", st.Allocs), p.Sprintf("%d", st.Grows),
			p.Sprintf("%d", st.Shrinks), p.Sprintf("%d", st.Frees))
		printInfo("  Throughput: %s ops/sec\n",
			p.Sprintf("%.0f", float64(total)/elapsed.Seconds()))
		printInfo("  Live: %s allocations, %s\n",
			p.Sprintf("%d", st.Live), humanize.IBytes(uint64(st.LiveBytes)))
		printInfo("  Registry entries: %s\n", p.Sprintf("%d", len(state)))

		mem := sigar.Mem{}
		if err := mem.Get(); err == nil {
			printInfo("  System memory: %s used / %s total (%s free)\n",
				humanize.IBytes(mem.Used), humanize.IBytes(mem.Total), humanize.IBytes(mem.Free))
		}
	}

	if len(state) != st.Live {
		return fmt.Errorf("registry holds %d entries but counters say %d live", len(state), st.Live)
	}
	if n := failures.Load(); n > 0 {
		return fmt.Errorf("%d operations failed", n)
	}

	// Tear down the blocks left live for the cross-check.
	for g, buf := range live {
		if buf == nil {
			continue
		}
		if err := a.Deallocate(buf, alloc.LayoutOf(liveSizes[g])); err != nil {
			return err
		}
	}
	if n := len(a.State()); n != 0 {
		return fmt.Errorf("%d allocations leaked after teardown", n)
	}
	printVerbose("Cleanup: all backing files removed\n")
	return nil
}
