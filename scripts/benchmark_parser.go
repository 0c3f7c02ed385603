package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Operation   string
	Backend     string // "FileBacked" or "Heap"
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult pairs the file-backed and heap numbers for one operation.
type ComparisonResult struct {
	Operation       string
	FileBackedNs    float64
	HeapNs          float64
	Overhead        float64 // file-backed cost / heap cost
	FileBackedMem   int64
	HeapMem         int64
	FileBackedAlloc int64
	HeapAlloc       int64
	FileBackedOnly  bool
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()

	// Read benchmark output
	var scanner *bufio.Scanner
	var inputF *os.File
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		inputF = f
		scanner = bufio.NewScanner(f)
	} else {
		scanner = bufio.NewScanner(os.Stdin)
	}

	// Parse benchmarks
	results := parseBenchmarks(scanner)

	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	// Generate comparisons
	comparisons := generateComparisons(results)

	if !*quiet {
		fmt.Fprintf(os.Stderr, "Generated %d comparisons\n", len(comparisons))
	}

	// Generate markdown report
	report := generateMarkdownReport(comparisons)

	// Write output
	if *outputFile != "" {
		err := os.WriteFile(*outputFile, []byte(report), 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			if inputF != nil {
				inputF.Close()
			}
			os.Exit(1)
		}
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
		}
	} else {
		fmt.Fprint(os.Stdout, report)
	}

	// Close input file if opened
	if inputF != nil {
		inputF.Close()
	}
}

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	// Regex to parse benchmark output lines
	// Benchmark_Allocate_FileBacked-8    10000    12450 ns/op    4096 B/op    8 allocs/op
	benchmarkRegex := regexp.MustCompile(
		`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+(?:B|MB)/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
	)

	for scanner.Scan() {
		line := scanner.Text()

		// Try to parse as JSON (from -json flag)
		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
		}

		// Parse benchmark line
		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		name := matches[1]
		iterations, _ := strconv.Atoi(matches[2])
		nsPerOp, _ := strconv.ParseFloat(matches[3], 64)

		var bytesPerOp int64
		var allocsPerOp int64

		if matches[4] != "" {
			bytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			allocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}

		operation, backend := parseBenchmarkName(name)
		if operation == "" {
			continue
		}

		results = append(results, BenchmarkResult{
			Name:        name,
			Operation:   operation,
			Backend:     backend,
			Iterations:  iterations,
			NsPerOp:     nsPerOp,
			BytesPerOp:  bytesPerOp,
			AllocsPerOp: allocsPerOp,
		})
	}

	return results
}

// parseBenchmarkName splits Benchmark_<Operation>_<Backend>-<procs> into its
// operation and backend. Names with no backend suffix (Benchmark_Locate-8)
// only exist on the file-backed path.
func parseBenchmarkName(name string) (string, string) {
	name = strings.TrimPrefix(name, "Benchmark_")

	// Remove the -N procs suffix
	if dashIdx := strings.LastIndex(name, "-"); dashIdx > 0 {
		name = name[:dashIdx]
	}

	parts := strings.Split(name, "_")
	if len(parts) == 0 || parts[0] == "" {
		return "", ""
	}

	last := parts[len(parts)-1]
	if last == "FileBacked" || last == "Heap" {
		return strings.Join(parts[:len(parts)-1], "_"), last
	}
	return name, "FileBacked"
}

func generateComparisons(results []BenchmarkResult) []ComparisonResult {
	grouped := make(map[string]map[string]BenchmarkResult)

	for _, result := range results {
		if grouped[result.Operation] == nil {
			grouped[result.Operation] = make(map[string]BenchmarkResult)
		}
		grouped[result.Operation][result.Backend] = result
	}

	var comparisons []ComparisonResult

	for operation, backends := range grouped {
		fileBacked, hasFileBacked := backends["FileBacked"]
		heap, hasHeap := backends["Heap"]

		switch {
		case hasFileBacked && hasHeap:
			overhead := 0.0
			if heap.NsPerOp > 0 {
				overhead = fileBacked.NsPerOp / heap.NsPerOp
			}

			comparisons = append(comparisons, ComparisonResult{
				Operation:       operation,
				FileBackedNs:    fileBacked.NsPerOp,
				HeapNs:          heap.NsPerOp,
				Overhead:        overhead,
				FileBackedMem:   fileBacked.BytesPerOp,
				HeapMem:         heap.BytesPerOp,
				FileBackedAlloc: fileBacked.AllocsPerOp,
				HeapAlloc:       heap.AllocsPerOp,
			})
		case hasFileBacked:
			comparisons = append(comparisons, ComparisonResult{
				Operation:       operation,
				FileBackedNs:    fileBacked.NsPerOp,
				FileBackedMem:   fileBacked.BytesPerOp,
				FileBackedAlloc: fileBacked.AllocsPerOp,
				FileBackedOnly:  true,
			})
		}
	}

	sort.Slice(comparisons, func(i, j int) bool {
		return comparisons[i].Operation < comparisons[j].Operation
	})

	return comparisons
}

func generateMarkdownReport(comparisons []ComparisonResult) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Allocator Benchmark Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))

	// Summary statistics
	fileBackedOnly := 0
	totalOverhead := 0.0

	for _, comp := range comparisons {
		if comp.FileBackedOnly {
			fileBackedOnly++
		} else {
			totalOverhead += comp.Overhead
		}
	}

	comparableCount := len(comparisons) - fileBackedOnly
	avgOverhead := 0.0
	if comparableCount > 0 {
		avgOverhead = totalOverhead / float64(comparableCount)
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Total operations**: %d\n", len(comparisons)))
	sb.WriteString(fmt.Sprintf("- **Comparable** (both backends): %d\n", comparableCount))
	sb.WriteString(fmt.Sprintf("- **Average file-backed overhead**: **%.1fx** the heap cost\n", avgOverhead))
	sb.WriteString(fmt.Sprintf("- **File-backed only operations**: %d\n", fileBackedOnly))
	sb.WriteString("\n")

	// Detailed results table
	sb.WriteString("## Detailed Results\n\n")
	sb.WriteString(
		"| Operation | File-backed (ns/op) | Heap (ns/op) | Overhead | Memory (B/op) | Allocs |\n",
	)
	sb.WriteString(
		"|-----------|---------------------|--------------|----------|---------------|--------|\n",
	)

	for _, comp := range comparisons {
		if comp.FileBackedOnly {
			sb.WriteString(fmt.Sprintf("| %s | %s | *N/A* | *file-backed only* | %s | %s |\n",
				comp.Operation,
				formatNumber(comp.FileBackedNs),
				formatBytes(comp.FileBackedMem),
				formatNumber(float64(comp.FileBackedAlloc)),
			))
		} else {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | **%.1fx** | %s vs %s | %s vs %s |\n",
				comp.Operation,
				formatNumber(comp.FileBackedNs),
				formatNumber(comp.HeapNs),
				comp.Overhead,
				formatBytes(comp.FileBackedMem),
				formatBytes(comp.HeapMem),
				formatNumber(float64(comp.FileBackedAlloc)),
				formatNumber(float64(comp.HeapAlloc)),
			))
		}
	}

	sb.WriteString("\n")

	// Notes
	sb.WriteString("## Notes\n\n")
	sb.WriteString("- **Overhead**: file-backed ns/op divided by heap ns/op for the same operation\n")
	sb.WriteString("- Every file-backed allocation pays for a file creation, a truncate and a mapping;\n")
	sb.WriteString("  every deallocation pays for an unlink. Large overhead numbers are expected\n")
	sb.WriteString("  and are the product's trade, not a regression\n")
	sb.WriteString("- **File-backed only**: operations with no heap equivalent (Locate, State)\n")

	return sb.String()
}

func formatNumber(n float64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.2fM", n/1000000)
	} else if n >= 1000 {
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatBytes(b int64) string {
	if b >= 1024*1024 {
		return fmt.Sprintf("%.2fMB", float64(b)/(1024*1024))
	} else if b >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}
