package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joshuapare/memfile/alloc"
	"github.com/joshuapare/memfile/cmd/memfileview/logger"
	"github.com/joshuapare/memfile/viz"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	args := os.Args[1:]
	debugMode := false
	dir := ""
	columns := DefaultColumns

	// Extract flags
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug", "-d":
			debugMode = true

		case "--dir":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "Error: --dir requires a path\n")
				os.Exit(1)
			}
			i++
			dir = args[i]

		case "--columns", "-c":
			if i+1 >= len(args) {
				fmt.Fprintf(os.Stderr, "Error: --columns requires a number\n")
				os.Exit(1)
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < MinColumns || n > MaxColumns {
				fmt.Fprintf(os.Stderr, "Error: --columns must be between %d and %d\n", MinColumns, MaxColumns)
				os.Exit(1)
			}
			columns = n

		case "--help", "-h":
			printHelp()
			os.Exit(0)

		case "--version", "-v":
			fmt.Printf("memfileview %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built: %s\n", date)
			os.Exit(0)

		default:
			fmt.Fprintf(os.Stderr, "Error: unknown argument: %s\n", args[i])
			printUsage()
			os.Exit(1)
		}
	}

	// Initialize logger (must be before any logging calls)
	if err := logger.Init(logger.Options{
		Enabled: debugMode,
		Level:   slog.LevelDebug,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logging: %v\n", err)
	}

	if dir == "" {
		tmp, err := os.MkdirTemp("", "memfileview-*")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot create backing directory: %v\n", err)
			os.Exit(1)
		}
		dir = tmp
	}

	logger.Info("starting memfileview", "dir", dir, "columns", columns, "debug", debugMode)

	// The feed turns allocator callbacks into channel messages the TUI can
	// drain at its own pace.
	feed := viz.NewFeed(0)
	allocator := alloc.New(
		alloc.WithPathProvider(alloc.NewCounterPaths(dir)),
		alloc.WithObserver(feed),
	)

	m := NewModel(allocator, feed, columns)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
	)

	finalModel, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	// Free anything still live so no backing files are left behind
	if model, ok := finalModel.(Model); ok {
		if err := model.Close(); err != nil {
			logger.Warn("error freeing allocations", "error", err)
		}
	}

	logger.Info("memfileview exited normally")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: memfileview [options]\n")
	fmt.Fprintf(os.Stderr, "Try 'memfileview --help' for more information.\n")
}

func printHelp() {
	fmt.Println("memfileview - Interactive TUI for file-backed allocations")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  memfileview [options]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Launches an interactive terminal UI around a file-backed allocator.")
	fmt.Println("  Every allocation lives in a real file you can watch, edit bit by")
	fmt.Println("  bit, grow, shrink and free.")
	fmt.Println()
	fmt.Println("  Features:")
	fmt.Println("    - Split-pane layout (allocation list + bit grid)")
	fmt.Println("    - Keyboard navigation (vim-style keys supported)")
	fmt.Println("    - Toggle individual bits through the shared mapping (t)")
	fmt.Println("    - Grow, shrink and free allocations (g, s, f)")
	fmt.Println("    - Adjustable grid width (+/-)")
	fmt.Println()
	fmt.Println("  Navigation:")
	fmt.Println("    ↑/k, ↓/j    Navigate up/down")
	fmt.Println("    ←/h, →/l    Move the bit cursor")
	fmt.Println("    Tab         Switch between list and grid panes")
	fmt.Println("    ?           Show help")
	fmt.Println("    q           Quit")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -c, --columns <n>  Bytes per grid row (default 8)")
	fmt.Println("      --dir <path>   Directory for backing files (default: a fresh temp dir)")
	fmt.Println("  -d, --debug        Enable debug logging to ~/.memfileview/logs/")
	fmt.Println("  -h, --help         Show this help message")
	fmt.Println("  -v, --version      Show version information")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  memfileview")
	fmt.Println("  memfileview --dir /tmp/blocks --columns 16")
	fmt.Println()
	fmt.Println("For scripted operations, use the 'memfilectl' command instead.")
}
