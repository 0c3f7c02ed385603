package main

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	sigar "github.com/cloudfoundry/gosigar"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	"github.com/joshuapare/memfile/alloc"
)

var (
	serveAddr  string
	serveDir   string
	serveChurn bool
)

var jsonConfig = jsoniter.Config{
	OnlyTaggedField: true,
	CaseSensitive:   true,
}.Froze()

func init() {
	cmd := newServeCmd()
	cmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&serveDir, "dir", "", "Directory for backing files (default: a fresh temp dir)")
	cmd.Flags().BoolVar(&serveChurn, "churn", true, "Run a background loop that keeps the allocator busy")
	rootCmd.AddCommand(cmd)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the live allocation table over HTTP",
		Long: `The serve command exposes the allocator as JSON: GET /state lists every
live allocation with its base address, size and backing file, and GET /stats
reports the allocator counters alongside system memory.

Example:
  memfilectl serve
  memfilectl serve --addr :9090 --churn=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(args)
		},
	}
	return cmd
}

type stateEntry struct {
	Addr string `json:"addr"`
	Size int64  `json:"size"`
	Path string `json:"path"`
}

type memStats struct {
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
	Free  uint64 `json:"free"`
}

type statsPayload struct {
	Live      int      `json:"live"`
	LiveBytes int64    `json:"live_bytes"`
	Allocs    int64    `json:"allocs"`
	Frees     int64    `json:"frees"`
	Grows     int64    `json:"grows"`
	Shrinks   int64    `json:"shrinks"`
	Fallbacks int64    `json:"fallbacks"`
	System    memStats `json:"system"`
}

func runServe(_ []string) error {
	dir := serveDir
	if dir == "" {
		var err error
		if dir, err = os.MkdirTemp("", "memfile-serve-*"); err != nil {
			return fmt.Errorf("failed to create serve directory: %w", err)
		}
	}

	a := alloc.New(alloc.WithPathProvider(alloc.NewCounterPaths(dir)))
	if serveChurn {
		go churn(a)
	}

	printInfo("==> Serving allocator state on %s (backing files in %s)\n", serveAddr, dir)
	printInfo("    GET /state  - live allocations\n")
	printInfo("    GET /stats  - allocator counters and system memory\n")

	return fasthttp.ListenAndServe(serveAddr, func(ctx *fasthttp.RequestCtx) {
		serveHandler(ctx, a)
	})
}

func serveHandler(ctx *fasthttp.RequestCtx, a *alloc.Allocator) {
	if !ctx.IsGet() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		return
	}
	switch string(ctx.Path()) {
	case "/state":
		writeState(ctx, a)
	case "/stats":
		writeStats(ctx, a)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func writeState(ctx *fasthttp.RequestCtx, a *alloc.Allocator) {
	state := a.State()

	addrs := make([]uintptr, 0, len(state))
	for addr := range state {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	entries := make([]stateEntry, 0, len(addrs))
	for _, addr := range addrs {
		path := state[addr]
		e := stateEntry{Addr: fmt.Sprintf("0x%x", addr), Path: path}
		// The file length is the allocation size; a free racing this stat
		// just drops the entry's size to zero.
		if st, err := os.Stat(path); err == nil {
			e.Size = st.Size()
		}
		entries = append(entries, e)
	}

	writeJSON(ctx, entries)
}

func writeStats(ctx *fasthttp.RequestCtx, a *alloc.Allocator) {
	st := a.Stats()
	payload := statsPayload{
		Live:      st.Live,
		LiveBytes: st.LiveBytes,
		Allocs:    st.Allocs,
		Frees:     st.Frees,
		Grows:     st.Grows,
		Shrinks:   st.Shrinks,
		Fallbacks: st.Fallbacks,
	}

	mem := sigar.Mem{}
	if err := mem.Get(); err == nil {
		payload.System = memStats{Total: mem.Total, Used: mem.Used, Free: mem.Free}
	}

	writeJSON(ctx, payload)
}

func writeJSON(ctx *fasthttp.RequestCtx, v interface{}) {
	body, err := jsonConfig.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// churn keeps a shifting population of allocations alive so /state has
// something to show.
func churn(a *alloc.Allocator) {
	type block struct {
		buf  []byte
		size int
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var blocks []block

	for {
		switch {
		case len(blocks) == 0 || (len(blocks) < 48 && rng.Intn(2) == 0):
			size := 64 + rng.Intn(64*1024)
			if buf, err := a.Allocate(alloc.LayoutOf(size)); err == nil {
				blocks = append(blocks, block{buf, size})
			}
		case rng.Intn(3) == 0:
			i := rng.Intn(len(blocks))
			b := blocks[i]
			grown := b.size + rng.Intn(16*1024)
			// A failed resize tears the allocation down, so the block leaves
			// the population either way.
			if buf, err := a.Grow(b.buf, alloc.LayoutOf(b.size), alloc.LayoutOf(grown)); err == nil {
				blocks[i] = block{buf, grown}
			} else {
				blocks[i] = blocks[len(blocks)-1]
				blocks = blocks[:len(blocks)-1]
			}
		case rng.Intn(3) == 0:
			i := rng.Intn(len(blocks))
			b := blocks[i]
			shrunk := 1 + rng.Intn(b.size)
			if buf, err := a.Shrink(b.buf, alloc.LayoutOf(b.size), alloc.LayoutOf(shrunk)); err == nil {
				blocks[i] = block{buf, shrunk}
			} else {
				blocks[i] = blocks[len(blocks)-1]
				blocks = blocks[:len(blocks)-1]
			}
		default:
			i := rng.Intn(len(blocks))
			_ = a.Deallocate(blocks[i].buf, alloc.LayoutOf(blocks[i].size))
			blocks[i] = blocks[len(blocks)-1]
			blocks = blocks[:len(blocks)-1]
		}
		time.Sleep(50 * time.Millisecond)
	}
}
