package main

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joshuapare/memfile/alloc"
	"github.com/joshuapare/memfile/viz"
)

// Pane represents which pane is focused
type Pane int

const (
	ListPane Pane = iota
	GridPane
)

// Layout constants
const (
	DefaultColumns = 8  // Bytes rendered per grid row on startup
	MinColumns     = 1  // Narrowest grid
	MaxColumns     = 64 // Widest grid

	DefaultBlockSize = 256 // Size of blocks created with 'a'
)

// refreshEvery is how often the grid re-reads the selected allocation.
const refreshEvery = 250 * time.Millisecond

// block is one live allocation owned by the viewer. The layout travels with
// the buffer because every resize and free needs it back.
type block struct {
	buf    []byte
	layout alloc.Layout
	path   string
}

// Model is the main application model
type Model struct {
	allocator *alloc.Allocator
	feed      *viz.Feed
	keys      KeyMap

	blocks   []block
	selected int // index into blocks
	cursor   int // bit index inside the selected block
	columns  int // bytes per grid row

	focusedPane Pane
	width       int
	height      int

	// Help overlay
	showHelp bool

	// Status message for temporary feedback
	statusMessage string

	err error
}

// NewModel creates a new TUI model
func NewModel(a *alloc.Allocator, feed *viz.Feed, columns int) Model {
	if columns < MinColumns || columns > MaxColumns {
		columns = DefaultColumns
	}

	return Model{
		allocator:   a,
		feed:        feed,
		keys:        DefaultKeyMap(),
		columns:     columns,
		focusedPane: ListPane,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listenFeed(m.feed),
		tickCmd(),
	)
}

// Close frees every allocation still owned by the viewer
// Should be called when the TUI exits so no backing files are left behind
func (m *Model) Close() error {
	var lastErr error

	for _, b := range m.blocks {
		if err := m.allocator.Deallocate(b.buf, b.layout); err != nil {
			lastErr = err
		}
	}
	m.blocks = nil

	return lastErr
}

// selectedBlock returns the block under the list cursor, or nil when the
// viewer owns no allocations.
func (m *Model) selectedBlock() *block {
	if m.selected < 0 || m.selected >= len(m.blocks) {
		return nil
	}
	return &m.blocks[m.selected]
}

// clampCursor keeps the bit cursor inside the selected allocation.
func (m *Model) clampCursor() {
	b := m.selectedBlock()
	if b == nil {
		m.cursor = 0
		return
	}
	maxBit := len(b.buf)*8 - 1
	if m.cursor > maxBit {
		m.cursor = maxBit
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Messages

type clearStatusMsg struct{}

// feedEventMsg carries one allocator lifecycle event off the viz feed.
type feedEventMsg struct{ event viz.Event }

// tickMsg drives the periodic view refresh.
type tickMsg time.Time

// listenFeed waits for the next allocator event. Update re-arms it after
// every delivery so the channel keeps draining.
func listenFeed(feed *viz.Feed) tea.Cmd {
	return func() tea.Msg {
		return feedEventMsg{event: <-feed.Events()}
	}
}

// tickCmd schedules the next refresh tick.
func tickCmd() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
