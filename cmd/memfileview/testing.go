package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joshuapare/memfile/alloc"
	"github.com/joshuapare/memfile/viz"
)

// TestHelper provides utilities for testing TUI components
type TestHelper struct {
	allocator *alloc.Allocator
	feed      *viz.Feed
	model     Model
}

// NewTestHelper creates a test helper whose allocator writes backing files
// under dir
func NewTestHelper(dir string) *TestHelper {
	feed := viz.NewFeed(0)
	allocator := alloc.New(
		alloc.WithPathProvider(alloc.NewCounterPaths(dir)),
		alloc.WithObserver(feed),
	)

	return &TestHelper{
		allocator: allocator,
		feed:      feed,
		model:     NewModel(allocator, feed, DefaultColumns),
	}
}

// SendKey simulates a key press but does not execute async commands
func (h *TestHelper) SendKey(keyType tea.KeyType) *TestHelper {
	msg := tea.KeyMsg{Type: keyType}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// SendKeyRune simulates a character key press
func (h *TestHelper) SendKeyRune(r rune) *TestHelper {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// SendWindowSize simulates a window resize
func (h *TestHelper) SendWindowSize(width, height int) *TestHelper {
	msg := tea.WindowSizeMsg{Width: width, Height: height}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// DrainFeedEvent delivers the next pending allocator event to the model,
// the way the listenFeed command would. Returns false when no event is
// buffered.
func (h *TestHelper) DrainFeedEvent() bool {
	select {
	case ev := <-h.feed.Events():
		updated, _ := h.model.Update(feedEventMsg{event: ev})
		h.model = updated.(Model)
		return true
	default:
		return false
	}
}

// GetModel returns the current model
func (h *TestHelper) GetModel() Model {
	return h.model
}

// GetView returns the rendered view
func (h *TestHelper) GetView() string {
	return h.model.View()
}

// GetAllocator returns the allocator backing the model
func (h *TestHelper) GetAllocator() *alloc.Allocator {
	return h.allocator
}

// GetBlockCount returns the number of blocks the viewer owns
func (h *TestHelper) GetBlockCount() int {
	return len(h.model.blocks)
}

// GetSelectedBlock returns the block under the list cursor, or nil
func (h *TestHelper) GetSelectedBlock() *block {
	return h.model.selectedBlock()
}

// Close frees everything the model still owns
func (h *TestHelper) Close() error {
	return h.model.Close()
}
