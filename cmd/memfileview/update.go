package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/joshuapare/memfile/alloc"
	"github.com/joshuapare/memfile/cmd/memfileview/logger"
	"github.com/joshuapare/memfile/viz"
)

// Update handles all messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case feedEventMsg:
		return m.handleFeedEvent(msg.event)

	case tickMsg:
		// The mapping is shared, so re-rendering is all it takes to show
		// bytes written by anything else holding the buffer. Just schedule
		// the next frame.
		return m, tickCmd()

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil
	}

	return m, nil
}

// handleKeyPress routes key presses to the focused pane and the global
// allocation commands.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// If help is showing, only the dismiss keys do anything
	if m.showHelp {
		if key.Matches(msg, m.keys.Esc) || key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		if m.focusedPane == ListPane {
			m.focusedPane = GridPane
		} else {
			m.focusedPane = ListPane
		}
		return m, nil

	case key.Matches(msg, m.keys.Allocate):
		return m.handleAllocate()

	case key.Matches(msg, m.keys.Grow):
		return m.handleGrow()

	case key.Matches(msg, m.keys.Shrink):
		return m.handleShrink()

	case key.Matches(msg, m.keys.Free):
		return m.handleFree()

	case key.Matches(msg, m.keys.ToggleBit):
		return m.handleToggleBit()

	case key.Matches(msg, m.keys.Flush):
		return m.handleFlush()

	case key.Matches(msg, m.keys.WiderGrid):
		if m.columns*2 <= MaxColumns {
			m.columns *= 2
		}
		return m, nil

	case key.Matches(msg, m.keys.NarrowerGrid):
		if m.columns/2 >= MinColumns {
			m.columns /= 2
		}
		return m, nil
	}

	if m.focusedPane == GridPane {
		return m.handleGridNavigation(msg)
	}
	return m.handleListNavigation(msg)
}

// handleListNavigation moves the selection through the allocation list.
func (m Model) handleListNavigation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.blocks)-1 {
			m.selected++
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.Home):
		m.selected = 0
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		if len(m.blocks) > 0 {
			m.selected = len(m.blocks) - 1
			m.cursor = 0
		}
	}
	return m, nil
}

// handleGridNavigation moves the bit cursor inside the selected allocation.
// One row is columns bytes, rendered MSB first, so vertical moves step by
// whole rows of bits.
func (m Model) handleGridNavigation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	b := m.selectedBlock()
	if b == nil {
		return m, nil
	}

	rowBits := m.columns * 8
	pageBits := rowBits * m.gridRows()

	switch {
	case key.Matches(msg, m.keys.Left):
		m.cursor--
	case key.Matches(msg, m.keys.Right):
		m.cursor++
	case key.Matches(msg, m.keys.Up):
		m.cursor -= rowBits
	case key.Matches(msg, m.keys.Down):
		m.cursor += rowBits
	case key.Matches(msg, m.keys.PageUp):
		m.cursor -= pageBits
	case key.Matches(msg, m.keys.PageDown):
		m.cursor += pageBits
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		m.cursor = len(b.buf)*8 - 1
	}

	m.clampCursor()
	return m, nil
}

// handleAllocate creates a fresh block and selects it.
func (m Model) handleAllocate() (tea.Model, tea.Cmd) {
	layout := alloc.LayoutOf(DefaultBlockSize)

	buf, err := m.allocator.AllocateZeroed(layout)
	if err != nil {
		logger.Error("allocate failed", "size", layout.Size, "error", err)
		m.statusMessage = fmt.Sprintf("allocate failed: %v", err)
		return m, statusTick()
	}

	path, ok := m.allocator.PathOf(buf)
	if !ok {
		// Only a guarded call lands here; the viewer never re-enters, so
		// treat it as a surprise worth surfacing. The buffer is plain heap
		// memory, so dropping it is the whole cleanup.
		logger.Warn("allocation fell back to the heap", "size", layout.Size)
		m.statusMessage = "allocation fell back to the heap"
		return m, statusTick()
	}

	logger.Info("allocated block", "size", layout.Size, "path", path)
	m.blocks = append(m.blocks, block{buf: buf, layout: layout, path: path})
	m.selected = len(m.blocks) - 1
	m.cursor = 0
	return m, nil
}

// handleGrow doubles the selected block.
func (m Model) handleGrow() (tea.Model, tea.Cmd) {
	b := m.selectedBlock()
	if b == nil {
		return m, nil
	}

	newLayout := alloc.LayoutOf(b.layout.Size * 2)
	buf, err := m.allocator.Grow(b.buf, b.layout, newLayout)
	if err != nil {
		// A failed remap tears the allocation down, so the block is gone
		// either way.
		logger.Error("grow failed", "path", b.path, "error", err)
		m.dropSelected()
		m.statusMessage = fmt.Sprintf("grow failed: %v", err)
		return m, statusTick()
	}

	b.buf = buf
	b.layout = newLayout
	return m, nil
}

// handleShrink halves the selected block, stopping at one byte.
func (m Model) handleShrink() (tea.Model, tea.Cmd) {
	b := m.selectedBlock()
	if b == nil {
		return m, nil
	}
	if b.layout.Size <= 1 {
		m.statusMessage = "cannot shrink below 1 byte"
		return m, statusTick()
	}

	newLayout := alloc.LayoutOf(b.layout.Size / 2)
	buf, err := m.allocator.Shrink(b.buf, b.layout, newLayout)
	if err != nil {
		logger.Error("shrink failed", "path", b.path, "error", err)
		m.dropSelected()
		m.statusMessage = fmt.Sprintf("shrink failed: %v", err)
		return m, statusTick()
	}

	b.buf = buf
	b.layout = newLayout
	m.clampCursor()
	return m, nil
}

// handleFree releases the selected block.
func (m Model) handleFree() (tea.Model, tea.Cmd) {
	b := m.selectedBlock()
	if b == nil {
		return m, nil
	}

	if err := m.allocator.Deallocate(b.buf, b.layout); err != nil {
		logger.Error("free failed", "path", b.path, "error", err)
		m.statusMessage = fmt.Sprintf("free failed: %v", err)
	}
	m.dropSelected()
	return m, statusTick()
}

// handleToggleBit flips the bit under the cursor by writing through the
// shared mapping. The grid shows the new value on the next render and the
// backing file carries it after a flush (or immediately on mmap platforms).
func (m Model) handleToggleBit() (tea.Model, tea.Cmd) {
	b := m.selectedBlock()
	if b == nil {
		return m, nil
	}

	byteIdx := m.cursor / 8
	mask := byte(1) << (7 - m.cursor%8)
	b.buf[byteIdx] ^= mask

	logger.Debug("toggled bit", "path", b.path, "byte", byteIdx, "mask", mask)
	return m, nil
}

// handleFlush forces the selected block's bytes to its backing file.
func (m Model) handleFlush() (tea.Model, tea.Cmd) {
	b := m.selectedBlock()
	if b == nil {
		return m, nil
	}

	if err := m.allocator.Flush(b.buf); err != nil {
		logger.Error("flush failed", "path", b.path, "error", err)
		m.statusMessage = fmt.Sprintf("flush failed: %v", err)
	} else {
		m.statusMessage = fmt.Sprintf("flushed %s", b.path)
	}
	return m, statusTick()
}

// handleFeedEvent turns an allocator lifecycle event into a status line.
func (m Model) handleFeedEvent(ev viz.Event) (tea.Model, tea.Cmd) {
	logger.Debug("allocator event",
		"kind", ev.Kind.String(),
		"addr", fmt.Sprintf("0x%x", ev.Info.Addr),
		"size", ev.Info.Size,
	)

	switch ev.Kind {
	case viz.Created:
		m.statusMessage = fmt.Sprintf("created %s at 0x%x",
			humanize.IBytes(uint64(ev.Info.Size)), ev.Info.Addr)
	case viz.Resized:
		m.statusMessage = fmt.Sprintf("resized 0x%x: %s -> %s",
			ev.OldAddr,
			humanize.IBytes(uint64(ev.OldSize)),
			humanize.IBytes(uint64(ev.Info.Size)))
	case viz.Freed:
		m.statusMessage = fmt.Sprintf("freed %s at 0x%x",
			humanize.IBytes(uint64(ev.Info.Size)), ev.Info.Addr)
	}

	return m, tea.Batch(listenFeed(m.feed), statusTick())
}

// dropSelected removes the selected block from the list and keeps the
// selection in range.
func (m *Model) dropSelected() {
	if m.selected < 0 || m.selected >= len(m.blocks) {
		return
	}
	m.blocks = append(m.blocks[:m.selected], m.blocks[m.selected+1:]...)
	if m.selected >= len(m.blocks) {
		m.selected = len(m.blocks) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.cursor = 0
}

// statusTick clears the status line after a short delay.
func statusTick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
