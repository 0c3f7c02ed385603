package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/joshuapare/memfile/alloc/backing"
)

// View renders the entire UI
func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	// If help overlay is showing, render it
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	header := m.renderHeader()
	content := m.renderContent()
	status := m.renderStatus()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		status,
	)
}

// renderHeader renders the title and the allocator summary line
func (m Model) renderHeader() string {
	title := "Memfile Viewer"
	summary := fmt.Sprintf("Allocator: %s", m.allocator.Stats())

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		headerStyle.Render(title),
		lipgloss.NewStyle().Render("  "),
		pathStyle.Render(summary),
	)
}

// renderContent renders the split-pane content
func (m Model) renderContent() string {
	// List pane takes a third, grid gets the rest
	listWidth := m.width / 3
	if listWidth < 30 {
		listWidth = 30
	}
	gridWidth := m.width - listWidth

	paneHeight := max(m.height-8, 5)

	// Render allocation list pane
	listTitle := "Allocations"
	if len(m.blocks) > 0 {
		listTitle = fmt.Sprintf("Allocations (%d) [%d/%d]", len(m.blocks), m.selected+1, len(m.blocks))
	}

	listPane := lipgloss.NewStyle().
		Width(listWidth - 2).
		Height(paneHeight).
		Render(m.renderList(listWidth - 4))

	var listBox string
	switch m.focusedPane {
	case ListPane:
		listBox = activePaneStyle.
			Width(listWidth - 2).
			Height(paneHeight + 1).
			Render(lipgloss.JoinVertical(lipgloss.Left, listTitle, listPane))
	default:
		listBox = paneStyle.
			Width(listWidth - 2).
			Height(paneHeight + 1).
			Render(lipgloss.JoinVertical(lipgloss.Left, listTitle, listPane))
	}

	// Render bit grid pane
	gridTitle := "Memory"
	if b := m.selectedBlock(); b != nil {
		gridTitle = fmt.Sprintf("Memory %s [bit %d of %d, %d cols]",
			humanize.IBytes(uint64(len(b.buf))), m.cursor, len(b.buf)*8, m.columns)
	}

	gridPane := lipgloss.NewStyle().
		Width(gridWidth - 2).
		Height(paneHeight).
		Render(m.renderGrid())

	var gridBox string
	switch m.focusedPane {
	case GridPane:
		gridBox = activePaneStyle.
			Width(gridWidth - 2).
			Height(paneHeight + 1).
			Render(lipgloss.JoinVertical(lipgloss.Left, gridTitle, gridPane))
	default:
		gridBox = paneStyle.
			Width(gridWidth - 2).
			Height(paneHeight + 1).
			Render(lipgloss.JoinVertical(lipgloss.Left, gridTitle, gridPane))
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		listBox,
		gridBox,
	)
}

// renderList renders one row per live allocation: address, size, file name.
func (m Model) renderList(width int) string {
	if len(m.blocks) == 0 {
		return listRowStyle.Render("no allocations - press 'a'")
	}

	var rows []string
	for i, b := range m.blocks {
		addr := backing.AddressOf(b.buf)
		row := fmt.Sprintf("0x%012x  %-9s %s",
			addr,
			humanize.IBytes(uint64(len(b.buf))),
			filepath.Base(b.path))
		row = truncate(row, max(width, 10))

		if i == m.selected {
			rows = append(rows, listSelectedStyle.Render(row))
		} else {
			rows = append(rows, listAddrStyle.Render(row))
		}
	}

	return strings.Join(rows, "\n")
}

// gridRows is how many grid rows fit in the pane, leaving room for borders
// and titles.
func (m Model) gridRows() int {
	return max(m.height-10, 4)
}

// renderGrid renders the selected allocation as a bit grid: one cell per
// bit, each row m.columns bytes, bytes MSB first. Set bits render as filled
// blocks, clear bits as dim dots. The window scrolls to keep the cursor row
// visible.
func (m Model) renderGrid() string {
	b := m.selectedBlock()
	if b == nil {
		return bitClearStyle.Render("select an allocation")
	}

	totalRows := (len(b.buf) + m.columns - 1) / m.columns
	visible := m.gridRows()

	cursorRow := m.cursor / (m.columns * 8)
	startRow := cursorRow - visible/2
	if startRow > totalRows-visible {
		startRow = totalRows - visible
	}
	if startRow < 0 {
		startRow = 0
	}
	endRow := min(startRow+visible, totalRows)

	var rows []string
	for row := startRow; row < endRow; row++ {
		var sb strings.Builder
		sb.WriteString(gridOffsetStyle.Render(fmt.Sprintf("%06x ", row*m.columns)))

		for col := 0; col < m.columns; col++ {
			byteIdx := row*m.columns + col
			if byteIdx >= len(b.buf) {
				break
			}
			sb.WriteString(" ")
			sb.WriteString(m.renderByte(b.buf[byteIdx], byteIdx))
		}
		rows = append(rows, sb.String())
	}

	if startRow > 0 || endRow < totalRows {
		rows = append(rows, gridOffsetStyle.Render(
			fmt.Sprintf("rows %d-%d of %d", startRow+1, endRow, totalRows)))
	}

	return strings.Join(rows, "\n")
}

// renderByte renders one byte as eight bit cells, most significant first.
func (m Model) renderByte(v byte, byteIdx int) string {
	var sb strings.Builder
	for bit := 0; bit < 8; bit++ {
		mask := byte(1) << (7 - bit)
		set := v&mask != 0

		cell := "·"
		style := bitClearStyle
		if set {
			cell = "█"
			style = bitSetStyle
		}

		if m.focusedPane == GridPane && byteIdx*8+bit == m.cursor {
			style = bitCursorStyle
		}
		sb.WriteString(style.Render(cell))
	}
	return sb.String()
}

// renderStatus renders the status bar with help text
func (m Model) renderStatus() string {
	// Show status message if set (takes priority over normal help)
	if m.statusMessage != "" {
		return statusStyle.Width(m.width).Render(
			statusMessageStyle.Render(m.statusMessage),
		)
	}

	var help strings.Builder

	switch m.focusedPane {
	case GridPane:
		help.WriteString(helpStyle.Render("↑/↓/←/→: Move bit cursor"))
		help.WriteString(" │ ")
		help.WriteString(helpStyle.Render("t: Toggle"))
		help.WriteString(" │ ")
		help.WriteString(helpStyle.Render("+/-: Columns"))
		help.WriteString(" │ ")
		help.WriteString(helpStyle.Render("w: Flush"))
	default:
		help.WriteString(helpStyle.Render("↑/↓: Select"))
		help.WriteString(" │ ")
		help.WriteString(helpStyle.Render("a: Allocate"))
		help.WriteString(" │ ")
		help.WriteString(helpStyle.Render("g/s: Grow/Shrink"))
		help.WriteString(" │ ")
		help.WriteString(helpStyle.Render("f: Free"))
	}
	help.WriteString(" │ ")
	help.WriteString(helpStyle.Render("tab: Pane"))
	help.WriteString(" │ ")
	help.WriteString(helpStyle.Render("?: Help"))
	help.WriteString(" │ ")
	help.WriteString(helpStyle.Render("q: Quit"))

	return statusStyle.Width(m.width).Render(help.String())
}

// renderHelpOverlay renders the help overlay
func (m Model) renderHelpOverlay() string {
	var helpContent strings.Builder

	title := helpTitleStyle.Render("Keyboard Shortcuts")
	helpContent.WriteString(title)
	helpContent.WriteString("\n\n")

	writeEntry := func(keys, desc string) {
		helpContent.WriteString(helpKeyStyle.Render(keys))
		helpContent.WriteString("  ")
		helpContent.WriteString(helpDescStyle.Render(desc))
		helpContent.WriteString("\n")
	}

	helpContent.WriteString(helpSectionStyle.Render("Navigation"))
	helpContent.WriteString("\n")
	writeEntry("↑/↓ or k/j", "move selection / bit cursor")
	writeEntry("←/→ or h/l", "move bit cursor")
	writeEntry("pgup/pgdn", "page through the grid")
	writeEntry("home/end", "first / last bit")
	writeEntry("tab", "switch pane")
	helpContent.WriteString("\n")

	helpContent.WriteString(helpSectionStyle.Render("Allocations"))
	helpContent.WriteString("\n")
	writeEntry("a", fmt.Sprintf("allocate a %s block", humanize.IBytes(DefaultBlockSize)))
	writeEntry("g", "grow selected block (doubles)")
	writeEntry("s", "shrink selected block (halves)")
	writeEntry("f", "free selected block")
	writeEntry("t/space", "toggle the bit under the cursor")
	writeEntry("w", "flush selected block to its file")
	helpContent.WriteString("\n")

	helpContent.WriteString(helpSectionStyle.Render("Grid"))
	helpContent.WriteString("\n")
	writeEntry("+/-", "more / fewer columns")
	helpContent.WriteString("\n")

	helpContent.WriteString(helpSectionStyle.Render("General"))
	helpContent.WriteString("\n")
	writeEntry("?", "toggle this help")
	writeEntry("q", "quit")
	helpContent.WriteString("\n")
	helpContent.WriteString(helpStyle.Render("Press ?, esc or q to close"))

	box := paneStyle.Render(helpContent.String())
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}
