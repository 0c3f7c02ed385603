package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/memfile/alloc"
)

// stdinConfirmer asks on the terminal before every file-backed allocation.
// Anything other than an explicit yes declines, so an EOF on stdin declines
// every later allocation rather than hanging.
type stdinConfirmer struct {
	in  *bufio.Scanner
	out io.Writer
}

func newStdinConfirmer(in io.Reader, out io.Writer) *stdinConfirmer {
	return &stdinConfirmer{in: bufio.NewScanner(in), out: out}
}

func (c *stdinConfirmer) Confirm(layout alloc.Layout) bool {
	fmt.Fprintf(c.out, "allocate %s (align %d)? [y/N] ", humanize.IBytes(uint64(layout.Size)), layout.Align)
	if !c.in.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(c.in.Text())) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
