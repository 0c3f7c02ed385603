// Package goid extracts the runtime id of the calling goroutine.
//
// The runtime does not expose goroutine ids on purpose, but the first line of
// a stack trace carries one ("goroutine 123 [running]:"), and parsing it is
// the standard trick for keying per-goroutine state. The id is only ever used
// as an opaque map key; nothing here depends on ids being small or dense.
package goid

import (
	"bytes"
	"runtime"
	"strconv"
)

var prefix = []byte("goroutine ")

// ID returns the id of the calling goroutine.
func ID() uint64 {
	// The header fits comfortably in 64 bytes. runtime.Stack truncates
	// instead of allocating, which matters here: this runs inside allocator
	// bookkeeping.
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	if !bytes.HasPrefix(b, prefix) {
		panic("goid: unexpected runtime.Stack header: " + string(b))
	}
	b = b[len(prefix):]
	end := bytes.IndexByte(b, ' ')
	if end < 0 {
		panic("goid: unexpected runtime.Stack header: " + string(buf[:n]))
	}
	id, err := strconv.ParseUint(string(b[:end]), 10, 64)
	if err != nil {
		panic("goid: parse goroutine id: " + err.Error())
	}
	return id
}
