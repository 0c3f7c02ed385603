// Package viz streams allocation lifecycle events to visualization
// frontends. A Feed is an alloc.Observer whose events land in a buffered
// channel instead of a callback, decoupling slow consumers (a terminal UI
// redrawing, a websocket) from the allocation hot path.
package viz

import (
	"fmt"
	"sync/atomic"

	"github.com/joshuapare/memfile/alloc"
)

// Kind discriminates lifecycle events.
type Kind int

const (
	Created Kind = iota
	Resized
	Freed
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Resized:
		return "resized"
	case Freed:
		return "freed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is one allocation lifecycle transition. Info is a snapshot taken at
// event time; by the time a consumer reads a Freed event the backing file
// and Info.File are already gone, so consumers should key off Addr, Size and
// Path and never touch the handle.
type Event struct {
	Kind Kind
	Info alloc.Info

	// OldAddr and OldSize carry the pre-resize identity for Resized events
	// and are zero otherwise.
	OldAddr uintptr
	OldSize int
}

// DefaultBuffer is the event channel capacity when none is given.
const DefaultBuffer = 256

// Feed forwards allocation events into a buffered channel. Sends never
// block: when the consumer lags and the buffer is full, events are counted
// as dropped instead. Consumers recover from drops by re-reading the
// allocator's State, which is always current.
//
// The channel is never closed; a consumer stops by ceasing to read.
type Feed struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewFeed returns a feed with the given channel capacity. Zero or negative
// selects DefaultBuffer.
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Feed{ch: make(chan Event, buffer)}
}

// Events returns the receive side of the feed.
func (f *Feed) Events() <-chan Event { return f.ch }

// Dropped returns how many events were discarded because the buffer was
// full.
func (f *Feed) Dropped() uint64 { return f.dropped.Load() }

func (f *Feed) AllocationCreated(info alloc.Info) {
	f.send(Event{Kind: Created, Info: info})
}

func (f *Feed) AllocationResized(info, old alloc.Info) {
	f.send(Event{Kind: Resized, Info: info, OldAddr: old.Addr, OldSize: old.Size})
}

func (f *Feed) AllocationFreed(info alloc.Info) {
	f.send(Event{Kind: Freed, Info: info})
}

func (f *Feed) send(ev Event) {
	select {
	case f.ch <- ev:
	default:
		f.dropped.Add(1)
	}
}
