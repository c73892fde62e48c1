// Package broadcast owns the recipient list and the multi-recipient SMS
// broadcast sequence: one attempt per recipient, fixed spacing, aggregate
// success/failure accounting, never an early abort.
package broadcast

import (
	"sync/atomic"
)

// Recipient is a phone-number string in whatever format the coordination
// server hands out (normally E.164).
type Recipient string

// Snapshot is an immutable, versioned view of the recipient list. A running
// broadcast iterates one snapshot; a refresh that lands mid-broadcast only
// affects the next broadcast's snapshot.
type Snapshot struct {
	Version    uint64
	Recipients []Recipient
}

// Directory holds the current recipient list behind an atomic pointer, so
// Replace is a whole-list swap and Snapshot can never observe a
// partially-updated list.
type Directory struct {
	capacity int
	fallback Recipient
	version  atomic.Uint64
	current  atomic.Pointer[Snapshot]
}

// NewDirectory seeds the list with the fallback recipient, so a station that
// never reaches the coordination server still alerts someone.
func NewDirectory(capacity int, fallback Recipient) *Directory {
	d := &Directory{capacity: capacity, fallback: fallback}
	d.Replace(nil)
	return d
}

// Replace swaps in a wholesale new list: truncated to capacity, or the
// single fallback recipient when the new list would otherwise be empty.
// Callers skip Replace entirely on a failed fetch; the previous list stays.
func (d *Directory) Replace(recipients []Recipient) {
	if len(recipients) > d.capacity {
		recipients = recipients[:d.capacity]
	}
	if len(recipients) == 0 {
		recipients = []Recipient{d.fallback}
	}
	snap := &Snapshot{
		Version:    d.version.Add(1),
		Recipients: append([]Recipient(nil), recipients...),
	}
	d.current.Store(snap)
}

// Snapshot returns the current immutable view.
func (d *Directory) Snapshot() Snapshot {
	return *d.current.Load()
}
