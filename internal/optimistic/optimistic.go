// Package optimistic tracks locally created items that are waiting for the
// server to confirm them. Pending entries are keyed by a local id that never
// collides with, or stands in for, a server id.
package optimistic

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// State tags an entry as awaiting confirmation or confirmed by the server.
type State int

const (
	Pending State = iota
	Confirmed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Confirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// ErrUnknownEntry is returned when a local id does not match a pending entry.
var ErrUnknownEntry = errors.New("no pending entry with that local id")

// Entry is one element of a List.
type Entry[T any] struct {
	State State
	// LocalID is set for entries created through AddPending.
	LocalID string
	Value   T
}

// List is an ordered list of pending and confirmed values.
type List[T any] struct {
	mu      sync.RWMutex
	entries []Entry[T]
}

// NewList returns a list seeded with already confirmed values.
func NewList[T any](confirmed []T) *List[T] {
	l := &List[T]{entries: make([]Entry[T], 0, len(confirmed))}
	for _, v := range confirmed {
		l.entries = append(l.entries, Entry[T]{State: Confirmed, Value: v})
	}
	return l
}

// AddPending appends v as pending and returns its local id.
func (l *List[T]) AddPending(v T) string {
	id := uuid.NewString()
	l.mu.Lock()
	l.entries = append(l.entries, Entry[T]{State: Pending, LocalID: id, Value: v})
	l.mu.Unlock()
	return id
}

// Confirm replaces the pending entry localID with the server's version.
func (l *List[T]) Confirm(localID string, v T) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.State == Pending && e.LocalID == localID {
			l.entries[i] = Entry[T]{State: Confirmed, LocalID: localID, Value: v}
			return nil
		}
	}
	return ErrUnknownEntry
}

// Reject drops the pending entry localID.
func (l *List[T]) Reject(localID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, e := range l.entries {
		if e.State == Pending && e.LocalID == localID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return nil
		}
	}
	return ErrUnknownEntry
}

// Remove drops every confirmed entry matching pred.
func (l *List[T]) Remove(pred func(T) bool) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.entries[:0]
	removed := 0
	for _, e := range l.entries {
		if e.State == Confirmed && pred(e.Value) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return removed
}

// Entries returns a copy of every entry in order.
func (l *List[T]) Entries() []Entry[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry[T](nil), l.entries...)
}

// Confirmed returns the confirmed values in order.
func (l *List[T]) Confirmed() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]T, 0, len(l.entries))
	for _, e := range l.entries {
		if e.State == Confirmed {
			out = append(out, e.Value)
		}
	}
	return out
}

// Pending returns the entries still awaiting confirmation.
func (l *List[T]) Pending() []Entry[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Entry[T]
	for _, e := range l.entries {
		if e.State == Pending {
			out = append(out, e)
		}
	}
	return out
}
