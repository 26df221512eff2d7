package filter

import (
	"errors"
	"sync/atomic"
)

// ErrSuperseded is returned by a load whose result was discarded because a
// newer load for the same view started after it.
var ErrSuperseded = errors.New("superseded by a newer request")

// Generation discards stale responses. Each load takes a ticket with Next;
// only the holder of the latest ticket may apply its result.
type Generation struct {
	n atomic.Uint64
}

// Next issues a new ticket, invalidating all earlier ones.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// Current reports whether ticket is still the latest.
func (g *Generation) Current(ticket uint64) bool {
	return g.n.Load() == ticket
}
