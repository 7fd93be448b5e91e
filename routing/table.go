// Package routing provides the forwarding table of a learning bridge.
package routing

import (
	"time"

	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/wiring"
)

// Table is a forwarding table that finds the wire leading towards a
// destination address.
type Table interface {
	// FindWire returns the wire towards dst, or nil if the route is unknown.
	FindWire(dst frame.Address) *wiring.Wire

	// Learn records that src can be reached through w.
	Learn(src frame.Address, w *wiring.Wire)

	Clear()
	Len() int

	// Entries returns a copy of the routes.
	Entries() map[frame.Address]*wiring.Wire
}

// NewTable creates a new Table.
func NewTable() Table {
	t := &table{}
	t.t = make(map[frame.Address]*wiring.Wire)

	return t
}

type table struct {
	t map[frame.Address]*wiring.Wire
}

func (t table) FindWire(dst frame.Address) *wiring.Wire {
	return t.t[dst]
}

func (t *table) Learn(src frame.Address, w *wiring.Wire) {
	t.t[src] = w
}

func (t *table) Clear() {
	t.t = make(map[frame.Address]*wiring.Wire)
}

func (t table) Len() int {
	return len(t.t)
}

func (t table) Entries() map[frame.Address]*wiring.Wire {
	entries := make(map[frame.Address]*wiring.Wire, len(t.t))
	for k, v := range t.t {
		entries[k] = v
	}

	return entries
}

// An ExpiringTable forgets all its routes once they get older than the expiry
// interval. It does not run a timer. The age is checked when the owner calls
// ExpireIfStale, which is done before every learning step.
type ExpiringTable struct {
	Table

	expiry    time.Duration
	lastClear time.Time
}

// NewExpiringTable creates an empty ExpiringTable whose age starts at now.
func NewExpiringTable(expiry time.Duration, now time.Time) *ExpiringTable {
	return &ExpiringTable{
		Table:     NewTable(),
		expiry:    expiry,
		lastClear: now,
	}
}

// Expiry returns the expiry interval.
func (t *ExpiringTable) Expiry() time.Duration {
	return t.expiry
}

// LastClear returns when the table was last cleared.
func (t *ExpiringTable) LastClear() time.Time {
	return t.lastClear
}

// ExpireIfStale clears the table and restarts its age if the age exceeds the
// expiry interval. It returns true if the table was cleared.
func (t *ExpiringTable) ExpireIfStale(now time.Time) bool {
	if now.Sub(t.lastClear) <= t.expiry {
		return false
	}

	t.Clear()
	t.lastClear = now

	return true
}
