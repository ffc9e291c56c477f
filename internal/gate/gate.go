// Package gate implements the busy gate that disables editing while a load
// or store is outstanding.
//
// The gate is coarse: the surface is disabled if and only if at least one
// operation is pending. Operations cannot be cancelled; each one must be
// ended exactly once.
package gate

import (
	"sync"

	"github.com/google/uuid"

	"todoed/backend"
	"todoed/internal/utils"
)

// Kind is the type of a gated operation.
type Kind string

const (
	KindLoad  Kind = "load"
	KindStore Kind = "store"
)

// Ticket identifies one pending operation.
type Ticket struct {
	ID   string
	Kind Kind
	seq  uint64
}

// Gate tracks pending persistence operations.
type Gate struct {
	mu        sync.Mutex
	pending   map[string]Ticket
	seq       uint64
	lastStore uint64
}

// New creates an open gate.
func New() *Gate {
	return &Gate{pending: make(map[string]Ticket)}
}

// Begin registers a pending operation and closes the gate.
func (g *Gate) Begin(kind Kind) Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	t := Ticket{ID: uuid.New().String(), Kind: kind, seq: g.seq}
	g.pending[t.ID] = t
	if kind == KindStore {
		g.lastStore = t.seq
	}
	return t
}

// End marks t as settled with result r. It reports whether r is
// authoritative: loads always are, and of several overlapping stores only
// the most recently begun one is. Ending an unknown ticket is a no-op that
// returns false.
func (g *Gate) End(t Ticket, r backend.Result) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.pending[t.ID]; !ok {
		return false
	}
	delete(g.pending, t.ID)

	if !r.OK() {
		utils.Debugf("%s %s settled: %s", t.Kind, t.ID, r.Reason())
	}
	return t.Kind != KindStore || t.seq == g.lastStore
}

// Busy reports whether any operation is pending.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending) > 0
}

// Pending returns the number of outstanding operations.
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// LoadPending reports whether a load is outstanding. Stores must not begin
// then: the rows do not yet hold what the load will bring.
func (g *Gate) LoadPending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range g.pending {
		if t.Kind == KindLoad {
			return true
		}
	}
	return false
}
