package pgw

import (
	"math/rand/v2"
	"sync"
)

// MaxBridgeEntries is the default capacity of a BridgeTable (spec.md §6,
// MaxBridgeEntries).
const MaxBridgeEntries = 30

// bridgeEntry is one learned (address, interface) pair.
type bridgeEntry struct {
	addr  Eui64
	iface Interface
}

// BridgeTable is a fixed-capacity learning/forwarding database keyed by
// EUI-64-equivalent link-layer address.  Learning is address-based rather
// than (address, VLAN)-based because the two links the gateway bridges
// carry different frame formats (spec.md §4.1).
//
// BridgeTable is safe for concurrent use: every method holds an internal
// mutex. [NeighborCache] and [ContextTable] have no such lock. The
// gateway's own cooperative event loop (spec.md §5) never calls it
// concurrently.
type BridgeTable struct {
	mu       *sync.Mutex
	entries  []bridgeEntry
	capacity int
}

// NewBridgeTable returns a BridgeTable with the given capacity.  capacity
// must be positive.
func NewBridgeTable(capacity int) (t *BridgeTable) {
	return &BridgeTable{
		mu:       &sync.Mutex{},
		entries:  make([]bridgeEntry, 0, capacity),
		capacity: capacity,
	}
}

// Learn records that addr was seen arriving on iface.  If the pair (addr,
// iface) is already present, Learn does nothing (the entry is not moved or
// refreshed — spec.md §4.1 describes this as a presence check, not an LRU).
// If addr is present only on a different interface, a second entry is
// added.  If addr is the reserved multicast (all-zero) address, Learn
// returns ErrBridgeMulticastAddr and does not insert.  If the table is full,
// a uniformly random entry is evicted before inserting.
func (t *BridgeTable) Learn(addr Eui64, iface Interface) (err error) {
	if addr.IsZero() {
		return ErrBridgeMulticastAddr
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if e.addr == addr && e.iface == iface {
			return nil
		}
	}

	if len(t.entries) >= t.capacity {
		victim := rand.IntN(len(t.entries))
		t.entries[victim] = t.entries[len(t.entries)-1]
		t.entries = t.entries[:len(t.entries)-1]
	}

	t.entries = append(t.entries, bridgeEntry{addr: addr, iface: iface})

	return nil
}

// Lookup returns the interface of the first entry for addr in table order,
// and whether an entry was found at all.  The all-zero multicast address is never present
// and always misses.
func (t *BridgeTable) Lookup(addr Eui64) (iface Interface, ok bool) {
	if addr.IsZero() {
		return Undefined, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if e.addr == addr {
			return e.iface, true
		}
	}

	return Undefined, false
}

// Len returns the number of entries currently learned.
func (t *BridgeTable) Len() (n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}
