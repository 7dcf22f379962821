package pgw

import (
	"time"

	"github.com/AdguardTeam/golibs/timeutil"
)

// MaxNeighborEntries is the default capacity of a NeighborCache (spec.md
// §6, MaxNeighborEntries).
const MaxNeighborEntries = 25

// NeighborState is a NeighborEntry's position in the registration state
// machine described in spec.md §4.4.
type NeighborState uint8

// NeighborState values.
const (
	// GarbageCollectible entries were learned passively (e.g. from an
	// overheard NS) and are evictable to make room for a new registration.
	GarbageCollectible NeighborState = iota

	// Tentative entries have an ARO registration in flight (proxy-DAD
	// pending) and are not yet safe to forward traffic to.
	Tentative

	// Registered entries completed proxy-DAD and hold a live ARO
	// registration; they are never evicted to make room for another entry.
	Registered
)

// String implements the fmt.Stringer interface for NeighborState.
func (s NeighborState) String() (str string) {
	switch s {
	case GarbageCollectible:
		return "garbage-collectible"
	case Tentative:
		return "tentative"
	case Registered:
		return "registered"
	default:
		return "unknown"
	}
}

// NeighborEntry is one entry of a NeighborCache: a 6LoWPAN node's IPv6
// address, its EUI-64, and its registration state and timers (spec.md
// §3).
type NeighborEntry struct {
	IP       Ipv6Addr
	EUI64    Eui64
	State    NeighborState
	Lifetime time.Duration // registration lifetime given to the last Add

	// expiresAt is absolute; set on insert/refresh from Lifetime and the
	// clock given to the owning NeighborCache.
	expiresAt time.Time

	// lastUsed drives LRU eviction among GarbageCollectible entries only.
	lastUsed time.Time

	inUse bool
}

// NeighborCache is a fixed-capacity, index-addressed arena of
// NeighborEntry, implementing the registration state machine of spec.md
// §4.4. Entries are addressed by slot index, not pointer, so the arena can
// be a flat array with no embedded pointers (spec.md §9).
type NeighborCache struct {
	clock    timeutil.Clock
	entries  [MaxNeighborEntries]NeighborEntry
	count    int
}

// NewNeighborCache returns an empty NeighborCache that uses clock for all
// timing decisions.
func NewNeighborCache(clock timeutil.Clock) (c *NeighborCache) {
	return &NeighborCache{clock: clock}
}

// LookupByIP returns the slot index and entry for ip, and whether one was
// found.
func (c *NeighborCache) LookupByIP(ip Ipv6Addr) (idx int, entry NeighborEntry, ok bool) {
	for i := range c.entries {
		e := &c.entries[i]
		if e.inUse && e.IP == ip {
			return i, *e, true
		}
	}

	return -1, NeighborEntry{}, false
}

// LookupByEUI64 returns the slot index and entry whose EUI64 is eui, and
// whether one was found.
func (c *NeighborCache) LookupByEUI64(eui Eui64) (idx int, entry NeighborEntry, ok bool) {
	for i := range c.entries {
		e := &c.entries[i]
		if e.inUse && e.EUI64 == eui {
			return i, *e, true
		}
	}

	return -1, NeighborEntry{}, false
}

// Add inserts or refreshes an entry for (ip, eui) with the given initial
// state and lifetime. If an entry for ip already exists under a different
// EUI64, Add returns ErrNeighborDuplicate and makes no change. If the
// cache is full and no GarbageCollectible entry exists to evict (per
// spec.md §4.4, Registered and Tentative entries are never evicted to make
// room), Add returns ErrNeighborCacheFull.
func (c *NeighborCache) Add(ip Ipv6Addr, eui Eui64, state NeighborState, lifetime time.Duration) (idx int, err error) {
	now := c.clock.Now()

	if i, existing, ok := c.LookupByIP(ip); ok {
		if existing.EUI64 != eui {
			return -1, ErrNeighborDuplicate
		}

		c.entries[i].State = state
		c.entries[i].Lifetime = lifetime
		c.entries[i].expiresAt = now.Add(lifetime)
		c.entries[i].lastUsed = now

		return i, nil
	}

	if c.count >= MaxNeighborEntries {
		victim, ok := c.lruGarbageCollectible()
		if !ok {
			return -1, ErrNeighborCacheFull
		}

		c.entries[victim] = NeighborEntry{}
		c.count--
	}

	slot, ok := c.freeSlot()
	if !ok {
		// Unreachable if count bookkeeping is correct, but guard anyway.
		return -1, ErrNeighborCacheFull
	}

	c.entries[slot] = NeighborEntry{
		IP:        ip,
		EUI64:     eui,
		State:     state,
		Lifetime:  lifetime,
		expiresAt: now.Add(lifetime),
		lastUsed:  now,
		inUse:     true,
	}
	c.count++

	return slot, nil
}

// Touch updates an entry's LRU timestamp without changing its state,
// called whenever traffic to or from the neighbor is observed.
func (c *NeighborCache) Touch(idx int) {
	if idx < 0 || idx >= MaxNeighborEntries || !c.entries[idx].inUse {
		return
	}

	c.entries[idx].lastUsed = c.clock.Now()
}

// SetState transitions the entry at idx to state.
func (c *NeighborCache) SetState(idx int, state NeighborState) {
	if idx < 0 || idx >= MaxNeighborEntries || !c.entries[idx].inUse {
		return
	}

	c.entries[idx].State = state
}

// Remove deletes the entry at idx, if any.
func (c *NeighborCache) Remove(idx int) {
	if idx < 0 || idx >= MaxNeighborEntries || !c.entries[idx].inUse {
		return
	}

	c.entries[idx] = NeighborEntry{}
	c.count--
}

// Expire removes every entry whose lifetime has elapsed as of now, per
// spec.md §4.4's periodic-tick expiry rule: "if the reachable timer is
// expired, we delete the NCE, regardless of the NCE's state." A
// GarbageCollectible entry is otherwise only reclaimed under cache pressure
// (lruGarbageCollectible); Expire is what makes the lifetime it was added
// with effective independent of that. It
// returns the removed entries for the caller to act on (e.g. tearing down
// forwarding state).
func (c *NeighborCache) Expire(now time.Time) (expired []NeighborEntry) {
	for i := range c.entries {
		e := &c.entries[i]
		if e.inUse && !e.expiresAt.After(now) {
			expired = append(expired, *e)
			*e = NeighborEntry{}
			c.count--
		}
	}

	return expired
}

// Len returns the number of entries currently occupied.
func (c *NeighborCache) Len() (n int) {
	return c.count
}

// lruGarbageCollectible returns the slot index of the least-recently-used
// GarbageCollectible entry, and whether one exists.
func (c *NeighborCache) lruGarbageCollectible() (idx int, ok bool) {
	idx = -1
	var oldest time.Time

	for i := range c.entries {
		e := &c.entries[i]
		if !e.inUse || e.State != GarbageCollectible {
			continue
		}

		if idx == -1 || e.lastUsed.Before(oldest) {
			idx = i
			oldest = e.lastUsed
		}
	}

	return idx, idx != -1
}

// freeSlot returns the index of an unused slot, if any.
func (c *NeighborCache) freeSlot() (idx int, ok bool) {
	for i := range c.entries {
		if !c.entries[i].inUse {
			return i, true
		}
	}

	return -1, false
}
