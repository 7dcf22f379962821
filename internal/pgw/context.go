package pgw

import (
	"time"

	"github.com/AdguardTeam/golibs/timeutil"
)

// MinContexts and MaxContexts bound the configurable capacity of a
// ContextTable (spec.md §6).
const (
	MinContexts = 2
	MaxContexts = 16
)

// MinContextChangeDelay is the minimum time a context-id must remain
// Expired before it may be reassigned to a different prefix, giving
// 6LNs time to stop using the old compression context (spec.md §4.5).
const MinContextChangeDelay = 1 * time.Hour

// ContextState is a ContextEntry's position in the lifecycle described in
// spec.md §4.5.
type ContextState uint8

// ContextState values.
const (
	NotInUse ContextState = iota
	InUseUncompressOnly
	InUseCompress
	Expired
)

// String implements the fmt.Stringer interface for ContextState.
func (s ContextState) String() (str string) {
	switch s {
	case NotInUse:
		return "not-in-use"
	case InUseUncompressOnly:
		return "in-use-uncompress-only"
	case InUseCompress:
		return "in-use-compress"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// ContextEntry is one 6LoWPAN compression context: an /64 prefix bound to
// a small context-id, with the lifecycle state and expiry spec.md §4.5
// describes.
type ContextEntry struct {
	ID       uint8
	Prefix   [8]byte
	State    ContextState
	expiresAt time.Time
	inUse    bool
}

// ContextTable is a fixed-capacity arena of ContextEntry, indexed by
// context-id (0..capacity-1).
type ContextTable struct {
	clock    timeutil.Clock
	entries  []ContextEntry
	capacity int
}

// NewContextTable returns a ContextTable with room for capacity contexts.
// capacity must be within [MinContexts, MaxContexts].
func NewContextTable(capacity int, clock timeutil.Clock) (t *ContextTable) {
	entries := make([]ContextEntry, capacity)
	for i := range entries {
		entries[i].ID = uint8(i)
	}

	return &ContextTable{clock: clock, entries: entries, capacity: capacity}
}

// LookupByID returns the entry for id, and whether id is within the
// table's capacity (NotInUse entries are returned with ok == true so
// callers can see the id is free; use entry.State to distinguish).
func (t *ContextTable) LookupByID(id uint8) (entry ContextEntry, ok bool) {
	if int(id) >= t.capacity {
		return ContextEntry{}, false
	}

	return t.entries[id], true
}

// LookupByPrefix returns the entry whose Prefix matches prefix and whose
// state is not NotInUse, and whether one was found.
func (t *ContextTable) LookupByPrefix(prefix [8]byte) (entry ContextEntry, ok bool) {
	for _, e := range t.entries {
		if e.State != NotInUse && e.Prefix == prefix {
			return e, true
		}
	}

	return ContextEntry{}, false
}

// EnsureFromPIO finds or creates the context entry for a prefix observed in
// a Router Advertisement's Prefix Information Option, per spec.md §4.5:
// if the prefix already has a context, its lifetime and compress flag are
// refreshed; otherwise a free (NotInUse, or Expired past
// MinContextChangeDelay) slot is claimed. compress controls whether the
// context is usable for 6LoWPAN header compression (InUseCompress) or
// decompression only (InUseUncompressOnly).
func (t *ContextTable) EnsureFromPIO(prefix [8]byte, lifetime time.Duration, compress bool) (id uint8, err error) {
	now := t.clock.Now()

	if e, ok := t.LookupByPrefix(prefix); ok {
		t.setState(e.ID, prefix, lifetime, compress, now)

		return e.ID, nil
	}

	for i := range t.entries {
		e := &t.entries[i]
		if e.State == NotInUse {
			t.setState(e.ID, prefix, lifetime, compress, now)

			return e.ID, nil
		}
	}

	for i := range t.entries {
		e := &t.entries[i]
		if e.State == Expired && now.Sub(e.expiresAt) >= MinContextChangeDelay {
			t.setState(e.ID, prefix, lifetime, compress, now)

			return e.ID, nil
		}
	}

	return 0, ErrContextTableFull
}

func (t *ContextTable) setState(id uint8, prefix [8]byte, lifetime time.Duration, compress bool, now time.Time) {
	e := &t.entries[id]
	e.Prefix = prefix
	e.expiresAt = now.Add(lifetime)
	e.inUse = true
	if compress {
		e.State = InUseCompress
	} else {
		e.State = InUseUncompressOnly
	}
}

// Advance runs the periodic context lifecycle tick described in spec.md
// §4.5: an InUseCompress context whose lifetime has elapsed moves to
// InUseUncompressOnly (still valid for decompressing in-flight traffic,
// but no longer advertised for new compression); an InUseUncompressOnly
// context past its lifetime moves to Expired; Advance does not itself
// free Expired contexts back to NotInUse — EnsureFromPIO reclaims them
// once MinContextChangeDelay has passed.
func (t *ContextTable) Advance(now time.Time) {
	for i := range t.entries {
		e := &t.entries[i]

		switch e.State {
		case InUseCompress:
			if !e.expiresAt.After(now) {
				e.State = InUseUncompressOnly
			}
		case InUseUncompressOnly:
			if !e.expiresAt.After(now) {
				e.State = Expired
				e.expiresAt = now
			}
		}
	}
}
