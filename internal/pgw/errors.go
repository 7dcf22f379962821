package pgw

import "github.com/AdguardTeam/golibs/errors"

const (
	// ErrMalformedOption is returned by the OptionRewriter and the ND option
	// walker when an option's length field is zero, or an option is
	// truncated by the end of the buffer.
	ErrMalformedOption errors.Error = "malformed nd option"

	// ErrNeighborCacheFull is returned by NeighborCache.Add when no slot is
	// free and no GarbageCollectible victim exists to evict.
	ErrNeighborCacheFull errors.Error = "neighbor cache full"

	// ErrNeighborDuplicate is returned by NeighborCache.Add when an entry
	// for the given IPv6 address already exists under a different EUI-64.
	ErrNeighborDuplicate errors.Error = "neighbor address already registered to a different eui-64"

	// ErrContextTableFull is returned by ContextTable.EnsureFromPIO when no
	// slot is free for a newly observed prefix.
	ErrContextTableFull errors.Error = "context table full"

	// ErrBridgeMulticastAddr is returned by BridgeTable.Learn when asked to
	// learn the reserved all-zero (multicast) address.
	ErrBridgeMulticastAddr errors.Error = "refusing to learn the multicast address"
)
