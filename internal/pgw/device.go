package pgw

// L2Device is a link-layer transport the Gateway reads frames from and
// writes frames to for one of its two segments (Ethernet or LowPan),
// generalizing the external L2 driver collaborator of spec.md §6 the way
// dhcpsvc.NetworkDevice generalizes a pcap handle.
//
// Both methods carry the frame's link-layer destination address alongside
// its payload: spec.md §4.7's forwarding algorithm bridges by that address,
// not by an IPv6-address-keyed guess, so the device boundary is where the
// real address has to enter (and leave) the pipeline. hasDst is false for
// a broadcast/multicast frame, or for a transport that cannot supply an
// address at all — in both cases the Dispatcher falls back to the
// NeighborCache entry for the IPv6 destination, and floods if there is
// none.
type L2Device interface {
	// ReadPacketData reads one frame and returns its payload and the
	// frame's destination link-layer address, mapped to the gateway's
	// internal EUI-64 representation.
	ReadPacketData() (data []byte, dst Eui64, hasDst bool, err error)

	// WritePacketData writes a serialized frame to the device, addressed
	// to dst if hasDst, or broadcast/flooded by whatever means the
	// transport provides otherwise.
	WritePacketData(data []byte, dst Eui64, hasDst bool) (err error)

	// Close releases the device. No methods should be called after Close.
	Close() (err error)
}

// EmptyL2Device is a no-op implementation of L2Device, useful as a
// placeholder in tests and as the zero value of a not-yet-configured
// segment.
type EmptyL2Device struct{}

// type check
var _ L2Device = EmptyL2Device{}

// ReadPacketData implements the L2Device interface for EmptyL2Device. It
// always returns no data and a nil error.
func (EmptyL2Device) ReadPacketData() (data []byte, dst Eui64, hasDst bool, err error) {
	return nil, Eui64{}, false, nil
}

// WritePacketData implements the L2Device interface for EmptyL2Device. It
// always returns nil.
func (EmptyL2Device) WritePacketData(_ []byte, _ Eui64, _ bool) (err error) {
	return nil
}

// Close implements the L2Device interface for EmptyL2Device. It always
// returns nil.
func (EmptyL2Device) Close() (err error) {
	return nil
}
