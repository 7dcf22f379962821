package pgw

// Emission is one packet the Dispatcher decided to send out, bound for a
// specific interface. Dst is the link-layer address to address the frame
// to on the wire, valid only when HasDst is set; a zero-value Emission with
// HasDst false means "flood" as far as the L2Device is concerned.
type Emission struct {
	Iface  Interface
	Pkt    []byte
	Dst    Eui64
	HasDst bool
}

// Dispatcher implements the packet-forwarding algorithm of spec.md §4.7: it
// learns the sender into the BridgeTable, drops anything that is neither
// ICMPv6 nor UDP, hands ND messages to the NDProxy,
// and otherwise bridges by destination link-layer address, flooding when
// the destination is unknown or the message itself calls for it.
type Dispatcher struct {
	Bridge *BridgeTable
	Proxy  *NDProxy
}

// NewDispatcher returns a Dispatcher wired to bridge and proxy.
func NewDispatcher(bridge *BridgeTable, proxy *NDProxy) (d *Dispatcher) {
	return &Dispatcher{Bridge: bridge, Proxy: proxy}
}

// Input processes one packet that arrived on incoming from a sender whose
// link-layer address is srcAddr (already normalized to the gateway's
// internal EUI-64 representation by the caller, per spec.md §4.2), and
// addressed on the wire to frameDst (valid only if hasFrameDst — false for
// a broadcast/multicast frame or a transport that exposes no address at
// all). It returns the set of Emissions to send. It never mutates pkt's
// backing array when flooding: NDProxy.Process may return a rewritten
// packet backed by the same array it was given, so the flood path keeps
// its own copy of the pre-proxy bytes to hand to every target unaffected
// by the ND rewrite (spec.md §4.7 step 5).
func (d *Dispatcher) Input(
	pkt []byte,
	incoming Interface,
	srcAddr Eui64,
	frameDst Eui64,
	hasFrameDst bool,
) (emissions []Emission, err error) {
	// Step 1: learn the sender.
	if learnErr := d.Bridge.Learn(srcAddr, incoming); learnErr != nil && learnErr != ErrBridgeMulticastAddr {
		return nil, learnErr
	}

	// Network-layer filter: only ICMPv6 and UDP are bridged or proxied.
	const udpProtocolNumber = 17
	if len(pkt) < IPv6HeaderLen || (pkt[6] != icmpv6ProtocolNumber && pkt[6] != udpProtocolNumber) {
		return nil, nil
	}

	// Step 2: snapshot the pre-proxy bytes before NDProxy gets a chance to
	// mutate pkt in place, since a flood may need to emit the original
	// bytes on interfaces the ND rewrite wasn't intended for.
	original := append([]byte(nil), pkt...)

	// Step 3: let NDProxy claim ND messages.
	act, procErr := d.Proxy.Process(pkt, incoming)
	if procErr != nil {
		return nil, procErr
	}

	switch act.Verdict {
	case dropVerdict:
		return nil, nil

	case emitVerdict:
		return []Emission{{Iface: act.Outgoing, Pkt: act.Pkt, Dst: act.Dst, HasDst: act.HasDst}}, nil

	case floodVerdict:
		return floodEmissions(incoming, act.Pkt), nil

	case forwardVerdict:
		// fall through to step 4: plain bridging by destination address.
	}

	// Step 4: destination-address bridging.
	destEUI, isUnicast := d.destinationAddr(original, frameDst, hasFrameDst)
	if !isUnicast {
		return floodEmissions(incoming, original), nil
	}

	iface, ok := d.Bridge.Lookup(destEUI)
	if !ok || iface == incoming {
		return floodEmissions(incoming, original), nil
	}

	return []Emission{{Iface: iface, Pkt: original, Dst: destEUI, HasDst: true}}, nil
}

// destinationAddr extracts the destination link-layer address this
// dispatcher cares about and reports whether it denotes a single node
// (false for multicast/broadcast destinations, which always flood).
//
// frameDst, when the caller has one (hasFrameDst), is the frame's real L2
// destination address as read off the wire and is used directly to drive
// the BridgeTable lookup — this is what lets ordinary unicast traffic
// between two already-bridged nodes forward correctly even when NDProxy
// never registered either address. When the transport can't supply a
// frame destination (e.g. an addressless LowPan socket), this falls back
// to the IPv6 destination's NeighborCache-registered owner, which only
// resolves addresses NDProxy has already seen register.
func (d *Dispatcher) destinationAddr(pkt []byte, frameDst Eui64, hasFrameDst bool) (eui Eui64, isUnicast bool) {
	if len(pkt) < IPv6HeaderLen {
		return Eui64{}, false
	}

	dst := dstAddr(pkt)
	if dst.IsMulticast() {
		return Eui64{}, false
	}

	if hasFrameDst && !frameDst.IsZero() {
		return frameDst, true
	}

	if _, entry, ok := d.Proxy.Neighbors.LookupByIP(dst); ok {
		return entry.EUI64, true
	}

	return Eui64{}, false
}

// floodEmissions builds one Emission per flood target, each carrying the
// same pkt bytes and no destination address.
func floodEmissions(incoming Interface, pkt []byte) (emissions []Emission) {
	targets := floodTargets(incoming)
	emissions = make([]Emission, len(targets))
	for i, t := range targets {
		emissions[i] = Emission{Iface: t, Pkt: pkt}
	}

	return emissions
}
