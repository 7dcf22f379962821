package pgw

// handleNA implements spec.md §4.6.2: a Neighbor Advertisement is routed
// toward whichever interface the advertised Target is known to live on,
// translating its TLLAO along the way. An NA carrying an ARO (RFC 8505
// extends registration to NAs as well as NSes) completes or refreshes a
// Tentative registration for the NA's source — the registrant — the same
// way a registering NS would (see nd_ns.go's handleRegistrationNS for why
// the source, not the Target field, is the registrant's address).
func (p *NDProxy) handleNA(pkt []byte, incoming Interface) (act action, err error) {
	target := icmpv6Target(pkt)
	registrant := srcAddr(pkt)

	aro, hasARO, err := p.findARO(pkt)
	if err != nil {
		return dropAction, err
	}

	if incoming == LowPan && hasARO {
		p.completeRegistration(registrant, aro)
	}

	return p.forwardTowardOwner(pkt, incoming, target)
}

// completeRegistration transitions a Tentative entry matching (registrant,
// aro.EUI64) to Registered and refreshes its lifetime. It does nothing if
// no matching Tentative entry exists — registration completion without a
// preceding NS-triggered Tentative entry is not a supported path (spec.md
// §4.4).
func (p *NDProxy) completeRegistration(registrant Ipv6Addr, aro ARO) {
	_, entry, ok := p.Neighbors.LookupByIP(registrant)
	if !ok || entry.EUI64 != aro.EUI64 || entry.State != Tentative {
		return
	}

	// Add on an existing (ip, eui) pair refreshes state and lifetime.
	_, _ = p.Neighbors.Add(registrant, aro.EUI64, Registered, registrationLifetime(aro.Lifetime))
	_ = p.Bridge.Learn(aro.EUI64, LowPan)
}

// buildProxyNA constructs a solicited Neighbor Advertisement from the
// gateway, on behalf of registrant, carrying an ARO reporting status,
// destined back to the registering 6LN itself (spec.md §4.6.5). registrant
// is used both as the NA's ICMPv6 Target field and its IPv6 destination —
// the node that asked to be registered is the node being told the outcome.
func (p *NDProxy) buildProxyNA(registrant Ipv6Addr, eui Eui64, status uint8, lifetimeMinutes uint16) (pkt []byte) {
	icmpv6 := make([]byte, 0, icmpv6HeaderLen+20+aroWireLen)
	icmpv6 = append(icmpv6, icmpTypeNA, 0, 0, 0) // type, code, checksum placeholder
	icmpv6 = append(icmpv6, 0x60, 0, 0, 0)        // flags: Solicited|Override, reserved
	icmpv6 = append(icmpv6, registrant[:]...)
	icmpv6 = AppendARO(icmpv6, ARO{Status: status, Lifetime: lifetimeMinutes, EUI64: eui})

	ip := make([]byte, IPv6HeaderLen, IPv6HeaderLen+len(icmpv6))
	ip[0] = 0x60 // version 6
	copy(ip[4:6], []byte{0, 0})
	ip[6] = icmpv6ProtocolNumber
	ip[7] = 255 // hop limit
	routerLL := LinkLocalFromEUI64(p.RouterRole)
	copy(ip[8:24], routerLL[:])
	copy(ip[24:40], registrant[:])

	pkt = append(ip, icmpv6...)
	fixIPv6PayloadLength(pkt)
	_ = RecomputeICMPv6Checksum(pkt)

	return pkt
}
