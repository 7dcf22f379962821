package pgw

import "time"

// handleNS implements spec.md §4.6.1: a Neighbor Solicitation addressed to
// the gateway itself, carrying an ARO, from a specified source, and
// carrying a SLLAO, is a 6LoWPAN node's registration request and triggers
// proxy-DAD rather than being forwarded as-is. An NS missing any of those
// conditions — not addressed to the gateway, ARO absent, source
// unspecified, or SLLAO absent — is treated as plain NUD traffic: it is
// forwarded toward wherever the target address's owner is known to live,
// with its link-layer-address options translated for that link, or flooded
// unchanged if the owner is unknown, matching the original's precondition
// on entering the registration path (pgw.c:337-345).
func (p *NDProxy) handleNS(pkt []byte, incoming Interface) (act action, err error) {
	target := icmpv6Target(pkt)
	registrant := srcAddr(pkt)

	aro, hasARO, err := p.findARO(pkt)
	if err != nil {
		return dropAction, err
	}

	_, hasSLLAO, err := p.findSLLAO(pkt)
	if err != nil {
		return dropAction, err
	}

	routerLL := LinkLocalFromEUI64(p.RouterRole)
	addressedToRouter := target == routerLL && dstAddr(pkt) == routerLL

	if incoming == LowPan && addressedToRouter && hasARO && !registrant.IsUnspecified() && hasSLLAO {
		return p.handleRegistrationNS(registrant, aro)
	}

	return p.forwardTowardOwner(pkt, incoming, target)
}

// findARO looks for an ARO in an NS/NA's option area and parses it.
func (p *NDProxy) findARO(pkt []byte) (aro ARO, found bool, err error) {
	opts := pkt[IPv6HeaderLen+icmpv6HeaderLen+ndMessageBodyLen[icmpTypeNS]:]

	walkErr := walkOptions(opts, func(opt ndOption) bool {
		if opt.typ == optAddressRegistration {
			aro, err = ParseARO(opt.raw)
			found = err == nil

			return false
		}

		return true
	})
	if walkErr != nil {
		return ARO{}, false, walkErr
	}

	return aro, found, err
}

// findSLLAO reports whether an NS carries a Source Link-Layer Address
// Option, required alongside an ARO for a registration attempt to be
// well-formed (spec.md §4.6.1).
func (p *NDProxy) findSLLAO(pkt []byte) (raw []byte, found bool, err error) {
	opts := pkt[IPv6HeaderLen+icmpv6HeaderLen+ndMessageBodyLen[icmpTypeNS]:]

	walkErr := walkOptions(opts, func(opt ndOption) bool {
		if opt.typ == optSourceLinkLayerAddr {
			raw = opt.raw
			found = true

			return false
		}

		return true
	})
	if walkErr != nil {
		return nil, false, walkErr
	}

	return raw, found, nil
}

// handleRegistrationNS answers a registration NS directly with a Neighbor
// Advertisement carrying the ARO's outcome, rather than forwarding the NS
// itself onto the Ethernet segment. The duplicate check runs against the
// NeighborCache only: no DAD NS is sent on the Ethernet segment and no
// defending NA is awaited, so a successful registration goes from
// Tentative to Registered within this call.
// registrant is the NS's IPv6 source address — the 6LN's own address being
// registered, per the original's pgw_nbr_lookup(&UIP_IP_BUF->srcipaddr)
// (pgw.c:347) — not the NS's Target field, which addresses the gateway.
func (p *NDProxy) handleRegistrationNS(registrant Ipv6Addr, aro ARO) (act action, err error) {
	lifetime := aro.Lifetime
	status := aroStatusSuccess

	existingIdx, existing, exists := p.Neighbors.LookupByIP(registrant)
	switch {
	case exists && existing.EUI64 != aro.EUI64:
		status = aroStatusDuplicate
	case exists:
		p.Neighbors.SetState(existingIdx, Tentative)
	default:
		lt := registrationLifetime(lifetime)
		if _, addErr := p.Neighbors.Add(registrant, aro.EUI64, Tentative, lt); addErr != nil {
			status = aroStatusNeighborCacheFull
		}
	}

	if status == aroStatusSuccess {
		if idx, e, ok := p.Neighbors.LookupByIP(registrant); ok && e.EUI64 == aro.EUI64 {
			p.Neighbors.SetState(idx, Registered)
		}
		_ = p.Bridge.Learn(aro.EUI64, LowPan)
	}

	reply := p.buildProxyNA(registrant, aro.EUI64, status, lifetime)

	return action{Verdict: emitVerdict, Outgoing: LowPan, Pkt: reply, Dst: aro.EUI64, HasDst: true}, nil
}

// registrationLifetime substitutes defaultRegistrationLifetime for a
// zero-minute ARO lifetime; otherwise lifetime is minutes.
func registrationLifetime(minutes uint16) (d time.Duration) {
	if minutes == 0 {
		return defaultRegistrationLifetime
	}

	return time.Duration(minutes) * time.Minute
}

// forwardTowardOwner forwards a plain (non-registration) NS toward the
// interface the target address's owner was last learned on, or floods if
// unknown.
func (p *NDProxy) forwardTowardOwner(pkt []byte, incoming Interface, target Ipv6Addr) (act action, err error) {
	if _, entry, ok := p.Neighbors.LookupByIP(target); ok {
		if iface, bridged := p.Bridge.Lookup(entry.EUI64); bridged && iface != incoming {
			out, rwErr := p.Rewriter.Rewrite(pkt, incoming, iface)
			if rwErr != nil {
				return dropAction, rwErr
			}

			return action{Verdict: emitVerdict, Outgoing: iface, Pkt: out, Dst: entry.EUI64, HasDst: true}, nil
		}
	}

	return action{Verdict: floodVerdict, Outgoing: Undefined, Pkt: pkt}, nil
}
