package pgw

import "time"

// raPrefixDefaultLifetime is the compression-context lifetime derived from
// a PIO when the gateway injects a matching 6CO; set well below a typical
// PIO valid lifetime so on-link prefixes rotate out of compression use
// promptly if the RA stops repeating them (spec.md §4.5).
const raPrefixDefaultLifetime = 30 * time.Minute

// handleRA implements spec.md §4.6.4: a Router Advertisement from the
// Ethernet segment is forwarded onto LowPan with every prefix from its
// Prefix Information Options registered in the ContextTable and a 6CO appended for each context
// currently in use, so 6LNs learn both the prefix (for autoconfiguration)
// and its compression context id. An RA arriving from anywhere but
// Ethernet is dropped: the gateway is the only router the LowPan segment
// should ever see.
func (p *NDProxy) handleRA(pkt []byte, incoming Interface) (act action, err error) {
	if incoming != Ethernet {
		return dropAction, nil
	}

	p.learnContextsFromRA(pkt)

	out, err := p.Rewriter.Rewrite(pkt, incoming, LowPan)
	if err != nil {
		return dropAction, err
	}

	out = p.appendContextOptions(out)
	fixIPv6PayloadLength(out)
	if err = RecomputeICMPv6Checksum(out); err != nil {
		return dropAction, err
	}

	return action{Verdict: emitVerdict, Outgoing: LowPan, Pkt: out}, nil
}

// learnContextsFromRA walks pkt's options for PIOs and ensures each
// advertised prefix has a ContextTable entry.
func (p *NDProxy) learnContextsFromRA(pkt []byte) {
	opts := pkt[IPv6HeaderLen+ndMessageBodyLen[icmpTypeRA]+icmpv6HeaderLen:]

	_ = walkOptions(opts, func(opt ndOption) bool {
		if opt.typ != optPrefixInfo {
			return true
		}

		pio, err := ParsePIO(opt.raw)
		if err != nil {
			return true
		}

		_, _ = p.Contexts.EnsureFromPIO(pio.Prefix, raPrefixDefaultLifetime, true)

		return true
	})
}

// appendContextOptions appends a 6CO for every ContextTable entry in
// InUseUncompressOnly or InUseCompress state to the end of pkt's option
// area.
func (p *NDProxy) appendContextOptions(pkt []byte) (out []byte) {
	out = pkt

	for id := uint8(0); ; id++ {
		entry, ok := p.Contexts.LookupByID(id)
		if !ok {
			break
		}
		if entry.State == NotInUse || entry.State == Expired {
			continue
		}

		var prefix [16]byte
		copy(prefix[:8], entry.Prefix[:])

		out = AppendSixCO(out, SixCO{
			ContextID:    entry.ID,
			Compress:     entry.State == InUseCompress,
			Lifetime:     uint16(raPrefixDefaultLifetime / time.Minute),
			PrefixLength: 64,
			Prefix:       prefix,
		})
	}

	return out
}
