package pgw

import "encoding/binary"

// icmpv6HeaderLen is the length of the fixed ICMPv6 header (type, code,
// checksum) that precedes the message-specific fields and options.
const icmpv6HeaderLen = 4

// ndMessageBodyLen maps an ND message's ICMPv6 type to the length, in
// octets, of its message-specific fields (after the 4-octet ICMPv6 header
// and before the options area), per RFC 4861 §4.
var ndMessageBodyLen = map[uint8]int{
	icmpTypeNS: 4 + 16,          // Neighbor Solicitation: reserved + target
	icmpTypeNA: 4 + 16,          // Neighbor Advertisement: flags+reserved + target
	icmpTypeRS: 4,               // Router Solicitation: reserved
	icmpTypeRA: 1 + 1 + 2 + 4 + 4, // Router Advertisement: hop limit+flags+lifetime+reachable+retrans
}

// OptionRewriter translates the link-layer-address options (SLLAO/TLLAO) of
// an ND message in place as it crosses between the 6-octet Ethernet segment
// and the 8-octet LowPan segment, and optionally filters RA options that
// don't make sense to forward onto the LowPan segment (spec.md §4.3).
type OptionRewriter struct {
	// FilterRAOptions, when set, drops every option except Prefix
	// Information and 6LoWPAN Context from Router Advertisements forwarded
	// onto the LowPan segment, matching the gateway's OptionFiltering
	// configuration knob.
	FilterRAOptions bool
}

// Rewrite translates the SLLAO/TLLAO options of the ND message contained in
// pkt (a full IPv6 packet: header then ICMPv6) for travel from fromIface to
// toIface, recomputing the IPv6 payload length and ICMPv6 checksum. If pkt
// is not ICMPv6, or the message type isn't one the function recognizes,
// Rewrite returns pkt unchanged and a nil error — matching the original's
// translate_icmp_lladdr, which silently no-ops on anything it doesn't
// understand rather than treating it as an error.
//
// Rewrite may return a different (longer) slice than it was given, since
// growing an option can grow the packet; callers must use the returned
// slice, not assume pkt was mutated in place.
func (r *OptionRewriter) Rewrite(pkt []byte, fromIface, toIface Interface) (out []byte, err error) {
	if len(pkt) < IPv6HeaderLen+icmpv6HeaderLen {
		return pkt, nil
	}
	if pkt[6] != icmpv6ProtocolNumber {
		return pkt, nil
	}

	icmpType := pkt[IPv6HeaderLen]
	bodyLen, known := ndMessageBodyLen[icmpType]
	if !known {
		return pkt, nil
	}

	optsStart := IPv6HeaderLen + icmpv6HeaderLen + bodyLen
	if optsStart > len(pkt) {
		return pkt, ErrMalformedOption
	}

	grow := fromIface == Ethernet && toIface == LowPan
	shrink := fromIface == LowPan && toIface == Ethernet
	if !grow && !shrink {
		if r.FilterRAOptions && icmpType == icmpTypeRA && toIface == LowPan {
			return r.filterRAOptions(pkt, optsStart)
		}

		return pkt, nil
	}

	head := pkt[:optsStart]
	opts := pkt[optsStart:]

	rewritten := make([]byte, 0, len(opts)+8)
	walkErr := walkOptions(opts, func(opt ndOption) bool {
		if opt.typ != optSourceLinkLayerAddr && opt.typ != optTargetLinkLayerAddr {
			rewritten = append(rewritten, opt.raw...)

			return true
		}

		addr := linkLayerAddrOption(opt.raw)
		rewritten = appendTranslatedLLAO(rewritten, opt.typ, addr, grow)

		return true
	})
	if walkErr != nil {
		return pkt, walkErr
	}

	if r.FilterRAOptions && icmpType == icmpTypeRA && toIface == LowPan {
		rewritten = keepOnlyAllowedRAOptions(rewritten)
	}

	out = append(append(out[:0:0], head...), rewritten...)
	fixIPv6PayloadLength(out)

	if err = RecomputeICMPv6Checksum(out); err != nil {
		return pkt, err
	}

	return out, nil
}

// appendTranslatedLLAO appends a SLLAO/TLLAO of typ carrying a
// width-translated copy of addr to dst. If grow, addr is a 6-octet
// Ethernet MAC translated to an 8-octet EUI-64 (option becomes 2 units,
//16 octets, with the trailing 6 octets of padding RFC 6775 mandates for
// EUI-64-carrying LLAOs left zero); otherwise addr is an 8-octet EUI-64
// translated to a 6-octet MAC (option becomes 1 unit, 8 octets).
func appendTranslatedLLAO(dst []byte, typ uint8, addr []byte, grow bool) (out []byte) {
	if grow {
		var mac EthMac
		copy(mac[:], addr)
		eui := EthMacToEUI64(mac)

		raw := make([]byte, 16)
		raw[0] = typ
		raw[1] = 2
		copy(raw[2:10], eui[:])

		return append(dst, raw...)
	}

	var eui Eui64
	copy(eui[:], addr)
	mac := EUI64ToEthMac(eui)

	raw := make([]byte, 8)
	raw[0] = typ
	raw[1] = 1
	copy(raw[2:8], mac[:])

	return append(dst, raw...)
}

// filterRAOptions keeps only the options the gateway forwards onto the
// LowPan segment — PrefixInformation and 6LoWPAN Context — without
// otherwise touching link-layer-address widths, used when source and
// destination interface are both already the same link-layer width.
func (r *OptionRewriter) filterRAOptions(pkt []byte, optsStart int) (out []byte, err error) {
	head := pkt[:optsStart]
	opts := pkt[optsStart:]

	filtered := make([]byte, 0, len(opts))
	walkErr := walkOptions(opts, func(opt ndOption) bool {
		filtered = appendIfAllowed(filtered, opt)

		return true
	})
	if walkErr != nil {
		return pkt, walkErr
	}

	out = append(append([]byte{}, head...), filtered...)
	fixIPv6PayloadLength(out)

	if err = RecomputeICMPv6Checksum(out); err != nil {
		return pkt, err
	}

	return out, nil
}

// keepOnlyAllowedRAOptions re-walks an already-width-translated option area
// dropping everything but PrefixInformation and 6LoWPAN Context options —
// the only RA options the gateway forwards onto the LowPan segment.
func keepOnlyAllowedRAOptions(opts []byte) (out []byte) {
	out = make([]byte, 0, len(opts))
	_ = walkOptions(opts, func(opt ndOption) bool {
		out = appendIfAllowed(out, opt)

		return true
	})

	return out
}

// appendIfAllowed appends opt to dst only if it is PrefixInformation or
// 6LoWPAN Context; every other RA option (SLLAO, MTU, RDNSS, Route
// Information, ...) is dropped before the RA reaches the LowPan segment.
func appendIfAllowed(dst []byte, opt ndOption) (out []byte) {
	if opt.typ != optPrefixInfo && opt.typ != opt6LoWPANContext {
		return dst
	}

	return append(dst, opt.raw...)
}

// fixIPv6PayloadLength rewrites pkt's IPv6 payload-length field to match
// len(pkt) - IPv6HeaderLen, after an option rewrite has grown or shrunk the
// packet.
func fixIPv6PayloadLength(pkt []byte) {
	binary.BigEndian.PutUint16(pkt[4:6], uint16(len(pkt)-IPv6HeaderLen))
}
