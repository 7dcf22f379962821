package pgw

import (
	"encoding/binary"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv6"
)

// IPv6HeaderLen is the fixed length of an IPv6 header (no extension
// headers).
const IPv6HeaderLen = 40

// icmpv6ProtocolNumber is IPPROTO_ICMPV6.
const icmpv6ProtocolNumber = 58

// RecomputeICMPv6Checksum recomputes and writes the ICMPv6 checksum field of
// the ICMPv6 message carried in pkt[IPv6HeaderLen:], using the IPv6 source
// and destination addresses from the IPv6 header at pkt[:IPv6HeaderLen] to
// build the pseudo-header per RFC 8200 §8.1. pkt must be a full IPv6 packet
// (header plus payload) and its IPv6 payload-length field must already
// reflect the actual ICMPv6 payload length.
//
// This is called after OptionRewriter mutates an ND option's size, since
// changing the option changes the checksum (spec.md §4.3).
func RecomputeICMPv6Checksum(pkt []byte) (err error) {
	if len(pkt) < IPv6HeaderLen {
		return ErrMalformedOption
	}

	src := pkt[8:24]
	dst := pkt[24:40]
	icmpv6 := pkt[IPv6HeaderLen:]

	pseudo := icmp.IPv6PseudoHeader(src, dst)
	binary.BigEndian.PutUint32(pseudo[32:36], uint32(len(icmpv6)))

	// Zero the checksum field before summing, per RFC 4443 §2.3.
	icmpv6[2] = 0
	icmpv6[3] = 0

	sum := checksumAdd(pseudo)
	sum = checksumAdd(icmpv6) + sum
	cs := checksumFold(sum)

	binary.BigEndian.PutUint16(icmpv6[2:4], cs)

	return nil
}

// checksumAdd returns the one's-complement sum of b as a 32-bit
// accumulator, per RFC 1071.
func checksumAdd(b []byte) (sum uint32) {
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	if n%2 == 1 {
		sum += uint32(b[n-1]) << 8
	}

	return sum
}

// checksumFold folds a 32-bit accumulator down to the final 16-bit one's
// complement checksum.
func checksumFold(sum uint32) (cs uint16) {
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}

	return ^uint16(sum)
}

// icmpv6MessageType extracts the ICMPv6 type byte from the ICMPv6 header,
// using golang.org/x/net/ipv6's type constants for comparison so callers
// never hand-roll the RFC 4443 numbering.
func icmpv6MessageType(icmpv6 []byte) (typ ipv6.ICMPType, ok bool) {
	if len(icmpv6) < 1 {
		return 0, false
	}

	return ipv6.ICMPType(icmpv6[0]), true
}
