// Package pgw implements the core of a 6LoWPAN Proxy Gateway (6LP-GW): a
// transparent L2 bridge between an IEEE 802.15.4/6LoWPAN segment and an
// IEEE 802.3/IPv6 segment that proxies IPv6 Neighbor Discovery (RFC 4861)
// into 6LoWPAN-ND (RFC 6775) on behalf of constrained wireless nodes.
package pgw

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Eui64Len is the length in octets of an EUI-64 link-layer address, used on
// the LowPan segment and internally as the bridge's unit of address.
const Eui64Len = 8

// EthMacLen is the length in octets of an Ethernet-48 (IEEE 802.3) address.
const EthMacLen = 6

// Ipv6Len is the length in octets of an IPv6 address.
const Ipv6Len = 16

// Eui64 is an 8-octet IEEE EUI-64 link-layer identifier, as used on the
// LowPan segment and as the BridgeTable's address type.
type Eui64 [Eui64Len]byte

// String returns the colon-separated hex representation of e.
func (e Eui64) String() (s string) {
	return hexColon(e[:])
}

// IsZero reports whether e is the reserved all-zero address.  Per spec.md
// §3, the all-zero EUI-64 is never a real node address: it denotes L2
// multicast/broadcast on ingress (an unset 802.15.4 receiver address) and
// is rejected by BridgeTable.Learn.
func (e Eui64) IsZero() (ok bool) {
	return e == Eui64{}
}

// EthMac is a 6-octet IEEE 802.3 Ethernet hardware address.
type EthMac [EthMacLen]byte

// String returns the colon-separated hex representation of m.
func (m EthMac) String() (s string) {
	return hexColon(m[:])
}

// IsZero reports whether m is the all-zero address.
func (m EthMac) IsZero() (ok bool) {
	return m == EthMac{}
}

// BroadcastEthMac is the Ethernet broadcast address, ff:ff:ff:ff:ff:ff.
var BroadcastEthMac = EthMac{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// IsBroadcast reports whether m is the Ethernet broadcast address.
func (m EthMac) IsBroadcast() (ok bool) {
	return m == BroadcastEthMac
}

// IsMulticast reports whether m has the IEEE 802.3 multicast bit set (the
// low bit of the first octet), which includes the IPv6 multicast mapping
// 33:33:xx:xx:xx:xx and the broadcast address.
func (m EthMac) IsMulticast() (ok bool) {
	return m[0]&0x01 != 0
}

// Ipv6Addr is a 16-octet IPv6 address.
type Ipv6Addr [Ipv6Len]byte

// String returns the canonical-ish colon-hex representation of a.  It is
// intentionally simple (no zero-run compression) since it exists for log
// messages and test failure output, not for wire use.
func (a Ipv6Addr) String() (s string) {
	parts := make([]string, Ipv6Len/2)
	for i := range parts {
		parts[i] = fmt.Sprintf("%x", uint16(a[2*i])<<8|uint16(a[2*i+1]))
	}

	return strings.Join(parts, ":")
}

// IsUnspecified reports whether a is the unspecified address ::.
func (a Ipv6Addr) IsUnspecified() (ok bool) {
	return a == Ipv6Addr{}
}

// IsMulticast reports whether a is an IPv6 multicast address (ff00::/8).
func (a Ipv6Addr) IsMulticast() (ok bool) {
	return a[0] == 0xff
}

// LinkLocalAllNodes is the IPv6 link-local all-nodes multicast address,
// ff02::1.
var LinkLocalAllNodes = Ipv6Addr{0xff, 0x02, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01}

// SolicitedNodeMulticast returns the solicited-node multicast address
// derived from target, ff02::1:ffXX:XXXX, per RFC 4291 §2.7.1.
func SolicitedNodeMulticast(target Ipv6Addr) (mcast Ipv6Addr) {
	mcast = Ipv6Addr{0xff, 0x02, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0xff, target[13], target[14], target[15]}

	return mcast
}

// hexColon renders b as lower-case, colon-separated hex octets.
func hexColon(b []byte) (s string) {
	enc := hex.EncodeToString(b)

	parts := make([]string, len(b))
	for i := range b {
		parts[i] = enc[2*i : 2*i+2]
	}

	return strings.Join(parts, ":")
}

// Interface tags the three logical links the gateway core switches between.
// Undefined on egress means "flood to every interface but the incoming
// one" (spec.md §3).
type Interface uint8

// Interface values.
const (
	// Undefined is the zero value; on egress it means "flood".
	Undefined Interface = iota

	// Ethernet is the IEEE 802.3/IPv6 segment toward the regular router.
	Ethernet

	// LowPan is the IEEE 802.15.4/6LoWPAN wireless segment.
	LowPan

	// Local is the gateway's own host stack.
	Local
)

// String implements the fmt.Stringer interface for Interface.
func (i Interface) String() (s string) {
	switch i {
	case Undefined:
		return "undefined"
	case Ethernet:
		return "ethernet"
	case LowPan:
		return "lowpan"
	case Local:
		return "local"
	default:
		return fmt.Sprintf("Interface(%d)", uint8(i))
	}
}

// floodTargets returns the interfaces a flood (outgoing == Undefined) must
// reach: every interface except incoming.  Order is significant for the
// LowPan-origin case (spec.md §4.7 step 5: Ethernet before Local).
func floodTargets(incoming Interface) (targets []Interface) {
	all := [...]Interface{Ethernet, LowPan, Local}

	targets = make([]Interface, 0, len(all)-1)
	for _, iface := range all {
		if iface != incoming {
			targets = append(targets, iface)
		}
	}

	return targets
}
