package pgw

// AddressTranslator converts between the two link-layer address widths the
// gateway bridges, and derives the link-local IPv6 address a 6LoWPAN node's
// EUI-64 maps to.  All operations are pure functions; there is no state and
// no requirement that applying a translation twice round-trips — callers
// must know which direction they need (spec.md §4.2).

// EUI64ToEthMac maps an 8-octet EUI-64 to a 6-octet Ethernet address by
// dropping the fixed 0xfffe middle octets: eth[0:3] = eui[0:3],
// eth[3:6] = eui[5:8].
func EUI64ToEthMac(eui Eui64) (mac EthMac) {
	copy(mac[0:3], eui[0:3])
	copy(mac[3:6], eui[5:8])

	return mac
}

// EthMacToEUI64 maps a 6-octet Ethernet address to the canonical 8-octet
// EUI-64 the gateway uses internally for it, inserting the fixed
// 0xff 0xfe middle octets: eui[0:3] = eth[0:3], eui[3] = 0xff,
// eui[4] = 0xfe, eui[5:8] = eth[3:6].
//
// EUI64ToEthMac and EthMacToEUI64 are inverses on EUI-64s of the exact form
// produced by EthMacToEUI64 (aa:bb:cc:ff:fe:dd:ee:ff); an arbitrary EUI-64
// (e.g. a real, burned-in 802.15.4 address) loses information when mapped
// to Ethernet-48 and back.
func EthMacToEUI64(mac EthMac) (eui Eui64) {
	copy(eui[0:3], mac[0:3])
	eui[3] = 0xff
	eui[4] = 0xfe
	copy(eui[5:8], mac[3:6])

	return eui
}

// LinkLocalFromEUI64 derives the link-local IPv6 address fe80::/64 + the
// modified-EUI-64 interface identifier: the prefix fe80:: is prepended and
// the Universal/Local bit (0x02) of the EUI-64's first octet is flipped per
// RFC 4291 appendix A.
func LinkLocalFromEUI64(eui Eui64) (addr Ipv6Addr) {
	addr[0] = 0xfe
	addr[1] = 0x80
	// addr[2:8] stay zero: the rest of the /64 prefix.
	addr[8] = eui[0] ^ 0x02
	copy(addr[9:16], eui[1:8])

	return addr
}
