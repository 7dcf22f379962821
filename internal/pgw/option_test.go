package pgw_test

import (
	"encoding/binary"
	"testing"

	"github.com/hogaza-net/pgw6lo/internal/pgw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildNSWithSLLAO builds an IPv6 + ICMPv6 NS packet carrying a single
// SLLAO option sized for width octets of address (6 for Ethernet, 8 for
// LowPan).
func buildNSWithSLLAO(addr []byte) (pkt []byte) {
	units := 1
	if len(addr) > 6 {
		units = 2
	}
	optLen := units * 8

	body := make([]byte, 4+16)
	target := []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x0a}
	copy(body[4:20], target)

	opt := make([]byte, optLen)
	opt[0] = 1 // SLLAO
	opt[1] = uint8(units)
	copy(opt[2:2+len(addr)], addr)

	icmpv6 := append([]byte{135, 0, 0, 0}, body...)
	icmpv6 = append(icmpv6, opt...)

	pkt = make([]byte, pgw.IPv6HeaderLen+len(icmpv6))
	pkt[0] = 0x60
	binary.BigEndian.PutUint16(pkt[4:6], uint16(len(icmpv6)))
	pkt[6] = 58
	pkt[7] = 255
	copy(pkt[24:40], target) // dst irrelevant for this test
	copy(pkt[pgw.IPv6HeaderLen:], icmpv6)

	return pkt
}

func TestOptionRewriter_GrowEthernetToLowPan(t *testing.T) {
	mac := []byte{0x02, 0x11, 0x22, 0x33, 0x44, 0x55}
	pkt := buildNSWithSLLAO(mac)

	r := &pgw.OptionRewriter{}
	out, err := r.Rewrite(pkt, pgw.Ethernet, pgw.LowPan)
	require.NoError(t, err)

	opts := out[pgw.IPv6HeaderLen+24:]
	require.Len(t, opts, 16)
	assert.Equal(t, uint8(1), opts[0])
	assert.Equal(t, uint8(2), opts[1])

	wantEUI := pgw.EthMacToEUI64(pgw.EthMac{0x02, 0x11, 0x22, 0x33, 0x44, 0x55})
	assert.Equal(t, wantEUI[:], opts[2:10])

	payloadLen := binary.BigEndian.Uint16(out[4:6])
	assert.Equal(t, uint16(len(out)-pgw.IPv6HeaderLen), payloadLen)
}

func TestOptionRewriter_ShrinkLowPanToEthernet(t *testing.T) {
	eui := []byte{0x00, 0x11, 0x22, 0xff, 0xfe, 0x33, 0x44, 0x55}
	pkt := buildNSWithSLLAO(eui)

	r := &pgw.OptionRewriter{}
	out, err := r.Rewrite(pkt, pgw.LowPan, pgw.Ethernet)
	require.NoError(t, err)

	opts := out[pgw.IPv6HeaderLen+24:]
	require.Len(t, opts, 8)
	assert.Equal(t, uint8(1), opts[0])
	assert.Equal(t, uint8(1), opts[1])

	var euiArr pgw.Eui64
	copy(euiArr[:], eui)
	wantMAC := pgw.EUI64ToEthMac(euiArr)
	assert.Equal(t, wantMAC[:], opts[2:8])
}

func TestOptionRewriter_NonICMPv6Noop(t *testing.T) {
	pkt := make([]byte, pgw.IPv6HeaderLen+8)
	pkt[6] = 17 // UDP

	r := &pgw.OptionRewriter{}
	out, err := r.Rewrite(pkt, pgw.Ethernet, pgw.LowPan)
	require.NoError(t, err)
	assert.Equal(t, pkt, out)
}
