package pgw_test

import (
	"encoding/binary"
	"testing"

	"github.com/hogaza-net/pgw6lo/internal/pgw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestEchoRequest builds a minimal IPv6 + ICMPv6 Echo Request packet
// with a placeholder (wrong) checksum, for RecomputeICMPv6Checksum to fix.
func buildTestEchoRequest() (pkt []byte) {
	pkt = make([]byte, pgw.IPv6HeaderLen+8)
	pkt[0] = 0x60
	binary.BigEndian.PutUint16(pkt[4:6], 8)
	pkt[6] = 58 // ICMPv6
	pkt[7] = 64

	src := []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	dst := []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2}
	copy(pkt[8:24], src)
	copy(pkt[24:40], dst)

	icmpv6 := pkt[pgw.IPv6HeaderLen:]
	icmpv6[0] = 128 // echo request
	icmpv6[1] = 0
	binary.BigEndian.PutUint16(icmpv6[2:4], 0xdead) // wrong checksum, must be overwritten
	binary.BigEndian.PutUint16(icmpv6[4:6], 1)      // identifier
	binary.BigEndian.PutUint16(icmpv6[6:8], 1)      // sequence

	return pkt
}

func TestRecomputeICMPv6Checksum(t *testing.T) {
	pkt := buildTestEchoRequest()

	require.NoError(t, pgw.RecomputeICMPv6Checksum(pkt))

	cs := binary.BigEndian.Uint16(pkt[pgw.IPv6HeaderLen+2 : pgw.IPv6HeaderLen+4])
	assert.NotEqual(t, uint16(0xdead), cs)

	assert.True(t, checksumValid(pkt[8:24], pkt[24:40], pkt[pgw.IPv6HeaderLen:]))
}

func TestRecomputeICMPv6Checksum_Idempotent(t *testing.T) {
	pkt := buildTestEchoRequest()

	require.NoError(t, pgw.RecomputeICMPv6Checksum(pkt))
	first := binary.BigEndian.Uint16(pkt[pgw.IPv6HeaderLen+2 : pgw.IPv6HeaderLen+4])

	require.NoError(t, pgw.RecomputeICMPv6Checksum(pkt))
	second := binary.BigEndian.Uint16(pkt[pgw.IPv6HeaderLen+2 : pgw.IPv6HeaderLen+4])

	assert.Equal(t, first, second)
}

// checksumValid independently verifies the RFC 1071/8200 checksum
// invariant: summing the pseudo-header and the ICMPv6 message (checksum
// field included) in one's complement arithmetic yields 0xffff.
func checksumValid(src, dst, icmpv6 []byte) (ok bool) {
	var sum uint32

	add := func(b []byte) {
		for i := 0; i+1 < len(b); i += 2 {
			sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
		}
		if len(b)%2 == 1 {
			sum += uint32(b[len(b)-1]) << 8
		}
	}

	add(src)
	add(dst)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(icmpv6)))
	add(lenBuf[:])

	var nextHdr [4]byte
	nextHdr[3] = 58
	add(nextHdr[:])

	add(icmpv6)

	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}

	return sum&0xffff == 0xffff
}
