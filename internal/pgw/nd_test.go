package pgw_test

import (
	"encoding/binary"
	"testing"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/hogaza-net/pgw6lo/internal/pgw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRouterRole is the EUI-64 newTestProxy's gateway answers to as 6LBR.
var testRouterRole = pgw.Eui64{0xaa}

func newTestProxy() (p *pgw.NDProxy, bridge *pgw.BridgeTable, neighbors *pgw.NeighborCache) {
	bridge = pgw.NewBridgeTable(pgw.MaxBridgeEntries)
	neighbors = pgw.NewNeighborCache(newTestClock())
	contexts := pgw.NewContextTable(pgw.MinContexts, newTestClock())
	rewriter := &pgw.OptionRewriter{}

	p = pgw.NewNDProxy(neighbors, contexts, bridge, rewriter, testRouterRole, newTestClock(), slogutil.NewDiscardLogger())

	return p, bridge, neighbors
}

// buildNSWithARO builds a well-formed registration NS from registrant,
// addressed to router (a gateway's RouterRole EUI-64, mapped to its
// link-local address), carrying an ARO for registeringEUI and a SLLAO.
func buildNSWithARO(router pgw.Eui64, registrant pgw.Ipv6Addr, registeringEUI pgw.Eui64, lifetime uint16) (pkt []byte) {
	routerLL := pgw.LinkLocalFromEUI64(router)

	icmpv6 := []byte{135, 0, 0, 0, 0, 0, 0, 0}
	icmpv6 = append(icmpv6, routerLL[:]...)
	icmpv6 = append(icmpv6, 1, 1, 0, 0, 0, 0, 0, 0) // SLLAO
	icmpv6 = pgw.AppendARO(icmpv6, pgw.ARO{EUI64: registeringEUI, Lifetime: lifetime})

	pkt = make([]byte, pgw.IPv6HeaderLen+len(icmpv6))
	pkt[0] = 0x60
	binary.BigEndian.PutUint16(pkt[4:6], uint16(len(icmpv6)))
	pkt[6] = 58
	pkt[7] = 255
	copy(pkt[8:24], registrant[:])
	copy(pkt[24:40], routerLL[:])
	copy(pkt[pgw.IPv6HeaderLen:], icmpv6)

	return pkt
}

// buildNSWithoutSLLAO builds an NS that is otherwise a well-formed
// registration attempt but omits the SLLAO, which must fall back to plain
// NUD forwarding rather than being treated as a registration.
func buildNSWithoutSLLAO(router pgw.Eui64, registrant pgw.Ipv6Addr, registeringEUI pgw.Eui64, lifetime uint16) (pkt []byte) {
	routerLL := pgw.LinkLocalFromEUI64(router)

	icmpv6 := []byte{135, 0, 0, 0, 0, 0, 0, 0}
	icmpv6 = append(icmpv6, routerLL[:]...)
	icmpv6 = pgw.AppendARO(icmpv6, pgw.ARO{EUI64: registeringEUI, Lifetime: lifetime})

	pkt = make([]byte, pgw.IPv6HeaderLen+len(icmpv6))
	pkt[0] = 0x60
	binary.BigEndian.PutUint16(pkt[4:6], uint16(len(icmpv6)))
	pkt[6] = 58
	pkt[7] = 255
	copy(pkt[8:24], registrant[:])
	copy(pkt[24:40], routerLL[:])
	copy(pkt[pgw.IPv6HeaderLen:], icmpv6)

	return pkt
}

func TestNDProxy_ProxyDAD_Success(t *testing.T) {
	p, _, neighbors := newTestProxy()

	registrant := pgw.Ipv6Addr{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 1}
	eui := pgw.Eui64{1, 2, 3, 4, 5, 6, 7, 8}

	pkt := buildNSWithARO(testRouterRole, registrant, eui, 60)

	act, err := p.Process(pkt, pgw.LowPan)
	require.NoError(t, err)

	assert.Equal(t, pgw.LowPan, act.Outgoing)
	require.NotEmpty(t, act.Pkt)
	assert.Equal(t, uint8(136), act.Pkt[pgw.IPv6HeaderLen]) // NA
	assert.Equal(t, registrant[:], act.Pkt[24:40]) // dst of reply == registrant

	aroOpt := act.Pkt[len(act.Pkt)-16:]
	aro, err := pgw.ParseARO(aroOpt)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), aro.Status) // success

	_, entry, ok := neighbors.LookupByIP(registrant)
	require.True(t, ok)
	assert.Equal(t, pgw.Registered, entry.State)
}

func TestNDProxy_ProxyDAD_Duplicate(t *testing.T) {
	p, _, _ := newTestProxy()

	registrant := pgw.Ipv6Addr{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 1}

	first := buildNSWithARO(testRouterRole, registrant, pgw.Eui64{1}, 60)
	_, err := p.Process(first, pgw.LowPan)
	require.NoError(t, err)

	second := buildNSWithARO(testRouterRole, registrant, pgw.Eui64{2}, 60)
	act, err := p.Process(second, pgw.LowPan)
	require.NoError(t, err)

	aroOpt := act.Pkt[len(act.Pkt)-16:]
	aro, err := pgw.ParseARO(aroOpt)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), aro.Status) // duplicate
}

func TestNDProxy_NS_WithoutSLLAO_FallsBackToNUD(t *testing.T) {
	p, _, neighbors := newTestProxy()

	registrant := pgw.Ipv6Addr{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 1}
	eui := pgw.Eui64{1, 2, 3, 4, 5, 6, 7, 8}

	pkt := buildNSWithoutSLLAO(testRouterRole, registrant, eui, 60)

	act, err := p.Process(pkt, pgw.LowPan)
	require.NoError(t, err)

	// No registration happened: the target (the gateway itself) has no
	// bridge-learned owner to forward toward, so the NS floods unchanged
	// rather than being answered with an NA.
	assert.Equal(t, pgw.Undefined, act.Outgoing)
	assert.Equal(t, pkt, act.Pkt)

	_, _, ok := neighbors.LookupByIP(registrant)
	assert.False(t, ok)
}

func buildRS() (pkt []byte) {
	icmpv6 := []byte{133, 0, 0, 0, 0, 0, 0, 0}

	pkt = make([]byte, pgw.IPv6HeaderLen+len(icmpv6))
	pkt[0] = 0x60
	binary.BigEndian.PutUint16(pkt[4:6], uint16(len(icmpv6)))
	pkt[6] = 58
	pkt[7] = 255
	copy(pkt[pgw.IPv6HeaderLen:], icmpv6)

	return pkt
}

func TestNDProxy_RS_ForwardedToEthernet(t *testing.T) {
	p, _, _ := newTestProxy()

	pkt := buildRS()
	act, err := p.Process(pkt, pgw.LowPan)
	require.NoError(t, err)

	assert.Equal(t, pgw.Ethernet, act.Outgoing)
}

func TestNDProxy_RS_FromEthernetDropped(t *testing.T) {
	p, _, _ := newTestProxy()

	pkt := buildRS()
	act, err := p.Process(pkt, pgw.Ethernet)
	require.NoError(t, err)

	assert.Zero(t, len(act.Pkt))
}

func buildRAWithPIO(prefix [8]byte) (pkt []byte) {
	icmpv6 := make([]byte, 16)
	icmpv6[0] = 134

	pio := make([]byte, 32)
	pio[0] = 3
	pio[1] = 4
	pio[2] = 64
	pio[3] = 0x80 // on-link
	copy(pio[16:24], prefix[:])

	icmpv6 = append(icmpv6, pio...)

	pkt = make([]byte, pgw.IPv6HeaderLen+len(icmpv6))
	pkt[0] = 0x60
	binary.BigEndian.PutUint16(pkt[4:6], uint16(len(icmpv6)))
	pkt[6] = 58
	pkt[7] = 255
	copy(pkt[pgw.IPv6HeaderLen:], icmpv6)

	return pkt
}

func TestNDProxy_RA_InjectsContext(t *testing.T) {
	p, _, _ := newTestProxy()

	prefix := [8]byte{0x20, 0x01, 0x0d, 0xb8}
	pkt := buildRAWithPIO(prefix)

	act, err := p.Process(pkt, pgw.Ethernet)
	require.NoError(t, err)
	assert.Equal(t, pgw.LowPan, act.Outgoing)

	// The appended 6CO should be the last 16 bytes of the emitted packet.
	sixco := act.Pkt[len(act.Pkt)-16:]
	co, err := pgw.ParseSixCO(sixco)
	require.NoError(t, err)
	var wantPrefix [16]byte
	copy(wantPrefix[:8], prefix[:])
	assert.Equal(t, wantPrefix, co.Prefix)
	assert.True(t, co.Compress)
}

func TestNDProxy_RA_FromLowPanDropped(t *testing.T) {
	p, _, _ := newTestProxy()

	pkt := buildRAWithPIO([8]byte{1})
	act, err := p.Process(pkt, pgw.LowPan)
	require.NoError(t, err)
	assert.Zero(t, len(act.Pkt))
}
