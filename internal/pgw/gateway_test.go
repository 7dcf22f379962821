package pgw_test

import (
	"context"
	"testing"
	"time"

	"github.com/hogaza-net/pgw6lo/internal/pgw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDevice is an L2Device that records every frame written to it
// (and the address it was written to) and never produces any of its own.
type recordingDevice struct {
	written    []byte
	writtenDst pgw.Eui64
	hasDst     bool
	closed     bool
}

func (d *recordingDevice) ReadPacketData() (data []byte, dst pgw.Eui64, hasDst bool, err error) {
	return nil, pgw.Eui64{}, false, nil
}

func (d *recordingDevice) WritePacketData(data []byte, dst pgw.Eui64, hasDst bool) (err error) {
	d.written = append([]byte(nil), data...)
	d.writtenDst = dst
	d.hasDst = hasDst

	return nil
}

func (d *recordingDevice) Close() (err error) {
	d.closed = true

	return nil
}

func newTestGateway(t *testing.T) (gw *pgw.Gateway, eth, lowpan *recordingDevice) {
	t.Helper()

	conf := validTestConfig()
	gw, err := pgw.New(conf)
	require.NoError(t, err)

	eth, lowpan = &recordingDevice{}, &recordingDevice{}
	gw.AttachDevice(pgw.Ethernet, eth)
	gw.AttachDevice(pgw.LowPan, lowpan)

	return gw, eth, lowpan
}

func TestGateway_New_InvalidConfig(t *testing.T) {
	conf := validTestConfig()
	conf.Logger = nil

	_, err := pgw.New(conf)
	assert.Error(t, err)
}

func TestGateway_Input_FloodsToAttachedDevices(t *testing.T) {
	gw, eth, _ := newTestGateway(t)

	dst := pgw.Ipv6Addr{0x20, 1}
	pkt := buildUDPPacket(dst)

	err := gw.Input(context.Background(), pkt, pgw.LowPan, pgw.Eui64{1, 2, 3}, pgw.Eui64{}, false)
	require.NoError(t, err)

	assert.NotEmpty(t, eth.written)
}

func TestGateway_Input_NDRegistrationEmitsToLowPan(t *testing.T) {
	gw, _, lowpan := newTestGateway(t)

	registrant := pgw.Ipv6Addr{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 1}
	pkt := buildNSWithARO(pgw.Eui64{1}, registrant, pgw.Eui64{4, 5, 6}, 60)

	err := gw.Input(context.Background(), pkt, pgw.LowPan, pgw.Eui64{4, 5, 6}, pgw.Eui64{}, false)
	require.NoError(t, err)

	require.NotEmpty(t, lowpan.written)
	assert.Equal(t, uint8(136), lowpan.written[pgw.IPv6HeaderLen]) // NA
	assert.True(t, lowpan.hasDst)
	assert.Equal(t, pgw.Eui64{4, 5, 6}, lowpan.writtenDst)
}

func TestGateway_Poll_DoesNotPanic(t *testing.T) {
	gw, _, _ := newTestGateway(t)

	assert.NotPanics(t, func() { gw.Poll(testNow.Add(time.Hour)) })
}

func TestGateway_Shutdown_ClosesDevices(t *testing.T) {
	gw, eth, lowpan := newTestGateway(t)

	err := gw.Shutdown(context.Background())
	require.NoError(t, err)

	assert.True(t, eth.closed)
	assert.True(t, lowpan.closed)
}

func TestEmptyL2Device_IsNoop(t *testing.T) {
	var dev pgw.EmptyL2Device

	data, _, hasDst, err := dev.ReadPacketData()
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.False(t, hasDst)

	require.NoError(t, dev.WritePacketData([]byte{1, 2, 3}, pgw.Eui64{}, false))
	require.NoError(t, dev.Close())
}
