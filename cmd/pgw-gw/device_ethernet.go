package main

import (
	"fmt"
	"net"

	"github.com/google/gopacket/layers"
	"github.com/mdlayher/ethernet"
	"github.com/mdlayher/packet"

	"github.com/hogaza-net/pgw6lo/internal/pgw"
)

// etherTypeIPv6 is the EtherType value for IPv6 frames.
var etherTypeIPv6 = uint16(layers.EthernetTypeIPv6)

// ethernetDevice is a production pgw.L2Device backed by an AF_PACKET raw
// socket on a real network interface, reading and writing whole Ethernet
// frames carrying IPv6 (spec.md §6's Ethernet L2 driver collaborator).
type ethernetDevice struct {
	conn *packet.Conn
	mtu  int
}

// openEthernetDevice opens ifaceName for raw IPv6 Ethernet frame I/O.
func openEthernetDevice(ifaceName string) (dev *ethernetDevice, err error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("looking up interface %q: %w", ifaceName, err)
	}

	conn, err := packet.Listen(iface, packet.Raw, etherTypeIPv6, nil)
	if err != nil {
		return nil, fmt.Errorf("opening raw socket on %q: %w", ifaceName, err)
	}

	return &ethernetDevice{conn: conn, mtu: iface.MTU}, nil
}

// ReadPacketData implements the pgw.L2Device interface for
// *ethernetDevice, returning the Ethernet payload (the 6LP-GW core works
// in terms of IPv6 packets, not frames) alongside the frame's destination
// MAC mapped to the gateway's internal EUI-64 representation. hasDst is
// false for a broadcast or multicast destination; the Dispatcher then
// resolves the destination from the NeighborCache, or floods.
func (d *ethernetDevice) ReadPacketData() (data []byte, dst pgw.Eui64, hasDst bool, err error) {
	buf := make([]byte, d.mtu+ethernet.HeaderLen)

	n, _, err := d.conn.ReadFrom(buf)
	if err != nil {
		return nil, pgw.Eui64{}, false, fmt.Errorf("reading frame: %w", err)
	}

	var frame ethernet.Frame
	if err = frame.UnmarshalBinary(buf[:n]); err != nil {
		return nil, pgw.Eui64{}, false, fmt.Errorf("unmarshaling frame: %w", err)
	}

	var mac pgw.EthMac
	copy(mac[:], frame.Destination)
	if mac.IsMulticast() || mac.IsBroadcast() {
		return frame.Payload, pgw.Eui64{}, false, nil
	}

	return frame.Payload, pgw.EthMacToEUI64(mac), true, nil
}

// WritePacketData implements the pgw.L2Device interface for
// *ethernetDevice. data is an IPv6 packet; it is wrapped in an Ethernet
// frame addressed to dst (translated to its 6-octet MAC) if hasDst, or to
// the broadcast address otherwise — e.g. for a flooded or not-yet-resolved
// destination (spec.md §4.7's flood steps).
func (d *ethernetDevice) WritePacketData(data []byte, dst pgw.Eui64, hasDst bool) (err error) {
	destMAC := ethernet.Broadcast
	if hasDst {
		mac := pgw.EUI64ToEthMac(dst)
		destMAC = mac[:]
	}

	frame := ethernet.Frame{
		Destination: destMAC,
		Source:      d.conn.Addr().(*packet.Addr).HardwareAddr,
		EtherType:   ethernet.EtherType(etherTypeIPv6),
		Payload:     data,
	}

	raw, err := frame.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}

	_, err = d.conn.WriteTo(raw, &packet.Addr{HardwareAddr: destMAC})
	if err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}

	return nil
}

// Close implements the pgw.L2Device interface for *ethernetDevice.
func (d *ethernetDevice) Close() (err error) {
	return d.conn.Close()
}
