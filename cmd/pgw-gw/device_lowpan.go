package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/hogaza-net/pgw6lo/internal/pgw"
)

// lowpanFrameHeaderLen is the length of the framing header used on the
// LowPan process boundary: a 2-octet length prefix followed by an 8-octet
// destination EUI-64 (all-zero meaning "no specific destination", which
// the radio process is expected to broadcast on the 802.15.4 PAN). The
// radio driver on the other end of this socket is inherently addressed
// hardware, unlike Ethernet's broadcast-capable medium, so it needs a
// destination to transmit with even when the gateway itself is only
// bridging, not originating, the frame.
const lowpanFrameHeaderLen = 2 + pgw.Eui64Len

// lowpanDevice is a pgw.L2Device that talks to an external 802.15.4/6LoWPAN
// radio process over a length-prefixed Unix domain socket. The radio driver
// itself (framing 802.15.4 PHY/MAC, 6LoWPAN header compression) is an
// external collaborator outside this module's scope (spec.md §1/§6); this
// device is the process-boundary client for it.
type lowpanDevice struct {
	conn net.Conn
}

// dialLowPanDevice connects to the radio process listening on sockPath.
func dialLowPanDevice(sockPath string) (dev *lowpanDevice, err error) {
	conn, err := net.Dial("unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("dialing lowpan radio socket %q: %w", sockPath, err)
	}

	return &lowpanDevice{conn: conn}, nil
}

// ReadPacketData implements the pgw.L2Device interface for *lowpanDevice:
// it reads one length-and-destination-prefixed decompressed IPv6 packet.
func (d *lowpanDevice) ReadPacketData() (data []byte, dst pgw.Eui64, hasDst bool, err error) {
	var header [lowpanFrameHeaderLen]byte
	if _, err = io.ReadFull(d.conn, header[:]); err != nil {
		return nil, pgw.Eui64{}, false, fmt.Errorf("reading frame header: %w", err)
	}

	length := binary.BigEndian.Uint16(header[:2])
	copy(dst[:], header[2:])

	data = make([]byte, length)
	if _, err = io.ReadFull(d.conn, data); err != nil {
		return nil, pgw.Eui64{}, false, fmt.Errorf("reading frame body: %w", err)
	}

	return data, dst, !dst.IsZero(), nil
}

// WritePacketData implements the pgw.L2Device interface for *lowpanDevice.
func (d *lowpanDevice) WritePacketData(data []byte, dst pgw.Eui64, hasDst bool) (err error) {
	if len(data) > int(^uint16(0)) {
		return fmt.Errorf("packet too large for lowpan framing: %d bytes", len(data))
	}

	var header [lowpanFrameHeaderLen]byte
	binary.BigEndian.PutUint16(header[:2], uint16(len(data)))
	if hasDst {
		copy(header[2:], dst[:])
	}

	if _, err = d.conn.Write(header[:]); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}

	if _, err = d.conn.Write(data); err != nil {
		return fmt.Errorf("writing frame body: %w", err)
	}

	return nil
}

// Close implements the pgw.L2Device interface for *lowpanDevice.
func (d *lowpanDevice) Close() (err error) {
	return d.conn.Close()
}
