package pgw

import "encoding/binary"

// ND option type numbers used by this package. SLLAO/TLLAO/PIO values are
// the standard RFC 4861 numbering; ARO and 6CO are RFC 6775 (type 131 and
// 32 respectively — 33 is ABRO, a different option this package doesn't
// use).
const (
	optSourceLinkLayerAddr = 1   // SLLAO
	optTargetLinkLayerAddr = 2   // TLLAO
	optPrefixInfo          = 3   // PIO
	optAddressRegistration = 131 // ARO
	opt6LoWPANContext      = 32  // 6CO
)

// optHeaderLen is the 2-octet type+length header common to every ND option.
const optHeaderLen = 2

// optUnitLen is the unit, in octets, that an ND option's length field
// counts in (RFC 4861 §4.6).
const optUnitLen = 8

// ndOption is one option found while walking an ND message's option area:
// typ and the full raw option including its 2-octet header, sized to a
// multiple of optUnitLen.
type ndOption struct {
	typ  uint8
	raw  []byte
	off  int // offset of raw within the original buffer
}

// walkOptions iterates the ND options in buf, calling yield for each in
// order. It stops and returns ErrMalformedOption if an option's length
// field is zero or an option would run past the end of buf. If yield
// returns false, the walk stops early with a nil error.
func walkOptions(buf []byte, yield func(ndOption) bool) (err error) {
	off := 0
	for off < len(buf) {
		if off+optHeaderLen > len(buf) {
			return ErrMalformedOption
		}

		length := int(buf[off+1]) * optUnitLen
		if length == 0 || off+length > len(buf) {
			return ErrMalformedOption
		}

		opt := ndOption{typ: buf[off], raw: buf[off : off+length], off: off}
		if !yield(opt) {
			return nil
		}

		off += length
	}

	return nil
}

// ARO is the Address Registration Option (RFC 6775 §4.1): type 131, fixed
// length 2 (16 octets).
type ARO struct {
	Status       uint8
	Lifetime     uint16 // minutes
	EUI64        Eui64
}

// aroWireLen is the total wire length of an ARO in octets (type, length,
// status, 1 reserved octet, 2 reserved octets, lifetime, eui-64).
const aroWireLen = 16

// ParseARO decodes an ARO from its raw option bytes (including the 2-octet
// type+length header). It returns ErrMalformedOption if raw is not exactly
// aroWireLen octets or its type/length fields don't match.
func ParseARO(raw []byte) (aro ARO, err error) {
	if len(raw) != aroWireLen || raw[0] != optAddressRegistration || raw[1] != aroWireLen/optUnitLen {
		return ARO{}, ErrMalformedOption
	}

	aro.Status = raw[2]
	aro.Lifetime = binary.BigEndian.Uint16(raw[6:8])
	copy(aro.EUI64[:], raw[8:16])

	return aro, nil
}

// AppendARO appends the wire encoding of aro to buf and returns the result.
func AppendARO(buf []byte, aro ARO) (out []byte) {
	var raw [aroWireLen]byte
	raw[0] = optAddressRegistration
	raw[1] = aroWireLen / optUnitLen
	raw[2] = aro.Status
	// raw[3:6] reserved, left zero.
	binary.BigEndian.PutUint16(raw[6:8], aro.Lifetime)
	copy(raw[8:16], aro.EUI64[:])

	return append(buf, raw[:]...)
}

// SixCO is the 6LoWPAN Context Option (RFC 6775 §4.2): type 32, length
// either 2 units (16 octets, an 8-octet prefix) for PrefixLength <= 64, or
// 3 units (24 octets, a 16-octet prefix) for PrefixLength in 65..128
// (spec.md §8). Only the first PrefixLength bits of Prefix are meaningful;
// the rest is padding.
type SixCO struct {
	ContextID    uint8
	Compress     bool
	Lifetime     uint16 // minutes
	PrefixLength uint8
	Prefix       [16]byte
}

// sixCOWireLen2Unit and sixCOWireLen3Unit are the two wire lengths a 6CO
// may take, per RFC 6775 §4.2: 2 units for an 8-octet (<=/64) prefix, 3
// units for a 16-octet (<=/128) prefix.
const (
	sixCOWireLen2Unit = 16
	sixCOWireLen3Unit = 24
)

// ParseSixCO decodes a 6CO from its raw option bytes, accepting either the
// 2-unit or 3-unit wire form.
func ParseSixCO(raw []byte) (co SixCO, err error) {
	if len(raw) < optHeaderLen || raw[0] != opt6LoWPANContext {
		return SixCO{}, ErrMalformedOption
	}

	var prefixLen int
	switch {
	case len(raw) == sixCOWireLen2Unit && raw[1] == sixCOWireLen2Unit/optUnitLen:
		prefixLen = 8
	case len(raw) == sixCOWireLen3Unit && raw[1] == sixCOWireLen3Unit/optUnitLen:
		prefixLen = 16
	default:
		return SixCO{}, ErrMalformedOption
	}

	co.PrefixLength = raw[2]
	co.ContextID = raw[3] & 0x0f
	co.Compress = raw[3]&0x10 != 0
	co.Lifetime = binary.BigEndian.Uint16(raw[6:8])
	copy(co.Prefix[:prefixLen], raw[8:8+prefixLen])

	return co, nil
}

// AppendSixCO appends the wire encoding of co to buf and returns the
// result: the 2-unit form if co.PrefixLength <= 64, the 3-unit form
// otherwise.
func AppendSixCO(buf []byte, co SixCO) (out []byte) {
	wireLen := sixCOWireLen2Unit
	prefixLen := 8
	if co.PrefixLength > 64 {
		wireLen = sixCOWireLen3Unit
		prefixLen = 16
	}

	raw := make([]byte, wireLen)
	raw[0] = opt6LoWPANContext
	raw[1] = uint8(wireLen / optUnitLen)
	raw[2] = co.PrefixLength
	raw[3] = co.ContextID & 0x0f
	if co.Compress {
		raw[3] |= 0x10
	}
	// raw[4:6] reserved, left zero.
	binary.BigEndian.PutUint16(raw[6:8], co.Lifetime)
	copy(raw[8:8+prefixLen], co.Prefix[:prefixLen])

	return append(buf, raw...)
}

// PIO is the subset of the Prefix Information Option (RFC 4861 §4.6.2) the
// gateway reads to learn prefixes for the ContextTable.
type PIO struct {
	PrefixLength uint8
	OnLink       bool
	Autonomous   bool
	ValidLifetime uint32
	Prefix       [8]byte // first 8 octets of the prefix
}

// pioWireLen is the wire length of a PIO (4 units, 32 octets).
const pioWireLen = 32

// ParsePIO decodes a PIO from its raw option bytes.
func ParsePIO(raw []byte) (pio PIO, err error) {
	if len(raw) != pioWireLen || raw[0] != optPrefixInfo || raw[1] != pioWireLen/optUnitLen {
		return PIO{}, ErrMalformedOption
	}

	pio.PrefixLength = raw[2]
	pio.OnLink = raw[3]&0x80 != 0
	pio.Autonomous = raw[3]&0x40 != 0
	pio.ValidLifetime = binary.BigEndian.Uint32(raw[4:8])
	copy(pio.Prefix[:], raw[16:24])

	return pio, nil
}

// linkLayerAddrOption decodes the EthMac or Eui64 carried in a SLLAO/TLLAO,
// whose address field fills the remainder of the option after the 2-octet
// header: 6 octets on the Ethernet link, 8 on the LowPan link.
func linkLayerAddrOption(raw []byte) (addr []byte) {
	return raw[optHeaderLen:]
}
