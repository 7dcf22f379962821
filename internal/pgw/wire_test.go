package pgw_test

import (
	"testing"

	"github.com/hogaza-net/pgw6lo/internal/pgw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestARORoundTrip(t *testing.T) {
	aro := pgw.ARO{
		Status:   0,
		Lifetime: 60,
		EUI64:    pgw.Eui64{1, 2, 3, 4, 5, 6, 7, 8},
	}

	raw := pgw.AppendARO(nil, aro)
	assert.Len(t, raw, 16)

	got, err := pgw.ParseARO(raw)
	require.NoError(t, err)
	assert.Equal(t, aro, got)
}

func TestParseARO_BadLength(t *testing.T) {
	_, err := pgw.ParseARO([]byte{131, 1, 0, 0})
	assert.ErrorIs(t, err, pgw.ErrMalformedOption)
}

func TestSixCORoundTrip_2Unit(t *testing.T) {
	co := pgw.SixCO{
		ContextID:    3,
		Compress:     true,
		Lifetime:     120,
		PrefixLength: 64,
		Prefix:       [16]byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0},
	}

	raw := pgw.AppendSixCO(nil, co)
	assert.Len(t, raw, 16)

	got, err := pgw.ParseSixCO(raw)
	require.NoError(t, err)
	assert.Equal(t, co, got)
}

func TestSixCORoundTrip_3Unit(t *testing.T) {
	co := pgw.SixCO{
		ContextID:    4,
		Compress:     false,
		Lifetime:     60,
		PrefixLength: 128,
		Prefix:       [16]byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
	}

	raw := pgw.AppendSixCO(nil, co)
	assert.Len(t, raw, 24)

	got, err := pgw.ParseSixCO(raw)
	require.NoError(t, err)
	assert.Equal(t, co, got)
}

func TestParseSixCO_BadLength(t *testing.T) {
	_, err := pgw.ParseSixCO([]byte{32, 1, 0, 0})
	assert.ErrorIs(t, err, pgw.ErrMalformedOption)
}

func TestParsePIO(t *testing.T) {
	raw := make([]byte, 32)
	raw[0] = 3
	raw[1] = 4
	raw[2] = 64
	raw[3] = 0xc0 // on-link + autonomous
	raw[4], raw[5], raw[6], raw[7] = 0, 0, 0x0e, 0x10
	copy(raw[16:24], []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0})

	pio, err := pgw.ParsePIO(raw)
	require.NoError(t, err)
	assert.Equal(t, uint8(64), pio.PrefixLength)
	assert.True(t, pio.OnLink)
	assert.True(t, pio.Autonomous)
	assert.Equal(t, uint32(0x0e10), pio.ValidLifetime)
}
