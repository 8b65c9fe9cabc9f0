package ruuvi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruuvi-gateway/internal/ruuvi"
)

func TestEncode_ReproducesPayload(t *testing.T) {
	for _, payload := range [][]byte{positivePayload, negativePayload} {
		r, err := ruuvi.Decode(ruuvi.RawPacket{ruuvi.CompanyID: payload})
		require.NoError(t, err)

		got, err := ruuvi.Encode(r)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestPacket_DecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   ruuvi.Reading
	}{
		{
			name: "indoor",
			in: ruuvi.Reading{
				ManufacturerID: 3,
				Humidity:       41.5,
				Temperature:    21.25,
				Pressure:       101325,
				Acceleration:   ruuvi.Acceleration{X: -12, Y: 4, Z: 1003},
				BatteryVoltage: 2987,
			},
		},
		{
			name: "freezing",
			in: ruuvi.Reading{
				ManufacturerID: 3,
				Humidity:       93,
				Temperature:    -18.5,
				Pressure:       98120,
				Acceleration:   ruuvi.Acceleration{X: 0, Y: -1000, Z: 0},
				BatteryVoltage: 2650,
			},
		},
		{
			name: "lower bounds",
			in: ruuvi.Reading{
				Pressure: 50000,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ruuvi.Packet(tt.in)
			require.NoError(t, err)
			require.Contains(t, raw, ruuvi.CompanyID)

			got, err := ruuvi.Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.in, got)
		})
	}
}

func TestEncode_Rounding(t *testing.T) {
	b, err := ruuvi.Encode(ruuvi.Reading{Humidity: 50.3, Temperature: -3.456, Pressure: 100000})
	require.NoError(t, err)

	assert.Equal(t, byte(101), b[1])
	assert.Equal(t, byte(0x83), b[2])
	assert.Equal(t, byte(46), b[3])
}

func TestEncode_NegativeZero(t *testing.T) {
	b, err := ruuvi.Encode(ruuvi.Reading{Temperature: -0.001, Pressure: 100000})
	require.NoError(t, err)
	assert.Equal(t, byte(0), b[2], "sign bit must stay clear when the value rounds to zero")
}

func TestEncode_OutOfRange(t *testing.T) {
	valid := ruuvi.Reading{Humidity: 50, Temperature: 20, Pressure: 100000}

	tests := []struct {
		name   string
		mutate func(r *ruuvi.Reading)
	}{
		{name: "negative humidity", mutate: func(r *ruuvi.Reading) { r.Humidity = -1 }},
		{name: "humidity too high", mutate: func(r *ruuvi.Reading) { r.Humidity = 128 }},
		{name: "pressure too low", mutate: func(r *ruuvi.Reading) { r.Pressure = 49999 }},
		{name: "pressure too high", mutate: func(r *ruuvi.Reading) { r.Pressure = 115536 }},
		{name: "temperature too high", mutate: func(r *ruuvi.Reading) { r.Temperature = 128 }},
		{name: "temperature too low", mutate: func(r *ruuvi.Reading) { r.Temperature = -128.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)

			_, err := ruuvi.Encode(r)
			require.ErrorIs(t, err, ruuvi.ErrOutOfRange)

			_, err = ruuvi.Packet(r)
			require.ErrorIs(t, err, ruuvi.ErrOutOfRange)
		})
	}
}
