package ruuvi

import (
	"encoding/binary"
	"errors"
)

// CompanyID is the Bluetooth SIG company identifier assigned to Ruuvi Innovations.
const CompanyID uint16 = 0x0499

// Data format 3 payload (big-endian): format uint8, humidity uint8 (0.5%),
// temperature msb/lsb (sign-magnitude), pressure uint16 (Pa - 50000),
// acceleration x/y/z int16 (mG), battery uint16 (mV). 14 bytes total.
const (
	payloadLen     = 14
	pressureOffset = 50000
)

var (
	// ErrUnknownManufacturerID is returned when the packet has no entry for CompanyID.
	ErrUnknownManufacturerID = errors.New("unknown manufacturer id")
	// ErrUnknownPacketSpecification is returned when the CompanyID entry does not
	// have the expected structure.
	ErrUnknownPacketSpecification = errors.New("unknown packet specification")
)

// RawPacket maps a manufacturer identifier to its manufacturer-specific data,
// as carried in a BLE advertisement.
type RawPacket map[uint16][]byte

// Acceleration holds the raw per-axis acceleration in milli-g.
type Acceleration struct {
	X int16 `json:"x"`
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

// Reading is one decoded sensor snapshot.
type Reading struct {
	ManufacturerID uint8        `json:"manufacturer_id"`
	Humidity       float64      `json:"humidity"`
	Temperature    float64      `json:"temperature"`
	Pressure       uint32       `json:"pressure"`
	Acceleration   Acceleration `json:"acceleration"`
	BatteryVoltage uint16       `json:"battery_voltage"`
	MAC            *string      `json:"mac"`
}

// WithMAC returns a copy of r with the device address set.
func (r Reading) WithMAC(addr string) Reading {
	r.MAC = &addr
	return r
}

// Decode parses the Ruuvi entry of raw into a Reading.
// Bytes past the fixed payload length are ignored.
func Decode(raw RawPacket) (Reading, error) {
	data, ok := raw[CompanyID]
	if !ok {
		return Reading{}, ErrUnknownManufacturerID
	}
	if len(data) < payloadLen {
		return Reading{}, ErrUnknownPacketSpecification
	}

	return Reading{
		ManufacturerID: data[0],
		Humidity:       float64(data[1]) / 2,
		Temperature:    parseTemperature(data[2], data[3]),
		Pressure:       uint32(binary.BigEndian.Uint16(data[4:6])) + pressureOffset,
		Acceleration: Acceleration{
			X: int16(binary.BigEndian.Uint16(data[6:8])),
			Y: int16(binary.BigEndian.Uint16(data[8:10])),
			Z: int16(binary.BigEndian.Uint16(data[10:12])),
		},
		BatteryVoltage: binary.BigEndian.Uint16(data[12:14]),
	}, nil
}

// parseTemperature decodes the sign-magnitude temperature: bit 7 of msb is the
// sign, the low 7 bits the whole degrees and lsb the hundredths.
func parseTemperature(msb, lsb byte) float64 {
	integer := float64(msb & 0x7F)
	decimal := float64(lsb) / 100
	if msb&0x80 == 0 {
		return integer + decimal
	}
	t := -(integer + decimal)
	if t == 0 {
		// Normalize -0 so it never shows up on the wire.
		return 0
	}
	return t
}
