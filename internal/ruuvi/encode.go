package ruuvi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned by Encode when a field cannot be represented in
// the data format 3 payload.
var ErrOutOfRange = errors.New("value out of range")

// Encode builds the data format 3 payload for r. Humidity is rounded to the
// nearest half percent and temperature to hundredths of a degree.
func Encode(r Reading) ([]byte, error) {
	if r.Humidity < 0 || r.Humidity > 127.5 || math.IsNaN(r.Humidity) {
		return nil, fmt.Errorf("humidity %v: %w", r.Humidity, ErrOutOfRange)
	}
	if r.Pressure < pressureOffset || r.Pressure > pressureOffset+math.MaxUint16 {
		return nil, fmt.Errorf("pressure %d: %w", r.Pressure, ErrOutOfRange)
	}
	msb, lsb, err := encodeTemperature(r.Temperature)
	if err != nil {
		return nil, err
	}

	b := make([]byte, payloadLen)
	b[0] = r.ManufacturerID
	b[1] = byte(math.Round(r.Humidity * 2))
	b[2] = msb
	b[3] = lsb
	binary.BigEndian.PutUint16(b[4:6], uint16(r.Pressure-pressureOffset))
	binary.BigEndian.PutUint16(b[6:8], uint16(r.Acceleration.X))
	binary.BigEndian.PutUint16(b[8:10], uint16(r.Acceleration.Y))
	binary.BigEndian.PutUint16(b[10:12], uint16(r.Acceleration.Z))
	binary.BigEndian.PutUint16(b[12:14], r.BatteryVoltage)
	return b, nil
}

// Packet encodes r and wraps the payload under CompanyID.
func Packet(r Reading) (RawPacket, error) {
	b, err := Encode(r)
	if err != nil {
		return nil, err
	}
	return RawPacket{CompanyID: b}, nil
}

func encodeTemperature(t float64) (msb, lsb byte, err error) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0, 0, fmt.Errorf("temperature %v: %w", t, ErrOutOfRange)
	}
	cents := int(math.Round(math.Abs(t) * 100))
	whole, frac := cents/100, cents%100
	if whole > 0x7F {
		return 0, 0, fmt.Errorf("temperature %v: %w", t, ErrOutOfRange)
	}
	msb = byte(whole)
	if t < 0 && cents != 0 {
		msb |= 0x80
	}
	return msb, byte(frac), nil
}
