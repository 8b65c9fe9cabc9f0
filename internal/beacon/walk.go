package beacon

import (
	"math"
	"math/rand/v2"

	"ruuvi-gateway/internal/ruuvi"
)

// Walk returns the next simulated reading: temperature, humidity and pressure
// take a small random step and are clamped to what a tag can report, and the
// battery slowly drains.
func Walk(r ruuvi.Reading, rng *rand.Rand) ruuvi.Reading {
	step := func(scale float64) float64 { return (rng.Float64()*2 - 1) * scale }

	r.Temperature = clamp(math.Round((r.Temperature+step(0.25))*100)/100, -40, 85)
	r.Humidity = clamp(math.Round((r.Humidity+step(1))*2)/2, 0, 100)

	p := float64(r.Pressure) + step(20)
	r.Pressure = uint32(clamp(math.Round(p), 87000, 108500))

	r.Acceleration = ruuvi.Acceleration{
		X: int16(step(20)),
		Y: int16(step(20)),
		Z: 1000 + int16(step(20)),
	}
	if r.BatteryVoltage > 2000 && rng.IntN(100) == 0 {
		r.BatteryVoltage--
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
