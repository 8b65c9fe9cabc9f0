// Package metrics holds the gateway counters exposed on /metrics.
package metrics

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

var (
	AdvertisementsSeen    = metrics.NewCounter("ruuvi_advertisements_total")                       //nolint:gochecknoglobals
	AdvertisementsDropped = metrics.NewCounter("ruuvi_advertisements_dropped_total")               //nolint:gochecknoglobals
	ReadingsDecoded       = metrics.NewCounter("ruuvi_readings_decoded_total")                     //nolint:gochecknoglobals
	ReadingsDuplicate     = metrics.NewCounter("ruuvi_readings_duplicate_total")                   //nolint:gochecknoglobals
	UnknownManufacturer   = metrics.NewCounter(`ruuvi_decode_errors_total{reason="manufacturer"}`) //nolint:gochecknoglobals
	UnknownPacket         = metrics.NewCounter(`ruuvi_decode_errors_total{reason="packet"}`)       //nolint:gochecknoglobals
)

// ObserveReading records the latest physical values reported by a device.
// Values may be negative.
func ObserveReading(mac string, temperatureC, humidityPct float64, batteryMV uint16) {
	metrics.GetOrCreateGauge(fmt.Sprintf(`ruuvi_temperature_celsius{mac=%q}`, mac), nil).Set(temperatureC)
	metrics.GetOrCreateGauge(fmt.Sprintf(`ruuvi_humidity_percent{mac=%q}`, mac), nil).Set(humidityPct)
	metrics.GetOrCreateGauge(fmt.Sprintf(`ruuvi_battery_voltage_mv{mac=%q}`, mac), nil).Set(float64(batteryMV))
}

// PublishResult counts one publish attempt for the named sink.
func PublishResult(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.GetOrCreateCounter(fmt.Sprintf(`ruuvi_publish_total{sink=%q,result=%q}`, sink, result)).Inc()
}

// WritePrometheus writes every registered metric in text exposition format.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
