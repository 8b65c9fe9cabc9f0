// Command simulator advertises synthetic Ruuvi beacons so the gateway can be
// run end to end without hardware tags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ruuvi-gateway/internal/beacon"
	"ruuvi-gateway/internal/config"
	"ruuvi-gateway/internal/logging"
	"ruuvi-gateway/internal/ruuvi"
)

var version = "dev"
var appName = "ruuvi-simulator"

func main() {
	adapter := flag.String("adapter", "hci0", "BLE adapter to advertise on")
	name := flag.String("name", "Ruuvi SIM0", "advertised local name")
	interval := flag.Duration("interval", 100*time.Millisecond, "BLE advertising interval")
	period := flag.Duration("period", time.Second, "time each reading stays on air")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adv, err := beacon.NewAdvertiser(beacon.Options{
		Adapter:   *adapter,
		LocalName: *name,
		Interval:  *interval,
		Duration:  *period,
	})
	if err != nil {
		slog.Error("advertiser init failed", "error", err)
		os.Exit(1)
	}

	reading := ruuvi.Reading{
		ManufacturerID: 3,
		Humidity:       45,
		Temperature:    21,
		Pressure:       101325,
		Acceleration:   ruuvi.Acceleration{Z: 1000},
		BatteryVoltage: 3000,
	}
	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

	slog.Info("advertising", "adapter", *adapter, "name", *name, "period", *period)
	for {
		if err := adv.Send(ctx, reading); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			slog.Error("advertise failed", "error", err)
			os.Exit(1)
		}
		slog.Debug("advertised reading",
			"T", reading.Temperature, "H", reading.Humidity, "P", reading.Pressure,
		)
		reading = beacon.Walk(reading, rng)
	}

	slog.Info("shutting down")
}
