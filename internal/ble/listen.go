package ble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tinygo.org/x/bluetooth"

	"ruuvi-gateway/internal/ruuvi"
	"ruuvi-gateway/internal/utils"
)

// Advertisement is a single observation of a beacon.
type Advertisement struct {
	Address          string
	RSSI             int16
	LocalName        string
	ManufacturerData ruuvi.RawPacket
	SeenAt           time.Time
}

type Filter struct {
	LocalName string
	// CompanyID drops advertisements that carry no manufacturer data for this
	// company. Zero disables the check.
	CompanyID uint16
}

func (f Filter) matches(localName string, data ruuvi.RawPacket) bool {
	if f.LocalName != "" && localName != f.LocalName {
		return false
	}
	if f.CompanyID != 0 {
		if _, ok := data[f.CompanyID]; !ok {
			return false
		}
	}
	return true
}

type Options struct {
	Adapter string // "hci0" by default
	Filter  Filter
}

// Scanner wraps BlueZ scanning with context cancellation.
type Scanner struct {
	adapter *bluetooth.Adapter
	opts    Options
	logger  *slog.Logger
}

func NewScanner(opts Options, logger *slog.Logger) *Scanner {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}

	return &Scanner{
		adapter: bluetooth.NewAdapter(opts.Adapter),
		opts:    opts,
		logger:  logger,
	}
}

// Run scans until ctx is cancelled, calling onAdvertisement for every
// advertisement passing the filter. onAdvertisement runs on the scan callback
// goroutine and should not block for long.
func (s *Scanner) Run(ctx context.Context, onAdvertisement func(Advertisement)) error {
	s.logger.Info("ble: enabling adapter", "adapter", s.opts.Adapter)
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("ble enable (%s): %w", s.opts.Adapter, err)
	}
	s.logger.Info("ble: adapter enabled", "adapter", s.opts.Adapter)

	go func() {
		<-ctx.Done()
		_ = s.adapter.StopScan()
	}()

	s.logger.Info("ble: scanning started",
		"filter_name", s.opts.Filter.LocalName,
		"filter_company", "0x"+utils.Hex4(s.opts.Filter.CompanyID),
	)

	// adapter.Scan blocks until StopScan() or error.
	err := s.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		data := rawPacket(r.ManufacturerData())
		if !s.opts.Filter.matches(r.LocalName(), data) {
			return
		}
		if onAdvertisement != nil {
			onAdvertisement(Advertisement{
				Address:          r.Address.String(),
				RSSI:             r.RSSI,
				LocalName:        r.LocalName(),
				ManufacturerData: data,
				SeenAt:           time.Now(),
			})
		}
	})

	// If ctx canceled, treat as clean shutdown.
	if ctx.Err() != nil {
		s.logger.Info("ble: scanning stopped (context canceled)")
		return nil
	}

	if err != nil {
		return fmt.Errorf("ble scan: %w", err)
	}

	s.logger.Info("ble: scanning stopped")
	return nil
}

// rawPacket copies manufacturer data out of the scan result; the adapter may
// reuse the underlying buffers after the callback returns.
func rawPacket(elems []bluetooth.ManufacturerDataElement) ruuvi.RawPacket {
	out := make(ruuvi.RawPacket, len(elems))
	for _, md := range elems {
		out[md.CompanyID] = append([]byte(nil), md.Data...)
	}
	return out
}
