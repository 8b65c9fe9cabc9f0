// Package beacon advertises readings in the Ruuvi data format 3 layout so the
// gateway can be exercised without hardware tags.
package beacon

import (
	"context"
	"fmt"
	"time"

	"tinygo.org/x/bluetooth"

	"ruuvi-gateway/internal/ruuvi"
)

type Options struct {
	Adapter   string
	LocalName string
	// Interval is the BLE advertising interval; Duration how long each
	// reading stays on air.
	Interval time.Duration
	Duration time.Duration
}

type Advertiser struct {
	adapter       *bluetooth.Adapter
	advertisement *bluetooth.Advertisement
	opts          Options
}

func NewAdvertiser(opts Options) (*Advertiser, error) {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	if opts.Duration <= 0 {
		opts.Duration = time.Second
	}

	adapter := bluetooth.NewAdapter(opts.Adapter)
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("ble enable (%s): %w", opts.Adapter, err)
	}

	return &Advertiser{
		adapter:       adapter,
		advertisement: adapter.DefaultAdvertisement(),
		opts:          opts,
	}, nil
}

// Send advertises r for the configured duration, or until ctx is done.
func (a *Advertiser) Send(ctx context.Context, r ruuvi.Reading) error {
	payload, err := ruuvi.Encode(r)
	if err != nil {
		return err
	}

	// Re-configure each call so the payload changes.
	err = a.advertisement.Configure(bluetooth.AdvertisementOptions{
		AdvertisementType: bluetooth.AdvertisingTypeNonConnInd,
		LocalName:         a.opts.LocalName,
		Interval:          bluetooth.NewDuration(a.opts.Interval),
		ManufacturerData: []bluetooth.ManufacturerDataElement{
			{CompanyID: ruuvi.CompanyID, Data: payload},
		},
	})
	if err != nil {
		return fmt.Errorf("configure advertisement: %w", err)
	}

	if err := a.advertisement.Start(); err != nil {
		_ = a.advertisement.Stop()
		return fmt.Errorf("start advertisement: %w", err)
	}
	defer func() { _ = a.advertisement.Stop() }()

	timer := time.NewTimer(a.opts.Duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
