package ble

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"ruuvi-gateway/internal/metrics"
	"ruuvi-gateway/internal/ruuvi"
	"ruuvi-gateway/internal/utils"
)

const maxTrackedDevices = 500

// Publisher delivers a decoded reading to one sink.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, r ruuvi.Reading) error
}

type lastSeen struct {
	payload string
	at      time.Time
}

// ReadingHandler decodes advertisements, drops repeats and fans readings out
// to publishers.
type ReadingHandler struct {
	publishers  []Publisher
	dedupWindow time.Duration
	logger      *slog.Logger
	now         func() time.Time

	dedupMu sync.Mutex
	seen    map[string]lastSeen
}

// NewReadingHandler creates a handler. A zero dedupWindow disables repeat
// suppression.
func NewReadingHandler(dedupWindow time.Duration, logger *slog.Logger, publishers ...Publisher) *ReadingHandler {
	return &ReadingHandler{
		publishers:  publishers,
		dedupWindow: dedupWindow,
		logger:      logger,
		now:         time.Now,
		seen:        make(map[string]lastSeen),
	}
}

// HandleAdvertisement processes one advertisement. It returns the published
// reading, or ok=false when the advertisement was dropped.
func (h *ReadingHandler) HandleAdvertisement(ctx context.Context, adv Advertisement) (ruuvi.Reading, bool) {
	metrics.AdvertisementsSeen.Inc()

	r, err := ruuvi.Decode(adv.ManufacturerData)
	switch {
	case errors.Is(err, ruuvi.ErrUnknownManufacturerID):
		metrics.UnknownManufacturer.Inc()
		h.logger.Debug("ble: ignore non-ruuvi advertisement", "addr", adv.Address)
		return ruuvi.Reading{}, false
	case errors.Is(err, ruuvi.ErrUnknownPacketSpecification):
		metrics.UnknownPacket.Inc()
		h.logger.Warn("ble: unsupported ruuvi payload",
			"addr", adv.Address,
			"data", utils.BytesToHex(adv.ManufacturerData[ruuvi.CompanyID]),
			"error", err,
		)
		return ruuvi.Reading{}, false
	case err != nil:
		h.logger.Error("ble: decode failed", "addr", adv.Address, "error", err)
		return ruuvi.Reading{}, false
	}

	if h.isRepeat(adv.Address, adv.ManufacturerData[ruuvi.CompanyID], adv.SeenAt) {
		metrics.ReadingsDuplicate.Inc()
		return ruuvi.Reading{}, false
	}

	metrics.ReadingsDecoded.Inc()
	metrics.ObserveReading(adv.Address, r.Temperature, r.Humidity, r.BatteryVoltage)
	r = r.WithMAC(adv.Address)

	for _, p := range h.publishers {
		err := p.Publish(ctx, r)
		metrics.PublishResult(p.Name(), err)
		if err != nil {
			h.logger.Warn("ble: failed to publish reading", "addr", adv.Address, "sink", p.Name(), "error", err)
		}
	}

	h.logger.Info("ble: ruuvi reading",
		"addr", adv.Address,
		"rssi", adv.RSSI,
		"T", r.Temperature, "H", r.Humidity, "P", r.Pressure,
		"battery_mv", r.BatteryVoltage,
	)
	return r, true
}

// Run consumes advertisements from in until ctx is cancelled or in is closed.
func (h *ReadingHandler) Run(ctx context.Context, in <-chan Advertisement) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case adv, ok := <-in:
			if !ok {
				return nil
			}
			h.HandleAdvertisement(ctx, adv)
		}
	}
}

// isRepeat reports whether addr sent the same payload within the dedup window,
// and records the payload otherwise.
func (h *ReadingHandler) isRepeat(addr string, payload []byte, seenAt time.Time) bool {
	if h.dedupWindow <= 0 {
		return false
	}
	if seenAt.IsZero() {
		seenAt = h.now()
	}
	key := string(payload)

	h.dedupMu.Lock()
	defer h.dedupMu.Unlock()

	if last, ok := h.seen[addr]; ok && last.payload == key && seenAt.Sub(last.at) < h.dedupWindow {
		return true
	}
	if _, ok := h.seen[addr]; !ok && len(h.seen) >= maxTrackedDevices {
		h.seen = make(map[string]lastSeen)
	}
	h.seen[addr] = lastSeen{payload: key, at: seenAt}
	return false
}
