package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"ruuvi-gateway/internal/ble"
	"ruuvi-gateway/internal/config"
	"ruuvi-gateway/internal/httpapi"
	"ruuvi-gateway/internal/metrics"
	"ruuvi-gateway/internal/mqtt"
	"ruuvi-gateway/internal/publish"
	"ruuvi-gateway/internal/ruuvi"
)

var errScanEnded = errors.New("ble scan ended")

const (
	advertisementQueue = 64
	shutdownTimeout    = 10 * time.Second
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("initializing gateway",
		"ble_adapter", cfg.BLEAdapter,
		"relay_url", cfg.RelayURL,
		"mqtt_enabled", cfg.MQTTEnabled,
		"http_addr", cfg.HTTPAddr,
	)

	publishers, mqttClient := buildPublishers(cfg, logger)
	if len(publishers) == 0 {
		logger.Warn("no publishers configured; readings are only logged")
	}

	g, gCtx := errgroup.WithContext(ctx)

	if mqttClient != nil {
		g.Go(func() error {
			// Connect retries internally; a broker outage must not stop the gateway.
			if err := mqttClient.Connect(gCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("mqtt connect failed; continuing without mqtt", "error", err)
			}
			<-gCtx.Done()
			mqttClient.Disconnect()
			return nil
		})
	}

	advertisements := make(chan ble.Advertisement, advertisementQueue)
	handler := ble.NewReadingHandler(cfg.DedupWindow, logger, publishers...)
	g.Go(func() error {
		return handler.Run(gCtx, advertisements)
	})

	scanner := ble.NewScanner(ble.Options{
		Adapter: cfg.BLEAdapter,
		Filter: ble.Filter{
			LocalName: cfg.BLELocalName,
			CompanyID: ruuvi.CompanyID,
		},
	}, logger)
	g.Go(func() error {
		return runScan(gCtx, scanner.Run, func(adv ble.Advertisement) {
			select {
			case advertisements <- adv:
			default:
				metrics.AdvertisementsDropped.Inc()
				logger.Warn("ble: advertisement queue full, dropping", "addr", adv.Address)
			}
		})
	})

	if cfg.HTTPAddr != "" {
		var checker httpapi.ConnectionChecker
		if mqttClient != nil {
			checker = mqttClient
		}
		srv := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewMux(checker), logger)

		g.Go(func() error {
			logger.Info("http listening", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			logger.Info("http shutting down")
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	logger.Info("gateway stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

// runScan runs scan until ctx is cancelled. A scan that returns nil while ctx
// is still live yields errScanEnded so the gateway stops.
func runScan(ctx context.Context, scan func(context.Context, func(ble.Advertisement)) error, onAdv func(ble.Advertisement)) error {
	if err := scan(ctx, onAdv); err != nil {
		return err
	}
	if ctx.Err() == nil {
		return errScanEnded
	}
	return nil
}

// buildPublishers returns the configured sinks in publish order. The MQTT
// client is returned separately for lifecycle management; it is nil when
// MQTT is disabled.
func buildPublishers(cfg config.Config, logger *slog.Logger) ([]ble.Publisher, *mqtt.Client) {
	var publishers []ble.Publisher
	if cfg.RelayURL != "" {
		publishers = append(publishers, publish.NewHTTPPublisher(cfg.RelayURL, cfg.RelayTimeout, logger))
	}

	var mqttClient *mqtt.Client
	if cfg.MQTTEnabled {
		mqttClient = mqtt.NewClient(cfg, logger)
		publishers = append(publishers, mqttClient)
	}
	return publishers, mqttClient
}
