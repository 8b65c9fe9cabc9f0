package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	BLEAdapter   string
	BLELocalName string
	DedupWindow  time.Duration

	// RelayURL is the endpoint readings are POSTed to. Empty disables the HTTP relay.
	RelayURL     string
	RelayTimeout time.Duration

	MQTTEnabled     bool
	MQTTBroker      string
	MQTTPort        int
	MQTTClientID    string
	MQTTTopicPrefix string
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	// HTTP_ADDR may be set to an empty value on purpose to disable the listener.
	httpAddr, ok := os.LookupEnv("HTTP_ADDR")
	if !ok {
		httpAddr = ":8080"
	}
	httpAddr = strings.TrimSpace(httpAddr)

	bleAdapter := strings.TrimSpace(os.Getenv("BLE_ADAPTER"))
	if bleAdapter == "" {
		bleAdapter = "hci0"
	}
	bleLocalName := strings.TrimSpace(os.Getenv("BLE_LOCAL_NAME"))

	dedupWindowStr := strings.TrimSpace(os.Getenv("DEDUP_WINDOW"))
	if dedupWindowStr == "" {
		dedupWindowStr = "10s"
	}
	dedupWindow, err := time.ParseDuration(dedupWindowStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DEDUP_WINDOW %q: %w", dedupWindowStr, err)
	}
	if dedupWindow < 0 {
		return Config{}, fmt.Errorf("DEDUP_WINDOW must not be negative, got %v", dedupWindow)
	}

	relayURL := strings.TrimSpace(os.Getenv("RELAY_URL"))
	if relayURL != "" {
		u, err := url.Parse(relayURL)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RELAY_URL %q: %w", relayURL, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Config{}, fmt.Errorf("invalid RELAY_URL %q (expected http(s)://host/...)", relayURL)
		}
	}

	relayTimeoutStr := strings.TrimSpace(os.Getenv("RELAY_TIMEOUT"))
	if relayTimeoutStr == "" {
		relayTimeoutStr = "5s"
	}
	relayTimeout, err := time.ParseDuration(relayTimeoutStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid RELAY_TIMEOUT %q: %w", relayTimeoutStr, err)
	}
	if relayTimeout <= 0 {
		return Config{}, fmt.Errorf("RELAY_TIMEOUT must be positive, got %v", relayTimeout)
	}

	mqttEnabledStr := strings.TrimSpace(os.Getenv("MQTT_ENABLED"))
	if mqttEnabledStr == "" {
		mqttEnabledStr = "false"
	}
	mqttEnabled, err := strconv.ParseBool(mqttEnabledStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_ENABLED %q: %w", mqttEnabledStr, err)
	}

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if mqttBroker == "" {
		mqttBroker = "localhost"
	}

	mqttPortStr := strings.TrimSpace(os.Getenv("MQTT_PORT"))
	if mqttPortStr == "" {
		mqttPortStr = "1883"
	}
	mqttPort, err := strconv.Atoi(mqttPortStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", mqttPortStr, err)
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT out of range: %d", mqttPort)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "ruuvi-gateway"
	}

	mqttTopicPrefix := strings.Trim(strings.TrimSpace(os.Getenv("MQTT_TOPIC_PREFIX")), "/")
	if mqttTopicPrefix == "" {
		mqttTopicPrefix = "ruuvi"
	}

	return Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		HTTPAddr:        httpAddr,
		BLEAdapter:      bleAdapter,
		BLELocalName:    bleLocalName,
		DedupWindow:     dedupWindow,
		RelayURL:        relayURL,
		RelayTimeout:    relayTimeout,
		MQTTEnabled:     mqttEnabled,
		MQTTBroker:      mqttBroker,
		MQTTPort:        mqttPort,
		MQTTClientID:    mqttClientID,
		MQTTTopicPrefix: mqttTopicPrefix,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
