package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"ruuvi-gateway/internal/metrics"
)

// ConnectionChecker reports broker connectivity for /healthz.
type ConnectionChecker interface {
	IsConnected() bool
}

// NewMux registers /healthz and /metrics. mqtt may be nil when the MQTT
// publisher is disabled.
func NewMux(mqtt ConnectionChecker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"mqtt":   mqttStatus(mqtt),
		})
	})
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		metrics.WritePrometheus(w)
	})
	return mux
}

func NewServer(addr string, mux *http.ServeMux, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: requestLogger(logger, mux),
	}
}

func mqttStatus(c ConnectionChecker) string {
	switch {
	case c == nil:
		return "disabled"
	case c.IsConnected():
		return "connected"
	default:
		return "disconnected"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}
