// Package publish relays decoded readings to an HTTP endpoint.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"ruuvi-gateway/internal/ruuvi"
)

// StatusError reports a non-2xx response from the relay endpoint.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// HTTPPublisher POSTs each reading as JSON to a fixed URL.
// It is safe for concurrent use.
type HTTPPublisher struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewHTTPPublisher(url string, timeout time.Duration, logger *slog.Logger) *HTTPPublisher {
	return &HTTPPublisher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (p *HTTPPublisher) Name() string { return "http" }

// Publish sends r and returns nil when the endpoint answers with a 2xx status.
func (p *HTTPPublisher) Publish(ctx context.Context, r ruuvi.Reading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post reading: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	p.logger.Debug("relayed reading", "url", p.url, "status", resp.StatusCode)
	return nil
}
