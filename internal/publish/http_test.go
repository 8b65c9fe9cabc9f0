package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruuvi-gateway/internal/ruuvi"
)

func testReading(t *testing.T) ruuvi.Reading {
	t.Helper()
	r, err := ruuvi.Decode(ruuvi.RawPacket{
		ruuvi.CompanyID: {3, 171, 5, 31, 192, 7, 2, 215, 2, 223, 255, 247, 11, 95},
	})
	require.NoError(t, err)
	return r.WithMAC("C8:25:2D:8F:1A:0B")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPPublisher_Publish(t *testing.T) {
	var (
		gotMethod string
		gotType   string
		gotBody   map[string]any
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(ts.Close)

	p := NewHTTPPublisher(ts.URL, time.Second, discardLogger())
	require.NoError(t, p.Publish(context.Background(), testReading(t)))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, 3.0, gotBody["manufacturer_id"])
	assert.Equal(t, 85.5, gotBody["humidity"])
	assert.Equal(t, 5.31, gotBody["temperature"])
	assert.Equal(t, 99159.0, gotBody["pressure"])
	assert.Equal(t, map[string]any{"x": 727.0, "y": 735.0, "z": -9.0}, gotBody["acceleration"])
	assert.Equal(t, 2911.0, gotBody["battery_voltage"])
	assert.Equal(t, "C8:25:2D:8F:1A:0B", gotBody["mac"])
}

func TestHTTPPublisher_RoundTrip(t *testing.T) {
	want := testReading(t)

	var got ruuvi.Reading
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	t.Cleanup(ts.Close)

	p := NewHTTPPublisher(ts.URL, time.Second, discardLogger())
	require.NoError(t, p.Publish(context.Background(), want))
	assert.Equal(t, want, got)
}

func TestHTTPPublisher_StatusError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "server error", status: http.StatusInternalServerError},
		{name: "bad request", status: http.StatusBadRequest},
		{name: "not modified", status: http.StatusNotModified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(ts.Close)

			p := NewHTTPPublisher(ts.URL, time.Second, discardLogger())
			err := p.Publish(context.Background(), testReading(t))

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
		})
	}
}

func TestHTTPPublisher_Timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(release) })

	p := NewHTTPPublisher(ts.URL, 50*time.Millisecond, discardLogger())
	err := p.Publish(context.Background(), testReading(t))
	require.Error(t, err)

	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestHTTPPublisher_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewHTTPPublisher(ts.URL, time.Second, discardLogger())
	err := p.Publish(ctx, testReading(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPPublisher_ConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	p := NewHTTPPublisher(url, time.Second, discardLogger())
	require.Error(t, p.Publish(context.Background(), testReading(t)))
}
