//go:build e2e

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"ruuvi-gateway/internal/config"
	"ruuvi-gateway/internal/ruuvi"
)

func startMosquitto(t *testing.T) (string, int) {
	t.Helper()

	ctx := context.Background()
	req := tc.ContainerRequest{
		// 1.6 accepts anonymous clients on 1883 without a config file.
		Image:        "eclipse-mosquitto:1.6",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp").WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "1883/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, port.Int()
}

func TestE2E_PublishReading(t *testing.T) {
	host, port := startMosquitto(t)

	received := make(chan []byte, 1)
	subOpts := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", host, port)).
		SetClientID("ruuvi-gateway-e2e-sub")
	sub := paho.NewClient(subOpts)
	if tok := sub.Connect(); !tok.WaitTimeout(10*time.Second) || tok.Error() != nil {
		t.Fatalf("subscriber connect: %v", tok.Error())
	}
	t.Cleanup(func() { sub.Disconnect(100) })

	tok := sub.Subscribe("e2e/+/reading", 1, func(_ paho.Client, m paho.Message) {
		select {
		case received <- m.Payload():
		default:
		}
	})
	if !tok.WaitTimeout(5*time.Second) || tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}

	cfg := config.Config{
		MQTTBroker:      host,
		MQTTPort:        port,
		MQTTClientID:    "ruuvi-gateway-e2e",
		MQTTTopicPrefix: "e2e",
	}
	c := NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(c.Disconnect)

	want := testReading()
	if err := c.Publish(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case payload := <-received:
		var got ruuvi.Reading
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got.Temperature != want.Temperature || got.Pressure != want.Pressure || *got.MAC != *want.MAC {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-ctx.Done():
		t.Fatalf("no message received")
	}
}
