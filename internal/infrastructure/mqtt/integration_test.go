//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/homie-device/internal/homie"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func connectTest(t *testing.T, clientID string, opts ...Option) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = clientID

	client, err := Connect(cfg, opts...)
	if err != nil {
		t.Fatalf("Connect(%s) error = %v", clientID, err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// collector subscribes to a filter and keeps the last payload per topic.
type collector struct {
	mu     sync.Mutex
	values map[string]string
}

func (c *collector) OnConnection(bool) {}

func (c *collector) OnMessage(topic string, payload []byte, _ bool, _ byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[topic] = string(payload)
}

func (c *collector) get(topic string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[topic]
	return v, ok
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("condition not met within 5s")
}

func TestIntegration_SubscriptionTracking(t *testing.T) {
	client := connectTest(t, "homied-int-sub-track")

	topics := []string{
		"homie/int-track/a/set",
		"homie/int-track/b/set",
		"homie/int-track/c/set",
	}
	for _, topic := range topics {
		if err := client.Subscribe(topic, 1); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}

	if client.SubscriptionCount() != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", client.SubscriptionCount(), len(topics))
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", topics[0])
	}
}

func TestIntegration_DeviceLifecycle(t *testing.T) {
	observer := connectTest(t, "homied-int-observer")
	seen := &collector{values: make(map[string]string)}
	observer.AddListener(seen)
	if err := observer.Subscribe("homie/int-kitchen/#", 1); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	transport := connectTest(t, "homied-int-kitchen",
		WithWill("homie/int-kitchen/$state", "lost", true, 1))

	rt := homie.NewRuntime()
	defer rt.Close()

	device, err := homie.New(rt, transport, homie.Options{
		ID:         "int-kitchen",
		Name:       "Integration Kitchen",
		Extensions: []homie.Extension{homie.ExtensionStats},
	})
	if err != nil {
		t.Fatalf("homie.New() error = %v", err)
	}
	if err := device.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, func() bool {
		v, ok := seen.get("homie/int-kitchen/$state")
		return ok && v == "ready"
	})
	if v, _ := seen.get("homie/int-kitchen/$homie"); v != "4.0.0" {
		t.Errorf("$homie = %q, want 4.0.0", v)
	}

	if !transport.HasSubscription("homie/int-kitchen/$broadcast/#") {
		t.Error("device did not subscribe to its broadcast topic")
	}

	if err := device.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	waitFor(t, func() bool {
		v, _ := seen.get("homie/int-kitchen/$state")
		return v == "disconnected"
	})
}

func TestIntegration_SetWillRebuildsConnection(t *testing.T) {
	client := connectTest(t, "homied-int-will")
	if err := client.Subscribe("homie/int-will/x/set", 0); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := client.SetWill("homie/int-will/$state", "lost", true, 1); err != nil {
		t.Fatalf("SetWill() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("IsConnected() = false after rebuild")
	}
	if !client.HasSubscription("homie/int-will/x/set") {
		t.Error("subscription lost across rebuild")
	}

	// Same will again must not reconnect.
	before := client.paho()
	if err := client.SetWill("homie/int-will/$state", "lost", true, 1); err != nil {
		t.Fatalf("SetWill() error = %v", err)
	}
	if client.paho() != before {
		t.Error("identical SetWill rebuilt the connection")
	}
}
