package device

import (
	"sync"
	"testing"

	"github.com/nerrad567/homie-device/internal/homie"
)

type publish struct {
	topic   string
	payload string
	retain  bool
}

// stubTransport is a connected homie.Transport recording publications.
type stubTransport struct {
	mu         sync.Mutex
	publishes  []publish
	subscribed []string
	listeners  []homie.Listener
}

func (s *stubTransport) Publish(topic, payload string, retain bool, _ byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishes = append(s.publishes, publish{topic, payload, retain})
	return nil
}

func (s *stubTransport) Subscribe(topic string, _ byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = append(s.subscribed, topic)
	return nil
}

func (s *stubTransport) Unsubscribe(string) error                 { return nil }
func (s *stubTransport) SetWill(string, string, bool, byte) error { return nil }
func (s *stubTransport) NetworkIdentity() (string, string, error) {
	return "AA:BB:CC:DD:EE:FF", "10.0.0.2", nil
}
func (s *stubTransport) IsConnected() bool { return true }
func (s *stubTransport) Shared() bool      { return false }

func (s *stubTransport) AddListener(l homie.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// payload returns the last payload published on topic.
func (s *stubTransport) payload(topic string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.publishes) - 1; i >= 0; i-- {
		if s.publishes[i].topic == topic {
			return s.publishes[i].payload, true
		}
	}
	return "", false
}

// deliver hands a non-retained message to every listener.
func (s *stubTransport) deliver(topic, payload string) {
	s.mu.Lock()
	listeners := append([]homie.Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l.OnMessage(topic, []byte(payload), false, 1)
	}
}

func newRuntime(t *testing.T) *homie.Runtime {
	t.Helper()
	rt := homie.NewRuntime()
	t.Cleanup(rt.Close)
	return rt
}
