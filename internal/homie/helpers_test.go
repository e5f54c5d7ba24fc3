package homie

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// testClock is the fixed "now" used by test devices.
var testClock = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

// published records one transport Publish or SetWill call.
type published struct {
	Topic   string
	Payload string
	Retain  bool
	QoS     byte
}

// fakeTransport is an in-memory Transport that records every call.
type fakeTransport struct {
	mu           sync.Mutex
	connected    bool
	shared       bool
	publishes    []published
	subscribes   []string
	unsubscribes []string
	wills        []published
	listeners    []Listener
	mac          string
	ip           string
	identityErr  error
	publishErr   error

	// Publishing slowPayload sleeps slowDelay first and closes slowStarted
	// when the sleep begins.
	slowPayload string
	slowDelay   time.Duration
	slowStarted chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{mac: "AA:BB:CC:DD:EE:FF", ip: "192.168.1.20"}
}

func (f *fakeTransport) Publish(topic, payload string, retain bool, qos byte) error {
	f.mu.Lock()
	slow := f.slowPayload != "" && payload == f.slowPayload
	delay, started := f.slowDelay, f.slowStarted
	f.mu.Unlock()

	if slow {
		if started != nil {
			close(started)
		}
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.publishes = append(f.publishes, published{topic, payload, retain, qos})
	return nil
}

func (f *fakeTransport) Subscribe(topic string, _ byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes = append(f.subscribes, topic)
	return nil
}

func (f *fakeTransport) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribes = append(f.unsubscribes, topic)
	return nil
}

func (f *fakeTransport) SetWill(topic, payload string, retain bool, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wills = append(f.wills, published{topic, payload, retain, qos})
	return nil
}

func (f *fakeTransport) NetworkIdentity() (string, string, error) {
	return f.mac, f.ip, f.identityErr
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Shared() bool {
	return f.shared
}

func (f *fakeTransport) AddListener(l Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, l)
}

// connect marks the transport connected and notifies every listener.
func (f *fakeTransport) connect() {
	f.mu.Lock()
	f.connected = true
	listeners := append([]Listener(nil), f.listeners...)
	f.mu.Unlock()

	for _, l := range listeners {
		l.OnConnection(true)
	}
}

// disconnect marks the transport disconnected and notifies every listener.
func (f *fakeTransport) disconnect() {
	f.mu.Lock()
	f.connected = false
	listeners := append([]Listener(nil), f.listeners...)
	f.mu.Unlock()

	for _, l := range listeners {
		l.OnConnection(false)
	}
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishes = nil
	f.subscribes = nil
	f.unsubscribes = nil
}

func (f *fakeTransport) allPublishes() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.publishes...)
}

// publishedTopics returns the topics published so far, in order.
func (f *fakeTransport) publishedTopics() []string {
	var topics []string
	for _, p := range f.allPublishes() {
		topics = append(topics, p.Topic)
	}
	return topics
}

// count returns how many times topic was published.
func (f *fakeTransport) count(topic string) int {
	n := 0
	for _, p := range f.allPublishes() {
		if p.Topic == topic {
			n++
		}
	}
	return n
}

// last returns the most recent publication to topic.
func (f *fakeTransport) last(topic string) (published, bool) {
	pubs := f.allPublishes()
	for i := len(pubs) - 1; i >= 0; i-- {
		if pubs[i].Topic == topic {
			return pubs[i], true
		}
	}
	return published{}, false
}

func (f *fakeTransport) unsubscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unsubscribes...)
}

func (f *fakeTransport) subscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.subscribes...)
}

func (f *fakeTransport) willCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.wills)
}

// fakeNode is a Node that publishes a single $name attribute through its
// parent and counts PublishAttributes calls.
type fakeNode struct {
	id     string
	parent Publisher
	subs   map[string]MessageHandler

	mu    sync.Mutex
	calls int
}

func newFakeNode(parent Publisher, id string) *fakeNode {
	return &fakeNode{id: id, parent: parent, subs: map[string]MessageHandler{}}
}

func (n *fakeNode) ID() string { return n.id }

func (n *fakeNode) PublishAttributes(retain bool, qos byte) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	n.parent.Publish(n.parent.Topic()+"/"+n.id+"/$name", strings.ToUpper(n.id), retain, qos)
}

func (n *fakeNode) Subscriptions() map[string]MessageHandler {
	return n.subs
}

func (n *fakeNode) publishCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// fakeScheduler records callbacks instead of running them on a timer.
type fakeScheduler struct {
	mu        sync.Mutex
	interval  time.Duration
	callbacks []func()
	stopped   bool
}

func (s *fakeScheduler) AddCallback(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

func (s *fakeScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *fakeScheduler) tick() {
	s.mu.Lock()
	callbacks := append([]func(){}, s.callbacks...)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn()
	}
}

// newTestRuntime returns a Runtime whose scheduler is a fakeScheduler.
// The created schedulers are appended to *created.
func newTestRuntime(created *[]*fakeScheduler) *Runtime {
	rt := NewRuntime()
	rt.newScheduler = func(interval time.Duration) Scheduler {
		s := &fakeScheduler{interval: interval}
		if created != nil {
			*created = append(*created, s)
		}
		return s
	}
	return rt
}

// newTestDevice builds a device on a fixed clock.
func newTestDevice(t *testing.T, rt *Runtime, tr Transport, opts Options) *Device {
	t.Helper()

	if opts.Name == "" {
		opts.Name = "Test Device"
	}

	d, err := New(rt, tr, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	d.now = func() time.Time { return testClock }
	return d
}

// memJournal is an in-memory Journal.
type memJournal struct {
	mu     sync.Mutex
	topics map[string]string
}

func newMemJournal() *memJournal {
	return &memJournal{topics: make(map[string]string)}
}

func (j *memJournal) Record(_ context.Context, deviceID, topic, payload string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.topics[deviceID+"|"+topic] = payload
	return nil
}

func (j *memJournal) Topics(_ context.Context, deviceID, prefix string) ([]string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for key := range j.topics {
		dev, topic, _ := strings.Cut(key, "|")
		if dev == deviceID && strings.HasPrefix(topic, prefix) {
			out = append(out, topic)
		}
	}
	return out, nil
}

func (j *memJournal) Forget(_ context.Context, deviceID string, topics []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, topic := range topics {
		delete(j.topics, deviceID+"|"+topic)
	}
	return nil
}

func (j *memJournal) has(deviceID, topic string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.topics[deviceID+"|"+topic]
	return ok
}

// uptimeRecorder collects RecordUptime calls.
type uptimeRecorder struct {
	mu      sync.Mutex
	samples []time.Duration
}

func (r *uptimeRecorder) RecordUptime(_ string, uptime time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, uptime)
}
