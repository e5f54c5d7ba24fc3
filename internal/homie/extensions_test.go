package homie

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseExtension(t *testing.T) {
	tests := []struct {
		in      string
		want    Extension
		wantErr bool
	}{
		{"stats", ExtensionStats, false},
		{" firmware ", ExtensionFirmware, false},
		{"meta", ExtensionMeta, false},
		{"Stats", "", true},
		{"", "", true},
		{"ota", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExtension(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseExtension(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnsupportedExtension) {
				t.Errorf("error = %v, want ErrUnsupportedExtension", err)
			}
			if got != tt.want {
				t.Errorf("ParseExtension(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPublishExtensionsNone(t *testing.T) {
	tr := newFakeTransport()
	d := newTestDevice(t, newTestRuntime(nil), tr, Options{ID: "kitchen", Extensions: []Extension{}})

	d.PublishExtensions(true, 1)

	if n := len(tr.allPublishes()); n != 0 {
		t.Errorf("publishes = %v, want none", tr.publishedTopics())
	}
}

func TestPublishExtensionsMetaOnly(t *testing.T) {
	tr := newFakeTransport()
	d := newTestDevice(t, newTestRuntime(nil), tr, Options{ID: "kitchen", Extensions: []Extension{ExtensionMeta}})

	d.PublishExtensions(true, 1)

	want := []string{"homie/kitchen/$extensions"}
	if got := tr.publishedTopics(); !reflect.DeepEqual(got, want) {
		t.Errorf("topics = %v, want %v", got, want)
	}
}

func TestPublishExtensionsAll(t *testing.T) {
	tr := newFakeTransport()
	d := newTestDevice(t, newTestRuntime(nil), tr, Options{
		ID:       "kitchen",
		Settings: Settings{FirmwareName: "kitchen-fw", FirmwareVersion: "2.1.0", Implementation: "linux"},
	})

	d.PublishExtensions(true, 1)

	want := []published{
		{"homie/kitchen/$extensions", "stats,firmware,meta", true, 1},
		{"homie/kitchen/$stats/interval", "60", true, 1},
		{"homie/kitchen/$stats/uptime", "0", true, 1},
		{"homie/kitchen/$stats/lastupdate", "14/03/2026 09:26:53", true, 1},
		{"homie/kitchen/$localip", "192.168.1.20", true, 1},
		{"homie/kitchen/$mac", "AA:BB:CC:DD:EE:FF", true, 1},
		{"homie/kitchen/$fw/name", "kitchen-fw", true, 1},
		{"homie/kitchen/$fw/version", "2.1.0", true, 1},
		{"homie/kitchen/$implementation", "linux", true, 1},
	}
	if got := tr.allPublishes(); !reflect.DeepEqual(got, want) {
		t.Errorf("publishes =\n%+v\nwant\n%+v", got, want)
	}
}

func TestPublishFirmwareIdentityError(t *testing.T) {
	tr := newFakeTransport()
	tr.mac, tr.ip, tr.identityErr = "", "", errors.New("no route")
	d := newTestDevice(t, newTestRuntime(nil), tr, Options{ID: "kitchen"})

	d.PublishFirmware(true, 1)

	if p, ok := tr.last("homie/kitchen/$localip"); !ok || p.Payload != "" {
		t.Errorf("$localip = %+v, want empty payload", p)
	}
	if tr.count("homie/kitchen/$fw/name") != 1 {
		t.Error("$fw/name not published after identity error")
	}
}

func TestPublishUptime(t *testing.T) {
	tr := newFakeTransport()
	rec := &uptimeRecorder{}
	d := newTestDevice(t, newTestRuntime(nil), tr, Options{
		ID:       "kitchen",
		Recorder: rec,
	})
	if err := d.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	d.now = func() time.Time { return testClock.Add(125*time.Second + 400*time.Millisecond) }
	d.PublishUptime()

	if p, _ := tr.last("homie/kitchen/$stats/uptime"); p.Payload != "125" {
		t.Errorf("$stats/uptime = %q, want 125", p.Payload)
	}
	if p, _ := tr.last("homie/kitchen/$stats/lastupdate"); p.Payload != "14/03/2026 09:28:58" {
		t.Errorf("$stats/lastupdate = %q", p.Payload)
	}
	if len(rec.samples) != 1 || rec.samples[0] != 125*time.Second+400*time.Millisecond {
		t.Errorf("recorded = %v", rec.samples)
	}
}

func TestPublishStatisticsInterval(t *testing.T) {
	tr := newFakeTransport()
	d := newTestDevice(t, newTestRuntime(nil), tr, Options{
		ID:       "kitchen",
		Settings: Settings{UpdateInterval: 30},
	})

	d.PublishStatistics(true, 1)

	if p, _ := tr.last("homie/kitchen/$stats/interval"); p.Payload != "30" {
		t.Errorf("$stats/interval = %q, want 30", p.Payload)
	}
}
