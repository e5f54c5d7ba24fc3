package device

import (
	"errors"
	"reflect"
	"testing"

	"github.com/nerrad567/homie-device/internal/homie"
	"github.com/nerrad567/homie-device/internal/homie/node"
	"github.com/nerrad567/homie-device/internal/infrastructure/config"
)

func boolPtr(b bool) *bool { return &b }

func kitchenConfig() config.DeviceConfig {
	return config.DeviceConfig{
		ID:         "kitchen",
		Name:       "Kitchen Sensor",
		Extensions: []string{"stats"},
		Nodes: []config.NodeConfig{
			{
				ID:   "climate",
				Name: "Climate",
				Type: "sensor",
				Properties: []config.PropertyConfig{
					{ID: "temperature", Name: "Temperature", Datatype: "float", Unit: "°C", Value: "21.5"},
					{ID: "motion", Name: "Motion", Datatype: "boolean", Retained: boolPtr(false)},
				},
			},
			{
				ID:   "light",
				Name: "Light",
				Type: "switch",
				Properties: []config.PropertyConfig{
					{ID: "power", Name: "Power", Datatype: "boolean", Settable: true, Value: "false"},
				},
			},
		},
	}
}

func TestSettings(t *testing.T) {
	got := Settings(config.HomieConfig{Topic: "devices", UpdateInterval: 30, FirmwareName: "fw"})
	want := homie.Settings{Topic: "devices", UpdateInterval: 30, FirmwareName: "fw"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Settings() = %+v, want %+v", got, want)
	}
}

func TestBuild(t *testing.T) {
	rt := newRuntime(t)
	tr := &stubTransport{}

	dev, err := Build(rt, tr, config.HomieConfig{UpdateInterval: 30}, kitchenConfig(), BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if dev.ID() != "kitchen" || dev.Name() != "Kitchen Sensor" {
		t.Errorf("device = %s/%s", dev.ID(), dev.Name())
	}
	if got := dev.Extensions(); !reflect.DeepEqual(got, []homie.Extension{homie.ExtensionStats}) {
		t.Errorf("Extensions() = %v, want [stats]", got)
	}
	if got := dev.Settings().UpdateInterval; got != 30 {
		t.Errorf("UpdateInterval = %d, want 30", got)
	}

	info := dev.Info()
	if !reflect.DeepEqual(info.Nodes, []string{"climate", "light"}) {
		t.Errorf("nodes = %v, want [climate light]", info.Nodes)
	}

	n, ok := dev.GetNode("climate")
	if !ok {
		t.Fatal("climate node missing")
	}
	motion, ok := n.(*node.Node).Property("motion")
	if !ok {
		t.Fatal("motion property missing")
	}
	if motion.Retained() {
		t.Error("motion should be non-retained")
	}
	temp, _ := n.(*node.Node).Property("temperature")
	if temp.Datatype() != node.DatatypeFloat || temp.Unit() != "°C" || temp.Value() != "21.5" {
		t.Errorf("temperature = %s %s %s", temp.Datatype(), temp.Unit(), temp.Value())
	}
}

func TestBuildExtensions(t *testing.T) {
	rt := newRuntime(t)

	tests := []struct {
		name       string
		extensions []string
		want       []homie.Extension
	}{
		{"omitted selects defaults", nil, homie.DefaultExtensions()},
		{"explicit empty declares none", []string{}, []homie.Extension{}},
		{"listed", []string{"firmware", "meta"}, []homie.Extension{homie.ExtensionFirmware, homie.ExtensionMeta}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := config.DeviceConfig{Name: "Device", Extensions: tt.extensions}
			dev, err := Build(rt, &stubTransport{}, config.HomieConfig{}, dc, BuildOptions{})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := dev.Extensions(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extensions() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	rt := newRuntime(t)

	tests := []struct {
		name    string
		mutate  func(dc *config.DeviceConfig)
		wantErr error
	}{
		{"unsupported extension", func(dc *config.DeviceConfig) { dc.Extensions = []string{"ota"} }, homie.ErrUnsupportedExtension},
		{"invalid device id", func(dc *config.DeviceConfig) { dc.ID = "Kitchen" }, homie.ErrInvalidID},
		{"invalid node id", func(dc *config.DeviceConfig) { dc.Nodes[0].ID = "-climate" }, homie.ErrInvalidID},
		{"unknown datatype", func(dc *config.DeviceConfig) { dc.Nodes[0].Properties[0].Datatype = "decimal" }, node.ErrInvalidDatatype},
		{"duplicate property", func(dc *config.DeviceConfig) {
			dc.Nodes[0].Properties[1].ID = "temperature"
		}, node.ErrDuplicateProperty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := kitchenConfig()
			tt.mutate(&dc)
			if _, err := Build(rt, &stubTransport{}, config.HomieConfig{}, dc, BuildOptions{}); !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildSetCommands(t *testing.T) {
	rt := newRuntime(t)
	tr := &stubTransport{}

	var seen []string
	opts := BuildOptions{
		OnSet: func(deviceID string, p *node.Property, value string) bool {
			seen = append(seen, deviceID+"/"+p.ID()+"="+value)
			return value != "false"
		},
	}

	dev, err := Build(rt, tr, config.HomieConfig{}, kitchenConfig(), opts)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if err := dev.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	tr.deliver("homie/kitchen/light/power/set", "true")
	if got, _ := tr.payload("homie/kitchen/light/power"); got != "true" {
		t.Errorf("power = %q after accepted set, want true", got)
	}

	tr.deliver("homie/kitchen/light/power/set", "false")
	if got, _ := tr.payload("homie/kitchen/light/power"); got != "true" {
		t.Errorf("power = %q after rejected set, want true", got)
	}

	want := []string{"kitchen/power=true", "kitchen/power=false"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("OnSet calls = %v, want %v", seen, want)
	}
}
