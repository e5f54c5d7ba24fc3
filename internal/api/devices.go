package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/homie-device/internal/audit"
	"github.com/nerrad567/homie-device/internal/device"
	"github.com/nerrad567/homie-device/internal/homie"
	"github.com/nerrad567/homie-device/internal/homie/node"
	"github.com/nerrad567/homie-device/internal/journal"
)

// DeviceDetail is the body of GET /devices/{id}.
type DeviceDetail struct {
	Device homie.Info `json:"device"`
	Nodes  []NodeView `json:"nodes"`
}

// NodeView describes one node of a device.
type NodeView struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Type       string         `json:"type,omitempty"`
	Properties []PropertyView `json:"properties,omitempty"`
}

// PropertyView describes one property and its current value.
type PropertyView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Datatype string `json:"datatype"`
	Format   string `json:"format,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Settable bool   `json:"settable"`
	Retained bool   `json:"retained"`
	Value    string `json:"value"`
}

// StateRequest is the body of PUT /devices/{id}/state.
type StateRequest struct {
	State string `json:"state"`
}

// ValueRequest is the body of PUT .../properties/{property}.
type ValueRequest struct {
	Value *string `json:"value"`
}

// handleListDevices returns the info of every device in registration order.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.registry.List()
	infos := make([]homie.Info, 0, len(devices))
	for _, dev := range devices {
		infos = append(infos, dev.Info())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": infos,
		"count":   len(infos),
	})
}

// handleGetDevice returns one device with its nodes and property values.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	detail := DeviceDetail{Device: dev.Info(), Nodes: []NodeView{}}
	for _, n := range dev.Nodes() {
		detail.Nodes = append(detail.Nodes, nodeView(n))
	}
	writeJSON(w, http.StatusOK, detail)
}

func nodeView(n homie.Node) NodeView {
	hn, ok := n.(*node.Node)
	if !ok {
		return NodeView{ID: n.ID()}
	}

	view := NodeView{ID: hn.ID(), Name: hn.Name(), Type: hn.Type()}
	for _, p := range hn.Properties() {
		view.Properties = append(view.Properties, PropertyView{
			ID:       p.ID(),
			Name:     p.Name(),
			Datatype: string(p.Datatype()),
			Format:   p.Format(),
			Unit:     p.Unit(),
			Settable: p.Settable(),
			Retained: p.Retained(),
			Value:    p.Value(),
		})
	}
	return view
}

// handleSetDeviceState publishes a new $state for the device.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	var req StateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := dev.SetState(homie.State(req.State)); err != nil {
		if errors.Is(err, homie.ErrInvalidState) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		writeInternalError(w, "failed to set state")
		return
	}

	s.recordAudit(r, &audit.AuditLog{
		Action:   audit.ActionState,
		DeviceID: dev.ID(),
		Details:  map[string]any{"state": req.State},
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"id":    dev.ID(),
		"state": dev.State().String(),
	})
}

// handleSetPropertyValue validates, stores and publishes a property value.
func (s *Server) handleSetPropertyValue(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	p, err := s.registry.Property(deviceID, chi.URLParam(r, "node"), chi.URLParam(r, "property"))
	if err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceNotFound):
			writeNotFound(w, "device not found")
		case errors.Is(err, device.ErrNodeNotFound):
			writeNotFound(w, "node not found")
		default:
			writeNotFound(w, "property not found")
		}
		return
	}

	var req ValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value field is required")
		return
	}

	if err := p.SetValue(*req.Value); err != nil {
		if errors.Is(err, node.ErrInvalidValue) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		writeInternalError(w, "failed to set value")
		return
	}

	s.recordAudit(r, &audit.AuditLog{
		Action:   audit.ActionSet,
		DeviceID: deviceID,
		EntityID: p.NodeID() + "/" + p.ID(),
		Details:  map[string]any{"value": p.Value()},
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"topic": p.Topic(),
		"value": p.Value(),
	})
}

// handleListRetained returns the retained topics journaled for the device,
// including those of nodes removed since.
func (s *Server) handleListRetained(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	entries, err := s.retained.Entries(r.Context(), dev.ID())
	if err != nil {
		s.logger.Error("listing retained topics", "error", err, "device", dev.ID())
		writeInternalError(w, "failed to list retained topics")
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"topics": entries,
		"count":  len(entries),
	})
}

func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request) (*homie.Device, bool) {
	dev, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return nil, false
		}
		writeInternalError(w, "failed to get device")
		return nil, false
	}
	return dev, true
}
