package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Running       bool       `json:"running"`
	Keys          []KeyJSON  `json:"keys"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Config        ConfigJSON `json:"config"`
}

// KeyJSON is the JSON representation of one button.
type KeyJSON struct {
	Binding   string `json:"binding"`
	Pin       int    `json:"pin"`
	Key       string `json:"key"`
	Code      uint16 `json:"code"`
	State     string `json:"state"`
	Pressed   int    `json:"pressed"`
	Released  int    `json:"released"`
	LastEvent string `json:"last_event,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Backend  string `json:"backend"`
	Sink     string `json:"sink"`
	PollMs   int64  `json:"poll_ms"`
	Broker   string `json:"broker"`
	HTTPAddr string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Running:       snap.Running,
		Keys:          make([]KeyJSON, 0, len(snap.Keys)),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Backend:  snap.Config.Backend,
			Sink:     snap.Config.Sink,
			PollMs:   snap.Config.PollMs,
			Broker:   snap.Config.Broker,
			HTTPAddr: snap.Config.HTTPAddr,
		},
	}

	for _, k := range snap.Keys {
		kj := KeyJSON{
			Binding:  k.Binding,
			Pin:      k.Pin,
			Key:      k.Key.Name,
			Code:     k.Key.Code,
			State:    string(k.State),
			Pressed:  k.Counts.Pressed,
			Released: k.Counts.Released,
		}
		if kj.State == "" {
			kj.State = "UNKNOWN"
		}
		if !k.LastEventAt.IsZero() {
			kj.LastEvent = k.LastEventAt.UTC().Format(time.RFC3339Nano)
		}
		inner.Keys = append(inner.Keys, kj)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
