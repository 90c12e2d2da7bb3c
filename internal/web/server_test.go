package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/gpio-keyboard/internal/logic"
	"github.com/sweeney/gpio-keyboard/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Backend:  "mmap",
		Sink:     "uinput",
		PollMs:   10,
		Broker:   "tcp://192.168.1.200:1883",
		HTTPAddr: ":8080",
	}
	bindings := []logic.Binding{
		{Name: "increment", Pin: 23, Key: logic.Key{Name: "1", Code: 2}},
		{Name: "decrement", Pin: 24, Key: logic.Key{Name: "0", Code: 11}},
	}
	tr := status.NewTracker(start, cfg, bindings)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetRunning(true)
	tr.SetMQTTConnected(true)
	tr.Record(logic.Event{Timestamp: time.Now(), Binding: "increment", Action: logic.ActionPressed})

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if !sj.Status.Running {
		t.Error("expected Running=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if len(sj.Status.Keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(sj.Status.Keys))
	}
	if k := sj.Status.Keys[0]; k.State != "PRESSED" || k.Pressed != 1 {
		t.Errorf("increment: %+v", k)
	}
	if k := sj.Status.Keys[1]; k.State != "RELEASED" || k.Pressed != 0 {
		t.Errorf("decrement: %+v", k)
	}
	if sj.Status.Config.PollMs != 10 {
		t.Errorf("Config.PollMs: got %d, want 10", sj.Status.Config.PollMs)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Record(logic.Event{Timestamp: time.Now(), Binding: "decrement", Action: logic.ActionPressed})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"GPIO Keyboard", "increment", "decrement", `class="pressed">PRESSED`, "tcp://192.168.1.200:1883"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Running {
		t.Error("expected Running=false initially")
	}

	tr.SetRunning(true)
	tr.Record(logic.Event{Timestamp: time.Now(), Binding: "decrement", Action: logic.ActionPressed})
	tr.Record(logic.Event{Timestamp: time.Now(), Binding: "decrement", Action: logic.ActionReleased})

	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Running {
		t.Error("expected Running=true after update")
	}
	dec := sj2.Status.Keys[1]
	if dec.State != "RELEASED" || dec.Pressed != 1 || dec.Released != 1 {
		t.Errorf("decrement: %+v", dec)
	}
	if dec.LastEvent == "" {
		t.Error("expected last_event after a press")
	}
}
