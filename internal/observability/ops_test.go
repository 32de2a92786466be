package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticPending []PendingEntry

func (s staticPending) Snapshot() []PendingEntry { return s }

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewOpsRouter("node-1", nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["node"] != "node-1" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestDebugPending(t *testing.T) {
	pending := staticPending{{Code: "c1", QueuedAt: "2026-01-01T00:00:00Z"}}
	srv := httptest.NewServer(NewOpsRouter("node-1", pending))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/pending")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var entries []PendingEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Code != "c1" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	RecordMessage("node-1", "in", "Ping")
	srv := httptest.NewServer(NewOpsRouter("node-1", nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
}
