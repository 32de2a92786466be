package observability

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// PendingLister exposes the in-flight correlation entries for debugging.
type PendingLister interface {
	Snapshot() []PendingEntry
}

// PendingEntry is one in-flight request as shown on the ops surface.
type PendingEntry struct {
	Code     string `json:"code"`
	QueuedAt string `json:"queued_at"`
}

// NewOpsRouter builds the operational HTTP surface: health, metrics, and the
// pending-request debug view.
func NewOpsRouter(node string, pending PendingLister) http.Handler {
	RegisterMetrics()
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log.With().Str("node", node).Logger()))
	r.Use(RequestMetrics(node))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "node": node})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/debug/pending", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		entries := []PendingEntry{}
		if pending != nil {
			entries = pending.Snapshot()
		}
		_ = json.NewEncoder(w).Encode(entries)
	})
	return r
}
