// Package admin exposes the operational HTTP surface spec.md §6
// mentions ("operators need a way to query current state without
// routing through the aggregate pipeline"): a liveness probe, the
// known metric name set, and a point-in-time telemetry snapshot.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// MetricNamer reports every metric key currently tracked by the
// processor, across all aggregator kinds and plugins.
type MetricNamer interface {
	GetMetricNames() []string
}

// StatsSnapshotter reports a point-in-time view of operational
// telemetry counters.
type StatsSnapshotter interface {
	Snapshot() map[string]int64
}

// API wires the admin HTTP surface over a processor's actor and the
// telemetry registry.
type API struct {
	log   *logrus.Logger
	names MetricNamer
	stats StatsSnapshotter
}

// New builds the admin router. Routes:
//
//	GET /healthz        -> 200 "ok" once the server has started
//	GET /metric-names   -> JSON array of known metric keys
//	GET /stats          -> JSON object of telemetry counters
func New(log *logrus.Logger, names MetricNamer, stats StatsSnapshotter) http.Handler {
	a := &API{log: log, names: names, stats: stats}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/metric-names", a.handleMetricNames).Methods(http.MethodGet)
	r.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)

	return handlers.CombinedLoggingHandler(log.Writer(), r)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (a *API) handleMetricNames(w http.ResponseWriter, r *http.Request) {
	names := a.names.GetMetricNames()
	if names == nil {
		names = []string{}
	}
	a.writeJSON(w, names)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, a.stats.Snapshot())
}

func (a *API) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.WithError(err).Warn("admin: failed to encode response")
	}
}
