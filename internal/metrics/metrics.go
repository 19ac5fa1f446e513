package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	shareStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmkeep",
			Subsystem: "share",
			Name:      "starts_total",
			Help:      "Number of successful share launches.",
		}, []string{"id"},
	)
	shareStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmkeep",
			Subsystem: "share",
			Name:      "stops_total",
			Help:      "Number of share worker exits.",
		}, []string{"id"},
	)
	shareErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmkeep",
			Subsystem: "share",
			Name:      "errors_total",
			Help:      "Number of share worker faults (spawn or runtime).",
		}, []string{"id"},
	)
	shareDestroys = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmkeep",
			Subsystem: "share",
			Name:      "destroys_total",
			Help:      "Number of shares removed from the registry.",
		}, []string{"id"},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmkeep",
			Subsystem: "share",
			Name:      "state_transitions_total",
			Help:      "Number of lifecycle state transitions.",
		}, []string{"id", "from", "to"},
	)
	currentStates = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "farmkeep",
			Subsystem: "share",
			Name:      "current_state",
			Help:      "Current lifecycle state per share (1 = active state).",
		}, []string{"id", "state"},
	)
	farmerStateMerges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "farmkeep",
			Subsystem: "share",
			Name:      "farmer_state_merges_total",
			Help:      "Number of IPC status messages merged into share metadata.",
		}, []string{"id"},
	)
	registeredShares = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "farmkeep",
			Subsystem: "share",
			Name:      "registered",
			Help:      "Current number of shares in the registry.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{
		shareStarts, shareStops, shareErrors, shareDestroys,
		stateTransitions, currentStates, farmerStateMerges, registeredShares,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the
// DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart(id string) {
	if regOK.Load() {
		shareStarts.WithLabelValues(id).Inc()
	}
}

func IncStop(id string) {
	if regOK.Load() {
		shareStops.WithLabelValues(id).Inc()
	}
}

func IncError(id string) {
	if regOK.Load() {
		shareErrors.WithLabelValues(id).Inc()
	}
}

func IncDestroy(id string) {
	if regOK.Load() {
		shareDestroys.WithLabelValues(id).Inc()
	}
}

func IncFarmerStateMerge(id string) {
	if regOK.Load() {
		farmerStateMerges.WithLabelValues(id).Inc()
	}
}

func RecordStateTransition(id, from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(id, from, to).Inc()
		currentStates.WithLabelValues(id, from).Set(0)
		currentStates.WithLabelValues(id, to).Set(1)
	}
}

func SetRegisteredShares(n int) {
	if regOK.Load() {
		registeredShares.Set(float64(n))
	}
}
