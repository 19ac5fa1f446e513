// Package farmkeep supervises storage-farming share workers: it validates
// their configuration, launches each as an isolated child process, tracks
// lifecycle state, merges status reports from the worker's IPC channel, and
// persists the running set across supervisor restarts.
package farmkeep

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/farmkeep/farmkeep/internal/api"
	cfg "github.com/farmkeep/farmkeep/internal/config"
	"github.com/farmkeep/farmkeep/internal/history"
	histfactory "github.com/farmkeep/farmkeep/internal/history/factory"
	"github.com/farmkeep/farmkeep/internal/logger"
	"github.com/farmkeep/farmkeep/internal/metrics"
	"github.com/farmkeep/farmkeep/internal/registry"
	iapi "github.com/farmkeep/farmkeep/internal/server"
	"github.com/farmkeep/farmkeep/internal/shareconf"
	"github.com/farmkeep/farmkeep/internal/snapshot"
	"github.com/farmkeep/farmkeep/internal/supervisor"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type (
	Supervisor  = supervisor.Supervisor
	Options     = supervisor.Options
	ShareStatus = supervisor.ShareStatus
	ShareConfig = shareconf.Config
	State       = registry.State
	Method      = api.Method
	Params      = api.Params
	SinkConfig  = logger.SinkConfig
	HistorySink = history.Sink
	Entry       = snapshot.Entry
	Config      = cfg.Config
)

const (
	StateRunning = registry.StateRunning
	StateStopped = registry.StateStopped
	StateErrored = registry.StateErrored

	Wildcard = supervisor.Wildcard
)

// New builds a Supervisor with a fresh registry.
func New(log *slog.Logger, opts Options) *Supervisor {
	return supervisor.New(registry.New(), log, opts)
}

// Methods builds the RPC dispatch table for sup.
func Methods(sup *Supervisor, defaultSnapshot string) map[string]Method {
	return api.Methods(sup, defaultSnapshot)
}

// NewHTTPServer starts an HTTP server exposing the method table.
func NewHTTPServer(addr, basePath string, methods map[string]Method) *http.Server {
	return iapi.NewServer(addr, basePath, methods)
}

// NewHistorySink builds a lifecycle-event sink from a DSN
// (sqlite://, postgres://, clickhouse://, opensearch://).
func NewHistorySink(dsn string) (HistorySink, error) {
	return histfactory.NewSinkFromDSN(dsn)
}

// NewRecorder fans lifecycle events out to sinks; wire it with
// Supervisor.SetRecorder.
func NewRecorder(sinks ...HistorySink) *history.Recorder {
	return history.NewRecorder(sinks...)
}

// LoadConfig reads the daemon configuration at path.
func LoadConfig(path string) (Config, error) { return cfg.Load(path) }

// Metrics helpers (public facade).

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
