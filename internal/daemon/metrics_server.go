package daemon

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/services"
)

// MetricsServer serves /metrics and /healthz while watching.
type MetricsServer struct {
	addr     string
	recorder *metrics.PrometheusRecorder
	health   func() []services.ServiceInfo

	mu      sync.Mutex
	server  *http.Server
	ln      net.Listener
	running atomic.Bool
}

// NewMetricsServer creates a server for addr. health may be nil.
func NewMetricsServer(addr string, recorder *metrics.PrometheusRecorder, health func() []services.ServiceInfo) *MetricsServer {
	registerRuntimeCollectors(recorder.Registry())
	return &MetricsServer{addr: addr, recorder: recorder, health: health}
}

// registerRuntimeCollectors adds Go and process metrics; repeated calls are harmless.
func registerRuntimeCollectors(reg *prom.Registry) {
	for _, c := range []prom.Collector{
		promcollect.NewGoCollector(),
		promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}),
	} {
		if err := reg.Register(c); err != nil {
			var already prom.AlreadyRegisteredError
			if !stderrors.As(err, &already) {
				slog.Warn("Failed to register runtime collector", logfields.Error(err))
			}
		}
	}
}

// Start binds the listener and serves in the background.
func (m *MetricsServer) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return errors.DaemonError("failed to listen for metrics").WithCause(err).WithContext("addr", m.addr).Build()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.recorder.HTTPHandler())
	mux.HandleFunc("/healthz", m.handleHealth)

	m.ln = ln
	m.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second, ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}
	m.running.Store(true)
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", logfields.Error(err))
		}
		m.running.Store(false)
	}(m.server)

	slog.Info("Serving metrics", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (m *MetricsServer) Stop(ctx context.Context) error {
	m.mu.Lock()
	srv := m.server
	m.server = nil
	m.mu.Unlock()
	if srv == nil {
		return nil
	}
	m.running.Store(false)
	return srv.Shutdown(ctx)
}

func (m *MetricsServer) IsRunning() bool { return m.running.Load() }

// Addr returns the bound address, useful when listening on port 0.
func (m *MetricsServer) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ln == nil {
		return m.addr
	}
	return m.ln.Addr().String()
}

func (m *MetricsServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	var infos []services.ServiceInfo
	if m.health != nil {
		infos = m.health()
	}
	status := http.StatusOK
	for _, info := range infos {
		if !info.Health.IsHealthy() {
			status = http.StatusServiceUnavailable
			break
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"services": infos}); err != nil {
		slog.Error("failed to write health response", logfields.Error(err))
	}
}
