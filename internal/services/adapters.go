package services

import "context"

// HTTPServerService adapts an HTTP server to the ManagedService interface.
type HTTPServerService struct {
	server HTTPServer
	name   string
}

// HTTPServer defines the interface expected by HTTPServerService.
type HTTPServer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
}

// NewHTTPServerService creates a new HTTP server service adapter.
func NewHTTPServerService(name string, server HTTPServer) *HTTPServerService {
	return &HTTPServerService{server: server, name: name}
}

func (h *HTTPServerService) Name() string { return h.name }

func (h *HTTPServerService) Start(ctx context.Context) error { return h.server.Start(ctx) }

func (h *HTTPServerService) Stop(ctx context.Context) error { return h.server.Stop(ctx) }

func (h *HTTPServerService) Health() HealthStatus {
	if h.server.IsRunning() {
		return Healthy()
	}
	return Unhealthy("server not running")
}

func (h *HTTPServerService) Dependencies() []string { return nil }
