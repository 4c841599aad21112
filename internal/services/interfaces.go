// Package services starts and stops the long running parts of watch mode in
// dependency order.
package services

import (
	"context"
	"time"
)

// ManagedService defines the interface for services with lifecycle management.
type ManagedService interface {
	// Name returns the service name for logging and identification.
	Name() string

	// Start initializes and starts the service. It must not block.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the service.
	Stop(ctx context.Context) error

	// Health returns the current health status of the service.
	Health() HealthStatus

	// Dependencies returns the names of services this service depends on.
	Dependencies() []string
}

// HealthStatus represents the health of a managed service, including status, message, and timestamp.
type HealthStatus struct {
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	CheckAt time.Time `json:"check_at"`
}

// Healthy returns a healthy status stamped now.
func Healthy() HealthStatus {
	return HealthStatus{Status: "healthy", CheckAt: time.Now()}
}

// Unhealthy returns a HealthStatus indicating an unhealthy state with a message.
func Unhealthy(message string) HealthStatus {
	return HealthStatus{Status: "unhealthy", Message: message, CheckAt: time.Now()}
}

// IsHealthy reports whether the status is healthy.
func (h HealthStatus) IsHealthy() bool { return h.Status == "healthy" }
