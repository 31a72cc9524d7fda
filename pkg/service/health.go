package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Name      string       `json:"name"`
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Duration  string       `json:"duration,omitempty"`
}

// HealthResponse represents the overall health response
type HealthResponse struct {
	Status     HealthStatus      `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version"`
	Components []ComponentHealth `json:"components"`
	Uptime     string            `json:"uptime"`
}

// Database is the part of the pool the health check needs.
type Database interface {
	Health(ctx context.Context) error
	GetStats() sql.DBStats
}

// HealthService defines the health check service interface
type HealthService interface {
	CheckHealth(ctx context.Context) HealthResponse
}

type healthService struct {
	db        Database
	provider  string
	logger    *zap.Logger
	startTime time.Time
	version   string
}

// NewHealthService creates a new health service
func NewHealthService(db Database, provider string, logger *zap.Logger, version string) HealthService {
	return &healthService{
		db:        db,
		provider:  provider,
		logger:    logger,
		startTime: time.Now(),
		version:   version,
	}
}

// CheckHealth performs a health check of every component
func (h *healthService) CheckHealth(ctx context.Context) HealthResponse {
	start := time.Now()

	components := []ComponentHealth{
		h.checkDatabase(ctx),
		h.checkProvider(),
	}
	overallStatus := determineOverallStatus(components)

	h.logger.Debug("Health check completed",
		zap.String("status", string(overallStatus)),
		zap.Duration("duration", time.Since(start)))

	return HealthResponse{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Version:    h.version,
		Components: components,
		Uptime:     time.Since(h.startTime).String(),
	}
}

func (h *healthService) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()
	component := ComponentHealth{
		Name:      "database",
		Timestamp: start,
	}

	if h.db == nil {
		component.Status = HealthStatusUnhealthy
		component.Message = "Database connection not initialized"
		return component
	}

	if err := h.db.Health(ctx); err != nil {
		component.Status = HealthStatusUnhealthy
		component.Message = err.Error()
		h.logger.Error("Database health check failed", zap.Error(err))
		return component
	}

	stats := h.db.GetStats()
	if stats.MaxOpenConnections > 0 && stats.InUse > stats.MaxOpenConnections*8/10 { // 80% threshold
		component.Status = HealthStatusDegraded
		component.Message = "High connection usage"
	} else {
		component.Status = HealthStatusHealthy
		component.Message = "Database is healthy"
	}

	component.Duration = time.Since(start).String()
	return component
}

// checkProvider reports the configured provider. It does not call out; a
// probe would spend the provider's rate limit on every health poll.
func (h *healthService) checkProvider() ComponentHealth {
	component := ComponentHealth{
		Name:      "quote_provider",
		Timestamp: time.Now(),
		Status:    HealthStatusHealthy,
		Message:   h.provider,
	}
	if h.provider == "" {
		component.Status = HealthStatusUnhealthy
		component.Message = "No quote provider configured"
	}
	return component
}

func determineOverallStatus(components []ComponentHealth) HealthStatus {
	hasDegraded := false
	for _, component := range components {
		switch component.Status {
		case HealthStatusUnhealthy:
			return HealthStatusUnhealthy
		case HealthStatusDegraded:
			hasDegraded = true
		}
	}
	if hasDegraded {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}
