package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"

	httptransport "github.com/go-kit/kit/transport/http"
	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/endpoint"
	apperrors "github.com/Ruscigno/QuantLab/pkg/errors"
	"github.com/Ruscigno/QuantLab/pkg/metrics"
	"github.com/Ruscigno/QuantLab/pkg/middleware"
	"github.com/Ruscigno/QuantLab/pkg/service"
)

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	APIKey            string
	MaxBodySize       int64
	RequestsPerSecond float64
	BurstSize         int
	Logger            *zap.Logger
	Metrics           *metrics.ApplicationMetrics
}

const defaultMaxBodySize = 1 << 16

// OpenAPISpec documents the routes served by NewHTTPHandler.
//
//go:embed openapi.yaml
var OpenAPISpec []byte

// NewHTTPHandler sets up HTTP handlers for the endpoints with middleware.
func NewHTTPHandler(endpoints endpoint.Endpoints, config HTTPConfig) http.Handler {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = defaultMaxBodySize
	}

	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(encodeError),
	}

	mux := http.NewServeMux()

	mux.Handle("POST /ingest", httptransport.NewServer(
		endpoints.Ingest,
		decodeIngestRequest(config.MaxBodySize),
		encodeResponse,
		options...,
	))

	mux.Handle("GET /status", httptransport.NewServer(
		endpoints.Status,
		decodeStatusRequest,
		encodeResponse,
		options...,
	))

	// Health Check endpoint (no authentication required)
	mux.Handle("GET /health", httptransport.NewServer(
		endpoints.CheckHealth,
		decodeHealthRequest,
		encodeHealthResponse,
		options...,
	))

	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(OpenAPISpec)
	})

	// Last applied runs first.
	var handler http.Handler = mux
	handler = middleware.ErrorLogging(config.Logger)(handler)
	handler = middleware.RequestLogging(middleware.LoggingConfig{
		Logger: config.Logger,
	})(handler)
	handler = middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: config.RequestsPerSecond,
		BurstSize:         config.BurstSize,
		Paths:             []string{"/ingest"},
		Logger:            config.Logger,
	})(handler)
	handler = middleware.APIKeyAuth(middleware.AuthConfig{
		APIKey: config.APIKey,
		Logger: config.Logger,
	})(handler)
	if config.Metrics != nil {
		handler = metrics.MetricsMiddleware(config.Metrics)(handler)
	}
	handler = middleware.SecurityHeaders()(handler)
	handler = middleware.RequestID()(handler)

	return handler
}

func decodeIngestRequest(maxBodySize int64) httptransport.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (interface{}, error) {
		var req service.IngestRequest
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return nil, apperrors.ErrInvalidRequest.WithCause(err).WithDetails("invalid JSON body")
		}
		return req, nil
	}
}

func decodeStatusRequest(_ context.Context, r *http.Request) (interface{}, error) {
	return service.StatusRequest{Symbol: r.URL.Query().Get("symbol")}, nil
}

func decodeHealthRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return nil, nil
}

func encodeResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(response)
}

func encodeHealthResponse(_ context.Context, w http.ResponseWriter, response interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if health, ok := response.(*service.HealthResponse); ok && health.Status == service.HealthStatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	return json.NewEncoder(w).Encode(response)
}

func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	appErr := apperrors.GetAppError(err)
	if appErr == nil {
		appErr = apperrors.WrapError(err, apperrors.ErrCodeInternal, "Internal server error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr.ToErrorResponse(middleware.RequestIDFromContext(ctx)))
}
