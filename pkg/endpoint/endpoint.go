package endpoint

import (
	"context"

	"github.com/go-kit/kit/endpoint"

	apperrors "github.com/Ruscigno/QuantLab/pkg/errors"
	"github.com/Ruscigno/QuantLab/pkg/service"
)

// Endpoints holds all Go-Kit endpoints.
type Endpoints struct {
	Ingest      endpoint.Endpoint
	Status      endpoint.Endpoint
	CheckHealth endpoint.Endpoint
}

// MakeEndpoints creates endpoints for the service.
func MakeEndpoints(s service.Service) Endpoints {
	return Endpoints{
		Ingest:      makeIngestEndpoint(s),
		Status:      makeStatusEndpoint(s),
		CheckHealth: makeCheckHealthEndpoint(s),
	}
}

func makeIngestEndpoint(s service.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(service.IngestRequest)
		if !ok {
			return nil, apperrors.ErrInvalidRequest
		}
		return s.Ingest(ctx, req)
	}
}

func makeStatusEndpoint(s service.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req, ok := request.(service.StatusRequest)
		if !ok {
			return nil, apperrors.ErrInvalidRequest
		}
		return s.Status(ctx, req)
	}
}

func makeCheckHealthEndpoint(s service.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		return s.CheckHealth(ctx)
	}
}
