package ride

import (
	"context"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/adiwardana/cabtrack/internal/rideapi"
)

//go:generate mockgen -source=api.go -destination=mocks/mock_api.go -package=mocks

// API is the ride API surface the lifecycle controller depends on
type API interface {
	FindCab(ctx context.Context, start, end models.Coordinate) (*rideapi.FindResponse, error)
	BookCab(ctx context.Context, req rideapi.BookRequest) (*rideapi.BookResponse, error)
	CompleteRide(ctx context.Context, cabID string) error
	CancelRide(ctx context.Context, cabID string) error
}
