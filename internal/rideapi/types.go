package rideapi

import (
	"fmt"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
)

// RequestError is a failed find/book/complete call: a network failure or a
// non-success status from the ride API. Status is zero for transport-level
// failures.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("ride api request failed: %s", e.Message)
	}
	return fmt.Sprintf("ride api request failed (status %d): %s", e.Status, e.Message)
}

// FindResponse is the result of a find call
type FindResponse struct {
	Candidates   []models.CandidateOption
	NewRequestID string
}

// BookRequest carries a booking attempt for a chosen candidate
type BookRequest struct {
	CabID            string
	Start            models.Coordinate
	End              models.Coordinate
	Shared           bool
	PrimaryRequestID string
	NewRequestID     string
}

// BookResponse is a successful booking
type BookResponse struct {
	RideID      string
	Fare        float64
	CabID       string
	CabName     string
	CabPosition models.Coordinate
}

// Wire shapes. The backend emits ids as numbers on some paths and
// strings on others; models.FlexID covers both.

type cabWire struct {
	ID   models.FlexID `json:"id"`
	Name string        `json:"name"`
	Lat  float64       `json:"lat"`
	Lon  float64       `json:"lon"`
}

type candidateWire struct {
	Cab              cabWire `json:"cab"`
	Fare             float64 `json:"fare"`
	PickupDistance   float64 `json:"pickup_distance"`
	TotalDistance    float64 `json:"total_distance"`
	IsShared         bool    `json:"is_shared"`
	Status           string  `json:"status"`
	PrimaryRequestID string  `json:"primary_request_id"`
}

type findRequestWire struct {
	StartLatitude  float64 `json:"start_latitude"`
	StartLongitude float64 `json:"start_longitude"`
	EndLatitude    float64 `json:"end_latitude"`
	EndLongitude   float64 `json:"end_longitude"`
}

type findResponseWire struct {
	Candidates   []candidateWire `json:"candidates"`
	NewRequestID models.FlexID   `json:"new_request_id"`
}

type bookRequestWire struct {
	CabID            string  `json:"cab_id"`
	StartLatitude    float64 `json:"start_latitude"`
	StartLongitude   float64 `json:"start_longitude"`
	EndLatitude      float64 `json:"end_latitude"`
	EndLongitude     float64 `json:"end_longitude"`
	IsShared         bool    `json:"is_shared"`
	PrimaryRequestID string  `json:"primary_request_id,omitempty"`
	NewRequestID     string  `json:"new_request_id,omitempty"`
}

type bookResponseWire struct {
	RideID models.FlexID `json:"ride_id"`
	Fare   float64       `json:"fare"`
	Cab    cabWire       `json:"cab"`
}

type errorWire struct {
	Error string `json:"error"`
}

func (w candidateWire) toOption() models.CandidateOption {
	return models.CandidateOption{
		CabID:            w.Cab.ID.String(),
		CabName:          w.Cab.Name,
		CabPosition:      models.Coordinate{Latitude: w.Cab.Lat, Longitude: w.Cab.Lon},
		PickupDistance:   w.PickupDistance,
		TotalDistance:    w.TotalDistance,
		Fare:             w.Fare,
		Shared:           w.IsShared,
		PrimaryRequestID: w.PrimaryRequestID,
	}
}
