package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Coordinate is a WGS84 position
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both components are finite numbers
func (c Coordinate) Valid() bool {
	return !math.IsNaN(c.Latitude) && !math.IsInf(c.Latitude, 0) &&
		!math.IsNaN(c.Longitude) && !math.IsInf(c.Longitude, 0)
}

// CabStatus represents the status of a cab
type CabStatus string

const (
	StatusAvailable CabStatus = "Available"
	StatusBusy      CabStatus = "Busy"
	StatusShared    CabStatus = "Shared"
	StatusUnknown   CabStatus = "Unknown"

	// Transitional statuses pushed by the backend while a ride progresses.
	StatusEnroute            CabStatus = "Enroute"
	StatusArrived            CabStatus = "Arrived"
	StatusOnTrip             CabStatus = "OnTrip"
	StatusArrivedDestination CabStatus = "ArrivedDestination"
)

// ParseCabStatus normalizes a wire status string
func ParseCabStatus(s string) CabStatus {
	switch CabStatus(s) {
	case StatusAvailable, StatusBusy, StatusShared, StatusEnroute,
		StatusArrived, StatusOnTrip, StatusArrivedDestination:
		return CabStatus(s)
	default:
		return StatusUnknown
	}
}

// Cab is the canonical per-vehicle record owned by the fleet aggregator.
// Records are never deleted, only marked stale.
type Cab struct {
	ID        string     `json:"cab_id"`
	Name      string     `json:"name,omitempty"`
	Status    CabStatus  `json:"status"`
	Position  Coordinate `json:"position"`
	Bearing   *float64   `json:"bearing,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
	Stale     bool       `json:"stale,omitempty"`
}

// FleetSnapshot is an immutable point-in-time view of the fleet.
// Safe to hand to any number of readers without locking.
type FleetSnapshot struct {
	Cabs    map[string]Cab `json:"cabs"`
	TakenAt time.Time      `json:"taken_at"`
}

// CabUpdate is one decoded position/status observation for a single cab,
// from either the push transport or a poll response.
type CabUpdate struct {
	CabID      string
	Position   Coordinate
	Status     CabStatus
	Name       string
	ObservedAt time.Time
}

// FlexID decodes an identifier that arrives as a JSON number on some
// backend paths and as a string on others. Canonical form is the string.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string {
	return string(f)
}

// cabUpdateWire mirrors the push message shape
type cabUpdateWire struct {
	CabID     FlexID   `json:"cab_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Status    string   `json:"status"`
	Name      string   `json:"name"`
}

// UnmarshalJSON decodes a push transport message. A message missing cab_id
// or with unparsable coordinates is rejected.
func (u *CabUpdate) UnmarshalJSON(data []byte) error {
	var wire cabUpdateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	if wire.CabID.String() == "" {
		return fmt.Errorf("cab update missing cab_id")
	}
	if wire.Latitude == nil || wire.Longitude == nil {
		return fmt.Errorf("cab update missing coordinates")
	}

	pos := Coordinate{Latitude: *wire.Latitude, Longitude: *wire.Longitude}
	if !pos.Valid() {
		return fmt.Errorf("cab update has non-finite coordinates")
	}

	u.CabID = wire.CabID.String()
	u.Position = pos
	u.Name = wire.Name
	if wire.Status != "" {
		u.Status = ParseCabStatus(wire.Status)
	}
	return nil
}
