package models

import (
	"time"
)

// RideStage represents the stage of the active ride session
type RideStage string

const (
	StageIdle         RideStage = "idle"
	StageSearching    RideStage = "searching"
	StageOptionsReady RideStage = "options_ready"
	StageBooking      RideStage = "booking"
	StageAssigned     RideStage = "assigned"
	StageArrived      RideStage = "arrived"
	StageInProgress   RideStage = "in_progress"
	StageCompleting   RideStage = "completing"
	StageCompleted    RideStage = "completed"
	StageCancelled    RideStage = "cancelled"
)

// Label returns the display label for a stage
func (s RideStage) Label() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StageSearching:
		return "Searching for cabs"
	case StageOptionsReady:
		return "Options available"
	case StageBooking:
		return "Booking"
	case StageAssigned:
		return "Cab enroute to pickup"
	case StageArrived:
		return "Cab arrived"
	case StageInProgress:
		return "On trip"
	case StageCompleting:
		return "Completing"
	case StageCompleted:
		return "Completed"
	case StageCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Terminal reports whether the stage ends the session
func (s RideStage) Terminal() bool {
	return s == StageCompleted || s == StageCancelled
}

// RideSession is the single active ride. Created when a booking succeeds,
// destroyed when the ride completes or is cancelled.
type RideSession struct {
	RideID    string     `json:"ride_id"`
	CabID     string     `json:"cab_id"`
	CabName   string     `json:"cab_name,omitempty"`
	Pickup    Coordinate `json:"pickup"`
	Drop      Coordinate `json:"drop"`
	Fare      float64    `json:"fare"`
	Shared    bool       `json:"is_shared"`
	Stage     RideStage  `json:"stage"`
	CreatedAt time.Time  `json:"created_at"`
}

// CandidateOption is a transient, unbooked proposal returned by a find call.
// Candidate sets are replaced wholesale per find and invalidated the moment
// a booking attempt is issued.
type CandidateOption struct {
	CabID            string     `json:"cab_id"`
	CabName          string     `json:"cab_name"`
	CabPosition      Coordinate `json:"cab_position"`
	PickupDistance   float64    `json:"pickup_distance"`
	TotalDistance    float64    `json:"total_distance"`
	Fare             float64    `json:"fare"`
	Shared           bool       `json:"is_shared"`
	PrimaryRequestID string     `json:"primary_request_id,omitempty"`
}
