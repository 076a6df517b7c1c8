package ride

import (
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
)

// EventType classifies lifecycle notifications
type EventType string

const (
	// EventStageChanged fires once per stage transition
	EventStageChanged EventType = "stage_changed"
	// EventETAUpdated fires on every ETA recomputation while a cab is enroute
	EventETAUpdated EventType = "eta_updated"
)

// Event is one lifecycle notification. Session is a copy; mutating it has
// no effect on the controller.
type Event struct {
	Type       EventType
	Stage      models.RideStage
	Session    models.RideSession
	ETAMinutes int
	At         time.Time
}

// EventFunc consumes lifecycle events
type EventFunc func(Event)
