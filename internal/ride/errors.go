package ride

import (
	"errors"
	"fmt"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
)

// ErrNoCandidates means a find call succeeded but no cab can serve the trip
var ErrNoCandidates = errors.New("no cabs available for the requested trip")

// ErrUnknownCandidate means the selected cab is not in the current option set
var ErrUnknownCandidate = errors.New("selected cab is not among the current options")

// ErrCancelled means the session was cancelled while an operation was in flight
var ErrCancelled = errors.New("ride session was cancelled")

// ErrControllerClosed is returned by operations on a closed controller
var ErrControllerClosed = errors.New("ride controller is closed")

// InvalidStateError is an operation invoked in a stage that does not allow
// it. The session is left untouched.
type InvalidStateError struct {
	Op    string
	Stage models.RideStage
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.Stage.Label())
}
