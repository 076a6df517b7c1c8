package ride_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/adiwardana/cabtrack/internal/ride"
	"github.com/adiwardana/cabtrack/internal/ride/mocks"
	"github.com/adiwardana/cabtrack/internal/rideapi"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pickup = models.Coordinate{Latitude: 12.90, Longitude: 77.60}
	drop   = models.Coordinate{Latitude: 12.99, Longitude: 77.70}
)

type eventLog struct {
	mu     sync.Mutex
	events []ride.Event
}

func (l *eventLog) record(e ride.Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) stages() []models.RideStage {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.RideStage
	for _, e := range l.events {
		if e.Type == ride.EventStageChanged {
			out = append(out, e.Stage)
		}
	}
	return out
}

func (l *eventLog) etaCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Type == ride.EventETAUpdated {
			n++
		}
	}
	return n
}

func newTestController(t *testing.T) (*ride.Controller, *mocks.MockAPI, *eventLog) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	api := mocks.NewMockAPI(ctrl)
	controller := ride.NewController(models.RideConfig{
		AssumedSpeedKmh: 30,
		ETATick:         time.Hour, // periodic ETA is driven explicitly in tests
	}, api)
	t.Cleanup(controller.Close)

	log := &eventLog{}
	controller.Subscribe(log.record)
	return controller, api, log
}

func candidate(cabID string) models.CandidateOption {
	return models.CandidateOption{
		CabID:          cabID,
		CabName:        "Cab " + cabID,
		CabPosition:    models.Coordinate{Latitude: 12.95, Longitude: 77.60},
		PickupDistance: 5560,
		TotalDistance:  18000,
		Fare:           320,
	}
}

func findResponse(cabIDs ...string) *rideapi.FindResponse {
	resp := &rideapi.FindResponse{NewRequestID: "501"}
	for _, id := range cabIDs {
		resp.Candidates = append(resp.Candidates, candidate(id))
	}
	return resp
}

func bookResponse(cabID string) *rideapi.BookResponse {
	return &rideapi.BookResponse{
		RideID:      "9001",
		Fare:        320,
		CabID:       cabID,
		CabName:     "Cab " + cabID,
		CabPosition: models.Coordinate{Latitude: 12.95, Longitude: 77.60},
	}
}

func TestController_FindReturnsOptions(t *testing.T) {
	controller, api, _ := newTestController(t)
	api.EXPECT().FindCab(gomock.Any(), pickup, drop).Return(findResponse("21", "22"), nil)

	options, err := controller.Find(context.Background(), pickup, drop)

	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, models.StageOptionsReady, controller.Status().Stage)
	assert.Len(t, controller.Status().Candidates, 2)
}

func TestController_FindOutsideIdleRejected(t *testing.T) {
	controller, api, _ := newTestController(t)
	api.EXPECT().FindCab(gomock.Any(), pickup, drop).Return(findResponse("21"), nil)

	_, err := controller.Find(context.Background(), pickup, drop)
	require.NoError(t, err)

	_, err = controller.Find(context.Background(), pickup, drop)

	var stateErr *ride.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, models.StageOptionsReady, stateErr.Stage)
}

func TestController_FindWithNoCandidatesReturnsToIdle(t *testing.T) {
	controller, api, _ := newTestController(t)
	api.EXPECT().FindCab(gomock.Any(), pickup, drop).Return(findResponse(), nil)

	_, err := controller.Find(context.Background(), pickup, drop)

	assert.ErrorIs(t, err, ride.ErrNoCandidates)
	assert.Equal(t, models.StageIdle, controller.Status().Stage)
}

func TestController_FindFailureReturnsToIdle(t *testing.T) {
	controller, api, _ := newTestController(t)
	api.EXPECT().FindCab(gomock.Any(), pickup, drop).
		Return(nil, &rideapi.RequestError{Status: 503, Message: "unavailable"})

	_, err := controller.Find(context.Background(), pickup, drop)

	var reqErr *rideapi.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, models.StageIdle, controller.Status().Stage)

	// The controller is usable again right away.
	api.EXPECT().FindCab(gomock.Any(), pickup, drop).Return(findResponse("21"), nil)
	_, err = controller.Find(context.Background(), pickup, drop)
	assert.NoError(t, err)
}

func TestController_BookAssignsCab(t *testing.T) {
	controller, api, _ := newTestController(t)
	api.EXPECT().FindCab(gomock.Any(), pickup, drop).Return(findResponse("21"), nil)
	api.EXPECT().BookCab(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req rideapi.BookRequest) (*rideapi.BookResponse, error) {
			assert.Equal(t, "21", req.CabID)
			assert.Equal(t, pickup, req.Start)
			assert.Equal(t, drop, req.End)
			assert.Equal(t, "501", req.NewRequestID)
			return bookResponse("21"), nil
		})

	_, err := controller.Find(context.Background(), pickup, drop)
	require.NoError(t, err)

	session, err := controller.Book(context.Background(), "21")

	require.NoError(t, err)
	assert.Equal(t, "9001", session.RideID)
	assert.Equal(t, "21", session.CabID)
	assert.Equal(t, 320.0, session.Fare)

	status := controller.Status()
	assert.Equal(t, models.StageAssigned, status.Stage)
	assert.Empty(t, status.Candidates, "options are invalidated by the booking attempt")
	assert.Equal(t, 12, status.ETAMinutes)
}

func TestController_BookFailureRestoresOptions(t *testing.T) {
	controller, api, _ := newTestController(t)
	api.EXPECT().FindCab(gomock.Any(), pickup, drop).Return(findResponse("21", "22"), nil)
	api.EXPECT().BookCab(gomock.Any(), gomock.Any()).
		Return(nil, &rideapi.RequestError{Status: 409, Message: "cab already taken"})

	_, err := controller.Find(context.Background(), pickup, drop)
	require.NoError(t, err)

	_, err = controller.Book(context.Background(), "21")

	var reqErr *rideapi.RequestError
	require.ErrorAs(t, err, &reqErr)

	status := controller.Status()
	assert.Equal(t, models.StageOptionsReady, status.Stage)
	require.Len(t, status.Candidates, 2, "a failed attempt restores the prior options")

	// Booking the other candidate still works.
	api.EXPECT().BookCab(gomock.Any(), gomock.Any()).Return(bookResponse("22"), nil)
	session, err := controller.Book(context.Background(), "22")
	require.NoError(t, err)
	assert.Equal(t, "22", session.CabID)
}

func TestController_BookUnknownCandidateRejected(t *testing.T) {
	controller, api, _ := newTestController(t)
	api.EXPECT().FindCab(gomock.Any(), pickup, drop).Return(findResponse("21"), nil)

	_, err := controller.Find(context.Background(), pickup, drop)
	require.NoError(t, err)

	_, err = controller.Book(context.Background(), "99")

	assert.ErrorIs(t, err, ride.ErrUnknownCandidate)
	assert.Equal(t, models.StageOptionsReady, controller.Status().Stage)
	assert.Len(t, controller.Status().Candidates, 1)
}

func TestController_BookOutsideOptionsReadyRejected(t *testing.T) {
	controller, _, _ := newTestController(t)

	_, err := controller.Book(context.Background(), "21")

	var stateErr *ride.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, models.StageIdle, stateErr.Stage)
}

func assignCab(t *testing.T, controller *ride.Controller, api *mocks.MockAPI, cabID string) {
	t.Helper()
	api.EXPECT().FindCab(gomock.Any(), pickup, drop).Return(findResponse(cabID), nil)
	api.EXPECT().BookCab(gomock.Any(), gomock.Any()).Return(bookResponse(cabID), nil)

	_, err := controller.Find(context.Background(), pickup, drop)
	require.NoError(t, err)
	_, err = controller.Book(context.Background(), cabID)
	require.NoError(t, err)
}

func TestController_ArrivalIsEdgeTriggered(t *testing.T) {
	controller, api, log := newTestController(t)
	assignCab(t, controller, api, "21")

	arrived := models.CabUpdate{
		CabID:    "21",
		Position: pickup,
		Status:   models.StatusArrived,
	}
	controller.HandlePush(arrived)
	controller.HandlePush(arrived)
	controller.HandlePush(arrived)

	assert.Equal(t, models.StageArrived, controller.Status().Stage)

	arrivals := 0
	for _, stage := range log.stages() {
		if stage == models.StageArrived {
			arrivals++
		}
	}
	assert.Equal(t, 1, arrivals, "duplicate arrived pushes must not re-fire the transition")
}

func TestController_PushesForOtherCabsIgnored(t *testing.T) {
	controller, api, _ := newTestController(t)
	assignCab(t, controller, api, "21")

	controller.HandlePush(models.CabUpdate{
		CabID:    "99",
		Position: pickup,
		Status:   models.StatusArrived,
	})

	assert.Equal(t, models.StageAssigned, controller.Status().Stage)
}

func TestController_PositionPushReanchorsETA(t *testing.T) {
	controller, api, log := newTestController(t)
	assignCab(t, controller, api, "21")

	before := log.etaCount()
	controller.HandlePush(models.CabUpdate{
		CabID:    "21",
		Position: models.Coordinate{Latitude: 12.92, Longitude: 77.60},
		Status:   models.StatusEnroute,
	})

	assert.Equal(t, before+1, log.etaCount())

	// The cab is closer now, so the status ETA shrinks too.
	assert.Less(t, controller.Status().ETAMinutes, 12)
}

func TestController_StartRideRequiresArrival(t *testing.T) {
	controller, api, _ := newTestController(t)
	assignCab(t, controller, api, "21")

	err := controller.StartRide(context.Background())
	var stateErr *ride.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, models.StageAssigned, stateErr.Stage)

	controller.HandlePush(models.CabUpdate{CabID: "21", Position: pickup, Status: models.StatusArrived})

	require.NoError(t, controller.StartRide(context.Background()))
	assert.Equal(t, models.StageInProgress, controller.Status().Stage)
}

func TestController_CompleteFinishesSessionAndResets(t *testing.T) {
	controller, api, log := newTestController(t)
	assignCab(t, controller, api, "21")
	controller.HandlePush(models.CabUpdate{CabID: "21", Position: pickup, Status: models.StatusArrived})
	require.NoError(t, controller.StartRide(context.Background()))

	api.EXPECT().CompleteRide(gomock.Any(), "21").Return(nil)

	completed, err := controller.Complete(context.Background())

	require.NoError(t, err)
	assert.Equal(t, models.StageCompleted, completed.Stage)
	assert.Equal(t, "9001", completed.RideID)
	assert.Equal(t, models.StageIdle, controller.Status().Stage, "the controller resets for the next search")

	stages := log.stages()
	assert.Equal(t, models.StageCompleted, stages[len(stages)-1],
		"the terminal stage is announced exactly once; the reset to idle is silent")
}

func TestController_CompleteFailureStaysInProgress(t *testing.T) {
	controller, api, _ := newTestController(t)
	assignCab(t, controller, api, "21")
	controller.HandlePush(models.CabUpdate{CabID: "21", Position: pickup, Status: models.StatusArrived})
	require.NoError(t, controller.StartRide(context.Background()))

	api.EXPECT().CompleteRide(gomock.Any(), "21").Return(errors.New("timeout"))

	_, err := controller.Complete(context.Background())

	require.Error(t, err)
	assert.Equal(t, models.StageInProgress, controller.Status().Stage)

	// Retry succeeds.
	api.EXPECT().CompleteRide(gomock.Any(), "21").Return(nil)
	_, err = controller.Complete(context.Background())
	assert.NoError(t, err)
}

func TestController_CancelReleasesAssignedCab(t *testing.T) {
	controller, api, _ := newTestController(t)
	assignCab(t, controller, api, "21")
	api.EXPECT().CancelRide(gomock.Any(), "21").Return(nil)

	require.NoError(t, controller.Cancel(context.Background()))
	assert.Equal(t, models.StageIdle, controller.Status().Stage)
}

func TestController_CancelBeforeBookingSkipsRelease(t *testing.T) {
	controller, api, _ := newTestController(t)
	api.EXPECT().FindCab(gomock.Any(), pickup, drop).Return(findResponse("21"), nil)

	_, err := controller.Find(context.Background(), pickup, drop)
	require.NoError(t, err)

	require.NoError(t, controller.Cancel(context.Background()))
	assert.Equal(t, models.StageIdle, controller.Status().Stage)
}

func TestController_CancelDuringTripRejected(t *testing.T) {
	controller, api, _ := newTestController(t)
	assignCab(t, controller, api, "21")
	controller.HandlePush(models.CabUpdate{CabID: "21", Position: pickup, Status: models.StatusArrived})
	require.NoError(t, controller.StartRide(context.Background()))

	err := controller.Cancel(context.Background())

	var stateErr *ride.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, models.StageInProgress, stateErr.Stage)
}

func TestController_FullLifecycleStageSequence(t *testing.T) {
	controller, api, log := newTestController(t)
	api.EXPECT().FindCab(gomock.Any(), pickup, drop).Return(findResponse("21"), nil)
	api.EXPECT().BookCab(gomock.Any(), gomock.Any()).Return(bookResponse("21"), nil)
	api.EXPECT().CompleteRide(gomock.Any(), "21").Return(nil)

	ctx := context.Background()
	_, err := controller.Find(ctx, pickup, drop)
	require.NoError(t, err)
	_, err = controller.Book(ctx, "21")
	require.NoError(t, err)
	controller.HandlePush(models.CabUpdate{CabID: "21", Position: pickup, Status: models.StatusArrived})
	require.NoError(t, controller.StartRide(ctx))
	_, err = controller.Complete(ctx)
	require.NoError(t, err)

	assert.Equal(t, []models.RideStage{
		models.StageSearching,
		models.StageOptionsReady,
		models.StageBooking,
		models.StageAssigned,
		models.StageArrived,
		models.StageInProgress,
		models.StageCompleting,
		models.StageCompleted,
	}, log.stages())
}
