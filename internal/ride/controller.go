package ride

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/logger"
	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/adiwardana/cabtrack/internal/rideapi"
	"github.com/adiwardana/cabtrack/internal/utils"
)

const (
	defaultAssumedSpeedKmh = 30.0
	defaultETATick         = time.Second
)

type subscriber struct {
	id int
	fn EventFunc
}

// Controller drives the single active ride session through its lifecycle.
// The mutex guards every transition and is never held across a ride API
// call: requests are issued unlocked and their results re-checked against
// the stage they left behind.
type Controller struct {
	api        API
	speedKmh   float64
	etaTick    time.Duration
	startDelay time.Duration

	mu           sync.Mutex
	stage        models.RideStage
	session      models.RideSession
	candidates   []models.CandidateOption
	newRequestID string
	arrivedFired bool
	cabPosition  models.Coordinate
	hasCabPos    bool
	etaAnchorAt  time.Time
	etaStop      chan struct{}
	subs         []subscriber
	nextSubID    int
	closed       bool

	wg sync.WaitGroup
}

// NewController creates a ride lifecycle controller in the idle stage
func NewController(cfg models.RideConfig, api API) *Controller {
	speed := cfg.AssumedSpeedKmh
	if speed <= 0 {
		speed = defaultAssumedSpeedKmh
	}
	etaTick := cfg.ETATick
	if etaTick <= 0 {
		etaTick = defaultETATick
	}
	return &Controller{
		api:        api,
		speedKmh:   speed,
		etaTick:    etaTick,
		startDelay: cfg.StartDelay,
		stage:      models.StageIdle,
		session:    models.RideSession{Stage: models.StageIdle},
	}
}

// Subscribe registers a lifecycle event listener and returns its id
func (c *Controller) Subscribe(fn EventFunc) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	c.subs = append(c.subs, subscriber{id: c.nextSubID, fn: fn})
	return c.nextSubID
}

// Unsubscribe removes a previously registered listener
func (c *Controller) Unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.subs {
		if s.id == id {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

// Find searches for candidate cabs for a trip. Only valid while idle; on
// success the session moves to options-ready with a fresh candidate set.
func (c *Controller) Find(ctx context.Context, pickup, drop models.Coordinate) ([]models.CandidateOption, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrControllerClosed
	}
	if c.stage != models.StageIdle {
		err := &InvalidStateError{Op: "search", Stage: c.stage}
		c.mu.Unlock()
		return nil, err
	}
	c.session = models.RideSession{
		Pickup:    pickup,
		Drop:      drop,
		CreatedAt: models.Now(),
	}
	ev := c.transitionLocked(models.StageSearching)
	c.mu.Unlock()
	c.publish(ev)

	resp, err := c.api.FindCab(ctx, pickup, drop)

	c.mu.Lock()
	if c.stage != models.StageSearching {
		c.mu.Unlock()
		return nil, ErrCancelled
	}
	if err != nil {
		idle := c.transitionLocked(models.StageIdle)
		c.resetLocked()
		c.mu.Unlock()
		c.publish(idle)
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		idle := c.transitionLocked(models.StageIdle)
		c.resetLocked()
		c.mu.Unlock()
		c.publish(idle)
		return nil, ErrNoCandidates
	}

	c.candidates = resp.Candidates
	c.newRequestID = resp.NewRequestID
	ready := c.transitionLocked(models.StageOptionsReady)
	out := make([]models.CandidateOption, len(c.candidates))
	copy(out, c.candidates)
	c.mu.Unlock()
	c.publish(ready)
	return out, nil
}

// Book attempts to book one cab from the current options. The exposed
// option set is invalidated the moment the attempt is issued; if the
// attempt fails, the prior options are restored and the session returns
// to options-ready.
func (c *Controller) Book(ctx context.Context, cabID string) (models.RideSession, error) {
	c.mu.Lock()
	if c.stage != models.StageOptionsReady {
		err := &InvalidStateError{Op: "book", Stage: c.stage}
		c.mu.Unlock()
		return models.RideSession{}, err
	}

	var chosen *models.CandidateOption
	for i := range c.candidates {
		if c.candidates[i].CabID == cabID {
			chosen = &c.candidates[i]
			break
		}
	}
	if chosen == nil {
		c.mu.Unlock()
		return models.RideSession{}, ErrUnknownCandidate
	}
	picked := *chosen
	held := c.candidates
	c.candidates = nil

	req := rideapi.BookRequest{
		CabID:            picked.CabID,
		Start:            c.session.Pickup,
		End:              c.session.Drop,
		Shared:           picked.Shared,
		PrimaryRequestID: picked.PrimaryRequestID,
		NewRequestID:     c.newRequestID,
	}
	booking := c.transitionLocked(models.StageBooking)
	c.mu.Unlock()
	c.publish(booking)

	resp, err := c.api.BookCab(ctx, req)

	c.mu.Lock()
	if c.stage != models.StageBooking {
		c.mu.Unlock()
		if err == nil {
			c.releaseCab(picked.CabID)
		}
		return models.RideSession{}, ErrCancelled
	}
	if err != nil {
		c.candidates = held
		ready := c.transitionLocked(models.StageOptionsReady)
		c.mu.Unlock()
		c.publish(ready)
		return models.RideSession{}, err
	}

	c.session.RideID = resp.RideID
	c.session.CabID = picked.CabID
	if resp.CabID != "" {
		c.session.CabID = resp.CabID
	}
	c.session.CabName = picked.CabName
	if resp.CabName != "" {
		c.session.CabName = resp.CabName
	}
	c.session.Fare = picked.Fare
	if resp.Fare > 0 {
		c.session.Fare = resp.Fare
	}
	c.session.Shared = picked.Shared
	c.arrivedFired = false
	c.cabPosition = picked.CabPosition
	if resp.CabPosition.Latitude != 0 || resp.CabPosition.Longitude != 0 {
		c.cabPosition = resp.CabPosition
	}
	c.hasCabPos = true
	c.etaAnchorAt = models.Now()

	assigned := c.transitionLocked(models.StageAssigned)
	events := []Event{assigned}
	if etaEv, ok := c.etaEventLocked(); ok {
		events = append(events, etaEv)
	}
	c.startETALocked()
	session := c.session
	c.mu.Unlock()
	c.publish(events...)
	return session, nil
}

// HandlePush feeds one push observation into the session. Observations for
// cabs other than the assigned one are ignored. An arrived status while the
// cab is enroute fires the arrival transition exactly once; position pushes
// re-anchor the ETA.
func (c *Controller) HandlePush(u models.CabUpdate) {
	c.mu.Lock()
	if c.session.CabID == "" || u.CabID != c.session.CabID {
		c.mu.Unlock()
		return
	}
	c.cabPosition = u.Position
	c.hasCabPos = true
	c.etaAnchorAt = models.Now()

	var events []Event
	switch {
	case u.Status == models.StatusArrived && c.stage == models.StageAssigned && !c.arrivedFired:
		c.arrivedFired = true
		c.stopETALocked()
		events = append(events, c.transitionLocked(models.StageArrived))
	case c.stage == models.StageAssigned:
		if ev, ok := c.etaEventLocked(); ok {
			events = append(events, ev)
		}
	}
	c.mu.Unlock()
	c.publish(events...)
}

// StartRide moves an arrived session onto the trip
func (c *Controller) StartRide(ctx context.Context) error {
	c.mu.Lock()
	if c.stage != models.StageArrived {
		err := &InvalidStateError{Op: "start the ride", Stage: c.stage}
		c.mu.Unlock()
		return err
	}
	delay := c.startDelay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	if c.stage != models.StageArrived {
		c.mu.Unlock()
		return ErrCancelled
	}
	ev := c.transitionLocked(models.StageInProgress)
	c.mu.Unlock()
	c.publish(ev)
	return nil
}

// Complete reports trip completion to the backend. On success the session
// emits its terminal event and the controller silently returns to idle,
// ready for the next search.
func (c *Controller) Complete(ctx context.Context) (models.RideSession, error) {
	c.mu.Lock()
	if c.stage != models.StageInProgress {
		err := &InvalidStateError{Op: "complete the ride", Stage: c.stage}
		c.mu.Unlock()
		return models.RideSession{}, err
	}
	cabID := c.session.CabID
	completing := c.transitionLocked(models.StageCompleting)
	c.mu.Unlock()
	c.publish(completing)

	err := c.api.CompleteRide(ctx, cabID)

	c.mu.Lock()
	if c.stage != models.StageCompleting {
		c.mu.Unlock()
		return models.RideSession{}, ErrCancelled
	}
	if err != nil {
		back := c.transitionLocked(models.StageInProgress)
		c.mu.Unlock()
		c.publish(back)
		return models.RideSession{}, err
	}

	done := c.transitionLocked(models.StageCompleted)
	completed := c.session
	c.resetLocked()
	c.mu.Unlock()
	c.publish(done)
	return completed, nil
}

// Cancel abandons the session. Valid from searching through arrived; once
// the trip is in progress the only way out is completion. If a cab was
// already assigned its release is reported best-effort.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	switch c.stage {
	case models.StageSearching, models.StageOptionsReady, models.StageBooking,
		models.StageAssigned, models.StageArrived:
	default:
		err := &InvalidStateError{Op: "cancel", Stage: c.stage}
		c.mu.Unlock()
		return err
	}
	cabID := c.session.CabID
	cancelled := c.transitionLocked(models.StageCancelled)
	c.resetLocked()
	c.mu.Unlock()
	c.publish(cancelled)

	if cabID != "" {
		if err := c.api.CancelRide(ctx, cabID); err != nil {
			logger.Warn("Cab release after cancel failed",
				logger.String("cab_id", cabID),
				logger.Err(err))
		}
	}
	return nil
}

// Status is the point-in-time view of the session
type Status struct {
	Stage      models.RideStage
	Session    models.RideSession
	Candidates []models.CandidateOption
	ETAMinutes int
}

// Status returns a copy of the current session state
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Stage:   c.stage,
		Session: c.session,
	}
	if len(c.candidates) > 0 {
		st.Candidates = make([]models.CandidateOption, len(c.candidates))
		copy(st.Candidates, c.candidates)
	}
	if c.stage == models.StageAssigned {
		if minutes, ok := c.etaMinutesLocked(); ok {
			st.ETAMinutes = minutes
		}
	}
	return st
}

// Close stops the controller. Any running ETA loop exits; subsequent
// operations fail.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopETALocked()
	c.mu.Unlock()
	c.wg.Wait()
}

// publish delivers events to the listeners registered at delivery time.
// Never called with c.mu held.
func (c *Controller) publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	c.mu.Lock()
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, ev := range events {
		for _, s := range subs {
			s.fn(ev)
		}
	}
}

// transitionLocked moves to the given stage and builds the notification.
// Caller holds c.mu and publishes after unlocking.
func (c *Controller) transitionLocked(stage models.RideStage) Event {
	c.stage = stage
	c.session.Stage = stage
	return Event{
		Type:    EventStageChanged,
		Stage:   stage,
		Session: c.session,
		At:      models.Now(),
	}
}

// resetLocked returns the controller to idle without emitting anything.
// Caller holds c.mu.
func (c *Controller) resetLocked() {
	c.stage = models.StageIdle
	c.session = models.RideSession{Stage: models.StageIdle}
	c.candidates = nil
	c.newRequestID = ""
	c.arrivedFired = false
	c.hasCabPos = false
	c.stopETALocked()
}

// remainingMinutes estimates minutes to pickup from the anchored distance,
// counting down as wall time passes so the estimate keeps moving between
// position pushes
func remainingMinutes(distanceMeters, speedKmh float64, sinceAnchor time.Duration) int {
	minutes := distanceMeters / 1000.0 / speedKmh * 60.0
	minutes -= sinceAnchor.Minutes()

	out := int(math.Ceil(minutes))
	if out < 1 {
		out = 1
	}
	return out
}

func (c *Controller) etaMinutesLocked() (int, bool) {
	if !c.hasCabPos || c.speedKmh <= 0 {
		return 0, false
	}
	distance := utils.DistanceMeters(c.cabPosition, c.session.Pickup)
	return remainingMinutes(distance, c.speedKmh, models.Now().Sub(c.etaAnchorAt)), true
}

func (c *Controller) etaEventLocked() (Event, bool) {
	minutes, ok := c.etaMinutesLocked()
	if !ok {
		return Event{}, false
	}
	return Event{
		Type:       EventETAUpdated,
		Stage:      c.stage,
		Session:    c.session,
		ETAMinutes: minutes,
		At:         models.Now(),
	}, true
}

// startETALocked launches the periodic ETA loop for the assigned stage.
// Caller holds c.mu.
func (c *Controller) startETALocked() {
	stop := make(chan struct{})
	c.etaStop = stop
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.etaTick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.etaStop != stop || c.stage != models.StageAssigned {
					c.mu.Unlock()
					return
				}
				ev, ok := c.etaEventLocked()
				c.mu.Unlock()
				if ok {
					c.publish(ev)
				}
			}
		}
	}()
}

// stopETALocked halts the ETA loop if one is running. Caller holds c.mu.
func (c *Controller) stopETALocked() {
	if c.etaStop != nil {
		close(c.etaStop)
		c.etaStop = nil
	}
}

// releaseCab is the best-effort release of a cab booked by a request that
// lost its session mid-flight
func (c *Controller) releaseCab(cabID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.api.CancelRide(ctx, cabID); err != nil {
		logger.Warn("Orphaned booking release failed",
			logger.String("cab_id", cabID),
			logger.Err(err))
	}
}
