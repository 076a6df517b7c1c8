package motion

import (
	"math"
	"sync"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/adiwardana/cabtrack/internal/utils"
)

const (
	defaultTickInterval = 100 * time.Millisecond
	defaultTicks        = 20

	// coincidentEpsilon bounds the coordinate delta below which two
	// positions are treated as the same point.
	coincidentEpsilon = 1e-6
)

// FrameFunc consumes one interpolated frame
type FrameFunc func(models.MotionFrame)

// Frames computes the interpolation steps from one position to another.
// The bearing is fixed at the segment heading for every frame, and the
// final frame lands exactly on the destination. Coincident endpoints
// produce a single frame at the destination.
func Frames(from, to models.Coordinate, ticks int) []models.MotionFrame {
	if ticks <= 0 {
		ticks = defaultTicks
	}

	if math.Abs(to.Latitude-from.Latitude) < coincidentEpsilon &&
		math.Abs(to.Longitude-from.Longitude) < coincidentEpsilon {
		return []models.MotionFrame{{Position: to, Fraction: 1}}
	}

	bearing := utils.Bearing(from, to)
	frames := make([]models.MotionFrame, 0, ticks)
	for i := 1; i <= ticks; i++ {
		fraction := float64(i) / float64(ticks)
		frame := models.MotionFrame{
			Position: models.Coordinate{
				Latitude:  from.Latitude + (to.Latitude-from.Latitude)*fraction,
				Longitude: from.Longitude + (to.Longitude-from.Longitude)*fraction,
			},
			Bearing:  bearing,
			Fraction: fraction,
		}
		if i == ticks {
			frame.Position = to
		}
		frames = append(frames, frame)
	}
	return frames
}

type animation struct {
	stop chan struct{}
}

// Interpolator animates position changes, one active animation per entity.
// Starting a new animation for an entity supersedes the running one: the
// old animation stops emitting before the first frame of the new one.
type Interpolator struct {
	tick  time.Duration
	ticks int

	mu     sync.Mutex
	active map[string]*animation
	closed bool
	wg     sync.WaitGroup
}

// NewInterpolator creates a motion interpolator
func NewInterpolator(cfg models.MotionConfig) *Interpolator {
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = defaultTickInterval
	}
	ticks := cfg.Ticks
	if ticks <= 0 {
		ticks = defaultTicks
	}
	return &Interpolator{
		tick:   tick,
		ticks:  ticks,
		active: make(map[string]*animation),
	}
}

// Animate starts animating one entity from one position to another,
// invoking fn once per frame. Any running animation for the same entity
// is cancelled first. Coincident endpoints emit the single final frame
// immediately.
func (ip *Interpolator) Animate(id string, from, to models.Coordinate, fn FrameFunc) {
	frames := Frames(from, to, ip.ticks)

	ip.mu.Lock()
	if ip.closed {
		ip.mu.Unlock()
		return
	}
	if prev, ok := ip.active[id]; ok {
		close(prev.stop)
	}
	handle := &animation{stop: make(chan struct{})}
	ip.active[id] = handle
	ip.mu.Unlock()

	if len(frames) == 1 {
		if ip.emit(id, handle, fn, frames[0]) {
			ip.finish(id, handle)
		}
		return
	}

	ip.wg.Add(1)
	go ip.run(id, handle, frames, fn)
}

func (ip *Interpolator) run(id string, handle *animation, frames []models.MotionFrame, fn FrameFunc) {
	defer ip.wg.Done()

	ticker := time.NewTicker(ip.tick)
	defer ticker.Stop()

	for _, frame := range frames {
		select {
		case <-handle.stop:
			return
		case <-ticker.C:
			if !ip.emit(id, handle, fn, frame) {
				return
			}
		}
	}
	ip.finish(id, handle)
}

// emit delivers one frame unless the animation has been superseded
func (ip *Interpolator) emit(id string, handle *animation, fn FrameFunc, frame models.MotionFrame) bool {
	ip.mu.Lock()
	current := ip.active[id]
	ip.mu.Unlock()
	if current != handle {
		return false
	}
	fn(frame)
	return true
}

func (ip *Interpolator) finish(id string, handle *animation) {
	ip.mu.Lock()
	if ip.active[id] == handle {
		delete(ip.active, id)
	}
	ip.mu.Unlock()
}

// Stop cancels the running animation for one entity, if any
func (ip *Interpolator) Stop(id string) {
	ip.mu.Lock()
	if anim, ok := ip.active[id]; ok {
		close(anim.stop)
		delete(ip.active, id)
	}
	ip.mu.Unlock()
}

// Close cancels every running animation and waits for their goroutines
func (ip *Interpolator) Close() {
	ip.mu.Lock()
	if ip.closed {
		ip.mu.Unlock()
		return
	}
	ip.closed = true
	for id, anim := range ip.active {
		close(anim.stop)
		delete(ip.active, id)
	}
	ip.mu.Unlock()

	ip.wg.Wait()
}
