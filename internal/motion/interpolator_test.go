package motion

import (
	"sync"
	"testing"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrames_CoincidentEndpointsYieldSingleFrame(t *testing.T) {
	at := models.Coordinate{Latitude: 12.9, Longitude: 77.6}

	frames := Frames(at, at, 20)

	require.Len(t, frames, 1)
	assert.Equal(t, at, frames[0].Position)
	assert.Equal(t, 1.0, frames[0].Fraction)
}

func TestFrames_ProducesExactFrameCountEndingOnDestination(t *testing.T) {
	from := models.Coordinate{Latitude: 12.90, Longitude: 77.60}
	to := models.Coordinate{Latitude: 12.95, Longitude: 77.65}

	frames := Frames(from, to, 10)

	require.Len(t, frames, 10)
	assert.Equal(t, to, frames[9].Position)
	assert.Equal(t, 1.0, frames[9].Fraction)

	for i := 1; i < len(frames); i++ {
		assert.Greater(t, frames[i].Fraction, frames[i-1].Fraction)
		assert.GreaterOrEqual(t, frames[i].Position.Latitude, frames[i-1].Position.Latitude)
	}
}

func TestFrames_BearingConstantAcrossAnimation(t *testing.T) {
	from := models.Coordinate{Latitude: 12.90, Longitude: 77.60}
	to := models.Coordinate{Latitude: 12.95, Longitude: 77.60} // due north

	frames := Frames(from, to, 5)

	for _, frame := range frames {
		assert.InDelta(t, 0.0, frame.Bearing, 0.001)
	}
}

func TestInterpolator_DeliversAllFramesInOrder(t *testing.T) {
	ip := NewInterpolator(models.MotionConfig{TickInterval: 5 * time.Millisecond, Ticks: 8})
	defer ip.Close()

	var mu sync.Mutex
	var got []models.MotionFrame
	done := make(chan struct{})

	ip.Animate("cab-1",
		models.Coordinate{Latitude: 12.90, Longitude: 77.60},
		models.Coordinate{Latitude: 12.95, Longitude: 77.65},
		func(f models.MotionFrame) {
			mu.Lock()
			got = append(got, f)
			if len(got) == 8 {
				close(done)
			}
			mu.Unlock()
		})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("animation never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 8)
	assert.Equal(t, models.Coordinate{Latitude: 12.95, Longitude: 77.65}, got[7].Position)
}

func TestInterpolator_NewAnimationSupersedesRunningOne(t *testing.T) {
	ip := NewInterpolator(models.MotionConfig{TickInterval: 10 * time.Millisecond, Ticks: 50})
	defer ip.Close()

	var mu sync.Mutex
	firstFrames := 0
	firstStarted := make(chan struct{})
	var startedOnce sync.Once

	ip.Animate("cab-1",
		models.Coordinate{Latitude: 12.90, Longitude: 77.60},
		models.Coordinate{Latitude: 12.95, Longitude: 77.65},
		func(f models.MotionFrame) {
			mu.Lock()
			firstFrames++
			mu.Unlock()
			startedOnce.Do(func() { close(firstStarted) })
		})

	select {
	case <-firstStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("first animation never emitted")
	}

	secondDone := make(chan struct{})
	secondCount := 0
	ip.Animate("cab-1",
		models.Coordinate{Latitude: 12.95, Longitude: 77.65},
		models.Coordinate{Latitude: 13.00, Longitude: 77.70},
		func(f models.MotionFrame) {
			mu.Lock()
			secondCount++
			if secondCount == 50 {
				close(secondDone)
			}
			mu.Unlock()
		})

	mu.Lock()
	frozen := firstFrames
	mu.Unlock()

	select {
	case <-secondDone:
	case <-time.After(3 * time.Second):
		t.Fatal("second animation never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, firstFrames, frozen+1,
		"superseded animation must stop emitting once the new one starts")
	assert.Equal(t, 50, secondCount)
}

func TestInterpolator_IndependentEntitiesAnimateConcurrently(t *testing.T) {
	ip := NewInterpolator(models.MotionConfig{TickInterval: 5 * time.Millisecond, Ticks: 4})
	defer ip.Close()

	var wg sync.WaitGroup
	counts := make([]int, 2)
	var mu sync.Mutex

	for i, id := range []string{"cab-1", "cab-2"} {
		wg.Add(1)
		idx := i
		ip.Animate(id,
			models.Coordinate{Latitude: 12.90, Longitude: 77.60},
			models.Coordinate{Latitude: 12.91, Longitude: 77.61},
			func(f models.MotionFrame) {
				mu.Lock()
				counts[idx]++
				if counts[idx] == 4 {
					wg.Done()
				}
				mu.Unlock()
			})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("animations did not both complete")
	}
}

func TestInterpolator_CloseStopsEmission(t *testing.T) {
	ip := NewInterpolator(models.MotionConfig{TickInterval: 10 * time.Millisecond, Ticks: 100})

	var mu sync.Mutex
	count := 0
	ip.Animate("cab-1",
		models.Coordinate{Latitude: 12.90, Longitude: 77.60},
		models.Coordinate{Latitude: 12.95, Longitude: 77.65},
		func(f models.MotionFrame) {
			mu.Lock()
			count++
			mu.Unlock()
		})

	time.Sleep(30 * time.Millisecond)
	ip.Close()

	mu.Lock()
	settled := count
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, settled, count, "no frames may be emitted after Close")
	assert.Less(t, count, 100)
}
