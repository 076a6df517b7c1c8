package server

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestNewGracefulServer(t *testing.T) {
	e := echo.New()
	gs := NewGracefulServer(e, logger.GetGlobalLogger(), 9980, 0)

	assert.NotNil(t, gs)
	assert.Equal(t, defaultShutdownTimeout, gs.shutdownTimeout)

	gs = NewGracefulServer(e, logger.GetGlobalLogger(), 9980, 5*time.Second)
	assert.Equal(t, 5*time.Second, gs.shutdownTimeout)
}

func TestGracefulServer_Shutdown(t *testing.T) {
	e := echo.New()
	gs := NewGracefulServer(e, logger.GetGlobalLogger(), 0, time.Second)

	go func() {
		_ = e.Start(":0")
	}()
	time.Sleep(50 * time.Millisecond)

	assert.NoError(t, gs.Shutdown())
}

func TestShutdownManager_RunsFunctionsInOrder(t *testing.T) {
	sm := NewShutdownManager(logger.GetGlobalLogger())

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"transport", "poller", "sink"} {
		component := name
		sm.Register(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, component)
			mu.Unlock()
			return nil
		})
	}

	assert.NoError(t, sm.Shutdown(context.Background()))
	assert.Equal(t, []string{"transport", "poller", "sink"}, order)
}

func TestShutdownManager_ContinuesPastFailures(t *testing.T) {
	sm := NewShutdownManager(logger.GetGlobalLogger())

	var mu sync.Mutex
	var order []string
	sm.Register(func(ctx context.Context) error {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
		return fmt.Errorf("first failed")
	})
	sm.Register(func(ctx context.Context) error {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
		return nil
	})

	assert.NoError(t, sm.Shutdown(context.Background()))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestShutdownManager_EmptyIsNoop(t *testing.T) {
	sm := NewShutdownManager(logger.GetGlobalLogger())
	assert.NoError(t, sm.Shutdown(context.Background()))
}
