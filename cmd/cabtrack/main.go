package main

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/adiwardana/cabtrack/internal/fleet"
	"github.com/adiwardana/cabtrack/internal/httpapi"
	"github.com/adiwardana/cabtrack/internal/motion"
	"github.com/adiwardana/cabtrack/internal/pkg/config"
	"github.com/adiwardana/cabtrack/internal/pkg/health"
	"github.com/adiwardana/cabtrack/internal/pkg/logger"
	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/adiwardana/cabtrack/internal/pkg/server"
	"github.com/adiwardana/cabtrack/internal/ride"
	"github.com/adiwardana/cabtrack/internal/rideapi"
	"github.com/adiwardana/cabtrack/internal/sink"
	"github.com/adiwardana/cabtrack/internal/transport"
)

func main() {
	cfg := config.InitConfig(".env")

	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:    cfg.Logger.Level,
		FilePath: cfg.Logger.FilePath,
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	logger.SetGlobalLogger(zapLogger)
	defer zapLogger.Close()

	logger.Info("Starting cabtrack",
		logger.String("environment", cfg.App.Environment),
		logger.String("version", cfg.App.Version))

	locationSink, err := sink.New(*cfg)
	if err != nil {
		logger.Fatal("Failed to initialize location sink", logger.Err(err))
	}

	apiClient := rideapi.NewClient(cfg.API)

	aggregator := fleet.NewAggregator(cfg.Fleet)
	poller := fleet.NewPoller(cfg.Fleet, apiClient, aggregator)

	interpolator := motion.NewInterpolator(cfg.Motion)
	rides := ride.NewController(cfg.Ride, apiClient)
	rides.Subscribe(func(ev ride.Event) {
		switch ev.Type {
		case ride.EventStageChanged:
			logger.Info("Ride stage changed",
				logger.String("stage", ev.Stage.Label()),
				logger.String("ride_id", ev.Session.RideID),
				logger.String("cab_id", ev.Session.CabID))
		case ride.EventETAUpdated:
			logger.Debug("Pickup ETA updated",
				logger.String("cab_id", ev.Session.CabID),
				logger.Int("eta_minutes", ev.ETAMinutes))
		}
	})

	pushClient := transport.NewClient(cfg.Transport, transport.NewWebSocketDialer())
	pushClient.Subscribe(newMotionFeed(interpolator))
	pushClient.Subscribe(aggregator.MergePush)
	pushClient.Subscribe(rides.HandlePush)
	pushClient.Subscribe(func(u models.CabUpdate) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := locationSink.Store(ctx, u.CabID, u.Position, u.ObservedAt); err != nil {
			logger.Debug("Location sink store failed",
				logger.String("cab_id", u.CabID),
				logger.Err(err))
		}
	})

	ctx := context.Background()
	if err := pushClient.Connect(ctx); err != nil {
		logger.Warn("Initial push connection failed, retrying in background", logger.Err(err))
	}
	poller.Start(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Recover())
	e.Use(logger.ZapEchoMiddleware(zapLogger))

	health.RegisterHealthEndpoints(e, cfg.App.Name)
	httpapi.NewHandler(aggregator, rides).RegisterRoutes(e)

	shutdown := server.NewShutdownManager(zapLogger)
	shutdown.Register(func(ctx context.Context) error { return pushClient.Close() })
	shutdown.Register(func(ctx context.Context) error { poller.Stop(); return nil })
	shutdown.Register(func(ctx context.Context) error { interpolator.Close(); return nil })
	shutdown.Register(func(ctx context.Context) error { rides.Close(); return nil })
	shutdown.Register(func(ctx context.Context) error { return locationSink.Close() })

	srv := server.NewGracefulServer(e, zapLogger, cfg.Server.Port, cfg.Server.ShutdownTimeout)
	if err := srv.Start(); err != nil {
		logger.Error("Server stopped with error", logger.Err(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	shutdown.Shutdown(shutdownCtx)
}

// newMotionFeed animates each cab from its last seen position to the newly
// observed one, so downstream consumers see smooth movement between pushes
func newMotionFeed(interpolator *motion.Interpolator) transport.Handler {
	var mu sync.Mutex
	lastSeen := make(map[string]models.Coordinate)

	return func(u models.CabUpdate) {
		mu.Lock()
		prev, ok := lastSeen[u.CabID]
		lastSeen[u.CabID] = u.Position
		mu.Unlock()
		if !ok {
			return
		}

		interpolator.Animate(u.CabID, prev, u.Position, func(frame models.MotionFrame) {
			logger.Debug("Cab motion frame",
				logger.String("cab_id", u.CabID),
				logger.Float64("latitude", frame.Position.Latitude),
				logger.Float64("longitude", frame.Position.Longitude),
				logger.Float64("bearing", frame.Bearing),
				logger.Float64("fraction", frame.Fraction))
		})
	}
}
