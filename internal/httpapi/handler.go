package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adiwardana/cabtrack/internal/fleet"
	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/adiwardana/cabtrack/internal/ride"
	"github.com/adiwardana/cabtrack/internal/rideapi"
)

const defaultNearbyRadiusMeters = 3000.0

// Handler exposes the fleet and ride state over HTTP
type Handler struct {
	fleet *fleet.Aggregator
	rides *ride.Controller
}

// NewHandler creates the HTTP handler
func NewHandler(fleetAgg *fleet.Aggregator, rides *ride.Controller) *Handler {
	return &Handler{
		fleet: fleetAgg,
		rides: rides,
	}
}

// RegisterRoutes registers the API routes
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/fleet", h.FleetSnapshot)
	api.GET("/fleet/nearby", h.NearbyCabs)
	api.GET("/ride", h.RideStatus)
	api.POST("/ride/find", h.FindCab)
	api.POST("/ride/book", h.BookCab)
	api.POST("/ride/start", h.StartRide)
	api.POST("/ride/complete", h.CompleteRide)
	api.POST("/ride/cancel", h.CancelRide)
}

type errorResponse struct {
	Error string `json:"error"`
}

// mapError translates domain failures to HTTP statuses
func mapError(c echo.Context, err error) error {
	var stateErr *ride.InvalidStateError
	var reqErr *rideapi.RequestError
	switch {
	case errors.As(err, &stateErr):
		return c.JSON(http.StatusConflict, errorResponse{Error: stateErr.Error()})
	case errors.Is(err, ride.ErrNoCandidates):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, ride.ErrUnknownCandidate):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &reqErr):
		return c.JSON(http.StatusBadGateway, errorResponse{Error: reqErr.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// FleetSnapshot returns the current fleet view
func (h *Handler) FleetSnapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, h.fleet.Snapshot())
}

type nearbyRequest struct {
	Latitude  float64 `query:"latitude"`
	Longitude float64 `query:"longitude"`
	Radius    float64 `query:"radius"`
}

// NearbyCabs returns fresh cabs around a point, closest first
func (h *Handler) NearbyCabs(c echo.Context) error {
	var req nearbyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid query parameters"})
	}
	origin := models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if !origin.Valid() {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid coordinates"})
	}
	radius := req.Radius
	if radius <= 0 {
		radius = defaultNearbyRadiusMeters
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"cabs": h.fleet.Nearby(origin, radius),
	})
}

// RideStatus returns the current session state
func (h *Handler) RideStatus(c echo.Context) error {
	status := h.rides.Status()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"stage":       status.Stage,
		"stage_label": status.Stage.Label(),
		"session":     status.Session,
		"candidates":  status.Candidates,
		"eta_minutes": status.ETAMinutes,
	})
}

type findRequest struct {
	Pickup models.Coordinate `json:"pickup"`
	Drop   models.Coordinate `json:"drop"`
}

// FindCab searches for candidate cabs
func (h *Handler) FindCab(c echo.Context) error {
	var req findRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if !req.Pickup.Valid() || !req.Drop.Valid() {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid coordinates"})
	}

	options, err := h.rides.Find(c.Request().Context(), req.Pickup, req.Drop)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"candidates": options,
	})
}

type bookRequest struct {
	CabID string `json:"cab_id"`
}

// BookCab books one of the current options
func (h *Handler) BookCab(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil || req.CabID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "cab_id is required"})
	}

	session, err := h.rides.Book(c.Request().Context(), req.CabID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// StartRide moves an arrived session onto the trip
func (h *Handler) StartRide(c echo.Context) error {
	if err := h.rides.StartRide(c.Request().Context()); err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, h.rides.Status().Session)
}

// CompleteRide completes the active trip
func (h *Handler) CompleteRide(c echo.Context) error {
	session, err := h.rides.Complete(c.Request().Context())
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// CancelRide abandons the active session
func (h *Handler) CancelRide(c echo.Context) error {
	if err := h.rides.Cancel(c.Request().Context()); err != nil {
		return mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
