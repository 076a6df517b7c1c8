package rideapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/circuitbreaker"
	"github.com/adiwardana/cabtrack/internal/pkg/logger"
	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/google/uuid"
)

// Client is the HTTP client for the ride API collaborator.
// The bearer credential is opaque: stored and presented, never parsed.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a new ride API client
func NewClient(cfg models.APIConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("ride-api")),
	}
}

// FindCab requests candidate cabs for a trip
func (c *Client) FindCab(ctx context.Context, start, end models.Coordinate) (*FindResponse, error) {
	req := findRequestWire{
		StartLatitude:  start.Latitude,
		StartLongitude: start.Longitude,
		EndLatitude:    end.Latitude,
		EndLongitude:   end.Longitude,
	}

	var wire findResponseWire
	if err := c.do(ctx, http.MethodPost, "/api/find_cab", req, &wire); err != nil {
		return nil, err
	}

	resp := &FindResponse{
		Candidates:   make([]models.CandidateOption, 0, len(wire.Candidates)),
		NewRequestID: wire.NewRequestID.String(),
	}
	for _, cand := range wire.Candidates {
		resp.Candidates = append(resp.Candidates, cand.toOption())
	}
	return resp, nil
}

// BookCab books the chosen candidate and returns the server-assigned ride
func (c *Client) BookCab(ctx context.Context, req BookRequest) (*BookResponse, error) {
	wireReq := bookRequestWire{
		CabID:            req.CabID,
		StartLatitude:    req.Start.Latitude,
		StartLongitude:   req.Start.Longitude,
		EndLatitude:      req.End.Latitude,
		EndLongitude:     req.End.Longitude,
		IsShared:         req.Shared,
		PrimaryRequestID: req.PrimaryRequestID,
		NewRequestID:     req.NewRequestID,
	}

	var wire bookResponseWire
	if err := c.do(ctx, http.MethodPost, "/api/book_cab", wireReq, &wire); err != nil {
		return nil, err
	}

	if wire.RideID.String() == "" {
		return nil, &RequestError{Message: "booking response missing ride_id"}
	}

	return &BookResponse{
		RideID:      wire.RideID.String(),
		Fare:        wire.Fare,
		CabID:       wire.Cab.ID.String(),
		CabName:     wire.Cab.Name,
		CabPosition: models.Coordinate{Latitude: wire.Cab.Lat, Longitude: wire.Cab.Lon},
	}, nil
}

// CompleteRide reports trip completion for the given cab
func (c *Client) CompleteRide(ctx context.Context, cabID string) error {
	path := fmt.Sprintf("/api/complete_ride/%s", url.PathEscape(cabID))
	return c.do(ctx, http.MethodGet, path, nil, nil)
}

// CancelRide asks the collaborator to release the given cab. Best-effort:
// callers treat failure as non-blocking.
func (c *Client) CancelRide(ctx context.Context, cabID string) error {
	path := fmt.Sprintf("/api/cancel_ride/%s", url.PathEscape(cabID))
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// ListCabs is the fallback poll: a full fleet listing. Rows are decoded
// individually so one malformed record cannot starve the whole poll; bad
// rows are dropped, matching the push path.
func (c *Client) ListCabs(ctx context.Context) ([]models.CabUpdate, error) {
	var rows []json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/cabs", nil, &rows); err != nil {
		return nil, err
	}

	updates := make([]models.CabUpdate, 0, len(rows))
	for _, row := range rows {
		var update models.CabUpdate
		if err := json.Unmarshal(row, &update); err != nil {
			logger.Debug("Dropping undecodable poll row", logger.Err(err))
			continue
		}
		updates = append(updates, update)
	}
	return updates, nil
}

// do executes one request under the circuit breaker and maps every failure
// to a RequestError
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return &RequestError{Message: fmt.Sprintf("encode request: %v", err)}
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return &RequestError{Message: err.Error()}
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("X-Request-ID", uuid.NewString())

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &RequestError{Message: err.Error()}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg := http.StatusText(resp.StatusCode)
			var wire errorWire
			if decodeErr := json.NewDecoder(resp.Body).Decode(&wire); decodeErr == nil && wire.Error != "" {
				msg = wire.Error
			}
			logger.Warn("Ride API returned non-success status",
				logger.String("method", method),
				logger.String("path", path),
				logger.Int("status", resp.StatusCode))
			return &RequestError{Status: resp.StatusCode, Message: msg}
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return &RequestError{Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}

	// Breaker-open and context errors surface as request errors too, so the
	// state machine sees a single failure type.
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return err
	}
	return &RequestError{Message: err.Error()}
}
