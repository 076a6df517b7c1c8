package fleet

import (
	"sort"
	"sync"
	"time"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/adiwardana/cabtrack/internal/utils"
)

const (
	defaultGeohashPrecision = 6
	defaultStaleAfter       = 2 * time.Minute
)

// Aggregator owns the canonical fleet state. Observations from the push
// transport and the fallback poll are merged by recency: for each cab the
// record with the newest timestamp wins, regardless of arrival order.
// Records are never deleted, only marked stale.
type Aggregator struct {
	precision  uint
	staleAfter time.Duration

	mu    sync.RWMutex
	cabs  map[string]models.Cab
	cells map[string]map[string]struct{}
}

// NewAggregator creates an empty fleet aggregator
func NewAggregator(cfg models.FleetConfig) *Aggregator {
	precision := cfg.GeohashPrecision
	if precision == 0 {
		precision = defaultGeohashPrecision
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &Aggregator{
		precision:  precision,
		staleAfter: staleAfter,
		cabs:       make(map[string]models.Cab),
		cells:      make(map[string]map[string]struct{}),
	}
}

// MergePush applies one push observation. An observation older than the
// current record is discarded so a delayed push can never roll a cab
// backwards.
func (a *Aggregator) MergePush(u models.CabUpdate) {
	observedAt := u.ObservedAt
	if observedAt.IsZero() {
		observedAt = models.Now()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	existing, ok := a.cabs[u.CabID]
	if ok && observedAt.Before(existing.UpdatedAt) {
		return
	}
	a.upsertLocked(u, observedAt)
}

// MergePoll applies one full poll listing issued at issuedAt. Polled records
// carry issuedAt as their timestamp, so any push that landed after the poll
// was issued still wins. Cabs absent from the listing are marked stale
// unless a newer push has been seen for them.
func (a *Aggregator) MergePoll(issuedAt time.Time, updates []models.CabUpdate) {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		if u.CabID == "" {
			continue
		}
		seen[u.CabID] = struct{}{}

		existing, ok := a.cabs[u.CabID]
		if ok && existing.UpdatedAt.After(issuedAt) {
			continue
		}
		a.upsertLocked(u, issuedAt)
	}

	for id, cab := range a.cabs {
		if _, ok := seen[id]; ok {
			continue
		}
		if cab.UpdatedAt.After(issuedAt) || cab.Stale {
			continue
		}
		cab.Stale = true
		a.cabs[id] = cab
	}
}

// upsertLocked writes one merged record and keeps the cell index in step.
// Caller holds a.mu.
func (a *Aggregator) upsertLocked(u models.CabUpdate, observedAt time.Time) {
	existing, ok := a.cabs[u.CabID]

	cab := models.Cab{
		ID:        u.CabID,
		Name:      u.Name,
		Status:    u.Status,
		Position:  u.Position,
		UpdatedAt: observedAt,
	}
	if ok {
		if cab.Name == "" {
			cab.Name = existing.Name
		}
		if cab.Status == "" {
			cab.Status = existing.Status
		}
		cab.Bearing = existing.Bearing
		if existing.Position != u.Position {
			b := utils.Bearing(existing.Position, u.Position)
			cab.Bearing = &b
		}
	}
	if cab.Status == "" {
		cab.Status = models.StatusUnknown
	}

	newCell := utils.EncodeCell(cab.Position, a.precision)
	if ok {
		oldCell := utils.EncodeCell(existing.Position, a.precision)
		if oldCell != newCell {
			if members, found := a.cells[oldCell]; found {
				delete(members, cab.ID)
				if len(members) == 0 {
					delete(a.cells, oldCell)
				}
			}
		}
	}
	members, found := a.cells[newCell]
	if !found {
		members = make(map[string]struct{})
		a.cells[newCell] = members
	}
	members[cab.ID] = struct{}{}

	a.cabs[u.CabID] = cab
}

// Get returns the current record for one cab
func (a *Aggregator) Get(cabID string) (models.Cab, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cab, ok := a.cabs[cabID]
	if ok && cab.Bearing != nil {
		b := *cab.Bearing
		cab.Bearing = &b
	}
	return cab, ok
}

// Snapshot returns an immutable point-in-time copy of the fleet. Safe to
// hand to any number of readers.
func (a *Aggregator) Snapshot() models.FleetSnapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	cabs := make(map[string]models.Cab, len(a.cabs))
	for id, cab := range a.cabs {
		if cab.Bearing != nil {
			b := *cab.Bearing
			cab.Bearing = &b
		}
		cabs[id] = cab
	}
	return models.FleetSnapshot{
		Cabs:    cabs,
		TakenAt: models.Now(),
	}
}

// SweepStale marks every record older than the staleness window and returns
// how many records it flagged
func (a *Aggregator) SweepStale(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	flagged := 0
	for id, cab := range a.cabs {
		if cab.Stale || now.Sub(cab.UpdatedAt) <= a.staleAfter {
			continue
		}
		cab.Stale = true
		a.cabs[id] = cab
		flagged++
	}
	return flagged
}

// Nearby returns fresh cabs within radiusMeters of origin, closest first.
// The geohash cell index prunes the candidate set before exact distances
// are computed; when the radius exceeds what the cell block is guaranteed
// to cover, pruning is skipped and every record is considered.
func (a *Aggregator) Nearby(origin models.Coordinate, radiusMeters float64) []models.Cab {
	type scored struct {
		cab      models.Cab
		distance float64
	}

	a.mu.RLock()
	candidates := make(map[string]struct{})
	if radiusMeters <= utils.CellCoverageMeters(a.precision, origin.Latitude) {
		center := utils.EncodeCell(origin, a.precision)
		for _, cell := range utils.NeighborCells(center) {
			for id := range a.cells[cell] {
				candidates[id] = struct{}{}
			}
		}
	} else {
		for id := range a.cabs {
			candidates[id] = struct{}{}
		}
	}

	results := make([]scored, 0, len(candidates))
	for id := range candidates {
		cab, ok := a.cabs[id]
		if !ok || cab.Stale {
			continue
		}
		d := utils.DistanceMeters(origin, cab.Position)
		if d > radiusMeters {
			continue
		}
		if cab.Bearing != nil {
			b := *cab.Bearing
			cab.Bearing = &b
		}
		results = append(results, scored{cab: cab, distance: d})
	}
	a.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].distance < results[j].distance
	})

	out := make([]models.Cab, 0, len(results))
	for _, r := range results {
		out = append(out, r.cab)
	}
	return out
}
