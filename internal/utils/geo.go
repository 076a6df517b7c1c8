package utils

import (
	"math"

	"github.com/adiwardana/cabtrack/internal/pkg/models"
	"github.com/mmcloughlin/geohash"
)

// earthRadiusMeters is the mean Earth radius
const earthRadiusMeters = 6371000.0

// DistanceMeters calculates the great-circle distance between two points
// in meters using the Haversine formula. Pure function; consumers compute
// distances on demand rather than caching them.
func DistanceMeters(from, to models.Coordinate) float64 {
	lat1 := from.Latitude * math.Pi / 180.0
	lon1 := from.Longitude * math.Pi / 180.0
	lat2 := to.Latitude * math.Pi / 180.0
	lon2 := to.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// Bearing returns the compass bearing in degrees [0, 360) from one point
// toward another, computed as atan2 over the coordinate deltas.
func Bearing(from, to models.Coordinate) float64 {
	dLat := to.Latitude - from.Latitude
	dLon := to.Longitude - from.Longitude

	deg := math.Atan2(dLon, dLat) * 180.0 / math.Pi
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

// EncodeCell converts a coordinate to a geohash cell at the given precision
func EncodeCell(c models.Coordinate, precision uint) string {
	return geohash.EncodeWithPrecision(c.Latitude, c.Longitude, precision)
}

// NeighborCells returns the cell itself plus its eight neighboring cells,
// covering the search area around a coordinate
func NeighborCells(cell string) []string {
	cells := geohash.Neighbors(cell)
	return append(cells, cell)
}

// CellCoverageMeters returns the radius guaranteed to be covered by a
// cell-plus-neighbors block around any point inside a cell at the given
// precision: one cell length along the smaller dimension at that latitude.
// Beyond this, a point inside the radius can fall outside the block.
func CellCoverageMeters(precision uint, latitude float64) float64 {
	totalBits := 5 * int(precision)
	lonBits := (totalBits + 1) / 2
	latBits := totalBits / 2

	heightDeg := 180.0 / math.Exp2(float64(latBits))
	widthDeg := 360.0 / math.Exp2(float64(lonBits))

	height := heightDeg * math.Pi / 180.0 * earthRadiusMeters
	width := widthDeg * math.Pi / 180.0 * earthRadiusMeters * math.Abs(math.Cos(latitude*math.Pi/180.0))
	if width < height {
		return width
	}
	return height
}
