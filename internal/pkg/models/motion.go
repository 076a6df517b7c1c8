package models

// MotionFrame is a single interpolated step of an animated position.
// Ephemeral: produced and discarded per animation tick, never persisted.
type MotionFrame struct {
	Position Coordinate
	Bearing  float64
	Fraction float64
}
