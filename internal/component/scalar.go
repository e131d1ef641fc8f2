// Package component defines the byte layouts of the simulation's built-in
// component pools.
package component

import (
	"encoding/binary"
	"math"
)

const (
	Position = "position"
	Velocity = "velocity"

	// ScalarSize is the record size of pools holding one float64.
	ScalarSize = 8
)

// Builtin lists the pools every simulation registers, with their record sizes.
var Builtin = []struct {
	Name     string
	DataSize int
}{
	{Position, ScalarSize},
	{Velocity, ScalarSize},
}

// EncodeScalar packs v as a little-endian float64 record.
func EncodeScalar(v float64) []byte {
	return binary.LittleEndian.AppendUint64(make([]byte, 0, ScalarSize), math.Float64bits(v))
}

// DecodeScalar unpacks a record written by EncodeScalar. ok is false if b has the
// wrong size.
func DecodeScalar(b []byte) (v float64, ok bool) {
	if len(b) != ScalarSize {
		return 0, false
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), true
}

// PutScalar overwrites a record in place.
func PutScalar(b []byte, v float64) {
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
}
