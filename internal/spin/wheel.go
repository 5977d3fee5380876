// Package spin implements the wheel used for team/category/difficulty draws.
package spin

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// fullSpins is the decorative number of complete revolutions per spin.
const fullSpins = 5

// ErrNoItems is returned when spinning an empty wheel.
var ErrNoItems = errors.New("spin: no items")

// Result couples the logical outcome with the rotation that displays it.
// Index is derived purely from the final rotation, so the pointer and the
// reported winner can never disagree.
type Result struct {
	Index    int
	Rotation float64
}

// Wheel accumulates rotation across spins, like the rendered wheel does.
type Wheel struct {
	rnd      *rand.Rand
	rotation float64
}

func New() *Wheel {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource allows deterministic spins in tests.
func NewWithSource(src rand.Source) *Wheel {
	return &Wheel{rnd: rand.New(src)}
}

// Spin selects one of n segments uniformly and computes the total rotation
// that lands the pointer inside it: five full turns, the segment offset, the
// segment's center, plus jitter confined to half a segment width so the
// pointer never drifts into a neighboring segment.
func (w *Wheel) Spin(n int) (Result, error) {
	if n <= 0 {
		return Result{}, ErrNoItems
	}
	segmentAngle := 360.0 / float64(n)
	segment := w.rnd.Intn(n)
	jitter := (w.rnd.Float64() - 0.5) * segmentAngle * 0.5

	w.rotation += fullSpins*360 + float64(segment)*segmentAngle + segmentAngle/2 + jitter
	return Result{
		Index:    WinningIndex(w.rotation, n),
		Rotation: w.rotation,
	}, nil
}

// Rotation returns the accumulated rotation in degrees.
func (w *Wheel) Rotation() float64 {
	return w.rotation
}

// WinningIndex maps a rotation to the segment under the top pointer.
// Segment 0 starts at 12 o'clock and segments run clockwise, so the segment
// under the pointer after rotating by r degrees is the one whose arc covers
// (360 - r) mod 360.
func WinningIndex(rotation float64, n int) int {
	segmentAngle := 360.0 / float64(n)
	normalized := math.Mod(rotation, 360)
	if normalized < 0 {
		normalized += 360
	}
	effective := math.Mod(360-normalized, 360)
	index := int(effective / segmentAngle)
	if index >= n {
		index = n - 1
	}
	return index
}
