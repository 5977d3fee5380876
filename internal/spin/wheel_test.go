package spin

import (
	"math"
	"math/rand"
	"testing"
)

func TestSpinEmptyWheel(t *testing.T) {
	w := NewWithSource(rand.NewSource(1))
	if _, err := w.Spin(0); err != ErrNoItems {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
}

func TestSingleSegmentAlwaysWins(t *testing.T) {
	w := NewWithSource(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		res, err := w.Spin(1)
		if err != nil {
			t.Fatalf("spin failed: %v", err)
		}
		if res.Index != 0 {
			t.Fatalf("expected index 0, got %d", res.Index)
		}
	}
}

func TestIndexMatchesRotation(t *testing.T) {
	// The reported winner must always be the segment the pointer lands in,
	// even as rotation accumulates across spins.
	w := NewWithSource(rand.NewSource(99))
	for i := 0; i < 1000; i++ {
		n := 2 + i%11
		res, err := w.Spin(n)
		if err != nil {
			t.Fatalf("spin failed: %v", err)
		}
		if got := WinningIndex(res.Rotation, n); got != res.Index {
			t.Fatalf("index %d disagrees with rotation %f (segment %d)", res.Index, res.Rotation, got)
		}
		if res.Index < 0 || res.Index >= n {
			t.Fatalf("index %d out of range for %d segments", res.Index, n)
		}
	}
}

func TestRotationAccumulates(t *testing.T) {
	w := NewWithSource(rand.NewSource(3))
	prev := w.Rotation()
	for i := 0; i < 10; i++ {
		res, err := w.Spin(8)
		if err != nil {
			t.Fatalf("spin failed: %v", err)
		}
		if res.Rotation <= prev {
			t.Fatalf("rotation must grow monotonically, got %f after %f", res.Rotation, prev)
		}
		// At least the decorative full turns per spin.
		if res.Rotation-prev < fullSpins*360 {
			t.Fatalf("expected at least %d degrees per spin, got %f", fullSpins*360, res.Rotation-prev)
		}
		prev = res.Rotation
	}
}

func TestSpinFairness(t *testing.T) {
	const (
		segments = 10
		trials   = 100000
	)
	w := NewWithSource(rand.NewSource(2026))
	counts := make([]int, segments)
	for i := 0; i < trials; i++ {
		res, err := w.Spin(segments)
		if err != nil {
			t.Fatalf("spin failed: %v", err)
		}
		counts[res.Index]++
	}

	expected := float64(trials) / segments
	for i, c := range counts {
		if math.Abs(float64(c)-expected) > expected*0.2 {
			t.Fatalf("segment %d drew %d of %d, outside fairness band", i, c, trials)
		}
	}
}

func TestWinningIndexBoundaries(t *testing.T) {
	cases := []struct {
		rotation float64
		n        int
		want     int
	}{
		{0, 4, 0},
		{45, 4, 3},   // pointer lands in the last quarter
		{90, 4, 3},   // exact boundary belongs to the lower arc
		{91, 4, 2},
		{360, 4, 0},
		{-90, 4, 1},  // negative rotations normalize
		{1800, 6, 0}, // whole turns cancel
	}
	for _, tc := range cases {
		if got := WinningIndex(tc.rotation, tc.n); got != tc.want {
			t.Fatalf("WinningIndex(%f, %d) = %d, want %d", tc.rotation, tc.n, got, tc.want)
		}
	}
}
