package world

import (
	"math"
	"testing"
)

func vecNear(a, b Vec3) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps && math.Abs(a.Y-b.Y) < eps && math.Abs(a.Z-b.Z) < eps
}

func TestFacingVector(t *testing.T) {
	cases := []struct {
		yaw, pitch float64
		want       Vec3
	}{
		{0, 0, Vec3{0, 0, 1}},
		{90, 0, Vec3{-1, 0, 0}},
		{-90, 0, Vec3{1, 0, 0}},
		{180, 0, Vec3{0, 0, -1}},
	}
	for _, tc := range cases {
		if got := facingVector(tc.yaw, tc.pitch); !vecNear(got, tc.want) {
			t.Fatalf("facingVector(%v, %v) = %+v, want %+v", tc.yaw, tc.pitch, got, tc.want)
		}
	}
}

func TestHorizontalForwardDegenerate(t *testing.T) {
	// Looking straight down leaves no horizontal component; the reference
	// forward takes over so movement still has a direction.
	if got := horizontalForward(45, 90); !vecNear(got, Vec3{0, 0, 1}) {
		t.Fatalf("degenerate facing must fall back to +Z, got %+v", got)
	}
	// A shallow pitch keeps the yaw-derived heading after flattening.
	if got := horizontalForward(90, 30); !vecNear(got, Vec3{-1, 0, 0}) {
		t.Fatalf("flattened facing = %+v, want -X", got)
	}
}

func TestMoveVector(t *testing.T) {
	cases := []struct {
		direction string
		want      Vec3
	}{
		{"forward", Vec3{0, 0, 1}},
		{"back", Vec3{0, 0, -1}},
		{"right", Vec3{-1, 0, 0}},
		{"left", Vec3{1, 0, 0}},
	}
	for _, tc := range cases {
		got, ok := moveVector(0, 0, tc.direction)
		if !ok {
			t.Fatalf("moveVector rejected %q", tc.direction)
		}
		if !vecNear(got, tc.want) {
			t.Fatalf("moveVector(0, 0, %q) = %+v, want %+v", tc.direction, got, tc.want)
		}
	}
	if _, ok := moveVector(0, 0, "sideways"); ok {
		t.Fatalf("unknown direction must be rejected")
	}
}

func TestPlaceVectorVertical(t *testing.T) {
	if got, ok := placeVector(135, 20, "up"); !ok || !vecNear(got, Vec3{0, 1, 0}) {
		t.Fatalf("up = %+v ok=%v", got, ok)
	}
	if got, ok := placeVector(135, 20, "down"); !ok || !vecNear(got, Vec3{0, -1, 0}) {
		t.Fatalf("down = %+v ok=%v", got, ok)
	}
}

func TestSnapToCell(t *testing.T) {
	got := snapToCell(Vec3{3.7, 64.9, -2.2})
	want := Vec3{3.5, 64, -2.5}
	if !vecNear(got, want) {
		t.Fatalf("snapToCell = %+v, want %+v", got, want)
	}
}

func TestCellAt(t *testing.T) {
	if got := CellAt(Vec3{-0.1, 5.0, 2.9}); got != (Cell{-1, 5, 2}) {
		t.Fatalf("CellAt = %+v", got)
	}
}

func TestNormalizeYaw(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{0, 0},
		{180, 180},
		{-180, 180},
		{270, -90},
		{-270, 90},
		{540, 180},
		{-90, -90},
	}
	for _, tc := range cases {
		if got := normalizeYaw(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("normalizeYaw(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestClampDistance(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{3, 3},
		{-5, 5},
		{1000, 64},
		{-1000, 64},
		{64, 64},
		{0, 0},
	}
	for _, tc := range cases {
		if got := clampDistance(tc.in); got != tc.want {
			t.Fatalf("clampDistance(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
