package world

import "math"

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) lenSq() float64 { return v.X*v.X + v.Y*v.Y + v.Z*v.Z }

func (v Vec3) normalize() Vec3 {
	l := math.Sqrt(v.lenSq())
	if l == 0 {
		return v
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}
}

// Cell addresses one block. A position maps to the cell containing it.
type Cell struct {
	X, Y, Z int
}

func CellAt(p Vec3) Cell {
	return Cell{int(math.Floor(p.X)), int(math.Floor(p.Y)), int(math.Floor(p.Z))}
}

const degenerateSq = 1.0e-4

var (
	referenceForward = Vec3{X: 0, Y: 0, Z: 1}
	referenceRight   = Vec3{X: 1, Y: 0, Z: 0}
	up               = Vec3{X: 0, Y: 1, Z: 0}
)

// facingVector converts yaw/pitch in degrees to a unit direction. Yaw 0
// faces +Z; positive yaw turns toward -X, matching the simulation's
// convention.
func facingVector(yawDeg, pitchDeg float64) Vec3 {
	yaw := yawDeg * math.Pi / 180
	pitch := pitchDeg * math.Pi / 180
	cp := math.Cos(pitch)
	return Vec3{
		X: -math.Sin(yaw) * cp,
		Y: -math.Sin(pitch),
		Z: math.Cos(yaw) * cp,
	}
}

// horizontalForward flattens the facing to the XZ plane, falling back to the
// reference forward when the facing is degenerate (looking straight up or
// down).
func horizontalForward(yawDeg, pitchDeg float64) Vec3 {
	f := facingVector(yawDeg, pitchDeg)
	f.Y = 0
	if f.lenSq() < degenerateSq {
		return referenceForward
	}
	return f.normalize()
}

func cross(a, b Vec3) Vec3 {
	return Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// moveVector resolves forward/back/left/right relative to the entity facing.
// Returns ok=false for an unknown direction.
func moveVector(yawDeg, pitchDeg float64, direction string) (Vec3, bool) {
	forward := horizontalForward(yawDeg, pitchDeg)
	right := cross(forward, up)
	if right.lenSq() < degenerateSq {
		right = referenceRight
	} else {
		right = right.normalize()
	}
	switch direction {
	case "forward":
		return forward, true
	case "back":
		return forward.Scale(-1), true
	case "right":
		return right, true
	case "left":
		return right.Scale(-1), true
	}
	return Vec3{}, false
}

// placeVector additionally supports the pure vertical directions.
func placeVector(yawDeg, pitchDeg float64, direction string) (Vec3, bool) {
	switch direction {
	case "up":
		return up, true
	case "down":
		return up.Scale(-1), true
	}
	return moveVector(yawDeg, pitchDeg, direction)
}

// snapToCell centers horizontal coordinates on the containing cell and drops
// the vertical coordinate to the cell floor.
func snapToCell(p Vec3) Vec3 {
	return Vec3{
		X: math.Floor(p.X) + 0.5,
		Y: math.Floor(p.Y),
		Z: math.Floor(p.Z) + 0.5,
	}
}

// normalizeYaw wraps a yaw delta result into (-180, 180].
func normalizeYaw(yaw float64) float64 {
	y := math.Mod(yaw, 360)
	if y <= -180 {
		y += 360
	}
	if y > 180 {
		y -= 360
	}
	return y
}

// clampDistance applies the movement rules: absolute value, then clamp to
// [0, 64].
func clampDistance(blocks float64) float64 {
	d := math.Abs(blocks)
	if d > 64 {
		d = 64
	}
	return d
}

const minMoveDistance = 0.01
