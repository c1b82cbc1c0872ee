package geom

// degenerateCross is the smallest |WorldUp x normal| accepted before the
// basis falls back to WorldForward.
const degenerateCross = 0.1

// Basis is an orthonormal 2D frame lying in a plane.
type Basis struct {
	Origin Vec3
	Normal Vec3
	Right  Vec3
	Up     Vec3
}

// NewBasis derives the in-plane frame for p.
func NewBasis(p Plane) Basis {
	n := p.Normal
	right := WorldUp.Cross(n)
	if right.Len() < degenerateCross {
		right = WorldForward.Cross(n)
	}
	right = right.Normalize()
	up := n.Cross(right).Normalize()
	return Basis{Origin: p.Origin, Normal: n, Right: right, Up: up}
}

// ToPlane expresses a plane point in the 2D frame.
func (b Basis) ToPlane(v Vec3) Vec2 {
	offset := v.Sub(b.Origin)
	return Vec2{X: offset.Dot(b.Right), Y: offset.Dot(b.Up)}
}

// FromPlane maps a 2D frame point back onto the plane in world space.
func (b Basis) FromPlane(v Vec2) Vec3 {
	return b.Origin.Add(b.Right.Scale(v.X)).Add(b.Up.Scale(v.Y))
}

// Flatten maps every point into the frame.
func (b Basis) Flatten(points []Vec3) []Vec2 {
	out := make([]Vec2, len(points))
	for i, p := range points {
		out[i] = b.ToPlane(p)
	}
	return out
}
