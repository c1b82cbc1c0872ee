package geom

// Pose is the position and facing of a tracked surface at one instant.
type Pose struct {
	Position Vec3 `json:"position"`
	Forward  Vec3 `json:"forward"`
}

// Plane is an infinite plane through Origin with unit Normal.
type Plane struct {
	Normal Vec3
	Origin Vec3
}

// NewPlane builds a plane, normalizing the normal.
func NewPlane(normal, origin Vec3) Plane {
	return Plane{Normal: normal.Normalize(), Origin: origin}
}

// PlaneFromPose captures the plane a surface is facing.
func PlaneFromPose(p Pose) Plane {
	return NewPlane(p.Forward, p.Position)
}

// SignedDistance is positive on the side the normal points to.
func (p Plane) SignedDistance(v Vec3) float64 {
	return p.Normal.Dot(v.Sub(p.Origin))
}

// Project returns the closest point on the plane.
func (p Plane) Project(v Vec3) Vec3 {
	return v.Sub(p.Normal.Scale(p.SignedDistance(v)))
}

// Degenerate reports whether the plane has no usable normal.
func (p Plane) Degenerate() bool {
	return p.Normal.Len() < 0.5
}
