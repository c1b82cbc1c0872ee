package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func TestPlaneProjectLandsOnPlane(t *testing.T) {
	plane := NewPlane(Vec3{X: 1, Y: 2, Z: -1}, Vec3{X: 0.3, Y: -0.2, Z: 1})
	for _, v := range []Vec3{{}, {X: 5, Y: -3, Z: 2}, {X: -0.01, Y: 0.4, Z: 9}} {
		projected := plane.Project(v)
		assert.InDelta(t, 0, plane.SignedDistance(projected), tol)
		// The offset removed is parallel to the normal.
		assert.InDelta(t, 0, v.Sub(projected).Cross(plane.Normal).Len(), tol)
	}
}

func TestSignedDistanceSide(t *testing.T) {
	plane := NewPlane(Vec3{Z: 2}, Vec3{Z: 1})
	assert.InDelta(t, 1.5, plane.SignedDistance(Vec3{X: 4, Z: 2.5}), tol)
	assert.InDelta(t, -1, plane.SignedDistance(Vec3{Y: 7}), tol)
}

func TestBasisIsOrthonormal(t *testing.T) {
	normals := []Vec3{
		{Z: 1},
		{X: 1},
		{X: 0.2, Y: 0.9, Z: -0.4},
		{Y: 1},
		{Y: -1},
		{X: 0.01, Y: 1},
	}
	for _, n := range normals {
		b := NewBasis(NewPlane(n, Vec3{}))
		assert.InDelta(t, 1, b.Right.Len(), tol, "right length for %+v", n)
		assert.InDelta(t, 1, b.Up.Len(), tol, "up length for %+v", n)
		assert.InDelta(t, 0, b.Right.Dot(b.Up), tol)
		assert.InDelta(t, 0, b.Right.Dot(b.Normal), tol)
		assert.InDelta(t, 0, b.Up.Dot(b.Normal), tol)
	}
}

func TestBasisFallsBackWhenFacingUp(t *testing.T) {
	b := NewBasis(NewPlane(Vec3{Y: 1}, Vec3{}))
	expected := WorldForward.Cross(Vec3{Y: 1}).Normalize()
	assert.InDelta(t, 0, b.Right.Dist(expected), tol)
}

func TestBasisRoundTrip(t *testing.T) {
	normals := []Vec3{
		{Z: 1},
		{X: -0.7, Y: 0.1, Z: 0.7},
		{Y: 1},
		{X: 0.05, Y: -1, Z: 0.02},
	}
	origin := Vec3{X: 0.5, Y: 1.2, Z: -0.3}
	raw := []Vec3{{X: 0.1}, {X: -0.4, Y: 0.2, Z: 0.9}, {X: 1, Y: 1, Z: 1}, {X: 0.33, Y: -0.7, Z: 0.01}}
	for _, n := range normals {
		plane := NewPlane(n, origin)
		b := NewBasis(plane)
		for _, r := range raw {
			onPlane := plane.Project(r)
			back := b.FromPlane(b.ToPlane(onPlane))
			require.InDelta(t, 0, back.Dist(onPlane), 1e-9, "normal %+v point %+v", n, r)
		}
	}
}

func TestFlattenPreservesDistances(t *testing.T) {
	plane := NewPlane(Vec3{X: 1, Y: 1, Z: 1}, Vec3{})
	b := NewBasis(plane)
	a := plane.Project(Vec3{X: 1})
	c := plane.Project(Vec3{Y: 2, Z: -1})
	flat := b.Flatten([]Vec3{a, c})
	assert.InDelta(t, a.Dist(c), flat[0].Dist(flat[1]), tol)
}

func TestNormalizeZero(t *testing.T) {
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
	assert.False(t, math.IsNaN(Vec3{X: 1e-12}.Normalize().X))
}
