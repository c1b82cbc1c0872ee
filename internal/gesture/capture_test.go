package gesture

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/entrylab/internal/geom"
)

var facingZ = geom.Pose{Forward: geom.Vec3{Z: 1}}

func TestCaptureResamplingSpacing(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	c := NewCapture(CaptureConfig{Threshold: 0.01, MinSamples: 1})
	surface := geom.Pose{Position: geom.Vec3{X: 0.1, Y: 0.2}, Forward: geom.Vec3{X: 0.3, Y: 0.1, Z: 1}}
	require.True(t, c.Begin(surface, geom.Vec3{}))

	tip := geom.Vec3{}
	var accepted []geom.Vec3
	accepted = append(accepted, c.projected[0])
	for i := 0; i < 2000; i++ {
		tip = tip.Add(geom.Vec3{
			X: (rnd.Float64() - 0.5) * 0.01,
			Y: (rnd.Float64() - 0.5) * 0.01,
			Z: (rnd.Float64() - 0.5) * 0.01,
		})
		before := c.Accepted()
		if c.Sample(tip) {
			require.Equal(t, before+1, c.Accepted())
			accepted = append(accepted, c.projected[len(c.projected)-1])
		} else {
			require.Equal(t, before, c.Accepted())
		}
	}
	stroke, ok := c.End()
	require.True(t, ok)
	require.Equal(t, accepted, stroke.Projected, "no accepted sample is dropped later")
	for i := 1; i < len(stroke.Projected); i++ {
		assert.GreaterOrEqual(t, stroke.Projected[i].Dist(stroke.Projected[i-1]), 0.01)
	}
	assert.Len(t, stroke.Raw, len(stroke.Projected))
}

func TestCaptureProjectsOntoFixedPlane(t *testing.T) {
	c := NewCapture(CaptureConfig{MinSamples: 1})
	require.True(t, c.Begin(geom.Pose{Position: geom.Vec3{Z: 0.5}, Forward: geom.Vec3{Z: 1}}, geom.Vec3{Z: 0.6}))
	c.Sample(geom.Vec3{X: 0.05, Z: 0.9})
	c.Sample(geom.Vec3{X: 0.1, Y: 0.1, Z: -2})
	stroke, ok := c.End()
	require.True(t, ok)
	for _, p := range stroke.Projected {
		assert.InDelta(t, 0.5, p.Z, 1e-12)
	}
	assert.InDelta(t, 0.6, stroke.Raw[0].Z, 1e-12)
}

func TestCaptureDiscardsSparseStroke(t *testing.T) {
	c := NewCapture(CaptureConfig{})
	require.True(t, c.Begin(facingZ, geom.Vec3{}))
	for i := 1; i < 15; i++ {
		require.True(t, c.Sample(geom.Vec3{X: 0.02 * float64(i)}))
	}
	require.Equal(t, 15, c.Accepted())
	_, ok := c.End()
	assert.False(t, ok)
	assert.False(t, c.Recording())
	assert.Equal(t, 0, c.Accepted())
}

func TestCaptureRejectsNearDuplicates(t *testing.T) {
	c := NewCapture(CaptureConfig{Threshold: 0.01})
	require.True(t, c.Begin(facingZ, geom.Vec3{}))
	assert.False(t, c.Sample(geom.Vec3{X: 0.005}))
	// Distance is measured from the last accepted sample, not the last seen.
	assert.False(t, c.Sample(geom.Vec3{X: 0.009}))
	assert.True(t, c.Sample(geom.Vec3{X: 0.01}))
	// Motion along the normal does not count.
	assert.False(t, c.Sample(geom.Vec3{X: 0.01, Z: 0.5}))
}

func TestCaptureIgnoresDegeneratePose(t *testing.T) {
	c := NewCapture(CaptureConfig{})
	assert.False(t, c.Begin(geom.Pose{}, geom.Vec3{}))
	assert.False(t, c.Recording())
	assert.False(t, c.Sample(geom.Vec3{X: 1}))
	_, ok := c.End()
	assert.False(t, ok)
}
