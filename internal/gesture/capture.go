// Package gesture turns a moving fingertip on the palm surface into a 2D
// stroke and classifies it against a template library.
package gesture

import (
	"github.com/verte-zerg/entrylab/internal/geom"
)

const (
	// DefaultThreshold is the minimum spacing between accepted samples, in
	// world units (metres).
	DefaultThreshold = 0.01
	// DefaultMinSamples is the smallest stroke worth classifying.
	DefaultMinSamples = 20
)

// CaptureConfig tunes the online resampling filter.
type CaptureConfig struct {
	Threshold  float64
	MinSamples int
}

// Stroke is one finished contact, projected onto the plane fixed at its
// first sample.
type Stroke struct {
	Plane     geom.Plane
	Raw       []geom.Vec3
	Projected []geom.Vec3
}

// PointSet flattens the projected samples into the plane's 2D frame.
func (s Stroke) PointSet() PointSet {
	return PointSet(geom.NewBasis(s.Plane).Flatten(s.Projected))
}

// Capture accumulates samples for a single contact.
type Capture struct {
	cfg       CaptureConfig
	recording bool
	plane     geom.Plane
	raw       []geom.Vec3
	projected []geom.Vec3
}

// NewCapture returns an idle capture; non-positive settings take defaults.
func NewCapture(cfg CaptureConfig) *Capture {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultMinSamples
	}
	return &Capture{cfg: cfg}
}

// Recording reports whether a contact is in progress.
func (c *Capture) Recording() bool {
	return c.recording
}

// Accepted returns the number of samples kept so far.
func (c *Capture) Accepted() int {
	return len(c.projected)
}

// Begin fixes the drawing plane from the surface pose and records the first
// sample. The plane does not follow the surface afterwards. It returns false
// when the pose has no usable facing direction.
func (c *Capture) Begin(surface geom.Pose, tip geom.Vec3) bool {
	c.Reset()
	plane := geom.PlaneFromPose(surface)
	if plane.Degenerate() {
		return false
	}
	c.plane = plane
	c.recording = true
	c.raw = append(c.raw, tip)
	c.projected = append(c.projected, plane.Project(tip))
	return true
}

// Sample projects tip onto the fixed plane and keeps it only when it lies at
// least Threshold away from the last kept sample.
func (c *Capture) Sample(tip geom.Vec3) bool {
	if !c.recording {
		return false
	}
	projected := c.plane.Project(tip)
	last := c.projected[len(c.projected)-1]
	if projected.Dist(last) < c.cfg.Threshold {
		return false
	}
	c.raw = append(c.raw, tip)
	c.projected = append(c.projected, projected)
	return true
}

// End finishes the contact. The stroke is returned only when it holds at
// least MinSamples accepted samples. The buffers are cleared either way.
func (c *Capture) End() (Stroke, bool) {
	if !c.recording {
		return Stroke{}, false
	}
	stroke := Stroke{Plane: c.plane, Raw: c.raw, Projected: c.projected}
	c.recording = false
	c.raw = nil
	c.projected = nil
	if len(stroke.Projected) < c.cfg.MinSamples {
		return Stroke{}, false
	}
	return stroke, true
}

// Reset drops any in-progress contact.
func (c *Capture) Reset() {
	c.recording = false
	c.plane = geom.Plane{}
	c.raw = nil
	c.projected = nil
}
