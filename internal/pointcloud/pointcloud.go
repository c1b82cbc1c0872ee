// Package pointcloud is a nearest-neighbour point-cloud matcher in the style
// of the $P recognizer. Strokes are resampled, scaled and centred, then
// compared by greedy cloud matching.
package pointcloud

import (
	"math"

	"github.com/verte-zerg/entrylab/internal/geom"
	"github.com/verte-zerg/entrylab/internal/gesture"
)

// DefaultResolution is the number of points every cloud is resampled to.
const DefaultResolution = 32

// Classifier implements gesture.Classifier.
type Classifier struct {
	// Resolution is the resampled cloud size; zero means DefaultResolution.
	Resolution int
	// MaxDistance rejects matches scoring above it; zero disables rejection.
	MaxDistance float64
}

// Classify returns the name of the closest template.
func (c Classifier) Classify(candidate gesture.PointSet, templates []gesture.Template) (string, bool) {
	n := c.Resolution
	if n <= 0 {
		n = DefaultResolution
	}
	if len(candidate) == 0 {
		return "", false
	}
	cloud := Normalize(candidate, n)
	best := math.Inf(1)
	label := ""
	for _, t := range templates {
		if len(t.Points) == 0 || t.Name == "" {
			continue
		}
		d := GreedyMatch(cloud, Normalize(t.Points, n))
		if d < best {
			best = d
			label = t.Name
		}
	}
	if label == "" {
		return "", false
	}
	if c.MaxDistance > 0 && best > c.MaxDistance {
		return "", false
	}
	return label, true
}

// Normalize resamples, scales and translates a stroke.
func Normalize(points gesture.PointSet, n int) []geom.Vec2 {
	out := resample(points, n)
	scale(out)
	translateToCentroid(out)
	return out
}

// GreedyMatch is the symmetric greedy cloud distance of two clouds of equal
// size.
func GreedyMatch(a, b []geom.Vec2) float64 {
	n := len(a)
	if n == 0 || len(b) != n {
		return math.Inf(1)
	}
	step := int(math.Floor(math.Pow(float64(n), 0.5)))
	if step < 1 {
		step = 1
	}
	best := math.Inf(1)
	for i := 0; i < n; i += step {
		d1 := cloudDistance(a, b, i)
		d2 := cloudDistance(b, a, i)
		best = math.Min(best, math.Min(d1, d2))
	}
	return best
}

func cloudDistance(a, b []geom.Vec2, start int) float64 {
	n := len(a)
	matched := make([]bool, n)
	sum := 0.0
	i := start
	for {
		index := -1
		minDist := math.Inf(1)
		for j := range matched {
			if matched[j] {
				continue
			}
			if d := a[i].Dist(b[j]); d < minDist {
				minDist = d
				index = j
			}
		}
		matched[index] = true
		weight := 1 - float64((i-start+n)%n)/float64(n)
		sum += weight * minDist
		i = (i + 1) % n
		if i == start {
			break
		}
	}
	return sum
}

func resample(points gesture.PointSet, n int) []geom.Vec2 {
	out := make([]geom.Vec2, 0, n)
	length := pathLength(points)
	if length == 0 || len(points) < 2 {
		for len(out) < n {
			out = append(out, points[0])
		}
		return out
	}
	interval := length / float64(n-1)
	acc := 0.0
	pts := append([]geom.Vec2(nil), points...)
	out = append(out, pts[0])
	for i := 1; i < len(pts); i++ {
		d := pts[i-1].Dist(pts[i])
		if acc+d >= interval && d > 0 {
			t := (interval - acc) / d
			q := geom.Vec2{
				X: pts[i-1].X + t*(pts[i].X-pts[i-1].X),
				Y: pts[i-1].Y + t*(pts[i].Y-pts[i-1].Y),
			}
			out = append(out, q)
			// q becomes the start of the next segment.
			pts = append(pts[:i], append([]geom.Vec2{q}, pts[i:]...)...)
			acc = 0
			continue
		}
		acc += d
	}
	// Rounding can leave the last point out.
	for len(out) < n {
		out = append(out, points[len(points)-1])
	}
	return out[:n]
}

func pathLength(points gesture.PointSet) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += points[i-1].Dist(points[i])
	}
	return total
}

func scale(points []geom.Vec2) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	size := math.Max(maxX-minX, maxY-minY)
	if size == 0 {
		return
	}
	for i := range points {
		points[i].X = (points[i].X - minX) / size
		points[i].Y = (points[i].Y - minY) / size
	}
}

func translateToCentroid(points []geom.Vec2) {
	var cx, cy float64
	for _, p := range points {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(points))
	cy /= float64(len(points))
	for i := range points {
		points[i].X -= cx
		points[i].Y -= cy
	}
}
