package nn

// Point2D is a plain 2D point; callers choose the units (rule points and
// ROI reference points use normalised [0,1] frame coordinates).
type Point2D struct {
	X, Y float32
}

// PointInPolygon reports whether p lies inside the polygon described by
// vertices (closed implicitly — the last vertex connects back to the
// first), using the standard ray-casting/crossing-number test.
//
// Grounded on the ray-casting test in the original event compositor's
// IsPointInPolygon.
func PointInPolygon(p Point2D, vertices []Point2D) bool {
	n := len(vertices)
	if n < 3 {
		return false
	}

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		vi := vertices[i]
		vj := vertices[j]
		if (vi.Y > p.Y) != (vj.Y > p.Y) {
			xCross := vi.X + (p.Y-vi.Y)/(vj.Y-vi.Y)*(vj.X-vi.X)
			if p.X < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
