package nn

import "github.com/chewxy/math32"

// LineSegment is the A->B directed line used by Line and AngleViolation
// rules (§4.1, §4.4).
type LineSegment struct {
	A, B Point2D
}

// SignedSide returns the cross product of (B-A) and (p-A): positive on one
// side of the line through A->B, negative on the other, zero on the line.
// Its magnitude is the perpendicular distance scaled by the length of AB;
// it is not normalised.
func (l LineSegment) SignedSide(p Point2D) float32 {
	dx := l.B.X - l.A.X
	dy := l.B.Y - l.A.Y
	return dx*(p.Y-l.A.Y) - dy*(p.X-l.A.X)
}

// PerpendicularDistance returns the unsigned distance from p to the
// infinite line through A and B.
func (l LineSegment) PerpendicularDistance(p Point2D) float32 {
	dx := l.B.X - l.A.X
	dy := l.B.Y - l.A.Y
	length := math32.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		dpx := p.X - l.A.X
		dpy := p.Y - l.A.Y
		return math32.Sqrt(dpx*dpx + dpy*dpy)
	}
	return math32.Abs(l.SignedSide(p)) / length
}

// Direction is the crossing direction a Line rule is configured to react
// to (§6.3).
type Direction int

const (
	DirectionA2B Direction = iota
	DirectionB2A
	DirectionBoth
)

func ParseDirection(s string) Direction {
	switch s {
	case "b2a":
		return DirectionB2A
	case "both":
		return DirectionBoth
	default:
		return DirectionA2B
	}
}

// AngleBetween returns the acute angle, in radians, between two vectors
// from the origin, clamping the cosine to [-1,1] before acos to avoid NaN
// from floating-point drift, and folding the result into [0, pi/2].
func AngleBetween(v1, v2 Point2D) float32 {
	len1 := math32.Sqrt(v1.X*v1.X + v1.Y*v1.Y)
	len2 := math32.Sqrt(v2.X*v2.X + v2.Y*v2.Y)
	if len1 == 0 || len2 == 0 {
		return 0
	}
	cos := (v1.X*v2.X + v1.Y*v2.Y) / (len1 * len2)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	angle := math32.Acos(cos)
	if angle > math32.Pi/2 {
		angle = math32.Pi - angle
	}
	return angle
}
