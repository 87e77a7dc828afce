package locate

// Interval is a half-open [Start, End) range
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the interval length
func (iv Interval) Len() int {
	return iv.End - iv.Start
}

// CheckOverlap returns the intersection of two half-open intervals. The
// longer interval is taken as the reference; the overlap is the part of the
// other one clipped to the reference bounds. Touching intervals and empty
// intersections report no overlap.
func CheckOverlap(s1, e1, s2, e2 int) (Interval, bool) {
	ref, other := Interval{Start: s1, End: e1}, Interval{Start: s2, End: e2}
	if ref.Len() < other.Len() {
		ref, other = other, ref
	}

	iv := Interval{Start: max(ref.Start, other.Start), End: min(ref.End, other.End)}
	if iv.Start >= iv.End {
		return Interval{}, false
	}
	return iv, true
}
