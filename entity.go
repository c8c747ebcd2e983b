package face

import "image"

// CanonicalSize is a side of the square face crop every encoding is computed from.
const CanonicalSize = 100

// EncodingSize is a face encoding size.
const EncodingSize = CanonicalSize * CanonicalSize

// Region is a face location on image in (top, right, bottom, left) order.
// Right and Bottom are exclusive.
type Region struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// RegionFromRect converts image rectangle to region.
func RegionFromRect(r image.Rectangle) Region {
	return Region{
		Top:    r.Min.Y,
		Right:  r.Max.X,
		Bottom: r.Max.Y,
		Left:   r.Min.X,
	}
}

// Rect returns region as image rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

func (r Region) Width() int  { return r.Right - r.Left }
func (r Region) Height() int { return r.Bottom - r.Top }

// Area is zero for degenerate regions.
func (r Region) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

func (r Region) Empty() bool {
	return r.Width() <= 0 || r.Height() <= 0
}

// Encoding is a face encoding: EncodingSize values with unit euclidean norm.
type Encoding []float64

// MatchResult is a result of comparing two encodings.
type MatchResult struct {
	Matched bool `json:"matched"`

	// Distance is euclidean distance between encodings, 0..2.
	Distance float64 `json:"distance"`

	// Similarity is 1 - Distance/2. Matched is Similarity > tolerance.
	Similarity float64 `json:"similarity"`

	// Confidence is (1 - Distance) * 100, within -100..100. It is informational
	// and never affects Matched.
	Confidence float64 `json:"confidence"`
}
