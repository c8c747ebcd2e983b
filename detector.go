package face

import (
	"fmt"
	"image"
	"sort"
)

// Detector locates faces on image. Implementations must be deterministic
// and return an empty slice, not an error, when there are no faces.
type Detector interface {
	Detect(img image.Image) ([]Region, error)
}

// DetectorFunc adapts function to Detector.
type DetectorFunc func(img image.Image) ([]Region, error)

func (f DetectorFunc) Detect(img image.Image) ([]Region, error) {
	return f(img)
}

// DetectAll runs d over every image and returns regions in the order of imgs.
// It stops at the first failing image.
func DetectAll(d Detector, imgs []image.Image) ([][]Region, error) {
	if len(imgs) == 0 {
		return nil, nil
	}

	batch := make([][]Region, len(imgs))
	for i, img := range imgs {
		regions, err := d.Detect(img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		batch[i] = regions
	}
	return batch, nil
}

// FilterMinSize drops regions narrower or lower than minSize pixels.
func FilterMinSize(regions []Region, minSize int) []Region {
	filtered := regions[:0:0]
	for _, r := range regions {
		if r.Empty() || r.Width() < minSize || r.Height() < minSize {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// SortRegions orders regions in scan order: top to bottom, left to right,
// larger first when two regions share a corner.
func SortRegions(regions []Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		a, b := regions[i], regions[j]
		if a.Top != b.Top {
			return a.Top < b.Top
		}
		if a.Left != b.Left {
			return a.Left < b.Left
		}
		return a.Area() > b.Area()
	})
}

// SelectFace picks the region with the largest area. Ties go to the region
// that comes first in regions.
func SelectFace(regions []Region) (Region, bool) {
	if len(regions) == 0 {
		return Region{}, false
	}
	best := regions[0]
	for _, r := range regions[1:] {
		if r.Area() > best.Area() {
			best = r
		}
	}
	return best, true
}

// ClipRegion intersects region with image bounds.
func ClipRegion(r Region, bounds image.Rectangle) Region {
	return RegionFromRect(r.Rect().Intersect(bounds))
}
