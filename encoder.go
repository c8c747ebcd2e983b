package face

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// Encoder computes face encodings from image regions: the crop is converted
// to grayscale, resized to CanonicalSize x CanonicalSize, histogram
// equalized, flattened row by row and scaled to unit length.
//
// The encoding is raw normalized pixels, not a learned embedding, so it is
// sensitive to pose, lighting and crop alignment.
type Encoder struct {
	size          int
	interpolation gocv.InterpolationFlags
}

func NewEncoder() *Encoder {
	return &Encoder{
		size:          CanonicalSize,
		interpolation: gocv.InterpolationLinear,
	}
}

// Size returns the length of encodings produced by the encoder.
func (e *Encoder) Size() int {
	return e.size * e.size
}

// Encode computes encoding of the face at region. The region is clipped to
// image bounds first; ErrInvalidRegion is returned if nothing is left.
func (e *Encoder) Encode(img image.Image, region Region) (Encoding, error) {
	if region.Empty() {
		return nil, fmt.Errorf("%w: %+v", ErrInvalidRegion, region)
	}

	clipped := ClipRegion(region, img.Bounds())
	if clipped.Empty() {
		return nil, fmt.Errorf("%w: %+v outside %v", ErrInvalidRegion, region, img.Bounds())
	}

	r := clipped.Rect()
	crop := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(crop, crop.Bounds(), img, r.Min, draw.Src)

	mat, err := gocv.ImageToMatRGB(crop)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageLoad, err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(gray, &resized, image.Pt(e.size, e.size), 0, 0, e.interpolation)

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(resized, &equalized)

	pix := equalized.ToBytes()
	if len(pix) != e.Size() {
		return nil, fmt.Errorf("%w: got %d pixels, want %d", ErrInvalidRegion, len(pix), e.Size())
	}

	encoding := make(Encoding, len(pix))
	var sum float64
	for i, p := range pix {
		v := float64(p)
		encoding[i] = v
		sum += v * v
	}

	norm := math.Sqrt(sum)
	if norm == 0 {
		return nil, fmt.Errorf("%w: blank face crop", ErrNoFaceDetected)
	}
	for i := range encoding {
		encoding[i] /= norm
	}

	return encoding, nil
}

// EncodeFirst detects faces with d and encodes the one picked by
// SelectFace. ErrNoFaceDetected is returned when d finds nothing.
func (e *Encoder) EncodeFirst(d Detector, img image.Image) (Encoding, Region, error) {
	regions, err := d.Detect(img)
	if err != nil {
		return nil, Region{}, fmt.Errorf("detect faces: %w", err)
	}

	region, ok := SelectFace(regions)
	if !ok {
		return nil, Region{}, ErrNoFaceDetected
	}

	encoding, err := e.Encode(img, region)
	if err != nil {
		return nil, region, err
	}

	return encoding, region, nil
}
