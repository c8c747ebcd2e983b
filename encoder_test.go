package face

import (
	"errors"
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"
)

// Reference values are what cv2.resize followed by cv2.equalizeHist gives
// for a two-level crop: equalization maps the darker level to 0 and the
// brighter one to 255.
func TestEncode_EqualizesTwoLevels(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			v := uint8(100)
			if x >= 100 {
				v = 200
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}

	enc, err := NewEncoder().Encode(img, Region{Top: 0, Right: 200, Bottom: 200, Left: 0})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Half the canonical pixels are 255 after equalization, the rest 0.
	want := 1 / math.Sqrt(float64(EncodingSize/2))
	if enc[0] != 0 {
		t.Errorf("expected dark pixel to equalize to 0, got %v", enc[0])
	}
	if math.Abs(enc[CanonicalSize-1]-want) > 1e-12 {
		t.Errorf("expected bright pixel %v, got %v", want, enc[CanonicalSize-1])
	}
}

func TestEncode_FixedSizeAndUnitNorm(t *testing.T) {
	e := NewEncoder()

	tests := []struct {
		name   string
		img    image.Image
		region Region
	}{
		{"portrait", subjectA(240, 300), portraitFaceBox(240, 300)},
		{"small crop upscaled", subjectA(240, 300), Region{Top: 100, Right: 140, Bottom: 130, Left: 110}},
		{"region overflowing bounds", subjectB(120, 120), Region{Top: -20, Right: 200, Bottom: 90, Left: 30}},
		{"uniform gray crop", uniformImage(64, 64, color.Gray{Y: 128}), Region{Top: 0, Right: 64, Bottom: 64, Left: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := e.Encode(tt.img, tt.region)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(enc) != EncodingSize || len(enc) != e.Size() {
				t.Fatalf("expected %d values, got %d", EncodingSize, len(enc))
			}

			var sum float64
			for _, v := range enc {
				if v < 0 {
					t.Fatalf("unexpected negative value %v", v)
				}
				sum += v * v
			}
			if math.Abs(math.Sqrt(sum)-1) > 1e-9 {
				t.Errorf("expected unit norm, got %v", math.Sqrt(sum))
			}
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	e := NewEncoder()
	img := subjectA(240, 300)
	region := portraitFaceBox(240, 300)

	first, err := e.Encode(img, region)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	second, err := e.Encode(img, region)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("encodings of the same image and region differ")
	}
}

func TestEncode_SubImageOffset(t *testing.T) {
	e := NewEncoder()
	full := subjectA(240, 300)
	region := portraitFaceBox(240, 300)

	sub := full.SubImage(region.Rect())

	fromFull, err := e.Encode(full, region)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	fromSub, err := e.Encode(sub, region)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if !reflect.DeepEqual(fromFull, fromSub) {
		t.Error("encoding depends on image origin")
	}
}

func TestEncode_InvalidRegion(t *testing.T) {
	e := NewEncoder()
	img := subjectA(100, 100)

	tests := []struct {
		name   string
		region Region
	}{
		{"zero width", Region{Top: 10, Right: 10, Bottom: 50, Left: 10}},
		{"zero height", Region{Top: 10, Right: 50, Bottom: 10, Left: 10}},
		{"inverted", Region{Top: 50, Right: 10, Bottom: 10, Left: 50}},
		{"outside image", Region{Top: 200, Right: 300, Bottom: 300, Left: 200}},
		{"zero value", Region{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Encode(img, tt.region)
			if !errors.Is(err, ErrInvalidRegion) {
				t.Fatalf("expected ErrInvalidRegion, got %v", err)
			}
			if !errors.Is(err, ErrNoFaceDetected) {
				t.Errorf("expected ErrInvalidRegion to match ErrNoFaceDetected")
			}
		})
	}
}

func TestEncode_BlackCrop(t *testing.T) {
	e := NewEncoder()
	img := uniformImage(50, 50, color.Black)

	_, err := e.Encode(img, Region{Top: 0, Right: 50, Bottom: 50, Left: 0})
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("expected ErrNoFaceDetected, got %v", err)
	}
}

func TestEncodeFirst(t *testing.T) {
	e := NewEncoder()
	img := subjectA(240, 300)
	box := portraitFaceBox(240, 300)

	enc, region, err := e.EncodeFirst(contrastDetector, img)
	if err != nil {
		t.Fatalf("EncodeFirst failed: %v", err)
	}
	if len(enc) != EncodingSize {
		t.Errorf("expected %d values, got %d", EncodingSize, len(enc))
	}
	if region.Empty() || !region.Rect().In(box.Rect()) {
		t.Errorf("region %+v is not within face box %+v", region, box)
	}
}

func TestEncodeFirst_PicksLargest(t *testing.T) {
	e := NewEncoder()
	img := subjectA(240, 300)
	small := Region{Top: 0, Right: 40, Bottom: 40, Left: 0}
	large := portraitFaceBox(240, 300)

	want, err := e.Encode(img, large)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, region, err := e.EncodeFirst(fixedDetector(small, large), img)
	if err != nil {
		t.Fatalf("EncodeFirst failed: %v", err)
	}
	if region != large {
		t.Errorf("EncodeFirst picked %+v, want %+v", region, large)
	}
	if !reflect.DeepEqual(got, want) {
		t.Error("EncodeFirst encoding differs from Encode on the largest region")
	}
}

func TestEncodeFirst_NoFace(t *testing.T) {
	e := NewEncoder()

	for _, c := range []color.Color{color.White, color.Black, color.Gray{Y: 90}} {
		enc, _, err := e.EncodeFirst(contrastDetector, uniformImage(120, 90, c))
		if !errors.Is(err, ErrNoFaceDetected) {
			t.Errorf("expected ErrNoFaceDetected for uniform %v image, got %v", c, err)
		}
		if enc != nil {
			t.Errorf("expected no encoding, got %d values", len(enc))
		}
	}
}

func TestEncodeFirst_DetectorError(t *testing.T) {
	e := NewEncoder()
	failing := DetectorFunc(func(image.Image) ([]Region, error) {
		return nil, ErrImageLoad
	})

	_, _, err := e.EncodeFirst(failing, subjectA(50, 50))
	if !errors.Is(err, ErrImageLoad) {
		t.Errorf("expected ErrImageLoad, got %v", err)
	}
}
