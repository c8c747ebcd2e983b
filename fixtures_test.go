package face

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"
)

// portrait draws a crude face: an ellipse of skin on background with two
// eyes and a mouth. Swapping colors gives a visually distinct subject.
func portrait(w, h int, bg, skin, features color.Gray) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	box := portraitFaceBox(w, h)
	cx, cy := float64(box.Left+box.Right)/2, float64(box.Top+box.Bottom)/2
	rx, ry := float64(box.Width())/2, float64(box.Height())/2

	for y := box.Top; y < box.Bottom; y++ {
		for x := box.Left; x < box.Right; x++ {
			dx, dy := (float64(x)-cx)/rx, (float64(y)-cy)/ry
			if dx*dx+dy*dy <= 1 {
				img.Set(x, y, skin)
			}
		}
	}

	fw, fh := box.Width(), box.Height()
	eye := func(ex int) image.Rectangle {
		return image.Rect(ex, box.Top+fh*3/10, ex+fw/6, box.Top+fh*4/10)
	}
	mouth := image.Rect(box.Left+fw*3/10, box.Top+fh*7/10, box.Left+fw*7/10, box.Top+fh*8/10)
	for _, r := range []image.Rectangle{eye(box.Left + fw/5), eye(box.Left + fw*19/30), mouth} {
		draw.Draw(img, r, &image.Uniform{C: features}, image.Point{}, draw.Src)
	}

	return img
}

func portraitFaceBox(w, h int) Region {
	return Region{Top: h / 8, Right: w * 4 / 5, Bottom: h * 7 / 8, Left: w / 5}
}

func subjectA(w, h int) *image.RGBA {
	return portrait(w, h, color.Gray{Y: 0}, color.Gray{Y: 255}, color.Gray{Y: 0})
}

func subjectB(w, h int) *image.RGBA {
	return portrait(w, h, color.Gray{Y: 255}, color.Gray{Y: 0}, color.Gray{Y: 255})
}

func uniformImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

// contrastDetector reports the bounding box of pixels that differ from the
// top-left pixel, or nothing for uniform images.
var contrastDetector = DetectorFunc(func(img image.Image) ([]Region, error) {
	b := img.Bounds()
	ref := color.GrayModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.Gray)

	found := image.Rectangle{}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray) != ref {
				found = found.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	if found.Empty() {
		return []Region{}, nil
	}
	return []Region{RegionFromRect(found)}, nil
})

func fixedDetector(regions ...Region) Detector {
	return DetectorFunc(func(image.Image) ([]Region, error) {
		return append([]Region{}, regions...), nil
	})
}
