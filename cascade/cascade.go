// Package cascade implements face.Detector with OpenCV Haar cascade
// classifier.
package cascade

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	face "github.com/dimuls/face-verify"
)

// DefaultCascade is a file name of OpenCV frontal face cascade.
const DefaultCascade = "haarcascade_frontalface_default.xml"

// Params are cascade scan parameters.
type Params struct {
	// ScaleFactor is how much image size is reduced at each scale.
	ScaleFactor float64

	// MinNeighbors is how many neighbour detections a candidate needs to be kept.
	MinNeighbors int

	// MinSize is a minimum face side in pixels.
	MinSize int

	// MaxSize is a maximum face side in pixels, 0 is unbounded.
	MaxSize int
}

// DefaultParams returns parameters OpenCV face_recognition ports commonly use.
func DefaultParams() Params {
	return Params{
		ScaleFactor:  1.1,
		MinNeighbors: 5,
		MinSize:      30,
	}
}

var searchDirs = []string{
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
}

// FindCascade returns the first existing file among paths and DefaultCascade
// in common OpenCV install directories.
func FindCascade(paths ...string) (string, error) {
	candidates := append([]string{}, paths...)
	candidates = append(candidates, DefaultCascade)
	for _, dir := range searchDirs {
		candidates = append(candidates, filepath.Join(dir, DefaultCascade))
	}

	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}

	return "", errors.New("face cascade file not found")
}

// Detector finds faces with Haar cascade. The cascade is loaded once and
// never modified; calls to Detect are serialized because OpenCV classifier
// keeps scan buffers inside.
type Detector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	params     Params
}

func NewDetector(cascadeFilePath string, params Params) (*Detector, error) {
	if params.ScaleFactor <= 1 {
		return nil, fmt.Errorf("scale factor should be greater than 1, got %v", params.ScaleFactor)
	}
	if params.MinNeighbors < 0 || params.MinSize < 0 || params.MaxSize < 0 {
		return nil, errors.New("min neighbors, min size and max size should not be negative")
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cascadeFilePath) {
		classifier.Close()
		return nil, fmt.Errorf("load face cascade %s", cascadeFilePath)
	}

	return &Detector{classifier: classifier, params: params}, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}

// Detect implements face.Detector.
func (d *Detector) Detect(img image.Image) ([]face.Region, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", face.ErrImageLoad, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("%w: empty image", face.ErrImageLoad)
	}

	return d.DetectMat(mat)
}

// BatchDetect finds faces on every image, keeping the order of imgs.
func (d *Detector) BatchDetect(imgs []image.Image) ([][]face.Region, error) {
	return face.DetectAll(d, imgs)
}

// DetectMat finds faces on BGR or grayscale mat.
func (d *Detector) DetectMat(mat gocv.Mat) ([]face.Region, error) {
	gray := gocv.NewMat()
	defer gray.Close()

	switch mat.Channels() {
	case 1:
		mat.CopyTo(&gray)
	case 3:
		gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(mat, &gray, gocv.ColorBGRAToGray)
	default:
		return nil, fmt.Errorf("%w: unsupported %d channels", face.ErrImageLoad, mat.Channels())
	}

	minSize := image.Pt(d.params.MinSize, d.params.MinSize)
	maxSize := image.Pt(d.params.MaxSize, d.params.MaxSize)

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(gray, d.params.ScaleFactor,
		d.params.MinNeighbors, 0, minSize, maxSize)
	d.mu.Unlock()

	regions := make([]face.Region, 0, len(rects))
	for _, r := range rects {
		regions = append(regions, face.RegionFromRect(r))
	}

	regions = face.FilterMinSize(regions, d.params.MinSize)
	face.SortRegions(regions)

	return regions, nil
}
