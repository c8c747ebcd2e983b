package face

import (
	"errors"
	"fmt"
)

var (
	// ErrImageLoad is returned when image bytes can't be decoded.
	ErrImageLoad = errors.New("failed to load image")

	// ErrNoFaceDetected is returned when image has no face to encode.
	ErrNoFaceDetected = errors.New("no face detected")

	// ErrInvalidRegion is returned for face regions with zero area after
	// clipping to image bounds. It matches ErrNoFaceDetected with errors.Is.
	ErrInvalidRegion = fmt.Errorf("%w: invalid face region", ErrNoFaceDetected)

	// ErrEncodingShapeMismatch is returned when encodings have different sizes.
	ErrEncodingShapeMismatch = errors.New("face encodings have different sizes")

	// ErrCorruptEncoding is returned when stored encoding text can't be parsed.
	ErrCorruptEncoding = errors.New("corrupt face encoding")

	ErrInvalidTolerance = errors.New("invalid tolerance")
)
