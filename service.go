package face

import (
	"fmt"
	"io"
	"log"
)

// Service registers and verifies faces from raw image bytes.
// It is safe for concurrent use if its Detector is.
type Service struct {
	detector  Detector
	encoder   *Encoder
	tolerance float64
	logger    *log.Logger
}

type Option func(s *Service)

func WithEncoder(e *Encoder) Option {
	return func(s *Service) { s.encoder = e }
}

func WithTolerance(tolerance float64) Option {
	return func(s *Service) { s.tolerance = tolerance }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(d Detector, opts ...Option) *Service {
	s := &Service{
		detector:  d,
		encoder:   NewEncoder(),
		tolerance: DefaultTolerance,
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tolerance returns tolerance used by Verify.
func (s *Service) Tolerance() float64 {
	return s.tolerance
}

// Register encodes the face on image and returns serialized encoding ready
// to be stored next to employee record.
func (s *Service) Register(data []byte) (string, error) {
	enc, region, err := s.encode(data)
	if err != nil {
		return "", err
	}
	s.logger.Printf("face registered: region %+v", region)
	return Serialize(enc), nil
}

// Verify compares face on image with stored encoding using service tolerance.
func (s *Service) Verify(data []byte, stored string) (MatchResult, error) {
	return s.VerifyWithTolerance(data, stored, s.tolerance)
}

// VerifyWithTolerance compares face on image with stored encoding. Stored
// encoding is parsed before the image so a corrupt record is always
// reported as ErrCorruptEncoding.
func (s *Service) VerifyWithTolerance(data []byte, stored string, tolerance float64) (MatchResult, error) {
	known, err := Deserialize(stored)
	if err != nil {
		return MatchResult{}, err
	}

	probe, region, err := s.encode(data)
	if err != nil {
		return MatchResult{}, err
	}

	result, err := Compare(known, probe, tolerance)
	if err != nil {
		return MatchResult{}, err
	}

	s.logger.Printf("face verified: region %+v, matched %t, distance %.4f, confidence %.1f%%",
		region, result.Matched, result.Distance, result.Confidence)

	return result, nil
}

// CountFaces returns number of faces found on image.
func (s *Service) CountFaces(data []byte) (int, error) {
	img, err := LoadImage(data)
	if err != nil {
		return 0, err
	}
	regions, err := s.detector.Detect(img)
	if err != nil {
		return 0, fmt.Errorf("detect faces: %w", err)
	}
	return len(regions), nil
}

func (s *Service) encode(data []byte) (Encoding, Region, error) {
	img, err := LoadImage(data)
	if err != nil {
		return nil, Region{}, err
	}
	return s.encoder.EncodeFirst(s.detector, img)
}
