package face

import (
	"fmt"
	"math"
)

// DefaultTolerance is a similarity threshold used when none is configured.
// It is not calibrated against a labeled dataset.
const DefaultTolerance = 0.6

// Distance calculates euclidean distance between two encodings.
func Distance(a, b Encoding) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("%w: %d and %d", ErrEncodingShapeMismatch, len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Distances calculates distance from every known encoding to probe, in
// order of known.
func Distances(known []Encoding, probe Encoding) ([]float64, error) {
	distances := make([]float64, len(known))
	for i, k := range known {
		d, err := Distance(k, probe)
		if err != nil {
			return nil, fmt.Errorf("known encoding %d: %w", i, err)
		}
		distances[i] = d
	}
	return distances, nil
}

// Compare decides whether probe is the same face as known. Both encodings
// are unit length, so distance is within 0..2 and similarity 1 - d/2 is
// within 0..1. It is a match when similarity is strictly above tolerance.
func Compare(known, probe Encoding, tolerance float64) (MatchResult, error) {
	if math.IsNaN(tolerance) {
		return MatchResult{}, ErrInvalidTolerance
	}

	distance, err := Distance(known, probe)
	if err != nil {
		return MatchResult{}, err
	}

	similarity := 1 - distance/2

	return MatchResult{
		Matched:    similarity > tolerance,
		Distance:   distance,
		Similarity: similarity,
		Confidence: confidence(distance),
	}, nil
}

// CompareAll compares probe with every known encoding.
func CompareAll(known []Encoding, probe Encoding, tolerance float64) ([]MatchResult, error) {
	results := make([]MatchResult, len(known))
	for i, k := range known {
		r, err := Compare(k, probe, tolerance)
		if err != nil {
			return nil, fmt.Errorf("known encoding %d: %w", i, err)
		}
		results[i] = r
	}
	return results, nil
}

// confidence is negative once distance exceeds 1.
func confidence(distance float64) float64 {
	return (1 - distance) * 100
}
