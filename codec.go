package face

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Serialize formats encoding as JSON array, e.g. "[0.0123,0.0098]". The same
// text is a valid pgvector literal.
func Serialize(e Encoding) string {
	var b strings.Builder
	b.Grow(len(e)*22 + 2)
	b.WriteByte('[')
	buf := make([]byte, 0, 32)
	for i, v := range e {
		if i > 0 {
			b.WriteByte(',')
		}
		buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
		b.Write(buf)
	}
	b.WriteByte(']')
	return b.String()
}

// unitNormTolerance is how far the norm of stored encoding may drift from 1.
const unitNormTolerance = 1e-6

// Deserialize parses text produced by Serialize. Text that is malformed,
// truncated, holds non-finite values, not exactly EncodingSize values or a
// vector that is not unit length yields ErrCorruptEncoding.
func Deserialize(text string) (Encoding, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrCorruptEncoding)
	}

	var values []float64
	if err := json.Unmarshal([]byte(text), &values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptEncoding, err)
	}

	if len(values) != EncodingSize {
		return nil, fmt.Errorf("%w: %d values, want %d", ErrCorruptEncoding, len(values), EncodingSize)
	}

	var sum float64
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: value %d is not finite", ErrCorruptEncoding, i)
		}
		sum += v * v
	}

	if norm := math.Sqrt(sum); math.Abs(norm-1) > unitNormTolerance {
		return nil, fmt.Errorf("%w: norm %v is not 1", ErrCorruptEncoding, norm)
	}

	return Encoding(values), nil
}
